package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/triage"
	triagemcp "github.com/aretw0/triage/pkg/adapters/mcp"
	"github.com/aretw0/triage/pkg/domain"
)

func newClient(t *testing.T) *client.Client {
	t.Helper()
	svc, err := triage.New()
	require.NoError(t, err)
	srv := triagemcp.NewServer(svc)

	c, err := client.NewInProcessClient(srv.MCPServer())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	init := mcp.InitializeRequest{}
	init.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	init.Params.ClientInfo = mcp.Implementation{Name: "test", Version: "0.0.1"}
	_, err = c.Initialize(ctx, init)
	require.NoError(t, err)
	return c
}

func callTool(t *testing.T, c *client.Client, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	res, err := c.CallTool(context.Background(), req)
	require.NoError(t, err)
	return res
}

func turnResult(t *testing.T, res *mcp.CallToolResult) triagemcp.TurnResult {
	t.Helper()
	require.False(t, res.IsError)
	raw, err := json.Marshal(res.StructuredContent)
	require.NoError(t, err)
	var out triagemcp.TurnResult
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func TestTools(t *testing.T) {
	c := newClient(t)

	list, err := c.ListTools(context.Background(), mcp.ListToolsRequest{})
	require.NoError(t, err)
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"triage_message", "reset_session", "get_session"}, names)
}

func TestTriageMessage(t *testing.T) {
	c := newClient(t)

	res := turnResult(t, callTool(t, c, "triage_message", map[string]any{
		"session_id": "agent-1",
		"message":    "I have a headache",
	}))
	assert.Equal(t, "agent-1", res.SessionID)
	assert.Equal(t, domain.ReplyPrompt, res.Kind)
	require.NotNil(t, res.State)
	assert.Equal(t, domain.Headache, res.State.ActiveDomain)

	inspect := callTool(t, c, "get_session", map[string]any{"session_id": "agent-1"})
	require.False(t, inspect.IsError)
	text, ok := mcp.AsTextContent(inspect.Content[0])
	require.True(t, ok)
	assert.Contains(t, text.Text, `"active_domain":"headache"`)

	reset := turnResult(t, callTool(t, c, "reset_session", map[string]any{"session_id": "agent-1"}))
	assert.Equal(t, domain.ReplyReset, reset.Kind)
	assert.False(t, reset.State.Active())
}

func TestTriageMessage_InputError(t *testing.T) {
	c := newClient(t)

	res := callTool(t, c, "triage_message", map[string]any{"session_id": "agent-2", "message": "  "})
	assert.True(t, res.IsError)
}

func TestGetSession_Missing(t *testing.T) {
	c := newClient(t)

	res := callTool(t, c, "get_session", map[string]any{"session_id": "nobody"})
	assert.True(t, res.IsError)
}

func TestFlowsResource(t *testing.T) {
	c := newClient(t)

	req := mcp.ReadResourceRequest{}
	req.Params.URI = triagemcp.FlowsURI
	res, err := c.ReadResource(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, res.Contents, 1)

	var text string
	switch v := res.Contents[0].(type) {
	case mcp.TextResourceContents:
		text = v.Text
	case *mcp.TextResourceContents:
		text = v.Text
	default:
		t.Fatalf("unexpected resource contents %T", v)
	}

	var flows []struct {
		Domain  string   `json:"domain"`
		Stages  []string `json:"stages"`
		Mermaid string   `json:"mermaid"`
	}
	require.NoError(t, json.Unmarshal([]byte(text), &flows))
	require.Len(t, flows, 7)
	assert.Equal(t, "headache", flows[0].Domain)
	assert.Equal(t, "summary", flows[0].Stages[len(flows[0].Stages)-1])
	assert.Contains(t, flows[0].Mermaid, "graph TD")
}
