package classifier

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aretw0/triage/pkg/domain"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI classifies with a chat completion model.
type OpenAI struct {
	client *openai.Client
	model  string
	prompt string
}

// NewOpenAI builds a classifier restricted to tags.
func NewOpenAI(apiKey, model string, tags []string) *OpenAI {
	return NewOpenAIWithConfig(openai.DefaultConfig(apiKey), model, tags)
}

// NewOpenAIWithConfig allows a custom base URL or HTTP client.
func NewOpenAIWithConfig(cfg openai.ClientConfig, model string, tags []string) *OpenAI {
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		prompt: instructions(tags),
	}
}

func (c *OpenAI) Name() string { return "openai:" + c.model }

func (c *OpenAI) Classify(ctx context.Context, utterance string) (domain.Classification, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: c.prompt},
			{Role: openai.ChatMessageRoleUser, Content: utterance},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return domain.Classification{}, fmt.Errorf("%w: empty completion", domain.ErrClassifierUnavailable)
	}
	return parseReply(resp.Choices[0].Message.Content)
}
