package triage_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/triage"
	"github.com/aretw0/triage/pkg/adapters/memory"
	"github.com/aretw0/triage/pkg/classifier"
	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/ports"
	"github.com/aretw0/triage/pkg/runner"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T, opts ...triage.Option) *triage.Service {
	t.Helper()
	opts = append([]triage.Option{triage.WithClock(func() time.Time { return fixedNow })}, opts...)
	svc, err := triage.New(opts...)
	require.NoError(t, err)
	return svc
}

func TestService_HeadacheConversation(t *testing.T) {
	var handoffs []*domain.Handoff
	sink := ports.HandoffSinkFunc(func(_ context.Context, h *domain.Handoff) error {
		handoffs = append(handoffs, h)
		return nil
	})
	var turns []*domain.TurnEvent
	hooks := domain.LifecycleHooks{OnTurn: func(_ context.Context, e *domain.TurnEvent) { turns = append(turns, e) }}
	svc := newService(t, triage.WithHandoffSink(sink), triage.WithLifecycleHooks(hooks))
	ctx := context.Background()

	reply, err := svc.Handle(ctx, "s1", "I have a headache", false)
	require.NoError(t, err)
	assert.Equal(t, "I'm sorry to hear about the pain. Where exactly is the headache: front, back, sides, left or right?", reply.Text)
	assert.Equal(t, domain.Headache, reply.State.ActiveDomain)
	assert.Equal(t, "ask_location", reply.State.Stage)
	assert.Equal(t, 1, reply.State.Turns)

	reply, err = svc.Handle(ctx, "s1", "front, severity 7, for 2 days, no nausea", false)
	require.NoError(t, err)
	assert.Equal(t, "ask_assoc", reply.State.Stage)

	reply, err = svc.Handle(ctx, "s1", "light hurts", false)
	require.NoError(t, err)
	assert.True(t, reply.Final)
	assert.True(t, strings.HasPrefix(reply.Text, "Thanks for the details. Summary: headache at front, severity 7/10, duration 2 days"))
	assert.False(t, reply.State.Active(), "summary resets the session")
	assert.Empty(t, reply.State.Slots)

	require.Len(t, handoffs, 1)
	assert.Equal(t, "s1", handoffs[0].SessionID)
	assert.Equal(t, fixedNow, handoffs[0].CreatedAt)
	assert.Contains(t, handoffs[0].ModelInput, "Latest user input: light hurts")

	require.Len(t, turns, 3)
	assert.Equal(t, domain.ReplySummary, turns[2].Kind)
	assert.Equal(t, domain.Headache, turns[2].Domain)

	st, err := svc.Session(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, domain.None, st.ActiveDomain)
	assert.Equal(t, 3, st.Turns)
}

func TestService_SessionsAreIndependent(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Handle(ctx, "a", "my stomach hurts", false)
	require.NoError(t, err)
	reply, err := svc.Handle(ctx, "b", "I've been coughing", false)
	require.NoError(t, err)
	assert.Equal(t, domain.Cough, reply.State.ActiveDomain)

	a, err := svc.Session(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, domain.Stomach, a.ActiveDomain)

	ids, err := svc.Sessions(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}

func TestService_Reset(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Handle(ctx, "s", "fever", false)
	require.NoError(t, err)

	reply, err := svc.Handle(ctx, "s", "", true)
	require.NoError(t, err)
	assert.Equal(t, domain.ReplyReset, reply.Kind)
	assert.False(t, reply.State.Active())

	_, err = svc.Handle(ctx, "s", "fever", false)
	require.NoError(t, err)
	reply, err = svc.Handle(ctx, "s", "I have a rash", true)
	require.NoError(t, err)
	assert.Equal(t, domain.Skin, reply.State.ActiveDomain, "reset clears the fever flow before routing")
}

func TestService_InputErrors(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Handle(ctx, "s", "   ", false)
	assert.ErrorIs(t, err, domain.ErrEmptyUtterance)
	assert.True(t, triage.IsInputError(err))

	_, err = svc.Handle(ctx, "", "hello", false)
	assert.ErrorIs(t, err, domain.ErrInvalidSessionID)

	_, err = svc.Handle(ctx, "s", "bad \xff utf8", false)
	assert.ErrorIs(t, err, runner.ErrInvalidUTF8)

	_, err = svc.Handle(ctx, "s", strings.Repeat("a", runner.DefaultMaxUtteranceRunes+1), false)
	assert.ErrorIs(t, err, runner.ErrUtteranceTooLong)
	assert.True(t, triage.IsInputError(err))

	_, err = svc.Handle(ctx, "s", "\x1b[0m\x00 \t", false)
	assert.ErrorIs(t, err, domain.ErrEmptyUtterance)

	ids, err := svc.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "rejected input never creates a session")
}

type failingStore struct{ *memory.Store }

func (failingStore) Save(context.Context, string, *domain.DialogState) error {
	return errors.New("disk full")
}

func TestService_StoreFailurePropagates(t *testing.T) {
	svc := newService(t, triage.WithStore(failingStore{memory.NewStore()}))
	_, err := svc.Handle(context.Background(), "s", "fever", false)
	require.Error(t, err)
	assert.False(t, triage.IsInputError(err))
}

func TestService_HandoffSinkFailureDoesNotFailTurn(t *testing.T) {
	sink := ports.HandoffSinkFunc(func(context.Context, *domain.Handoff) error { return errors.New("db down") })
	svc := newService(t, triage.WithHandoffSink(sink))
	ctx := context.Background()

	for _, in := range []string{"headache", "front, 5, since yesterday"} {
		_, err := svc.Handle(ctx, "s", in, false)
		require.NoError(t, err)
	}
	reply, err := svc.Handle(ctx, "s", "no", false)
	require.NoError(t, err)
	assert.True(t, reply.Final)
}

func TestService_ClassifierOption(t *testing.T) {
	c := classifier.Func(func(context.Context, string) (domain.Classification, error) {
		return domain.Classification{Tag: "Symptom_Fatigue", Confidence: 0.6}, nil
	})
	svc := newService(t, triage.WithClassifier(c), triage.WithThreshold(0.5))

	reply, err := svc.Handle(context.Background(), "s", "meh", false)
	require.NoError(t, err)
	assert.Equal(t, domain.Fatigue, reply.State.ActiveDomain)
}

func TestService_ConcurrentSameSession(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Handle(ctx, "shared", "tired", false)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	st, err := svc.Session(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, 16, st.Turns)
	assert.Equal(t, domain.Fatigue, st.ActiveDomain)
}

func TestService_DeleteSession(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DeleteSession(ctx, "ghost"), domain.ErrSessionNotFound)

	_, err := svc.Handle(ctx, "s", "fever", false)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteSession(ctx, "s"))
	_, err = svc.Session(ctx, "s")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}
