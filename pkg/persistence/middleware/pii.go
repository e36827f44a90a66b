package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/ports"
)

// RedactedValue replaces masked slot values at rest.
const RedactedValue = "***"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks slots whose key matches any
// pattern before they reach the store. A masked slot still counts as answered,
// so flow progression survives a reload; only its content is lost.
func NewPIIMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, 0, len(patternStrings))
	for _, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns = append(patterns, re)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.DialogState) error {
	// Mask a copy; the caller keeps using the original.
	cloned := state.Snapshot()
	for key, v := range cloned.Slots {
		if !m.matches(key) {
			continue
		}
		if v.IsList() {
			cloned.Slots[key] = domain.List(RedactedValue)
		} else {
			cloned.Slots[key] = domain.String(RedactedValue)
		}
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.DialogState, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
