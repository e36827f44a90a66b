package classifier

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/aretw0/triage/pkg/domain"
	"github.com/aretw0/triage/pkg/lexicon"
)

// Cached memoizes successful classifications by normalized utterance.
// Errors are never cached.
type Cached struct {
	inner Classifier
	cache *lru.Cache[string, domain.Classification]
}

// NewCached wraps inner with an LRU of the given size.
func NewCached(inner Classifier, size int) (*Cached, error) {
	cache, err := lru.New[string, domain.Classification](size)
	if err != nil {
		return nil, fmt.Errorf("classifier cache: %w", err)
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Name() string { return c.inner.Name() }

func (c *Cached) Classify(ctx context.Context, utterance string) (domain.Classification, error) {
	key := lexicon.Normalize(utterance)
	if hit, ok := c.cache.Get(key); ok {
		return hit, nil
	}
	res, err := c.inner.Classify(ctx, utterance)
	if err != nil {
		return res, err
	}
	c.cache.Add(key, res)
	return res, nil
}

// Len reports the number of cached entries.
func (c *Cached) Len() int { return c.cache.Len() }
