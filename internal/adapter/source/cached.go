package source

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mmcdole/vscroll/internal/domain"
)

// Cached is a read-through page cache in front of a Source. Payloads are
// stored as JSON, so only JSON-representable payloads are cached.
type Cached struct {
	inner  Source
	pages  domain.PageStore
	ttl    time.Duration
	logger *slog.Logger
}

// NewCached wraps inner. Entries older than ttl are refetched.
func NewCached(inner Source, pages domain.PageStore, ttl time.Duration, logger *slog.Logger) *Cached {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cached{inner: inner, pages: pages, ttl: ttl, logger: logger}
}

// ID returns the wrapped source's ID
func (c *Cached) ID() string {
	return c.inner.ID()
}

// FetchPage serves a cached payload when one is fresh, else fetches and stores it
func (c *Cached) FetchPage(ctx context.Context, query map[string]any) (any, error) {
	key := c.key(query)
	if data, ok := c.pages.GetPage(key, c.ttl); ok {
		var payload any
		if err := json.Unmarshal(data, &payload); err == nil {
			c.logger.Debug("page cache hit", "key", key)
			return payload, nil
		}
		c.logger.Warn("discarding unreadable cached page", "key", key)
	}

	payload, err := c.inner.FetchPage(ctx, query)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("page not cacheable", "key", key, "error", err)
		return payload, nil
	}
	if err := c.pages.SavePage(key, data); err != nil {
		c.logger.Warn("failed to cache page", "key", key, "error", err)
	}
	return payload, nil
}

var _ domain.Invalidator = (*Cached)(nil)

// Invalidate drops every cached page of this source
func (c *Cached) Invalidate() {
	c.pages.Invalidate(c.prefix())
}

func (c *Cached) prefix() string {
	return c.inner.ID() + "|"
}

// key is stable for equal queries; json.Marshal sorts map keys
func (c *Cached) key(query map[string]any) string {
	data, _ := json.Marshal(query)
	sum := sha256.Sum256(data)
	return c.prefix() + hex.EncodeToString(sum[:8])
}
