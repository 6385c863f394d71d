package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/vscroll/internal/adapter"
	"github.com/mmcdole/vscroll/internal/adapter/source/fixture"
	"github.com/mmcdole/vscroll/internal/adapter/source/httpjson"
	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/store"
)

type countingSource struct {
	Source
	calls int
}

func (c *countingSource) FetchPage(ctx context.Context, query map[string]any) (any, error) {
	c.calls++
	return c.Source.FetchPage(ctx, query)
}

func TestCachedReadThrough(t *testing.T) {
	inner := &countingSource{Source: fixture.New("mem", []map[string]any{{"id": "1"}, {"id": "2"}}, fixture.Options{}, nil)}
	pages, err := store.NewPageStore("", "")
	if err != nil {
		t.Fatalf("NewPageStore: %v", err)
	}
	cached := NewCached(inner, pages, time.Hour, nil)

	q := map[string]any{"offset": 0, "limit": 1}
	first, err := cached.FetchPage(context.Background(), q)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	second, err := cached.FetchPage(context.Background(), map[string]any{"limit": 1, "offset": 0})
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}

	if inner.calls != 1 {
		t.Fatalf("inner calls = %d, want 1", inner.calls)
	}
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cached payload differs (-fetched +cached):\n%s", diff)
	}

	cached.Invalidate()
	if _, err := cached.FetchPage(context.Background(), q); err != nil {
		t.Fatalf("fetch after invalidate: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner calls after invalidate = %d, want 2", inner.calls)
	}
}

func TestCachedDoesNotStoreErrors(t *testing.T) {
	inner := &countingSource{Source: fixture.New("mem", nil, fixture.Options{FailFirst: 1}, nil)}
	pages, _ := store.NewPageStore("", "")
	cached := NewCached(inner, pages, time.Hour, nil)

	if _, err := cached.FetchPage(context.Background(), nil); !errors.Is(err, fixture.ErrInjected) {
		t.Fatalf("err = %v, want injected failure", err)
	}
	if _, err := cached.FetchPage(context.Background(), nil); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("inner calls = %d, want 2", inner.calls)
	}
}

func TestNewSource(t *testing.T) {
	src, err := NewSource(adapter.SourceConfig{Type: adapter.SourceTypeHTTPJSON, URL: "http://localhost"}, nil)
	if err != nil {
		t.Fatalf("NewSource(httpjson): %v", err)
	}
	if _, ok := src.(*httpjson.Client); !ok {
		t.Fatalf("NewSource(httpjson) = %T", src)
	}

	if _, err := NewSource(adapter.SourceConfig{Type: adapter.SourceTypeHTTPJSON}, nil); !errors.Is(err, domain.ErrNoDataSource) {
		t.Fatalf("missing URL: err = %v, want %v", err, domain.ErrNoDataSource)
	}
	if _, err := NewSource(adapter.SourceConfig{Type: "ftp"}, nil); err == nil {
		t.Fatal("NewSource accepted an unknown type")
	}
}

func TestNewFromConfigCache(t *testing.T) {
	cfg := adapter.DefaultConfig()
	cfg.Source.URL = "http://localhost"
	cfg.Cache.Enabled = true
	cfg.Cache.Dir = t.TempDir()

	src, closer, err := NewFromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	defer closer.Close()
	if _, ok := src.(*Cached); !ok {
		t.Fatalf("NewFromConfig() = %T, want *Cached", src)
	}
}
