package source

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/mmcdole/vscroll/internal/adapter"
	"github.com/mmcdole/vscroll/internal/adapter/source/fixture"
	"github.com/mmcdole/vscroll/internal/adapter/source/httpjson"
	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/store"
)

// Source is a data source that can name itself for cache keys
type Source interface {
	domain.DataSource
	ID() string
}

// NewSource creates the data source selected by cfg.Type.
// This factory function abstracts away the specific backend implementation.
func NewSource(cfg adapter.SourceConfig, logger *slog.Logger) (Source, error) {
	switch cfg.Type {
	case adapter.SourceTypeHTTPJSON:
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: source URL is required", domain.ErrNoDataSource)
		}
		return httpjson.NewClient(httpjson.Config{
			URL:         cfg.URL,
			Token:       cfg.Token,
			DataPath:    cfg.DataPath,
			OffsetParam: cfg.OffsetParam,
			LimitParam:  cfg.LimitParam,
			Timeout:     cfg.Timeout,
		}, logger), nil

	case adapter.SourceTypeFixture:
		if cfg.Path == "" {
			return nil, fmt.Errorf("%w: fixture path is required", domain.ErrNoDataSource)
		}
		return fixture.Load(cfg.Path, fixture.Options{
			Latency:   cfg.Latency,
			FailFirst: cfg.FailFirst,
		}, logger)

	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Type)
	}
}

// NewFromConfig creates the configured source, wrapped in a page cache when
// caching is enabled. The returned closer releases the cache.
func NewFromConfig(cfg *adapter.Config, logger *slog.Logger) (domain.DataSource, io.Closer, error) {
	src, err := NewSource(cfg.Source, logger)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Cache.Enabled {
		return src, io.NopCloser(nil), nil
	}

	pages, err := store.NewPageStore(cfg.Cache.Dir, src.ID())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open page cache: %w", err)
	}
	return NewCached(src, pages, cfg.Cache.TTL, logger), pages, nil
}
