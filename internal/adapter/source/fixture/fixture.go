package fixture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cast"
	"go.yaml.in/yaml/v3"
)

// ErrInjected is returned by the first FailFirst fetches
var ErrInjected = errors.New("injected fixture failure")

// Options tunes how a fixture behaves like a remote source
type Options struct {
	Latency   time.Duration // Delay before every page
	FailFirst int           // Number of initial fetches that fail
}

// Source serves records from a local file in offset/limit pages
type Source struct {
	path    string
	records []map[string]any
	opts    Options
	calls   atomic.Int64
	logger  *slog.Logger
}

// document is the file layout for formats that need a top-level table
type document struct {
	Entries []map[string]any `json:"entries" yaml:"entries" toml:"entries"`
}

// Load reads a .json, .yaml/.yml or .toml fixture. JSON and YAML files may
// hold a bare list or an "entries" key; TOML files use [[entries]] tables.
func Load(path string, opts Options, logger *slog.Logger) (*Source, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	records, err := Parse(filepath.Ext(path), data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}

	logger.Debug("fixture loaded", "path", path, "records", len(records))
	return New(path, records, opts, logger), nil
}

// New serves records that are already in memory
func New(id string, records []map[string]any, opts Options, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{path: id, records: records, opts: opts, logger: logger}
}

// Parse decodes fixture bytes by file extension
func Parse(ext string, data []byte) ([]map[string]any, error) {
	switch strings.ToLower(ext) {
	case ".json":
		return parseWith(json.Unmarshal, data)
	case ".yaml", ".yml":
		return parseWith(yaml.Unmarshal, data)
	case ".toml":
		var doc document
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return doc.Entries, nil
	default:
		return nil, fmt.Errorf("unsupported fixture format %q", ext)
	}
}

func parseWith(unmarshal func([]byte, any) error, data []byte) ([]map[string]any, error) {
	var list []map[string]any
	if err := unmarshal(data, &list); err == nil {
		return list, nil
	}
	var doc document
	if err := unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc.Entries, nil
}

// ID identifies the fixture for cache keys
func (s *Source) ID() string {
	return s.path
}

// Len returns the total number of records
func (s *Source) Len() int {
	return len(s.records)
}

// FetchPage returns records [offset, offset+limit) as a []any. A "group" key
// in the query keeps only records of that group. A missing limit returns
// everything after offset.
func (s *Source) FetchPage(ctx context.Context, query map[string]any) (any, error) {
	call := s.calls.Add(1)

	if s.opts.Latency > 0 {
		select {
		case <-time.After(s.opts.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if call <= int64(s.opts.FailFirst) {
		s.logger.Debug("fixture failing on purpose", "call", call)
		return nil, fmt.Errorf("%w: call %d", ErrInjected, call)
	}

	records := s.records
	if group := cast.ToString(query["group"]); group != "" {
		records = filterGroup(records, group)
	}

	offset := max(cast.ToInt(query["offset"]), 0)
	limit := cast.ToInt(query["limit"])
	if offset > len(records) {
		offset = len(records)
	}
	end := len(records)
	if limit > 0 {
		end = min(offset+limit, len(records))
	}

	page := make([]any, 0, end-offset)
	for _, r := range records[offset:end] {
		page = append(page, r)
	}
	return page, nil
}

func filterGroup(records []map[string]any, group string) []map[string]any {
	var out []map[string]any
	for _, r := range records {
		if cast.ToString(r["group"]) == group {
			out = append(out, r)
		}
	}
	return out
}

var _ domain.DataSource = (*Source)(nil)
