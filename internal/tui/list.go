package tui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/engine"
	"github.com/mmcdole/vscroll/internal/factory"
	"github.com/mmcdole/vscroll/internal/loader"
	"github.com/mmcdole/vscroll/internal/search"
)

// Options configures the entry browser
type Options struct {
	Source domain.DataSource
	Query  map[string]any

	ChunkSize              int
	PreloadAmount          int
	BatchSize              int
	FrameInterval          time.Duration
	DisableObserver        bool
	VisibilityThreshold    float64
	Separators             bool // Insert a header whenever Entry.Group changes
	SeparatorsAdvanceItems bool

	ShowDescriptions bool
	Tombstones       int    // Placeholder rows shown while a page loads
	Filter           string // Initial filter query

	// Headless follows the tail of the list and quits when it finishes
	Headless bool

	Logger *slog.Logger
}

// EntryMapping describes how entries become descriptors
var EntryMapping = factory.Mapping[domain.Entry]{
	ItemKey: func(e domain.Entry, index int) string {
		if e.ID != "" {
			return "entry-" + e.ID
		}
		return fmt.Sprintf("entry-%d", index)
	},
	ItemKind: func(domain.Entry, int) string { return "entry" },
	ItemProps: func(e domain.Entry, _ int) map[string]any {
		return map[string]any{
			"title":       e.Title,
			"subtitle":    e.Subtitle,
			"group":       e.Group,
			"description": e.Description(),
		}
	},
}

// groupSeparator emits a header before the first entry of every group
func groupSeparator(prev domain.Entry, hasPrev bool, cur domain.Entry, index int) (domain.ComponentItem, bool) {
	if cur.Group == "" || (hasPrev && prev.Group == cur.Group) {
		return domain.ComponentItem{}, false
	}
	return domain.ComponentItem{
		Key:   fmt.Sprintf("group-%d", index),
		Kind:  "group",
		Props: map[string]any{"title": cur.Group},
	}, true
}

// NewEntryList wires an engine list of entries onto canvas
func NewEntryList(opts Options, canvas *Canvas, renderer *BlockRenderer) *engine.List[domain.Entry] {
	strategy := factory.Default(EntryMapping)
	if opts.Separators {
		strategy = factory.WithSeparators(strategy, groupSeparator)
	}

	renderer.SetQuery(opts.Filter)

	return engine.New(engine.Config[domain.Entry]{
		Source:  opts.Source,
		Decoder: loader.Decode[domain.Entry],
		Query:   opts.Query,

		ChunkSize:     opts.ChunkSize,
		PreloadAmount: opts.PreloadAmount,

		ItemsFactory: strategy,
		Mapping:      EntryMapping,

		Container:     canvas,
		Renderer:      renderer,
		BatchSize:     opts.BatchSize,
		FrameInterval: opts.FrameInterval,
		Filter:        search.Filter(opts.Filter),

		Intersector:            canvas,
		Tombstones:             canvas.Tombstones(),
		DisableObserver:        opts.DisableObserver,
		VisibilityThreshold:    opts.VisibilityThreshold,
		SeparatorsAdvanceItems: opts.SeparatorsAdvanceItems,

		Logger: opts.Logger,
	})
}
