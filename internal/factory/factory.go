package factory

import (
	"fmt"

	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/state"
)

// Context carries the inputs of one render cycle
type Context[T any] struct {
	Data       []T // Raw items consumed by this cycle
	Offset     int // Index of Data[0] within the full data set
	ChunkSize  int
	RenderPage int // Render page this cycle will become
}

// Strategy converts one cycle's raw items into descriptors. It must be a
// deterministic, pure function of its inputs.
type Strategy[T any] func(snap state.Snapshot[T], ctx Context[T]) []domain.ComponentItem

// Processor mutates the factory output before it is scheduled
type Processor func(items []domain.ComponentItem) []domain.ComponentItem

// Mapping holds the per-item functions used by the default strategy.
// Nil functions fall back to index keys, kind "item" and no props.
type Mapping[T any] struct {
	ItemKey   func(item T, index int) string
	ItemKind  func(item T, index int) string
	ItemProps func(item T, index int) map[string]any
}

// Factory produces descriptors for a render cycle
type Factory[T any] struct {
	strategy   Strategy[T]
	processors []Processor
}

// New creates a factory. A nil strategy uses Default(mapping).
func New[T any](strategy Strategy[T], mapping Mapping[T], processors ...Processor) *Factory[T] {
	if strategy == nil {
		strategy = Default(mapping)
	}
	return &Factory[T]{strategy: strategy, processors: processors}
}

// Produce runs the strategy followed by every processor
func (f *Factory[T]) Produce(snap state.Snapshot[T], ctx Context[T]) []domain.ComponentItem {
	items := f.strategy(snap, ctx)
	for _, p := range f.processors {
		items = p(items)
	}
	return items
}

// Default maps each raw item to exactly one item-typed descriptor
func Default[T any](m Mapping[T]) Strategy[T] {
	return func(_ state.Snapshot[T], ctx Context[T]) []domain.ComponentItem {
		items := make([]domain.ComponentItem, 0, len(ctx.Data))
		for i, raw := range ctx.Data {
			items = append(items, m.describe(raw, ctx.Offset+i))
		}
		return items
	}
}

func (m Mapping[T]) describe(raw T, index int) domain.ComponentItem {
	item := domain.ComponentItem{
		Key:  fmt.Sprintf("item-%d", index),
		Type: domain.ItemTypeItem,
		Kind: "item",
		Meta: map[string]any{"dataIndex": index},
	}
	if m.ItemKey != nil {
		item.Key = m.ItemKey(raw, index)
	}
	if m.ItemKind != nil {
		item.Kind = m.ItemKind(raw, index)
	}
	if m.ItemProps != nil {
		item.Props = m.ItemProps(raw, index)
	}
	return item
}

// SeparatorFunc returns a separator to insert before the raw item at index,
// given the raw item preceding it (ok=false when there is none).
type SeparatorFunc[T any] func(prev T, hasPrev bool, cur T, index int) (domain.ComponentItem, bool)

// WithSeparators wraps a strategy, inserting separators returned by sep.
// The previous item of the first raw item in a cycle is read from the
// snapshot, so grouping stays stable across render cycles.
func WithSeparators[T any](base Strategy[T], sep SeparatorFunc[T]) Strategy[T] {
	return func(snap state.Snapshot[T], ctx Context[T]) []domain.ComponentItem {
		produced := base(snap, ctx)
		if len(produced) != len(ctx.Data) {
			// Only one-to-one strategies can be aligned with raw items
			return produced
		}

		out := make([]domain.ComponentItem, 0, len(produced)*2)
		var prev T
		hasPrev := false
		if ctx.Offset > 0 && ctx.Offset-1 < len(snap.Data) {
			prev, hasPrev = snap.Data[ctx.Offset-1], true
		}

		for i, raw := range ctx.Data {
			if s, ok := sep(prev, hasPrev, raw, ctx.Offset+i); ok {
				s.Type = domain.ItemTypeSeparator
				out = append(out, s)
			}
			out = append(out, produced[i])
			prev, hasPrev = raw, true
		}
		return out
	}
}

// Interleave emits one separator after every item descriptor
func Interleave[T any](base Strategy[T]) Strategy[T] {
	return func(snap state.Snapshot[T], ctx Context[T]) []domain.ComponentItem {
		produced := base(snap, ctx)
		out := make([]domain.ComponentItem, 0, len(produced)*2)
		for _, item := range produced {
			out = append(out, item, domain.ComponentItem{
				Key:  item.Key + "-sep",
				Type: domain.ItemTypeSeparator,
				Kind: "separator",
			})
		}
		return out
	}
}

// CountContent returns how many descriptors are item-typed
func CountContent(items []domain.ComponentItem) int {
	n := 0
	for _, item := range items {
		if item.IsContent() {
			n++
		}
	}
	return n
}
