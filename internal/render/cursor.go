package render

import (
	"context"

	"github.com/mmcdole/vscroll/internal/domain"
)

// Cursor yields descriptors one at a time. A yielded descriptor may still be
// pending (Await set); the scheduler resolves it before batching.
type Cursor interface {
	Next() (domain.ComponentItem, bool)
}

// Sized is implemented by cursors that know how many descriptors they hold
type Sized interface {
	Len() int
}

// SliceCursor walks a fixed slice of descriptors
type SliceCursor struct {
	items []domain.ComponentItem
	pos   int
}

// NewSliceCursor creates a cursor over items
func NewSliceCursor(items []domain.ComponentItem) *SliceCursor {
	return &SliceCursor{items: items}
}

// Next returns the next descriptor
func (c *SliceCursor) Next() (domain.ComponentItem, bool) {
	if c.pos >= len(c.items) {
		return domain.ComponentItem{}, false
	}
	item := c.items[c.pos]
	c.pos++
	return item, true
}

// Len returns the total number of descriptors
func (c *SliceCursor) Len() int {
	return len(c.items)
}

// FilterMeta describes where a descriptor sits in its job
type FilterMeta struct {
	Index int    // Position in the job's cursor
	Total int    // Total descriptors in the job, -1 when unknown
	Epoch uint64 // Epoch the job belongs to
}

// Filter vetoes descriptors before batching. It runs off the Update loop and
// may block; returning false drops the descriptor.
type Filter func(ctx context.Context, item domain.ComponentItem, meta FilterMeta) (bool, error)

// resolve waits for a pending descriptor; ready descriptors pass through
func resolve(ctx context.Context, item domain.ComponentItem) (domain.ComponentItem, error) {
	if item.Await == nil {
		return item, nil
	}
	resolved, err := item.Await(ctx)
	if err != nil {
		return domain.ComponentItem{}, err
	}
	resolved.Await = nil
	return resolved, nil
}
