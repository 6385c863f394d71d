package tui

import (
	"fmt"

	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/search"
	"github.com/spf13/cast"
)

// BlockRenderer turns descriptors into canvas blocks. Rendering happens on
// the Update loop, so the highlight query needs no locking.
type BlockRenderer struct {
	ShowDescriptions bool
	query            string
}

// SetQuery sets the filter text highlighted in titles mounted afterwards
func (r *BlockRenderer) SetQuery(query string) {
	r.query = query
}

// Render implements domain.Renderer
func (r *BlockRenderer) Render(item domain.ComponentItem) (domain.Node, error) {
	b := &Block{
		Key:   item.Key,
		Kind:  item.Kind,
		Title: cast.ToString(item.Props["title"]),
	}

	if !item.IsContent() {
		b.Separator = true
		return b, nil
	}

	if b.Title == "" {
		b.Title = item.Key
	}
	if r.ShowDescriptions {
		b.Detail = cast.ToString(item.Props["description"])
	}
	b.Matches = search.Highlight(r.query, b.Title)

	for _, child := range item.Children {
		n, err := r.Render(child)
		if err != nil {
			return nil, fmt.Errorf("render child %s: %w", child.Key, err)
		}
		b.Children = append(b.Children, n.(*Block))
	}
	return b, nil
}
