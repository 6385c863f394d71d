package search

import (
	"context"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/render"
	"github.com/spf13/cast"
)

// DefaultFields are the descriptor props a filter matches against
var DefaultFields = []string{"title", "subtitle", "group"}

// Filter builds a render filter that keeps content descriptors whose props
// fuzzy-match every whitespace-separated token of query, in any order.
// Separators are kept so grouping survives filtering. An empty query keeps
// everything and returns nil.
func Filter(query string, fields ...string) render.Filter {
	tokens := strings.Fields(strings.ToLower(query))
	if len(tokens) == 0 {
		return nil
	}
	if len(fields) == 0 {
		fields = DefaultFields
	}

	return func(ctx context.Context, item domain.ComponentItem, _ render.FilterMeta) (bool, error) {
		if err := ctx.Err(); err != nil {
			return false, err
		}
		if !item.IsContent() {
			return true, nil
		}
		return MatchAll(tokens, Haystack(item, fields...)), nil
	}
}

// MatchAll reports whether every token fuzzy-matches text
func MatchAll(tokens []string, text string) bool {
	for _, tok := range tokens {
		if !fuzzy.MatchFold(tok, text) {
			return false
		}
	}
	return true
}

// Haystack joins the named props of item into one searchable string
func Haystack(item domain.ComponentItem, fields ...string) string {
	var parts []string
	for _, f := range fields {
		if s := cast.ToString(item.Props[f]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

