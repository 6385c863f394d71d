package search

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/render"
)

func entryItem(title, group string) domain.ComponentItem {
	return domain.ComponentItem{
		Key:   title,
		Type:  domain.ItemTypeItem,
		Props: map[string]any{"title": title, "group": group},
	}
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		item  domain.ComponentItem
		want  bool
	}{
		{"exact", "robot", entryItem("Mr. Robot", "drama"), true},
		{"any order", "robot mr", entryItem("Mr. Robot", "drama"), true},
		{"case folded", "ROBOT", entryItem("Mr. Robot", "drama"), true},
		{"matches group", "drama", entryItem("Mr. Robot", "drama"), true},
		{"subsequence", "mrbt", entryItem("Mr. Robot", ""), true},
		{"missing token", "robot zebra", entryItem("Mr. Robot", "drama"), false},
		{"separator kept", "zebra", domain.ComponentItem{Key: "s", Type: domain.ItemTypeSeparator}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := Filter(tt.query)
			got, err := f(context.Background(), tt.item, render.FilterMeta{})
			if err != nil {
				t.Fatalf("filter error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Filter(%q)(%q) = %v, want %v", tt.query, tt.item.Key, got, tt.want)
			}
		})
	}
}

func TestFilterEmptyQuery(t *testing.T) {
	if f := Filter("   "); f != nil {
		t.Fatal("Filter() with blank query should be nil")
	}
}

func TestFilterCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Filter("x")(ctx, entryItem("x", ""), render.FilterMeta{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestHighlight(t *testing.T) {
	got := Highlight("bet alp", "Alpha Beta")
	want := []int{0, 1, 2, 6, 7, 8}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Highlight() mismatch (-want +got):\n%s", diff)
	}
	if got := Highlight("", "Mr. Robot"); got != nil {
		t.Fatalf("Highlight(\"\") = %v, want nil", got)
	}
}
