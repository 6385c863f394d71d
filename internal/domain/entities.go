package domain

import (
	"context"
	"strings"
	"time"
)

// ItemType distinguishes content descriptors from structural ones
type ItemType string

const (
	ItemTypeItem      ItemType = "item"
	ItemTypeSeparator ItemType = "separator"
)

// ComponentItem describes one logical list entry that has not been mounted yet.
// Descriptors are immutable once produced by the item factory.
type ComponentItem struct {
	Key      string          // Stable identity within one epoch
	Type     ItemType        // item or separator
	Kind     string          // Renderable kind, interpreted by the Renderer
	Props    map[string]any  // Render properties
	Children []ComponentItem // Nested descriptors (rendered inside the parent)
	Meta     map[string]any  // Free-form data carried to filters and hooks

	// Await resolves the final descriptor when its content depends on a pending
	// sub-load. Nil for descriptors that are ready immediately.
	Await func(ctx context.Context) (ComponentItem, error)
}

// IsContent reports whether the descriptor is an item (not a separator)
func (c ComponentItem) IsContent() bool {
	return c.Type == ItemTypeItem || c.Type == ""
}

// MountedChild is a descriptor that has been handed to the render scheduler.
type MountedChild struct {
	ComponentItem
	ChildIndex int  // Position in the child list
	ItemIndex  int  // Position within the content-only subset (-1 for separators)
	Node       Node // Set once rendered
}

// MountedItem is the content-only view of a mounted child.
type MountedItem struct {
	MountedChild
}

// Entry is the record type served by the bundled data sources.
type Entry struct {
	ID        string `mapstructure:"id" json:"id" yaml:"id" toml:"id"`
	Title     string `mapstructure:"title" json:"title" yaml:"title" toml:"title"`
	Subtitle  string `mapstructure:"subtitle" json:"subtitle,omitempty" yaml:"subtitle" toml:"subtitle"`
	Group     string `mapstructure:"group" json:"group,omitempty" yaml:"group" toml:"group"`
	UpdatedAt int64  `mapstructure:"updated_at" json:"updated_at,omitempty" yaml:"updated_at" toml:"updated_at"`
}

// Updated returns the UpdatedAt timestamp as a time.Time (zero if unset)
func (e Entry) Updated() time.Time {
	if e.UpdatedAt == 0 {
		return time.Time{}
	}
	return time.Unix(e.UpdatedAt, 0)
}

// Description returns secondary info for display
func (e Entry) Description() string {
	var parts []string
	for _, s := range []string{e.Group, e.Subtitle} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	if t := e.Updated(); !t.IsZero() {
		parts = append(parts, t.UTC().Format("2006-01-02"))
	}
	return strings.Join(parts, " · ")
}
