package tui

import (
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/vscroll/internal/domain"
)

// Block is a mounted list element: one content row (plus nested child rows)
// or a group separator.
type Block struct {
	Key       string
	Kind      string
	Separator bool
	Title     string
	Detail    string
	Matches   []int // Rune positions in Title matched by the active filter
	Children  []*Block

	destroyed atomic.Bool
}

// Destroy marks the block released; it is safe from any goroutine
func (b *Block) Destroy() {
	b.destroyed.Store(true)
}

// Destroyed reports whether Destroy has been called
func (b *Block) Destroyed() bool {
	return b.destroyed.Load()
}

// ChildNodes implements domain.Parent
func (b *Block) ChildNodes() []domain.Node {
	if len(b.Children) == 0 {
		return nil
	}
	nodes := make([]domain.Node, len(b.Children))
	for i, c := range b.Children {
		nodes[i] = c
	}
	return nodes
}

// Height is the number of terminal rows the block occupies
func (b *Block) Height() int {
	h := 1
	for _, c := range b.Children {
		h += c.Height()
	}
	return h
}

// tombstoneNode is the trailing placeholder area. It is never attached to the
// canvas block list and is never destroyed by teardown.
type tombstoneNode struct{}

func (tombstoneNode) Destroy() {}

type watch struct {
	threshold float64
	fn        func(visible bool) tea.Cmd
	visible   bool
}

// Canvas is the terminal render target of a list. It implements
// domain.Container for the render scheduler and viewport.Intersector for the
// visibility observer; visibility is derived from the scroll window set by
// SetViewport and is evaluated in Layout.
type Canvas struct {
	blocks   []*Block
	attached map[*Block]struct{}
	watches  map[domain.Node]*watch

	tombstones     *tombstoneNode
	tombstoneRows  int
	showTombstones bool

	offset int
	height int
}

// NewCanvas creates an empty canvas whose placeholder area is tombstoneRows tall
func NewCanvas(tombstoneRows int) *Canvas {
	return &Canvas{
		attached:      make(map[*Block]struct{}),
		watches:       make(map[domain.Node]*watch),
		tombstones:    &tombstoneNode{},
		tombstoneRows: max(tombstoneRows, 0),
	}
}

// Append implements domain.Container. Nodes that are not blocks are ignored.
func (c *Canvas) Append(nodes []domain.Node) {
	for _, n := range nodes {
		b, ok := n.(*Block)
		if !ok || b == nil {
			continue
		}
		c.blocks = append(c.blocks, b)
		c.attached[b] = struct{}{}
	}
}

// Contains implements domain.Container
func (c *Canvas) Contains(node domain.Node) bool {
	b, ok := node.(*Block)
	if !ok {
		return false
	}
	_, ok = c.attached[b]
	return ok
}

// Clear implements domain.Container
func (c *Canvas) Clear() []domain.Node {
	nodes := make([]domain.Node, len(c.blocks))
	for i, b := range c.blocks {
		nodes[i] = b
	}
	c.blocks = nil
	clear(c.attached)
	return nodes
}

// Watch implements viewport.Intersector
func (c *Canvas) Watch(node domain.Node, threshold float64, fn func(visible bool) tea.Cmd) {
	c.watches[node] = &watch{threshold: threshold, fn: fn}
}

// Unwatch implements viewport.Intersector
func (c *Canvas) Unwatch(node domain.Node) {
	delete(c.watches, node)
}

// Disconnect implements viewport.Intersector
func (c *Canvas) Disconnect() {
	clear(c.watches)
}

// Watching returns how many nodes are watched
func (c *Canvas) Watching() int {
	return len(c.watches)
}

// Blocks returns the attached blocks in mount order
func (c *Canvas) Blocks() []*Block {
	return c.blocks
}

// Tombstones returns the placeholder node to hand to the list
func (c *Canvas) Tombstones() domain.Node {
	return c.tombstones
}

// SetTombstones shows or hides the placeholder rows
func (c *Canvas) SetTombstones(show bool) {
	c.showTombstones = show && c.tombstoneRows > 0
}

// TombstoneRows returns how many placeholder rows are currently laid out
func (c *Canvas) TombstoneRows() int {
	if !c.showTombstones {
		return 0
	}
	return c.tombstoneRows
}

// ContentRows returns the rows occupied by attached blocks
func (c *Canvas) ContentRows() int {
	n := 0
	for _, b := range c.blocks {
		n += b.Height()
	}
	return n
}

// Rows returns every laid out row, placeholders included
func (c *Canvas) Rows() int {
	return c.ContentRows() + c.TombstoneRows()
}

// SetViewport sets the visible row window
func (c *Canvas) SetViewport(offset, height int) {
	c.offset = max(offset, 0)
	c.height = max(height, 0)
}

// Layout recomputes the visibility of every watched node against the current
// viewport and invokes the callbacks of nodes whose visibility changed.
func (c *Canvas) Layout() tea.Cmd {
	if len(c.watches) == 0 {
		return nil
	}

	var cmds []tea.Cmd
	row := 0
	// Callbacks may schedule work but never mutate the block list
	for _, b := range c.blocks {
		h := b.Height()
		if w, ok := c.watches[b]; ok {
			cmds = append(cmds, c.evaluate(w, row, h))
		}
		row += h
	}

	if w, ok := c.watches[c.tombstones]; ok {
		h := c.TombstoneRows()
		if h == 0 {
			cmds = append(cmds, c.set(w, false))
		} else {
			cmds = append(cmds, c.evaluate(w, row, h))
		}
	}
	return tea.Batch(cmds...)
}

func (c *Canvas) evaluate(w *watch, start, height int) tea.Cmd {
	return c.set(w, visibleFraction(start, height, c.offset, c.height) >= max(w.threshold, minVisibleFraction))
}

func (c *Canvas) set(w *watch, visible bool) tea.Cmd {
	if w.visible == visible {
		return nil
	}
	w.visible = visible
	return w.fn(visible)
}

// minVisibleFraction keeps a zero threshold from counting off-screen rows
const minVisibleFraction = 1e-9

// visibleFraction returns the share of [start, start+height) inside the
// window [offset, offset+window).
func visibleFraction(start, height, offset, window int) float64 {
	if height <= 0 || window <= 0 {
		return 0
	}
	top := max(start, offset)
	bottom := min(start+height, offset+window)
	if bottom <= top {
		return 0
	}
	return float64(bottom-top) / float64(height)
}
