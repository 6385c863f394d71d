package domain

import (
	"context"
	"time"
)

// Node is an opaque handle to one rendered element.
// Destroy releases the element; it must tolerate being called once only.
type Node interface {
	Destroy()
}

// Parent is implemented by nodes that host dynamically rendered descendants.
// Teardown destroys every child before its parent.
type Parent interface {
	Node
	ChildNodes() []Node
}

// Container is the render target the scheduler appends into.
type Container interface {
	// Append attaches nodes at the end in a single write
	Append(nodes []Node)

	// Contains reports whether the node is still attached
	Contains(node Node) bool

	// Clear detaches every node and returns them
	Clear() []Node
}

// Renderer converts one descriptor into a concrete node.
type Renderer interface {
	Render(item ComponentItem) (Node, error)
}

// RendererFunc adapts a function to the Renderer interface
type RendererFunc func(item ComponentItem) (Node, error)

// Render calls f(item)
func (f RendererFunc) Render(item ComponentItem) (Node, error) {
	return f(item)
}

// DataSource fetches one page of raw payload for the given query.
// A nil payload with a nil error is treated as an empty page.
type DataSource interface {
	FetchPage(ctx context.Context, query map[string]any) (any, error)
}

// DataSourceFunc adapts a function to the DataSource interface
type DataSourceFunc func(ctx context.Context, query map[string]any) (any, error)

// FetchPage calls f(ctx, query)
func (f DataSourceFunc) FetchPage(ctx context.Context, query map[string]any) (any, error) {
	return f(ctx, query)
}

// Invalidator is implemented by data sources that keep pages between
// requests. Invalidate forgets them so the next request reaches the origin.
type Invalidator interface {
	Invalidate()
}

// PageStore caches raw page payloads keyed by an opaque string.
type PageStore interface {
	GetPage(key string, maxAge time.Duration) ([]byte, bool)
	SavePage(key string, payload []byte) error
	Invalidate(prefix string)
	Close() error
}
