package slots

import (
	"github.com/mmcdole/vscroll/internal/state"
)

// Slots lists which UI affordances should currently be visible
type Slots struct {
	Loader     bool
	Tombstones bool
	Empty      bool
	Done       bool
	Retry      bool
	RenderNext bool
}

// Terminal reports whether the slots are in a lifecycle-end configuration
func (s Slots) Terminal() bool {
	return s.Done || s.Retry
}

// Context holds inputs that do not live in the store
type Context struct {
	DataSourceConfigured bool
	ObserverDisabled     bool
}

// Derive maps a snapshot to slot visibility. It is a pure function.
// Empty and Done wait for IsLifecycleDone rather than IsRequestsStopped, so
// neither shows while the final batch is still being mounted.
func Derive[T any](snap state.Snapshot[T], ctx Context) Slots {
	switch {
	case snap.IsLoadingInProgress:
		return Slots{Loader: true, Tombstones: true}

	case snap.IsLastErrored:
		return Slots{Retry: true}

	case snap.IsLifecycleDone && len(snap.Data) == 0:
		return Slots{Empty: true, Done: true}

	case snap.IsLifecycleDone:
		return Slots{Done: true}
	}

	canContinue := !snap.IsRequestsStopped || snap.PendingData() > 0
	return Slots{
		RenderNext: canContinue && ctx.DataSourceConfigured && ctx.ObserverDisabled,
	}
}

// Controller recomputes slots on every store mutation and reports changes
type Controller[T any] struct {
	ctx      Context
	current  Slots
	onChange func(Slots)
	unsub    func()
}

// NewController subscribes to store. onChange may be nil.
func NewController[T any](store *state.Store[T], ctx Context, onChange func(Slots)) *Controller[T] {
	c := &Controller[T]{ctx: ctx, onChange: onChange}
	c.current = Derive(store.Compile(), ctx)
	c.unsub = store.Subscribe(c.observe)
	return c
}

// Current returns the latest slots
func (c *Controller[T]) Current() Slots {
	return c.current
}

// Close stops listening to the store
func (c *Controller[T]) Close() {
	if c.unsub != nil {
		c.unsub()
		c.unsub = nil
	}
}

func (c *Controller[T]) observe(snap state.Snapshot[T]) {
	next := Derive(snap, c.ctx)
	if next == c.current {
		return
	}
	c.current = next
	if c.onChange != nil {
		c.onChange(next)
	}
}
