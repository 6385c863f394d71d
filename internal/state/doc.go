// Package state holds the single mutable record behind one virtualized list.
//
// # Overview
//
// Store is the sole source of truth for progress counters and collections.
// Every other component (loader, render scheduler, viewport observer, slot
// controller) reads it through Compile and writes it through a small set of
// mutators:
//
//	Loader:             Scheduler:            Observer:
//	UpdateData          UpdateMounted         SetMaxViewedIndex
//	IncrementLoadPage   IncrementRenderPage   SetIsTombstonesInView
//	SetIsLastErrored    AdvanceDataCursor
//
// # Concurrency Model
//
// The store is owned by the bubbletea Update loop. All mutators run to
// completion before the loop yields, so there is no locking: concurrency in
// the engine means interleaved asynchronous continuations, never simultaneous
// mutation.
//
// # Subscriptions
//
// Mutators notify subscribers synchronously with the freshly compiled
// snapshot. Each notification carries a Version that increases by one per
// mutation, so subscribers can cheaply skip snapshots they have already seen.
//
// # Monotonicity
//
//   - LoadPage and RenderPage never decrease, and RenderPage never exceeds LoadPage
//   - MaxViewedItem and MaxViewedChild only advance while defined
//   - IsRequestsStopped stays true until Reset
//
// Reset returns the record to its initial value (new slices, zero counters)
// and advances Epoch so results from the previous query can be recognized.
package state
