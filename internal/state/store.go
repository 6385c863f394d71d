package state

import (
	"github.com/mmcdole/vscroll/internal/domain"
)

// Snapshot is a read-only view of the list state at one point in time.
// Slices share backing arrays with the store and are clipped, so appending to
// them never affects the store; elements must be treated as read-only.
type Snapshot[T any] struct {
	Data              []T
	Items             []domain.MountedItem
	ChildList         []domain.MountedChild
	LastLoadedData    []T
	LastLoadedRawData any

	LoadPage   int
	RenderPage int
	DataCursor int // Raw items already handed to the item factory

	MaxViewedItem     *int
	MaxViewedChild    *int
	RemainingItems    *int
	RemainingChildren *int

	IsInitialLoading    bool
	IsInitialRender     bool
	IsLoadingInProgress bool
	IsLastEmpty         bool
	IsLastErrored       bool
	IsTombstonesInView  bool
	IsRequestsStopped   bool
	IsLifecycleDone     bool
	IsLastRender        bool

	Version uint64
	Epoch   uint64

	// Resolved policy values, filled in by the engine before policies run
	ChunkSize     int
	PreloadAmount int
}

// PendingData returns how many loaded raw items have not been rendered yet
func (s Snapshot[T]) PendingData() int {
	n := len(s.Data) - s.DataCursor
	if n < 0 {
		return 0
	}
	return n
}

// Options configures store behavior
type Options struct {
	// SeparatorsAdvanceItems makes a visible separator advance MaxViewedItem to
	// the nearest preceding content item. By default separators only advance
	// MaxViewedChild.
	SeparatorsAdvanceItems bool
}

// Store owns the mutable list record. It is not safe for concurrent use; the
// engine mutates it from the bubbletea Update loop only.
type Store[T any] struct {
	opts  Options
	state Snapshot[T]

	subscribers map[int]func(Snapshot[T])
	nextSubID   int
}

// NewStore creates a store in its initial state
func NewStore[T any](opts Options) *Store[T] {
	s := &Store[T]{
		opts:        opts,
		subscribers: make(map[int]func(Snapshot[T])),
	}
	s.state = initial[T](0)
	return s
}

func initial[T any](epoch uint64) Snapshot[T] {
	return Snapshot[T]{
		Data:             []T{},
		Items:            []domain.MountedItem{},
		ChildList:        []domain.MountedChild{},
		LastLoadedData:   []T{},
		IsInitialLoading: true,
		IsInitialRender:  true,
		Epoch:            epoch,
	}
}

// Subscribe registers fn to receive a snapshot after every mutation.
// The returned function removes the subscription.
func (s *Store[T]) Subscribe(fn func(Snapshot[T])) func() {
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	return func() {
		delete(s.subscribers, id)
	}
}

// Compile returns the current snapshot
func (s *Store[T]) Compile() Snapshot[T] {
	snap := s.state
	snap.Data = clip(s.state.Data)
	snap.Items = clip(s.state.Items)
	snap.ChildList = clip(s.state.ChildList)
	snap.LastLoadedData = clip(s.state.LastLoadedData)
	snap.MaxViewedItem = cloneInt(s.state.MaxViewedItem)
	snap.MaxViewedChild = cloneInt(s.state.MaxViewedChild)
	snap.RemainingItems = cloneInt(s.state.RemainingItems)
	snap.RemainingChildren = cloneInt(s.state.RemainingChildren)
	return snap
}

// Epoch returns the current epoch without compiling a snapshot
func (s *Store[T]) Epoch() uint64 {
	return s.state.Epoch
}

// UpdateData appends a freshly loaded page
func (s *Store[T]) UpdateData(raw any, page []T, isInitial bool) {
	s.state.Data = append(s.state.Data, page...)
	s.state.LastLoadedData = append([]T(nil), page...)
	s.state.LastLoadedRawData = raw
	s.state.IsLastEmpty = false
	if isInitial {
		s.state.IsInitialLoading = false
	}
	s.changed()
}

// UpdateMounted appends rendered children, assigning their child and item
// indexes. It returns the indexed children.
func (s *Store[T]) UpdateMounted(children []domain.MountedChild) []domain.MountedChild {
	if len(children) == 0 {
		return nil
	}

	out := make([]domain.MountedChild, len(children))
	for i, child := range children {
		child.ChildIndex = len(s.state.ChildList)
		child.ItemIndex = -1
		if child.IsContent() {
			child.ItemIndex = len(s.state.Items)
			s.state.Items = append(s.state.Items, domain.MountedItem{MountedChild: child})
		}
		s.state.ChildList = append(s.state.ChildList, child)
		out[i] = child
	}

	s.recomputeRemaining()
	s.changed()
	return out
}

// SetMaxViewedIndex records that child became visible. Indexes only advance.
func (s *Store[T]) SetMaxViewedIndex(child domain.MountedChild) {
	changed := false

	if advance(&s.state.MaxViewedChild, child.ChildIndex) {
		changed = true
	}

	itemIndex := -1
	switch {
	case child.IsContent():
		itemIndex = child.ItemIndex
	case s.opts.SeparatorsAdvanceItems:
		itemIndex = s.precedingItemIndex(child.ChildIndex)
	}
	if itemIndex >= 0 && advance(&s.state.MaxViewedItem, itemIndex) {
		changed = true
	}

	if !changed {
		return
	}
	s.recomputeRemaining()
	s.changed()
}

// IncrementLoadPage advances the load counter
func (s *Store[T]) IncrementLoadPage() {
	s.state.LoadPage++
	s.changed()
}

// IncrementRenderPage advances the render counter, never past LoadPage
func (s *Store[T]) IncrementRenderPage() {
	if s.state.RenderPage >= s.state.LoadPage {
		return
	}
	s.state.RenderPage++
	s.state.IsInitialRender = false
	s.changed()
}

// AdvanceDataCursor marks n more raw items as handed to the item factory
func (s *Store[T]) AdvanceDataCursor(n int) {
	if n <= 0 {
		return
	}
	s.state.DataCursor = min(s.state.DataCursor+n, len(s.state.Data))
	s.changed()
}

// SetIsLoadingInProgress updates the in-flight load flag
func (s *Store[T]) SetIsLoadingInProgress(v bool) {
	setFlag(s, &s.state.IsLoadingInProgress, v)
}

// SetIsLastEmpty updates the empty-last-page flag
func (s *Store[T]) SetIsLastEmpty(v bool) {
	setFlag(s, &s.state.IsLastEmpty, v)
}

// SetIsLastErrored updates the failed-last-load flag
func (s *Store[T]) SetIsLastErrored(v bool) {
	setFlag(s, &s.state.IsLastErrored, v)
}

// SetIsTombstonesInView updates the tombstone visibility flag
func (s *Store[T]) SetIsTombstonesInView(v bool) {
	setFlag(s, &s.state.IsTombstonesInView, v)
}

// SetIsLastRender updates the final-render flag
func (s *Store[T]) SetIsLastRender(v bool) {
	setFlag(s, &s.state.IsLastRender, v)
}

// SetIsRequestsStopped updates the stop flag. Once true it stays true until Reset.
func (s *Store[T]) SetIsRequestsStopped(v bool) {
	if s.state.IsRequestsStopped {
		return
	}
	setFlag(s, &s.state.IsRequestsStopped, v)
}

// SetIsLifecycleDone updates the terminal flag. Done implies requests stopped.
func (s *Store[T]) SetIsLifecycleDone(v bool) {
	if v && !s.state.IsRequestsStopped {
		s.state.IsRequestsStopped = true
	}
	setFlag(s, &s.state.IsLifecycleDone, v)
}

// Reset restores the initial record and advances the epoch
func (s *Store[T]) Reset() {
	s.state = initial[T](s.state.Epoch + 1)
	s.changed()
}

func (s *Store[T]) changed() {
	s.state.Version++
	if len(s.subscribers) == 0 {
		return
	}
	snap := s.Compile()
	for _, fn := range s.subscribers {
		fn(snap)
	}
}

func (s *Store[T]) recomputeRemaining() {
	s.state.RemainingChildren = remaining(len(s.state.ChildList), s.state.MaxViewedChild)
	s.state.RemainingItems = remaining(len(s.state.Items), s.state.MaxViewedItem)
}

func (s *Store[T]) precedingItemIndex(childIndex int) int {
	if childIndex >= len(s.state.ChildList) {
		childIndex = len(s.state.ChildList) - 1
	}
	for i := childIndex; i >= 0; i-- {
		if c := s.state.ChildList[i]; c.IsContent() {
			return c.ItemIndex
		}
	}
	return -1
}

func setFlag[T any](s *Store[T], field *bool, v bool) {
	if *field == v {
		return
	}
	*field = v
	s.changed()
}

func advance(field **int, v int) bool {
	if v < 0 {
		return false
	}
	if *field != nil && **field >= v {
		return false
	}
	*field = &v
	return true
}

func remaining(length int, maxViewed *int) *int {
	if maxViewed == nil {
		return nil
	}
	n := max(length-(*maxViewed+1), 0)
	return &n
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func clip[S ~[]E, E any](s S) S {
	return s[:len(s):len(s)]
}
