package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/factory"
	"github.com/mmcdole/vscroll/internal/loader"
	"github.com/mmcdole/vscroll/internal/render"
	"github.com/mmcdole/vscroll/internal/slots"
	"github.com/mmcdole/vscroll/internal/state"
	"github.com/mmcdole/vscroll/internal/viewport"
)

var listIDs atomic.Uint64

// Phase is the coarse lifecycle position of a list
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseInitialLoading
	PhaseLoadingMore
	PhaseRendering
	PhaseErrored
	PhaseLifecycleDone
)

func (p Phase) String() string {
	switch p {
	case PhaseInitialLoading:
		return "initial-loading"
	case PhaseLoadingMore:
		return "loading-more"
	case PhaseRendering:
		return "rendering"
	case PhaseErrored:
		return "errored"
	case PhaseLifecycleDone:
		return "done"
	default:
		return "idle"
	}
}

// Config holds the collaborators and policies of a list. Only Container and
// Renderer are required; a list without Source renders nothing and never
// finishes.
type Config[T any] struct {
	// Data
	Source       domain.DataSource
	Converter    func(payload any) (any, error)
	Decoder      func(data any) ([]T, error)
	Query        map[string]any
	RequestQuery func(s state.Snapshot[T]) map[string]any

	// Policies. Nil fields use the Default* functions.
	ChunkSize                int
	ChunkSizeFunc            func(s state.Snapshot[T]) int
	PreloadAmount            int
	ShouldPerformDataRequest func(s state.Snapshot[T]) bool
	ShouldStopRequestingData func(s state.Snapshot[T]) bool
	ShouldPerformDataRender  func(s state.Snapshot[T]) bool

	// Items
	ItemsFactory    factory.Strategy[T]
	Mapping         factory.Mapping[T]
	ItemsProcessors []factory.Processor

	// Rendering
	Container     domain.Container
	Renderer      domain.Renderer
	BatchSize     int
	FrameInterval time.Duration
	Filter        render.Filter

	// Observation
	Intersector            viewport.Intersector
	Tombstones             domain.Node // Trailing placeholder watched for visibility
	DisableObserver        bool
	VisibilityThreshold    float64
	SeparatorsAdvanceItems bool

	// OnSlots is called whenever the derived slots change
	OnSlots func(slots.Slots)

	Logger *slog.Logger
}

// List drives one infinite list through load, render and observe cycles.
// All methods must be called from the bubbletea Update loop.
type List[T any] struct {
	id     uint64
	cfg    Config[T]
	logger *slog.Logger

	store     *state.Store[T]
	loader    *loader.Loader[T]
	factory   *factory.Factory[T]
	scheduler *render.Scheduler
	observer  *viewport.Observer
	slots     *slots.Controller[T]

	baseCtx context.Context
	ctx     context.Context
	cancel  context.CancelFunc

	started      bool
	forceRender  bool
	doneDeferred bool
	renderCycles int

	// Guards life, which waiters read from other goroutines
	lifeMu sync.Mutex
	life   *lifecycle
}

// lifecycle tracks how one epoch ended: done closes when it finishes, reset
// closes when Reset abandons it first.
type lifecycle struct {
	done  chan struct{}
	reset chan struct{}
}

func newLifecycle() *lifecycle {
	return &lifecycle{done: make(chan struct{}), reset: make(chan struct{})}
}

func (lc *lifecycle) wait(ctx context.Context) error {
	select {
	case <-lc.done:
		return nil
	case <-lc.reset:
		select {
		case <-lc.done:
			return nil
		default:
			return domain.ErrListReset
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// New wires a list. Nothing is requested until Init.
func New[T any](cfg Config[T]) *List[T] {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.PreloadAmount < 0 {
		cfg.PreloadAmount = DefaultPreloadAmount
	}
	if cfg.RequestQuery == nil {
		cfg.RequestQuery = DefaultRequestQuery[T]
	}
	if cfg.ShouldPerformDataRequest == nil {
		cfg.ShouldPerformDataRequest = DefaultShouldPerformDataRequest[T]
	}
	if cfg.ShouldStopRequestingData == nil {
		cfg.ShouldStopRequestingData = DefaultShouldStopRequestingData[T]
	}
	if cfg.ShouldPerformDataRender == nil {
		cfg.ShouldPerformDataRender = DefaultShouldPerformDataRender[T]
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	l := &List[T]{
		id:   listIDs.Add(1),
		cfg:  cfg,
		life: newLifecycle(),
	}
	l.logger = cfg.Logger.With("list", l.id)
	l.baseCtx = context.Background()
	l.ctx, l.cancel = context.WithCancel(l.baseCtx)

	l.store = state.NewStore[T](state.Options{SeparatorsAdvanceItems: cfg.SeparatorsAdvanceItems})
	l.loader = loader.New(l.store, loader.Config[T]{
		ListID:                   l.id,
		Source:                   cfg.Source,
		Converter:                cfg.Converter,
		Decoder:                  cfg.Decoder,
		Query:                    cfg.Query,
		RequestQuery:             cfg.RequestQuery,
		ShouldPerformDataRequest: cfg.ShouldPerformDataRequest,
		ShouldStopRequestingData: cfg.ShouldStopRequestingData,
		Snapshot:                 l.snapshot,
		Logger:                   l.logger,
	})
	l.factory = factory.New(cfg.ItemsFactory, cfg.Mapping, cfg.ItemsProcessors...)
	l.scheduler = render.NewScheduler(l.ctx, render.Config{
		ListID:        l.id,
		Container:     cfg.Container,
		Renderer:      cfg.Renderer,
		BatchSize:     cfg.BatchSize,
		FrameInterval: cfg.FrameInterval,
		Filter:        cfg.Filter,
		OnChunk:       l.onChunk,
		OnComplete:    l.onRenderComplete,
		Logger:        l.logger,
	})
	l.observer = viewport.New(viewport.Config{
		Intersector:   cfg.Intersector,
		BaseThreshold: cfg.VisibilityThreshold,
		Disabled:      cfg.DisableObserver,
	})
	l.slots = slots.NewController(l.store, l.slotContext(), cfg.OnSlots)
	return l
}

// ID identifies this list's messages
func (l *List[T]) ID() uint64 {
	return l.id
}

// Init starts the lifecycle by requesting the first page
func (l *List[T]) Init() tea.Cmd {
	if l.started {
		return nil
	}
	l.started = true
	l.observer.ObserveTombstones(l.cfg.Tombstones, l.onTombstones)
	l.logger.Debug("list started", "epoch", l.store.Epoch())
	return l.loadDataOrPerformRender()
}

// Update routes load and render messages addressed to this list
func (l *List[T]) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case loader.ResultMsg[T]:
		if msg.ListID != l.id {
			return nil
		}
		return l.handleResult(msg)

	case render.PulledMsg, render.FrameMsg, render.TeardownMsg:
		return l.scheduler.Update(msg)
	}
	return nil
}

func (l *List[T]) handleResult(msg loader.ResultMsg[T]) tea.Cmd {
	outcome := l.loader.Apply(msg)
	switch outcome {
	case loader.OutcomeIgnored:
		return nil
	case loader.OutcomeErrored:
		l.forceRender = false
		return nil
	case loader.OutcomeEmptyTerminal:
		return l.onLifecycleDone()
	}

	if l.forceRender {
		l.forceRender = false
		snap := l.snapshot()
		if snap.PendingData() > 0 && snap.RenderPage < snap.LoadPage {
			return l.performRender(snap)
		}
	}
	return l.loadDataOrPerformRender()
}

// loadDataOrPerformRender is the single decision point evaluated after every
// load, visibility change and finished render.
func (l *List[T]) loadDataOrPerformRender() tea.Cmd {
	snap := l.snapshot()
	if snap.IsLifecycleDone {
		return nil
	}

	if cmd := l.loader.Load(l.ctx, snap); cmd != nil {
		return cmd
	}

	if l.shouldRender(snap) {
		return l.performRender(snap)
	}

	if snap.IsRequestsStopped && snap.PendingData() == 0 && !snap.IsLoadingInProgress {
		return l.onLifecycleDone()
	}
	return nil
}

func (l *List[T]) shouldRender(snap state.Snapshot[T]) bool {
	if snap.PendingData() == 0 || snap.RenderPage >= snap.LoadPage {
		return false
	}
	return l.cfg.ShouldPerformDataRender(snap)
}

// performRender runs one render cycle: the next chunk of pending data (all of
// it once requests have stopped) goes through the item factory and the output
// is scheduled as one unit.
func (l *List[T]) performRender(snap state.Snapshot[T]) tea.Cmd {
	pending := snap.PendingData()
	n := min(snap.ChunkSize, pending)
	if snap.IsRequestsStopped {
		n = pending
	}

	start := snap.DataCursor
	items := l.factory.Produce(snap, factory.Context[T]{
		Data:       snap.Data[start : start+n],
		Offset:     start,
		ChunkSize:  snap.ChunkSize,
		RenderPage: snap.RenderPage + 1,
	})

	l.store.AdvanceDataCursor(n)
	l.store.IncrementRenderPage()
	if snap.IsRequestsStopped && n == pending {
		l.store.SetIsLastRender(true)
	}
	l.renderCycles++
	l.logger.Debug("render cycle", "page", snap.RenderPage+1, "records", n, "items", len(items))

	if len(items) == 0 {
		return l.onRenderComplete()
	}
	return l.scheduler.Schedule(items)
}

func (l *List[T]) onChunk(children []domain.MountedChild) tea.Cmd {
	for _, child := range l.store.UpdateMounted(children) {
		l.observer.Observe(child, l.onElementEnters)
	}
	return nil
}

func (l *List[T]) onElementEnters(child domain.MountedChild) tea.Cmd {
	l.store.SetMaxViewedIndex(child)
	return l.loadDataOrPerformRender()
}

func (l *List[T]) onTombstones(inView bool) tea.Cmd {
	l.store.SetIsTombstonesInView(inView)
	if !inView {
		return nil
	}
	return l.loadDataOrPerformRender()
}

func (l *List[T]) onRenderComplete() tea.Cmd {
	if l.doneDeferred {
		return l.onLifecycleDone()
	}
	return l.loadDataOrPerformRender()
}

// onLifecycleDone finalizes the list. While batches are still being mounted
// it is deferred until the scheduler drains.
func (l *List[T]) onLifecycleDone() tea.Cmd {
	snap := l.store.Compile()
	if snap.IsLifecycleDone {
		return nil
	}
	if l.scheduler.Busy() {
		l.doneDeferred = true
		return nil
	}

	l.doneDeferred = false
	l.store.SetIsLifecycleDone(true)
	close(l.current().done)
	l.logger.Info("list lifecycle done",
		"records", len(snap.Data),
		"children", len(snap.ChildList),
		"loadPages", snap.LoadPage,
		"renderCycles", l.renderCycles,
	)
	return nil
}

// State returns the current snapshot, including resolved policy values
func (l *List[T]) State() state.Snapshot[T] {
	return l.snapshot()
}

// Slots returns which UI affordances should be shown
func (l *List[T]) Slots() slots.Slots {
	return l.slots.Current()
}

// Phase derives the lifecycle position from the store and scheduler
func (l *List[T]) Phase() Phase {
	snap := l.store.Compile()
	switch {
	case snap.IsLifecycleDone:
		return PhaseLifecycleDone
	case snap.IsLastErrored:
		return PhaseErrored
	case snap.IsLoadingInProgress && snap.IsInitialLoading:
		return PhaseInitialLoading
	case snap.IsLoadingInProgress:
		return PhaseLoadingMore
	case l.scheduler.Busy():
		return PhaseRendering
	default:
		return PhaseIdle
	}
}

// Done is closed when the lifecycle of the current epoch ends. Safe to call
// from any goroutine.
func (l *List[T]) Done() <-chan struct{} {
	return l.current().done
}

// WaitForLifecycleDone blocks until the current epoch finishes or ctx ends.
// The Update loop must keep running on another goroutine. If the epoch is
// reset first it returns domain.ErrListReset.
func (l *List[T]) WaitForLifecycleDone(ctx context.Context) error {
	return l.current().wait(ctx)
}

func (l *List[T]) current() *lifecycle {
	l.lifeMu.Lock()
	defer l.lifeMu.Unlock()
	return l.life
}

// RenderCycles returns how many render cycles ran in the current epoch
func (l *List[T]) RenderCycles() int {
	return l.renderCycles
}

// Err returns the error of the last failed load
func (l *List[T]) Err() error {
	if !l.started {
		return nil
	}
	if l.loader.Configured() {
		return l.loader.LastErr()
	}
	return domain.ErrNoDataSource
}

// Retry re-attempts a failed load
func (l *List[T]) Retry() tea.Cmd {
	snap := l.snapshot()
	if !snap.IsLastErrored {
		return nil
	}
	l.logger.Info("retrying failed load", "loadPage", snap.LoadPage)
	return l.loader.Retry(l.ctx, snap)
}

// RenderNext forces one more render cycle. With the observer disabled this is
// the only way past the first chunk. If nothing is pending, the next page is
// loaded and rendered as soon as it arrives.
func (l *List[T]) RenderNext() tea.Cmd {
	snap := l.snapshot()
	if snap.IsLifecycleDone || snap.IsLoadingInProgress {
		return nil
	}
	if snap.PendingData() > 0 && snap.RenderPage < snap.LoadPage {
		return l.performRender(snap)
	}
	if snap.IsRequestsStopped {
		return l.loadDataOrPerformRender()
	}
	l.forceRender = true
	return l.loader.Retry(l.ctx, snap)
}

// Reset cancels in-flight work, tears down every mounted node and returns the
// list to its initial state under a new epoch. The list stays idle until Init.
func (l *List[T]) Reset() tea.Cmd {
	l.cancel()
	l.ctx, l.cancel = context.WithCancel(l.baseCtx)

	l.observer.Reset()
	l.store.Reset()
	cmd := l.scheduler.Reset(l.ctx, l.store.Epoch())

	l.started = false
	l.forceRender = false
	l.doneDeferred = false
	l.renderCycles = 0
	l.lifeMu.Lock()
	close(l.life.reset)
	l.life = newLifecycle()
	l.lifeMu.Unlock()

	l.logger.Debug("list reset", "epoch", l.store.Epoch())
	return cmd
}

// Reload resets the list and starts a new lifecycle
func (l *List[T]) Reload() tea.Cmd {
	return tea.Batch(l.Reset(), l.Init())
}

// SetQuery replaces the static query parameters and reloads
func (l *List[T]) SetQuery(query map[string]any) tea.Cmd {
	l.loader.SetQuery(query)
	return l.Reload()
}

// SetFilter replaces the descriptor filter and reloads
func (l *List[T]) SetFilter(f render.Filter) tea.Cmd {
	l.scheduler.SetFilter(f)
	return l.Reload()
}

// Close cancels in-flight work and detaches observers
func (l *List[T]) Close() {
	l.cancel()
	l.observer.Reset()
	l.slots.Close()
}

func (l *List[T]) snapshot() state.Snapshot[T] {
	snap := l.store.Compile()
	snap.PreloadAmount = l.cfg.PreloadAmount
	snap.ChunkSize = l.cfg.ChunkSize
	if l.cfg.ChunkSizeFunc != nil {
		if n := l.cfg.ChunkSizeFunc(snap); n > 0 {
			snap.ChunkSize = n
		}
	}
	return snap
}

func (l *List[T]) slotContext() slots.Context {
	return slots.Context{
		DataSourceConfigured: l.loader.Configured(),
		ObserverDisabled:     l.observer.Disabled(),
	}
}
