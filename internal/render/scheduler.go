package render

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/vscroll/internal/domain"
)

const (
	defaultBatchSize       = 10
	defaultTeardownWorkers = 4
)

// PulledMsg delivers one batch pulled from a job's cursor
type PulledMsg struct {
	ListID    uint64
	Epoch     uint64
	JobID     uint64
	Items     []domain.ComponentItem
	Consumed  int  // Cursor steps taken, including dropped descriptors
	Exhausted bool // Cursor has no more descriptors
	Err       error
}

// FrameMsg marks a frame boundary at which the head batch is written
type FrameMsg struct {
	ListID uint64
	Epoch  uint64
}

// TeardownMsg reports finished node destruction
type TeardownMsg struct {
	ListID uint64
	Count  int
}

// Config wires the scheduler to its render target and hooks
type Config struct {
	ListID          uint64
	Container       domain.Container
	Renderer        domain.Renderer
	BatchSize       int
	FrameInterval   time.Duration // Zero writes on the next loop turn
	Filter          Filter
	TeardownWorkers int

	// OnChunk receives the rendered children of every flushed batch, in order
	OnChunk func(children []domain.MountedChild) tea.Cmd

	// OnComplete fires when a scheduled job is exhausted and fully flushed
	OnComplete func() tea.Cmd

	Logger *slog.Logger
}

type job struct {
	id        uint64
	cursor    Cursor
	total     int
	consumed  int
	exhausted bool
	pending   int // Queued batches not yet flushed
}

type batch struct {
	job   *job
	items []domain.ComponentItem
}

// Scheduler mounts descriptors into a container in frame-aligned batches.
// Jobs run strictly in the order they were scheduled, and batches are
// appended in the order they were pulled.
type Scheduler struct {
	cfg    Config
	logger *slog.Logger

	ctx   context.Context
	epoch uint64

	jobs         []*job
	queue        []batch
	pulling      bool
	framePending bool
	nextJobID    uint64

	// Nodes this scheduler created that have not been torn down yet
	cache map[domain.Node]struct{}
}

// NewScheduler creates a scheduler. ctx is the cancellation group of the
// first epoch.
func NewScheduler(ctx context.Context, cfg Config) *Scheduler {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.TeardownWorkers <= 0 {
		cfg.TeardownWorkers = defaultTeardownWorkers
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		logger: cfg.Logger,
		ctx:    ctx,
		cache:  make(map[domain.Node]struct{}),
	}
}

// SetFilter replaces the descriptor filter for jobs scheduled afterwards
func (s *Scheduler) SetFilter(f Filter) {
	s.cfg.Filter = f
}

// Busy reports whether any job or batch is still in flight
func (s *Scheduler) Busy() bool {
	return len(s.jobs) > 0 || len(s.queue) > 0
}

// Schedule enqueues descriptors for mounting
func (s *Scheduler) Schedule(items []domain.ComponentItem) tea.Cmd {
	return s.ScheduleCursor(NewSliceCursor(items))
}

// ScheduleCursor enqueues a cursor for mounting. Filters see the job size
// when the cursor implements Sized, and -1 otherwise.
func (s *Scheduler) ScheduleCursor(cursor Cursor) tea.Cmd {
	total := -1
	if sized, ok := cursor.(Sized); ok {
		total = sized.Len()
	}
	s.nextJobID++
	j := &job{id: s.nextJobID, cursor: cursor, total: total}
	s.jobs = append(s.jobs, j)
	if len(s.jobs) == 1 {
		return s.pull(j)
	}
	return nil
}

// Reset drops all pending work, switches to a new epoch and tears down every
// mounted node. In-flight teardown workers are allowed to finish.
func (s *Scheduler) Reset(ctx context.Context, epoch uint64) tea.Cmd {
	s.ctx = ctx
	s.epoch = epoch
	s.jobs = nil
	s.queue = nil
	s.pulling = false
	s.framePending = false
	s.cfg.Container.Clear()
	return s.sweep()
}

// Update handles scheduler messages; other messages are ignored
func (s *Scheduler) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case PulledMsg:
		if msg.ListID != s.cfg.ListID || msg.Epoch != s.epoch {
			return nil
		}
		return s.handlePulled(msg)

	case FrameMsg:
		if msg.ListID != s.cfg.ListID || msg.Epoch != s.epoch {
			return nil
		}
		s.framePending = false
		return s.flush()

	case TeardownMsg:
		if msg.ListID == s.cfg.ListID {
			s.logger.Debug("nodes torn down", "count", msg.Count)
		}
	}
	return nil
}

func (s *Scheduler) handlePulled(msg PulledMsg) tea.Cmd {
	if len(s.jobs) == 0 || s.jobs[0].id != msg.JobID {
		return nil
	}
	j := s.jobs[0]
	s.pulling = false

	if msg.Err != nil {
		// Only cancellation aborts a pull; the job is abandoned.
		s.jobs = s.jobs[1:]
		return s.startNext()
	}

	j.consumed += msg.Consumed
	if len(msg.Items) > 0 {
		s.queue = append(s.queue, batch{job: j, items: msg.Items})
		j.pending++
	}

	var cmds []tea.Cmd
	if msg.Exhausted {
		j.exhausted = true
		if j.pending == 0 {
			cmds = append(cmds, s.finishJob(j))
		}
	} else {
		cmds = append(cmds, s.pull(j))
	}
	cmds = append(cmds, s.requestFrame())
	return tea.Batch(cmds...)
}

// pull reads the next batch from j's cursor off the Update loop
func (s *Scheduler) pull(j *job) tea.Cmd {
	if s.pulling {
		return nil
	}
	s.pulling = true

	ctx := s.ctx
	epoch := s.epoch
	listID := s.cfg.ListID
	size := s.cfg.BatchSize
	filter := s.cfg.Filter
	logger := s.logger
	start := j.consumed

	return func() tea.Msg {
		msg := PulledMsg{ListID: listID, Epoch: epoch, JobID: j.id}
		for len(msg.Items) < size {
			if err := ctx.Err(); err != nil {
				msg.Err = err
				return msg
			}

			raw, ok := j.cursor.Next()
			if !ok {
				msg.Exhausted = true
				break
			}
			index := start + msg.Consumed
			msg.Consumed++

			item, err := resolve(ctx, raw)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					msg.Err = err
					return msg
				}
				logger.Warn("skipping descriptor", "key", raw.Key, "index", index, "error", err)
				continue
			}

			if filter != nil {
				keep, err := filter(ctx, item, FilterMeta{Index: index, Total: j.total, Epoch: epoch})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						msg.Err = err
						return msg
					}
					logger.Warn("filter failed, skipping descriptor", "key", item.Key, "error", err)
					continue
				}
				if !keep {
					continue
				}
			}

			msg.Items = append(msg.Items, item)
		}
		return msg
	}
}

func (s *Scheduler) requestFrame() tea.Cmd {
	if s.framePending || len(s.queue) == 0 {
		return nil
	}
	s.framePending = true

	msg := FrameMsg{ListID: s.cfg.ListID, Epoch: s.epoch}
	if s.cfg.FrameInterval <= 0 {
		return func() tea.Msg { return msg }
	}
	return tea.Tick(s.cfg.FrameInterval, func(time.Time) tea.Msg { return msg })
}

// flush writes the head batch into the container in a single append
func (s *Scheduler) flush() tea.Cmd {
	if len(s.queue) == 0 {
		return nil
	}
	b := s.queue[0]
	s.queue = s.queue[1:]
	b.job.pending--

	children := make([]domain.MountedChild, 0, len(b.items))
	nodes := make([]domain.Node, 0, len(b.items))
	for _, item := range b.items {
		node, err := s.cfg.Renderer.Render(item)
		if err != nil {
			s.logger.Warn("render failed, skipping descriptor", "key", item.Key, "error", err)
			continue
		}
		if node == nil {
			continue
		}
		nodes = append(nodes, node)
		children = append(children, domain.MountedChild{ComponentItem: item, Node: node})
	}

	if len(nodes) > 0 {
		s.cfg.Container.Append(nodes)
		for _, n := range nodes {
			s.cache[n] = struct{}{}
		}
	}

	var cmds []tea.Cmd
	if s.cfg.OnChunk != nil && len(children) > 0 {
		cmds = append(cmds, s.cfg.OnChunk(children))
	}
	cmds = append(cmds, s.sweep())

	if b.job.exhausted && b.job.pending == 0 {
		cmds = append(cmds, s.finishJob(b.job))
	}
	cmds = append(cmds, s.requestFrame())
	return tea.Batch(cmds...)
}

func (s *Scheduler) finishJob(j *job) tea.Cmd {
	if len(s.jobs) > 0 && s.jobs[0] == j {
		s.jobs = s.jobs[1:]
	}

	var cmds []tea.Cmd
	if s.cfg.OnComplete != nil {
		cmds = append(cmds, s.cfg.OnComplete())
	}
	cmds = append(cmds, s.startNext())
	return tea.Batch(cmds...)
}

func (s *Scheduler) startNext() tea.Cmd {
	if len(s.jobs) == 0 {
		return nil
	}
	return s.pull(s.jobs[0])
}
