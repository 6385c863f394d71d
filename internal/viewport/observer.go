package viewport

import (
	"math/rand/v2"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/vscroll/internal/domain"
)

const defaultJitter = 0.05

// Intersector is the low-level visibility primitive. fn is called with
// visible=true when at least threshold of the node becomes visible and with
// visible=false when it drops below again.
type Intersector interface {
	Watch(node domain.Node, threshold float64, fn func(visible bool) tea.Cmd)
	Unwatch(node domain.Node)
	Disconnect()
}

// Config configures an Observer
type Config struct {
	Intersector   Intersector
	BaseThreshold float64 // Minimum visible fraction before a node counts as seen
	Jitter        float64 // Upper bound of the random threshold offset per node
	Disabled      bool
	Rand          *rand.Rand // Nil uses the global source
}

// Observer reports list elements entering the viewport
type Observer struct {
	cfg        Config
	watched    map[domain.Node]struct{}
	tombstones domain.Node
}

// New creates an observer
func New(cfg Config) *Observer {
	if cfg.Jitter == 0 {
		cfg.Jitter = defaultJitter
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	return &Observer{cfg: cfg, watched: make(map[domain.Node]struct{})}
}

// Disabled reports whether observation is turned off
func (o *Observer) Disabled() bool {
	return o.cfg.Disabled || o.cfg.Intersector == nil
}

// Observe watches a mounted child and calls onVisible whenever it enters the
// viewport. Thresholds are jittered per node so siblings do not all fire on
// the same frame.
func (o *Observer) Observe(child domain.MountedChild, onVisible func(domain.MountedChild) tea.Cmd) {
	if o.Disabled() || child.Node == nil {
		return
	}
	o.watched[child.Node] = struct{}{}
	o.cfg.Intersector.Watch(child.Node, o.threshold(), func(visible bool) tea.Cmd {
		if !visible {
			return nil
		}
		return onVisible(child)
	})
}

// ObserveTombstones watches the trailing placeholder area. onChange reports
// both entering and leaving.
func (o *Observer) ObserveTombstones(node domain.Node, onChange func(inView bool) tea.Cmd) {
	if o.Disabled() || node == nil {
		return
	}
	if o.tombstones != nil {
		o.cfg.Intersector.Unwatch(o.tombstones)
	}
	o.tombstones = node
	o.cfg.Intersector.Watch(node, o.cfg.BaseThreshold, onChange)
}

// Unobserve stops watching node
func (o *Observer) Unobserve(node domain.Node) {
	if _, ok := o.watched[node]; !ok {
		return
	}
	delete(o.watched, node)
	o.cfg.Intersector.Unwatch(node)
}

// Reset detaches every observation. Calling it repeatedly is harmless.
func (o *Observer) Reset() {
	if o.Disabled() {
		return
	}
	for node := range o.watched {
		o.cfg.Intersector.Unwatch(node)
	}
	clear(o.watched)
	if o.tombstones != nil {
		o.cfg.Intersector.Unwatch(o.tombstones)
		o.tombstones = nil
	}
}

// Watching returns how many elements are observed
func (o *Observer) Watching() int {
	return len(o.watched)
}

func (o *Observer) threshold() float64 {
	r := rand.Float64
	if o.cfg.Rand != nil {
		r = o.cfg.Rand.Float64
	}
	return min(o.cfg.BaseThreshold+r()*o.cfg.Jitter, 1)
}
