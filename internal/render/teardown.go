package render

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/sourcegraph/conc/pool"
)

// sweep tears down cached nodes the container no longer holds. Nodes leave the
// side table before destruction, so each one is destroyed exactly once.
func (s *Scheduler) sweep() tea.Cmd {
	var stale []domain.Node
	for n := range s.cache {
		if !s.cfg.Container.Contains(n) {
			stale = append(stale, n)
			delete(s.cache, n)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	listID := s.cfg.ListID
	workers := s.cfg.TeardownWorkers
	return func() tea.Msg {
		p := pool.New().WithMaxGoroutines(workers)
		for _, n := range stale {
			p.Go(func() {
				destroyTree(n)
			})
		}
		p.Wait()
		return TeardownMsg{ListID: listID, Count: len(stale)}
	}
}

// destroyTree destroys every dynamically rendered descendant before the node
func destroyTree(n domain.Node) {
	if p, ok := n.(domain.Parent); ok {
		for _, child := range p.ChildNodes() {
			destroyTree(child)
		}
	}
	n.Destroy()
}
