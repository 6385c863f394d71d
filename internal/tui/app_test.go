package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/vscroll/internal/adapter"
	"github.com/mmcdole/vscroll/internal/adapter/source"
	"github.com/mmcdole/vscroll/internal/adapter/source/fixture"
	"github.com/mmcdole/vscroll/internal/engine"
	"github.com/mmcdole/vscroll/internal/store"
	"github.com/spf13/cast"
)

func records(n int, title func(i int) string, group func(i int) string) []map[string]any {
	out := make([]map[string]any, n)
	for i := range out {
		out[i] = map[string]any{
			"id":    fmt.Sprintf("%02d", i),
			"title": title(i),
			"group": group(i),
		}
	}
	return out
}

func numbered(i int) string { return fmt.Sprintf("Entry %02d", i) }

func noGroup(int) string { return "" }

// driver runs a model synchronously, executing commands in place and
// feeding their messages back through Update.
type driver struct {
	t      *testing.T
	m      tea.Model
	queue  []tea.Msg
	quit   bool
	status []string
}

func newDriver(t *testing.T, opts Options) *driver {
	t.Helper()
	opts.Logger = adapter.NullLogger()
	d := &driver{t: t, m: NewModel(opts)}
	d.exec(d.m.Init())
	d.drain()
	return d
}

func (d *driver) model() Model {
	return d.m.(Model)
}

func (d *driver) exec(cmd tea.Cmd) {
	if cmd == nil {
		return
	}
	switch msg := cmd().(type) {
	case nil, TickMsg, ClearStatusMsg:
	case tea.BatchMsg:
		for _, c := range msg {
			d.exec(c)
		}
	case tea.QuitMsg:
		d.quit = true
	case StatusMsg:
		d.status = append(d.status, msg.Message)
	default:
		d.queue = append(d.queue, msg)
	}
}

func (d *driver) send(msg tea.Msg) {
	var cmd tea.Cmd
	d.m, cmd = d.m.Update(msg)
	d.exec(cmd)
}

func (d *driver) drain() {
	d.t.Helper()
	for steps := 0; len(d.queue) > 0; steps++ {
		if steps > 10000 {
			d.t.Fatal("model did not settle")
		}
		msg := d.queue[0]
		d.queue = d.queue[1:]
		d.send(msg)
	}
}

func (d *driver) press(k string) {
	d.send(keyMsg(k))
	d.drain()
}

func keyMsg(k string) tea.KeyMsg {
	switch k {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
}

func titles(m Model) []string {
	var out []string
	for _, b := range m.Canvas.Blocks() {
		if !b.Separator {
			out = append(out, b.Title)
		}
	}
	return out
}

func TestHeadlessLoadsEverything(t *testing.T) {
	src := fixture.New("test", records(23, numbered, noGroup), fixture.Options{}, adapter.NullLogger())
	d := newDriver(t, Options{Source: src, ChunkSize: 5, Tombstones: 2, Headless: true})

	if !d.quit {
		t.Fatal("headless run did not quit")
	}
	m := d.model()
	if m.Err != nil {
		t.Fatalf("Err = %v", m.Err)
	}
	if !m.List.Slots().Done {
		t.Fatalf("Slots() = %+v, want Done", m.List.Slots())
	}
	got := titles(m)
	if len(got) != 23 {
		t.Fatalf("mounted %d entries, want 23", len(got))
	}
	for i, title := range got {
		if title != numbered(i) {
			t.Fatalf("entry %d = %q, want %q", i, title, numbered(i))
		}
	}
}

func TestHeadlessGroupSeparators(t *testing.T) {
	group := func(i int) string {
		if i < 6 {
			return "alpha"
		}
		return "beta"
	}
	src := fixture.New("test", records(12, numbered, group), fixture.Options{}, adapter.NullLogger())
	d := newDriver(t, Options{Source: src, ChunkSize: 5, Separators: true, Headless: true})

	blocks := d.model().Canvas.Blocks()
	if len(blocks) != 14 {
		t.Fatalf("mounted %d blocks, want 14", len(blocks))
	}
	for _, i := range []int{0, 7} {
		if !blocks[i].Separator {
			t.Fatalf("block %d is not a separator", i)
		}
	}
	if blocks[0].Title != "alpha" || blocks[7].Title != "beta" {
		t.Fatalf("separator titles = %q, %q", blocks[0].Title, blocks[7].Title)
	}
}

func TestHeadlessStopsOnError(t *testing.T) {
	src := fixture.New("test", records(5, numbered, noGroup), fixture.Options{FailFirst: 1}, adapter.NullLogger())
	d := newDriver(t, Options{Source: src, ChunkSize: 5, Headless: true})

	if !d.quit {
		t.Fatal("headless run did not quit")
	}
	if m := d.model(); !errors.Is(m.Err, fixture.ErrInjected) {
		t.Fatalf("Err = %v, want ErrInjected", m.Err)
	}
}

func TestHeadlessWithoutObserverAdvancesManually(t *testing.T) {
	src := fixture.New("test", records(12, numbered, noGroup), fixture.Options{}, adapter.NullLogger())
	d := newDriver(t, Options{Source: src, ChunkSize: 5, DisableObserver: true, Headless: true})

	if !d.quit {
		t.Fatal("headless run did not quit")
	}
	if got := len(titles(d.model())); got != 12 {
		t.Fatalf("mounted %d entries, want 12", got)
	}
}

func TestScrollingLoadsMore(t *testing.T) {
	src := fixture.New("test", records(40, numbered, noGroup), fixture.Options{}, adapter.NullLogger())
	d := newDriver(t, Options{Source: src, ChunkSize: 5, Tombstones: 2})
	d.send(tea.WindowSizeMsg{Width: 60, Height: 8})
	d.drain()

	m := d.model()
	first := len(titles(m))
	if first == 0 || first >= 40 {
		t.Fatalf("mounted %d entries before scrolling, want a partial list", first)
	}
	if m.List.Phase() == engine.PhaseLifecycleDone {
		t.Fatal("list finished without being scrolled")
	}

	for i := 0; i < 20 && !d.model().List.Slots().Done; i++ {
		d.press("G")
	}

	m = d.model()
	if !m.List.Slots().Done {
		t.Fatal("list did not finish after scrolling to the end")
	}
	if got := len(titles(m)); got != 40 {
		t.Fatalf("mounted %d entries, want 40", got)
	}
	d.press("G")
	if !strings.Contains(d.model().View(), "End of list") {
		t.Fatalf("View() missing end marker:\n%s", d.model().View())
	}
}

func TestFilterReloadsWithMatches(t *testing.T) {
	title := func(i int) string {
		if i%2 == 0 {
			return fmt.Sprintf("Alpha %d", i)
		}
		return fmt.Sprintf("Beta %d", i)
	}
	src := fixture.New("test", records(10, title, noGroup), fixture.Options{}, adapter.NullLogger())
	d := newDriver(t, Options{Source: src, ChunkSize: 5})
	d.send(tea.WindowSizeMsg{Width: 60, Height: 20})
	d.drain()

	// Focus and typing return cursor blink commands; they are not run here
	d.m, _ = d.m.Update(keyMsg("/"))
	d.m, _ = d.m.Update(keyMsg("beta"))
	d.press("enter")

	m := d.model()
	if m.FilterQuery != "beta" {
		t.Fatalf("FilterQuery = %q, want beta", m.FilterQuery)
	}
	got := titles(m)
	if len(got) != 5 {
		t.Fatalf("mounted %v, want the 5 Beta entries", got)
	}
	for _, b := range m.Canvas.Blocks() {
		if !strings.HasPrefix(b.Title, "Beta") {
			t.Fatalf("unfiltered entry %q", b.Title)
		}
		if len(b.Matches) != 4 {
			t.Fatalf("Matches(%q) = %v, want 4 runes", b.Title, b.Matches)
		}
	}

	d.press("esc")
	if got := len(titles(d.model())); got != 10 {
		t.Fatalf("mounted %d entries after clearing, want 10", got)
	}
}

func TestRefreshRestartsList(t *testing.T) {
	src := fixture.New("test", records(3, numbered, noGroup), fixture.Options{}, adapter.NullLogger())
	d := newDriver(t, Options{Source: src, ChunkSize: 5})
	d.send(tea.WindowSizeMsg{Width: 60, Height: 20})
	d.drain()

	before := d.model().Canvas.Blocks()
	d.press("R")

	m := d.model()
	if got := len(titles(m)); got != 3 {
		t.Fatalf("mounted %d entries after reload, want 3", got)
	}
	if m.Canvas.Blocks()[0] == before[0] {
		t.Fatal("reload reused a block from the previous epoch")
	}
	if len(d.status) == 0 || d.status[0] != "Reloading..." {
		t.Fatalf("status = %v", d.status)
	}
}

// revisedSource serves one page of entries titled after its current revision
type revisedSource struct {
	revision int
	calls    int
}

func (s *revisedSource) ID() string { return "revised" }

func (s *revisedSource) FetchPage(_ context.Context, query map[string]any) (any, error) {
	s.calls++
	if cast.ToInt(query["offset"]) > 0 {
		return []any{}, nil
	}
	return []any{
		map[string]any{"id": "a", "title": fmt.Sprintf("rev %d", s.revision)},
	}, nil
}

func TestRefreshBypassesPageCache(t *testing.T) {
	pages, err := store.NewPageStore("", "")
	if err != nil {
		t.Fatalf("NewPageStore: %v", err)
	}
	inner := &revisedSource{}
	cached := source.NewCached(inner, pages, time.Hour, adapter.NullLogger())

	d := newDriver(t, Options{Source: cached, ChunkSize: 5})
	d.send(tea.WindowSizeMsg{Width: 60, Height: 20})
	d.drain()
	if got := titles(d.model()); len(got) != 1 || got[0] != "rev 0" {
		t.Fatalf("titles = %v, want [rev 0]", got)
	}

	inner.revision = 1
	calls := inner.calls
	d.press("R")

	if got := titles(d.model()); len(got) != 1 || got[0] != "rev 1" {
		t.Fatalf("titles after reload = %v, want [rev 1]", got)
	}
	if inner.calls == calls {
		t.Fatal("reload was served entirely from the page cache")
	}
}
