package tui

import (
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/vscroll/internal/domain"
	"github.com/mmcdole/vscroll/internal/engine"
	"github.com/mmcdole/vscroll/internal/search"
	"github.com/mmcdole/vscroll/internal/tui/styles"
)

const (
	// Vertical layout: single footer line
	ChromeHeight = 1

	// Size used when no terminal reports one
	headlessWidth  = 80
	headlessHeight = 24
)

// Model is the main Bubble Tea model for the application
type Model struct {
	List     *engine.List[domain.Entry]
	Canvas   *Canvas
	Renderer *BlockRenderer
	Keys     KeyMap

	opts   Options
	logger *slog.Logger

	// Filter
	FilterInput textinput.Model
	Filtering   bool   // Typing into the filter input
	FilterQuery string // Applied query

	// Dimensions
	Width  int
	Height int
	Ready  bool

	// Selection: cursor is a block index, offset the first visible row
	cursor int
	offset int

	// UI state
	ShowHelp     bool
	StatusMsg    string
	StatusIsErr  bool
	SpinnerFrame int

	// Err is the load failure that ended a headless run
	Err error
}

// NewModel creates a new application model
func NewModel(opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	canvas := NewCanvas(opts.Tombstones)
	renderer := &BlockRenderer{ShowDescriptions: opts.ShowDescriptions}
	list := NewEntryList(opts, canvas, renderer)

	input := textinput.New()
	input.Prompt = styles.FilterPromptStyle.Render("/")
	input.Placeholder = "filter"
	input.SetValue(opts.Filter)

	m := Model{
		List:        list,
		Canvas:      canvas,
		Renderer:    renderer,
		Keys:        DefaultKeyMap(),
		opts:        opts,
		logger:      opts.Logger,
		FilterInput: input,
		FilterQuery: opts.Filter,
	}
	if opts.Headless {
		m.Width, m.Height, m.Ready = headlessWidth, headlessHeight, true
	}
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.List.Init()}
	if !m.opts.Headless {
		cmds = append(cmds, TickCmd(spinnerInterval))
	}
	return tea.Batch(cmds...)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.FilterInput.Width = max(msg.Width-4, 0)
		m.ensureVisible()
		cmd := m.sync()
		return m, cmd

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		return m, TickCmd(spinnerInterval)

	case StatusMsg:
		m.StatusMsg = msg.Message
		m.StatusIsErr = msg.IsError
		return m, ClearStatusCmd(statusTimeout)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	var cmds []tea.Cmd
	if m.Filtering {
		var cmd tea.Cmd
		m.FilterInput, cmd = m.FilterInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, m.List.Update(msg), m.sync())
	return m, tea.Batch(cmds...)
}

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.ShowHelp {
		m.ShowHelp = false
		return m, nil
	}

	if m.Filtering {
		return m.handleFilterKey(msg)
	}

	var cmd tea.Cmd
	switch {
	case key.Matches(msg, m.Keys.Quit):
		m.List.Close()
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Help):
		m.ShowHelp = true
		return m, nil

	case key.Matches(msg, m.Keys.Filter):
		m.Filtering = true
		cmd = m.FilterInput.Focus()
		return m, cmd

	case key.Matches(msg, m.Keys.Escape):
		if m.FilterQuery == "" {
			return m, nil
		}
		m.FilterInput.SetValue("")
		cmd = m.applyFilter("")

	case key.Matches(msg, m.Keys.Retry):
		if !m.List.Slots().Retry {
			return m, nil
		}
		cmd = m.List.Retry()

	case key.Matches(msg, m.Keys.RenderNext):
		cmd = m.List.RenderNext()

	case key.Matches(msg, m.Keys.Refresh):
		m.cursor, m.offset = 0, 0
		if inv, ok := m.opts.Source.(domain.Invalidator); ok {
			inv.Invalidate()
		}
		m.logger.Info("reloading list")
		cmd = tea.Batch(m.List.Reload(), StatusCmd("Reloading...", false))

	case key.Matches(msg, m.Keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, m.Keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, m.Keys.HalfUp):
		m.moveCursor(-max(m.listHeight()/2, 1))
	case key.Matches(msg, m.Keys.HalfDown):
		m.moveCursor(max(m.listHeight()/2, 1))
	case key.Matches(msg, m.Keys.PageUp):
		m.moveCursor(-max(m.listHeight(), 1))
	case key.Matches(msg, m.Keys.PageDown):
		m.moveCursor(max(m.listHeight(), 1))
	case key.Matches(msg, m.Keys.Home):
		m.cursor, m.offset = 0, 0
	case key.Matches(msg, m.Keys.End):
		m.cursor = max(len(m.Canvas.Blocks())-1, 0)
		m.offset = m.maxOffset()

	default:
		return m, nil
	}

	cmd = tea.Batch(cmd, m.sync())
	return m, cmd
}

// handleFilterKey routes keys while the filter input has focus
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Apply):
		m.Filtering = false
		m.FilterInput.Blur()
		cmd := tea.Batch(m.applyFilter(m.FilterInput.Value()), m.sync())
		return m, cmd

	case key.Matches(msg, m.Keys.Escape):
		m.Filtering = false
		m.FilterInput.Blur()
		m.FilterInput.SetValue(m.FilterQuery)
		return m, nil
	}

	var cmd tea.Cmd
	m.FilterInput, cmd = m.FilterInput.Update(msg)
	return m, cmd
}

// applyFilter replaces the list filter and restarts the list from the top
func (m *Model) applyFilter(query string) tea.Cmd {
	if query == m.FilterQuery {
		return nil
	}
	m.FilterQuery = query
	m.Renderer.SetQuery(query)
	m.cursor, m.offset = 0, 0
	m.logger.Info("filter applied", "query", query)
	return m.List.SetFilter(search.Filter(query))
}

// sync pushes the scroll window to the canvas and evaluates visibility. It
// runs after every message that may have changed the list or the window.
func (m *Model) sync() tea.Cmd {
	var cmds []tea.Cmd
	s := m.List.Slots()
	m.Canvas.SetTombstones(s.Tombstones)

	if m.opts.Headless {
		m.offset = m.maxOffset()
		switch {
		case s.Done:
			cmds = append(cmds, tea.Quit)
		case s.Retry:
			m.Err = m.List.Err()
			cmds = append(cmds, tea.Quit)
		case s.RenderNext && m.List.Phase() == engine.PhaseIdle:
			cmds = append(cmds, m.List.RenderNext())
		}
	}

	m.clampCursor()
	m.Canvas.SetViewport(m.offset, m.listHeight())
	cmds = append(cmds, m.Canvas.Layout())
	return tea.Batch(cmds...)
}

// listHeight is the number of rows available to the list
func (m Model) listHeight() int {
	h := m.Height - ChromeHeight
	if m.Filtering || m.FilterQuery != "" {
		h--
	}
	return max(h, 0)
}

// totalRows counts every scrollable row: blocks, placeholders and slots
func (m Model) totalRows() int {
	return m.Canvas.Rows() + m.slotRows()
}

func (m Model) maxOffset() int {
	return max(m.totalRows()-m.listHeight(), 0)
}

// moveCursor moves the selection by delta blocks, skipping separators. At
// the last block the window keeps scrolling so trailing rows come into view.
func (m *Model) moveCursor(delta int) {
	blocks := m.Canvas.Blocks()
	if len(blocks) == 0 {
		return
	}

	if delta > 0 && m.cursor >= len(blocks)-1 {
		m.offset = min(m.offset+delta, m.maxOffset())
		return
	}

	next := min(max(m.cursor+delta, 0), len(blocks)-1)
	step := 1
	if delta < 0 {
		step = -1
	}
	for next >= 0 && next < len(blocks) && blocks[next].Separator {
		next += step
	}
	if next < 0 || next >= len(blocks) {
		return
	}
	m.cursor = next
	m.ensureVisible()
}

// ensureVisible scrolls the window so the selected block is fully shown
func (m *Model) ensureVisible() {
	height := m.listHeight()
	if height <= 0 {
		return
	}
	blocks := m.Canvas.Blocks()
	if m.cursor >= len(blocks) {
		return
	}

	start := 0
	for _, b := range blocks[:m.cursor] {
		start += b.Height()
	}
	end := start + blocks[m.cursor].Height()

	// Keep a group header above the first entry visible
	if m.cursor == 1 && blocks[0].Separator {
		start = 0
	}

	if start < m.offset {
		m.offset = start
	} else if end > m.offset+height {
		m.offset = end - height
	}
}

func (m *Model) clampCursor() {
	n := len(m.Canvas.Blocks())
	if m.cursor >= n {
		m.cursor = max(n-1, 0)
	}
	m.offset = min(m.offset, m.maxOffset())
}

// Selected returns the selected block, or nil
func (m Model) Selected() *Block {
	blocks := m.Canvas.Blocks()
	if m.cursor < len(blocks) {
		return blocks[m.cursor]
	}
	return nil
}

// entryCount counts mounted entries, separators excluded
func (m Model) entryCount() int {
	n := 0
	for _, b := range m.Canvas.Blocks() {
		if !b.Separator {
			n++
		}
	}
	return n
}

// View renders the application
func (m Model) View() string {
	if m.opts.Headless {
		return ""
	}
	if !m.Ready {
		return "Loading..."
	}
	if m.ShowHelp {
		return m.renderHelp()
	}

	view := m.renderList()
	if m.Filtering || m.FilterQuery != "" {
		view += "\n" + m.renderFilterBar()
	}
	return view + "\n" + m.renderFooter()
}
