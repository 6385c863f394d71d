package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/mmcdole/vscroll/internal/tui/styles"
)

// RenderSpinner renders a loading spinner
func RenderSpinner(frame int) string {
	return styles.SpinnerStyle.Render(styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])
}

// renderList renders the rows inside the scroll window
func (m Model) renderList() string {
	height := m.listHeight()
	lines := make([]string, 0, height)
	top, bottom := m.offset, m.offset+height

	row := 0
	visit := func(render func() []string, h int) {
		if row+h > top && row < bottom {
			for i, line := range render() {
				if r := row + i; r >= top && r < bottom {
					lines = append(lines, line)
				}
			}
		}
		row += h
	}

	for i, b := range m.Canvas.Blocks() {
		selected := i == m.cursor
		visit(func() []string { return m.blockLines(b, selected, 0) }, b.Height())
	}
	if n := m.Canvas.TombstoneRows(); n > 0 {
		visit(func() []string { return m.tombstoneLines(n) }, n)
	}
	if slot := m.slotLines(); len(slot) > 0 {
		visit(func() []string { return slot }, len(slot))
	}

	for len(lines) < height {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

// blockLines renders one block and its nested children
func (m Model) blockLines(b *Block, selected bool, depth int) []string {
	indent := strings.Repeat("  ", depth)
	width := m.Width - len(indent)

	if b.Separator {
		title := styles.Truncate(b.Title, width-3)
		return []string{indent + styles.SeparatorStyle.Render("── "+title)}
	}

	prefix := "  "
	if selected {
		prefix = styles.AccentStyle.Render("▸ ")
	}
	title := styles.Truncate(b.Title, width-2)
	line := prefix + styles.Highlight(title, b.Matches, selected)

	if b.Detail != "" {
		if room := width - 2 - lipgloss.Width(title) - 2; room > 3 {
			line += "  " + styles.DimStyle.Render(styles.Truncate(b.Detail, room))
		}
	}

	lines := []string{indent + styles.Pad(line, width, selected)}
	for _, c := range b.Children {
		lines = append(lines, m.blockLines(c, false, depth+1)...)
	}
	return lines
}

// tombstoneLines renders placeholder rows for entries still loading
func (m Model) tombstoneLines(n int) []string {
	lines := make([]string, n)
	for i := range lines {
		w := min(m.Width-4, 24+((i*7)%3)*8)
		lines[i] = "  " + styles.TombstoneStyle.Render(strings.Repeat("░", max(w, 0)))
	}
	return lines
}

// slotLines renders the trailing affordances derived from the list slots
func (m Model) slotLines() []string {
	s := m.List.Slots()
	switch {
	case s.Retry:
		msg := "Failed to load"
		if err := m.List.Err(); err != nil {
			msg += ": " + err.Error()
		}
		return []string{
			"  " + styles.ErrorStyle.Render(styles.Truncate(msg, m.Width-14)) +
				"  " + styles.RetryStyle.Render("r retry"),
		}
	case s.Empty:
		return []string{"  " + styles.DimStyle.Render("No entries")}
	case s.Done:
		return []string{"  " + styles.DoneStyle.Render(fmt.Sprintf("End of list · %d entries", m.entryCount()))}
	case s.RenderNext:
		return []string{"  " + styles.HelpKeyStyle.Render("n") + styles.HelpDescStyle.Render(" load more")}
	}
	return nil
}

// slotRows returns how many rows slotLines occupies
func (m Model) slotRows() int {
	s := m.List.Slots()
	if s.Retry || s.Empty || s.Done || s.RenderNext {
		return 1
	}
	return 0
}

// renderFilterBar renders the filter input or the applied query
func (m Model) renderFilterBar() string {
	if m.Filtering {
		return m.FilterInput.View()
	}
	return styles.FilterPromptStyle.Render("/") + styles.DimStyle.Render(m.FilterQuery+"  (esc to clear)")
}

// renderFooter renders a single-line minimal footer
func (m Model) renderFooter() string {
	var left string
	switch {
	case m.List.Slots().Loader:
		left = RenderSpinner(m.SpinnerFrame) + " " + styles.DimStyle.Render("Loading...")
	case m.StatusMsg != "":
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	default:
		left = styles.DimStyle.Render(fmt.Sprintf("%d entries · %s", m.entryCount(), m.List.Phase()))
	}

	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderHelp renders the help screen from the key map
func (m Model) renderHelp() string {
	var cols []string
	for _, group := range m.Keys.FullHelp() {
		var b strings.Builder
		for _, binding := range group {
			if !binding.Enabled() {
				continue
			}
			b.WriteString(helpLine(binding))
			b.WriteString("\n")
		}
		cols = append(cols, b.String())
	}

	help := lipgloss.JoinHorizontal(lipgloss.Top, cols[0], "    ", cols[1]) +
		"\n" + styles.DimStyle.Render("Press any key to return...")

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(help))
}

func helpLine(b key.Binding) string {
	h := b.Help()
	return styles.HelpKeyStyle.Render(fmt.Sprintf("%-8s", h.Key)) + " " + styles.HelpDescStyle.Render(h.Desc)
}
