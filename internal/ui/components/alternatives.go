package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/belmiro-kunga/certquest/internal/ui/theme"
)

// AlternativeList renders the options of one exam question. It knows which
// option is under the cursor and which one was recorded, never which one
// is correct.
type AlternativeList struct {
	Prompt   string
	Options  []string
	Cursor   int
	Recorded int // -1 when nothing is recorded
}

// NewAlternativeList creates a list with the cursor on the recorded option,
// or on the first one.
func NewAlternativeList(prompt string, options []string, recorded int) AlternativeList {
	cursor := 0
	if recorded >= 0 && recorded < len(options) {
		cursor = recorded
	}
	return AlternativeList{
		Prompt:   prompt,
		Options:  options,
		Cursor:   cursor,
		Recorded: recorded,
	}
}

// Up moves the cursor to the previous option.
func (l *AlternativeList) Up() {
	if l.Cursor > 0 {
		l.Cursor--
	}
}

// Down moves the cursor to the next option.
func (l *AlternativeList) Down() {
	if l.Cursor < len(l.Options)-1 {
		l.Cursor++
	}
}

// Select puts the cursor on option i and reports whether i exists.
func (l *AlternativeList) Select(i int) bool {
	if i < 0 || i >= len(l.Options) {
		return false
	}
	l.Cursor = i
	return true
}

// View renders the prompt followed by the numbered options.
func (l AlternativeList) View(width int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Width(width).
		Foreground(theme.Text).
		Bold(true).
		Render(l.Prompt))
	b.WriteString("\n\n")

	for i, opt := range l.Options {
		prefix := "  "
		if i == l.Cursor {
			prefix = "▸ "
		}
		mark := " "
		if i == l.Recorded {
			mark = "●"
		}
		line := fmt.Sprintf("%s%s %d) %s", prefix, mark, i+1, opt)

		switch {
		case i == l.Cursor:
			b.WriteString(theme.Selected.Render(line))
		case i == l.Recorded:
			b.WriteString(theme.Answered.Render(line))
		default:
			b.WriteString(theme.Unselected.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
