package examrun

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/belmiro-kunga/certquest/internal/ui/components"
	"github.com/belmiro-kunga/certquest/internal/ui/layout"
	"github.com/belmiro-kunga/certquest/internal/ui/theme"
)

func (s *ExamScreen) View(width, height int) string {
	switch {
	case s.errMsg != "":
		return renderCentered(width, theme.Incorrect.Render(s.errMsg)+"\n\n"+theme.Hint.Render("Press any key to go back"))
	case s.sess == nil:
		return renderCentered(width, theme.Hint.Render("Starting exam..."))
	case s.submitting:
		return renderCentered(width, theme.Hint.Render(strings.TrimSpace(s.notice+" Scoring your answers...")))
	case s.confirming:
		return s.renderConfirm(width)
	}
	return s.renderQuestion(width)
}

func (s *ExamScreen) renderQuestion(width int) string {
	if len(s.view.Questions) == 0 {
		return ""
	}
	inner := width - 4

	var b strings.Builder

	left := lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render(fmt.Sprintf("  Question %d/%d", s.current+1, len(s.view.Questions)))
	right := timerStyle(s.remaining).Render("⏱ " + layout.FormatClock(s.remaining))
	line := left
	if pad := inner - lipgloss.Width(left) - lipgloss.Width(right); pad > 0 {
		line += strings.Repeat(" ", pad) + right
	}
	b.WriteString(line)
	b.WriteString("\n")

	answered := len(s.answers)
	total := len(s.view.Questions)
	bar := components.NewProgressBar(fmt.Sprintf("  Answered %d/%d", answered, total),
		float64(answered)/float64(total), false, inner)
	b.WriteString(bar.View())
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(inner, 0))))
	b.WriteString("\n\n")

	body := s.list.View(min(inner-4, 90))
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(body))
	b.WriteString("\n")
	b.WriteString(s.renderNavigator())

	if s.notice != "" {
		b.WriteString("\n\n  ")
		b.WriteString(theme.Hint.Render(s.notice))
	}
	return b.String()
}

// renderNavigator shows one cell per question: the current one highlighted,
// answered ones filled.
func (s *ExamScreen) renderNavigator() string {
	var b strings.Builder
	b.WriteString("  ")
	for i, q := range s.view.Questions {
		cell := "○"
		style := lipgloss.NewStyle().Foreground(theme.TextDim)
		if _, ok := s.answers[q.ID]; ok {
			cell = "●"
			style = theme.Answered
		}
		if i == s.current {
			style = theme.Selected
		}
		b.WriteString(style.Render(cell))
		b.WriteString(" ")
	}
	return b.String()
}

func (s *ExamScreen) renderConfirm(width int) string {
	answered := len(s.answers)
	total := len(s.view.Questions)
	msg := fmt.Sprintf("Submit now with %d of %d questions answered?", answered, total)
	if answered == total {
		msg = "Submit your answers?"
	}
	return renderCentered(width,
		theme.Selected.Render(msg)+"\n\n"+
			theme.Hint.Render(fmt.Sprintf("%s left on the clock", layout.FormatClock(s.remaining))))
}

func renderCentered(width int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Render("\n\n" + content)
}

func timerStyle(remaining int) lipgloss.Style {
	switch {
	case remaining <= 60:
		return theme.TimerCritical
	case remaining <= 300:
		return theme.TimerLow
	}
	return theme.TimerNormal
}
