package summary

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/belmiro-kunga/certquest/internal/exam"
	"github.com/belmiro-kunga/certquest/internal/router"
	"github.com/belmiro-kunga/certquest/internal/screen"
	"github.com/belmiro-kunga/certquest/internal/ui/layout"
	"github.com/belmiro-kunga/certquest/internal/ui/theme"
)

// SummaryScreen displays a scored session with the outcome of every
// question.
type SummaryScreen struct {
	result   exam.Result
	outcomes []exam.QuestionOutcome
	title    string
	offset   int
}

var _ screen.Screen = (*SummaryScreen)(nil)
var _ screen.KeyHintProvider = (*SummaryScreen)(nil)

// New creates a new SummaryScreen.
func New(sim exam.Simulado, result exam.Result) *SummaryScreen {
	return &SummaryScreen{
		result:   result,
		outcomes: exam.Breakdown(sim, result),
		title:    sim.Title,
	}
}

func (s *SummaryScreen) Init() tea.Cmd {
	return nil
}

func (s *SummaryScreen) Title() string {
	return "Exam Summary"
}

func (s *SummaryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Scroll"},
		{Key: "Enter", Description: "Home"},
	}
}

func (s *SummaryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyMsg); ok {
		switch kmsg.String() {
		case "enter", "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.offset > 0 {
				s.offset--
			}
		case "down", "j":
			if s.offset < len(s.outcomes)-1 {
				s.offset++
			}
		}
	}
	return s, nil
}

func (s *SummaryScreen) View(width, height int) string {
	r := s.result
	center := lipgloss.NewStyle().Width(width).Align(lipgloss.Center)

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(center.Foreground(theme.Primary).Bold(true).Render(s.title))
	b.WriteString("\n\n")

	verdict := theme.Correct.Render("PASSED")
	if !r.Passed {
		verdict = theme.Incorrect.Render("NOT PASSED")
	}
	b.WriteString(center.Render(fmt.Sprintf("%s   %s", lipgloss.NewStyle().Bold(true).Foreground(theme.Text).Render(fmt.Sprintf("%d%%", r.Score)), verdict)))
	b.WriteString("\n")

	stats := fmt.Sprintf("Correct: %d/%d        Time: %s",
		r.CorrectAnswers, r.TotalQuestions, layout.FormatClock(int(r.Elapsed.Seconds())))
	if r.GraceSubmit {
		stats += "        (time ran out)"
	}
	b.WriteString(theme.Subtitle.Width(width).Render(stats))
	b.WriteString("\n\n")

	divider := lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", max(min(width-8, 70), 0)))
	b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, divider))
	b.WriteString("\n")

	used := lipgloss.Height(b.String())
	b.WriteString(s.renderOutcomes(width, height-used))
	return b.String()
}

// renderOutcomes renders outcomes from the scroll offset until height runs out.
func (s *SummaryScreen) renderOutcomes(width, height int) string {
	textWidth := max(min(width-8, 70), 10)
	var b strings.Builder
	for i := s.offset; i < len(s.outcomes); i++ {
		block := renderOutcome(i+1, s.outcomes[i], textWidth)
		if height > 0 && lipgloss.Height(b.String())+lipgloss.Height(block) > height && b.Len() > 0 {
			break
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, block))
		b.WriteString("\n")
	}
	return b.String()
}

func renderOutcome(n int, o exam.QuestionOutcome, width int) string {
	var b strings.Builder

	mark := theme.Correct.Render("✓")
	if !o.Correct {
		mark = theme.Incorrect.Render("✗")
	}
	b.WriteString(fmt.Sprintf("%s %s\n", mark, theme.Body.Render(fmt.Sprintf("%d. %s", n, o.Question.Prompt))))

	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	switch {
	case !o.Answered:
		b.WriteString(dim.Render("   Not answered") + "\n")
	case !o.Correct:
		b.WriteString(theme.Incorrect.Render("   Your answer: "+o.ChosenText) + "\n")
	}
	b.WriteString(theme.Correct.Render("   Correct: "+o.CorrectText) + "\n")
	if o.Question.Explanation != "" {
		b.WriteString(dim.Italic(true).Render("   "+o.Question.Explanation) + "\n")
	}

	return lipgloss.NewStyle().Width(width).Render(b.String())
}
