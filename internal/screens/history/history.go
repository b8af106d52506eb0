package history

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/belmiro-kunga/certquest/internal/exam"
	"github.com/belmiro-kunga/certquest/internal/practice"
	"github.com/belmiro-kunga/certquest/internal/router"
	"github.com/belmiro-kunga/certquest/internal/screen"
	"github.com/belmiro-kunga/certquest/internal/ui/components"
	"github.com/belmiro-kunga/certquest/internal/ui/layout"
	"github.com/belmiro-kunga/certquest/internal/ui/theme"
)

// maxResults caps how many past results are listed.
const maxResults = 50

type historyLoadedMsg struct {
	Results []exam.Result
	Titles  map[string]string // simulado id → title
	Err     error
}

// HistoryScreen lists a learner's past exam results, newest first.
type HistoryScreen struct {
	svc      *practice.ExamService
	userID   string
	results  []exam.Result
	titles   map[string]string
	selected int
	expanded map[int]bool
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HistoryScreen)(nil)
var _ screen.KeyHintProvider = (*HistoryScreen)(nil)

// New creates a new HistoryScreen.
func New(svc *practice.ExamService, userID string) *HistoryScreen {
	return &HistoryScreen{
		svc:      svc,
		userID:   userID,
		expanded: make(map[int]bool),
	}
}

func (s *HistoryScreen) Init() tea.Cmd {
	svc, user := s.svc, s.userID
	return func() tea.Msg {
		ctx := context.Background()

		results, err := svc.History(ctx, user, maxResults)
		if err != nil {
			return historyLoadedMsg{Err: err}
		}

		titles := make(map[string]string)
		sims, err := svc.Simulados(ctx, true)
		if err == nil {
			for _, sim := range sims {
				titles[sim.ID] = sim.Title
			}
		}
		return historyLoadedMsg{Results: results, Titles: titles}
	}
}

func (s *HistoryScreen) Title() string {
	return "History"
}

func (s *HistoryScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Enter", Description: "Details"},
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *HistoryScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyLoadedMsg:
		if msg.Err != nil {
			s.errMsg = msg.Err.Error()
		} else {
			s.results = msg.Results
			s.titles = msg.Titles
		}
		s.loaded = true
		return s, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return s, func() tea.Msg { return router.PopScreenMsg{} }
		case "up", "k":
			if s.selected > 0 {
				s.selected--
			}
			return s, nil
		case "down", "j":
			if s.selected < len(s.results)-1 {
				s.selected++
			}
			return s, nil
		case "enter":
			s.expanded[s.selected] = !s.expanded[s.selected]
			return s, nil
		}
	}
	return s, nil
}

func (s *HistoryScreen) View(width, height int) string {
	if s.errMsg != "" {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.Error).
			Render(fmt.Sprintf("\n\nError: %s", s.errMsg))
	}
	if !s.loaded {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).
			Render("\n\n  Loading history...")
	}
	if len(s.results) == 0 {
		return lipgloss.NewStyle().
			Width(width).Align(lipgloss.Center).Foreground(theme.TextDim).Italic(true).
			Render("\n\n  No exams taken yet.")
	}

	var b strings.Builder
	b.WriteString("\n")

	for i, r := range s.results {
		title := s.titles[r.SimuladoID]
		if title == "" {
			title = r.SimuladoID
		}

		prefix := "  "
		if i == s.selected {
			prefix = "> "
		}
		verdict := "passed"
		if !r.Passed {
			verdict = "not passed"
		}
		line := fmt.Sprintf("%s%s  %-28s  %3d%%  %s",
			prefix, r.CompletedAt.Local().Format("Jan 02, 2006"), truncate(title, 28), r.Score, verdict)

		style := lipgloss.NewStyle().Foreground(theme.Text)
		switch {
		case i == s.selected:
			style = style.Foreground(theme.Primary).Bold(true)
		case !r.Passed:
			style = style.Foreground(theme.TextDim)
		}
		b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center, style.Render(line)))
		b.WriteString("\n")

		if s.expanded[i] {
			detail := fmt.Sprintf("%d/%d correct in %s", r.CorrectAnswers, r.TotalQuestions,
				layout.FormatClock(int(r.Elapsed.Seconds())))
			if r.GraceSubmit {
				detail += ", time ran out"
			}
			detail += "\n" + theme.Hint.Render("session "+r.SessionID)
			b.WriteString(lipgloss.PlaceHorizontal(width, lipgloss.Center,
				components.Card(detail, components.ContentWidth(width))))
			b.WriteString("\n")
		}
	}

	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
