package home

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/belmiro-kunga/certquest/internal/practice"
	"github.com/belmiro-kunga/certquest/internal/router"
	"github.com/belmiro-kunga/certquest/internal/screen"
	"github.com/belmiro-kunga/certquest/internal/screens/examrun"
	"github.com/belmiro-kunga/certquest/internal/screens/history"
	"github.com/belmiro-kunga/certquest/internal/store"
	"github.com/belmiro-kunga/certquest/internal/ui/components"
	"github.com/belmiro-kunga/certquest/internal/ui/layout"
	"github.com/belmiro-kunga/certquest/internal/ui/theme"
)

type homeLoadedMsg struct {
	Simulados []store.SimuladoSummary
	Quota     practice.QuotaStatus
	Running   map[string]bool // simulado ids with a session in progress
	CardsDue  int
	Err       error
}

// HomeScreen lists the active simulados with the learner's weekly attempts.
type HomeScreen struct {
	exams  *practice.ExamService
	cards  *practice.CardService
	userID string

	menu     components.Menu
	quota    practice.QuotaStatus
	cardsDue int
	count    int
	loaded   bool
	errMsg   string
}

var _ screen.Screen = (*HomeScreen)(nil)
var _ screen.Resumer = (*HomeScreen)(nil)

// New creates a new HomeScreen.
func New(exams *practice.ExamService, cards *practice.CardService, userID string) *HomeScreen {
	return &HomeScreen{
		exams:  exams,
		cards:  cards,
		userID: userID,
	}
}

func (h *HomeScreen) Init() tea.Cmd {
	return h.load()
}

// Resume reloads the catalog and quota after an exam or the history closes.
func (h *HomeScreen) Resume() tea.Cmd {
	return h.load()
}

func (h *HomeScreen) load() tea.Cmd {
	exams, cards, user := h.exams, h.cards, h.userID
	return func() tea.Msg {
		ctx := context.Background()

		sims, err := exams.Simulados(ctx, false)
		if err != nil {
			return homeLoadedMsg{Err: err}
		}
		running := make(map[string]bool)
		active, err := exams.ActiveSessions(ctx, user)
		if err != nil {
			return homeLoadedMsg{Err: err}
		}
		for _, s := range active {
			running[s.SimuladoID()] = true
		}
		qs, err := exams.Quota(ctx, user)
		if err != nil {
			return homeLoadedMsg{Err: err}
		}

		msg := homeLoadedMsg{Simulados: sims, Quota: qs, Running: running}
		if cards != nil {
			if due, err := cards.Due(ctx, user); err == nil {
				msg.CardsDue = len(due)
			}
		}
		return msg
	}
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if msg, ok := msg.(homeLoadedMsg); ok {
		return h.handleLoaded(msg)
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) handleLoaded(msg homeLoadedMsg) (screen.Screen, tea.Cmd) {
	h.loaded = true
	if msg.Err != nil {
		h.errMsg = msg.Err.Error()
		return h, nil
	}
	h.errMsg = ""
	h.quota = msg.Quota
	h.cardsDue = msg.CardsDue
	h.count = len(msg.Simulados)

	var items []components.MenuItem
	for _, sim := range msg.Simulados {
		detail := fmt.Sprintf("%d questions · %d min · %s", sim.QuestionCount, sim.DurationMinutes, sim.Difficulty)
		if msg.Running[sim.ID] {
			detail = "in progress · resume"
		}
		items = append(items, components.MenuItem{
			Label:  sim.Title,
			Detail: detail,
			Action: h.startExam(sim.ID),
		})
	}
	items = append(items,
		components.MenuItem{Label: "History", Action: func() tea.Cmd {
			return func() tea.Msg {
				return router.PushScreenMsg{Screen: history.New(h.exams, h.userID)}
			}
		}},
		components.MenuItem{Label: "Quit", Action: func() tea.Cmd { return tea.Quit }},
	)

	selected := h.menu.Selected
	h.menu = components.NewMenu(items)
	if selected < len(items) {
		h.menu.Selected = selected
	}

	status := layout.HeaderStatus{
		User:              h.userID,
		AttemptsRemaining: msg.Quota.Remaining,
		AttemptsAllowed:   msg.Quota.Allowed,
	}
	return h, func() tea.Msg { return screen.StatusMsg{Status: status} }
}

func (h *HomeScreen) startExam(simuladoID string) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg {
			return router.PushScreenMsg{Screen: examrun.New(h.exams, h.userID, simuladoID)}
		}
	}
}

func (h *HomeScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var sections []string
	sections = append(sections, renderTitle(cw, layout.IsCompactHeight(height+layout.HeaderHeight+layout.FooterHeight)))

	switch {
	case h.errMsg != "":
		sections = append(sections, theme.Incorrect.Render("Error: "+h.errMsg))
	case !h.loaded:
		sections = append(sections, theme.Hint.Render("Loading simulados..."))
	default:
		sections = append(sections, renderStats(h.quota, h.cardsDue, cw))
		if h.count == 0 {
			sections = append(sections, theme.Hint.Render("No simulados yet. Import a catalog with: certquest simulado import <file>"))
		}
		sections = append(sections, lipgloss.NewStyle().Width(cw).Render(h.menu.View()))
	}

	return components.Frame(strings.Join(sections, "\n\n"), width, height)
}

func (h *HomeScreen) Title() string {
	return "Home"
}

const titleFull = `┏━╸┏━╸┏━┓╺┳╸┏━┓╻ ╻┏━╸┏━┓╺┳╸
┃  ┣╸ ┣┳┛ ┃ ┃┓┃┃ ┃┣╸ ┗━┓ ┃
┗━╸┗━╸╹┗╸ ╹ ┗┻┛┗━┛┗━╸┗━┛ ╹ `

const titleCompact = "C E R T Q U E S T"

func renderTitle(cw int, compact bool) string {
	title := titleFull
	if compact {
		title = titleCompact
	}
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(theme.Title.Render(title))
}

// renderStats renders the weekly attempts and due cards in a bordered box.
func renderStats(q practice.QuotaStatus, cardsDue, cw int) string {
	attempts := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).
		Render(fmt.Sprintf("%d of %d attempts left this week", q.Remaining, q.Allowed))
	if q.Remaining == 0 {
		attempts = theme.Incorrect.Render("No attempts left this week")
	}

	lines := []string{attempts}
	if !q.ResetsAt.IsZero() {
		lines = append(lines, theme.Hint.Render("next attempt frees up "+q.ResetsAt.Local().Format("Mon Jan 2 15:04")))
	}
	if cardsDue > 0 {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Secondary).
			Render(fmt.Sprintf("%d flashcards due (certquest cards due)", cardsDue)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Secondary).
		Width(cw - 2).
		Align(lipgloss.Center).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}
