package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/belmiro-kunga/certquest/internal/practice"
	"github.com/belmiro-kunga/certquest/internal/router"
	"github.com/belmiro-kunga/certquest/internal/screen"
	"github.com/belmiro-kunga/certquest/internal/screens/examrun"
	"github.com/belmiro-kunga/certquest/internal/screens/home"
	"github.com/belmiro-kunga/certquest/internal/ui/layout"
)

// Options holds the services the TUI runs on.
type Options struct {
	Exams  *practice.ExamService
	Cards  *practice.CardService
	UserID string

	// SimuladoID, when set, opens that exam on top of the home screen.
	SimuladoID string
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router *router.Router
	status layout.HeaderStatus
	start  tea.Cmd
	width  int
	height int
}

// newAppModel creates a new AppModel with the home screen.
func newAppModel(opts Options) AppModel {
	homeScreen := home.New(opts.Exams, opts.Cards, opts.UserID)
	m := AppModel{
		router: router.New(homeScreen),
		status: layout.HeaderStatus{User: opts.UserID},
		start:  homeScreen.Init(),
	}
	if opts.SimuladoID != "" {
		examScreen := examrun.New(opts.Exams, opts.UserID, opts.SimuladoID)
		m.start = tea.Batch(m.start, func() tea.Msg { return router.PushScreenMsg{Screen: examScreen} })
	}
	return m
}

func (m AppModel) Init() tea.Cmd {
	return m.start
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case screen.StatusMsg:
		m.status = msg.Status
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView(m.render())
	v.AltScreen = true
	return v
}

// render lays out header, active screen and footer for the current size.
func (m AppModel) render() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	if layout.IsTooSmall(m.width, m.height) {
		return layout.RenderMinSizeMessage(m.width, m.height)
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	header := layout.RenderHeader(title, m.status, m.width)

	var footerHints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok && hp.KeyHints() != nil {
		footerHints = hp.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	return layout.RenderFrame(header, content, footer, m.width, m.height)
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
