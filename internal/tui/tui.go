package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"techblok-cli/internal/api"
	"techblok-cli/internal/config"
	"techblok-cli/internal/session"
)

// Deps is everything the dashboard needs, wired by the CLI layer. The
// session store is the coordinator's: an Unauthorized response anywhere
// collapses it, and the TUI reacts to the transition by returning to the
// login screen.
type Deps struct {
	Config  *config.Config
	Session *session.Store
	Client  *api.Client
	Logger  zerolog.Logger
}

func Run(deps Deps) error {
	applyColorProfilePreference()
	applyThemePreference()

	m := newAppModel(deps)
	p := tea.NewProgram(m, tea.WithAltScreen())

	unsubscribe := deps.Session.Subscribe(func() {
		p.Send(sessionChangedMsg{})
	})
	defer unsubscribe()

	_, err := p.Run()
	return err
}
