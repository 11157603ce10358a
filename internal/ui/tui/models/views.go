package models

import tea "github.com/charmbracelet/bubbletea"

// View represents a specific UI view in the application
type View string

// Available views in the application
const (
	ViewFeed   View = "feed"
	ViewDetail View = "detail"
	ViewHelp   View = "help"
)

// Model is implemented by every screen the app model can show
type Model interface {
	ViewType() View
	Init() tea.Cmd
	Update(msg tea.Msg) (Model, tea.Cmd)
	View() string
	Resize(width, height int)
}
