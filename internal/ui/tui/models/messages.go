package models

import tea "github.com/charmbracelet/bubbletea"

// LoopReadyMsg is sent when the control loop has queued work to drain
type LoopReadyMsg struct{}

// OpenDetailMsg asks the app to open the detail screen for a tag
type OpenDetailMsg struct {
	Tag string
}

// CloseDetailMsg asks the app to leave the detail screen
type CloseDetailMsg struct {
	Tag string
}

// HandledMsg reports that a key was consumed without any further work
type HandledMsg struct {
	What string
}

// Handled returns a command reporting that a key was consumed
func Handled(what string) tea.Cmd {
	return func() tea.Msg {
		return HandledMsg{What: what}
	}
}
