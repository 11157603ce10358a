package tui

import (
	"github.com/PizzaHomicide/reel/internal/ui/tui/models"
	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the demo host and blocks until the user quits.  The calling goroutine becomes the control goroutine
// for deps.Master for as long as the program runs.
func Run(deps models.Deps) error {
	p := tea.NewProgram(models.NewAppModel(deps), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := p.Run()
	return err
}
