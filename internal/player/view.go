package player

import (
	"fmt"

	"github.com/PizzaHomicide/reel/internal/domain"
)

// View is the concrete renderer handle engines draw into.  WindowID is the native window the output is embedded
// in; zero lets the engine manage its own window.
//
// A View is owned by the host surface and must only be touched from the control goroutine.
type View struct {
	id            string
	windowID      int64
	controller    domain.Controller
	useController bool
}

// NewView creates a view with no controller and built-in controls disabled
func NewView(id string, windowID int64) *View {
	return &View{id: id, windowID: windowID}
}

func (v *View) ID() string {
	return v.id
}

func (v *View) WindowID() int64 {
	return v.windowID
}

// SetController installs the controller that receives commands from the built-in controls.  nil removes it.
func (v *View) SetController(c domain.Controller) {
	v.controller = c
}

func (v *View) Controller() domain.Controller {
	return v.controller
}

// SetUseController shows or hides the built-in transport controls
func (v *View) SetUseController(use bool) {
	v.useController = use
}

func (v *View) UseController() bool {
	return v.useController
}

// Press simulates the user pressing a built-in control.  It is only delivered when the controls are shown and a
// controller is installed.
func (v *View) Press(cmd domain.Command) bool {
	if !v.useController || v.controller == nil {
		return false
	}
	return v.controller.Dispatch(cmd)
}

func (v *View) String() string {
	return fmt.Sprintf("view(%s)", v.id)
}
