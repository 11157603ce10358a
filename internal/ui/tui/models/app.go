package models

import (
	"github.com/PizzaHomicide/reel/internal/binding"
	"github.com/PizzaHomicide/reel/internal/catalog"
	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/PizzaHomicide/reel/internal/looper"
	kb "github.com/PizzaHomicide/reel/internal/ui/tui/keybindings"
	tea "github.com/charmbracelet/bubbletea"
)

// Deps is what the app model needs from the host process
type Deps struct {
	Loop    *looper.Loop
	Master  *binding.Master
	Entries []catalog.Entry
	// Base is the config every entry starts from
	Base      domain.Config
	RowHeight int
	// Restored tags were retained for the feed and are forgotten once it has bound
	Restored []string
}

// AppModel is the main application model that coordinates all child models.  It is the high level wrapper.
//
// The bubbletea event loop is the control goroutine: every call into the master happens in Update, and engine
// events queued on the loop are drained there too.
type AppModel struct {
	loop          *looper.Loop
	master        *binding.Master
	entries       []catalog.Entry
	width, height int

	feed   *FeedModel
	detail *DetailModel // nil unless the detail screen is open
	help   *HelpModel   // nil unless help is shown
}

// NewAppModel creates the app model and binds the feed.  It must be called on the goroutine that will run the
// program.
func NewAppModel(deps Deps) AppModel {
	feed := NewFeedModel(deps.Master, deps.Entries, deps.Base, deps.RowHeight)
	for _, tag := range deps.Restored {
		deps.Master.Forget(tag)
	}
	return AppModel{
		loop:    deps.Loop,
		master:  deps.Master,
		entries: deps.Entries,
		feed:    feed,
	}
}

// waitForLoop blocks until the loop has work queued.  It returns nil once the loop is closed.
func waitForLoop(loop *looper.Loop) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-loop.Ready():
			return LoopReadyMsg{}
		case <-loop.Done():
			return nil
		}
	}
}

func (m AppModel) Init() tea.Cmd {
	log.Info("Initialising Reel TUI")
	return tea.Batch(waitForLoop(m.loop), m.feed.Init())
}

// Update handles messages and updates the models as appropriate
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoopReadyMsg:
		if n := m.loop.Drain(); n > 0 {
			log.Trace("Drained control loop", "items", n)
		}
		return m, waitForLoop(m.loop)

	case tea.KeyMsg:
		switch kb.GetActionByKey(msg, kb.ContextGlobal) {
		case kb.ActionQuit:
			log.Info("Quit command received.  Shutting down...")
			return m, tea.Quit
		case kb.ActionToggleHelp:
			log.Debug("Help requested", "active_view", m.activeView())
			if m.help != nil {
				m.help = nil
			} else {
				m.help = NewHelpModel(m.activeView())
				m.help.Resize(m.width, m.height)
			}
			return m, nil
		case kb.ActionBack:
			// Closing help takes priority over whatever is behind it
			if m.help != nil {
				m.help = nil
				return m, nil
			}
		}
		if m.help != nil {
			_, cmd := m.help.Update(msg)
			return m, cmd
		}

	case tea.MouseMsg:
		if m.help != nil {
			_, cmd := m.help.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		log.Debug("Window size changed", "old_width", m.width, "new_width", msg.Width, "old_height", m.height, "new_height", msg.Height)
		m.width = msg.Width
		m.height = msg.Height

		// Propagate new window size to all views so they are aware and can render correctly
		m.feed.Resize(msg.Width, msg.Height)
		if m.detail != nil {
			m.detail.Resize(msg.Width, msg.Height)
		}
		if m.help != nil {
			m.help.Resize(msg.Width, msg.Height)
		}
		return m, nil

	case OpenDetailMsg:
		return m.openDetail(msg.Tag), nil

	case CloseDetailMsg:
		return m.closeDetail(), nil

	case HandledMsg:
		return m, nil
	}

	if m.detail != nil {
		_, cmd := m.detail.Update(msg)
		return m, cmd
	}
	_, cmd := m.feed.Update(msg)
	return m, cmd
}

// openDetail binds the tag to the detail surface before the feed lets go, so the engine keeps running across the
// switch
func (m AppModel) openDetail(tag string) AppModel {
	if m.detail != nil {
		return m
	}
	row := m.feed.rowFor(tag)
	if row == nil {
		log.Warn("Open requested for unknown tag", "tag", tag)
		return m
	}
	detail, err := NewDetailModel(m.master, row.entry, tag, row.status)
	if err != nil {
		log.Error("Failed to open detail screen", "tag", tag, "error", err)
		m.feed.notice = err.Error()
		return m
	}
	detail.Resize(m.width, m.height)
	m.detail = detail
	m.feed.Hide()
	log.Info("Detail screen opened", "tag", tag)
	return m
}

// closeDetail brings the feed back before destroying the detail surface, so the feed row is eligible when the
// detail playback releases the renderer
func (m AppModel) closeDetail() AppModel {
	if m.detail == nil {
		return m
	}
	tag := m.detail.tag
	m.feed.Show(tag)
	m.detail.Close()
	m.detail = nil
	log.Info("Detail screen closed", "tag", tag)
	return m
}

func (m AppModel) activeView() View {
	if m.detail != nil {
		return ViewDetail
	}
	return ViewFeed
}

func (m AppModel) View() string {
	// Help takes precedence over the screen behind it
	if m.help != nil {
		return m.help.View()
	}
	if m.detail != nil {
		return m.detail.View()
	}
	return m.feed.View()
}
