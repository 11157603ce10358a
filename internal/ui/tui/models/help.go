package models

import (
	"strings"

	"github.com/PizzaHomicide/reel/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/reel/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/reel/internal/ui/tui/styles"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Rows taken by the help header, footer and box borders
const helpChromeHeight = 10

// helpSection is one titled block of key bindings
type helpSection struct {
	title    string
	context  kb.ContextName
	excluded map[kb.Action]bool
}

// HelpModel is a scrollable overlay describing the view behind it
type HelpModel struct {
	width, height int
	context       View
	viewport      viewport.Model
}

func NewHelpModel(context View) *HelpModel {
	return &HelpModel{
		context:  context,
		viewport: viewport.New(0, 0),
	}
}

func (m *HelpModel) ViewType() View {
	return ViewHelp
}

func (m *HelpModel) Init() tea.Cmd {
	return nil
}

// Update scrolls the viewport
func (m *HelpModel) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
	case tea.KeyMsg:
		switch kb.GetActionByKey(msg, kb.ContextHelp) {
		case kb.ActionMoveUp:
			m.viewport.LineUp(1)
		case kb.ActionMoveDown:
			m.viewport.LineDown(1)
		case kb.ActionPageUp:
			m.viewport.HalfViewUp()
		case kb.ActionPageDown:
			m.viewport.HalfViewDown()
		case kb.ActionMoveTop:
			m.viewport.GotoTop()
		case kb.ActionMoveBottom:
			m.viewport.GotoBottom()
		}
	}
	return m, cmd
}

func (m *HelpModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(width-4, 1)
	m.viewport.Height = max(height-helpChromeHeight, 1)
	m.viewport.SetContent(m.content())
	m.viewport.GotoTop()
}

func (m *HelpModel) View() string {
	footer := components.KeyBindingsBar(m.width, append(components.BarFor(kb.ContextHelp, map[kb.Action]string{
		kb.ActionMoveDown: "Scroll",
		kb.ActionPageDown: "Page",
		kb.ActionMoveTop:  "Top",
	}, kb.ActionMoveDown, kb.ActionPageDown, kb.ActionMoveTop), components.KeyBinding{Key: "esc", Desc: "Return"}))

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.Header(m.width, "Help: "+m.title()),
		"",
		styles.ContentBox(m.width-2, m.viewport.View(), 1),
		"",
		footer,
	)
}

func (m *HelpModel) title() string {
	switch m.context {
	case ViewFeed:
		return "Feed"
	case ViewDetail:
		return "Detail"
	default:
		return "General"
	}
}

// sections lists the binding blocks shown for the current view.  Global actions are only listed once.
func (m *HelpModel) sections() []helpSection {
	global := make(map[kb.Action]bool)
	for _, b := range kb.ContextBindings[kb.ContextGlobal] {
		global[b.Action] = true
	}

	out := []helpSection{{title: "Global", context: kb.ContextGlobal}}
	switch m.context {
	case ViewFeed:
		out = append(out,
			helpSection{title: "Feed", context: kb.ContextFeed, excluded: global},
			helpSection{title: "Search", context: kb.ContextSearchMode})
	case ViewDetail:
		out = append(out, helpSection{title: "Detail", context: kb.ContextDetail, excluded: global})
	}
	return out
}

// content renders the description, the binding sections and, on the feed, the state badges
func (m *HelpModel) content() string {
	heading := lipgloss.NewStyle().Bold(true).Foreground(styles.Accent)

	var b strings.Builder
	b.WriteString(heading.Render(m.title()) + "\n\n")
	b.WriteString(m.description() + "\n\n")
	for _, s := range m.sections() {
		b.WriteString(heading.Render(s.title) + "\n\n")
		b.WriteString(renderBindings(kb.ContextBindings[s.context], s.excluded))
		b.WriteString("\n")
	}
	if m.context == ViewFeed {
		b.WriteString(heading.Render("Surfaces") + "\n\n")
		b.WriteString(badgeHelp)
	}
	return b.String()
}

// renderBindings lists bindings with their keys padded to a common width
func renderBindings(bindings []kb.Binding, excluded map[kb.Action]bool) string {
	type line struct{ keys, help string }
	var lines []line
	width := 0
	for _, binding := range bindings {
		if excluded[binding.Action] {
			continue
		}
		keys := kb.KeyName(binding.KeyMap.Primary)
		if binding.KeyMap.Secondary != "" {
			keys += " or " + kb.KeyName(binding.KeyMap.Secondary)
		}
		width = max(width, lipgloss.Width(keys))
		lines = append(lines, line{keys, binding.KeyMap.Help})
	}

	keyStyle := lipgloss.NewStyle().Bold(true)
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("• " + keyStyle.Render(l.keys) + strings.Repeat(" ", width-lipgloss.Width(l.keys)) +
			" : " + l.help + "\n")
	}
	return b.String()
}

const badgeHelp = `• ACTIVE   : holds the renderer and shows the engine's output
• INACTIVE : bound, but another surface holds the renderer
• CREATED  : bound, not yet scrolled into view

Surfaces in the visible window compete for the renderer. The one holding it keeps it while it stays
visible. Once it leaves the window the renderer goes to the most recently visible surface, or the oldest
one when tie_break is set to oldest.
`

func (m *HelpModel) description() string {
	switch m.context {
	case ViewFeed:
		return "The feed shows one surface per catalog entry, with its playback state, transport, repeat mode, " +
			"video size and position. Only surfaces in view compete for the renderer, so scrolling moves playback " +
			"between entries."
	case ViewDetail:
		return "The detail screen binds the selected entry to its own surface. The engine is shared with the feed, " +
			"so playback continues where it was, and going back hands the renderer to the feed row again."
	default:
		return "Reel hosts playbacks on surfaces and decides which surface holds the renderer."
	}
}
