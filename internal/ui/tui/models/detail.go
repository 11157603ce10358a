package models

import (
	"fmt"
	"strings"

	"github.com/PizzaHomicide/reel/internal/binding"
	"github.com/PizzaHomicide/reel/internal/catalog"
	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	"github.com/PizzaHomicide/reel/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/reel/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/reel/internal/ui/tui/styles"
	"github.com/PizzaHomicide/reel/internal/ui/tui/util"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const detailSurfaceID = "detail"

// DetailModel shows a single entry on its own surface.  It binds the same tag the feed row uses, so the engine
// and its position carry over from the feed.
type DetailModel struct {
	master        *binding.Master
	entry         catalog.Entry
	tag           string
	surface       *surface
	playback      *binding.Playback
	status        *status
	width, height int
	notice        string
}

// NewDetailModel binds tag to a fresh detail surface, eligible straight away.  carried seeds the status with what
// the feed already knows about the engine.
func NewDetailModel(master *binding.Master, entry catalog.Entry, tag string, carried *status) (*DetailModel, error) {
	if carried == nil {
		carried = newStatus()
	}
	m := &DetailModel{
		master:  master,
		entry:   entry,
		tag:     tag,
		surface: newSurface(detailSurfaceID),
		status:  carried.carry(),
	}

	opts := append(m.status.options(), binding.StartEligible())
	var pb *binding.Playback
	var err error
	if p, ok := master.FindPlayable(tag).Get(); ok {
		pb, err = master.Bind(p, m.surface, append(opts, withControls(p))...)
	} else {
		log.Info("No live playable for tag, setting up from the entry", "tag", tag)
		handle := master.SetUp(entry.Media(), entry.Config(domain.DefaultConfig()).WithTag(tag))
		if p := handle.Playable(); p != nil {
			opts = append(opts, withControls(p))
		}
		pb, err = handle.Bind(m.surface, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("bind detail surface: %w", err)
	}
	m.playback = pb
	return m, nil
}

func (m *DetailModel) ViewType() View {
	return ViewDetail
}

func (m *DetailModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *DetailModel) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if kb.GetActionByKey(keyMsg, kb.ContextGlobal) == kb.ActionBack {
		tag := m.tag
		return m, func() tea.Msg {
			return CloseDetailMsg{Tag: tag}
		}
	}

	switch kb.GetActionByKey(keyMsg, kb.ContextDetail) {
	case kb.ActionToggleTransport:
		if !press(m.playback, domain.CommandToggle) {
			m.notice = "controls unavailable while the surface is inactive"
		} else {
			m.notice = ""
		}
		return m, Handled("transport:toggle")
	case kb.ActionCycleRepeat:
		next, err := cycleRepeat(m.master, m.tag)
		if err != nil {
			m.notice = err.Error()
		} else {
			m.notice = "repeat " + next.String()
		}
		return m, Handled("repeat:cycle")
	}
	return m, nil
}

// Close destroys the detail surface, which tears its playback down
func (m *DetailModel) Close() {
	m.playback.OnSurfaceDestroyed()
}

func (m *DetailModel) Resize(width, height int) {
	m.width = width
	m.height = height
}

// View renders the detail screen
func (m *DetailModel) View() string {
	header := styles.Header(m.width, util.TruncateString(m.entry.DisplayTitle(), max(m.width-4, 4)))

	labelStyle := lipgloss.NewStyle().Bold(true).Width(14)
	row := func(label, value string) string {
		return labelStyle.Render(label) + value
	}

	transport := m.status.transport
	if m.status.buffering {
		transport += " (buffering)"
	}
	position := "-"
	repeat := "-"
	if p, ok := m.master.FindPlayable(m.tag).Get(); ok {
		repeat = p.Config().RepeatMode.String()
		if p.Bridge().HasEngine() {
			position = util.FormatPosition(p.Bridge().Position())
		}
	}
	controls := "hidden"
	if m.surface.view.UseController() {
		controls = "shown"
	}
	firstFrame := "no"
	if m.status.firstFrame {
		firstFrame = "yes"
	}

	lines := []string{
		row("State", stateBadge(m.playback)),
		row("Tag", m.tag),
		row("URI", util.TruncateString(m.entry.URI, max(m.width-22, 10))),
		row("Transport", transport),
		row("Position", position),
		row("Repeat", repeat),
		row("Video size", util.FormatVideoSize(m.status.width, m.status.height)),
		row("First frame", firstFrame),
		row("Completed", fmt.Sprintf("%d times", m.status.completions)),
		row("Controls", controls),
	}
	content := styles.ContentBox(m.width-2, strings.Join(lines, "\n"), 1)

	parts := []string{header, "", content}
	if m.notice != "" {
		parts = append(parts, styles.Notice.Render(m.notice))
	}
	footer := components.KeyBindingsBar(m.width, append(components.BarFor(kb.ContextDetail, map[kb.Action]string{
		kb.ActionToggleTransport: "Play/Pause",
		kb.ActionCycleRepeat:     "Repeat",
	}, kb.ActionToggleTransport, kb.ActionCycleRepeat), components.KeyBinding{Key: "esc", Desc: "Back"}))
	parts = append(parts, "", footer)
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
