package models

// feed.go owns the scrollable list of surfaces.  The rows inside the visible window are reported eligible to the
// master, every other row ineligible, so scrolling is what moves the renderer between entries.

import (
	"fmt"

	"github.com/PizzaHomicide/reel/internal/binding"
	"github.com/PizzaHomicide/reel/internal/catalog"
	"github.com/PizzaHomicide/reel/internal/domain"
	"github.com/PizzaHomicide/reel/internal/log"
	kb "github.com/PizzaHomicide/reel/internal/ui/tui/keybindings"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Lines used by the header, search bar, notice and footer around the surfaces
const feedChromeHeight = 8

// feedRow is one catalog entry and the surface it is shown on
type feedRow struct {
	entry    catalog.Entry
	tag      string
	surface  *surface
	playback *binding.Playback
	status   *status
}

// FeedModel shows one surface per catalog entry
type FeedModel struct {
	master        *binding.Master
	width, height int
	rowHeight     int
	rows          []*feedRow
	cursor        int
	offset        int
	visible       int  // rows in the window, zero until the first resize
	hidden        bool // another screen covers the feed
	searchMode    bool
	searchInput   textinput.Model
	matches       []string
	spinner       spinner.Model
	notice        string
}

// NewFeedModel sets up and binds every entry.  Nothing is eligible until the feed learns its size.
func NewFeedModel(master *binding.Master, entries []catalog.Entry, base domain.Config, rowHeight int) *FeedModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7D56F4"))

	input := textinput.New()
	input.Placeholder = "Search tags..."
	input.Width = 30

	if rowHeight < 1 {
		rowHeight = 1
	}

	m := &FeedModel{
		master:      master,
		rowHeight:   rowHeight,
		searchInput: input,
		spinner:     s,
	}
	for i, entry := range entries {
		if row := m.bindEntry(i, entry, base); row != nil {
			m.rows = append(m.rows, row)
		}
	}
	log.Info("Feed bound", "entries", len(entries), "rows", len(m.rows))
	return m
}

// bindEntry sets the entry up, keeping the config of a playable restored from saved state, and binds it to a new
// surface
func (m *FeedModel) bindEntry(i int, entry catalog.Entry, base domain.Config) *feedRow {
	media := entry.Media()
	cfg := entry.Config(base)
	if p, ok := m.master.FindPlayable(cfg.EffectiveTag(media)).Get(); ok {
		cfg = p.Config()
	}

	handle := m.master.SetUp(media, cfg)
	p := handle.Playable()
	if p == nil {
		handle.Discard()
		log.Warn("Skipping feed entry, set up failed", "uri", entry.URI)
		return nil
	}

	row := &feedRow{
		entry:   entry,
		tag:     p.Tag(),
		surface: newSurface(fmt.Sprintf("feed-%d", i)),
		status:  newStatus(),
	}
	opts := append(row.status.options(), withControls(p))
	pb, err := handle.Bind(row.surface, opts...)
	if err != nil {
		log.Warn("Skipping feed entry, bind failed", "tag", row.tag, "error", err)
		return nil
	}
	row.playback = pb
	return row
}

func (m *FeedModel) ViewType() View {
	return ViewFeed
}

// Init starts the buffering spinner
func (m *FeedModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Resize recomputes the window of eligible rows
func (m *FeedModel) Resize(width, height int) {
	m.width = width
	m.height = height
	m.visible = max(1, (height-feedChromeHeight)/(m.rowHeight+2))
	m.ensureCursorVisible()
}

// Update handles messages
func (m *FeedModel) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd := m.handleSearchModeKeyMsg(msg); cmd != nil {
			return m, cmd
		}
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			return m, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *FeedModel) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch kb.GetActionByKey(msg, kb.ContextFeed) {
	case kb.ActionMoveUp:
		m.moveCursor(-1)
		return Handled("cursor_move:up")
	case kb.ActionMoveDown:
		m.moveCursor(1)
		return Handled("cursor_move:down")
	case kb.ActionPageUp:
		m.moveCursor(-m.pageSize())
		return Handled("cursor_move:pgup")
	case kb.ActionPageDown:
		m.moveCursor(m.pageSize())
		return Handled("cursor_move:pgdown")
	case kb.ActionMoveTop:
		m.moveCursor(-len(m.rows))
		return Handled("cursor_move:top")
	case kb.ActionMoveBottom:
		m.moveCursor(len(m.rows))
		return Handled("cursor_move:bottom")
	case kb.ActionOpenDetail:
		row := m.selected()
		if row == nil {
			return Handled("err:feed:empty")
		}
		return func() tea.Msg {
			return OpenDetailMsg{Tag: row.tag}
		}
	case kb.ActionEnableSearch:
		m.searchMode = true
		m.matches = nil
		m.searchInput.SetValue("")
		m.searchInput.Focus()
		return Handled("search:enable")
	case kb.ActionToggleTransport:
		m.toggleTransport()
		return Handled("transport:toggle")
	case kb.ActionCycleRepeat:
		row := m.selected()
		if row == nil {
			return Handled("err:feed:empty")
		}
		next, err := cycleRepeat(m.master, row.tag)
		if err != nil {
			m.notice = err.Error()
		} else {
			m.notice = fmt.Sprintf("%s: repeat %s", row.tag, next)
		}
		return Handled("repeat:cycle")
	}
	return nil
}

func (m *FeedModel) handleSearchModeKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if !m.searchMode {
		return nil
	}
	switch kb.GetActionByKey(msg, kb.ContextSearchMode) {
	case kb.ActionBack:
		m.exitSearch()
		return Handled("search:exit")
	case kb.ActionSearchComplete:
		m.jumpToMatch()
		m.exitSearch()
		return Handled("search:apply")
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	m.matches = m.master.SearchTags(m.searchInput.Value())
	if cmd == nil {
		cmd = Handled("search:input")
	}
	return cmd
}

func (m *FeedModel) exitSearch() {
	m.searchMode = false
	m.searchInput.Blur()
	m.searchInput.SetValue("")
	m.matches = nil
}

// jumpToMatch moves the cursor to the first row of the best matching tag
func (m *FeedModel) jumpToMatch() {
	if m.searchInput.Value() == "" {
		return
	}
	for _, tag := range m.matches {
		for i, row := range m.rows {
			if row.tag == tag {
				m.cursor = i
				m.ensureCursorVisible()
				m.notice = "jumped to " + tag
				return
			}
		}
	}
	m.notice = fmt.Sprintf("no tag matches %q", m.searchInput.Value())
}

// toggleTransport presses play/pause on the surface that holds a renderer, preferring the selected row
func (m *FeedModel) toggleTransport() {
	target := m.selected()
	if target == nil || !target.playback.IsActive() {
		target = nil
		for _, row := range m.rows {
			if row.playback.IsActive() {
				target = row
				break
			}
		}
	}
	if target == nil {
		m.notice = "nothing is active"
		return
	}
	if !press(target.playback, domain.CommandToggle) {
		m.notice = target.tag + ": controls unavailable"
		return
	}
	m.notice = ""
}

func (m *FeedModel) selected() *feedRow {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}
	return m.rows[m.cursor]
}

func (m *FeedModel) pageSize() int {
	return max(1, m.visible)
}

func (m *FeedModel) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.ensureCursorVisible()
}

// ensureCursorVisible scrolls the window to the cursor and reports the new window to the master
func (m *FeedModel) ensureCursorVisible() {
	if m.visible == 0 {
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.visible {
		m.offset = m.cursor - m.visible + 1
	}
	m.offset = max(0, min(m.offset, len(m.rows)-m.visible))
	m.applyWindow()
}

func (m *FeedModel) inWindow(i int) bool {
	return !m.hidden && m.visible > 0 && i >= m.offset && i < m.offset+m.visible
}

// applyWindow signals every row whose eligibility changed
func (m *FeedModel) applyWindow() {
	m.signalWindow(nil)
}

// signalWindow reports eligibility changes for every row but skip.  Rows leaving the window go first so the
// renderer they free is available to the rows entering it.
func (m *FeedModel) signalWindow(skip *feedRow) {
	for i, row := range m.rows {
		if row != skip && !m.inWindow(i) && row.playback.Eligible() {
			if err := row.playback.OnSurfaceIneligible(); err != nil {
				log.Warn("Failed to mark surface ineligible", "tag", row.tag, "error", err)
			}
		}
	}
	for i, row := range m.rows {
		if row != skip && m.inWindow(i) && !row.playback.Eligible() {
			if err := row.playback.OnSurfaceEligible(); err != nil {
				log.Warn("Failed to mark surface eligible", "tag", row.tag, "error", err)
			}
		}
	}
}

// Hide marks every row ineligible while another screen covers the feed
func (m *FeedModel) Hide() {
	m.hidden = true
	m.applyWindow()
}

// Show brings the feed back.  The row for focusTag is bound again last, so it is the most recent eligible surface
// when the covering screen lets go of the renderer.
func (m *FeedModel) Show(focusTag string) {
	m.hidden = false
	var focus *feedRow
	for i, row := range m.rows {
		if row.tag == focusTag && m.inWindow(i) {
			focus = row
			break
		}
	}
	m.signalWindow(focus)
	if focus != nil {
		m.rebind(focus)
	}
}

// rebind binds the row's surface to the live playable for its tag again
func (m *FeedModel) rebind(row *feedRow) {
	p, ok := m.master.FindPlayable(row.tag).Get()
	if !ok {
		log.Warn("Playable gone, cannot rebind feed row", "tag", row.tag)
		return
	}
	opts := append(row.status.options(), binding.StartEligible())
	if row.playback.State() == binding.StateTornDown {
		opts = append(opts, withControls(p))
	}
	pb, err := m.master.Bind(p, row.surface, opts...)
	if err != nil {
		log.Warn("Failed to rebind feed row", "tag", row.tag, "error", err)
		return
	}
	row.playback = pb
}

// rowFor returns the first row showing tag
func (m *FeedModel) rowFor(tag string) *feedRow {
	for _, row := range m.rows {
		if row.tag == tag {
			return row
		}
	}
	return nil
}
