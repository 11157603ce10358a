package models

// feed_render.go is responsible for the visual representation of the feed: one framed surface per entry, with the
// playback state, transport, repeat mode and video size reported by the playback listeners.

import (
	"fmt"
	"strings"

	"github.com/PizzaHomicide/reel/internal/binding"
	"github.com/PizzaHomicide/reel/internal/ui/tui/components"
	kb "github.com/PizzaHomicide/reel/internal/ui/tui/keybindings"
	"github.com/PizzaHomicide/reel/internal/ui/tui/styles"
	"github.com/PizzaHomicide/reel/internal/ui/tui/util"
	"github.com/charmbracelet/lipgloss"
)

// View renders the feed
func (m *FeedModel) View() string {
	header := styles.Header(m.width, fmt.Sprintf("Reel • %d entries • %d active", len(m.rows),
		len(m.master.ActivePlaybacks())))

	var body string
	if len(m.rows) == 0 {
		body = styles.CenteredText(m.width, "The feed is empty")
	} else {
		body = m.renderRows()
	}

	parts := []string{header, m.renderSearchBar(), body}
	if m.notice != "" {
		parts = append(parts, styles.Notice.Render(m.notice))
	}
	parts = append(parts, "", m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *FeedModel) renderSearchBar() string {
	if !m.searchMode {
		return ""
	}
	bar := "Search: " + m.searchInput.View()
	if len(m.matches) > 0 {
		bar += styles.Muted.Render("  best: " + m.matches[0])
	} else if m.searchInput.Value() != "" {
		bar += styles.Muted.Render("  no matches")
	}
	return bar
}

func (m *FeedModel) renderRows() string {
	end := min(m.offset+max(m.visible, 1), len(m.rows))
	var rendered []string
	for i := m.offset; i < end; i++ {
		rendered = append(rendered, m.renderRow(m.rows[i], i == m.cursor))
	}
	if len(m.rows) > end-m.offset {
		pagination := fmt.Sprintf("Showing %d-%d of %d", m.offset+1, end, len(m.rows))
		rendered = append(rendered, styles.CenteredText(m.width-4, pagination))
	}
	return lipgloss.JoinVertical(lipgloss.Left, rendered...)
}

func (m *FeedModel) renderRow(row *feedRow, selected bool) string {
	innerWidth := max(m.width-6, 20)
	badge := stateBadge(row.playback)
	titleWidth := max(innerWidth-lipgloss.Width(badge)-1, 1)
	lines := []string{
		badge + " " + util.PadRight(row.entry.DisplayTitle(), titleWidth),
		m.describe(row.tag, row.status),
	}
	if m.rowHeight > 2 {
		lines = append(lines, styles.Muted.Render(util.TruncateString(row.entry.URI, innerWidth)))
	}
	if len(lines) > m.rowHeight {
		lines = lines[:m.rowHeight]
	}
	return styles.SurfaceBox(m.width-2, m.rowHeight, strings.Join(lines, "\n"), selected)
}

// describe renders the transport line of a surface
func (m *FeedModel) describe(tag string, st *status) string {
	transport := st.transport
	if st.buffering {
		transport = m.spinner.View() + " buffering"
	}
	parts := []string{
		"tag " + tag,
		transport,
		"size " + util.FormatVideoSize(st.width, st.height),
	}
	if p, ok := m.master.FindPlayable(tag).Get(); ok {
		parts = append(parts, "repeat "+p.Config().RepeatMode.String())
		if p.Bridge().HasEngine() {
			parts = append(parts, util.FormatPosition(p.Bridge().Position()))
		}
	}
	return styles.Info.Render(strings.Join(parts, " • "))
}

func (m *FeedModel) renderFooter() string {
	if m.searchMode {
		return components.KeyBindingsBar(m.width, components.BarFor(kb.ContextSearchMode, map[kb.Action]string{
			kb.ActionSearchComplete: "Jump",
			kb.ActionBack:           "Cancel",
		}, kb.ActionSearchComplete, kb.ActionBack))
	}
	return components.KeyBindingsBar(m.width, components.BarFor(kb.ContextFeed, map[kb.Action]string{
		kb.ActionMoveDown:        "Scroll",
		kb.ActionOpenDetail:      "Open",
		kb.ActionToggleTransport: "Play/Pause",
		kb.ActionCycleRepeat:     "Repeat",
		kb.ActionEnableSearch:    "Search",
	}, kb.ActionMoveDown, kb.ActionOpenDetail, kb.ActionToggleTransport, kb.ActionCycleRepeat, kb.ActionEnableSearch))
}

// stateBadge renders the playback state
func stateBadge(pb *binding.Playback) string {
	if pb.IsActive() {
		return styles.Active.Render(pb.State().String())
	}
	return styles.Inactive.Render(pb.State().String())
}
