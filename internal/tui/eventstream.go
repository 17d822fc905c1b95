package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vireolabs/playpulse/internal/events"
)

// eventIcon picks a two-character marker for a beacon name.
func eventIcon(name string) string {
	switch {
	case strings.HasSuffix(name, "_ERROR") || name == events.Error:
		return "!!"
	case strings.Contains(name, "BUFFER"):
		return "~~"
	case strings.HasPrefix(name, "AD"):
		return "Ad"
	case strings.HasSuffix(name, "_HEARTBEAT"):
		return "hb"
	default:
		return "» "
	}
}

func eventStyle(e events.FormattedEvent) lipgloss.Style {
	switch {
	case strings.HasSuffix(e.Name, "_ERROR") || e.Name == events.Error:
		return errorStyle
	case strings.Contains(e.Name, "BUFFER"):
		return bufferStyle
	case e.Ad:
		return adStyle
	case strings.HasSuffix(e.Name, "_HEARTBEAT"):
		return dimStyle
	default:
		return contentStyle
	}
}

// renderEventStreamPanel renders the scrolling beacon stream.
func (m Model) renderEventStreamPanel(w, h int) string {
	contentW := w - 4
	if contentW < 10 {
		contentW = 10
	}
	contentH := h - 4 // borders + title
	if contentH < 1 {
		contentH = 1
	}

	title := panelTitleStyle.Render("Beacons")
	if m.selectedView != "" {
		title += dimStyle.Render(" [" + truncateID(m.selectedView, 12) + "]")
	}
	lines := []string{title}

	evts := m.getEvents()
	if len(evts) == 0 {
		lines = append(lines, "", dimStyle.Render("No beacons yet"))
		return panelBorderStyle.
			Width(w - 2).
			Height(h - 2).
			Render(strings.Join(lines, "\n"))
	}

	visible := contentH - 1
	if visible < 1 {
		visible = 1
	}

	start := m.eventScrollPos
	if m.autoScroll || start > len(evts)-visible {
		start = len(evts) - visible
	}
	if start < 0 {
		start = 0
	}
	end := start + visible
	if end > len(evts) {
		end = len(evts)
	}

	for i := start; i < end; i++ {
		lines = append(lines, renderEventLine(evts[i], contentW))
	}

	return panelBorderStyle.
		Width(w - 2).
		Height(h - 2).
		Render(strings.Join(lines, "\n"))
}

func renderEventLine(e events.FormattedEvent, maxW int) string {
	icon := eventIcon(e.Name)
	formatted := e.Timestamp.Format("15:04:05") + " " + e.Formatted
	maxFormatted := maxW - len(icon) - 1
	if len(formatted) > maxFormatted && maxFormatted > 3 {
		formatted = formatted[:maxFormatted-3] + "..."
	}
	return eventStyle(e).Render(icon + " " + formatted)
}
