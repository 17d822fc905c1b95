package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vireolabs/playpulse/internal/sink"
	"github.com/vireolabs/playpulse/internal/stats"
)

const (
	minWidth  = 40
	minHeight = 10

	headerHeight = 1
	footerHeight = 3
)

type panelDimensions struct {
	viewListW, viewListH       int
	eventStreamW, eventStreamH int
}

func computeDimensions(totalW, totalH int) panelDimensions {
	if totalW < minWidth {
		totalW = minWidth
	}
	if totalH < minHeight {
		totalH = minHeight
	}

	usableH := totalH - headerHeight - footerHeight
	if usableH < 4 {
		usableH = 4
	}

	var d panelDimensions
	d.viewListW = totalW * 40 / 100
	if d.viewListW < 24 {
		d.viewListW = 24
	}
	if d.viewListW > totalW-20 {
		d.viewListW = totalW - 20
	}
	d.viewListH = usableH

	d.eventStreamW = totalW - d.viewListW
	if d.eventStreamW < 20 {
		d.eventStreamW = 20
	}
	d.eventStreamH = usableH

	return d
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	panelBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	panelTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69"))

	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	contentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	adStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("183"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	bufferStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("222"))
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width < minWidth || m.height < minHeight {
		return "Terminal too small for the dashboard.\n"
	}

	d := computeDimensions(m.width, m.height)

	header := m.renderHeader()
	left := m.renderViewListPanel(d.viewListW, d.viewListH)
	right := m.renderEventStreamPanel(d.eventStreamW, d.eventStreamH)
	body := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m Model) renderHeader() string {
	title := " playpulse — live playback beacons "
	pad := m.width - lipgloss.Width(title)
	if pad < 0 {
		pad = 0
	}
	return headerStyle.Render(title + strings.Repeat(" ", pad))
}

func (m Model) renderViewListPanel(w, h int) string {
	contentH := h - 3 // borders + title
	if contentH < 1 {
		contentH = 1
	}

	lines := []string{panelTitleStyle.Render("Views")}

	views := m.getViews()
	if len(views) == 0 {
		lines = append(lines, "", dimStyle.Render("No beacons yet"))
	}

	start := 0
	if m.viewCursor >= contentH-1 {
		start = m.viewCursor - contentH + 2
	}
	for i := start; i < len(views) && len(lines) < contentH+1; i++ {
		lines = append(lines, m.renderViewLine(views[i], i == m.viewCursor, w-4))
	}

	return panelBorderStyle.
		Width(w - 2).
		Height(h - 2).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderViewLine(v sink.ViewData, cursor bool, maxW int) string {
	role := "content"
	style := contentStyle
	if v.IsAd {
		role = "ad"
		style = adStyle
	}
	status := "live"
	if v.Ended {
		status = "ended"
	}

	line := fmt.Sprintf("%s %-7s %5s  %4d ev  rb %d",
		truncateID(v.ViewID, 12), role, status, len(v.Beacons), v.RebufferCount)
	if len(line) > maxW && maxW > 3 {
		line = line[:maxW-3] + "..."
	}

	if cursor {
		return selectedStyle.Render(line)
	}
	if v.ViewID == m.selectedView {
		return style.Bold(true).Render(line)
	}
	return style.Render(line)
}

func (m Model) renderFooter() string {
	s := stats.Summarize(m.getViews())

	parts := []string{
		fmt.Sprintf("views %d", s.Views),
		fmt.Sprintf("ads %d", s.AdViews),
		fmt.Sprintf("watch %s", formatDuration(s.WatchTimeMS)),
		fmt.Sprintf("ad time %s", formatDuration(s.AdTimeMS)),
		fmt.Sprintf("startup %dms", s.AvgStartupMS),
		fmt.Sprintf("rebuffer %.2f/min", s.RebufferRatio),
	}
	line := strings.Join(parts, "  │  ")

	help := dimStyle.Render("↑/↓ select  enter filter  esc all  [/] scroll  q quit")

	return panelBorderStyle.
		Width(m.width - 2).
		Render(line + "\n" + help)
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	sec := ms / 1000
	if sec < 60 {
		return fmt.Sprintf("%ds", sec)
	}
	return fmt.Sprintf("%dm%02ds", sec/60, sec%60)
}

func truncateID(id string, n int) string {
	if len(id) <= n {
		return id
	}
	return id[:n]
}
