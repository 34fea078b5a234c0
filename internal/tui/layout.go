package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// padCell forces s to exactly width columns (ANSI-aware), truncating with an
// ellipsis. Keeps table columns stable regardless of cell content.
func padCell(s string, width int) string {
	if width <= 0 {
		return ""
	}
	w := xansi.StringWidth(s)
	if w > width {
		if width == 1 {
			return xansi.Cut(s, 0, 1)
		}
		s = xansi.Cut(s, 0, width-1) + "…"
		w = xansi.StringWidth(s)
	}
	if w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

func modalBodyWidth(width int) int {
	w := width - 10
	if w > 64 {
		w = 64
	}
	if w < 24 {
		w = 24
	}
	return w
}

// renderModalBox draws a bordered modal with a title bar. No background fill
// inside the border: nested backgrounds leave artifacts on some terminals.
func renderModalBox(width int, title, content string) string {
	bodyW := modalBodyWidth(width)

	titleBar := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorSurfaceFg).
		Background(colorControlBg).
		Padding(0, 1).
		Width(bodyW).
		Render(title)

	body := lipgloss.NewStyle().Width(bodyW).Render(content)

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorAccent).
		Padding(0, 1).
		Render(titleBar + "\n\n" + body)
	return box
}

// placeCentered centers block within the full window.
func placeCentered(width, height int, block string) string {
	if width <= 0 || height <= 0 {
		return block
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, block)
}
