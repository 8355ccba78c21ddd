package tui

import (
	"fmt"
	"strings"

	"github.com/joeblew999/plat-river/internal/mapview"
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Madawaska River water level"))
	b.WriteString("\n\n")

	slider := fmt.Sprintf("%s  %5.1f m\n%s",
		m.bar.ViewAs(m.fraction()),
		m.level.Level,
		dimStyle.Render(fmt.Sprintf("%.1f m … %.1f m, buffer %.2f m", m.level.Min, m.level.Max, m.level.Distance)),
	)
	b.WriteString(boxStyle.Render(slider))
	b.WriteString("\n\n")

	b.WriteString(m.summary())
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(warnStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render(m.status))
	b.WriteString("\n\n")
	b.WriteString(m.help.View(keys))

	return appStyle.Render(b.String())
}

func (m Model) summary() string {
	var lines []string

	ready := 0
	for _, l := range m.snap.Layers {
		if l.State == mapview.StateReady.String() {
			ready++
		}
	}
	lines = append(lines, fmt.Sprintf("layers    %d/%d ready, river %s", ready, len(m.snap.Layers), m.snap.River.State))

	if m.applied {
		line := fmt.Sprintf("buffer    %.2f m, %d points (%s)", m.result.Distance, m.result.Points, m.result.Engine)
		if m.result.Degenerate {
			line += " " + warnStyle.Render("degenerate")
		}
		lines = append(lines, line)
	} else {
		lines = append(lines, "buffer    not applied")
	}

	selected := 0
	sel := "none"
	if m.snap.Selection != nil {
		selected = 1
		sel = m.snap.Selection.Name
	}
	lines = append(lines, fmt.Sprintf("selection %d (%s)", selected, sel))

	return strings.Join(lines, "\n")
}
