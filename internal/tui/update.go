package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(60, msg.Width-20))
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Lower):
			return m, m.setLevel(m.level.Level - m.level.Step)
		case key.Matches(msg, keys.Raise):
			return m, m.setLevel(m.level.Level + m.level.Step)
		case key.Matches(msg, keys.Reset):
			return m, m.reset()
		case key.Matches(msg, keys.Apply):
			m.status = "buffering river outline"
			return m, m.apply()
		}

	case tickMsg:
		return m, tea.Batch(m.refresh(), tick())

	case snapshotMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		first := m.snap.WaterLevel.Step == 0
		m.snap = msg.snap
		if first {
			m.level = msg.snap.WaterLevel
			m.status = "ready"
		}

	case levelMsg:
		m.err = msg.err
		if msg.err == nil {
			m.level = msg.level
			m.status = fmt.Sprintf("pending %.1f m, press enter to apply", m.level.Level)
		}

	case appliedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.result = msg.result
			m.applied = true
			switch {
			case !msg.result.Applied:
				m.status = "outline unchanged"
			default:
				m.status = fmt.Sprintf("buffered by %.2f m", msg.result.Distance)
			}
		}
	}
	return m, nil
}
