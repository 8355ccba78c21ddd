// Package tui is a terminal water-level control for a river map session.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joeblew999/plat-river/internal/presenter"
	"github.com/joeblew999/plat-river/internal/service"
)

// refreshEvery is how often the layer and selection summary is re-read.
const refreshEvery = time.Second

// Session is the part of service.RiverMap the terminal UI drives.
type Session interface {
	SetWaterLevel(ctx context.Context, level float64) (service.WaterLevel, error)
	ResetWaterLevel(ctx context.Context) (service.WaterLevel, error)
	ApplyWaterLevel(ctx context.Context) (presenter.BufferResult, error)
	Snapshot(ctx context.Context) (service.Snapshot, error)
}

type Model struct {
	session Session
	timeout time.Duration

	width int

	snap    service.Snapshot
	level   service.WaterLevel
	result  presenter.BufferResult
	applied bool
	status  string
	err     error

	bar  progress.Model
	help help.Model
}

// New creates a model over a started session.
func New(session Session) Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 40
	return Model{
		session: session,
		timeout: 5 * time.Second,
		status:  "loading river map",
		bar:     bar,
		help:    help.New(),
	}
}

// Messages

type snapshotMsg struct {
	snap service.Snapshot
	err  error
}

type levelMsg struct {
	level service.WaterLevel
	err   error
}

type appliedMsg struct {
	result presenter.BufferResult
	err    error
}

type tickMsg time.Time

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), tick())
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), m.timeout)
}

func (m Model) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		snap, err := m.session.Snapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) setLevel(level float64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		wl, err := m.session.SetWaterLevel(ctx, level)
		return levelMsg{level: wl, err: err}
	}
}

func (m Model) reset() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		wl, err := m.session.ResetWaterLevel(ctx)
		return levelMsg{level: wl, err: err}
	}
}

func (m Model) apply() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := m.ctx()
		defer cancel()
		res, err := m.session.ApplyWaterLevel(ctx)
		return appliedMsg{result: res, err: err}
	}
}

// fraction is the pending level's position between the slider bounds.
func (m Model) fraction() float64 {
	span := m.level.Max - m.level.Min
	if span <= 0 {
		return 0
	}
	return (m.level.Level - m.level.Min) / span
}
