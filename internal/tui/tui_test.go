package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joeblew999/plat-river/internal/catalog"
	"github.com/joeblew999/plat-river/internal/presenter"
	"github.com/joeblew999/plat-river/internal/service"
)

// fakeSession mirrors the slider arithmetic without a map.
type fakeSession struct {
	control *presenter.DistanceControl
	applied []float64
	err     error
}

func newFakeSession() *fakeSession {
	f := &fakeSession{}
	f.control = presenter.NewDistanceControl(catalog.Default().Slider, func(d float64) {
		f.applied = append(f.applied, d)
	})
	return f
}

func (f *fakeSession) level() service.WaterLevel {
	cfg := f.control.Config()
	return service.WaterLevel{
		Level: f.control.Pending(), Distance: f.control.Distance(),
		Min: cfg.Min, Max: cfg.Max, Step: cfg.Step,
	}
}

func (f *fakeSession) SetWaterLevel(ctx context.Context, level float64) (service.WaterLevel, error) {
	f.control.SetPending(level)
	return f.level(), nil
}

func (f *fakeSession) ResetWaterLevel(ctx context.Context) (service.WaterLevel, error) {
	f.control.Reset()
	return f.level(), nil
}

func (f *fakeSession) ApplyWaterLevel(ctx context.Context) (presenter.BufferResult, error) {
	if f.err != nil {
		return presenter.BufferResult{}, f.err
	}
	d := f.control.Confirm()
	return presenter.BufferResult{Applied: true, Distance: d, Points: 12, Engine: "miter"}, nil
}

func (f *fakeSession) Snapshot(ctx context.Context) (service.Snapshot, error) {
	return service.Snapshot{
		Mounted:    true,
		Layers:     []service.LayerState{{ID: "campsites", State: "ready"}, {ID: "rapids", State: "loading"}},
		River:      service.LayerState{ID: "madawaska_river", State: "ready"},
		Selection:  &presenter.Selection{Name: "Island Camp", LayerID: "campsites"},
		WaterLevel: f.level(),
	}, nil
}

// step feeds msg to the model and runs any returned command once.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(Model)
	if cmd == nil {
		return m
	}
	if out := cmd(); out != nil {
		if _, batch := out.(tea.BatchMsg); batch {
			return m
		}
		next, _ = m.Update(out)
		m = next.(Model)
	}
	return m
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loaded(t *testing.T, f *fakeSession) Model {
	t.Helper()
	m := New(f)
	return step(t, m, snapshotMsg{snap: mustSnapshot(t, f)})
}

func mustSnapshot(t *testing.T, f *fakeSession) service.Snapshot {
	t.Helper()
	snap, err := f.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

func TestSliderKeys(t *testing.T) {
	f := newFakeSession()
	m := loaded(t, f)

	if m.level.Level != -0.9 {
		t.Fatalf("initial level = %v", m.level.Level)
	}

	m = step(t, m, keyPress("right"))
	m = step(t, m, keyPress("right"))
	if got := m.level.Level; got < -0.7-1e-9 || got > -0.7+1e-9 {
		t.Fatalf("after two raises level = %v, want -0.7", got)
	}
	if len(f.applied) != 0 {
		t.Fatalf("moving the slider applied %v", f.applied)
	}

	// lowering below the minimum clamps
	for range 5 {
		m = step(t, m, keyPress("left"))
	}
	if m.level.Level != -0.9 {
		t.Fatalf("level = %v, want clamp at -0.9", m.level.Level)
	}

	m = step(t, m, keyPress("right"))
	m = step(t, m, keyPress("r"))
	if m.level.Level != -0.9 {
		t.Fatalf("reset level = %v", m.level.Level)
	}
}

func TestApply(t *testing.T) {
	f := newFakeSession()
	m := loaded(t, f)

	m = step(t, m, keyPress("right"))
	m = step(t, m, keyPress("enter"))
	if len(f.applied) != 1 {
		t.Fatalf("applied %d times, want 1", len(f.applied))
	}
	if !m.applied || m.result.Points != 12 {
		t.Fatalf("result = %+v", m.result)
	}

	view := m.View()
	for _, want := range []string{"12 points", "1/2 ready", "Island Camp"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestApplyError(t *testing.T) {
	f := newFakeSession()
	f.err = errors.New("map not mounted")
	m := loaded(t, f)

	m = step(t, m, keyPress("enter"))
	if m.err == nil || m.applied {
		t.Fatalf("err = %v, applied = %v", m.err, m.applied)
	}
	if !strings.Contains(m.View(), "map not mounted") {
		t.Errorf("view does not show the error")
	}
}

func TestQuit(t *testing.T) {
	m := New(newFakeSession())
	_, cmd := m.Update(keyPress("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
}
