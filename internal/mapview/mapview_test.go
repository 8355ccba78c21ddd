package mapview

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

func TestResolution(t *testing.T) {
	if got := Resolution(0); math.Abs(got-156543.03392804097) > 1e-9 {
		t.Errorf("Resolution(0) = %v", got)
	}
	if got := Resolution(1); math.Abs(got-Resolution(0)/2) > 1e-9 {
		t.Errorf("Resolution(1) = %v, want half of zoom 0", got)
	}
}

func TestAddLayerOrdersByZIndex(t *testing.T) {
	m := New(Config{Target: "map"}, 1)
	river := &Layer{ID: "river", ZIndex: 1}
	rapids := &Layer{ID: "rapids", ZIndex: 2}
	spots := &Layer{ID: "spots", ZIndex: 2}
	access := &Layer{ID: "access", ZIndex: 4}

	m.AddLayer(access)
	m.AddLayer(rapids)
	m.AddLayer(river)
	m.AddLayer(spots)
	m.AddLayer(spots)

	want := []string{"river", "rapids", "spots", "access"}
	got := m.Layers()
	if len(got) != len(want) {
		t.Fatalf("got %d layers, want %d", len(got), len(want))
	}
	for i, l := range got {
		if l.ID != want[i] {
			t.Errorf("layer %d = %s, want %s", i, l.ID, want[i])
		}
	}

	m.RemoveLayer(rapids)
	m.RemoveLayer(rapids)
	if n := len(m.Layers()); n != 3 {
		t.Errorf("after remove got %d layers, want 3", n)
	}
}

type clickRecorder struct{ clicks []ClickEvent }

func (c *clickRecorder) HandleClick(ev ClickEvent) { c.clicks = append(c.clicks, ev) }

func TestInteractionsAndOverlays(t *testing.T) {
	m := New(Config{}, 1)
	rec := &clickRecorder{}
	m.AddInteraction(rec)
	m.Click(ClickEvent{Point: orb.Point{1, 2}, Zoom: 3})
	if len(rec.clicks) != 1 {
		t.Fatalf("got %d clicks, want 1", len(rec.clicks))
	}
	m.RemoveInteraction(rec)
	m.Click(ClickEvent{})
	if len(rec.clicks) != 1 {
		t.Errorf("removed interaction still received clicks")
	}

	o := &Overlay{ID: "info"}
	m.AddOverlay(o)
	m.AddOverlay(o)
	if n := len(m.Overlays()); n != 1 {
		t.Errorf("got %d overlays, want 1", n)
	}
	o.SetPosition(&orb.Point{5, 5})
	if o.Position == nil {
		t.Error("overlay position not set")
	}
	m.RemoveOverlay(o)
	if n := len(m.Overlays()); n != 0 {
		t.Errorf("got %d overlays after remove, want 0", n)
	}
}

func TestFitExtent(t *testing.T) {
	m := New(Config{Width: 1200, Height: 800}, 1)
	b := orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{1000 * Resolution(10), 100}}
	m.FitExtent(b, Padding{100, 100, 100, 100})

	v := m.View()
	if !v.Fitted {
		t.Fatal("view not fitted")
	}
	if v.Center != b.Center() {
		t.Errorf("center = %v, want %v", v.Center, b.Center())
	}
	if math.Abs(v.Zoom-10) > 1e-9 {
		t.Errorf("zoom = %v, want 10", v.Zoom)
	}

	m.FitExtent(orb.Bound{Min: orb.Point{3, 3}, Max: orb.Point{3, 3}}, Padding{})
	if v := m.View(); v.Zoom != MaxZoom {
		t.Errorf("point extent zoom = %v, want %d", v.Zoom, MaxZoom)
	}
}

func TestHostLifecycle(t *testing.T) {
	var h Host
	if _, ok := h.Map(); ok {
		t.Fatal("map published before mount")
	}

	first := h.Mount(Config{Target: "map"})
	got, ok := h.Map()
	if !ok || got != first {
		t.Fatal("mounted map not published")
	}

	h.Unmount()
	if _, ok := h.Map(); ok {
		t.Error("map still published after unmount")
	}
	if first.Target() != "" {
		t.Error("unmounted map still attached to its target")
	}

	second := h.Mount(Config{Target: "map"})
	if second == first {
		t.Error("remount reused the old map")
	}
	if second.Generation() != 2 || h.Generation() != 2 {
		t.Errorf("generation = %d, want 2", second.Generation())
	}
}

func TestSourceExtent(t *testing.T) {
	s := NewSource()
	if _, ok := s.Extent(); ok {
		t.Error("empty source has an extent")
	}
	s.AddFeatures([]*geojson.Feature{
		geojson.NewFeature(orb.Point{0, 0}),
		geojson.NewFeature(orb.LineString{{5, 5}, {10, -2}}),
	})
	b, ok := s.Extent()
	if !ok {
		t.Fatal("no extent")
	}
	want := orb.Bound{Min: orb.Point{0, -2}, Max: orb.Point{10, 5}}
	if b != want {
		t.Errorf("extent = %v, want %v", b, want)
	}
	s.Clear()
	if s.Len() != 0 {
		t.Errorf("len after clear = %d", s.Len())
	}
	if s.State().String() != "loading" {
		t.Errorf("state = %s, want loading", s.State())
	}
}

func TestLoopRunsInOrder(t *testing.T) {
	l := NewLoop(nil)
	defer l.Close()

	var got []int
	for i := 0; i < 10; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	var n int
	if err := l.Do(context.Background(), func() { n = len(got) }); err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Fatalf("ran %d posted tasks before Do, want 10", n)
	}
	for i, v := range got {
		if v != i {
			t.Errorf("task %d ran as %d", i, v)
		}
	}
}

func TestLoopSurvivesPanic(t *testing.T) {
	l := NewLoop(nil)
	defer l.Close()

	if err := l.Do(context.Background(), func() { panic("boom") }); err != nil {
		t.Fatalf("Do after panic: %v", err)
	}
	ran := false
	if err := l.Do(context.Background(), func() { ran = true }); err != nil || !ran {
		t.Fatalf("loop stopped after panic: %v", err)
	}
}

func TestLoopClosed(t *testing.T) {
	l := NewLoop(nil)
	l.Close()
	l.Close()
	if l.Post(func() {}) {
		t.Error("Post succeeded on a closed loop")
	}
	if err := l.Do(context.Background(), func() {}); err != ErrLoopClosed {
		t.Errorf("Do = %v, want ErrLoopClosed", err)
	}
}

func TestLoopDoContext(t *testing.T) {
	l := NewLoop(nil)
	defer l.Close()

	block := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	l.Post(func() { <-block; wg.Done() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := l.Do(ctx, func() {}); err != context.DeadlineExceeded {
		t.Errorf("Do = %v, want deadline exceeded", err)
	}
	close(block)
	wg.Wait()
}
