package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-river/internal/catalog"
	"github.com/joeblew999/plat-river/internal/geo"
	"github.com/joeblew999/plat-river/internal/loader"
	"github.com/joeblew999/plat-river/internal/mapview"
	"github.com/joeblew999/plat-river/internal/presenter"
)

// ErrNotMounted is returned by operations that need a mounted map.
var ErrNotMounted = errors.New("map not mounted")

// RiverOptions configures a RiverMap.
type RiverOptions struct {
	Catalog catalog.Catalog
	Fetch   loader.FetchFunc
	Engine  geo.Offsetter
	Bus     *EventBus
	Logger  *slog.Logger
	Target  string
}

// RiverMap is one map session: the host, its presenters and the slider,
// all driven from a single event loop. Every exported method is safe to
// call from any goroutine.
type RiverMap struct {
	opts   RiverOptions
	logger *slog.Logger
	loop   *mapview.Loop

	// owned by the loop
	host     mapview.Host
	features *presenter.FeatureLayers
	river    *presenter.BufferLayer
	control  *presenter.DistanceControl
	last     presenter.BufferResult
	lastErr  error
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewRiverMap wires a session. Nothing is mounted until Start.
func NewRiverMap(opts RiverOptions) *RiverMap {
	if opts.Bus == nil {
		opts.Bus = DefaultBus
	}
	if opts.Engine == nil {
		opts.Engine = geo.GEOSOffsetter{}
	}
	if opts.Target == "" {
		opts.Target = "map"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &RiverMap{
		opts:   opts,
		logger: logger,
		loop:   mapview.NewLoop(logger),
	}
	r.features = presenter.NewFeatureLayers(presenter.FeatureOptions{
		Specs:  opts.Catalog.Layers,
		Fetch:  opts.Fetch,
		Loop:   r.loop,
		Logger: logger,
		Hooks: presenter.FeatureHooks{
			Loaded: func(id string, n int, err error) {
				action := ActionLoaded
				if err != nil {
					action = ActionFailed
				}
				r.publish(ResourceLayers, action, id)
			},
			Fitted: func(mapview.View) { r.publish(ResourceView, ActionFitted, "") },
			Selected: func(sel *presenter.Selection) {
				if sel == nil {
					r.publish(ResourceSelection, ActionCleared, "")
					return
				}
				r.publish(ResourceSelection, ActionUpdated, sel.LayerID)
			},
		},
	})
	r.river = presenter.NewBufferLayer(presenter.BufferOptions{
		Spec:   opts.Catalog.River,
		Engine: opts.Engine,
		Fetch:  opts.Fetch,
		Loop:   r.loop,
		Logger: logger,
		Loaded: func(n int, err error) {
			action := ActionLoaded
			if err != nil {
				action = ActionFailed
			}
			r.publish(ResourceLayers, action, opts.Catalog.River.ID)
		},
	})
	r.control = presenter.NewDistanceControl(opts.Catalog.Slider, r.recompute)
	return r
}

// publish runs on the loop.
func (r *RiverMap) publish(resource, action, id string) {
	r.opts.Bus.Publish(Event{
		Resource:   resource,
		Action:     action,
		ID:         id,
		Generation: r.host.Generation(),
	})
}

// recompute is the DistanceControl callback; it runs on the loop.
func (r *RiverMap) recompute(distance float64) {
	ctx := r.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	r.last, r.lastErr = r.river.Recompute(ctx, distance)
	if r.lastErr != nil {
		r.logger.Error("buffer recompute failed", "distance", distance, "error", r.lastErr)
		return
	}
	if r.last.Applied {
		r.publish(ResourceBuffer, ActionUpdated, r.opts.Catalog.River.ID)
	}
}

// Start mounts the map and its presenters. Loads run in the background.
func (r *RiverMap) Start(ctx context.Context) error {
	return r.loop.Do(ctx, r.mount)
}

func (r *RiverMap) mount() {
	if _, ok := r.host.Map(); ok {
		return
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	cat := r.opts.Catalog
	m := r.host.Mount(mapview.Config{
		Target:  r.opts.Target,
		TileURL: cat.View.TileURL,
		Center:  orb.Point(cat.View.Center),
		Zoom:    cat.View.Zoom,
	})
	r.river.Mount(r.ctx, m)
	r.features.Mount(r.ctx, m)
	r.last, r.lastErr = presenter.BufferResult{Engine: r.opts.Engine.Name()}, nil
	r.publish(ResourceView, ActionMounted, "")
	r.logger.Info("map mounted", "generation", m.Generation(), "layers", len(cat.Layers)+1)
}

// Stop unmounts the presenters in reverse order, then the map.
func (r *RiverMap) Stop(ctx context.Context) error {
	return r.loop.Do(ctx, r.unmount)
}

func (r *RiverMap) unmount() {
	if _, ok := r.host.Map(); !ok {
		return
	}
	r.features.Unmount()
	r.river.Unmount()
	r.host.Unmount()
	if r.cancel != nil {
		r.cancel()
	}
	r.ctx, r.cancel = nil, nil
}

// Restart remounts, producing a new map instance.
func (r *RiverMap) Restart(ctx context.Context) error {
	return r.loop.Do(ctx, func() {
		r.unmount()
		r.mount()
	})
}

// Close stops the session and its loop.
func (r *RiverMap) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = r.Stop(ctx)
	r.loop.Close()
}

// Bus is the event bus the session publishes to.
func (r *RiverMap) Bus() *EventBus { return r.opts.Bus }

// Catalog is the catalog the session draws.
func (r *RiverMap) Catalog() catalog.Catalog { return r.opts.Catalog }

// Engine names the buffer engine.
func (r *RiverMap) Engine() string { return r.opts.Engine.Name() }

// do runs fn on the loop, failing with ErrNotMounted when no map is up.
func (r *RiverMap) do(ctx context.Context, fn func(m *mapview.Map) error) error {
	var err error
	if lerr := r.loop.Do(ctx, func() {
		m, ok := r.host.Map()
		if !ok {
			err = ErrNotMounted
			return
		}
		err = fn(m)
	}); lerr != nil {
		return lerr
	}
	return err
}

// SetWaterLevel updates the pending slider value without recomputing.
func (r *RiverMap) SetWaterLevel(ctx context.Context, level float64) (WaterLevel, error) {
	var wl WaterLevel
	err := r.loop.Do(ctx, func() {
		r.control.SetPending(level)
		wl = r.waterLevel()
		r.publish(ResourceSlider, ActionUpdated, "")
	})
	return wl, err
}

// WaterLevel reads the slider state.
func (r *RiverMap) WaterLevel(ctx context.Context) (WaterLevel, error) {
	var wl WaterLevel
	err := r.loop.Do(ctx, func() { wl = r.waterLevel() })
	return wl, err
}

func (r *RiverMap) waterLevel() WaterLevel {
	cfg := r.control.Config()
	return WaterLevel{
		Level:    r.control.Pending(),
		Distance: r.control.Distance(),
		Min:      cfg.Min,
		Max:      cfg.Max,
		Step:     cfg.Step,
	}
}

// ResetWaterLevel returns the pending value to its initial level.
func (r *RiverMap) ResetWaterLevel(ctx context.Context) (WaterLevel, error) {
	var wl WaterLevel
	err := r.loop.Do(ctx, func() {
		r.control.Reset()
		wl = r.waterLevel()
		r.publish(ResourceSlider, ActionUpdated, "")
	})
	return wl, err
}

// ApplyWaterLevel confirms the pending value and recomputes the buffer.
func (r *RiverMap) ApplyWaterLevel(ctx context.Context) (presenter.BufferResult, error) {
	var res presenter.BufferResult
	err := r.do(ctx, func(*mapview.Map) error {
		r.control.Confirm()
		res = r.last
		return r.lastErr
	})
	return res, err
}

// BufferBy recomputes the buffer at an explicit distance in metres.
func (r *RiverMap) BufferBy(ctx context.Context, distance float64) (presenter.BufferResult, error) {
	var res presenter.BufferResult
	err := r.do(ctx, func(*mapview.Map) error {
		r.recompute(distance)
		res = r.last
		return r.lastErr
	})
	return res, err
}

// Buffer returns the displayed river geometry as a lon/lat feature, which
// is nil before the outline has loaded.
func (r *RiverMap) Buffer(ctx context.Context) (*geojson.Feature, presenter.BufferResult, error) {
	var (
		feat *geojson.Feature
		res  presenter.BufferResult
	)
	err := r.do(ctx, func(*mapview.Map) error {
		res = r.last
		if g := r.river.Displayed(); g != nil {
			feat = geojson.NewFeature(geo.ToLonLat(g))
			feat.Properties["distance"] = res.Distance
		}
		return nil
	})
	return feat, res, err
}

// Select resolves a click at a lon/lat position and zoom level.
func (r *RiverMap) Select(ctx context.Context, lonlat orb.Point, zoom float64) (*presenter.Selection, error) {
	var sel *presenter.Selection
	err := r.do(ctx, func(m *mapview.Map) error {
		m.Click(mapview.ClickEvent{Point: geo.PointFromLonLat(lonlat), Zoom: zoom})
		sel, _ = r.features.Selected()
		return nil
	})
	return sel, err
}

// Selection returns the current selection, or nil.
func (r *RiverMap) Selection(ctx context.Context) (*presenter.Selection, error) {
	var sel *presenter.Selection
	err := r.do(ctx, func(*mapview.Map) error {
		sel, _ = r.features.Selected()
		return nil
	})
	return sel, err
}

// ClearSelection drops the selection and hides the overlay.
func (r *RiverMap) ClearSelection(ctx context.Context) error {
	return r.do(ctx, func(*mapview.Map) error {
		r.features.ClearSelection()
		return nil
	})
}

// LayerFeatures returns a layer's loaded features in lon/lat. The river
// layer returns what is currently displayed.
func (r *RiverMap) LayerFeatures(ctx context.Context, id string) (*geojson.FeatureCollection, error) {
	var fc *geojson.FeatureCollection
	err := r.do(ctx, func(*mapview.Map) error {
		var src *mapview.Source
		if id == r.opts.Catalog.River.ID {
			src = r.river.Source()
		} else {
			s, ok := r.features.Source(id)
			if !ok {
				return fmt.Errorf("%s: %w", id, catalog.ErrNotFound)
			}
			src = s
		}
		fc = geojson.NewFeatureCollection()
		for _, f := range src.Features() {
			c := geojson.NewFeature(geo.ToLonLat(f.Geometry))
			c.ID = f.ID
			c.Properties = f.Properties.Clone()
			fc.Append(c)
		}
		return nil
	})
	return fc, err
}

// Snapshot reads the whole session state at once.
func (r *RiverMap) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := r.loop.Do(ctx, func() {
		snap.WaterLevel = r.waterLevel()
		snap.Buffer = r.last
		snap.Layers = []LayerState{}

		m, ok := r.host.Map()
		if !ok {
			snap.View.Generation = r.host.Generation()
			return
		}
		snap.Mounted = true
		snap.View = viewState(m)
		snap.Selection, _ = r.features.Selected()
		for _, spec := range r.opts.Catalog.Layers {
			src, _ := r.features.Source(spec.ID)
			snap.Layers = append(snap.Layers, layerState(spec, src))
		}
		snap.River = layerState(r.opts.Catalog.River, r.river.Source())
	})
	return snap, err
}

// WaitLoaded blocks until no layer is still loading.
func (r *RiverMap) WaitLoaded(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		snap, err := r.Snapshot(ctx)
		if err != nil {
			return err
		}
		if !snap.Mounted {
			return ErrNotMounted
		}
		pending := snap.River.State == mapview.StateLoading.String()
		for _, l := range snap.Layers {
			pending = pending || l.State == mapview.StateLoading.String()
		}
		if !pending {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func viewState(m *mapview.Map) ViewState {
	v := m.View()
	vs := ViewState{
		Center:     geo.PointToLonLat(v.Center),
		Zoom:       v.Zoom,
		Fitted:     v.Fitted,
		Generation: m.Generation(),
		TileURL:    m.Base().URL,
	}
	if v.Fitted {
		lo, hi := geo.PointToLonLat(v.Extent.Min), geo.PointToLonLat(v.Extent.Max)
		vs.Extent = []float64{lo[0], lo[1], hi[0], hi[1]}
	}
	return vs
}

func layerState(spec catalog.LayerSpec, src *mapview.Source) LayerState {
	ls := LayerState{
		ID:        spec.ID,
		Name:      spec.Name,
		File:      spec.File,
		State:     mapview.StateLoading.String(),
		DrawOrder: spec.Order(),
		Style:     spec.Style,
	}
	if src == nil {
		return ls
	}
	ls.State = src.State().String()
	ls.Features = src.Len()
	if err := src.Err(); err != nil {
		ls.Error = err.Error()
	}
	return ls
}
