package presenter

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
	"github.com/joeblew999/plat-river/internal/metrics"
)

// minRingCoords is the smallest valid closed ring: a triangle plus its
// closing coordinate.
const minRingCoords = 4

// BufferResult describes one Recompute call.
type BufferResult struct {
	Applied    bool    `json:"applied" doc:"Whether the displayed geometry changed"`
	Distance   float64 `json:"distance" doc:"Buffer distance in metres"`
	Points     int     `json:"points" doc:"Coordinates in the buffered outer ring of the largest part"`
	Parts      int     `json:"parts" doc:"Polygons in the buffered outline; more than one once a narrow neck is shrunk away"`
	Degenerate bool    `json:"degenerate" doc:"The buffered outer ring had fewer than 4 coordinates or collapsed"`
	Engine     string  `json:"engine" doc:"Buffer engine that produced the result"`
}

// BufferOptions configures a BufferLayer.
type BufferOptions struct {
	Spec   catalog.LayerSpec
	Engine geo.Offsetter
	Fetch  loader.FetchFunc
	Loop   loader.Poster
	Logger *slog.Logger

	// Loaded is called on the loop when the dataset arrives.
	Loaded func(features int, err error)
}

// BufferLayer draws the river outline and redraws it buffered whenever a
// distance is confirmed. The loaded features are kept as an immutable
// base; every recompute starts from the base, never from what is
// currently displayed.
type BufferLayer struct {
	opts   BufferOptions
	logger *slog.Logger

	vp     mapview.Viewport
	source *mapview.Source
	layer  *mapview.Layer
	base   []*geojson.Feature
	task   *loader.Task
}

// NewBufferLayer builds an unmounted presenter.
func NewBufferLayer(opts BufferOptions) *BufferLayer {
	if opts.Engine == nil {
		opts.Engine = geo.GEOSOffsetter{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &BufferLayer{opts: opts, logger: logger.With("layer", opts.Spec.ID)}
}

// Mount adds the (still empty) layer to vp and starts loading.
func (b *BufferLayer) Mount(ctx context.Context, vp mapview.Viewport) {
	b.vp = vp
	b.source = mapview.NewSource()
	b.base = nil
	b.layer = &mapview.Layer{
		ID:     b.opts.Spec.ID,
		Name:   b.opts.Spec.Name,
		Source: b.source,
		Style:  b.opts.Spec.Style,
		ZIndex: b.opts.Spec.Order(),
	}
	vp.AddLayer(b.layer)

	source := b.source
	b.task = loader.Start(ctx, b.opts.Loop, b.opts.Fetch, b.opts.Spec.File, func(fc *geojson.FeatureCollection, err error) {
		b.loaded(source, fc, err)
	})
}

func (b *BufferLayer) loaded(source *mapview.Source, fc *geojson.FeatureCollection, err error) {
	if err != nil {
		source.SetState(mapview.StateFailed, err)
		b.logger.Warn("river outline failed to load", "file", b.opts.Spec.File, "error", err)
		metrics.LayerLoadsTotal.WithLabelValues(b.opts.Spec.ID, "error").Inc()
		if b.opts.Loaded != nil {
			b.opts.Loaded(0, err)
		}
		return
	}

	base := make([]*geojson.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		base = append(base, cloneFeature(f))
	}
	b.base = base
	source.AddFeatures(fc.Features)
	source.SetState(mapview.StateReady, nil)

	b.logger.Debug("river outline loaded", "features", len(base))
	metrics.LayerLoadsTotal.WithLabelValues(b.opts.Spec.ID, "ok").Inc()
	if b.opts.Loaded != nil {
		b.opts.Loaded(len(base), nil)
	}
}

// Recompute replaces the displayed outline with the first base feature's
// outer ring buffered by distance metres. It is a no-op until the base
// and the display source both hold features. A buffer that collapses to
// nothing, a river feature without a ring and an engine that cannot
// resolve the shape all leave the display unchanged.
func (b *BufferLayer) Recompute(ctx context.Context, distance float64) (BufferResult, error) {
	res := BufferResult{Distance: distance, Engine: b.opts.Engine.Name()}
	if len(b.base) == 0 || b.source == nil || b.source.Len() == 0 {
		return res, nil
	}

	ring, ok := outerRing(b.base[0].Geometry)
	if !ok {
		b.logger.Warn("river feature has no outer ring, buffer skipped", "geometry", fmt.Sprintf("%T", b.base[0].Geometry))
		return res, nil
	}

	lonlat := geo.CloseRing(geo.RingToLonLat(ring))

	start := time.Now()
	buffered, err := geo.Buffer(ctx, b.opts.Engine, orb.Polygon{lonlat}, distance)
	elapsed := time.Since(start)
	metrics.RecomputesTotal.WithLabelValues(res.Engine).Inc()
	metrics.RecomputeDurationMs.WithLabelValues(res.Engine).Observe(float64(elapsed.Microseconds()) / 1000)
	switch {
	case errors.Is(err, geo.ErrSelfIntersecting):
		metrics.RecomputeErrorsTotal.WithLabelValues(res.Engine).Inc()
		b.logger.Warn("buffer engine could not resolve the outline, buffer skipped", "distance", distance, "error", err)
		return res, nil
	case err != nil:
		metrics.RecomputeErrorsTotal.WithLabelValues(res.Engine).Inc()
		return res, fmt.Errorf("buffer by %.2fm: %w", distance, err)
	}

	if len(buffered) > 0 {
		res.Points = len(buffered[0][0])
		res.Parts = len(buffered)
	}
	if res.Points < minRingCoords {
		res.Degenerate = true
		metrics.DegenerateBuffersTotal.Inc()
		b.logger.Warn("buffer produced an invalid polygon", "distance", distance, "points", res.Points)
	}
	if len(buffered) == 0 {
		return res, nil
	}

	var display orb.Geometry = buffered
	if len(buffered) == 1 {
		display = buffered[0]
	}
	b.source.Clear()
	b.source.AddFeature(geojson.NewFeature(geo.FromLonLat(display)))
	res.Applied = true
	return res, nil
}

// Displayed returns a copy of the geometry currently drawn, or nil.
func (b *BufferLayer) Displayed() orb.Geometry {
	if b.source == nil || b.source.Len() == 0 {
		return nil
	}
	g := b.source.Features()[0].Geometry
	if g == nil {
		return nil
	}
	return orb.Clone(g)
}

// Base returns a copy of the unbuffered geometry, or nil before load.
func (b *BufferLayer) Base() orb.Geometry {
	if len(b.base) == 0 || b.base[0].Geometry == nil {
		return nil
	}
	return orb.Clone(b.base[0].Geometry)
}

// Loaded reports whether the base geometry is available.
func (b *BufferLayer) Loaded() bool { return len(b.base) > 0 }

// Source is the display source; nil while unmounted.
func (b *BufferLayer) Source() *mapview.Source { return b.source }

// Spec is the river layer spec.
func (b *BufferLayer) Spec() catalog.LayerSpec { return b.opts.Spec }

// Engine is the buffer engine in use.
func (b *BufferLayer) Engine() geo.Offsetter { return b.opts.Engine }

// Unmount removes the layer and abandons any pending load.
func (b *BufferLayer) Unmount() {
	if b.task != nil {
		b.task.Cancel()
		b.task = nil
	}
	if b.vp != nil && b.layer != nil {
		b.vp.RemoveLayer(b.layer)
	}
	b.vp, b.layer, b.source, b.base = nil, nil, nil, nil
}

func outerRing(g orb.Geometry) (orb.Ring, bool) {
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) > 0 {
			return g[0].Clone(), true
		}
	case orb.MultiPolygon:
		if len(g) > 0 && len(g[0]) > 0 {
			return g[0][0].Clone(), true
		}
	}
	return nil, false
}

func cloneFeature(f *geojson.Feature) *geojson.Feature {
	c := geojson.NewFeature(nil)
	c.ID = f.ID
	if f.Geometry != nil {
		c.Geometry = orb.Clone(f.Geometry)
	}
	c.Properties = f.Properties.Clone()
	return c
}
