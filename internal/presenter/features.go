package presenter

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/joeblew999/plat-river/internal/catalog"
	"github.com/joeblew999/plat-river/internal/geo"
	"github.com/joeblew999/plat-river/internal/loader"
	"github.com/joeblew999/plat-river/internal/mapview"
	"github.com/joeblew999/plat-river/internal/metrics"
)

// HitTolerancePx is how close, in screen pixels, a click must land to a
// point or line to select it.
const HitTolerancePx = 6

// FitPadding surrounds fitted extents.
var FitPadding = mapview.Padding{100, 100, 100, 100}

// NameProperty holds a feature's display name.
const NameProperty = "Name"

// Selection is the clicked feature's name and geographic position.
type Selection struct {
	Name     string    `json:"name" doc:"Value of the feature's Name property" example:"Palmer Rapids"`
	Position orb.Point `json:"position" doc:"Longitude/latitude of the selected position"`
	LayerID  string    `json:"layerId" doc:"Layer the feature belongs to" example:"rapid_spots"`
}

// FeatureHooks are called on the loop as state changes.
type FeatureHooks struct {
	Loaded   func(layerID string, features int, err error)
	Fitted   func(v mapview.View)
	Selected func(sel *Selection) // nil when cleared
}

// FeatureOptions configures FeatureLayers.
type FeatureOptions struct {
	Specs  []catalog.LayerSpec
	Fetch  loader.FetchFunc
	Loop   loader.Poster
	Logger *slog.Logger
	Hooks  FeatureHooks
}

// trackedLayer is one catalog entry on the map.
type trackedLayer struct {
	spec   catalog.LayerSpec
	layer  *mapview.Layer
	source *mapview.Source
	index  *rtreego.Rtree
	task   *loader.Task
	added  int
}

// indexedFeature wraps a feature for R-tree storage.
type indexedFeature struct {
	feature *geojson.Feature
	seq     int
}

// Bounds implements rtreego.Spatial. Points get a tiny box since the tree
// rejects zero-length sides.
func (f *indexedFeature) Bounds() rtreego.Rect {
	b := f.feature.Geometry.Bound()
	const epsilon = 1e-3
	w := math.Max(b.Max[0]-b.Min[0], epsilon)
	h := math.Max(b.Max[1]-b.Min[1], epsilon)
	rect, _ := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
	return rect
}

// FeatureLayers draws the catalog's point and line datasets, fits the view
// to them and resolves clicks to a Selection.
type FeatureLayers struct {
	opts   FeatureOptions
	logger *slog.Logger

	vp       mapview.Viewport
	overlay  *mapview.Overlay
	layers   []*trackedLayer
	byID     map[string]*trackedLayer
	selected *Selection
	seq      int
}

// NewFeatureLayers builds an unmounted presenter.
func NewFeatureLayers(opts FeatureOptions) *FeatureLayers {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FeatureLayers{opts: opts, logger: logger}
}

// Mount adds the info overlay, one layer per spec and the click handler.
// Layers go on the map at once and fill in as their loads complete.
func (fl *FeatureLayers) Mount(ctx context.Context, vp mapview.Viewport) {
	fl.vp = vp
	fl.overlay = &mapview.Overlay{ID: "info", Positioning: "center-center"}
	fl.byID = make(map[string]*trackedLayer, len(fl.opts.Specs))
	fl.layers = nil
	fl.selected = nil
	vp.AddOverlay(fl.overlay)

	for _, spec := range fl.opts.Specs {
		fl.seq++
		t := &trackedLayer{
			spec:   spec,
			source: mapview.NewSource(),
			added:  fl.seq,
		}
		t.layer = &mapview.Layer{
			ID:     spec.ID,
			Name:   spec.Name,
			Source: t.source,
			Style:  spec.Style,
			ZIndex: spec.Order(),
		}
		fl.layers = append(fl.layers, t)
		fl.byID[spec.ID] = t
		vp.AddLayer(t.layer)

		t.task = loader.Start(ctx, fl.opts.Loop, fl.opts.Fetch, spec.File, func(fc *geojson.FeatureCollection, err error) {
			fl.loaded(t, fc, err)
		})
	}

	vp.AddInteraction(fl)
}

func (fl *FeatureLayers) loaded(t *trackedLayer, fc *geojson.FeatureCollection, err error) {
	if err != nil {
		t.source.SetState(mapview.StateFailed, err)
		fl.logger.Warn("layer failed to load", "layer", t.spec.ID, "file", t.spec.File, "error", err)
		metrics.LayerLoadsTotal.WithLabelValues(t.spec.ID, "error").Inc()
		if fl.opts.Hooks.Loaded != nil {
			fl.opts.Hooks.Loaded(t.spec.ID, 0, err)
		}
		return
	}

	t.source.AddFeatures(fc.Features)
	t.source.SetState(mapview.StateReady, nil)

	t.index = rtreego.NewTree(2, 25, 50)
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}
		t.index.Insert(&indexedFeature{feature: f, seq: i})
	}

	fl.logger.Debug("layer loaded", "layer", t.spec.ID, "features", len(fc.Features))
	metrics.LayerLoadsTotal.WithLabelValues(t.spec.ID, "ok").Inc()
	if fl.opts.Hooks.Loaded != nil {
		fl.opts.Hooks.Loaded(t.spec.ID, len(fc.Features), nil)
	}
	fl.fit()
}

// fit frames the union of every extent loaded so far.
func (fl *FeatureLayers) fit() {
	var union orb.Bound
	found := false
	for _, t := range fl.layers {
		b, ok := t.source.Extent()
		if !ok {
			continue
		}
		if !found {
			union, found = b, true
			continue
		}
		union = union.Union(b)
	}
	if !found || fl.vp == nil {
		return
	}
	fl.vp.FitExtent(union, FitPadding)
	if fl.opts.Hooks.Fitted != nil {
		fl.opts.Hooks.Fitted(fl.vp.View())
	}
}

// HandleClick implements mapview.Interaction.
func (fl *FeatureLayers) HandleClick(ev mapview.ClickEvent) {
	fl.Select(ev.Point, ev.Zoom)
}

// Select resolves a click at p (display projection) at the given zoom.
// The top-most feature within tolerance becomes the selection. A miss, or
// a hit on a feature without a name, clears it.
func (fl *FeatureLayers) Select(p orb.Point, zoom float64) (*Selection, bool) {
	tol := HitTolerancePx * mapview.Resolution(zoom)

	t, f := fl.hit(p, tol)
	if f == nil {
		metrics.SelectionsTotal.WithLabelValues("miss").Inc()
		fl.clear()
		return nil, false
	}
	name := f.Properties.MustString(NameProperty, "")
	if name == "" {
		metrics.SelectionsTotal.WithLabelValues("unnamed").Inc()
		fl.clear()
		return nil, false
	}

	anchor, ok := f.Geometry.(orb.Point)
	if !ok {
		anchor = nearestVertex(f.Geometry, p)
	}
	sel := &Selection{
		Name:     name,
		Position: geo.PointToLonLat(anchor),
		LayerID:  t.spec.ID,
	}
	fl.selected = sel
	if fl.overlay != nil {
		fl.overlay.SetPosition(&anchor)
	}

	metrics.SelectionsTotal.WithLabelValues("hit").Inc()
	if fl.opts.Hooks.Selected != nil {
		fl.opts.Hooks.Selected(sel)
	}
	c := *sel
	return &c, true
}

// ClearSelection hides the overlay and forgets the selection.
func (fl *FeatureLayers) ClearSelection() { fl.clear() }

func (fl *FeatureLayers) clear() {
	if fl.overlay != nil {
		fl.overlay.SetPosition(nil)
	}
	had := fl.selected != nil
	fl.selected = nil
	if had && fl.opts.Hooks.Selected != nil {
		fl.opts.Hooks.Selected(nil)
	}
}

// hit walks the layers from the top of the draw order down. Within a
// layer the closest feature wins, and among equals the last one drawn.
func (fl *FeatureLayers) hit(p orb.Point, tol float64) (*trackedLayer, *geojson.Feature) {
	order := make([]*trackedLayer, len(fl.layers))
	copy(order, fl.layers)
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].layer.ZIndex != order[j].layer.ZIndex {
			return order[i].layer.ZIndex > order[j].layer.ZIndex
		}
		return order[i].added > order[j].added
	})

	query, err := rtreego.NewRect(rtreego.Point{p[0] - tol, p[1] - tol}, []float64{2 * tol, 2 * tol})
	if err != nil {
		return nil, nil
	}

	for _, t := range order {
		if t.index == nil {
			continue
		}
		var best *indexedFeature
		bestDist := math.Inf(1)
		for _, s := range t.index.SearchIntersect(query) {
			cand := s.(*indexedFeature)
			d := distanceTo(cand.feature.Geometry, p)
			if d > tol {
				continue
			}
			if d < bestDist || (d == bestDist && cand.seq > best.seq) {
				best, bestDist = cand, d
			}
		}
		if best != nil {
			return t, best.feature
		}
	}
	return nil, nil
}

// Selected returns the current selection.
func (fl *FeatureLayers) Selected() (*Selection, bool) {
	if fl.selected == nil {
		return nil, false
	}
	c := *fl.selected
	return &c, true
}

// Overlay is the info overlay; nil while unmounted.
func (fl *FeatureLayers) Overlay() *mapview.Overlay { return fl.overlay }

// Source returns the display source for a layer.
func (fl *FeatureLayers) Source(id string) (*mapview.Source, bool) {
	t, ok := fl.byID[id]
	if !ok {
		return nil, false
	}
	return t.source, true
}

// States reports each layer's load state in registration order.
func (fl *FeatureLayers) States() map[string]mapview.State {
	out := make(map[string]mapview.State, len(fl.layers))
	for _, t := range fl.layers {
		out[t.spec.ID] = t.source.State()
	}
	return out
}

// Unmount removes everything Mount added and abandons pending loads.
func (fl *FeatureLayers) Unmount() {
	for _, t := range fl.layers {
		if t.task != nil {
			t.task.Cancel()
		}
		if fl.vp != nil {
			fl.vp.RemoveLayer(t.layer)
		}
	}
	if fl.vp != nil {
		fl.vp.RemoveInteraction(fl)
		if fl.overlay != nil {
			fl.vp.RemoveOverlay(fl.overlay)
		}
	}
	fl.vp, fl.overlay, fl.layers, fl.byID, fl.selected = nil, nil, nil, nil, nil
}

// distanceTo is zero inside a polygon and the planar distance otherwise.
func distanceTo(g orb.Geometry, p orb.Point) float64 {
	switch g := g.(type) {
	case orb.Polygon:
		if planar.PolygonContains(g, p) {
			return 0
		}
	case orb.MultiPolygon:
		if planar.MultiPolygonContains(g, p) {
			return 0
		}
	case orb.Bound:
		if g.Contains(p) {
			return 0
		}
	}
	return planar.DistanceFrom(g, p)
}

// nearestVertex is the coordinate of g closest to p.
func nearestVertex(g orb.Geometry, p orb.Point) orb.Point {
	best := p
	bestDist := math.Inf(1)
	visit := func(q orb.Point) {
		if d := planar.DistanceSquared(q, p); d < bestDist {
			best, bestDist = q, d
		}
	}
	var walk func(orb.Geometry)
	walk = func(g orb.Geometry) {
		switch g := g.(type) {
		case orb.Point:
			visit(g)
		case orb.MultiPoint:
			for _, q := range g {
				visit(q)
			}
		case orb.LineString:
			for _, q := range g {
				visit(q)
			}
		case orb.Ring:
			for _, q := range g {
				visit(q)
			}
		case orb.MultiLineString:
			for _, ls := range g {
				walk(ls)
			}
		case orb.Polygon:
			for _, r := range g {
				walk(r)
			}
		case orb.MultiPolygon:
			for _, poly := range g {
				walk(poly)
			}
		case orb.Collection:
			for _, c := range g {
				walk(c)
			}
		case orb.Bound:
			walk(g.ToRing())
		}
	}
	walk(g)
	return best
}
