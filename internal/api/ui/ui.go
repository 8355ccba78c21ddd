// Package ui contains Datastar SSE handlers for the map page.
package ui

import (
	"html/template"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-river/internal/humastar"
	"github.com/joeblew999/plat-river/internal/presenter"
	"github.com/joeblew999/plat-river/internal/service"
)

// Signal names bound by the map page. data-bind lowercases them.
const (
	SignalPrefix   = "water"
	SignalLevel    = SignalPrefix + "level"
	SignalDistance = SignalPrefix + "distance"
	SignalBuffer   = "buffer"
	SignalLon      = "clicklon"
	SignalLat      = "clicklat"
	SignalZoom     = "clickzoom"
)

// BasePath is the slider resource; sibling paths hold events and select.
const BasePath = "/api/v1/ui/water-level"

// MapHandler serves the map page's Datastar endpoints.
type MapHandler struct {
	humastar.Handler
	river *service.RiverMap
}

func NewMapHandler(river *service.RiverMap, renderer *humastar.Renderer) *MapHandler {
	return &MapHandler{
		Handler: humastar.Handler{Renderer: renderer},
		river:   river,
	}
}

func (h *MapHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, BasePath, h.GetWaterLevel, huma.OperationTags("ui"))
	huma.Put(api, BasePath, h.PutWaterLevel, huma.OperationTags("ui"))
	huma.Post(api, BasePath+"/apply", h.ApplyWaterLevel, huma.OperationTags("ui"))
	huma.Post(api, "/api/v1/ui/select", h.Select, huma.OperationTags("ui"))
	huma.Get(api, "/api/v1/ui/events", h.Events, huma.OperationTags("ui"))
}

// OverlayData feeds the "overlay" fragment.
type OverlayData struct {
	Name string
	Lon  float64
	Lat  float64
}

// SliderData feeds the "slider" fragment.
type SliderData struct {
	Level    float64
	Distance float64
	Result   presenter.BufferResult
}

// LayerItem feeds the "layer-item" fragment.
type LayerItem struct {
	service.LayerState
	Swatch template.CSS
}

// renderLayers lists the river first, then the feature layers.
func (h *MapHandler) renderLayers(snap service.Snapshot) string {
	if !snap.Mounted {
		return h.RenderList("layer-item", nil, "Map not mounted", "Layers appear once the map is mounted")
	}
	states := append([]service.LayerState{snap.River}, snap.Layers...)
	items := make([]any, len(states))
	for i, ls := range states {
		// catalog colours are operator configuration
		items[i] = LayerItem{LayerState: ls, Swatch: template.CSS("background: " + ls.Style.Stroke)}
	}
	return h.RenderList("layer-item", items, "No layers", "The catalog lists no layers")
}

func (h *MapHandler) renderOverlay(sel *presenter.Selection) string {
	if sel == nil {
		return ""
	}
	return h.Renderer.MustRender("overlay", OverlayData{
		Name: sel.Name,
		Lon:  sel.Position[0],
		Lat:  sel.Position[1],
	})
}

func (h *MapHandler) renderSlider(wl service.WaterLevel, res presenter.BufferResult) string {
	return h.Renderer.MustRender("slider", SliderData{
		Level:    wl.Level,
		Distance: wl.Distance,
		Result:   res,
	})
}

func sliderSignals(wl service.WaterLevel) map[string]any {
	return map[string]any{
		SignalLevel:    wl.Level,
		SignalDistance: wl.Distance,
	}
}

func bufferSignals(res presenter.BufferResult) map[string]any {
	return map[string]any{
		SignalBuffer: map[string]any{
			"applied":    res.Applied,
			"distance":   res.Distance,
			"parts":      res.Parts,
			"points":     res.Points,
			"degenerate": res.Degenerate,
		},
	}
}
