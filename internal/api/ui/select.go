package ui

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"

	"github.com/joeblew999/plat-river/internal/humastar"
	"github.com/joeblew999/plat-river/internal/mapview"
)

// Select hit-tests a map click. The page sends the clicked lon/lat and
// its current zoom as signals.
func (h *MapHandler) Select(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has(SignalLon) || !signals.Has(SignalLat) {
		return nil, huma.Error400BadRequest("Click position is required")
	}
	zoom := signals.Float(SignalZoom)
	if zoom < 0 || zoom > mapview.MaxZoom {
		return nil, huma.Error400BadRequest("Zoom out of range")
	}
	click := orb.Point{signals.Float(SignalLon), signals.Float(SignalLat)}

	return h.Stream(func(sse humastar.SSE) {
		sel, err := h.river.Select(ctx, click, zoom)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Patch(h.renderOverlay(sel), "#overlay")
		if sel == nil {
			sse.Signals(map[string]any{"selected": false})
			return
		}
		sse.Signals(map[string]any{"selected": true})
		sse.Event("feature-selected", map[string]any{
			"name":  sel.Name,
			"layer": sel.LayerID,
			"lon":   sel.Position[0],
			"lat":   sel.Position[1],
		})
	}), nil
}
