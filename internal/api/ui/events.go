package ui

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-river/internal/humastar"
	"github.com/joeblew999/plat-river/internal/metrics"
	"github.com/joeblew999/plat-river/internal/service"
)

// Events streams map change events to the page until the client leaves.
// Overlay and slider fragments are patched in place; everything else is
// forwarded as a DOM event named after the event topic.
func (h *MapHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		sub := h.river.Bus().Subscribe()
		defer sub.Close()

		metrics.SSEClients.Inc()
		defer metrics.SSEClients.Dec()

		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-sub.C:
				h.forward(ctx, sse, ev)
			}
		}
	}), nil
}

func (h *MapHandler) forward(ctx context.Context, sse humastar.SSE, ev service.Event) {
	switch ev.Resource {
	case service.ResourceLayers, service.ResourceView:
		if snap, err := h.river.Snapshot(ctx); err == nil {
			sse.Patch(h.renderLayers(snap), "#layer-list")
		}
	case service.ResourceSelection:
		sel, err := h.river.Selection(ctx)
		if err == nil {
			sse.Patch(h.renderOverlay(sel), "#overlay")
		}
	case service.ResourceSlider:
		if wl, err := h.river.WaterLevel(ctx); err == nil {
			sse.Signals(sliderSignals(wl))
		}
	case service.ResourceBuffer:
		wl, err := h.river.WaterLevel(ctx)
		if err != nil {
			break
		}
		if _, res, err := h.river.Buffer(ctx); err == nil {
			sse.Signals(bufferSignals(res))
			sse.Patch(h.renderSlider(wl, res), "#slider-state")
		}
	}

	sse.Event(ev.Topic(), map[string]any{
		"resource":   ev.Resource,
		"action":     ev.Action,
		"id":         ev.ID,
		"generation": ev.Generation,
	})
}
