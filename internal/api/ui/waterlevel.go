package ui

import (
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/plat-river/internal/humastar"
	"github.com/joeblew999/plat-river/internal/presenter"
)

func (h *MapHandler) GetWaterLevel(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	wl, err := h.river.WaterLevel(ctx)
	if err != nil {
		return nil, huma.Error503ServiceUnavailable("Map unavailable", err)
	}
	snap, err := h.river.Snapshot(ctx)
	if err != nil {
		return nil, huma.Error503ServiceUnavailable("Map unavailable", err)
	}
	return h.Stream(func(sse humastar.SSE) {
		sse.Signals(sliderSignals(wl))
		sse.Patch(h.renderSlider(wl, snap.Buffer), "#slider-state")
		sse.Patch(h.renderLayers(snap), "#layer-list")
	}), nil
}

// PutWaterLevel moves the pending slider value. Nothing is buffered
// until the value is applied.
func (h *MapHandler) PutWaterLevel(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	if !signals.Has(SignalLevel) {
		return nil, huma.Error400BadRequest("Water level is required")
	}

	return h.Stream(func(sse humastar.SSE) {
		wl, err := h.river.SetWaterLevel(ctx, signals.Float(SignalLevel))
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Signals(sliderSignals(wl))
	}), nil
}

func (h *MapHandler) ApplyWaterLevel(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.Parse()
	if err != nil {
		signals = humastar.Signals{}
	}

	return h.Stream(func(sse humastar.SSE) {
		// a drag may end without a separate PUT
		if signals.Has(SignalLevel) {
			if _, err := h.river.SetWaterLevel(ctx, signals.Float(SignalLevel)); err != nil {
				sse.Error(err.Error())
				return
			}
		}

		res, err := h.river.ApplyWaterLevel(ctx)
		if err != nil {
			sse.Error(err.Error())
			return
		}
		wl, err := h.river.WaterLevel(ctx)
		if err != nil {
			sse.Error(err.Error())
			return
		}

		sse.Signals(sliderSignals(wl))
		sse.Signals(bufferSignals(res))
		sse.Patch(h.renderSlider(wl, res), "#slider-state")
		sse.Success(applyMessage(res))
	}), nil
}

func applyMessage(res presenter.BufferResult) string {
	switch {
	case !res.Applied:
		return fmt.Sprintf("River outline unchanged at %.2f m", res.Distance)
	case res.Degenerate:
		return fmt.Sprintf("River outline collapsed at %.2f m", res.Distance)
	default:
		return fmt.Sprintf("River outline buffered by %.2f m", res.Distance)
	}
}
