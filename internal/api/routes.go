// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-river/internal/catalog"
	"github.com/joeblew999/plat-river/internal/humastar"
	"github.com/joeblew999/plat-river/internal/presenter"
	"github.com/joeblew999/plat-river/internal/service"
)

// Version is reported by /health and /api/v1/info.
const Version = "1.0.0"

// Services holds the service dependencies for API handlers.
type Services struct {
	River  *service.RiverMap
	Source *service.SourceService
}

// Types

type FeaturesInput struct {
	ID     string `path:"id" doc:"Layer ID" example:"campsites"`
	Offset int    `query:"offset" minimum:"0" default:"0" doc:"Index of the first feature"`
	Limit  int    `query:"limit" minimum:"1" maximum:"1000" default:"100" doc:"Page size"`
}

type LayersBody struct {
	Layers []catalog.LayerSpec  `json:"layers" doc:"Feature layers in registration order"`
	River  catalog.LayerSpec    `json:"river" doc:"River outline layer"`
	Slider catalog.SliderConfig `json:"slider" doc:"Water level slider bounds"`
}

type SelectBody struct {
	Lon  float64 `json:"lon" minimum:"-180" maximum:"180" doc:"Click longitude" example:"-77.5284"`
	Lat  float64 `json:"lat" minimum:"-85.06" maximum:"85.06" doc:"Click latitude" example:"45.3212"`
	Zoom float64 `json:"zoom" minimum:"0" maximum:"20" default:"14" doc:"Zoom level the click was made at; sets the hit tolerance" example:"15"`
}

// SelectionBody carries the current selection, if any.
type SelectionBody struct {
	Selected  bool                 `json:"selected" doc:"Whether a feature is selected"`
	Selection *presenter.Selection `json:"selection,omitempty" doc:"Selected feature"`
}

// Actions implements humastar.Actor.
func (b SelectionBody) Actions() []humastar.Action {
	if !b.Selected {
		return nil
	}
	return []humastar.Action{{Rel: "clear", Href: "/api/v1/selection", Method: "DELETE", Title: "Clear selection"}}
}

type BufferInput struct {
	Distance float64 `json:"distance" minimum:"-10000" maximum:"10000" doc:"Buffer distance in metres; negative shrinks" example:"5.88"`
}

type BufferBody struct {
	Result  presenter.BufferResult `json:"result" doc:"Outcome of the last recompute"`
	Feature *geojson.Feature       `json:"feature,omitempty" doc:"Displayed river geometry in lon/lat, absent before load"`
}

type ApplyBody struct {
	WaterLevel service.WaterLevel     `json:"waterLevel" doc:"Confirmed slider state"`
	Result     presenter.BufferResult `json:"result" doc:"Outcome of the recompute"`
	Feature    *geojson.Feature       `json:"feature,omitempty" doc:"Displayed river geometry in lon/lat"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// layerActions are the per-layer links on feature pages.
var layerActions = []humastar.ActionDef{
	{Rel: "all", Pattern: "/api/v1/layers/%s/features?offset=0&limit=1000", Method: "GET", Title: "Whole layer in one page"},
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route on api.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers catalog and feature routes.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
	huma.Get(api, "/api/v1/layers/{id}/features", h.GetLayerFeatures, huma.OperationTags("layers"))
}

// RegisterSources registers dataset listing routes.
func (h *APIHandler) RegisterSources(api huma.API) {
	huma.Get(api, "/api/v1/sources", h.GetSources, huma.OperationTags("sources"))
}

// RegisterMap registers view and selection routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/view", h.GetView, huma.OperationTags("map"))
	huma.Get(api, "/api/v1/selection", h.GetSelection, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/selection", h.PostSelection, huma.OperationTags("map"))
	huma.Delete(api, "/api/v1/selection", h.DeleteSelection, huma.OperationTags("map"))
}

// RegisterWaterLevel registers slider and buffer routes.
func (h *APIHandler) RegisterWaterLevel(api huma.API) {
	huma.Get(api, "/api/v1/water-level", h.GetWaterLevel, huma.OperationTags("water-level"))
	huma.Put(api, "/api/v1/water-level", h.PutWaterLevel, huma.OperationTags("water-level"))
	huma.Post(api, "/api/v1/water-level/apply", h.ApplyWaterLevel, huma.OperationTags("water-level"))
	huma.Get(api, "/api/v1/buffer", h.GetBuffer, huma.OperationTags("water-level"))
	huma.Post(api, "/api/v1/buffer", h.PostBuffer, huma.OperationTags("water-level"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: Version}}, nil
}

func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*struct{ Body LayersBody }, error) {
	cat := h.svc.River.Catalog()
	layers := cat.Layers
	if layers == nil {
		layers = []catalog.LayerSpec{}
	}
	return &struct{ Body LayersBody }{Body: LayersBody{Layers: layers, River: cat.River, Slider: cat.Slider}}, nil
}

// FeaturePage is a page of a layer's features.
type FeaturePage struct {
	humastar.PageBody[*geojson.Feature]
	Layer string `json:"layer" doc:"Layer ID"`
}

// Actions implements humastar.Actor.
func (p FeaturePage) Actions() []humastar.Action {
	return humastar.ActionsFor(p.Layer, layerActions)
}

func (h *APIHandler) GetLayerFeatures(ctx context.Context, input *FeaturesInput) (*struct{ Body FeaturePage }, error) {
	fc, err := h.svc.River.LayerFeatures(ctx, input.ID)
	if err != nil {
		return nil, httpError(err)
	}

	page := FeaturePage{
		PageBody: humastar.Page(fc.Features, input.Offset, input.Limit),
		Layer:    input.ID,
	}
	return &struct{ Body FeaturePage }{Body: page}, nil
}

func (h *APIHandler) GetSources(ctx context.Context, input *struct{}) (*struct{ Body []service.SourceFile }, error) {
	if h.svc == nil || h.svc.Source == nil {
		return &struct{ Body []service.SourceFile }{Body: []service.SourceFile{}}, nil
	}
	sources, err := h.svc.Source.List()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list datasets", err)
	}
	return &struct{ Body []service.SourceFile }{Body: sources}, nil
}

func (h *APIHandler) GetView(ctx context.Context, input *struct{}) (*struct{ Body service.ViewState }, error) {
	snap, err := h.svc.River.Snapshot(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	if !snap.Mounted {
		return nil, httpError(service.ErrNotMounted)
	}
	return &struct{ Body service.ViewState }{Body: snap.View}, nil
}

func (h *APIHandler) GetSelection(ctx context.Context, input *struct{}) (*struct{ Body SelectionBody }, error) {
	sel, err := h.svc.River.Selection(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body SelectionBody }{Body: SelectionBody{Selected: sel != nil, Selection: sel}}, nil
}

func (h *APIHandler) PostSelection(ctx context.Context, input *struct{ Body SelectBody }) (*struct{ Body SelectionBody }, error) {
	sel, err := h.svc.River.Select(ctx, orb.Point{input.Body.Lon, input.Body.Lat}, input.Body.Zoom)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body SelectionBody }{Body: SelectionBody{Selected: sel != nil, Selection: sel}}, nil
}

func (h *APIHandler) DeleteSelection(ctx context.Context, input *struct{}) (*struct{}, error) {
	if err := h.svc.River.ClearSelection(ctx); err != nil {
		return nil, httpError(err)
	}
	return nil, nil
}

func (h *APIHandler) GetWaterLevel(ctx context.Context, input *struct{}) (*struct{ Body service.WaterLevel }, error) {
	wl, err := h.svc.River.WaterLevel(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body service.WaterLevel }{Body: wl}, nil
}

func (h *APIHandler) PutWaterLevel(ctx context.Context, input *struct{ Body service.WaterLevelInput }) (*struct{ Body service.WaterLevel }, error) {
	wl, err := h.svc.River.SetWaterLevel(ctx, input.Body.Level)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body service.WaterLevel }{Body: wl}, nil
}

func (h *APIHandler) ApplyWaterLevel(ctx context.Context, input *struct{}) (*struct{ Body ApplyBody }, error) {
	res, err := h.svc.River.ApplyWaterLevel(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	wl, err := h.svc.River.WaterLevel(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	feat, _, err := h.svc.River.Buffer(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body ApplyBody }{Body: ApplyBody{WaterLevel: wl, Result: res, Feature: feat}}, nil
}

func (h *APIHandler) GetBuffer(ctx context.Context, input *struct{}) (*struct{ Body BufferBody }, error) {
	feat, res, err := h.svc.River.Buffer(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body BufferBody }{Body: BufferBody{Result: res, Feature: feat}}, nil
}

func (h *APIHandler) PostBuffer(ctx context.Context, input *struct{ Body BufferInput }) (*struct{ Body BufferBody }, error) {
	res, err := h.svc.River.BufferBy(ctx, input.Body.Distance)
	if err != nil {
		return nil, httpError(err)
	}
	feat, _, err := h.svc.River.Buffer(ctx)
	if err != nil {
		return nil, httpError(err)
	}
	return &struct{ Body BufferBody }{Body: BufferBody{Result: res, Feature: feat}}, nil
}
