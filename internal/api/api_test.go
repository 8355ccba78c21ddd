package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/joeblew999/plat-river/internal/catalog"
	"github.com/joeblew999/plat-river/internal/humastar"
	"github.com/joeblew999/plat-river/internal/loader"
	"github.com/joeblew999/plat-river/internal/logger"
	"github.com/joeblew999/plat-river/internal/service"
)

const dataDir = "../../data"

func newTestAPI(t *testing.T, start bool) (humatest.TestAPI, *service.RiverMap) {
	t.Helper()
	cat := catalog.Default()
	river := service.NewRiverMap(service.RiverOptions{
		Catalog: cat,
		Fetch:   loader.NewFetcher(dataDir).Fetch,
		Bus:     service.NewEventBus(),
		Logger:  logger.Discard(),
	})
	t.Cleanup(river.Close)

	if start {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := river.Start(ctx); err != nil {
			t.Fatal(err)
		}
		if err := river.WaitLoaded(ctx); err != nil {
			t.Fatal(err)
		}
	}

	cfg := huma.DefaultConfig("River API", Version)
	cfg.Transformers = append(cfg.Transformers, humastar.LinkTransformer(), LinkTransformer())
	_, api := humatest.New(t, cfg)
	RegisterRoutes(api, &Services{River: river, Source: service.NewSourceService(dataDir, cat)})
	NewInfoHandler(river, dataDir).RegisterRoutes(api)
	return api, river
}

func decode(t *testing.T, body string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(body), v); err != nil {
		t.Fatalf("decode %q: %v", body, err)
	}
}

func TestHealthAndInfo(t *testing.T) {
	api, _ := newTestAPI(t, false)

	resp := api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d", resp.Code)
	}
	var health HealthBody
	decode(t, resp.Body.String(), &health)
	if health.Status != "ok" {
		t.Fatalf("status=%q, want ok", health.Status)
	}

	resp = api.Get("/api/v1/info")
	var info InfoBody
	decode(t, resp.Body.String(), &info)
	if info.Name != "plat-river" || info.Engine != "geos" || info.Layers != 5 ||
		info.River != "Madawaska River" || info.Range != [2]float64{-0.9, 3.2} {
		t.Fatalf("info = %+v", info)
	}
}

func TestLayers(t *testing.T) {
	api, _ := newTestAPI(t, false)

	resp := api.Get("/api/v1/layers")
	var body LayersBody
	decode(t, resp.Body.String(), &body)
	if len(body.Layers) != 4 || body.River.ID != "madawaska_river" {
		t.Fatalf("layers = %+v", body)
	}
	if body.Slider.Min != -0.9 || body.Slider.Max != 3.2 {
		t.Fatalf("slider = %+v", body.Slider)
	}
}

func TestNotMounted(t *testing.T) {
	api, _ := newTestAPI(t, false)

	for _, path := range []string{"/api/v1/view", "/api/v1/selection", "/api/v1/buffer"} {
		if resp := api.Get(path); resp.Code != http.StatusServiceUnavailable {
			t.Errorf("GET %s status=%d, want 503", path, resp.Code)
		}
	}
	if resp := api.Post("/api/v1/water-level/apply"); resp.Code != http.StatusServiceUnavailable {
		t.Errorf("apply status=%d, want 503", resp.Code)
	}

	// the slider itself does not need a map
	resp := api.Put("/api/v1/water-level", map[string]any{"level": 1.0})
	if resp.Code != http.StatusOK {
		t.Fatalf("PUT status=%d body=%s", resp.Code, resp.Body.String())
	}
}

func TestLayerFeaturesPaging(t *testing.T) {
	api, _ := newTestAPI(t, true)

	resp := api.Get("/api/v1/layers/campsites/features?limit=2")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	var page struct {
		Total int               `json:"total"`
		Layer string            `json:"layer"`
		Data  []json.RawMessage `json:"data"`
	}
	decode(t, resp.Body.String(), &page)
	if page.Total != 3 || len(page.Data) != 2 || page.Layer != "campsites" {
		t.Fatalf("page = total %d, %d items, layer %q", page.Total, len(page.Data), page.Layer)
	}

	resp = api.Get("/api/v1/layers/campsites/features?offset=10")
	decode(t, resp.Body.String(), &page)
	if len(page.Data) != 0 {
		t.Fatalf("offset past end returned %d items", len(page.Data))
	}

	if resp := api.Get("/api/v1/layers/nope/features"); resp.Code != http.StatusNotFound {
		t.Fatalf("unknown layer status=%d, want 404", resp.Code)
	}
}

func TestWaterLevelApply(t *testing.T) {
	api, _ := newTestAPI(t, true)

	resp := api.Put("/api/v1/water-level", map[string]any{"level": 3.2})
	var wl service.WaterLevel
	decode(t, resp.Body.String(), &wl)
	if wl.Level != 3.2 {
		t.Fatalf("level = %v", wl.Level)
	}

	// out of range is rejected by schema validation
	if resp := api.Put("/api/v1/water-level", map[string]any{"level": 9}); resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("out of range status=%d, want 422", resp.Code)
	}

	resp = api.Post("/api/v1/water-level/apply")
	if resp.Code != http.StatusOK {
		t.Fatalf("apply status=%d body=%s", resp.Code, resp.Body.String())
	}
	var applied ApplyBody
	decode(t, resp.Body.String(), &applied)
	if !applied.Result.Applied || applied.Feature == nil {
		t.Fatalf("apply = %+v", applied.Result)
	}
	if applied.Result.Distance < 18.8 || applied.Result.Distance > 18.9 {
		t.Fatalf("distance = %v, want ~18.82", applied.Result.Distance)
	}
}

func TestBufferPost(t *testing.T) {
	api, _ := newTestAPI(t, true)

	resp := api.Post("/api/v1/buffer", map[string]any{"distance": 25})
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	var body BufferBody
	decode(t, resp.Body.String(), &body)
	if !body.Result.Applied || body.Result.Distance != 25 || body.Feature == nil {
		t.Fatalf("buffer = %+v", body.Result)
	}
}

func TestSelection(t *testing.T) {
	api, _ := newTestAPI(t, true)

	resp := api.Post("/api/v1/selection", map[string]any{"lon": -77.5284, "lat": 45.3212, "zoom": 16})
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	var body SelectionBody
	decode(t, resp.Body.String(), &body)
	if !body.Selected || body.Selection.Name != "Island Camp" {
		t.Fatalf("selection = %+v", body)
	}

	resp = api.Get("/api/v1/selection")
	if !strings.Contains(strings.Join(resp.Result().Header.Values("Link"), ","), "clear") {
		t.Errorf("missing clear action link: %v", resp.Result().Header.Values("Link"))
	}

	if resp := api.Delete("/api/v1/selection"); resp.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", resp.Code)
	}
	resp = api.Get("/api/v1/selection")
	decode(t, resp.Body.String(), &body)
	if body.Selected {
		t.Fatalf("selection survived delete: %+v", body)
	}
}
