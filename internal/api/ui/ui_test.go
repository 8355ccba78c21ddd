package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-river/internal/catalog"
	"github.com/joeblew999/plat-river/internal/humastar"
	"github.com/joeblew999/plat-river/internal/loader"
	"github.com/joeblew999/plat-river/internal/logger"
	"github.com/joeblew999/plat-river/internal/service"
	"github.com/joeblew999/plat-river/web"
)

// testUI serves the UI operations through the net/http adapter the server
// uses, since the Datastar streams unwrap the request and response from it.
type testUI struct {
	t   *testing.T
	mux *http.ServeMux
}

func (u testUI) do(ctx context.Context, method, path string, body any) *httptest.ResponseRecorder {
	u.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			u.t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf).WithContext(ctx)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	u.mux.ServeHTTP(rec, req)
	return rec
}

func (u testUI) Get(path string) *httptest.ResponseRecorder {
	return u.do(context.Background(), http.MethodGet, path, nil)
}

func (u testUI) GetCtx(ctx context.Context, path string) *httptest.ResponseRecorder {
	return u.do(ctx, http.MethodGet, path, nil)
}

func (u testUI) Put(path string, body any) *httptest.ResponseRecorder {
	return u.do(context.Background(), http.MethodPut, path, body)
}

func (u testUI) Post(path string, body any) *httptest.ResponseRecorder {
	return u.do(context.Background(), http.MethodPost, path, body)
}

func newTestUI(t *testing.T) (testUI, *service.RiverMap) {
	t.Helper()
	river := service.NewRiverMap(service.RiverOptions{
		Catalog: catalog.Default(),
		Fetch:   loader.NewFetcher("../../../data").Fetch,
		Bus:     service.NewEventBus(),
		Logger:  logger.Discard(),
	})
	t.Cleanup(river.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := river.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := river.WaitLoaded(ctx); err != nil {
		t.Fatal(err)
	}

	renderer, err := humastar.NewRenderer(web.Templates(), web.TemplatePatterns...)
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	api := humago.New(mux, huma.DefaultConfig("River UI", "1.0.0"))
	NewMapHandler(river, renderer).RegisterRoutes(api)
	return testUI{t: t, mux: mux}, river
}

func TestPutWaterLevel(t *testing.T) {
	api, river := newTestUI(t)

	// range inputs may send their value as a string
	resp := api.Put(BasePath, map[string]any{SignalLevel: "1.7"})
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body.String())
	}
	body := resp.Body.String()
	if !strings.Contains(body, "datastar-patch-signals") || !strings.Contains(body, SignalDistance) {
		t.Fatalf("missing signal patch: %s", body)
	}

	wl, err := river.WaterLevel(context.Background())
	if err != nil || wl.Level != 1.7 {
		t.Fatalf("WaterLevel = %+v, %v", wl, err)
	}

	if resp := api.Put(BasePath, map[string]any{}); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing level status=%d, want 400", resp.Code)
	}
}

func TestApplyWaterLevel(t *testing.T) {
	api, _ := newTestUI(t)

	resp := api.Post(BasePath+"/apply", map[string]any{SignalLevel: 3.2})
	body := resp.Body.String()
	if !strings.Contains(body, "18.82 m") {
		t.Fatalf("slider fragment missing applied distance: %s", body)
	}
	if !strings.Contains(body, "buffered by 18.82 m") {
		t.Fatalf("missing success message: %s", body)
	}
}

func TestSelect(t *testing.T) {
	api, _ := newTestUI(t)

	resp := api.Post("/api/v1/ui/select", map[string]any{SignalLon: -77.5284, SignalLat: 45.3212, SignalZoom: 16})
	body := resp.Body.String()
	if !strings.Contains(body, "Island Camp") || !strings.Contains(body, "-77.528400, 45.321200") {
		t.Fatalf("overlay not patched: %s", body)
	}
	if !strings.Contains(body, "feature-selected") {
		t.Fatalf("missing feature-selected event: %s", body)
	}

	resp = api.Post("/api/v1/ui/select", map[string]any{SignalLon: 0.0, SignalLat: 0.0, SignalZoom: 16})
	if strings.Contains(resp.Body.String(), "Island Camp") {
		t.Fatalf("miss kept the overlay: %s", resp.Body.String())
	}

	if resp := api.Post("/api/v1/ui/select", map[string]any{SignalLon: 0.0}); resp.Code != http.StatusBadRequest {
		t.Fatalf("missing lat status=%d, want 400", resp.Code)
	}
}

func TestEventsForwardsBusEvents(t *testing.T) {
	api, river := newTestUI(t)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				river.Bus().Publish(service.Event{Resource: service.ResourceLayers, Action: service.ActionLoaded, ID: "campsites"})
			}
		}
	}()

	resp := api.GetCtx(ctx, "/api/v1/ui/events")
	if !strings.Contains(resp.Body.String(), "layers/loaded") {
		t.Fatalf("event not forwarded: %s", resp.Body.String())
	}
}

func TestGetWaterLevelListsLayers(t *testing.T) {
	api, _ := newTestUI(t)

	body := api.Get(BasePath).Body.String()
	for _, want := range []string{"layer-madawaska_river", "Campsites", "ready · 3", "background: rgb(42, 183, 255)"} {
		if !strings.Contains(body, want) {
			t.Errorf("layer list missing %q", want)
		}
	}
}
