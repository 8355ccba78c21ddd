package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joeblew999/plat-river/internal/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	srv, err := New(Config{
		Host:    "localhost",
		Port:    "8087",
		DataDir: "../../data",
		Logger:  logger.Discard(),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatal(err)
	}
	if err := srv.River().WaitLoaded(ctx); err != nil {
		t.Fatal(err)
	}
	return srv
}

func get(srv *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestMapPage(t *testing.T) {
	srv := newTestServer(t)

	rec := get(srv, "/")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{
		`type="range"`,
		`data-bind:waterlevel`,
		`min="-0.9"`,
		`max="3.2"`,
		`step="0.1"`,
		`id="layer-list"`,
		`/api/v1/ui/events`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}

	if rec := get(srv, "/nope"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown page status=%d, want 404", rec.Code)
	}
}

func TestOpenAPIExtensions(t *testing.T) {
	srv := newTestServer(t)

	schema := srv.OpenAPI().Components.Schemas.Map()["WaterLevelInput"]
	if schema == nil {
		t.Fatal("WaterLevelInput schema not registered")
	}
	level := schema.Properties["level"]
	if level.Minimum == nil || *level.Minimum != -0.9 || level.Maximum == nil || *level.Maximum != 3.2 {
		t.Fatalf("level bounds = %v..%v", level.Minimum, level.Maximum)
	}
	if level.Extensions["x-input"] != "range" || level.Extensions["x-step"] != 0.1 {
		t.Fatalf("level extensions = %v", level.Extensions)
	}
}

func TestAmbientRoutes(t *testing.T) {
	srv := newTestServer(t)

	rec := get(srv, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status=%d", rec.Code)
	}
	links := strings.Join(rec.Header().Values("Link"), ",")
	if !strings.Contains(links, `rel="monitor"`) || !strings.Contains(links, "/api/v1/layers") {
		t.Errorf("health links = %s", links)
	}

	rec = get(srv, "/metrics")
	if !strings.Contains(rec.Body.String(), "river_sse_clients") {
		t.Errorf("metrics missing river gauges")
	}

	if rec := get(srv, "/static/map.js"); rec.Code != http.StatusOK {
		t.Errorf("static status=%d", rec.Code)
	}
}

func TestDefaultEngine(t *testing.T) {
	srv, err := New(Config{DataDir: t.TempDir(), Logger: logger.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()
	if got := srv.River().Engine(); got != EngineGEOS {
		t.Fatalf("engine = %q, want geos", got)
	}
}

func TestMiterEngine(t *testing.T) {
	srv, err := New(Config{DataDir: t.TempDir(), Engine: EngineMiter, Logger: logger.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	defer srv.Close()
	if got := srv.River().Engine(); got != EngineMiter {
		t.Fatalf("engine = %q, want miter", got)
	}
}
