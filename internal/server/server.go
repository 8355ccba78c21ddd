package server

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"reflect"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/plat-river/internal/api"
	"github.com/joeblew999/plat-river/internal/api/ui"
	"github.com/joeblew999/plat-river/internal/catalog"
	"github.com/joeblew999/plat-river/internal/db"
	"github.com/joeblew999/plat-river/internal/geo"
	"github.com/joeblew999/plat-river/internal/humastar"
	"github.com/joeblew999/plat-river/internal/loader"
	"github.com/joeblew999/plat-river/internal/metrics"
	"github.com/joeblew999/plat-river/internal/service"
	"github.com/joeblew999/plat-river/web"
)

// Buffer engines selectable with Config.Engine.
const (
	EngineGEOS   = "geos"
	EngineMiter  = "miter"
	EngineDuckDB = "duckdb"
)

// Config holds the server configuration.
type Config struct {
	Host        string
	Port        string
	DataDir     string
	CatalogFile string // YAML catalog; empty uses the built-in one
	Engine      string // "geos", "miter" or "duckdb"
	TileURL     string // overrides the catalog's base tile URL
	WebDir      string // serve templates and static files from disk instead of the embedded copy
	Logger      *slog.Logger
}

// Server is the river map HTTP server.
type Server struct {
	config   Config
	logger   *slog.Logger
	mux      *http.ServeMux
	humaAPI  huma.API
	catalog  catalog.Catalog
	river    *service.RiverMap
	services *api.Services
	renderer *humastar.Renderer
	static   fs.FS
}

// New creates a server. The map session is not mounted until Start.
func New(cfg Config) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("plat-river API", api.Version)
	humaConfig.Info.Description = "Madawaska River map: feature layers, water-level buffering and selection."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers,
		humastar.LinkTransformer(),
		api.LinkTransformer(),
	)

	humaAPI := humago.New(mux, humaConfig)

	river := service.NewRiverMap(service.RiverOptions{
		Catalog: cat,
		Fetch:   loader.NewFetcher(cfg.DataDir).Fetch,
		Engine:  bufferEngine(cfg, logger),
		Logger:  logger,
	})

	templatesFS, staticFS := web.Templates(), web.Static()
	if cfg.WebDir != "" {
		templatesFS = os.DirFS(filepath.Join(cfg.WebDir, "templates"))
		staticFS = os.DirFS(filepath.Join(cfg.WebDir, "static"))
	}
	renderer, err := humastar.NewRenderer(templatesFS, web.TemplatePatterns...)
	if err != nil {
		river.Close()
		return nil, err
	}

	s := &Server{
		config:  cfg,
		logger:  logger,
		mux:     mux,
		humaAPI: humaAPI,
		catalog: cat,
		river:   river,
		services: &api.Services{
			River:  river,
			Source: service.NewSourceService(cfg.DataDir, cat),
		},
		renderer: renderer,
		static:   staticFS,
	}

	s.routes()
	return s, nil
}

func loadCatalog(cfg Config) (catalog.Catalog, error) {
	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		var err error
		if cat, err = catalog.Load(cfg.CatalogFile); err != nil {
			return catalog.Catalog{}, err
		}
	}
	if cfg.TileURL != "" {
		cat.View.TileURL = cfg.TileURL
	}
	return cat, nil
}

// bufferEngine picks the configured engine, falling back to GEOS when
// DuckDB or its spatial extension is unavailable.
func bufferEngine(cfg Config, logger *slog.Logger) geo.Offsetter {
	switch cfg.Engine {
	case EngineMiter:
		return geo.MiterOffsetter{}
	case EngineDuckDB:
	default:
		return geo.GEOSOffsetter{}
	}
	conn, err := db.Get(db.Config{DataDir: cfg.DataDir})
	if err != nil {
		logger.Warn("duckdb buffer engine unavailable, using geos", "error", err)
		return geo.GEOSOffsetter{}
	}
	return geo.DuckDBOffsetter{DB: conn}
}

// Start mounts the map session.
func (s *Server) Start(ctx context.Context) error {
	return s.river.Start(ctx)
}

// River is the server's map session.
func (s *Server) River() *service.RiverMap { return s.river }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close stops the map session and closes server resources.
func (s *Server) Close() error {
	s.river.Close()
	return db.Close()
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.river, s.config.DataDir).RegisterRoutes(s.humaAPI)

	// Register map page SSE routes using Huma + Datastar SDK
	ui.NewMapHandler(s.river, s.renderer).RegisterRoutes(s.humaAPI)

	// Schema extensions, slider bounds and generated forms
	waterLevel := reflect.TypeOf(service.WaterLevelInput{})
	humastar.InjectExtensions(s.humaAPI, []humastar.DatastarSchemaConfig{{
		Type:     waterLevel,
		Prefix:   ui.SignalPrefix,
		FormTmpl: "water-level-form",
		BasePath: ui.BasePath,
	}})
	slider := s.catalog.Slider
	if !humastar.SetRange(s.humaAPI, waterLevel, "level", slider.Min, slider.Max, slider.Step, slider.Initial) {
		s.logger.Warn("water level schema not registered; slider bounds left at defaults")
	}
	humastar.RegisterFormTemplates(s.humaAPI, s.renderer)
	humastar.AutoLinks(s.humaAPI)

	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.static))))

	// Page routes
	s.mux.HandleFunc("/", s.handleRoot)
}

// PageView feeds map.html.
type PageView struct {
	Title   string
	TileURL string
	Page    humastar.PageData
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	pd := humastar.BuildPageData(s.humaAPI, humastar.DatastarSchemaConfig{
		Type:     reflect.TypeOf(service.WaterLevelInput{}),
		Prefix:   ui.SignalPrefix,
		FormTmpl: "water-level-form",
		BasePath: ui.BasePath,
	}, map[string]any{
		ui.SignalDistance: 0,
		ui.SignalBuffer:   map[string]any{"applied": false, "distance": 0, "points": 0, "degenerate": false},
		"selected":        false,
		"error":           "",
		"success":         "",
	})

	html, err := s.renderer.Render("map.html", PageView{
		Title:   "Madawaska River",
		TileURL: s.catalog.View.TileURL,
		Page:    pd,
	})
	if err != nil {
		s.logger.Error("render map page", "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}

	for _, link := range humastar.RootLinks() {
		w.Header().Add("Link", link)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}
