package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-river/internal/logger"
	"github.com/joeblew999/plat-river/internal/presenter"
	"github.com/joeblew999/plat-river/internal/server"
	"github.com/joeblew999/plat-river/internal/tui"
)

// Options defines all CLI flags and env vars for the river server.
// Flags: --host, --port, --data-dir, --catalog, --engine, --tile-url, --web-dir
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_CATALOG, ...
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory holding the river datasets" default:"data"`
	Catalog string `doc:"YAML layer catalog (built-in Madawaska catalog when empty)"`
	Engine  string `doc:"Buffer engine: geos, miter or duckdb" default:"geos"`
	TileURL string `doc:"Base tile URL template"`
	WebDir  string `doc:"Serve templates and static files from this web/ directory instead of the embedded copy"`
}

func newServer(opts *Options) *server.Server {
	return newServerWithLogger(opts, logger.L())
}

func newServerWithLogger(opts *Options, l *slog.Logger) *server.Server {
	srv, err := server.New(server.Config{
		Host:        opts.Host,
		Port:        fmt.Sprintf("%d", opts.Port),
		DataDir:     opts.DataDir,
		CatalogFile: opts.Catalog,
		Engine:      opts.Engine,
		TileURL:     opts.TileURL,
		WebDir:      opts.WebDir,
		Logger:      l,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return srv
}

// startLoaded mounts the session and waits for every layer to arrive.
func startLoaded(srv *server.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		return err
	}
	return srv.River().WaitLoaded(ctx)
}

func main() {
	// .env is optional
	_ = godotenv.Load()
	logger.Setup()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var httpServer *http.Server

		hooks.OnStart(func() {
			srv := newServer(opts)
			defer srv.Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := srv.Start(ctx)
			cancel()
			if err != nil {
				log.Fatalf("Map error: %v", err)
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-river server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Printf("  Engine:  %s\n", srv.River().Engine())
			fmt.Println()
			fmt.Printf("  Map:     %s/\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatalf("Server error: %v", err)
			}
		})

		hooks.OnStop(func() {
			if httpServer == nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(ctx)
		})
	})

	cli.Root().Use = "river"
	cli.Root().Short = "Madawaska River map with water-level buffering"
	cli.Root().Version = "1.0.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// buffer subcommand: one-shot recompute, GeoJSON on stdout
	bufferCmd := &cobra.Command{
		Use:   "buffer",
		Short: "Buffer the river outline for a water level (or --distance) and print GeoJSON",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()
			if err := startLoaded(srv); err != nil {
				fmt.Fprintf(os.Stderr, "Error loading map: %v\n", err)
				os.Exit(1)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			river := srv.River()

			var err error
			if cmd.Flags().Changed("distance") {
				distance, _ := cmd.Flags().GetFloat64("distance")
				_, err = river.BufferBy(ctx, distance)
			} else {
				level, _ := cmd.Flags().GetFloat64("level")
				if _, err = river.SetWaterLevel(ctx, level); err == nil {
					_, err = river.ApplyWaterLevel(ctx)
				}
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error buffering: %v\n", err)
				os.Exit(1)
			}

			feat, res, err := river.Buffer(ctx)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading buffer: %v\n", err)
				os.Exit(1)
			}
			output, err := bufferGeoJSON(feat, res)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading buffer: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	bufferCmd.Flags().Float64P("level", "l", 0, "Water level in metres")
	bufferCmd.Flags().Float64P("distance", "d", 0, "Buffer distance in metres (overrides --level)")
	cli.Root().AddCommand(bufferCmd)

	// catalog subcommand: print the effective catalog
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the effective layer catalog as YAML",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()
			output, err := srv.River().Catalog().Marshal()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling catalog: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(string(output))
		}),
	}
	cli.Root().AddCommand(catalogCmd)

	// tui subcommand: terminal water-level control
	tuiCmd := &cobra.Command{
		Use:   "tui",
		Short: "Drive the water level from the terminal",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			// logs would draw over the alt screen
			srv := newServerWithLogger(opts, logger.Discard())
			defer srv.Close()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := srv.Start(ctx)
			cancel()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error starting map: %v\n", err)
				os.Exit(1)
			}
			if _, err := tea.NewProgram(tui.New(srv.River()), tea.WithAltScreen()).Run(); err != nil {
				log.Fatal(err)
			}
		}),
	}
	cli.Root().AddCommand(tuiCmd)

	cli.Run()
}

var errOutlineNotLoaded = errors.New("river outline not loaded")

// bufferGeoJSON wraps the buffered outline and its result in an indented
// FeatureCollection.
func bufferGeoJSON(feat *geojson.Feature, res presenter.BufferResult) ([]byte, error) {
	if feat == nil {
		return nil, errOutlineNotLoaded
	}
	feat.Properties["applied"] = res.Applied
	feat.Properties["degenerate"] = res.Degenerate
	feat.Properties["engine"] = res.Engine
	feat.Properties["parts"] = res.Parts

	fc := geojson.NewFeatureCollection().Append(feat)
	return json.MarshalIndent(fc, "", "  ")
}
