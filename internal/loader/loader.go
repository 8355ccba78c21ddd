// Package loader fetches GeoJSON datasets off the event loop and hands the
// results back to it.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/plat-river/internal/geo"
)

// ErrCancelled is reported for a load whose task was cancelled before the
// result arrived.
var ErrCancelled = errors.New("load cancelled")

// maxBody caps remote GeoJSON downloads.
const maxBody = 64 << 20

// Fetcher reads datasets from a data directory or over HTTP.
type Fetcher struct {
	DataDir string
	Client  *http.Client
}

// NewFetcher returns a fetcher rooted at dataDir.
func NewFetcher(dataDir string) *Fetcher {
	return &Fetcher{
		DataDir: dataDir,
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch loads the feature collection at ref and reprojects it to display
// projection. ref is an http(s) URL or a path relative to DataDir.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*geojson.FeatureCollection, error) {
	data, err := f.read(ctx, ref)
	if err != nil {
		return nil, err
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", ref, err)
	}
	for _, feat := range fc.Features {
		if feat.Geometry != nil {
			feat.Geometry = geo.FromLonLat(feat.Geometry)
		}
	}
	return fc, nil
}

func (f *Fetcher) read(ctx context.Context, ref string) ([]byte, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return f.download(ctx, ref)
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(f.DataDir, filepath.FromSlash(ref))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return data, nil
}

func (f *Fetcher) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/geo+json, application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", url, resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxBody))
}
