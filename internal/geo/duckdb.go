package geo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
)

// DuckDBOffsetter buffers through the DuckDB spatial extension's
// ST_Buffer(geom, distance, quad segments, cap style, join style, mitre
// limit) with mitred joins. The database must have "spatial" loaded.
type DuckDBOffsetter struct {
	DB    *sql.DB
	Limit float64
}

// Name identifies the engine.
func (DuckDBOffsetter) Name() string { return "duckdb" }

const bufferQuery = `SELECT ST_AsText(ST_Buffer(ST_GeomFromText(?), ?, 8, 'CAP_ROUND', 'JOIN_MITRE', ?))`

// Offset implements Offsetter.
func (o DuckDBOffsetter) Offset(ctx context.Context, poly orb.Polygon, meters float64) (orb.MultiPolygon, error) {
	if len(poly) == 0 {
		return nil, ErrEmptyPolygon
	}
	if o.DB == nil {
		return nil, fmt.Errorf("duckdb offsetter: database not available")
	}
	limit := o.Limit
	if limit <= 0 {
		limit = DefaultMiterLimit
	}

	var text string
	if err := o.DB.QueryRowContext(ctx, bufferQuery, wkt.MarshalString(poly), meters, limit).Scan(&text); err != nil {
		return nil, fmt.Errorf("duckdb buffer: %w", err)
	}
	return parseBuffered(text)
}

// parseBuffered turns ST_Buffer output into polygons, largest first. An
// empty result means the buffer collapsed.
func parseBuffered(text string) (orb.MultiPolygon, error) {
	if strings.Contains(strings.ToUpper(text), "EMPTY") {
		return nil, nil
	}
	g, err := wkt.Unmarshal(text)
	if err != nil {
		return nil, fmt.Errorf("parsing buffered geometry: %w", err)
	}
	return largestFirst(g)
}
