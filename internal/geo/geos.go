package geo

import (
	"context"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/twpayne/go-geos"
)

// DefaultQuadSegs is the number of segments per quarter circle GEOS uses
// for round caps.
const DefaultQuadSegs = 8

// GEOSOffsetter buffers with libgeos through go-geos, joining edges with
// mitres. GEOS resolves the offset curve into valid polygons, so concave
// notches fill in and narrow necks split into separate parts.
type GEOSOffsetter struct {
	Limit    float64
	QuadSegs int
}

// Name identifies the engine.
func (GEOSOffsetter) Name() string { return "geos" }

// Offset implements Offsetter.
func (o GEOSOffsetter) Offset(ctx context.Context, poly orb.Polygon, meters float64) (orb.MultiPolygon, error) {
	if len(poly) == 0 {
		return nil, ErrEmptyPolygon
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := o.Limit
	if limit <= 0 {
		limit = DefaultMiterLimit
	}
	segs := o.QuadSegs
	if segs <= 0 {
		segs = DefaultQuadSegs
	}

	in, err := wkb.Marshal(closedPolygon(poly))
	if err != nil {
		return nil, fmt.Errorf("geos buffer: encode: %w", err)
	}
	g, err := geos.NewGeomFromWKB(in)
	if err != nil {
		return nil, fmt.Errorf("geos buffer: %w", err)
	}
	buffered := g.BufferWithStyle(meters, segs, geos.BufCapStyleRound, geos.BufJoinStyleMitre, limit)
	if buffered == nil || buffered.IsEmpty() {
		return nil, nil
	}
	out, err := wkb.Unmarshal(buffered.ToWKB())
	if err != nil {
		return nil, fmt.Errorf("geos buffer: decode: %w", err)
	}
	return largestFirst(out)
}

// closedPolygon copies poly with every ring closed, as WKB readers expect.
func closedPolygon(poly orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, len(poly))
	for _, r := range poly {
		out = append(out, CloseRing(r))
	}
	return out
}
