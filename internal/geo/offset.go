package geo

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
)

// DefaultMiterLimit caps a mitre at this multiple of the buffer distance
// before the corner is bevelled.
const DefaultMiterLimit = 5.0

var (
	// ErrEmptyPolygon is returned when there is no ring to buffer.
	ErrEmptyPolygon = errors.New("polygon has no outer ring")
	// ErrSelfIntersecting is returned by MiterOffsetter when offset edges
	// cross, which it cannot resolve into a valid polygon.
	ErrSelfIntersecting = errors.New("offset ring intersects itself")
)

// Offsetter grows (positive distance) or shrinks (negative distance) a
// polygon expressed in planar metres. The parts of the result are ordered
// largest first; a narrow neck shrunk away leaves more than one. An empty
// result with a nil error means the buffer collapsed to nothing.
type Offsetter interface {
	Name() string
	Offset(ctx context.Context, poly orb.Polygon, meters float64) (orb.MultiPolygon, error)
}

// Buffer buffers a lon/lat polygon by meters using off. The polygon is
// moved into a local metric plane centred on its bound, offset there, and
// moved back. poly is not modified.
func Buffer(ctx context.Context, off Offsetter, poly orb.Polygon, meters float64) (orb.MultiPolygon, error) {
	if len(poly) == 0 || len(poly[0]) == 0 {
		return nil, ErrEmptyPolygon
	}
	lp := NewLocalProjection(poly[0].Bound().Center())

	local := project.Geometry(poly.Clone(), lp.Forward).(orb.Polygon)
	res, err := off.Offset(ctx, local, meters)
	if err != nil || len(res) == 0 {
		return nil, err
	}
	return project.Geometry(res, lp.Inverse).(orb.MultiPolygon), nil
}

// largestFirst flattens a buffered geometry into polygons ordered by
// decreasing area.
func largestFirst(g orb.Geometry) (orb.MultiPolygon, error) {
	var mp orb.MultiPolygon
	switch g := g.(type) {
	case orb.Polygon:
		if len(g) > 0 && len(g[0]) > 0 {
			mp = orb.MultiPolygon{g}
		}
	case orb.MultiPolygon:
		for _, p := range g {
			if len(p) > 0 && len(p[0]) > 0 {
				mp = append(mp, p)
			}
		}
	case orb.Collection:
		for _, part := range g {
			sub, err := largestFirst(part)
			if err != nil {
				return nil, err
			}
			mp = append(mp, sub...)
		}
	default:
		return nil, fmt.Errorf("unexpected buffered geometry %s", g.GeoJSONType())
	}
	slices.SortStableFunc(mp, func(a, b orb.Polygon) int {
		return cmp.Compare(planar.Area(b), planar.Area(a))
	})
	return mp, nil
}

// MiterOffsetter offsets rings edge by edge and joins neighbouring edges
// with mitres. It cannot split or merge rings, so wherever offset edges
// cross (a notch filled in, a neck pinched off) it returns
// ErrSelfIntersecting. The geos engine handles those shapes.
type MiterOffsetter struct {
	Limit float64
}

// Name identifies the engine.
func (MiterOffsetter) Name() string { return "miter" }

// Offset implements Offsetter.
func (m MiterOffsetter) Offset(ctx context.Context, poly orb.Polygon, meters float64) (orb.MultiPolygon, error) {
	if len(poly) == 0 {
		return nil, ErrEmptyPolygon
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit := m.Limit
	if limit <= 0 {
		limit = DefaultMiterLimit
	}

	out := make(orb.Polygon, 0, len(poly))
	for i, r := range poly {
		r = orient(dedupe(CloseRing(r)), i == 0)
		if meters == 0 {
			out = append(out, r)
			continue
		}
		off, reversed := offsetRing(r, meters, limit)
		if collapsed(r, off, reversed) {
			if i == 0 {
				return nil, nil
			}
			continue
		}
		if selfIntersects(off) {
			return nil, ErrSelfIntersecting
		}
		out = append(out, off)
	}
	return orb.MultiPolygon{out}, nil
}

// offsetRing moves every edge of a closed ring d metres along its
// right-hand normal. For a CCW outer ring that is outward; for a CW hole
// it is into the hole. The second result is the share of the original
// perimeter whose offset edges now run backwards, which is how a ring
// that has been shrunk past its own width shows up.
func offsetRing(r orb.Ring, d, limit float64) (orb.Ring, float64) {
	pts := r[:len(r)-1]
	n := len(pts)
	if n < 3 {
		return r.Clone(), 0
	}

	joins := make([][]orb.Point, n)
	for i := 0; i < n; i++ {
		prev, cur, next := pts[(i-1+n)%n], pts[i], pts[(i+1)%n]
		n1 := rightNormal(prev, cur)
		n2 := rightNormal(cur, next)

		denom := 1 + n1[0]*n2[0] + n1[1]*n2[1]
		open := cross(prev, cur, next)*d > 0

		if denom > 1e-12 && (!open || math.Sqrt(2/denom) <= limit) {
			joins[i] = []orb.Point{{
				cur[0] + d*(n1[0]+n2[0])/denom,
				cur[1] + d*(n1[1]+n2[1])/denom,
			}}
			continue
		}
		joins[i] = []orb.Point{
			{cur[0] + d*n1[0], cur[1] + d*n1[1]},
			{cur[0] + d*n2[0], cur[1] + d*n2[1]},
		}
	}

	var perimeter, reversed float64
	out := make(orb.Ring, 0, n+2)
	for i := 0; i < n; i++ {
		out = append(out, joins[i]...)

		a, b := pts[i], pts[(i+1)%n]
		from := joins[i][len(joins[i])-1]
		to := joins[(i+1)%n][0]
		length := math.Hypot(b[0]-a[0], b[1]-a[1])
		perimeter += length
		if (to[0]-from[0])*(b[0]-a[0])+(to[1]-from[1])*(b[1]-a[1]) <= 0 {
			reversed += length
		}
	}
	return append(out, out[0]), reversed / perimeter
}

// collapsed reports whether an offset ring has inverted or vanished.
func collapsed(in, out orb.Ring, reversed float64) bool {
	if len(in) < 4 {
		return false
	}
	a, b := signedArea(in), signedArea(out)
	return b == 0 || (a > 0) != (b > 0) || reversed > 0.5
}

// orient returns r wound CCW when outer is true and CW otherwise.
func orient(r orb.Ring, outer bool) orb.Ring {
	ccw := signedArea(r) > 0
	if ccw != outer {
		r.Reverse()
	}
	return r
}

// dedupe drops consecutive duplicate points, which would give zero-length
// edges and undefined normals.
func dedupe(r orb.Ring) orb.Ring {
	if len(r) == 0 {
		return r
	}
	out := r[:1]
	for _, p := range r[1:] {
		if !p.Equal(out[len(out)-1]) {
			out = append(out, p)
		}
	}
	if len(out) > 1 && !out[0].Equal(out[len(out)-1]) {
		out = append(out, out[0])
	}
	return out
}

// touchTolerance is how close, in metres, two non-adjacent edges of an
// offset ring may come before they count as touching.
const touchTolerance = 1e-6

// selfIntersects reports whether two non-adjacent edges of a closed ring
// cross or touch.
func selfIntersects(r orb.Ring) bool {
	n := len(r) - 1
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if segmentsMeet(r[i], r[i+1], r[j], r[j+1]) {
				return true
			}
		}
	}
	return false
}

func segmentsMeet(a, b, c, d orb.Point) bool {
	d1, d2 := cross(a, b, c), cross(a, b, d)
	d3, d4 := cross(c, d, a), cross(c, d, b)
	if d1*d2 < 0 && d3*d4 < 0 {
		return true
	}
	return planar.DistanceFromSegment(a, b, c) <= touchTolerance ||
		planar.DistanceFromSegment(a, b, d) <= touchTolerance ||
		planar.DistanceFromSegment(c, d, a) <= touchTolerance ||
		planar.DistanceFromSegment(c, d, b) <= touchTolerance
}

func rightNormal(a, b orb.Point) orb.Point {
	dx, dy := b[0]-a[0], b[1]-a[1]
	l := math.Hypot(dx, dy)
	return orb.Point{dy / l, -dx / l}
}

func cross(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-b[1]) - (b[1]-a[1])*(c[0]-b[0])
}

// signedArea is positive for CCW rings.
func signedArea(r orb.Ring) float64 {
	var s float64
	for i := 0; i+1 < len(r); i++ {
		s += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return s / 2
}
