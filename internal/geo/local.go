package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// EarthRadius is the mean earth radius in metres.
const EarthRadius = 6371008.8

// LocalProjection is an azimuthal equidistant projection centred on
// Origin. Distances from the origin are true, which keeps a metre-based
// buffer honest for river-sized polygons.
type LocalProjection struct {
	Origin orb.Point

	sinLat0, cosLat0 float64
}

// NewLocalProjection centres a projection on a lon/lat origin.
func NewLocalProjection(origin orb.Point) LocalProjection {
	lat0 := deg2rad(origin.Lat())
	return LocalProjection{
		Origin:  origin,
		sinLat0: math.Sin(lat0),
		cosLat0: math.Cos(lat0),
	}
}

// Forward maps lon/lat to metres east/north of the origin.
func (lp LocalProjection) Forward(p orb.Point) orb.Point {
	lat := deg2rad(p.Lat())
	dLon := deg2rad(p.Lon() - lp.Origin.Lon())
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	cosDLon := math.Cos(dLon)

	cosC := lp.sinLat0*sinLat + lp.cosLat0*cosLat*cosDLon
	cosC = math.Max(-1, math.Min(1, cosC))
	c := math.Acos(cosC)
	k := 1.0
	if c != 0 {
		k = c / math.Sin(c)
	}
	x := EarthRadius * k * cosLat * math.Sin(dLon)
	y := EarthRadius * k * (lp.cosLat0*sinLat - lp.sinLat0*cosLat*cosDLon)
	return orb.Point{x, y}
}

// Inverse maps metres east/north of the origin back to lon/lat.
func (lp LocalProjection) Inverse(p orb.Point) orb.Point {
	x, y := p[0], p[1]
	rho := math.Hypot(x, y)
	if rho == 0 {
		return lp.Origin
	}
	c := rho / EarthRadius
	sinC, cosC := math.Sin(c), math.Cos(c)
	lat := math.Asin(cosC*lp.sinLat0 + y*sinC*lp.cosLat0/rho)
	lon := deg2rad(lp.Origin.Lon()) + math.Atan2(x*sinC, rho*lp.cosLat0*cosC-y*lp.sinLat0*sinC)
	return orb.Point{rad2deg(lon), rad2deg(lat)}
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }
