// Package geo holds the geometry helpers behind the river buffer:
// display/geographic projection, ring closure and polygon offsetting.
//
// Display coordinates are EPSG:3857 (web mercator metres); geographic
// coordinates are EPSG:4326 lon/lat. Every helper here clones its input,
// since orb's project helpers rewrite geometries in place.
package geo

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// ToLonLat converts a display-projection geometry to lon/lat.
func ToLonLat(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return project.Geometry(orb.Clone(g), project.Mercator.ToWGS84)
}

// FromLonLat converts a lon/lat geometry to display projection.
func FromLonLat(g orb.Geometry) orb.Geometry {
	if g == nil {
		return nil
	}
	return project.Geometry(orb.Clone(g), project.WGS84.ToMercator)
}

// PointToLonLat converts a single display-projection point.
func PointToLonLat(p orb.Point) orb.Point {
	return project.Mercator.ToWGS84(p)
}

// PointFromLonLat converts a single lon/lat point to display projection.
func PointFromLonLat(p orb.Point) orb.Point {
	return project.WGS84.ToMercator(p)
}

// RingToLonLat converts every coordinate of a display-projection ring.
func RingToLonLat(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = project.Mercator.ToWGS84(p)
	}
	return out
}

// CloseRing returns a copy of r whose last coordinate equals its first.
// A ring that is already closed is copied unchanged.
func CloseRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r), len(r)+1)
	copy(out, r)
	if len(out) > 0 && !out[0].Equal(out[len(out)-1]) {
		out = append(out, out[0])
	}
	return out
}
