package geo

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// SRID is the spatial reference used for every point (WGS 84).
const SRID = 4326

// Point is a WGS 84 location stored in XY (longitude, latitude) order.
type Point struct {
	p *geom.Point
}

// NewPoint validates the coordinates and builds a Point.
func NewPoint(lat, lng float64) (Point, error) {
	if lat < -90 || lat > 90 {
		return Point{}, eris.Errorf("geo: latitude %f out of range", lat)
	}
	if lng < -180 || lng > 180 {
		return Point{}, eris.Errorf("geo: longitude %f out of range", lng)
	}
	return Point{p: geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(SRID)}, nil
}

// FromGeom wraps an existing go-geom point. The point must be XY in SRID 4326.
func FromGeom(p *geom.Point) (Point, error) {
	if p == nil || p.Empty() {
		return Point{}, eris.New("geo: empty point")
	}
	return NewPoint(p.Y(), p.X())
}

// Lat returns the latitude in degrees.
func (p Point) Lat() float64 {
	if p.p == nil {
		return 0
	}
	return p.p.Y()
}

// Lng returns the longitude in degrees.
func (p Point) Lng() float64 {
	if p.p == nil {
		return 0
	}
	return p.p.X()
}

// Geom returns the underlying go-geom point.
func (p Point) Geom() *geom.Point {
	return p.p
}

// IsZero reports whether the point was never initialized.
func (p Point) IsZero() bool {
	return p.p == nil
}
