package core

import "math"

// Coordinate is a WGS84 latitude/longitude pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Valid reports whether the coordinate is finite, inside WGS84 bounds and not the zero value.
// The zero value is what the view layer sends for matches without a location.
func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	if c.Lat == 0 && c.Lng == 0 {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

// PointOfInterest is a match location supplied by the view layer.
type PointOfInterest struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Coordinate       Coordinate `json:"coordinate"`
	NavigationTarget string     `json:"navigationTarget,omitempty"`
}

// Geometry is the measured size of a map container in CSS pixels.
type Geometry struct {
	Width  int
	Height int
}

// Valid is true iff both dimensions are positive.
func (g Geometry) Valid() bool {
	return g.Width > 0 && g.Height > 0
}
