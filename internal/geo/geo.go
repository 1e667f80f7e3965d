// Package geo converts match coordinates between WGS84 degrees and web mercator meters.
package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/kickoff/mapkit/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// ErrInvalidCoordinates is returned when the coordinates are invalid
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// HalfWorld is half the web mercator world width in meters.
const HalfWorld = 20037508.342789244

// ParseCoordinate parses a "lat,lng" string.
func ParseCoordinate(s string) (core.Coordinate, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	lng, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	c := core.Coordinate{Lat: lat, Lng: lng}
	if !c.Valid() {
		return core.Coordinate{}, ErrInvalidCoordinates
	}
	return c, nil
}

// ToWebMercator projects a coordinate to an EPSG:3857 point. Coordinates that do not project
// to a finite point fail with ErrInvalidCoordinates.
func ToWebMercator(c core.Coordinate) (geom.Point, error) {
	x, y, _ := wgs84.EPSG().Transform(4326, 3857)(c.Lng, c.Lat, 0)
	p, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: x, Y: y}})
	if err != nil {
		return geom.Point{}, fmt.Errorf("%w: %v", ErrInvalidCoordinates, err)
	}
	return p, nil
}

// FromWebMercator converts an EPSG:3857 point back to degrees.
func FromWebMercator(p geom.Point) (core.Coordinate, bool) {
	coords, ok := p.Coordinates()
	if !ok {
		return core.Coordinate{}, false
	}
	lng, lat, _ := wgs84.EPSG().Transform(3857, 4326)(coords.X, coords.Y, 0)
	return core.Coordinate{Lat: lat, Lng: lng}, true
}

// Centroid returns the mercator centroid of the points with valid, projectable coordinates.
// ok is false when none of them has one.
func Centroid(points []core.PointOfInterest) (center core.Coordinate, ok bool) {
	projected := make([]geom.Point, 0, len(points))
	for _, p := range points {
		if !p.Coordinate.Valid() {
			continue
		}
		pt, err := ToWebMercator(p.Coordinate)
		if err != nil {
			continue
		}
		projected = append(projected, pt)
	}
	if len(projected) == 0 {
		return core.Coordinate{}, false
	}
	if len(projected) == 1 {
		return FromWebMercator(projected[0])
	}
	return FromWebMercator(geom.NewMultiPoint(projected).Centroid())
}
