package main

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/kickoff/mapkit/pkg/core"
)

// demoPoints is used when no points file is given. The last entry has no location yet,
// the way unscheduled matches arrive from the listing API.
var demoPoints = []core.PointOfInterest{
	{ID: "101", Title: "Gangnam FC vs Seocho United", Coordinate: core.Coordinate{Lat: 37.4979, Lng: 127.0276}},
	{ID: "102", Title: "Jamsil Futsal Night", Coordinate: core.Coordinate{Lat: 37.5133, Lng: 127.1001}},
	{ID: "103", Title: "Seongsu Sunday League", Coordinate: core.Coordinate{Lat: 37.5446, Lng: 127.0559}},
	{ID: "104", Title: "Venue TBD"},
}

// matchTarget is the detail route a marker click navigates to.
func matchTarget(id string) string {
	return "/matches/" + id
}

// decodePoints reads a JSON array of points. Points without a navigation target link to
// their match detail page.
func decodePoints(r io.Reader) ([]core.PointOfInterest, error) {
	var points []core.PointOfInterest
	if err := json.NewDecoder(r).Decode(&points); err != nil {
		return nil, fmt.Errorf("decoding points: %w", err)
	}
	for i := range points {
		if points[i].NavigationTarget == "" && points[i].ID != "" {
			points[i].NavigationTarget = matchTarget(points[i].ID)
		}
	}
	return points, nil
}

func loadPoints(path string) ([]core.PointOfInterest, error) {
	if path == "" {
		points := make([]core.PointOfInterest, len(demoPoints))
		copy(points, demoPoints)
		for i := range points {
			points[i].NavigationTarget = matchTarget(points[i].ID)
		}
		return points, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening points file: %w", err)
	}
	defer f.Close()
	return decodePoints(f)
}
