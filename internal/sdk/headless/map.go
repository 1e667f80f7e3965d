package headless

import (
	"math"
	"sort"

	"github.com/kickoff/mapkit/internal/geo"
	"github.com/kickoff/mapkit/internal/sdk"
	"github.com/kickoff/mapkit/pkg/core"
)

// TileSize is the edge length of a map tile in pixels.
const TileSize = 256

// maxZoom is the web mercator zoom that level 1 corresponds to.
const maxZoom = 20

// Tile addresses a web mercator tile.
type Tile struct {
	Z, X, Y int
}

// Map is a headless map instance.
type Map struct {
	sdk       *Sdk
	container sdk.Container

	center core.Coordinate
	level  int
	size   core.Geometry

	// blank is set when the map was built inside a zero-size container; nothing fixes it.
	blank     bool
	stale     bool
	destroyed bool
	painted   map[Tile]struct{}
	markers   map[int]*Marker

	// Relayouts counts Relayout calls.
	Relayouts int
	// LevelChanges counts SetLevel calls that changed the level.
	LevelChanges int
	// Paints counts full tile repaints.
	Paints int
}

func newMap(s *Sdk, container sdk.Container, opts sdk.MapOptions) *Map {
	m := &Map{
		sdk:       s,
		container: container,
		center:    opts.Center,
		level:     opts.Level,
		size:      container.Geometry(),
		markers:   make(map[int]*Marker),
	}
	if !m.size.Valid() {
		m.blank = true
		return m
	}
	m.paint()
	return m
}

// Center returns the map center.
func (m *Map) Center() core.Coordinate {
	return m.center
}

// SetCenter pans the map. Setting the same center is not a pan and does not repaint.
func (m *Map) SetCenter(c core.Coordinate) {
	if c == m.center {
		return
	}
	m.center = c
	m.paint()
}

// Level returns the zoom level.
func (m *Map) Level() int {
	return m.level
}

// SetLevel zooms the map and repaints when the level changes.
func (m *Map) SetLevel(level int) {
	if level == m.level {
		return
	}
	m.level = level
	m.LevelChanges++
	m.paint()
}

// Relayout adopts the container's current size. Tiles are not repainted.
func (m *Map) Relayout() {
	m.Relayouts++
	g := m.container.Geometry()
	if g != m.size {
		m.size = g
		m.stale = true
	}
}

// Destroy detaches every marker and marks the map unusable.
func (m *Map) Destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	for _, mk := range m.markers {
		mk.removed = true
	}
	m.markers = map[int]*Marker{}
}

// Size returns the size the map currently renders at.
func (m *Map) Size() core.Geometry {
	return m.size
}

// Blank reports whether the map was constructed against a zero-size container.
func (m *Map) Blank() bool {
	return m.blank
}

// Stale reports whether the painted tiles no longer match the rendering size.
func (m *Map) Stale() bool {
	return m.stale
}

// Destroyed reports whether Destroy was called.
func (m *Map) Destroyed() bool {
	return m.destroyed
}

// Markers returns the attached markers ordered by id.
func (m *Map) Markers() []*Marker {
	out := make([]*Marker, 0, len(m.markers))
	for _, mk := range m.markers {
		out = append(out, mk)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Zoom returns the web mercator zoom for the current level.
func (m *Map) Zoom() int {
	z := maxZoom - m.level
	if z < 0 {
		return 0
	}
	if z > maxZoom {
		return maxZoom
	}
	return z
}

// VisibleTiles returns the tiles covering the viewport at the current size.
func (m *Map) VisibleTiles() []Tile {
	if !m.size.Valid() {
		return nil
	}
	center, err := geo.ToWebMercator(m.center)
	if err != nil {
		return nil
	}
	coords, ok := center.Coordinates()
	if !ok {
		return nil
	}

	z := m.Zoom()
	n := 1 << z
	tileMeters := 2 * geo.HalfWorld / float64(n)
	metersPerPixel := tileMeters / TileSize
	halfW := float64(m.size.Width) / 2 * metersPerPixel
	halfH := float64(m.size.Height) / 2 * metersPerPixel

	col := func(x float64) int { return clampTile(int(math.Floor((x+geo.HalfWorld)/tileMeters)), n) }
	row := func(y float64) int { return clampTile(int(math.Floor((geo.HalfWorld-y)/tileMeters)), n) }

	minX, maxX := col(coords.X-halfW), col(coords.X+halfW)
	minY, maxY := row(coords.Y+halfH), row(coords.Y-halfH)

	tiles := make([]Tile, 0, (maxX-minX+1)*(maxY-minY+1))
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			tiles = append(tiles, Tile{Z: z, X: x, Y: y})
		}
	}
	return tiles
}

// PaintedTiles returns the number of tiles drawn by the last repaint.
func (m *Map) PaintedTiles() int {
	return len(m.painted)
}

func (m *Map) paint() {
	if m.blank || m.destroyed {
		return
	}
	m.painted = make(map[Tile]struct{})
	for _, t := range m.VisibleTiles() {
		m.painted[t] = struct{}{}
	}
	m.stale = false
	m.Paints++
}

func clampTile(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}
