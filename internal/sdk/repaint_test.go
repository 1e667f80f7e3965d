package sdk

import (
	"testing"

	"github.com/kickoff/mapkit/pkg/core"
	"github.com/stretchr/testify/assert"
)

type levelRecorder struct {
	level int
	calls []int
}

func (m *levelRecorder) Center() core.Coordinate  { return core.Coordinate{} }
func (m *levelRecorder) SetCenter(core.Coordinate) {}
func (m *levelRecorder) Level() int               { return m.level }
func (m *levelRecorder) SetLevel(l int) {
	m.calls = append(m.calls, l)
	m.level = l
}
func (m *levelRecorder) Relayout() {}
func (m *levelRecorder) Destroy()  {}

func TestRepaintTiles(t *testing.T) {
	tests := []struct {
		name     string
		level    int
		maxLevel int
		want     []int
	}{
		{"nudges outward", 5, 14, []int{6, 5}},
		{"at max nudges inward", 14, 14, []int{13, 14}},
		{"no max configured", 20, 0, []int{21, 20}},
		{"single level range is left alone", 1, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &levelRecorder{level: tt.level}
			RepaintTiles(m, tt.maxLevel)
			assert.Equal(t, tt.want, m.calls)
			assert.Equal(t, tt.level, m.level, "level is restored")
		})
	}
}

func TestClampLevel(t *testing.T) {
	assert.Equal(t, 1, ClampLevel(0, 14))
	assert.Equal(t, 14, ClampLevel(15, 14))
	assert.Equal(t, 7, ClampLevel(7, 14))
	assert.Equal(t, 30, ClampLevel(30, 0))
}
