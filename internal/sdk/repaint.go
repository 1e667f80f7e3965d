package sdk

// MinLevel is the closest zoom level the SDK accepts.
const MinLevel = 1

// RepaintTiles forces a tile redraw by moving the zoom one level and straight back.
// The SDK repaints tiles only on explicit zoom or pan, so a relayout after the container changed
// size leaves stale or blank tiles until this runs. The nudge goes outward unless the map is
// already at maxLevel.
func RepaintTiles(m Map, maxLevel int) {
	level := m.Level()
	nudge := level + 1
	if maxLevel > 0 && nudge > maxLevel {
		nudge = level - 1
	}
	if nudge < MinLevel {
		return
	}
	m.SetLevel(nudge)
	m.SetLevel(level)
}

// ClampLevel bounds level to [MinLevel, maxLevel].
func ClampLevel(level, maxLevel int) int {
	if level < MinLevel {
		return MinLevel
	}
	if maxLevel > 0 && level > maxLevel {
		return maxLevel
	}
	return level
}
