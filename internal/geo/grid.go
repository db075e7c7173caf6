// Package geo maps flat world coordinates onto the in-game map grid and
// provides distance helpers for movement reporting.
package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
)

// GridCellSize is the side length of one map grid cell in world units.
const GridCellSize = 146.25

// ErrOutsideGrid is returned when a coordinate falls outside the map bounds.
var ErrOutsideGrid = errors.New("position outside map grid")

// Point builds a 2D geometry point from world coordinates.
func Point(x, y float64) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Type: geom.DimXY,
	})
}

// Distance returns the straight-line distance between two world positions.
func Distance(x1, y1, x2, y2 float64) float64 {
	d, ok := geom.Distance(Point(x1, y1).AsGeometry(), Point(x2, y2).AsGeometry())
	if !ok {
		return 0
	}
	return d
}

// GridLabel converts a world position to its map grid label, e.g. "D12".
// Columns are lettered left to right (A..Z, AA..), rows are numbered top
// down starting at 0, matching the in-game map overlay.
func GridLabel(x, y, mapSize float64) (string, error) {
	if mapSize <= 0 {
		return "", fmt.Errorf("%w: map size %v", ErrOutsideGrid, mapSize)
	}
	if x < 0 || x > mapSize || y < 0 || y > mapSize {
		return "", fmt.Errorf("%w: (%.1f, %.1f) on %v map", ErrOutsideGrid, x, y, mapSize)
	}

	col := int(math.Floor(x / GridCellSize))
	row := int(math.Floor((mapSize - y) / GridCellSize))
	return fmt.Sprintf("%s%d", columnLetters(col), row), nil
}

// columnLetters converts a zero-based column index to spreadsheet-style
// letters: 0 -> A, 25 -> Z, 26 -> AA.
func columnLetters(col int) string {
	letters := ""
	n := col + 1
	for n > 0 {
		n--
		letters = string(rune('A'+n%26)) + letters
		n /= 26
	}
	return letters
}
