// Package grid converts between image pixels, world meters and map grid codes.
package grid

import (
	"math"
	"strconv"
	"strings"

	"github.com/foxholetools/artyplanner/pkg/core"
)

// Layout describes how the map image is divided into lettered columns,
// numbered rows and keypad sub-cells.
type Layout struct {
	Columns      int `json:"columns" mapstructure:"columns"`
	Rows         int `json:"rows" mapstructure:"rows"`
	Subdivisions int `json:"subdivisions" mapstructure:"subdivisions"`
}

// DefaultLayout is the in-game hex map grid.
var DefaultLayout = Layout{Columns: 17, Rows: 15, Subdivisions: 3}

func (l Layout) normalized() Layout {
	if l.Columns < 1 {
		l.Columns = DefaultLayout.Columns
	}
	if l.Rows < 1 {
		l.Rows = DefaultLayout.Rows
	}
	if l.Subdivisions < 1 {
		l.Subdivisions = DefaultLayout.Subdivisions
	}
	return l
}

// PixelToMeters scales an image position into world meters.
func PixelToMeters(p core.Position, d core.MapDimensions) core.Position {
	return core.Position{
		X:     p.X * d.MeterWidth / d.PixelWidth,
		Y:     p.Y * d.MeterHeight / d.PixelHeight,
		Space: core.SpaceMeter,
	}
}

// MetersToPixel is the inverse of PixelToMeters.
func MetersToPixel(p core.Position, d core.MapDimensions) core.Position {
	return core.Position{
		X:     p.X * d.PixelWidth / d.MeterWidth,
		Y:     p.Y * d.PixelHeight / d.MeterHeight,
		Space: core.SpacePixel,
	}
}

// MetersToPixelDistance converts a length in meters to pixels using the mean
// of the horizontal and vertical scales. Used for accuracy circles.
func MetersToPixelDistance(m float64, d core.MapDimensions) float64 {
	sx := d.PixelWidth / d.MeterWidth
	sy := d.PixelHeight / d.MeterHeight
	return m * (sx + sy) / 2
}

// ColumnLabel returns the letter label of a zero-based column:
// A..Z, then AA, AB and so on.
func ColumnLabel(i int) string {
	if i < 0 {
		return ""
	}
	var buf []byte
	for n := i + 1; n > 0; n = (n - 1) / 26 {
		buf = append(buf, byte('A'+(n-1)%26))
	}
	for l, r := 0, len(buf)-1; l < r; l, r = l+1, r-1 {
		buf[l], buf[r] = buf[r], buf[l]
	}
	return string(buf)
}

// boundaryEpsilon absorbs rounding when a point sits on a computed grid line.
const boundaryEpsilon = 1e-9

// slot returns the zero-based index of the sub-cell strip containing v.
// A value on a boundary belongs to the lower strip; values outside are clamped.
func slot(v, extent float64, n int) int {
	f := v * float64(n) / extent
	if r := math.Round(f); math.Abs(f-r) < boundaryEpsilon {
		f = r
	}
	i := int(math.Ceil(f)) - 1
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// PixelToGridCode formats the grid reference of a pixel position, e.g. "I4k5".
// Sub-cells are numbered 1..s*s row-major from the top-left of each cell.
func PixelToGridCode(p core.Position, d core.MapDimensions, l Layout) string {
	l = l.normalized()
	s := l.Subdivisions

	gx := slot(p.X, d.PixelWidth, l.Columns*s)
	gy := slot(p.Y, d.PixelHeight, l.Rows*s)

	col, subCol := gx/s, gx%s
	row, subRow := gy/s, gy%s

	var b strings.Builder
	b.WriteString(ColumnLabel(col))
	b.WriteString(strconv.Itoa(row + 1))
	b.WriteByte('k')
	b.WriteString(strconv.Itoa(subRow*s + subCol + 1))
	return b.String()
}

// ColumnLinePx is the x pixel of the left edge of column col. col == Columns gives the right edge.
func ColumnLinePx(col int, d core.MapDimensions, l Layout) float64 {
	l = l.normalized()
	return float64(col) * d.PixelWidth / float64(l.Columns)
}

// RowLinePx is the y pixel of the top edge of row row. row == Rows gives the bottom edge.
func RowLinePx(row int, d core.MapDimensions, l Layout) float64 {
	l = l.normalized()
	return float64(row) * d.PixelHeight / float64(l.Rows)
}
