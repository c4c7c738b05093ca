// Package geometry maps algebraic fields to board pixels and back.
//
// Every function takes the orientation explicitly; Config is the versioned
// holder callers inject when they need the current orientation.
package geometry

import (
	"math"

	"github.com/park285/cheese-board/internal/board"
)

// VerticalFudge lifts a piece off the bottom edge of its field, as a
// fraction of the field size.
const VerticalFudge = 0.04

// Footprint ratios relative to the field size.
const (
	PawnHeightRatio  = 0.7
	PieceHeightRatio = 0.8
)

type Point struct {
	X float64
	Y float64
}

func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }

// Dist is the euclidean distance between p and q.
func (p Point) Dist(q Point) float64 { return math.Hypot(p.X-q.X, p.Y-q.Y) }

type Rect struct {
	X float64
	Y float64
	W float64
	H float64
}

func (r Rect) Center() Point { return Point{X: r.X + r.W/2, Y: r.Y + r.H/2} }

// Contains uses half-open intervals, matching PixelToField.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.W && p.Y >= r.Y && p.Y < r.Y+r.H
}

// Footprint is the drawn size of a piece.
type Footprint struct {
	W float64
	H float64
}

// Orientation is the display configuration every mapping depends on.
type Orientation struct {
	Flipped   bool
	FieldSize float64
}

// BoardSize is the pixel extent of the 8x8 board.
func (o Orientation) BoardSize() float64 { return 8 * o.FieldSize }

// FieldToRect returns the pixel rectangle of f. Invalid fields map to a
// zero rectangle.
func FieldToRect(f board.Field, o Orientation) Rect {
	if !f.Valid() {
		return Rect{}
	}
	col := f.File()
	row := 7 - f.Rank()
	if o.Flipped {
		col = 7 - col
		row = 7 - row
	}
	return Rect{
		X: float64(col) * o.FieldSize,
		Y: float64(row) * o.FieldSize,
		W: o.FieldSize,
		H: o.FieldSize,
	}
}

// PixelToField resolves the field under (x, y). It reports false when the
// point lies outside the board; a point on a boundary belongs to the
// upper-left field.
func PixelToField(x, y float64, o Orientation) (board.Field, bool) {
	if !validFieldSize(o.FieldSize) || math.IsNaN(x) || math.IsNaN(y) {
		return board.NoField, false
	}
	size := o.BoardSize()
	if x < 0 || y < 0 || x >= size || y >= size {
		return board.NoField, false
	}
	col := int(math.Floor(x / o.FieldSize))
	row := int(math.Floor(y / o.FieldSize))
	if col > 7 {
		col = 7
	}
	if row > 7 {
		row = 7
	}
	if o.Flipped {
		col = 7 - col
		row = 7 - row
	}
	return board.NewField(col, 7-row)
}

// FootprintFor returns the drawn size of a piece type at the given field
// size. Assets are square so width equals height.
func FootprintFor(t board.PieceType, fieldSize float64) Footprint {
	ratio := PieceHeightRatio
	if t == board.Pawn {
		ratio = PawnHeightRatio
	}
	h := fieldSize * ratio
	return Footprint{W: h, H: h}
}

// PieceAnchor is the top-left point at which a piece is drawn so that it
// sits horizontally centered and bottom aligned within f.
func PieceAnchor(f board.Field, o Orientation, fp Footprint) Point {
	r := FieldToRect(f, o)
	return Point{
		X: r.X + o.FieldSize/2 - fp.W/2,
		Y: r.Y + o.FieldSize - fp.H - VerticalFudge*o.FieldSize,
	}
}
