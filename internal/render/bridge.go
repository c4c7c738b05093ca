// Package render turns board events into visual commands. The core only
// talks to the Bridge interface; Projection keeps an in-memory scene that
// PNGRenderer rasterizes.
package render

import (
	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/geometry"
)

// Bridge receives visual commands. Implementations must be idempotent:
// placing the same piece twice or removing an absent piece is harmless.
type Bridge interface {
	PlacePiece(f board.Field, p board.Piece)
	RemovePiece(f board.Field, p board.Piece)
	AnimateMove(p board.Piece, from, to board.Field)
	RaiseToTop(p board.Piece, f board.Field)
	FollowPointer(p board.Piece, origin board.Field, anchor geometry.Point)
	SnapBack(p board.Piece, origin board.Field)
	Clear()
}

// Nop discards every command.
type Nop struct{}

func (Nop) PlacePiece(board.Field, board.Piece)                    {}
func (Nop) RemovePiece(board.Field, board.Piece)                   {}
func (Nop) AnimateMove(board.Piece, board.Field, board.Field)      {}
func (Nop) RaiseToTop(board.Piece, board.Field)                    {}
func (Nop) FollowPointer(board.Piece, board.Field, geometry.Point) {}
func (Nop) SnapBack(board.Piece, board.Field)                      {}
func (Nop) Clear()                                                 {}

// Multi fans commands out to several bridges in order.
type Multi []Bridge

func (m Multi) PlacePiece(f board.Field, p board.Piece) {
	for _, b := range m {
		b.PlacePiece(f, p)
	}
}

func (m Multi) RemovePiece(f board.Field, p board.Piece) {
	for _, b := range m {
		b.RemovePiece(f, p)
	}
}

func (m Multi) AnimateMove(p board.Piece, from, to board.Field) {
	for _, b := range m {
		b.AnimateMove(p, from, to)
	}
}

func (m Multi) RaiseToTop(p board.Piece, f board.Field) {
	for _, b := range m {
		b.RaiseToTop(p, f)
	}
}

func (m Multi) FollowPointer(p board.Piece, origin board.Field, anchor geometry.Point) {
	for _, b := range m {
		b.FollowPointer(p, origin, anchor)
	}
}

func (m Multi) SnapBack(p board.Piece, origin board.Field) {
	for _, b := range m {
		b.SnapBack(p, origin)
	}
}

func (m Multi) Clear() {
	for _, b := range m {
		b.Clear()
	}
}
