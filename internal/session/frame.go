package session

import (
	"time"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/drag"
	"github.com/park285/cheese-board/internal/geometry"
	"github.com/park285/cheese-board/internal/transport"
)

// PendingMove is a move request the authority has not answered yet.
type PendingMove struct {
	Request board.MoveRequest
	Piece   board.Piece
	SentAt  time.Time
}

// Frame is an immutable snapshot of the session, published after every
// event. Readers on other goroutines must treat it as read-only.
type Frame struct {
	Seq                uint64
	Orientation        geometry.Orientation
	OrientationVersion uint64
	Occupied           []board.Occupation
	Captures           []board.Piece
	FEN                string
	Turn               string
	LastMove           *board.Move
	Drag               drag.State
	Pending            []PendingMove
	Diagnostics        int
	Connection         transport.State
	UpdatedAt          time.Time
}

// PieceAt looks a field up in the frame.
func (f *Frame) PieceAt(field board.Field) (board.Piece, bool) {
	for _, o := range f.Occupied {
		if o.Field == field {
			return o.Piece, true
		}
	}
	return board.Unknown, false
}
