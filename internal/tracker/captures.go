package tracker

import "github.com/park285/cheese-board/internal/board"

// CaptureStack holds captured pieces in capture order.
type CaptureStack struct {
	items []board.Piece
}

func (s *CaptureStack) Push(p board.Piece) { s.items = append(s.items, p) }

// Pop removes the top token. It reports false and leaves the stack alone
// when empty.
func (s *CaptureStack) Pop() (board.Piece, bool) {
	if len(s.items) == 0 {
		return board.Unknown, false
	}
	top := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]
	return top, true
}

func (s *CaptureStack) Len() int { return len(s.items) }

// Snapshot copies the stack, bottom first.
func (s *CaptureStack) Snapshot() []board.Piece {
	return append([]board.Piece(nil), s.items...)
}
