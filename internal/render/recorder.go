package render

import (
	"fmt"
	"sync"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/geometry"
)

type Op string

const (
	OpPlace   Op = "place"
	OpRemove  Op = "remove"
	OpAnimate Op = "animate"
	OpRaise   Op = "raise"
	OpFollow  Op = "follow"
	OpSnap    Op = "snap"
	OpClear   Op = "clear"
)

// Command is one recorded bridge call. Field is the origin (or only) field;
// To is set for animations.
type Command struct {
	Op     Op
	Piece  board.Piece
	Field  board.Field
	To     board.Field
	Anchor geometry.Point
}

func (c Command) String() string {
	switch c.Op {
	case OpAnimate:
		return fmt.Sprintf("%s %s %s->%s", c.Op, c.Piece.Token(), c.Field, c.To)
	case OpFollow:
		return fmt.Sprintf("%s %s %s (%.1f,%.1f)", c.Op, c.Piece.Token(), c.Field, c.Anchor.X, c.Anchor.Y)
	case OpClear:
		return string(c.Op)
	default:
		return fmt.Sprintf("%s %s %s", c.Op, c.Piece.Token(), c.Field)
	}
}

// Recorder keeps every command it receives. Used by tests and the
// check command.
type Recorder struct {
	mu   sync.Mutex
	cmds []Command
}

func (r *Recorder) add(c Command) {
	r.mu.Lock()
	r.cmds = append(r.cmds, c)
	r.mu.Unlock()
}

func (r *Recorder) PlacePiece(f board.Field, p board.Piece) {
	r.add(Command{Op: OpPlace, Piece: p, Field: f, To: board.NoField})
}

func (r *Recorder) RemovePiece(f board.Field, p board.Piece) {
	r.add(Command{Op: OpRemove, Piece: p, Field: f, To: board.NoField})
}

func (r *Recorder) AnimateMove(p board.Piece, from, to board.Field) {
	r.add(Command{Op: OpAnimate, Piece: p, Field: from, To: to})
}

func (r *Recorder) RaiseToTop(p board.Piece, f board.Field) {
	r.add(Command{Op: OpRaise, Piece: p, Field: f, To: board.NoField})
}

func (r *Recorder) FollowPointer(p board.Piece, origin board.Field, anchor geometry.Point) {
	r.add(Command{Op: OpFollow, Piece: p, Field: origin, To: board.NoField, Anchor: anchor})
}

func (r *Recorder) SnapBack(p board.Piece, origin board.Field) {
	r.add(Command{Op: OpSnap, Piece: p, Field: origin, To: board.NoField})
}

func (r *Recorder) Clear() {
	r.add(Command{Op: OpClear, Field: board.NoField, To: board.NoField})
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.cmds...)
}

// Ops returns just the operation names, in order.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.cmds))
	for i, c := range r.cmds {
		out[i] = c.Op
	}
	return out
}

func (r *Recorder) Count(op Op) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.cmds {
		if c.Op == op {
			n++
		}
	}
	return n
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.cmds = nil
	r.mu.Unlock()
}
