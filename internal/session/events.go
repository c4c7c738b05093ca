package session

import (
	"github.com/park285/cheese-board/internal/geometry"
	"github.com/park285/cheese-board/internal/transport"
)

// Event is anything the session timeline processes.
type Event interface {
	apply(s *Session)
}

// TransportEvent wraps inbound authority traffic.
type TransportEvent struct {
	transport.Event
}

func (e TransportEvent) apply(s *Session) { s.applyTransport(e.Event) }

type PointerKind uint8

const (
	PointerDown PointerKind = iota + 1
	PointerMove
	PointerUp
	PointerCancel
)

func (k PointerKind) String() string {
	switch k {
	case PointerDown:
		return "down"
	case PointerMove:
		return "move"
	case PointerUp:
		return "up"
	case PointerCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// PointerEvent carries a pointer position in board pixels.
type PointerEvent struct {
	Kind PointerKind
	At   geometry.Point
}

func (e PointerEvent) apply(s *Session) { s.applyPointer(e) }

// OrientationEvent flips or resizes the board.
type OrientationEvent struct {
	Orientation geometry.Orientation
}

func (e OrientationEvent) apply(s *Session) { s.applyOrientation(e.Orientation) }

// CheckEvent asks the session to look for overdue optimistic moves.
type CheckEvent struct{}

func (CheckEvent) apply(s *Session) { s.checkOverdue() }

type sendFailedEvent struct {
	id  string
	err error
}

func (e sendFailedEvent) apply(s *Session) { s.dropPending(e.id, e.err) }
