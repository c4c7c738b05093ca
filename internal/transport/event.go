// Package transport connects the board to its authority. Inbound traffic
// is delivered as Events in arrival order; outbound traffic goes through
// an Egress.
package transport

import (
	"context"
	"errors"

	"github.com/park285/cheese-board/internal/board"
)

var (
	ErrNotConnected    = errors.New("transport: not connected")
	ErrUnknownEnvelope = errors.New("transport: unknown envelope type")
	ErrUnavailable     = errors.New("transport: egress not available")
)

type EventKind uint8

const (
	EventSnapshot EventKind = iota + 1
	EventMove
	EventState
)

func (k EventKind) String() string {
	switch k {
	case EventSnapshot:
		return "snapshot"
	case EventMove:
		return "move"
	case EventState:
		return "state"
	default:
		return "unknown"
	}
}

// Event is one inbound notification. Only the field matching Kind is set.
type Event struct {
	Kind     EventKind
	Snapshot []board.Occupation
	Update   board.MoveUpdate
	State    State
}

// Handler receives events. Transports call it from their reader goroutine,
// so it should hand off quickly.
type Handler func(Event)

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Egress carries the client's outbound traffic.
type Egress interface {
	SendMove(ctx context.Context, req board.MoveRequest) error
	RequestSnapshot(ctx context.Context) error
}

// Inbound is anything that can start delivering events.
type Inbound interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error
}
