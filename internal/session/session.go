// Package session runs the board on a single timeline. Transport events,
// pointer input, orientation changes and watchdog checks are all applied
// one at a time by Dispatch; everything else reads the published Frame.
package session

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/drag"
	"github.com/park285/cheese-board/internal/geometry"
	"github.com/park285/cheese-board/internal/render"
	"github.com/park285/cheese-board/internal/tracker"
	"github.com/park285/cheese-board/internal/transport"
)

var ErrStopped = errors.New("session: stopped")

type Session struct {
	cfg     *geometry.Config
	tracker *tracker.Tracker
	drag    *drag.Controller
	bridge  render.Bridge
	egress  transport.Egress
	logger  *zap.Logger
	now     func() time.Time

	inbox  chan Event
	closed chan struct{}

	sendTimeout   time.Duration
	dragThreshold float64
	resyncWindow  time.Duration

	// owned by the timeline
	seq        uint64
	pending    []pending
	lastMove   *board.Move
	turn       string
	diagCount  int
	connection transport.State
	lastResync time.Time

	frame atomic.Pointer[Frame]
}

type pending struct {
	PendingMove
	shown bool
}

type Option func(*Session)

func WithLogger(l *zap.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func WithDragThreshold(px float64) Option {
	return func(s *Session) { s.dragThreshold = px }
}

func WithSendTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.sendTimeout = d
		}
	}
}

// WithResyncWindow sets how long an optimistic move may stay unanswered
// before CheckEvent requests a snapshot.
func WithResyncWindow(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.resyncWindow = d
		}
	}
}

func WithInboxSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.inbox = make(chan Event, n)
		}
	}
}

func New(cfg *geometry.Config, bridge render.Bridge, egress transport.Egress, opts ...Option) *Session {
	if bridge == nil {
		bridge = render.Nop{}
	}
	s := &Session{
		cfg:          cfg,
		bridge:       bridge,
		egress:       egress,
		logger:       zap.NewNop(),
		now:          time.Now,
		inbox:        make(chan Event, 256),
		closed:       make(chan struct{}),
		sendTimeout:  5 * time.Second,
		resyncWindow: 10 * time.Second,
		connection:   transport.StateDisconnected,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracker = tracker.New(tracker.WithDiagnostics(s.onDiagnostic))
	s.drag = drag.New(cfg, s.tracker, bridge, s,
		drag.WithThreshold(s.dragThreshold),
		drag.WithLogger(s.logger),
	)
	s.publish()
	return s
}

// Frame returns the latest published frame.
func (s *Session) Frame() *Frame { return s.frame.Load() }

// Dispatch applies ev. It must only be called from one goroutine at a
// time; Run does that for queued events.
func (s *Session) Dispatch(ev Event) {
	if ev == nil {
		return
	}
	ev.apply(s)
	s.seq++
	s.publish()
}

// Post queues ev for Run.
func (s *Session) Post(ctx context.Context, ev Event) error {
	select {
	case <-s.closed:
		return ErrStopped
	default:
	}
	select {
	case s.inbox <- ev:
		return nil
	case <-s.closed:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler adapts the session to a transport callback.
func (s *Session) Handler() transport.Handler {
	return func(ev transport.Event) {
		if err := s.Post(context.Background(), TransportEvent{Event: ev}); err != nil {
			s.logger.Debug("session_event_dropped", zap.String("kind", ev.Kind.String()), zap.Error(err))
		}
	}
}

// Run drains the inbox until ctx ends.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.closed)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.inbox:
			s.Dispatch(ev)
		}
	}
}

func (s *Session) onDiagnostic(d tracker.Diagnostic) {
	s.diagCount++
	s.logger.Warn("tracker_diagnostic",
		zap.String("kind", string(d.Kind)),
		zap.String("field", d.Field.String()),
		zap.String("piece", d.Piece.Token()),
		zap.String("expected", d.Expected.Token()),
		zap.String("ply", d.Update.Primary.String()),
		zap.Bool("reverted", d.Update.Reverted),
	)
}

func (s *Session) publish() {
	o, ov := s.cfg.Current()
	occ := s.tracker.AllOccupied()
	pend := make([]PendingMove, len(s.pending))
	for i, p := range s.pending {
		pend[i] = p.PendingMove
	}
	var last *board.Move
	if s.lastMove != nil {
		m := *s.lastMove
		last = &m
	}
	s.frame.Store(&Frame{
		Seq:                s.seq,
		Orientation:        o,
		OrientationVersion: ov,
		Occupied:           occ,
		Captures:           s.tracker.Captures(),
		FEN:                board.FEN(occ),
		Turn:               s.turn,
		LastMove:           last,
		Drag:               s.drag.State(),
		Pending:            pend,
		Diagnostics:        s.diagCount,
		Connection:         s.connection,
		UpdatedAt:          s.now(),
	})
}
