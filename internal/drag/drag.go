// Package drag implements the pointer state machine for moving pieces.
//
// The controller only reads the tracked position. It never mutates it:
// a completed drag produces a move request and an optimistic animation,
// and the authority's reply decides where the piece really ends up.
package drag

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/geometry"
	"github.com/park285/cheese-board/internal/render"
)

type State uint8

const (
	Idle State = iota
	Armed
	Dragging
	Releasing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "IDLE"
	case Armed:
		return "ARMED"
	case Dragging:
		return "DRAGGING"
	case Releasing:
		return "RELEASING"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// PieceLocator answers which piece stands on a field.
type PieceLocator interface {
	PieceAt(board.Field) (board.Piece, bool)
}

// MoveRequester forwards a completed drag to the authority. It must not block.
type MoveRequester interface {
	RequestMove(piece board.Piece, from, to board.Field)
}

// Session is the gesture in progress.
type Session struct {
	Piece  board.Piece
	Origin board.Field
	// Offset is pointer minus piece anchor at pointer-down.
	Offset geometry.Point
}

type Outcome uint8

const (
	OutcomeNone Outcome = iota
	OutcomeClick
	OutcomeCancel
	OutcomeMove
)

func (o Outcome) String() string {
	switch o {
	case OutcomeClick:
		return "click"
	case OutcomeCancel:
		return "cancel"
	case OutcomeMove:
		return "move"
	default:
		return "none"
	}
}

// Release reports how a gesture ended.
type Release struct {
	Outcome Outcome
	Piece   board.Piece
	From    board.Field
	To      board.Field
}

type Controller struct {
	cfg       *geometry.Config
	pieces    PieceLocator
	bridge    render.Bridge
	requests  MoveRequester
	threshold float64
	logger    *zap.Logger

	state   State
	sess    Session
	downAt  geometry.Point
	orient  geometry.Orientation
	version uint64
}

type Option func(*Controller)

// WithThreshold sets how far the pointer must travel before an armed
// gesture becomes a drag. Zero means any movement.
func WithThreshold(px float64) Option {
	return func(c *Controller) {
		if px >= 0 {
			c.threshold = px
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(cfg *geometry.Config, pieces PieceLocator, bridge render.Bridge, requests MoveRequester, opts ...Option) *Controller {
	if bridge == nil {
		bridge = render.Nop{}
	}
	c := &Controller{
		cfg:      cfg,
		pieces:   pieces,
		bridge:   bridge,
		requests: requests,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) State() State { return c.state }

// Active returns the gesture in progress, if any.
func (c *Controller) Active() (Session, bool) {
	if c.state == Idle {
		return Session{}, false
	}
	return c.sess, true
}

// PointerDown arms a gesture when p hits an occupied field. It reports
// whether a gesture started.
func (c *Controller) PointerDown(p geometry.Point) bool {
	if c.state != Idle {
		return false
	}
	o, version := c.cfg.Current()
	f, ok := geometry.PixelToField(p.X, p.Y, o)
	if !ok {
		return false
	}
	piece, ok := c.pieces.PieceAt(f)
	if !ok {
		return false
	}
	if !piece.Known() {
		c.logger.Debug("drag_unknown_piece_ignored", zap.String("field", f.String()))
		return false
	}

	anchor := geometry.PieceAnchor(f, o, geometry.FootprintFor(piece.Type, o.FieldSize))
	c.sess = Session{Piece: piece, Origin: f, Offset: p.Sub(anchor)}
	c.downAt = p
	c.orient = o
	c.version = version
	c.state = Armed
	return true
}

func (c *Controller) PointerMove(p geometry.Point) {
	switch c.state {
	case Armed:
		if c.stale() {
			c.Cancel()
			return
		}
		if p.Dist(c.downAt) <= c.threshold {
			return
		}
		c.state = Dragging
		c.bridge.RaiseToTop(c.sess.Piece, c.sess.Origin)
		c.bridge.FollowPointer(c.sess.Piece, c.sess.Origin, p.Sub(c.sess.Offset))
	case Dragging:
		if c.stale() {
			c.Cancel()
			return
		}
		c.bridge.FollowPointer(c.sess.Piece, c.sess.Origin, p.Sub(c.sess.Offset))
	}
}

// PointerUp ends the gesture. An armed gesture that never moved is a click.
func (c *Controller) PointerUp(p geometry.Point) Release {
	switch c.state {
	case Armed:
		rel := Release{Outcome: OutcomeClick, Piece: c.sess.Piece, From: c.sess.Origin, To: c.sess.Origin}
		c.reset()
		return rel
	case Dragging:
		return c.release(p)
	default:
		return Release{Outcome: OutcomeNone, From: board.NoField, To: board.NoField}
	}
}

func (c *Controller) release(p geometry.Point) (rel Release) {
	c.state = Releasing
	defer c.reset()

	sess := c.sess
	rel = Release{Outcome: OutcomeCancel, Piece: sess.Piece, From: sess.Origin, To: sess.Origin}
	if c.stale() {
		c.bridge.SnapBack(sess.Piece, sess.Origin)
		return rel
	}
	to, ok := geometry.PixelToField(p.X, p.Y, c.orient)
	if !ok || to == sess.Origin {
		c.bridge.SnapBack(sess.Piece, sess.Origin)
		return rel
	}

	if c.requests != nil {
		c.requests.RequestMove(sess.Piece, sess.Origin, to)
	}
	c.bridge.AnimateMove(sess.Piece, sess.Origin, to)
	c.logger.Debug("drag_move_requested",
		zap.String("piece", sess.Piece.Token()),
		zap.String("from", sess.Origin.String()),
		zap.String("to", to.String()),
	)
	rel.Outcome = OutcomeMove
	rel.To = to
	return rel
}

// Cancel discards the gesture and sends the piece back to its origin.
func (c *Controller) Cancel() {
	if c.state == Idle {
		return
	}
	sess := c.sess
	c.reset()
	c.bridge.SnapBack(sess.Piece, sess.Origin)
}

// Abort discards the gesture without touching the display. Used when a
// snapshot is about to redraw everything anyway.
func (c *Controller) Abort() {
	c.reset()
}

func (c *Controller) stale() bool {
	return c.cfg.Version() != c.version
}

func (c *Controller) reset() {
	c.state = Idle
	c.sess = Session{}
}
