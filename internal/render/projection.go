package render

import (
	"sort"
	"sync"
	"time"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/geometry"
)

const (
	// AnimationDuration is how long a piece glides between fields.
	AnimationDuration = 500 * time.Millisecond
	// RaisedZ is the stacking level of a piece that is moving or dragged.
	RaisedZ = 999
)

// Sprite is one piece as seen at a given instant.
type Sprite struct {
	Piece  board.Piece
	Field  board.Field
	Pos    geometry.Point
	Size   geometry.Footprint
	Z      int
	Moving bool
}

// Scene is an immutable view of the projection.
type Scene struct {
	Orientation geometry.Orientation
	Sprites     []Sprite
	Captured    []board.Piece
	LastMove    *board.Move
	Header      string
	Turn        string
}

type sprite struct {
	piece     board.Piece
	from      geometry.Point
	to        geometry.Point
	start     time.Time
	dur       time.Duration
	raised    bool
	following bool
}

func (s *sprite) animating(now time.Time) bool {
	return s.dur > 0 && now.Before(s.start.Add(s.dur))
}

func (s *sprite) pos(now time.Time) geometry.Point {
	if !s.animating(now) {
		return s.to
	}
	t := float64(now.Sub(s.start)) / float64(s.dur)
	if t < 0 {
		t = 0
	}
	return geometry.Point{
		X: s.from.X + (s.to.X-s.from.X)*t,
		Y: s.from.Y + (s.to.Y-s.from.Y)*t,
	}
}

// Projection is a Bridge that keeps sprite positions in board pixels.
// Anchors are computed with the orientation current at command time.
type Projection struct {
	mu       sync.RWMutex
	cfg      *geometry.Config
	now      func() time.Time
	duration time.Duration
	sprites  map[board.Field]*sprite
}

type ProjectionOption func(*Projection)

func WithClock(now func() time.Time) ProjectionOption {
	return func(p *Projection) {
		if now != nil {
			p.now = now
		}
	}
}

func WithAnimationDuration(d time.Duration) ProjectionOption {
	return func(p *Projection) { p.duration = d }
}

func NewProjection(cfg *geometry.Config, opts ...ProjectionOption) *Projection {
	p := &Projection{
		cfg:      cfg,
		now:      time.Now,
		duration: AnimationDuration,
		sprites:  make(map[board.Field]*sprite, 32),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Projection) anchor(f board.Field, piece board.Piece) geometry.Point {
	o := p.cfg.Orientation()
	return geometry.PieceAnchor(f, o, geometry.FootprintFor(piece.Type, o.FieldSize))
}

func (p *Projection) PlacePiece(f board.Field, piece board.Piece) {
	if !f.Valid() {
		return
	}
	a := p.anchor(f, piece)
	p.mu.Lock()
	p.sprites[f] = &sprite{piece: piece, from: a, to: a}
	p.mu.Unlock()
}

func (p *Projection) RemovePiece(f board.Field, _ board.Piece) {
	p.mu.Lock()
	delete(p.sprites, f)
	p.mu.Unlock()
}

func (p *Projection) AnimateMove(piece board.Piece, from, to board.Field) {
	if !to.Valid() {
		return
	}
	target := p.anchor(to, piece)
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()
	start := target
	if s, ok := p.sprites[from]; ok {
		start = s.pos(now)
		delete(p.sprites, from)
	} else if from.Valid() {
		start = p.anchor(from, piece)
	}
	p.sprites[to] = &sprite{piece: piece, from: start, to: target, start: now, dur: p.duration, raised: true}
}

func (p *Projection) RaiseToTop(_ board.Piece, f board.Field) {
	p.mu.Lock()
	if s, ok := p.sprites[f]; ok {
		s.raised = true
	}
	p.mu.Unlock()
}

func (p *Projection) FollowPointer(piece board.Piece, origin board.Field, anchor geometry.Point) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.sprites[origin]
	if !ok {
		s = &sprite{piece: piece}
		p.sprites[origin] = s
	}
	s.from, s.to = anchor, anchor
	s.dur = 0
	s.raised = true
	s.following = true
}

func (p *Projection) SnapBack(piece board.Piece, origin board.Field) {
	if !origin.Valid() {
		return
	}
	target := p.anchor(origin, piece)
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()
	start := target
	if s, ok := p.sprites[origin]; ok {
		start = s.pos(now)
	}
	p.sprites[origin] = &sprite{piece: piece, from: start, to: target, start: now, dur: p.duration, raised: true}
}

func (p *Projection) Clear() {
	p.mu.Lock()
	p.sprites = make(map[board.Field]*sprite, 32)
	p.mu.Unlock()
}

// Scene captures every sprite at now, lowest first.
func (p *Projection) Scene(now time.Time) Scene {
	o := p.cfg.Orientation()

	p.mu.RLock()
	out := make([]Sprite, 0, len(p.sprites))
	for f, s := range p.sprites {
		moving := s.following || s.animating(now)
		z := 0
		if moving && s.raised {
			z = RaisedZ
		}
		out = append(out, Sprite{
			Piece:  s.piece,
			Field:  f,
			Pos:    s.pos(now),
			Size:   geometry.FootprintFor(s.piece.Type, o.FieldSize),
			Z:      z,
			Moving: moving,
		})
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Z != out[j].Z {
			return out[i].Z < out[j].Z
		}
		return out[i].Field < out[j].Field
	})
	return Scene{Orientation: o, Sprites: out}
}

// Animating reports whether any sprite is still in motion at now.
func (p *Projection) Animating(now time.Time) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, s := range p.sprites {
		if s.following || s.animating(now) {
			return true
		}
	}
	return false
}

// PieceAt reports what the projection currently shows on f.
func (p *Projection) PieceAt(f board.Field) (board.Piece, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.sprites[f]
	if !ok {
		return board.Unknown, false
	}
	return s.piece, true
}
