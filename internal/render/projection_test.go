package render

import (
	"math"
	"testing"
	"time"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/geometry"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestProjection(t *testing.T) (*Projection, *fakeClock, *geometry.Config) {
	t.Helper()
	cfg, err := geometry.NewConfig(geometry.Orientation{FieldSize: 100})
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	return NewProjection(cfg, WithClock(clk.now)), clk, cfg
}

func spriteAt(t *testing.T, s Scene, f board.Field) Sprite {
	t.Helper()
	for _, sp := range s.Sprites {
		if sp.Field == f {
			return sp
		}
	}
	t.Fatalf("no sprite on %s", f)
	return Sprite{}
}

func near(a, b geometry.Point) bool {
	return math.Abs(a.X-b.X) < 1e-6 && math.Abs(a.Y-b.Y) < 1e-6
}

func TestProjectionPlaceIsIdempotent(t *testing.T) {
	p, clk, _ := newTestProjection(t)
	wp := board.NewPiece(board.White, board.Pawn)
	p.PlacePiece(board.MustField("a2"), wp)
	p.PlacePiece(board.MustField("a2"), wp)
	p.RemovePiece(board.MustField("h8"), wp)

	scene := p.Scene(clk.now())
	if len(scene.Sprites) != 1 {
		t.Fatalf("sprites = %d, want 1", len(scene.Sprites))
	}
	sp := scene.Sprites[0]
	o := geometry.Orientation{FieldSize: 100}
	want := geometry.PieceAnchor(board.MustField("a2"), o, geometry.FootprintFor(board.Pawn, 100))
	if !near(sp.Pos, want) {
		t.Fatalf("pos = %+v, want %+v", sp.Pos, want)
	}
	if sp.Z != 0 || sp.Moving {
		t.Fatalf("static sprite reported z=%d moving=%v", sp.Z, sp.Moving)
	}
}

func TestProjectionAnimateMoveInterpolates(t *testing.T) {
	p, clk, _ := newTestProjection(t)
	wr := board.NewPiece(board.White, board.Rook)
	a1, a5 := board.MustField("a1"), board.MustField("a5")
	p.PlacePiece(a1, wr)
	start := spriteAt(t, p.Scene(clk.now()), a1).Pos

	p.AnimateMove(wr, a1, a5)
	clk.advance(AnimationDuration / 2)
	mid := spriteAt(t, p.Scene(clk.now()), a5)
	if !mid.Moving || mid.Z != RaisedZ {
		t.Fatalf("mid-animation sprite moving=%v z=%d", mid.Moving, mid.Z)
	}
	if math.Abs(mid.Pos.Y-(start.Y-200)) > 1e-6 {
		t.Fatalf("mid y = %v, want %v", mid.Pos.Y, start.Y-200)
	}

	clk.advance(AnimationDuration)
	end := spriteAt(t, p.Scene(clk.now()), a5)
	if end.Moving || end.Z != 0 {
		t.Fatalf("finished sprite moving=%v z=%d", end.Moving, end.Z)
	}
	if math.Abs(end.Pos.Y-(start.Y-400)) > 1e-6 {
		t.Fatalf("end y = %v, want %v", end.Pos.Y, start.Y-400)
	}
	if _, ok := p.PieceAt(a1); ok {
		t.Fatalf("a1 still shows a sprite")
	}
}

func TestProjectionDragAndSnapBack(t *testing.T) {
	p, clk, _ := newTestProjection(t)
	bn := board.NewPiece(board.Black, board.Knight)
	g8 := board.MustField("g8")
	p.PlacePiece(g8, bn)
	home := spriteAt(t, p.Scene(clk.now()), g8).Pos

	p.RaiseToTop(bn, g8)
	p.FollowPointer(bn, g8, geometry.Point{X: 310, Y: 420})
	sp := spriteAt(t, p.Scene(clk.now()), g8)
	if !sp.Moving || sp.Z != RaisedZ || !near(sp.Pos, geometry.Point{X: 310, Y: 420}) {
		t.Fatalf("dragged sprite = %+v", sp)
	}

	p.SnapBack(bn, g8)
	clk.advance(AnimationDuration + time.Millisecond)
	sp = spriteAt(t, p.Scene(clk.now()), g8)
	if sp.Moving || !near(sp.Pos, home) {
		t.Fatalf("after snapback = %+v, want at %+v", sp, home)
	}
	if p.Animating(clk.now()) {
		t.Fatalf("still animating")
	}
}

func TestProjectionSceneOrdersRaisedLast(t *testing.T) {
	p, clk, _ := newTestProjection(t)
	p.PlacePiece(board.MustField("h8"), board.NewPiece(board.Black, board.Rook))
	p.PlacePiece(board.MustField("a1"), board.NewPiece(board.White, board.Rook))
	p.FollowPointer(board.NewPiece(board.White, board.Rook), board.MustField("a1"), geometry.Point{X: 1, Y: 1})

	s := p.Scene(clk.now())
	if len(s.Sprites) != 2 {
		t.Fatalf("sprites = %d", len(s.Sprites))
	}
	if s.Sprites[1].Field != board.MustField("a1") {
		t.Fatalf("raised sprite not drawn last: %+v", s.Sprites)
	}
}

func TestProjectionUsesCurrentOrientation(t *testing.T) {
	p, clk, cfg := newTestProjection(t)
	if _, err := cfg.Set(geometry.Orientation{FieldSize: 100, Flipped: true}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	p.PlacePiece(board.MustField("a1"), board.NewPiece(board.White, board.King))
	sp := spriteAt(t, p.Scene(clk.now()), board.MustField("a1"))
	if sp.Pos.X < 700 || sp.Pos.Y > 100 {
		t.Fatalf("flipped a1 anchor = %+v, want top-right field", sp.Pos)
	}
}

func TestProjectionClear(t *testing.T) {
	p, clk, _ := newTestProjection(t)
	p.PlacePiece(board.MustField("e1"), board.NewPiece(board.White, board.King))
	p.Clear()
	if n := len(p.Scene(clk.now()).Sprites); n != 0 {
		t.Fatalf("sprites after Clear = %d", n)
	}
}
