package drag

import (
	"testing"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/geometry"
	"github.com/park285/cheese-board/internal/render"
	"github.com/park285/cheese-board/internal/tracker"
)

type requestLog struct {
	moves []board.Move
}

func (r *requestLog) RequestMove(_ board.Piece, from, to board.Field) {
	r.moves = append(r.moves, board.Move{From: from, To: to})
}

type fixture struct {
	cfg  *geometry.Config
	trk  *tracker.Tracker
	rec  *render.Recorder
	reqs *requestLog
	ctl  *Controller
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	cfg, err := geometry.NewConfig(geometry.Orientation{FieldSize: 100})
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	occ, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	trk := tracker.New()
	trk.LoadSnapshot(occ)
	f := &fixture{cfg: cfg, trk: trk, rec: &render.Recorder{}, reqs: &requestLog{}}
	f.ctl = New(cfg, trk, f.rec, f.reqs, opts...)
	return f
}

// centre of a field in board pixels for the current orientation
func (f *fixture) at(name string) geometry.Point {
	return geometry.FieldToRect(board.MustField(name), f.cfg.Orientation()).Center()
}

func TestDragToEmptyFieldRequestsMove(t *testing.T) {
	f := newFixture(t)
	if !f.ctl.PointerDown(f.at("e2")) {
		t.Fatalf("pointer down on e2 did not arm")
	}
	f.ctl.PointerMove(f.at("e3"))
	if f.ctl.State() != Dragging {
		t.Fatalf("state = %s, want DRAGGING", f.ctl.State())
	}
	rel := f.ctl.PointerUp(f.at("e4"))

	if rel.Outcome != OutcomeMove || rel.From != board.MustField("e2") || rel.To != board.MustField("e4") {
		t.Fatalf("release = %+v", rel)
	}
	if len(f.reqs.moves) != 1 || f.reqs.moves[0].String() != "e2e4" {
		t.Fatalf("requests = %v", f.reqs.moves)
	}
	if f.ctl.State() != Idle {
		t.Fatalf("state after release = %s", f.ctl.State())
	}
	if p, ok := f.trk.PieceAt(board.MustField("e2")); !ok || p.Type != board.Pawn {
		t.Fatalf("tracker mutated by drag: e2 = %v,%v", p, ok)
	}
	ops := f.rec.Ops()
	want := []render.Op{render.OpRaise, render.OpFollow, render.OpAnimate}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", ops, want)
		}
	}
}

func TestFollowKeepsGrabOffset(t *testing.T) {
	f := newFixture(t)
	o := f.cfg.Orientation()
	g1 := board.MustField("g1")
	anchor := geometry.PieceAnchor(g1, o, geometry.FootprintFor(board.Knight, o.FieldSize))
	down := anchor.Add(geometry.Point{X: 12, Y: 30})

	f.ctl.PointerDown(down)
	f.ctl.PointerMove(down.Add(geometry.Point{X: 5, Y: -50}))

	cmds := f.rec.Commands()
	last := cmds[len(cmds)-1]
	want := anchor.Add(geometry.Point{X: 5, Y: -50})
	if last.Op != render.OpFollow || last.Anchor != want {
		t.Fatalf("follow = %+v, want anchor %+v", last, want)
	}
}

func TestReleaseOutsideBoardSnapsBack(t *testing.T) {
	f := newFixture(t)
	f.ctl.PointerDown(f.at("b1"))
	f.ctl.PointerMove(geometry.Point{X: 900, Y: 900})
	rel := f.ctl.PointerUp(geometry.Point{X: 900, Y: 900})

	if rel.Outcome != OutcomeCancel {
		t.Fatalf("outcome = %s, want cancel", rel.Outcome)
	}
	if len(f.reqs.moves) != 0 {
		t.Fatalf("requests = %v, want none", f.reqs.moves)
	}
	if f.rec.Count(render.OpSnap) != 1 {
		t.Fatalf("ops = %v, want one snapback", f.rec.Ops())
	}
}

func TestReleaseOnOriginSnapsBack(t *testing.T) {
	f := newFixture(t)
	f.ctl.PointerDown(f.at("d2"))
	f.ctl.PointerMove(f.at("d3"))
	rel := f.ctl.PointerUp(f.at("d2"))
	if rel.Outcome != OutcomeCancel || len(f.reqs.moves) != 0 {
		t.Fatalf("release = %+v requests = %v", rel, f.reqs.moves)
	}
	if f.rec.Count(render.OpSnap) != 1 {
		t.Fatalf("ops = %v", f.rec.Ops())
	}
}

func TestClickHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	f.ctl.PointerDown(f.at("a2"))
	rel := f.ctl.PointerUp(f.at("a2"))
	if rel.Outcome != OutcomeClick {
		t.Fatalf("outcome = %s, want click", rel.Outcome)
	}
	if len(f.rec.Commands()) != 0 || len(f.reqs.moves) != 0 {
		t.Fatalf("click produced ops=%v requests=%v", f.rec.Ops(), f.reqs.moves)
	}
}

func TestThresholdKeepsGestureArmed(t *testing.T) {
	f := newFixture(t, WithThreshold(10))
	start := f.at("c2")
	f.ctl.PointerDown(start)
	f.ctl.PointerMove(start.Add(geometry.Point{X: 6, Y: 6}))
	if f.ctl.State() != Armed {
		t.Fatalf("state = %s, want ARMED", f.ctl.State())
	}
	f.ctl.PointerMove(start.Add(geometry.Point{X: 8, Y: 8}))
	if f.ctl.State() != Dragging {
		t.Fatalf("state = %s, want DRAGGING", f.ctl.State())
	}
}

func TestSecondPointerDownIgnored(t *testing.T) {
	f := newFixture(t)
	f.ctl.PointerDown(f.at("a2"))
	f.ctl.PointerMove(f.at("a3"))
	if f.ctl.PointerDown(f.at("h7")) {
		t.Fatalf("second pointer down armed a new gesture")
	}
	sess, ok := f.ctl.Active()
	if !ok || sess.Origin != board.MustField("a2") {
		t.Fatalf("active session = %+v,%v", sess, ok)
	}
	f.ctl.PointerUp(f.at("a4"))
	if len(f.reqs.moves) != 1 || f.reqs.moves[0].String() != "a2a4" {
		t.Fatalf("requests = %v", f.reqs.moves)
	}
}

func TestPointerDownOnEmptyFieldIgnored(t *testing.T) {
	f := newFixture(t)
	if f.ctl.PointerDown(f.at("e5")) {
		t.Fatalf("armed on empty field")
	}
	if f.ctl.PointerDown(geometry.Point{X: -1, Y: 50}) {
		t.Fatalf("armed outside the board")
	}
	if f.ctl.State() != Idle {
		t.Fatalf("state = %s", f.ctl.State())
	}
}

func TestOrientationChangeCancelsGesture(t *testing.T) {
	f := newFixture(t)
	f.ctl.PointerDown(f.at("g1"))
	f.ctl.PointerMove(f.at("f3"))
	if _, err := f.cfg.Set(geometry.Orientation{FieldSize: 100, Flipped: true}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	f.ctl.PointerMove(f.at("f3"))

	if f.ctl.State() != Idle {
		t.Fatalf("state = %s, want IDLE", f.ctl.State())
	}
	if f.rec.Count(render.OpSnap) != 1 {
		t.Fatalf("ops = %v, want snapback", f.rec.Ops())
	}
	if rel := f.ctl.PointerUp(f.at("f3")); rel.Outcome != OutcomeNone {
		t.Fatalf("late pointer up = %+v", rel)
	}
	if len(f.reqs.moves) != 0 {
		t.Fatalf("requests = %v", f.reqs.moves)
	}
}

func TestCancelAndAbort(t *testing.T) {
	f := newFixture(t)
	f.ctl.PointerDown(f.at("b2"))
	f.ctl.PointerMove(f.at("b4"))
	f.ctl.Cancel()
	if f.ctl.State() != Idle || f.rec.Count(render.OpSnap) != 1 {
		t.Fatalf("cancel: state=%s ops=%v", f.ctl.State(), f.rec.Ops())
	}

	f.rec.Reset()
	f.ctl.PointerDown(f.at("b2"))
	f.ctl.PointerMove(f.at("b4"))
	f.ctl.Abort()
	if f.ctl.State() != Idle || f.rec.Count(render.OpSnap) != 0 {
		t.Fatalf("abort: state=%s ops=%v", f.ctl.State(), f.rec.Ops())
	}
	f.ctl.Cancel()
	if f.rec.Count(render.OpSnap) != 0 {
		t.Fatalf("cancel while idle emitted %v", f.rec.Ops())
	}
}

type panicRequester struct{}

func (panicRequester) RequestMove(board.Piece, board.Field, board.Field) { panic("transport gone") }

func TestPanicDuringReleaseReturnsToIdle(t *testing.T) {
	f := newFixture(t)
	ctl := New(f.cfg, f.trk, f.rec, panicRequester{})
	ctl.PointerDown(f.at("e2"))
	ctl.PointerMove(f.at("e3"))

	func() {
		defer func() {
			if recover() == nil {
				t.Fatalf("expected panic")
			}
		}()
		ctl.PointerUp(f.at("e4"))
	}()
	if ctl.State() != Idle {
		t.Fatalf("state after panic = %s", ctl.State())
	}
}
