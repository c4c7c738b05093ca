package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/geometry"
	"github.com/park285/cheese-board/internal/msgcat"
	"github.com/park285/cheese-board/internal/session"
	"github.com/park285/cheese-board/internal/transport"
)

func stream(t *testing.T, updates ...board.MoveUpdate) *bytes.Buffer {
	t.Helper()
	start, err := board.ParseFEN("startpos")
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	var buf bytes.Buffer
	snap, err := transport.EncodeSnapshot(start)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	buf.Write(snap)
	buf.WriteString("\n\n")
	for _, u := range updates {
		b, err := transport.EncodeUpdate(u)
		if err != nil {
			t.Fatalf("EncodeUpdate: %v", err)
		}
		buf.Write(b)
		buf.WriteByte('\n')
	}
	return &buf
}

func TestReplayClean(t *testing.T) {
	push := board.MoveUpdate{
		Primary: board.Move{From: board.MustField("a2"), To: board.MustField("a4")},
		Turn:    "BLACK",
	}
	rep, err := replay(stream(t, push, push.Reverse()), nil, nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if rep.Events != 3 {
		t.Fatalf("Events = %d, want 3", rep.Events)
	}
	if rep.Diagnostics != 0 {
		t.Fatalf("Diagnostics = %d, want 0", rep.Diagnostics)
	}
	if rep.FEN != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR" {
		t.Fatalf("FEN = %q", rep.FEN)
	}

	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	if out := rep.format(cat); !strings.Contains(out, "No protocol violations") {
		t.Fatalf("report:\n%s", out)
	}
}

func TestReplayReportsViolations(t *testing.T) {
	ghost := board.MoveUpdate{Primary: board.Move{From: board.MustField("e5"), To: board.MustField("e6")}}
	rep, err := replay(stream(t, ghost), nil, nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if rep.Diagnostics == 0 {
		t.Fatalf("expected diagnostics for a move from an empty field")
	}
}

func TestReplayRejectsGarbage(t *testing.T) {
	if _, err := replay(strings.NewReader("{\"type\":\"weather\"}\n"), nil, nil); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestRenderFEN(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frames", "board.png")
	n, err := renderFEN(context.Background(), renderOptions{FEN: "startpos", Out: out, Size: 32, Flipped: true, Last: "e2e4"})
	if err != nil {
		t.Fatalf("renderFEN: %v", err)
	}
	b, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(b) != n {
		t.Fatalf("wrote %d bytes, reported %d", len(b), n)
	}
	if _, err := png.Decode(bytes.NewReader(b)); err != nil {
		t.Fatalf("decode png: %v", err)
	}

	if _, err := renderFEN(context.Background(), renderOptions{FEN: "startpos", Out: out, Size: 32, Last: "e2"}); err == nil {
		t.Fatalf("expected bad move error")
	}
}

func TestHUDText(t *testing.T) {
	cat, err := msgcat.New("")
	if err != nil {
		t.Fatalf("msgcat: %v", err)
	}
	f := &session.Frame{Connection: transport.StateConnected}
	if got := hudTurn(cat, f); got != "Waiting for the first move" {
		t.Fatalf("hudTurn = %q", got)
	}
	f.Turn = "WHITE"
	f.Pending = []session.PendingMove{{}}
	if got := hudTurn(cat, f); got != "WHITE to move | 1 move(s) awaiting confirmation" {
		t.Fatalf("hudTurn = %q", got)
	}
	if got := hudHeader(cat, "lobby", f); !strings.HasPrefix(got, "Board lobby | link ") {
		t.Fatalf("hudHeader = %q", got)
	}
}

func TestReplayPointerDragUntilConfirmed(t *testing.T) {
	drag := `{"pointer":"down","x":288,"y":416}
{"pointer":"move","x":288,"y":350}
{"pointer":"up","x":288,"y":288}
`
	buf := stream(t)
	buf.WriteString(drag)
	rep, err := replay(buf, nil, nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if rep.Inputs != 3 || rep.Pending != 1 {
		t.Fatalf("inputs=%d pending=%d, want 3 and 1", rep.Inputs, rep.Pending)
	}
	if rep.FEN != "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR" {
		t.Fatalf("drag must not move the tracked piece, FEN = %q", rep.FEN)
	}

	confirm := board.MoveUpdate{Primary: board.Move{From: board.MustField("e2"), To: board.MustField("e4")}, Turn: "BLACK"}
	buf = stream(t)
	buf.WriteString(drag)
	b, err := transport.EncodeUpdate(confirm)
	if err != nil {
		t.Fatalf("EncodeUpdate: %v", err)
	}
	buf.Write(b)
	rep, err = replay(buf, nil, nil)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if rep.Pending != 0 || rep.Diagnostics != 0 {
		t.Fatalf("pending=%d diagnostics=%d, want 0 and 0", rep.Pending, rep.Diagnostics)
	}
	if rep.FEN != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR" {
		t.Fatalf("FEN = %q", rep.FEN)
	}
}

func TestParseInput(t *testing.T) {
	cur := geometry.Orientation{FieldSize: 64}
	ev, ok, err := parseInput([]byte(`{"pointer":"orient","flipped":true}`), cur)
	if err != nil || !ok {
		t.Fatalf("orient: ok=%v err=%v", ok, err)
	}
	o, isOrient := ev.(session.OrientationEvent)
	if !isOrient || !o.Orientation.Flipped || o.Orientation.FieldSize != 64 {
		t.Fatalf("orient event = %#v", ev)
	}
	if _, ok, _ := parseInput([]byte(`{"type":"moves"}`), cur); ok {
		t.Fatalf("authority frame parsed as input")
	}
	if _, _, err := parseInput([]byte(`{"pointer":"wiggle"}`), cur); err == nil {
		t.Fatalf("expected unknown pointer kind error")
	}
}
