package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/pkg/boarddto"
)

func mustEncode(t *testing.T) func([]byte, error) []byte {
	return func(b []byte, err error) []byte {
		t.Helper()
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		return b
	}
}

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func TestWebSocketSnapshotGatesUpdates(t *testing.T) {
	early := mustEncode(t)(EncodeUpdate(board.MoveUpdate{Primary: board.Move{From: board.MustField("h2"), To: board.MustField("h3")}}))
	occ, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	snapshot := mustEncode(t)(EncodeSnapshot(occ))
	move := mustEncode(t)(EncodeUpdate(board.MoveUpdate{Primary: board.Move{From: board.MustField("e2"), To: board.MustField("e4")}, Turn: "BLACK"}))

	requests := make(chan boarddto.Envelope, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()

		if err := c.Write(ctx, websocket.MessageText, early); err != nil {
			return
		}
		var env boarddto.Envelope
		if err := wsjson.Read(ctx, c, &env); err != nil {
			return
		}
		requests <- env
		_ = c.Write(ctx, websocket.MessageText, snapshot)
		_ = c.Write(ctx, websocket.MessageText, move)
		for {
			var env boarddto.Envelope
			if err := wsjson.Read(ctx, c, &env); err != nil {
				return
			}
			requests <- env
		}
	}))
	t.Cleanup(srv.Close)

	ws := NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), 0)
	events := make(chan Event, 8)
	ws.OnEvent(func(ev Event) {
		if ev.Kind != EventState {
			events <- ev
		}
	})
	if err := ws.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = ws.Close(ctx)
	})

	first := waitEvent(t, events)
	if first.Kind != EventSnapshot || len(first.Snapshot) != 32 {
		t.Fatalf("first event = %s with %d occupations, want snapshot of 32", first.Kind, len(first.Snapshot))
	}
	second := waitEvent(t, events)
	if second.Kind != EventMove || second.Update.Primary.String() != "e2e4" || second.Update.Turn != "BLACK" {
		t.Fatalf("second event = %+v", second)
	}

	select {
	case env := <-requests:
		if env.Type != boarddto.TopicSnapshotRequest {
			t.Fatalf("first client frame = %q, want snapshot request", env.Type)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server saw no snapshot request")
	}

	req := board.MoveRequest{ID: "r-1", From: board.MustField("g8"), To: board.MustField("f6")}
	if err := ws.SendMove(context.Background(), req); err != nil {
		t.Fatalf("SendMove: %v", err)
	}
	select {
	case env := <-requests:
		var dto boarddto.MoveRequest
		if err := json.Unmarshal(env.Payload, &dto); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if env.Type != boarddto.TopicMoveRequest || dto.From != "g8" || dto.To != "f6" || dto.RequestID != "r-1" {
			t.Fatalf("move frame = %s %+v", env.Type, dto)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("server saw no move request")
	}
}

func TestWebSocketSendWhileDisconnected(t *testing.T) {
	ws := NewWebSocket("ws://127.0.0.1:1/none", 0)
	err := ws.SendMove(context.Background(), board.MoveRequest{From: board.MustField("a2"), To: board.MustField("a3")})
	if err != ErrNotConnected {
		t.Fatalf("err = %v, want ErrNotConnected", err)
	}
}

func TestWebSocketMalformedMoveForcesResync(t *testing.T) {
	occ, err := board.ParseFEN(board.StartFEN)
	if err != nil {
		t.Fatalf("ParseFEN: %v", err)
	}
	snapshot := mustEncode(t)(EncodeSnapshot(occ))
	malformed := []byte(`{"type":"/topic/moves","payload":{"primaryMove":{"from":"z9","to":"e4"}}}`)
	lost := mustEncode(t)(EncodeUpdate(board.MoveUpdate{Primary: board.Move{From: board.MustField("e2"), To: board.MustField("e4")}}))
	fresh := mustEncode(t)(EncodeUpdate(board.MoveUpdate{Primary: board.Move{From: board.MustField("d2"), To: board.MustField("d4")}}))

	requests := make(chan string, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close(websocket.StatusNormalClosure, "")
		ctx := r.Context()

		var env boarddto.Envelope
		if err := wsjson.Read(ctx, c, &env); err != nil {
			return
		}
		requests <- env.Type
		_ = c.Write(ctx, websocket.MessageText, snapshot)
		_ = c.Write(ctx, websocket.MessageText, malformed)
		_ = c.Write(ctx, websocket.MessageText, lost)

		readCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err = wsjson.Read(readCtx, c, &env)
		cancel()
		if err != nil {
			return
		}
		requests <- env.Type
		_ = c.Write(ctx, websocket.MessageText, snapshot)
		_ = c.Write(ctx, websocket.MessageText, fresh)
		for {
			if err := wsjson.Read(ctx, c, &env); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	ws := NewWebSocket("ws"+strings.TrimPrefix(srv.URL, "http"), 0)
	events := make(chan Event, 8)
	ws.OnEvent(func(ev Event) {
		if ev.Kind != EventState {
			events <- ev
		}
	})
	if err := ws.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = ws.Close(ctx)
	})

	for i := 0; i < 2; i++ {
		select {
		case typ := <-requests:
			if typ != boarddto.TopicSnapshotRequest {
				t.Fatalf("client frame %d = %q, want snapshot request", i, typ)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("client frame %d: no snapshot request", i)
		}
	}

	if ev := waitEvent(t, events); ev.Kind != EventSnapshot {
		t.Fatalf("first event = %s, want snapshot", ev.Kind)
	}
	if ev := waitEvent(t, events); ev.Kind != EventSnapshot {
		t.Fatalf("second event = %s (%s), want the resync snapshot", ev.Kind, ev.Update.Primary)
	}
	if ev := waitEvent(t, events); ev.Kind != EventMove || ev.Update.Primary.String() != "d2d4" {
		t.Fatalf("third event = %+v, want d2d4", ev)
	}
}
