package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync/atomic"
	"testing"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"
	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/pkg/boarddto"
)

func newInmemoryClient(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	srv := &fasthttp.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = ln.Close() })
	return NewClient("http://board.local/", WithDial(func(string) (net.Conn, error) { return ln.Dial() }))
}

func TestClientSendMove(t *testing.T) {
	var got boarddto.MoveRequest
	var method string
	c := newInmemoryClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) != pathMove {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			return
		}
		method = string(ctx.Method())
		_ = json.Unmarshal(ctx.PostBody(), &got)
		ctx.SetStatusCode(fasthttp.StatusAccepted)
	})

	req := board.MoveRequest{ID: "abc", From: board.MustField("e7"), To: board.MustField("e5")}
	if err := c.SendMove(context.Background(), req); err != nil {
		t.Fatalf("SendMove: %v", err)
	}
	if method != fasthttp.MethodPost || got.From != "e7" || got.To != "e5" || got.RequestID != "abc" {
		t.Fatalf("server saw %s %+v", method, got)
	}
}

func TestClientSnapshotRetriesOnUnavailable(t *testing.T) {
	var calls atomic.Int32
	c := newInmemoryClient(t, func(ctx *fasthttp.RequestCtx) {
		if calls.Add(1) == 1 {
			ctx.SetStatusCode(fasthttp.StatusServiceUnavailable)
			return
		}
		ctx.SetContentType("application/json")
		ctx.SetBodyString(`[{"field":"e1","piece":{"color":"WHITE","type":"KING"}},{"field":"e8","piece":{"color":"BLACK","type":"KING"}},{"field":"d4","piece":null}]`)
	})

	var delivered []Event
	c.OnEvent(func(ev Event) { delivered = append(delivered, ev) })
	if err := c.RequestSnapshot(context.Background()); err != nil {
		t.Fatalf("RequestSnapshot: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("calls = %d, want 2", calls.Load())
	}
	if len(delivered) != 1 || delivered[0].Kind != EventSnapshot || len(delivered[0].Snapshot) != 2 {
		t.Fatalf("delivered = %+v", delivered)
	}
	if board.FEN(delivered[0].Snapshot) != "4k3/8/8/8/8/8/8/4K3" {
		t.Fatalf("fen = %s", board.FEN(delivered[0].Snapshot))
	}
}

func TestClientDomainErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newInmemoryClient(t, func(ctx *fasthttp.RequestCtx) {
		calls.Add(1)
		ctx.SetStatusCode(fasthttp.StatusConflict)
		ctx.SetBodyString(`{"code":"not_your_turn","message":"not your turn"}`)
	})

	_, err := c.Snapshot(context.Background())
	var de boarddto.DomainError
	if !errors.As(err, &de) || de.Code != "not_your_turn" {
		t.Fatalf("err = %v, want DomainError", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1", calls.Load())
	}
}

func TestAutoEgressFallsBackToHTTP(t *testing.T) {
	var moves atomic.Int32
	c := newInmemoryClient(t, func(ctx *fasthttp.RequestCtx) {
		moves.Add(1)
	})
	ws := NewWebSocket("ws://127.0.0.1:1/none", 0)
	eg := NewEgress(ModeAuto, c, ws, zap.NewNop())

	err := eg.SendMove(context.Background(), board.MoveRequest{From: board.MustField("a2"), To: board.MustField("a3")})
	if err != nil {
		t.Fatalf("SendMove: %v", err)
	}
	if moves.Load() != 1 {
		t.Fatalf("http saw %d moves, want 1", moves.Load())
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"chat","payload":{}}`))
	if !errors.Is(err, ErrUnknownEnvelope) {
		t.Fatalf("err = %v, want ErrUnknownEnvelope", err)
	}
}

func TestDecodeCastlingUpdate(t *testing.T) {
	raw := `{"type":"moves","payload":{"primaryMove":{"from":"e8","to":"c8"},"secondaryMove":{"from":"a8","to":"d8"},"reverted":true,"turn":"BLACK"}}`
	ev, err := Decode([]byte(raw))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	u := ev.Update
	if ev.Kind != EventMove || !u.Reverted || u.Secondary == nil || u.Secondary.String() != "a8d8" {
		t.Fatalf("update = %+v", u)
	}
}

func TestDecodeTopicDestinations(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"/topic/moves","payload":{"primaryMove":{"from":"e2","to":"e4"},"turn":"BLACK"}}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if ev.Kind != EventMove || ev.Update.Primary.String() != "e2e4" {
		t.Fatalf("event = %+v", ev)
	}
	msg, err := DecodeRequest([]byte(`{"type":"/chessApp/fieldsOccupation"}`))
	if err != nil || msg.Type != boarddto.TopicSnapshotRequest {
		t.Fatalf("request = %+v, err = %v", msg, err)
	}
}

func TestNeedsResync(t *testing.T) {
	_, err := Decode([]byte(`{"type":"/topic/moves","payload":{"primaryMove":{"from":"z9","to":"e4"}}}`))
	if !NeedsResync(err) {
		t.Fatalf("malformed move must force a resync, err = %v", err)
	}
	_, err = Decode([]byte(`{"type":"chat","payload":{}}`))
	if NeedsResync(err) {
		t.Fatalf("unknown envelope must not force a resync, err = %v", err)
	}
	if NeedsResync(nil) {
		t.Fatalf("nil error must not force a resync")
	}
}
