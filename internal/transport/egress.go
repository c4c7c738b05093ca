package transport

import (
	"context"

	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/board"
)

type Mode string

const (
	ModeHTTP  Mode = "http"
	ModeWS    Mode = "ws"
	ModeAuto  Mode = "auto"
	ModeRedis Mode = "redis"
)

// NewEgress picks the outbound path. In auto mode the websocket is used
// while connected, with a single fallback to HTTP on failure.
func NewEgress(mode Mode, c *Client, ws *WebSocket, logger *zap.Logger) Egress {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch mode {
	case ModeWS:
		return &wsEgress{ws: ws}
	case ModeAuto:
		return &autoEgress{ws: &wsEgress{ws: ws}, http: &httpEgress{c: c}, logger: logger}
	default:
		return &httpEgress{c: c}
	}
}

type httpEgress struct{ c *Client }

func (h *httpEgress) SendMove(ctx context.Context, req board.MoveRequest) error {
	if h == nil || h.c == nil {
		return ErrUnavailable
	}
	return h.c.SendMove(ctx, req)
}

func (h *httpEgress) RequestSnapshot(ctx context.Context) error {
	if h == nil || h.c == nil {
		return ErrUnavailable
	}
	return h.c.RequestSnapshot(ctx)
}

type wsEgress struct{ ws *WebSocket }

func (w *wsEgress) SendMove(ctx context.Context, req board.MoveRequest) error {
	if w == nil || w.ws == nil {
		return ErrUnavailable
	}
	return w.ws.SendMove(ctx, req)
}

func (w *wsEgress) RequestSnapshot(ctx context.Context) error {
	if w == nil || w.ws == nil {
		return ErrUnavailable
	}
	return w.ws.RequestSnapshot(ctx)
}

func (w *wsEgress) usable() bool {
	return w != nil && w.ws != nil && w.ws.Connected()
}

type autoEgress struct {
	ws     *wsEgress
	http   *httpEgress
	logger *zap.Logger
}

func (a *autoEgress) SendMove(ctx context.Context, req board.MoveRequest) error {
	if a.ws.usable() {
		err := a.ws.SendMove(ctx, req)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "move"), zap.String("request_id", req.ID), zap.Error(err))
	}
	return a.http.SendMove(ctx, req)
}

func (a *autoEgress) RequestSnapshot(ctx context.Context) error {
	if a.ws.usable() {
		err := a.ws.RequestSnapshot(ctx)
		if err == nil {
			return nil
		}
		a.logger.Warn("egress_fallback", zap.String("type", "snapshot"), zap.Error(err))
	}
	return a.http.RequestSnapshot(ctx)
}
