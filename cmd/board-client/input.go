package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/geometry"
	"github.com/park285/cheese-board/internal/session"
)

// inputLine is one pointer or orientation event from an embedding UI,
// in board pixels. Lines without a "pointer" key are not input.
type inputLine struct {
	Pointer   string  `json:"pointer"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Flipped   *bool   `json:"flipped,omitempty"`
	FieldSize float64 `json:"fieldSize,omitempty"`
}

// parseInput decodes raw into a session event. ok is false when raw is
// not an input line at all.
func parseInput(raw []byte, cur geometry.Orientation) (ev session.Event, ok bool, err error) {
	var in inputLine
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, false, nil
	}
	at := geometry.Point{X: in.X, Y: in.Y}
	switch strings.ToLower(strings.TrimSpace(in.Pointer)) {
	case "":
		return nil, false, nil
	case "down":
		return session.PointerEvent{Kind: session.PointerDown, At: at}, true, nil
	case "move":
		return session.PointerEvent{Kind: session.PointerMove, At: at}, true, nil
	case "up":
		return session.PointerEvent{Kind: session.PointerUp, At: at}, true, nil
	case "cancel":
		return session.PointerEvent{Kind: session.PointerCancel}, true, nil
	case "orient":
		o := cur
		if in.Flipped != nil {
			o.Flipped = *in.Flipped
		}
		if in.FieldSize != 0 {
			o.FieldSize = in.FieldSize
		}
		return session.OrientationEvent{Orientation: o}, true, nil
	default:
		return nil, true, fmt.Errorf("unknown pointer kind %q", in.Pointer)
	}
}

// feedInput posts every input line of r to s until r ends or ctx is done.
// Bad lines are logged and skipped.
func feedInput(ctx context.Context, r io.Reader, s *session.Session, logger *zap.Logger) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		raw := strings.TrimSpace(sc.Text())
		if raw == "" {
			continue
		}
		ev, ok, err := parseInput([]byte(raw), s.Frame().Orientation)
		if err != nil || !ok {
			logger.Warn("input_line_skipped", zap.String("line", raw), zap.Error(err))
			continue
		}
		if err := s.Post(ctx, ev); err != nil {
			return err
		}
	}
	return sc.Err()
}
