package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/msgcat"
	"github.com/park285/cheese-board/internal/render"
	"github.com/park285/cheese-board/internal/session"
)

// frameWriter periodically rasterizes the projection to a PNG file.
type frameWriter struct {
	proj     *render.Projection
	renderer *render.PNGRenderer
	cat      *msgcat.Catalog
	board    string
	path     string
	logger   *zap.Logger

	lastSeq uint64
	wrote   bool
}

func newFrameWriter(proj *render.Projection, cat *msgcat.Catalog, board, path string, logger *zap.Logger) *frameWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &frameWriter{
		proj:     proj,
		renderer: render.NewPNGRenderer(),
		cat:      cat,
		board:    board,
		path:     path,
		logger:   logger,
	}
}

func (w *frameWriter) loop(ctx context.Context, s *session.Session, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			f := s.Frame()
			if w.wrote && f.Seq == w.lastSeq && !w.proj.Animating(now) {
				continue
			}
			if _, err := w.write(ctx, f, now); err != nil {
				w.logger.Warn("frame_write_failed", zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.lastSeq = f.Seq
			w.wrote = true
		}
	}
}

func (w *frameWriter) scene(f *session.Frame, now time.Time) render.Scene {
	sc := w.proj.Scene(now)
	sc.Captured = f.Captures
	sc.LastMove = f.LastMove
	sc.Header = hudHeader(w.cat, w.board, f)
	sc.Turn = hudTurn(w.cat, f)
	return sc
}

// write renders f and replaces the output file atomically.
func (w *frameWriter) write(ctx context.Context, f *session.Frame, now time.Time) (int, error) {
	b, err := w.renderer.RenderPNG(ctx, w.scene(f, now))
	if err != nil {
		return 0, err
	}
	if err := writeFileAtomic(w.path, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func hudHeader(cat *msgcat.Catalog, board string, f *session.Frame) string {
	title := cat.Text("hud.title", map[string]any{"Board": board}, board)
	conn := cat.Text("hud.connection", map[string]any{"State": f.Connection.String()}, f.Connection.String())
	return title + " | " + conn
}

func hudTurn(cat *msgcat.Catalog, f *session.Frame) string {
	var parts []string
	if strings.TrimSpace(f.Turn) == "" {
		parts = append(parts, cat.Text("hud.waiting", nil, ""))
	} else {
		parts = append(parts, cat.Text("hud.turn", map[string]any{"Turn": f.Turn}, f.Turn))
	}
	if n := len(f.Pending); n > 0 {
		parts = append(parts, cat.Text("hud.pending", map[string]any{"Count": n}, ""))
	}
	return strings.Join(parts, " | ")
}

func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create frame dir: %w", err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".frame-*.png")
	if err != nil {
		return fmt.Errorf("create temp frame: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write frame: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
