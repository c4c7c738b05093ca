package session

import (
	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/drag"
	"github.com/park285/cheese-board/internal/geometry"
	"github.com/park285/cheese-board/internal/tracker"
	"github.com/park285/cheese-board/internal/transport"
)

func (s *Session) applyTransport(ev transport.Event) {
	switch ev.Kind {
	case transport.EventSnapshot:
		s.applySnapshot(ev.Snapshot)
	case transport.EventMove:
		s.applyUpdate(ev.Update)
	case transport.EventState:
		if s.connection != ev.State {
			s.logger.Info("transport_state", zap.String("state", ev.State.String()))
		}
		s.connection = ev.State
	}
}

// applySnapshot replaces the position and discards every optimistic
// visual: an in-flight drag is dropped and pending requests are forgotten.
func (s *Session) applySnapshot(occ []board.Occupation) {
	s.drag.Abort()
	if n := len(s.pending); n > 0 {
		s.logger.Info("pending_moves_discarded_by_snapshot", zap.Int("count", n))
	}
	s.pending = nil
	s.lastMove = nil
	s.tracker.LoadSnapshot(occ)
	s.redraw()
	s.logger.Debug("snapshot_applied", zap.Int("pieces", len(occ)), zap.Int("captures", s.tracker.CaptureDepth()))
}

func (s *Session) redraw() {
	s.bridge.Clear()
	for _, o := range s.tracker.AllOccupied() {
		s.bridge.PlacePiece(o.Field, o.Piece)
	}
}

func (s *Session) applyUpdate(u board.MoveUpdate) {
	// an update may move the piece being dragged
	if sess, ok := s.drag.Active(); ok && touches(u, sess.Origin) {
		s.drag.Cancel()
	}

	confirmed, wasShown := s.takePending(u)
	tr := s.tracker.Apply(u)

	if u.Reverted {
		s.drawRevert(tr)
	} else if confirmed && wasShown {
		s.drawConfirmed(tr)
	} else {
		s.drawForward(tr)
	}

	if u.Turn != "" {
		s.turn = u.Turn
	}
	if u.Reverted {
		s.lastMove = nil
	} else {
		m := u.Primary
		s.lastMove = &m
	}
	s.logger.Debug("update_applied",
		zap.String("ply", u.Primary.String()),
		zap.Bool("reverted", u.Reverted),
		zap.Bool("confirmed", confirmed),
		zap.Int("captures", s.tracker.CaptureDepth()),
	)
}

func touches(u board.MoveUpdate, f board.Field) bool {
	if u.Primary.From == f || u.Primary.To == f {
		return true
	}
	if u.Secondary != nil && (u.Secondary.From == f || u.Secondary.To == f) {
		return true
	}
	return u.Captured != nil && u.Captured.Field == f
}

func (s *Session) drawForward(tr tracker.Transition) {
	if tr.Removed != nil {
		s.bridge.RemovePiece(tr.Removed.Field, tr.Removed.Piece)
	}
	for i, step := range tr.Steps {
		piece := step.Piece
		if i == 0 && tr.Promoted != nil {
			piece = tr.Promoted.Piece
		}
		s.bridge.AnimateMove(piece, step.From, step.To)
	}
}

// drawConfirmed finishes a move the drag already animated. Only what the
// optimistic animation could not know is drawn.
func (s *Session) drawConfirmed(tr tracker.Transition) {
	to := tr.Update.Primary.To
	if tr.Removed != nil && tr.Removed.Field != to {
		s.bridge.RemovePiece(tr.Removed.Field, tr.Removed.Piece)
	}
	for i, step := range tr.Steps {
		if i == 0 {
			continue
		}
		s.bridge.AnimateMove(step.Piece, step.From, step.To)
	}
	if tr.Promoted != nil {
		s.bridge.PlacePiece(tr.Promoted.Field, tr.Promoted.Piece)
	}
	if len(tr.Diagnostics) > 0 {
		if p, ok := s.tracker.PieceAt(to); ok {
			s.bridge.PlacePiece(to, p)
		}
	}
}

func (s *Session) drawRevert(tr tracker.Transition) {
	for _, step := range tr.Steps {
		s.bridge.AnimateMove(step.Piece, step.From, step.To)
	}
	if tr.Restored != nil {
		s.bridge.PlacePiece(tr.Restored.Field, tr.Restored.Piece)
	}
}

func (s *Session) applyPointer(e PointerEvent) {
	switch e.Kind {
	case PointerDown:
		s.drag.PointerDown(e.At)
	case PointerMove:
		s.drag.PointerMove(e.At)
	case PointerUp:
		rel := s.drag.PointerUp(e.At)
		if rel.Outcome != drag.OutcomeNone {
			s.logger.Debug("drag_released", zap.String("outcome", rel.Outcome.String()), zap.String("from", rel.From.String()), zap.String("to", rel.To.String()))
		}
	case PointerCancel:
		s.drag.Cancel()
	}
}

// applyOrientation cancels any drag under the old orientation, then lays
// every piece out again under the new one.
func (s *Session) applyOrientation(o geometry.Orientation) {
	s.drag.Cancel()
	before := s.cfg.Version()
	v, err := s.cfg.Set(o)
	if err != nil {
		s.logger.Warn("orientation_rejected", zap.Float64("field_size", o.FieldSize), zap.Error(err))
		return
	}
	if v == before {
		return
	}
	for i := range s.pending {
		s.pending[i].shown = false
	}
	s.redraw()
	s.logger.Info("orientation_changed", zap.Bool("flipped", o.Flipped), zap.Float64("field_size", o.FieldSize), zap.Uint64("version", v))
}
