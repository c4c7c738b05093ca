package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/board"
)

// RequestMove is called by the drag controller on the timeline. The
// request is sent in the background; a failure is posted back as an event.
func (s *Session) RequestMove(piece board.Piece, from, to board.Field) {
	req := board.MoveRequest{ID: uuid.NewString(), From: from, To: to}
	s.pending = append(s.pending, pending{
		PendingMove: PendingMove{Request: req, Piece: piece, SentAt: s.now()},
		shown:       true,
	})
	if s.egress == nil {
		s.logger.Warn("move_request_without_egress", zap.String("request_id", req.ID))
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
		defer cancel()
		if err := s.egress.SendMove(ctx, req); err != nil {
			_ = s.Post(context.Background(), sendFailedEvent{id: req.ID, err: err})
		}
	}()
}

// takePending removes the oldest pending request matching a forward update.
func (s *Session) takePending(u board.MoveUpdate) (matched, shown bool) {
	if u.Reverted {
		return false, false
	}
	for i, p := range s.pending {
		if p.Request.From == u.Primary.From && p.Request.To == u.Primary.To {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return true, p.shown
		}
	}
	return false, false
}

// dropPending undoes the optimistic animation of a request that could not
// be sent.
func (s *Session) dropPending(id string, err error) {
	for i, p := range s.pending {
		if p.Request.ID != id {
			continue
		}
		s.pending = append(s.pending[:i], s.pending[i+1:]...)
		s.logger.Warn("move_request_failed",
			zap.String("request_id", id),
			zap.String("move", p.Request.From.String()+p.Request.To.String()),
			zap.Error(err),
		)
		if p.shown {
			s.bridge.AnimateMove(p.Piece, p.Request.To, p.Request.From)
			if occupant, ok := s.tracker.PieceAt(p.Request.To); ok {
				s.bridge.PlacePiece(p.Request.To, occupant)
			}
		}
		return
	}
}

// Unresolved lists pending requests older than olderThan. Safe from any
// goroutine.
func (s *Session) Unresolved(olderThan time.Duration) []PendingMove {
	f := s.Frame()
	cutoff := s.now().Add(-olderThan)
	var out []PendingMove
	for _, p := range f.Pending {
		if p.SentAt.Before(cutoff) {
			out = append(out, p)
		}
	}
	return out
}

// Resync asks the authority for a fresh snapshot.
func (s *Session) Resync(ctx context.Context) error {
	if s.egress == nil {
		return nil
	}
	return s.egress.RequestSnapshot(ctx)
}

// checkOverdue requests one resync per window while optimistic moves
// stay unanswered.
func (s *Session) checkOverdue() {
	now := s.now()
	cutoff := now.Add(-s.resyncWindow)
	overdue := 0
	for _, p := range s.pending {
		if p.SentAt.Before(cutoff) {
			overdue++
		}
	}
	if overdue == 0 || now.Sub(s.lastResync) < s.resyncWindow {
		return
	}
	s.lastResync = now
	s.logger.Warn("optimistic_moves_overdue", zap.Int("count", overdue), zap.Duration("window", s.resyncWindow))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
		defer cancel()
		if err := s.Resync(ctx); err != nil {
			s.logger.Warn("resync_failed", zap.Error(err))
		}
	}()
}
