package session

import (
	"context"
	"time"
)

// Watchdog posts a CheckEvent every interval so overdue optimistic moves
// lead to a resync.
type Watchdog struct {
	s        *Session
	interval time.Duration
}

func NewWatchdog(s *Session, interval time.Duration) *Watchdog {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watchdog{s: s, interval: interval}
}

func (w *Watchdog) Run(ctx context.Context) error {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			if err := w.s.Post(ctx, CheckEvent{}); err != nil {
				return err
			}
		}
	}
}
