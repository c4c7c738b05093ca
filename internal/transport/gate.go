package transport

import "sync"

// SnapshotGate holds back move updates after a (re)connect until the
// first snapshot arrives.
type SnapshotGate struct {
	mu      sync.Mutex
	waiting bool
}

// Arm starts dropping move updates.
func (g *SnapshotGate) Arm() {
	g.mu.Lock()
	g.waiting = true
	g.mu.Unlock()
}

// Admit reports whether ev may be delivered. A snapshot opens the gate.
func (g *SnapshotGate) Admit(ev Event) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	switch ev.Kind {
	case EventSnapshot:
		g.waiting = false
		return true
	case EventMove:
		return !g.waiting
	default:
		return true
	}
}
