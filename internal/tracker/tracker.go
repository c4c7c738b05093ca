// Package tracker keeps the authoritative field to piece mapping. It is
// driven only by snapshots and move updates, in the order the authority
// sent them, and never validates chess rules.
package tracker

import (
	"sort"

	"github.com/park285/cheese-board/internal/board"
)

// Step is one piece relocation performed while applying an update.
type Step struct {
	Piece board.Piece
	From  board.Field
	To    board.Field
}

// Transition describes what Apply changed, in the order it changed it.
type Transition struct {
	Update      board.MoveUpdate
	Steps       []Step
	Removed     *board.Occupation
	Restored    *board.Occupation
	Promoted    *board.Occupation
	Diagnostics []Diagnostic
}

type Tracker struct {
	positions map[board.Field]board.Piece
	captures  CaptureStack
	onDiag    DiagnosticFunc
}

type Option func(*Tracker)

// WithDiagnostics installs a sink for protocol order violations.
func WithDiagnostics(fn DiagnosticFunc) Option {
	return func(t *Tracker) { t.onDiag = fn }
}

func New(opts ...Option) *Tracker {
	t := &Tracker{positions: make(map[board.Field]board.Piece, 32)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// LoadSnapshot replaces the whole position. The capture stack is left as is.
func (t *Tracker) LoadSnapshot(occ []board.Occupation) {
	t.positions = make(map[board.Field]board.Piece, len(occ))
	for _, o := range occ {
		if !o.Field.Valid() {
			continue
		}
		t.positions[o.Field] = o.Piece
	}
}

func (t *Tracker) PieceAt(f board.Field) (board.Piece, bool) {
	p, ok := t.positions[f]
	return p, ok
}

// AllOccupied lists every occupied field once, ordered a1..h8.
func (t *Tracker) AllOccupied() []board.Occupation {
	out := make([]board.Occupation, 0, len(t.positions))
	for f, p := range t.positions {
		out = append(out, board.Occupation{Field: f, Piece: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}

func (t *Tracker) Len() int { return len(t.positions) }

// Captures returns the capture stack, oldest first.
func (t *Tracker) Captures() []board.Piece { return t.captures.Snapshot() }

func (t *Tracker) CaptureDepth() int { return t.captures.Len() }

// Apply applies u, or reverts it when u.Reverted is set.
func (t *Tracker) Apply(u board.MoveUpdate) Transition {
	tr := Transition{Update: u}
	if u.Reverted {
		t.revert(u, &tr)
	} else {
		t.forward(u, &tr)
	}
	for _, d := range tr.Diagnostics {
		if t.onDiag != nil {
			t.onDiag(d)
		}
	}
	return tr
}

func (t *Tracker) forward(u board.MoveUpdate, tr *Transition) {
	mover := t.take(u.Primary.From, DiagMissingSource, u, tr)

	if c := u.Captured; c != nil {
		token := c.Piece
		if occupant, ok := t.positions[c.Field]; ok {
			if !token.Known() {
				token = occupant
			}
			delete(t.positions, c.Field)
			tr.Removed = &board.Occupation{Field: c.Field, Piece: occupant}
		}
		t.captures.Push(token)
	}

	t.put(u.Primary.To, mover, u, tr)
	tr.Steps = append(tr.Steps, Step{Piece: mover, From: u.Primary.From, To: u.Primary.To})

	if s := u.Secondary; s != nil {
		partner := t.take(s.From, DiagMissingSource, u, tr)
		t.put(s.To, partner, u, tr)
		tr.Steps = append(tr.Steps, Step{Piece: partner, From: s.From, To: s.To})
	}

	if u.Promotion != board.NoType && mover.Known() {
		promoted := board.NewPiece(mover.Color, u.Promotion)
		t.positions[u.Primary.To] = promoted
		tr.Promoted = &board.Occupation{Field: u.Primary.To, Piece: promoted}
	}
}

func (t *Tracker) revert(u board.MoveUpdate, tr *Transition) {
	if u.Promotion != board.NoType {
		if p, ok := t.positions[u.Primary.To]; ok && p.Known() {
			t.positions[u.Primary.To] = board.NewPiece(p.Color, board.Pawn)
		}
	}

	if s := u.Secondary; s != nil {
		partner := t.take(s.To, DiagMissingRevertTarget, u, tr)
		t.put(s.From, partner, u, tr)
		tr.Steps = append(tr.Steps, Step{Piece: partner, From: s.To, To: s.From})
	}

	mover := t.take(u.Primary.To, DiagMissingRevertTarget, u, tr)
	t.put(u.Primary.From, mover, u, tr)
	tr.Steps = append(tr.Steps, Step{Piece: mover, From: u.Primary.To, To: u.Primary.From})
	if u.Promotion != board.NoType && mover.Known() {
		tr.Promoted = &board.Occupation{Field: u.Primary.From, Piece: mover}
	}

	if c := u.Captured; c != nil {
		popped, ok := t.captures.Pop()
		restored := c.Piece
		switch {
		case !ok:
			tr.Diagnostics = append(tr.Diagnostics, Diagnostic{Kind: DiagCaptureUnderflow, Field: c.Field, Piece: c.Piece, Update: u})
		case !restored.Known():
			restored = popped
		case popped.Known() && popped != restored:
			tr.Diagnostics = append(tr.Diagnostics, Diagnostic{Kind: DiagCaptureMismatch, Field: c.Field, Piece: restored, Expected: popped, Update: u})
		}
		if !restored.Known() {
			tr.Diagnostics = append(tr.Diagnostics, Diagnostic{Kind: DiagUnknownPlaced, Field: c.Field, Update: u})
		}
		t.put(c.Field, restored, u, tr)
		tr.Restored = &board.Occupation{Field: c.Field, Piece: restored}
	}
}

// take removes and returns the piece at f. An empty field yields the
// unknown-piece token together with a diagnostic of the given kind.
func (t *Tracker) take(f board.Field, kind DiagnosticKind, u board.MoveUpdate, tr *Transition) board.Piece {
	p, ok := t.positions[f]
	if !ok {
		tr.Diagnostics = append(tr.Diagnostics,
			Diagnostic{Kind: kind, Field: f, Update: u},
			Diagnostic{Kind: DiagUnknownPlaced, Field: f, Update: u},
		)
		return board.Unknown
	}
	delete(t.positions, f)
	return p
}

func (t *Tracker) put(f board.Field, p board.Piece, u board.MoveUpdate, tr *Transition) {
	if prev, ok := t.positions[f]; ok {
		tr.Diagnostics = append(tr.Diagnostics, Diagnostic{Kind: DiagUndeclaredCapture, Field: f, Piece: p, Expected: prev, Update: u})
	}
	t.positions[f] = p
}
