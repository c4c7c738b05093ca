package tracker

import (
	"fmt"

	"github.com/park285/cheese-board/internal/board"
)

// DiagnosticKind classifies updates that did not line up with the tracked
// position. All of them are protocol order violations; the tracker applies
// best-effort semantics and reports instead of failing.
type DiagnosticKind string

const (
	// DiagMissingSource: a forward move found no piece on its from field.
	DiagMissingSource DiagnosticKind = "missing_source"
	// DiagMissingRevertTarget: a revert found no piece on its to field.
	DiagMissingRevertTarget DiagnosticKind = "missing_revert_target"
	// DiagCaptureUnderflow: a capture revert arrived with an empty capture stack.
	DiagCaptureUnderflow DiagnosticKind = "capture_stack_underflow"
	// DiagCaptureMismatch: the popped token differs from the piece the revert restores.
	DiagCaptureMismatch DiagnosticKind = "capture_mismatch"
	// DiagUndeclaredCapture: a piece was overwritten without a capture in the update.
	DiagUndeclaredCapture DiagnosticKind = "undeclared_capture"
	// DiagUnknownPlaced: the unknown-piece token was written to a field.
	DiagUnknownPlaced DiagnosticKind = "unknown_piece_placed"
)

type Diagnostic struct {
	Kind     DiagnosticKind
	Field    board.Field
	Piece    board.Piece
	Update   board.MoveUpdate
	Expected board.Piece
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s at %s (piece=%s ply=%s reverted=%v)", d.Kind, d.Field, d.Piece, d.Update.Primary, d.Update.Reverted)
}

// DiagnosticFunc receives diagnostics synchronously from Apply.
type DiagnosticFunc func(Diagnostic)
