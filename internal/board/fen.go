package board

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ParseFEN reads the piece placement of a FEN string. A bare placement
// field (no side to move etc.) is accepted.
func ParseFEN(fen string) ([]Occupation, error) {
	fen = strings.TrimSpace(fen)
	if fen == "" || strings.EqualFold(fen, "startpos") {
		fen = StartFEN
	}
	if len(strings.Fields(fen)) == 1 {
		fen += " w - - 0 1"
	}
	opt, err := nchess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("parse fen: %w", err)
	}
	game := nchess.NewGame(opt)
	squares := game.Position().Board().SquareMap()
	out := make([]Occupation, 0, len(squares))
	for sq, p := range squares {
		if p == nchess.NoPiece {
			continue
		}
		f := FieldFromSquare(sq)
		if !f.Valid() {
			continue
		}
		out = append(out, Occupation{Field: f, Piece: pieceFromNChess(p)})
	}
	return out, nil
}

// FEN renders the piece placement field for a position. Unknown pieces
// cannot be expressed in FEN and are left out.
func FEN(occ []Occupation) string {
	m := make(map[nchess.Square]nchess.Piece, len(occ))
	for _, o := range occ {
		if !o.Piece.Known() || !o.Field.Valid() {
			continue
		}
		m[o.Field.Square()] = o.Piece.nchess()
	}
	return nchess.NewBoard(m).String()
}
