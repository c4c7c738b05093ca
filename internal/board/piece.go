package board

import (
	"strings"

	nchess "github.com/corentings/chess/v2"
)

type Color uint8

const (
	NoColor Color = iota
	White
	Black
)

func (c Color) String() string {
	switch c {
	case White:
		return "WHITE"
	case Black:
		return "BLACK"
	default:
		return "NONE"
	}
}

func ParseColor(s string) Color {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "WHITE", "W":
		return White
	case "BLACK", "B":
		return Black
	default:
		return NoColor
	}
}

type PieceType uint8

const (
	NoType PieceType = iota
	King
	Queen
	Rook
	Bishop
	Knight
	Pawn
)

func (t PieceType) String() string {
	switch t {
	case King:
		return "KING"
	case Queen:
		return "QUEEN"
	case Rook:
		return "ROOK"
	case Bishop:
		return "BISHOP"
	case Knight:
		return "KNIGHT"
	case Pawn:
		return "PAWN"
	default:
		return "NONE"
	}
}

// Letter is the single-letter notation used in tokens and FEN.
func (t PieceType) Letter() string {
	switch t {
	case King:
		return "K"
	case Queen:
		return "Q"
	case Rook:
		return "R"
	case Bishop:
		return "B"
	case Knight:
		return "N"
	case Pawn:
		return "P"
	default:
		return "X"
	}
}

func ParsePieceType(s string) PieceType {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "KING", "K":
		return King
	case "QUEEN", "Q":
		return Queen
	case "ROOK", "R":
		return Rook
	case "BISHOP", "B":
		return Bishop
	case "KNIGHT", "N":
		return Knight
	case "PAWN", "P":
		return Pawn
	default:
		return NoType
	}
}

// Piece is an immutable piece identity.
type Piece struct {
	Color Color
	Type  PieceType
}

// Unknown stands in for a piece whose identity the client could not resolve.
// It never equals a real identity.
var Unknown = Piece{}

func NewPiece(c Color, t PieceType) Piece { return Piece{Color: c, Type: t} }

// Known reports whether p is a real identity rather than Unknown or a half-parsed value.
func (p Piece) Known() bool { return p.Color != NoColor && p.Type != NoType }

// Token renders the compact capture token, e.g. "W_P"; Unknown renders as "X_X".
func (p Piece) Token() string {
	if !p.Known() {
		return "X_X"
	}
	return p.Color.String()[:1] + "_" + p.Type.Letter()
}

func (p Piece) String() string {
	if !p.Known() {
		return "UNKNOWN"
	}
	return p.Color.String() + "_" + p.Type.String()
}

func (p Piece) nchess() nchess.Piece {
	if !p.Known() {
		return nchess.NoPiece
	}
	c := nchess.White
	if p.Color == Black {
		c = nchess.Black
	}
	var t nchess.PieceType
	switch p.Type {
	case King:
		t = nchess.King
	case Queen:
		t = nchess.Queen
	case Rook:
		t = nchess.Rook
	case Bishop:
		t = nchess.Bishop
	case Knight:
		t = nchess.Knight
	default:
		t = nchess.Pawn
	}
	return nchess.NewPiece(t, c)
}

func pieceFromNChess(p nchess.Piece) Piece {
	if p == nchess.NoPiece {
		return Unknown
	}
	c := White
	if p.Color() == nchess.Black {
		c = Black
	}
	var t PieceType
	switch p.Type() {
	case nchess.King:
		t = King
	case nchess.Queen:
		t = Queen
	case nchess.Rook:
		t = Rook
	case nchess.Bishop:
		t = Bishop
	case nchess.Knight:
		t = Knight
	case nchess.Pawn:
		t = Pawn
	}
	return Piece{Color: c, Type: t}
}
