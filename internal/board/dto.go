package board

import (
	"fmt"
	"strings"

	"github.com/park285/cheese-board/pkg/boarddto"
)

func pieceFromDTO(p *boarddto.Piece) Piece {
	if p == nil {
		return Unknown
	}
	pc := Piece{Color: ParseColor(p.Color), Type: ParsePieceType(p.Type)}
	if !pc.Known() {
		return Unknown
	}
	return pc
}

func pieceToDTO(p Piece) *boarddto.Piece {
	if !p.Known() {
		return nil
	}
	return &boarddto.Piece{Color: p.Color.String(), Type: p.Type.String()}
}

// OccupationsFromDTO converts a snapshot. Entries without a piece are empty
// fields and are skipped; pieces that cannot be parsed keep their field
// occupied with Unknown.
func OccupationsFromDTO(in []boarddto.FieldOccupation) ([]Occupation, error) {
	out := make([]Occupation, 0, len(in))
	for _, o := range in {
		f, err := ParseField(o.Field)
		if err != nil {
			return nil, err
		}
		if o.Piece == nil {
			continue
		}
		out = append(out, Occupation{Field: f, Piece: pieceFromDTO(o.Piece)})
	}
	return out, nil
}

func OccupationsToDTO(in []Occupation) []boarddto.FieldOccupation {
	out := make([]boarddto.FieldOccupation, 0, len(in))
	for _, o := range in {
		out = append(out, boarddto.FieldOccupation{Field: o.Field.String(), Piece: pieceToDTO(o.Piece)})
	}
	return out
}

func moveFromDTO(m boarddto.Move) (Move, error) {
	from, err := ParseField(m.From)
	if err != nil {
		return Move{}, fmt.Errorf("from: %w", err)
	}
	to, err := ParseField(m.To)
	if err != nil {
		return Move{}, fmt.Errorf("to: %w", err)
	}
	return Move{From: from, To: to}, nil
}

// UpdateFromDTO validates the fields of a wire update. A capture without a
// recognizable piece is kept with the Unknown token.
func UpdateFromDTO(in boarddto.PiecePositionUpdate) (MoveUpdate, error) {
	primary, err := moveFromDTO(in.PrimaryMove)
	if err != nil {
		return MoveUpdate{}, fmt.Errorf("primary move: %w", err)
	}
	u := MoveUpdate{
		Primary:   primary,
		Promotion: ParsePieceType(in.PawnPromotion),
		Reverted:  in.Reverted,
		Turn:      strings.TrimSpace(in.Turn),
	}
	if in.SecondaryMove != nil {
		sec, err := moveFromDTO(*in.SecondaryMove)
		if err != nil {
			return MoveUpdate{}, fmt.Errorf("secondary move: %w", err)
		}
		u.Secondary = &sec
	}
	if in.PieceCapture != nil {
		f, err := ParseField(in.PieceCapture.Field)
		if err != nil {
			return MoveUpdate{}, fmt.Errorf("capture: %w", err)
		}
		u.Captured = &Capture{Field: f, Piece: pieceFromDTO(in.PieceCapture.CapturedPiece)}
	}
	return u, nil
}

func UpdateToDTO(u MoveUpdate) boarddto.PiecePositionUpdate {
	out := boarddto.PiecePositionUpdate{
		PrimaryMove: boarddto.Move{From: u.Primary.From.String(), To: u.Primary.To.String()},
		Reverted:    u.Reverted,
		Turn:        u.Turn,
	}
	if u.Secondary != nil {
		out.SecondaryMove = &boarddto.Move{From: u.Secondary.From.String(), To: u.Secondary.To.String()}
	}
	if u.Captured != nil {
		out.PieceCapture = &boarddto.PieceCapture{Field: u.Captured.Field.String(), CapturedPiece: pieceToDTO(u.Captured.Piece)}
	}
	if u.Promotion != NoType {
		out.PawnPromotion = strings.ToLower(u.Promotion.String())
	}
	return out
}

func RequestFromDTO(in boarddto.MoveRequest) (MoveRequest, error) {
	m, err := moveFromDTO(boarddto.Move{From: in.From, To: in.To})
	if err != nil {
		return MoveRequest{}, err
	}
	return MoveRequest{ID: in.RequestID, From: m.From, To: m.To}, nil
}

func (r MoveRequest) DTO() boarddto.MoveRequest {
	return boarddto.MoveRequest{RequestID: r.ID, From: r.From.String(), To: r.To.String()}
}
