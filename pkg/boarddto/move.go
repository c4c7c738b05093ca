package boarddto

type Move struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type PieceCapture struct {
	Field         string `json:"field"`
	CapturedPiece *Piece `json:"capturedPiece"`
}

// PiecePositionUpdate is one ply published by the authority on the move topic.
// Reverted marks the undo of the ply it describes.
type PiecePositionUpdate struct {
	PrimaryMove   Move          `json:"primaryMove"`
	SecondaryMove *Move         `json:"secondaryMove,omitempty"`
	PieceCapture  *PieceCapture `json:"pieceCapture,omitempty"`
	PawnPromotion string        `json:"pawnPromotion,omitempty"`
	Reverted      bool          `json:"reverted"`
	Turn          string        `json:"turn"`
}

// MoveRequest is sent by the client when a drag ends on a new field.
type MoveRequest struct {
	RequestID string `json:"requestId,omitempty"`
	From      string `json:"from"`
	To        string `json:"to"`
}
