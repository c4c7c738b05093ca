package board

// Move is a from/to pair within one ply.
type Move struct {
	From Field
	To   Field
}

func (m Move) String() string { return m.From.String() + m.To.String() }

// Capture names the piece a ply removed and where it stood.
type Capture struct {
	Field Field
	Piece Piece
}

// Occupation is one occupied field.
type Occupation struct {
	Field Field
	Piece Piece
}

// MoveUpdate is one ply transition from the authority, or its undo when
// Reverted is set.
type MoveUpdate struct {
	Primary   Move
	Secondary *Move
	Captured  *Capture
	Promotion PieceType
	Reverted  bool
	Turn      string
}

// Reverse returns the same ply with Reverted flipped.
func (u MoveUpdate) Reverse() MoveUpdate {
	u.Reverted = !u.Reverted
	return u
}

// MoveRequest is the client's outbound intent to move a piece.
type MoveRequest struct {
	ID   string
	From Field
	To   Field
}
