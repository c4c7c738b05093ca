package boarddto

// Piece is the authority's piece description, e.g. {"color":"WHITE","type":"PAWN"}.
type Piece struct {
	Color string `json:"color"`
	Type  string `json:"type"`
}

// FieldOccupation is one entry of a fieldsOccupation snapshot.
type FieldOccupation struct {
	Field string `json:"field"`
	Piece *Piece `json:"piece"`
}
