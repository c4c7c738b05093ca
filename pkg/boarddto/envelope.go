package boarddto

import "encoding/json"

// Topic names shared with the authority.
const (
	TopicMoves            = "moves"
	TopicFieldsOccupation = "fieldsOccupation"
	TopicMoveRequest      = "move"
	TopicSnapshotRequest  = "requestFieldsOccupation"
)

// Envelope frames every message on the websocket and redis transports.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
