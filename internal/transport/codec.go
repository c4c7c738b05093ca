package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/pkg/boarddto"
)

// DecodeEnvelope turns one framed message into an Event.
func DecodeEnvelope(env boarddto.Envelope) (Event, error) {
	switch strings.TrimPrefix(env.Type, "/topic/") {
	case boarddto.TopicMoves:
		var dto boarddto.PiecePositionUpdate
		if err := json.Unmarshal(env.Payload, &dto); err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		u, err := board.UpdateFromDTO(dto)
		if err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return Event{Kind: EventMove, Update: u}, nil
	case boarddto.TopicFieldsOccupation:
		occ, err := decodeSnapshot(env.Payload)
		if err != nil {
			return Event{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return Event{Kind: EventSnapshot, Snapshot: occ}, nil
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEnvelope, env.Type)
	}
}

// NeedsResync reports whether a decode failure may have lost authority
// state. Frames of unknown type carry nothing the tracker follows; any
// other failure may have been a ply and the position must be re-anchored.
func NeedsResync(err error) bool {
	return err != nil && !errors.Is(err, ErrUnknownEnvelope)
}

// Decode parses a raw frame.
func Decode(data []byte) (Event, error) {
	var env boarddto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}
	return DecodeEnvelope(env)
}

func decodeSnapshot(raw []byte) ([]board.Occupation, error) {
	var dto []boarddto.FieldOccupation
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, err
	}
	return board.OccupationsFromDTO(dto)
}

func moveEnvelope(req board.MoveRequest) (boarddto.Envelope, error) {
	payload, err := json.Marshal(req.DTO())
	if err != nil {
		return boarddto.Envelope{}, fmt.Errorf("marshal move request: %w", err)
	}
	return boarddto.Envelope{Type: boarddto.TopicMoveRequest, Payload: payload}, nil
}

func snapshotRequestEnvelope() boarddto.Envelope {
	return boarddto.Envelope{Type: boarddto.TopicSnapshotRequest}
}

// EncodeMoveRequest frames a move request for a byte-oriented transport.
func EncodeMoveRequest(req board.MoveRequest) ([]byte, error) {
	env, err := moveEnvelope(req)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// EncodeSnapshotRequest frames a snapshot request.
func EncodeSnapshotRequest() []byte {
	b, _ := json.Marshal(snapshotRequestEnvelope())
	return b
}

// EncodeUpdate and EncodeSnapshot frame authority traffic. The client
// never sends these; they exist for test authorities and the redis relay.
func EncodeUpdate(u board.MoveUpdate) ([]byte, error) {
	payload, err := json.Marshal(board.UpdateToDTO(u))
	if err != nil {
		return nil, fmt.Errorf("marshal update: %w", err)
	}
	return json.Marshal(boarddto.Envelope{Type: boarddto.TopicMoves, Payload: payload})
}

func EncodeSnapshot(occ []board.Occupation) ([]byte, error) {
	payload, err := json.Marshal(board.OccupationsToDTO(occ))
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return json.Marshal(boarddto.Envelope{Type: boarddto.TopicFieldsOccupation, Payload: payload})
}

// ClientMessage is a decoded client frame as the authority sees it.
type ClientMessage struct {
	Type string
	Move board.MoveRequest
}

func DecodeRequest(data []byte) (ClientMessage, error) {
	var env boarddto.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ClientMessage{}, fmt.Errorf("decode envelope: %w", err)
	}
	switch requestTopic(env.Type) {
	case boarddto.TopicSnapshotRequest:
		return ClientMessage{Type: boarddto.TopicSnapshotRequest}, nil
	case boarddto.TopicMoveRequest:
		var dto boarddto.MoveRequest
		if err := json.Unmarshal(env.Payload, &dto); err != nil {
			return ClientMessage{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		req, err := board.RequestFromDTO(dto)
		if err != nil {
			return ClientMessage{}, fmt.Errorf("decode %s: %w", env.Type, err)
		}
		return ClientMessage{Type: boarddto.TopicMoveRequest, Move: req}, nil
	default:
		return ClientMessage{}, fmt.Errorf("%w: %q", ErrUnknownEnvelope, env.Type)
	}
}

// requestTopic maps STOMP-style destinations onto envelope types.
func requestTopic(t string) string {
	switch t {
	case "/chessApp/move":
		return boarddto.TopicMoveRequest
	case "/chessApp/fieldsOccupation":
		return boarddto.TopicSnapshotRequest
	default:
		return t
	}
}
