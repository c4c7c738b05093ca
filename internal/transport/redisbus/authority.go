package redisbus

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/transport"
	"github.com/park285/cheese-board/pkg/boarddto"
)

// Publisher is the authority side of a board channel.
type Publisher struct {
	rdb     *redis.Client
	boardID string
}

func NewPublisher(rdb *redis.Client, boardID string) *Publisher {
	return &Publisher{rdb: rdb, boardID: boardID}
}

// PublishSnapshot stores occ as the latest snapshot and broadcasts it.
func (p *Publisher) PublishSnapshot(ctx context.Context, occ []board.Occupation) error {
	raw, err := transport.EncodeSnapshot(occ)
	if err != nil {
		return err
	}
	if err := p.rdb.Set(ctx, keySnapshot(p.boardID), raw, ttlSnapshot).Err(); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return p.rdb.Publish(ctx, channelEvents(p.boardID), raw).Err()
}

func (p *Publisher) PublishUpdate(ctx context.Context, u board.MoveUpdate) error {
	raw, err := transport.EncodeUpdate(u)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, channelEvents(p.boardID), raw).Err()
}

// Request is one inbound client message.
type Request struct {
	Snapshot bool
	Move     board.MoveRequest
}

// Requests subscribes to client traffic until ctx ends. The subscription is
// active when Requests returns.
func (p *Publisher) Requests(ctx context.Context) (<-chan Request, error) {
	ps := p.rdb.Subscribe(ctx, channelRequests(p.boardID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channelRequests(p.boardID), err)
	}
	out := make(chan Request, 16)
	go func() {
		defer close(out)
		defer ps.Close()
		ch := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				req, ok := decodeRequest([]byte(msg.Payload))
				if !ok {
					continue
				}
				select {
				case out <- req:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func decodeRequest(raw []byte) (Request, bool) {
	env, err := transport.DecodeRequest(raw)
	if err != nil {
		return Request{}, false
	}
	switch env.Type {
	case boarddto.TopicSnapshotRequest:
		return Request{Snapshot: true}, true
	case boarddto.TopicMoveRequest:
		return Request{Move: env.Move}, true
	default:
		return Request{}, false
	}
}
