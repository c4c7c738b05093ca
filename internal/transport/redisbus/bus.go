// Package redisbus carries board traffic over redis pub/sub. The authority
// publishes on the events channel and keeps its latest snapshot under a
// key; clients publish move and snapshot requests on the requests channel.
package redisbus

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/internal/transport"
)

const ttlSnapshot = 24 * time.Hour

func keyBase(boardID string) string         { return "board:" + strings.TrimSpace(boardID) }
func channelEvents(boardID string) string   { return keyBase(boardID) + ":events" }
func channelRequests(boardID string) string { return keyBase(boardID) + ":requests" }
func keySnapshot(boardID string) string     { return keyBase(boardID) + ":snapshot" }

// Bus is the client side. It implements transport.Egress and
// transport.Inbound.
type Bus struct {
	rdb     *redis.Client
	boardID string
	logger  *zap.Logger
	handler transport.Handler
	gate    transport.SnapshotGate

	mu     sync.Mutex
	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

type Option func(*Bus)

func WithLogger(l *zap.Logger) Option {
	return func(b *Bus) {
		if l != nil {
			b.logger = l
		}
	}
}

func New(rdb *redis.Client, boardID string, handler transport.Handler, opts ...Option) *Bus {
	b := &Bus{rdb: rdb, boardID: boardID, handler: handler, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Connect subscribes to the events channel and asks for a snapshot.
func (b *Bus) Connect(ctx context.Context) error {
	b.mu.Lock()
	if b.pubsub != nil {
		b.mu.Unlock()
		return nil
	}
	ps := b.rdb.Subscribe(ctx, channelEvents(b.boardID))
	if _, err := ps.Receive(ctx); err != nil {
		b.mu.Unlock()
		_ = ps.Close()
		return fmt.Errorf("subscribe %s: %w", channelEvents(b.boardID), err)
	}
	b.pubsub = ps
	b.mu.Unlock()

	b.gate.Arm()
	b.emit(transport.Event{Kind: transport.EventState, State: transport.StateConnected})

	b.wg.Add(1)
	go b.listen(ps)

	return b.RequestSnapshot(ctx)
}

func (b *Bus) listen(ps *redis.PubSub) {
	defer b.wg.Done()
	for msg := range ps.Channel() {
		ev, err := transport.Decode([]byte(msg.Payload))
		if err != nil {
			b.logger.Warn("redisbus_decode_failed", zap.String("channel", msg.Channel), zap.Error(err))
			if transport.NeedsResync(err) {
				b.resync()
			}
			continue
		}
		if !b.gate.Admit(ev) {
			b.logger.Debug("redisbus_update_before_snapshot_dropped", zap.String("ply", ev.Update.Primary.String()))
			continue
		}
		b.emit(ev)
	}
}

func (b *Bus) resync() {
	b.gate.Arm()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.RequestSnapshot(ctx); err != nil {
		b.logger.Warn("redisbus_resync_request_failed", zap.Error(err))
	}
}

func (b *Bus) emit(ev transport.Event) {
	if b.handler != nil {
		b.handler(ev)
	}
}

func (b *Bus) SendMove(ctx context.Context, req board.MoveRequest) error {
	payload, err := transport.EncodeMoveRequest(req)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelRequests(b.boardID), payload).Err()
}

// RequestSnapshot asks the authority for a snapshot. When no authority is
// listening, the last stored snapshot is delivered instead.
func (b *Bus) RequestSnapshot(ctx context.Context) error {
	receivers, err := b.rdb.Publish(ctx, channelRequests(b.boardID), transport.EncodeSnapshotRequest()).Result()
	if err != nil {
		return fmt.Errorf("publish snapshot request: %w", err)
	}
	if receivers > 0 {
		return nil
	}

	raw, err := b.rdb.Get(ctx, keySnapshot(b.boardID)).Bytes()
	if err == redis.Nil {
		b.logger.Info("redisbus_no_snapshot_available", zap.String("board", b.boardID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	ev, err := transport.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode stored snapshot: %w", err)
	}
	b.gate.Admit(ev)
	b.emit(ev)
	return nil
}

func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	ps := b.pubsub
	b.pubsub = nil
	b.mu.Unlock()
	if ps == nil {
		return nil
	}
	err := ps.Close()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	b.emit(transport.Event{Kind: transport.EventState, State: transport.StateDisconnected})
	return err
}
