package transport

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/park285/cheese-board/internal/board"
	"github.com/park285/cheese-board/pkg/boarddto"
)

type StateCallback func(state State)

type handlerEntry struct {
	id int
	h  Handler
}

type stateCallbackEntry struct {
	id       int
	callback StateCallback
}

// WebSocket is a reconnecting websocket link to the authority. After every
// (re)connect it asks for a snapshot and drops move updates until that
// snapshot has arrived, so a fresh position always precedes further moves.
type WebSocket struct {
	wsURL string

	conn   *websocket.Conn
	connM  sync.RWMutex
	writeM sync.Mutex

	state  State
	stateM sync.RWMutex

	gate SnapshotGate

	handlers []handlerEntry
	stateCbs []stateCallbackEntry
	nextID   int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration
	dialTimeout          time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc

	headerProvider HeaderProvider
	logger         *zap.Logger
}

type WebSocketOption func(*WebSocket)

func WithWSLogger(l *zap.Logger) WebSocketOption {
	return func(ws *WebSocket) {
		if l != nil {
			ws.logger = l
		}
	}
}

func WithPingInterval(d time.Duration) WebSocketOption {
	return func(ws *WebSocket) {
		if d > 0 {
			ws.pingInterval = d
		}
	}
}

// WithWSHeaders injects headers into every handshake.
func WithWSHeaders(h HeaderProvider) WebSocketOption {
	return func(ws *WebSocket) { ws.headerProvider = h }
}

func NewWebSocket(wsURL string, maxReconnectAttempts int, opts ...WebSocketOption) *WebSocket {
	ws := &WebSocket{
		wsURL:                wsURL,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         30 * time.Second,
		dialTimeout:          10 * time.Second,
		stopCh:               make(chan struct{}),
		logger:               zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ws)
	}
	ws.rootCtx, ws.rootCancel = context.WithCancel(context.Background())
	return ws
}

func (ws *WebSocket) Connect(ctx context.Context) error {
	switch ws.State() {
	case StateConnected, StateConnecting:
		return nil
	}
	ws.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, ws.dialTimeout)
	defer cancel()
	conn, err := ws.dial(dialCtx)
	if err != nil {
		ws.logger.Warn("ws_connect_failed", zap.String("url", ws.wsURL), zap.Error(err))
		ws.setState(StateFailed)
		ws.scheduleReconnect()
		return err
	}
	ws.attach(conn)
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	return conn, err
}

// attach installs a fresh connection, starts the reader and pinger, and
// asks for a snapshot.
func (ws *WebSocket) attach(conn *websocket.Conn) {
	ws.connM.Lock()
	ws.conn = conn
	ws.connM.Unlock()

	ws.gate.Arm()

	ws.setState(StateConnected)

	ws.wg.Add(2)
	go ws.listen(conn)
	go ws.pingLoop(conn)

	if err := ws.RequestSnapshot(ws.rootCtx); err != nil {
		ws.logger.Warn("ws_snapshot_request_failed", zap.Error(err))
	}
}

func (ws *WebSocket) listen(conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		var env boarddto.Envelope
		if err := wsjson.Read(ws.rootCtx, conn, &env); err != nil {
			if ws.isStopping() {
				return
			}
			ws.logger.Warn("ws_read_failed", zap.Error(err))
			ws.dropConn(conn, websocket.StatusGoingAway, "reconnect")
			return
		}

		ev, err := DecodeEnvelope(env)
		if err != nil {
			ws.logger.Warn("ws_decode_failed", zap.String("type", env.Type), zap.Error(err))
			if NeedsResync(err) {
				ws.resync()
			}
			continue
		}
		if !ws.gate.Admit(ev) {
			ws.logger.Debug("ws_update_before_snapshot_dropped", zap.String("ply", ev.Update.Primary.String()))
			continue
		}
		ws.emit(ev)
	}
}

// resync holds back updates and asks for a fresh snapshot after a frame
// that may have carried a ply could not be decoded.
func (ws *WebSocket) resync() {
	ws.gate.Arm()
	ctx, cancel := context.WithTimeout(ws.rootCtx, 5*time.Second)
	defer cancel()
	if err := ws.RequestSnapshot(ctx); err != nil {
		ws.logger.Warn("ws_resync_request_failed", zap.Error(err))
	}
}

func (ws *WebSocket) pingLoop(conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ws.stopCh:
			return
		case <-ws.rootCtx.Done():
			return
		case <-t.C:
			if ws.current() != conn {
				return
			}
			ctx, cancel := context.WithTimeout(ws.rootCtx, 3*time.Second)
			err := conn.Ping(ctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= 2 {
				if ws.isStopping() {
					return
				}
				ws.logger.Warn("ws_ping_failed", zap.Error(err))
				ws.dropConn(conn, websocket.StatusGoingAway, "ping failure")
				return
			}
		}
	}
}

// dropConn tears down conn if it is still current and starts reconnecting.
func (ws *WebSocket) dropConn(conn *websocket.Conn, code websocket.StatusCode, reason string) {
	ws.connM.Lock()
	if ws.conn != conn {
		ws.connM.Unlock()
		return
	}
	ws.conn = nil
	ws.connM.Unlock()

	_ = conn.Close(code, reason)
	ws.setState(StateDisconnected)
	ws.scheduleReconnect()
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 || ws.isStopping() {
		return
	}
	ws.setState(StateReconnecting)

	go func() {
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(ws.rootCtx, ws.dialTimeout)
			conn, err := ws.dial(dialCtx)
			cancel()
			if err != nil {
				ws.logger.Debug("ws_reconnect_attempt_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			ws.logger.Info("ws_reconnected", zap.Int("attempt", attempt))
			ws.attach(conn)
			return
		}
		ws.setState(StateFailed)
	}()
}

func (ws *WebSocket) current() *websocket.Conn {
	ws.connM.RLock()
	defer ws.connM.RUnlock()
	return ws.conn
}

func (ws *WebSocket) writeJSON(ctx context.Context, v any) error {
	conn := ws.current()
	if conn == nil || ws.State() != StateConnected {
		return ErrNotConnected
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
	}
	// wsjson.Write must not run concurrently on one connection
	ws.writeM.Lock()
	defer ws.writeM.Unlock()
	return wsjson.Write(ctx, conn, v)
}

func (ws *WebSocket) SendMove(ctx context.Context, req board.MoveRequest) error {
	env, err := moveEnvelope(req)
	if err != nil {
		return err
	}
	return ws.writeJSON(ctx, env)
}

func (ws *WebSocket) RequestSnapshot(ctx context.Context) error {
	return ws.writeJSON(ctx, snapshotRequestEnvelope())
}

// Connected reports whether a write would currently be attempted.
func (ws *WebSocket) Connected() bool {
	return ws.current() != nil && ws.State() == StateConnected
}

// OnEvent registers h and returns an id for RemoveEventCallback.
func (ws *WebSocket) OnEvent(h Handler) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextID++
	ws.handlers = append(ws.handlers, handlerEntry{id: ws.nextID, h: h})
	return ws.nextID
}

func (ws *WebSocket) RemoveEventCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, e := range ws.handlers {
		if e.id == id {
			ws.handlers = append(ws.handlers[:i], ws.handlers[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextID++
	ws.stateCbs = append(ws.stateCbs, stateCallbackEntry{id: ws.nextID, callback: cb})
	return ws.nextID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			break
		}
	}
}

func (ws *WebSocket) emit(ev Event) {
	ws.cbM.RLock()
	handlers := make([]handlerEntry, len(ws.handlers))
	copy(handlers, ws.handlers)
	ws.cbM.RUnlock()
	for _, e := range handlers {
		if e.h != nil {
			e.h(ev)
		}
	}
}

func (ws *WebSocket) State() State {
	ws.stateM.RLock()
	defer ws.stateM.RUnlock()
	return ws.state
}

func (ws *WebSocket) setState(state State) {
	ws.stateM.Lock()
	ws.state = state
	ws.stateM.Unlock()

	ws.cbM.RLock()
	callbacks := make([]stateCallbackEntry, len(ws.stateCbs))
	copy(callbacks, ws.stateCbs)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		if entry.callback != nil {
			entry.callback(state)
		}
	}
	ws.emit(Event{Kind: EventState, State: state})
}

func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })

	ws.connM.Lock()
	conn := ws.conn
	ws.conn = nil
	ws.connM.Unlock()
	if conn != nil {
		_ = conn.Close(websocket.StatusNormalClosure, "close")
	}
	ws.rootCancel()

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.setState(StateDisconnected)
		return nil
	}
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headerProvider == nil {
		return hdr
	}
	for k, v := range ws.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
