package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"tickwatch/internal/domain"
	"tickwatch/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	defaultReconnectDelay = 3 * time.Second
	defaultConnectTimeout = 10 * time.Second
	shutdownFlushWait     = 500 * time.Millisecond
)

// State is the session's position in the connection handshake.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected // Transport up, not yet authenticated
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateAuthenticated:
		return "AUTHENTICATED"
	default:
		return "DISCONNECTED"
	}
}

// Options configures the feed session.
type Options struct {
	URL            string
	APIKey         string
	ReconnectDelay time.Duration // Fixed delay, no backoff growth
	ConnectTimeout time.Duration
}

// Hooks connect the session to the rest of the engine. OnAuthenticated
// receives true exactly once per process lifetime, on the first successful
// authentication (cold start); every later call is a reconnect.
type Hooks struct {
	OnTick          func(symbol string, tick domain.Tick)
	OnAuthenticated func(firstConn bool)
}

// Session maintains exactly one logical connection to the tick feed:
// connect, authenticate, send and receive frames, and reconnect with a
// fixed delay on any transport failure.
type Session struct {
	opts  Options
	hooks Hooks

	conn      *websocket.Conn
	mu        sync.RWMutex
	writeMu   sync.Mutex
	state     atomic.Int32
	firstConn atomic.Bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewSession creates a session. Connect must be called to start it.
func NewSession(opts Options, hooks Hooks) *Session {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = defaultConnectTimeout
	}
	s := &Session{opts: opts, hooks: hooks}
	s.firstConn.Store(true)
	return s
}

// Connect starts the connection loop with automatic fixed-delay reconnection
func (s *Session) Connect(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.connectionLoop(ctx)
	return nil
}

// connectionLoop dials, authenticates and reads until failure, then waits
// the fixed reconnect delay and tries again. Every failure is handled the
// same way; a persistently bad API key retries indefinitely.
func (s *Session) connectionLoop(ctx context.Context) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Feed session panic recovered", slog.Any("panic", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Feed connection loop stopped")
			return
		default:
		}

		if err := s.connect(ctx); err != nil {
			slog.Warn("Feed connection failed", slog.Any("error", err))
		} else {
			s.readLoop(ctx)
		}

		s.setState(StateDisconnected)
		infra.GlobalMetrics.RecordReconnect()

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.opts.ReconnectDelay):
		}
	}
}

// connect establishes the transport and sends the auth frame.
func (s *Session) connect(ctx context.Context) error {
	s.setState(StateConnecting)

	dialer := websocket.Dialer{HandshakeTimeout: s.opts.ConnectTimeout}
	conn, _, err := dialer.DialContext(ctx, s.opts.URL, nil)
	if err != nil {
		s.setState(StateDisconnected)
		return domain.NewNetworkError("dial", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.setState(StateConnected)

	msg, err := marshalAuth(s.opts.APIKey)
	if err != nil {
		s.closeConnection()
		return err
	}
	if err := s.threadSafeWrite(websocket.TextMessage, msg); err != nil {
		s.closeConnection()
		return domain.NewNetworkError("auth", err)
	}

	slog.Info("Feed transport established", slog.String("url", s.opts.URL))
	return nil
}

// Subscribe sends a subscribe frame for the trades channel.
func (s *Session) Subscribe(symbol string) error {
	msg, err := marshalSubscribe(symbol)
	if err != nil {
		return err
	}
	return s.threadSafeWrite(websocket.TextMessage, msg)
}

// Unsubscribe sends an unsubscribe frame for the trades channel.
func (s *Session) Unsubscribe(symbol string) error {
	msg, err := marshalUnsubscribe(symbol)
	if err != nil {
		return err
	}
	return s.threadSafeWrite(websocket.TextMessage, msg)
}

// threadSafeWrite sends a message to the WebSocket connection in a thread-safe manner
func (s *Session) threadSafeWrite(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil {
		return domain.ErrNotConnected
	}
	if err := conn.WriteMessage(messageType, data); err != nil {
		return domain.NewNetworkError("write", err)
	}
	return nil
}

// readLoop reads frames until the transport fails or the context ends.
func (s *Session) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("Feed read error", slog.Any("error", err))
			}
			s.closeConnection()
			return
		}

		s.dispatch(message, time.Now())
	}
}

// dispatch routes one inbound frame by its event discriminator. Malformed
// frames are logged and skipped; nothing here aborts the connection.
func (s *Session) dispatch(message []byte, receivedAt time.Time) {
	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		slog.Debug("Feed frame parse error", slog.Any("error", err))
		infra.GlobalMetrics.RecordParseError()
		return
	}

	switch f.Event {
	case eventAuthenticated:
		s.handleAuthenticated()
	case eventData:
		if f.Channel != ChannelTrades {
			slog.Debug("Unhandled data channel", slog.String("channel", f.Channel))
			infra.GlobalMetrics.RecordUnhandledFrame()
			return
		}
		tick := parseTick(f.Symbol, f.Data, receivedAt)
		if s.hooks.OnTick != nil {
			s.hooks.OnTick(f.Symbol, tick)
		}
	case eventError:
		slog.Warn("Feed error frame", slog.String("message", errorMessage(f.Data)))
	case eventPong, eventSubscribed:
		// Acknowledged, no state change
	default:
		slog.Debug("Unhandled feed frame", slog.String("event", f.Event))
		infra.GlobalMetrics.RecordUnhandledFrame()
	}
}

func (s *Session) handleAuthenticated() {
	s.setState(StateAuthenticated)
	first := s.firstConn.Swap(false)
	slog.Info("Feed authenticated", slog.Bool("first_conn", first))
	if s.hooks.OnAuthenticated != nil {
		s.hooks.OnAuthenticated(first)
	}
}

// State returns the current session state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Authenticated reports whether the session completed the auth handshake.
func (s *Session) Authenticated() bool {
	return s.State() == StateAuthenticated
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
	infra.GlobalMetrics.SetFeedConnected(st == StateAuthenticated)
}

// closeConnection safely closes the WebSocket connection
func (s *Session) closeConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// Shutdown best-effort unsubscribes the given symbols, waits briefly for the
// sends to flush and closes the transport. Failures are logged, never
// retried, and never block shutdown.
func (s *Session) Shutdown(symbols []string) {
	if s.Authenticated() {
		for _, symbol := range symbols {
			if err := s.Unsubscribe(symbol); err != nil {
				slog.Warn("Shutdown unsubscribe failed",
					slog.String("symbol", symbol),
					slog.Any("error", err),
				)
			}
		}
		if len(symbols) > 0 {
			time.Sleep(shutdownFlushWait)
		}
	}

	if s.cancel != nil {
		s.cancel()
	}
	s.closeConnection()
	s.wg.Wait()
	s.setState(StateDisconnected)
	slog.Info("Feed session closed")
}
