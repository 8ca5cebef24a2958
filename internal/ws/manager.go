package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"chat-sync/internal/models"
	"chat-sync/internal/observability"
)

// State is the connectivity state of the push channel.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	// StateFailed is terminal until an explicit Connect call, typically after
	// re-authentication.
	StateFailed State = "failed"
)

// ErrNoCredential is returned when Connect is called without a session token.
// No connection attempt is made.
var ErrNoCredential = errors.New("no session credential")

// Config holds the connection and retry knobs for the Manager.
type Config struct {
	URL              string
	Token            string
	MaxAttempts      int
	BackoffBase      time.Duration
	BackoffMax       time.Duration
	HandshakeTimeout time.Duration
}

func (c *Config) defaults() {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = 30 * time.Second
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 10 * time.Second
	}
}

// Manager owns the lifecycle of one push-channel connection per session:
// connect, authenticate, reconnect with bounded backoff, and fan-out of the
// event classes consumers subscribe to. Transport wire details never leak
// past this package.
type Manager struct {
	cfg        Config
	dialer     *websocket.Dialer
	dispatcher *dispatcher

	mu          sync.Mutex
	state       State
	conn        *websocket.Conn
	cancel      context.CancelFunc
	intentional bool

	// stateCh serializes transition notifications so subscribers observe
	// them in the order they happened.
	stateCh chan State
}

// NewManager builds a disconnected Manager. Instances are independent so
// tests can run isolated managers side by side.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	m := &Manager{
		cfg:        cfg,
		dialer:     &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		dispatcher: newDispatcher(),
		state:      StateDisconnected,
		stateCh:    make(chan State, 16),
	}
	go func() {
		for s := range m.stateCh {
			m.dispatcher.emitState(s)
		}
	}()
	return m
}

// State returns the current connectivity state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnMessage registers a handler for inbound chat messages.
func (m *Manager) OnMessage(h func(models.NewMessagePayload)) {
	m.dispatcher.mu.Lock()
	m.dispatcher.onMessage = append(m.dispatcher.onMessage, h)
	m.dispatcher.mu.Unlock()
}

// OnNotification registers a handler for server-side notifications.
func (m *Manager) OnNotification(h func(models.Notification)) {
	m.dispatcher.mu.Lock()
	m.dispatcher.onNotify = append(m.dispatcher.onNotify, h)
	m.dispatcher.mu.Unlock()
}

// OnTyping registers a handler for typing indicator changes.
func (m *Manager) OnTyping(h func(models.TypingPayload)) {
	m.dispatcher.mu.Lock()
	m.dispatcher.onTyping = append(m.dispatcher.onTyping, h)
	m.dispatcher.mu.Unlock()
}

// OnReadReceipt registers a handler for read receipts.
func (m *Manager) OnReadReceipt(h func(models.ReadReceiptPayload)) {
	m.dispatcher.mu.Lock()
	m.dispatcher.onReadReceipt = append(m.dispatcher.onReadReceipt, h)
	m.dispatcher.mu.Unlock()
}

// OnPresence registers a handler for user_online and user_offline events.
func (m *Manager) OnPresence(h func(event string, p models.PresencePayload)) {
	m.dispatcher.mu.Lock()
	m.dispatcher.onPresence = append(m.dispatcher.onPresence, h)
	m.dispatcher.mu.Unlock()
}

// OnStateChange registers a handler for connectivity state transitions.
func (m *Manager) OnStateChange(h func(State)) {
	m.dispatcher.mu.Lock()
	m.dispatcher.onState = append(m.dispatcher.onState, h)
	m.dispatcher.mu.Unlock()
}

// OnReconnected registers a handler that fires after a dropped connection is
// re-established, so consumers can run a catch-up fetch.
func (m *Manager) OnReconnected(h func()) {
	m.dispatcher.mu.Lock()
	m.dispatcher.onReconnected = append(m.dispatcher.onReconnected, h)
	m.dispatcher.mu.Unlock()
}

// Connect establishes the push-channel connection. Calling it while a
// connection is live or being established is a no-op. A missing credential
// is a fatal precondition reported synchronously.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	switch m.state {
	case StateConnected, StateConnecting, StateReconnecting:
		m.mu.Unlock()
		return nil
	}
	if m.cfg.Token == "" {
		m.mu.Unlock()
		return ErrNoCredential
	}
	m.intentional = false
	m.setStateLocked(StateConnecting)
	m.mu.Unlock()

	conn, err := m.dial(ctx)
	if err != nil {
		m.setState(StateDisconnected)
		return fmt.Errorf("connect push channel: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.mu.Lock()
	m.conn = conn
	m.cancel = cancel
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	go m.readLoop(runCtx, conn)
	return nil
}

// Disconnect releases the transport and clears all subscriptions. Safe to
// call at any time, including before the first Connect.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.intentional = true
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	conn := m.conn
	m.conn = nil
	m.setStateLocked(StateDisconnected)
	m.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		_ = conn.Close()
	}
	m.dispatcher.reset()
}

// SendTyping publishes a typing indicator. Best effort: dropped silently
// when not connected, matching the transport's fire-and-forget semantics.
func (m *Manager) SendTyping(chatID string, isTyping bool) {
	m.mu.Lock()
	conn := m.conn
	connected := m.state == StateConnected
	m.mu.Unlock()
	if !connected || conn == nil {
		return
	}
	payload, _ := json.Marshal(models.TypingPayload{ChatID: chatID, IsTyping: isTyping})
	frame, _ := json.Marshal(models.PushEnvelope{Type: models.EventTyping, Payload: payload})
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		log.Printf("push channel: typing write failed: %v", err)
	}
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	header := map[string][]string{"Authorization": {"Bearer " + m.cfg.Token}}
	conn, resp, err := m.dialer.DialContext(ctx, m.cfg.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

func (m *Manager) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			_ = conn.Close()
			m.mu.Lock()
			intentional := m.intentional
			m.mu.Unlock()
			if intentional || ctx.Err() != nil {
				return
			}
			log.Printf("push channel: connection lost: %v", err)
			next, ok := m.reconnect(ctx)
			if !ok {
				return
			}
			conn = next
			m.dispatcher.emitReconnected()
			continue
		}
		m.dispatcher.dispatch(data)
	}
}

// reconnect retries the dial with exponential backoff up to the configured
// attempt budget. Exhaustion parks the manager in StateFailed until an
// explicit Connect.
func (m *Manager) reconnect(ctx context.Context) (*websocket.Conn, bool) {
	m.setState(StateReconnecting)

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = m.cfg.BackoffBase
	bo.MaxInterval = m.cfg.BackoffMax
	bo.MaxElapsedTime = 0

	for attempt := 1; attempt <= m.cfg.MaxAttempts; attempt++ {
		select {
		case <-time.After(bo.NextBackOff()):
		case <-ctx.Done():
			m.setState(StateDisconnected)
			return nil, false
		}

		conn, err := m.dial(ctx)
		if err != nil {
			log.Printf("push channel: reconnect attempt %d/%d failed: %v", attempt, m.cfg.MaxAttempts, err)
			continue
		}

		m.mu.Lock()
		if m.intentional {
			m.mu.Unlock()
			_ = conn.Close()
			return nil, false
		}
		m.conn = conn
		m.setStateLocked(StateConnected)
		m.mu.Unlock()
		observability.IncReconnect()
		return conn, true
	}

	m.setState(StateFailed)
	return nil, false
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.setStateLocked(s)
	m.mu.Unlock()
}

// setStateLocked transitions the state and queues the notification. Callers
// hold mu; handlers run off the queue so they may call back into the manager.
func (m *Manager) setStateLocked(s State) {
	if m.state == s {
		return
	}
	m.state = s
	observability.SetConnectionState(string(s))
	select {
	case m.stateCh <- s:
	default:
	}
}
