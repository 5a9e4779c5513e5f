// Package stream owns the push-channel connection to the backend's
// /ws/{location} endpoint: one live channel at a time, scoped to the
// current location filter, with automatic fixed-delay reconnection.
package stream

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dterol/cpd-telemetry/internal/logging"
	"github.com/dterol/cpd-telemetry/internal/telemetry"
)

// State is the connection lifecycle state, owned by the Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
	Closing
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "live"
	case Closing:
		return "closing"
	default:
		return "offline"
	}
}

// Manager maintains at most one active push channel. A Connect call with
// an unchanged filter while the channel is Open or Connecting is a no-op;
// a different filter supersedes the current channel. Connection loss
// schedules exactly one reconnect after the retry delay, which dials with
// whatever filter is current at that moment.
type Manager struct {
	log        *slog.Logger
	baseURL    string
	retryDelay time.Duration

	mu        sync.Mutex
	onReading func(telemetry.Reading)
	state     State
	filter    string
	gen       int // bumps on every supersede; stale goroutines check it
	conn      *websocket.Conn
	retry     *time.Timer
}

func New(log *slog.Logger, baseURL string, retryDelay time.Duration) *Manager {
	if retryDelay <= 0 {
		retryDelay = 3 * time.Second
	}
	return &Manager{
		log:        log,
		baseURL:    baseURL,
		retryDelay: retryDelay,
		state:      Disconnected,
	}
}

// OnReading registers the sole live-data consumer. Must be called before
// Connect; the callback runs on the channel's read goroutine.
func (m *Manager) OnReading(fn func(telemetry.Reading)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onReading = fn
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connect establishes (or re-establishes) the channel for filter,
// superseding any current channel or pending retry.
func (m *Manager) Connect(filter string) {
	m.mu.Lock()
	if filter == m.filter && (m.state == Open || m.state == Connecting) {
		m.mu.Unlock()
		return
	}
	m.filter = filter
	m.supersedeLocked()
	m.state = Connecting
	gen := m.gen
	m.mu.Unlock()

	go m.dial(gen, filter)
}

// Close tears the channel down for good; no reconnect is scheduled.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.supersedeLocked()
	m.state = Disconnected
}

// supersedeLocked invalidates the current channel and any pending retry.
func (m *Manager) supersedeLocked() {
	m.gen++
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.conn != nil {
		m.state = Closing
		m.conn.Close()
		m.conn = nil
	}
}

func (m *Manager) dial(gen int, filter string) {
	u, err := channelURL(m.baseURL, filter)
	if err != nil {
		m.log.Error("bad stream url", logging.Err(err))
		m.connectionLost(gen)
		return
	}

	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		m.log.Warn("stream dial failed", slog.String("url", u), logging.Err(err))
		m.connectionLost(gen)
		return
	}

	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		conn.Close()
		return
	}
	m.conn = conn
	m.state = Open
	m.mu.Unlock()

	m.log.Info("stream open", slog.String("filter", filter))
	m.readLoop(gen, conn)
}

func (m *Manager) readLoop(gen int, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			m.log.Warn("stream closed", logging.Err(err))
			m.connectionLost(gen)
			return
		}

		var r telemetry.Reading
		if err := json.Unmarshal(data, &r); err != nil {
			// Malformed payloads are dropped, never fatal to the channel.
			m.log.Warn("dropping malformed stream payload", logging.Err(err))
			continue
		}

		m.mu.Lock()
		fn := m.onReading
		current := gen == m.gen
		m.mu.Unlock()
		if current && fn != nil {
			fn(r)
		}
	}
}

// connectionLost moves to Disconnected and schedules a single reconnect,
// unless this channel has already been superseded.
func (m *Manager) connectionLost(gen int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.conn = nil
	m.state = Disconnected
	m.retry = time.AfterFunc(m.retryDelay, func() { m.reconnect(gen) })
}

// reconnect dials again with the filter current at fire time, so a
// filter change during the delay is honored. The gen check covers the
// window where the timer fires concurrently with Close or a supersede.
func (m *Manager) reconnect(gen int) {
	m.mu.Lock()
	if gen != m.gen || m.state != Disconnected {
		m.mu.Unlock()
		return
	}
	filter := m.filter
	m.gen++
	m.state = Connecting
	gen = m.gen
	m.mu.Unlock()

	m.log.Info("stream reconnecting", slog.String("filter", filter))
	go m.dial(gen, filter)
}

// channelURL derives the ws/wss endpoint from the backend origin. An
// empty filter maps to the literal "null" path segment.
func channelURL(baseURL, filter string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	seg := filter
	if seg == "" {
		seg = "null"
	}
	// Raw segment into Path; String() escapes it exactly once.
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/" + seg
	return u.String(), nil
}
