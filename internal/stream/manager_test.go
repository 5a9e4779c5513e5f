package stream

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dterol/cpd-telemetry/internal/telemetry"
)

const testRetry = 30 * time.Millisecond

var upgrader = websocket.Upgrader{}

// pushServer is a test stand-in for the backend's /ws endpoint. Every
// accepted connection is announced on connCh with its request path.
type pushServer struct {
	srv    *httptest.Server
	connCh chan *serverConn
}

type serverConn struct {
	path string
	conn *websocket.Conn
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{connCh: make(chan *serverConn, 8)}
	ps.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ps.connCh <- &serverConn{path: r.URL.Path, conn: c}
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ps.srv.Close)
	return ps
}

func (ps *pushServer) accept(t *testing.T) *serverConn {
	t.Helper()
	select {
	case c := <-ps.connCh:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a connection")
		return nil
	}
}

func (ps *pushServer) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case c := <-ps.connCh:
		t.Fatalf("unexpected connection to %s", c.path)
	case <-time.After(d):
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestManager(t *testing.T, ps *pushServer) (*Manager, chan telemetry.Reading) {
	t.Helper()
	m := New(discard(), ps.srv.URL, testRetry)
	received := make(chan telemetry.Reading, 16)
	m.OnReading(func(r telemetry.Reading) { received <- r })
	t.Cleanup(m.Close)
	return m, received
}

func waitForReading(t *testing.T, ch chan telemetry.Reading) telemetry.Reading {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a reading")
		return telemetry.Reading{}
	}
}

func TestDeliversReadings(t *testing.T) {
	ps := newPushServer(t)
	m, received := newTestManager(t, ps)

	m.Connect("")
	sc := ps.accept(t)

	if sc.path != "/ws/null" {
		t.Errorf("empty filter should dial /ws/null, got %s", sc.path)
	}

	payload := `{"ubicacion":"sala1","fecha_hora":"2026-08-30T12:00:00","temperatura":21.5,"humedad":40.0}`
	if err := sc.conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("server write: %v", err)
	}

	r := waitForReading(t, received)
	if r.Location != "sala1" {
		t.Errorf("location: got %q", r.Location)
	}
	if r.Temperature == nil || *r.Temperature != 21.5 {
		t.Errorf("temperature: got %v", r.Temperature)
	}
	if m.State() != Open {
		t.Errorf("state: got %v, want Open", m.State())
	}
}

func TestMalformedPayloadDropped(t *testing.T) {
	ps := newPushServer(t)
	m, received := newTestManager(t, ps)

	m.Connect("sala1")
	sc := ps.accept(t)

	sc.conn.WriteMessage(websocket.TextMessage, []byte("not json"))
	sc.conn.WriteMessage(websocket.TextMessage, []byte(`{"ubicacion":"sala1","fecha_hora":"2026-08-30T12:00:00","temperatura":20.0}`))

	r := waitForReading(t, received)
	if r.Location != "sala1" {
		t.Errorf("the valid payload should still arrive, got %+v", r)
	}

	// A malformed frame must not tear the channel down.
	ps.expectNone(t, 3*testRetry)
}

func TestConnectSameFilterIsNoop(t *testing.T) {
	ps := newPushServer(t)
	m, _ := newTestManager(t, ps)

	m.Connect("sala1")
	ps.accept(t)

	m.Connect("sala1")
	ps.expectNone(t, 3*testRetry)
}

func TestConnectNewFilterSupersedes(t *testing.T) {
	ps := newPushServer(t)
	m, received := newTestManager(t, ps)

	m.Connect("sala1")
	first := ps.accept(t)
	if first.path != "/ws/sala1" {
		t.Errorf("path: got %s", first.path)
	}

	m.Connect("sala2")
	second := ps.accept(t)
	if second.path != "/ws/sala2" {
		t.Errorf("path: got %s", second.path)
	}

	second.conn.WriteMessage(websocket.TextMessage, []byte(`{"ubicacion":"sala2","fecha_hora":"2026-08-30T12:00:00","temperatura":19.0}`))
	r := waitForReading(t, received)
	if r.Location != "sala2" {
		t.Errorf("got reading %+v", r)
	}

	// Only one channel may be live; no extra dials.
	ps.expectNone(t, 3*testRetry)
}

func TestReconnectsOnceAfterLoss(t *testing.T) {
	ps := newPushServer(t)
	m, _ := newTestManager(t, ps)

	m.Connect("sala1")
	first := ps.accept(t)

	// Server-initiated close: the manager must retry exactly once, with
	// the current filter, after the delay.
	first.conn.Close()

	second := ps.accept(t)
	if second.path != "/ws/sala1" {
		t.Errorf("reconnect path: got %s", second.path)
	}
	ps.expectNone(t, 3*testRetry)

	if m.State() != Open {
		t.Errorf("state after reconnect: got %v, want Open", m.State())
	}
}

func TestCloseStopsReconnect(t *testing.T) {
	ps := newPushServer(t)
	m, _ := newTestManager(t, ps)

	m.Connect("sala1")
	ps.accept(t)

	m.Close()
	ps.expectNone(t, 3*testRetry)

	if m.State() != Disconnected {
		t.Errorf("state: got %v, want Disconnected", m.State())
	}
}

func TestChannelURL(t *testing.T) {
	tests := []struct {
		base   string
		filter string
		want   string
	}{
		{"http://host:8000", "", "ws://host:8000/ws/null"},
		{"http://host:8000", "sala1", "ws://host:8000/ws/sala1"},
		{"https://host", "sala 2", "wss://host/ws/sala%202"},
	}
	for _, tt := range tests {
		got, err := channelURL(tt.base, tt.filter)
		if err != nil {
			t.Fatalf("channelURL(%q, %q): %v", tt.base, tt.filter, err)
		}
		if got != tt.want {
			t.Errorf("channelURL(%q, %q) = %q, want %q", tt.base, tt.filter, got, tt.want)
		}
	}
}
