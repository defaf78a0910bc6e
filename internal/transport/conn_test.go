package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wsEcho is a minimal relay stand-in: it accepts connections and records
// inbound frames.
type wsEcho struct {
	upgrader websocket.Upgrader

	mu       sync.Mutex
	conns    []*websocket.Conn
	received [][]byte
	opens    int
}

func (e *wsEcho) handler(w http.ResponseWriter, r *http.Request) {
	ws, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	e.mu.Lock()
	e.conns = append(e.conns, ws)
	e.opens++
	e.mu.Unlock()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		e.mu.Lock()
		e.received = append(e.received, raw)
		e.mu.Unlock()
	}
}

func (e *wsEcho) openCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens
}

func (e *wsEcho) dropAll() {
	e.mu.Lock()
	conns := e.conns
	e.conns = nil
	e.mu.Unlock()
	for _, c := range conns {
		c.Close()
	}
}

func startEcho(t *testing.T) (*wsEcho, string) {
	t.Helper()
	echo := &wsEcho{}
	srv := httptest.NewServer(http.HandlerFunc(echo.handler))
	t.Cleanup(srv.Close)
	return echo, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestConnOpensAndSends(t *testing.T) {
	echo, url := startEcho(t)

	opened := make(chan struct{}, 1)
	conn := Dial(url, Options{
		OnOpen:         func() { opened <- struct{}{} },
		ReconnectDelay: 20 * time.Millisecond,
	})
	defer conn.Close()

	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("connection never opened")
	}
	require.Equal(t, StateOpen, conn.State())

	require.NoError(t, conn.Send([]byte(`{"type":"request_current_article"}`)))
	waitFor(t, 2*time.Second, func() bool {
		echo.mu.Lock()
		defer echo.mu.Unlock()
		return len(echo.received) == 1
	})
}

func TestConnDeliversInboundFrames(t *testing.T) {
	echo, url := startEcho(t)

	var mu sync.Mutex
	var got [][]byte
	opened := make(chan struct{}, 4)
	conn := Dial(url, Options{
		OnOpen: func() { opened <- struct{}{} },
		OnMessage: func(raw []byte) {
			mu.Lock()
			got = append(got, raw)
			mu.Unlock()
		},
		ReconnectDelay: 20 * time.Millisecond,
	})
	defer conn.Close()

	<-opened
	echo.mu.Lock()
	server := echo.conns[0]
	echo.mu.Unlock()
	require.NoError(t, server.WriteMessage(websocket.TextMessage, []byte(`{"type":"user_logout"}`)))

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})
}

func TestConnReconnectsAfterClose(t *testing.T) {
	echo, url := startEcho(t)

	opened := make(chan struct{}, 4)
	conn := Dial(url, Options{
		OnOpen:         func() { opened <- struct{}{} },
		ReconnectDelay: 20 * time.Millisecond,
	})
	defer conn.Close()

	<-opened
	echo.dropAll()

	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatal("connection never reopened")
	}
	assert.GreaterOrEqual(t, echo.openCount(), 2)
}

func TestSendWhileClosedReturnsErrNotConnected(t *testing.T) {
	// Nothing listens here; the conn stays in connecting/closed forever.
	conn := Dial("ws://127.0.0.1:1/ws", Options{ReconnectDelay: time.Hour})
	defer conn.Close()

	waitFor(t, 2*time.Second, func() bool { return conn.State() != StateOpen })
	assert.ErrorIs(t, conn.Send([]byte("x")), ErrNotConnected)
}

func TestSingleReconnectTimer(t *testing.T) {
	conn := Dial("ws://127.0.0.1:1/ws", Options{ReconnectDelay: time.Hour})
	defer conn.Close()

	// The failed dial arms the timer; further close events must not arm a
	// second one.
	waitFor(t, 2*time.Second, conn.reconnectPending)

	conn.scheduleReconnect()
	conn.scheduleReconnect()

	conn.mu.Lock()
	timer := conn.timer
	scheduled := conn.timerScheduled
	conn.mu.Unlock()

	assert.True(t, scheduled, "timer must stay armed")
	assert.NotNil(t, timer)

	// Stopping the one timer must leave nothing pending: had a second timer
	// been created, it would still fire.
	require.True(t, timer.Stop(), "expected exactly one live timer")
}

func TestCloseCancelsReconnect(t *testing.T) {
	conn := Dial("ws://127.0.0.1:1/ws", Options{ReconnectDelay: time.Hour})
	waitFor(t, 2*time.Second, conn.reconnectPending)

	conn.Close()
	assert.False(t, conn.reconnectPending())
	assert.Equal(t, StateClosed, conn.State())
}
