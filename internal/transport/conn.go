// Package transport owns the persistent duplex socket to the relay: dialing,
// the read loop, and reconnect scheduling. Transport errors are never fatal;
// the worst case is a client that keeps retrying in the background.
package transport

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// State of the single relay connection.
type State int

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// DefaultReconnectDelay is the fixed pause between a close and the next dial
// attempt. There is no backoff and no retry cap.
const DefaultReconnectDelay = 2 * time.Second

// ErrNotConnected is returned by Send while the socket is down.
var ErrNotConnected = errors.New("transport: not connected")

// Options configure a Conn. All callbacks are optional and are invoked from
// the connection's own goroutines.
type Options struct {
	// OnOpen runs once per successful dial, before any frame is read.
	OnOpen func()
	// OnMessage receives every inbound text frame.
	OnMessage func(raw []byte)
	// OnState observes connection state transitions.
	OnState func(State)
	// ReconnectDelay overrides DefaultReconnectDelay when positive.
	ReconnectDelay time.Duration
}

// Conn is the single persistent connection a client process holds to the
// relay. It reconnects forever on a fixed delay and guarantees that at most
// one reconnect timer is pending at any time.
type Conn struct {
	url   string
	opts  Options
	delay time.Duration

	mu             sync.Mutex
	ws             *websocket.Conn
	state          State
	timer          *time.Timer
	timerScheduled bool
	closed         bool
}

// Dial creates a Conn for the given websocket URL and starts connecting in
// the background. It never fails: an unreachable relay just schedules the
// next attempt.
func Dial(url string, opts Options) *Conn {
	delay := opts.ReconnectDelay
	if delay <= 0 {
		delay = DefaultReconnectDelay
	}
	c := &Conn{
		url:   url,
		opts:  opts,
		delay: delay,
		state: StateConnecting,
	}
	go c.connect()
	return c
}

// State returns the current connection state.
func (c *Conn) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Send writes one text frame. It reports ErrNotConnected while the socket is
// down; delivery of accepted frames is fire-and-forget (no acknowledgement
// is modeled at this layer).
func (c *Conn) Send(raw []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateOpen || c.ws == nil {
		return ErrNotConnected
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, raw); err != nil {
		return err
	}
	return nil
}

// Close tears the connection down for good: the socket is closed and any
// pending reconnect timer is cancelled.
func (c *Conn) Close() {
	c.mu.Lock()
	c.closed = true
	if c.timer != nil {
		c.timer.Stop()
		c.timerScheduled = false
	}
	ws := c.ws
	c.ws = nil
	c.setStateLocked(StateClosed)
	c.mu.Unlock()

	if ws != nil {
		ws.Close()
	}
}

func (c *Conn) connect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.setStateLocked(StateConnecting)
	c.mu.Unlock()

	ws, _, err := websocket.DefaultDialer.Dial(c.url, nil)
	if err != nil {
		slog.Warn("Relay dial failed", "url", c.url, "err", err)
		c.scheduleReconnect()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		ws.Close()
		return
	}
	c.ws = ws
	c.setStateLocked(StateOpen)
	c.mu.Unlock()

	slog.Info("Relay connected", "url", c.url)
	if c.opts.OnOpen != nil {
		c.opts.OnOpen()
	}

	c.readLoop(ws)
}

func (c *Conn) readLoop(ws *websocket.Conn) {
	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			// Clean close and read error are handled identically.
			slog.Warn("Relay connection lost", "err", err)
			break
		}
		if c.opts.OnMessage != nil {
			c.opts.OnMessage(raw)
		}
	}

	ws.Close()
	c.mu.Lock()
	if c.ws == ws {
		c.ws = nil
	}
	c.setStateLocked(StateClosed)
	c.mu.Unlock()

	c.scheduleReconnect()
}

// scheduleReconnect arms the single reconnect timer. Further close events
// while the timer is pending are no-ops, so two timers can never race.
func (c *Conn) scheduleReconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.timerScheduled {
		return
	}
	c.timerScheduled = true
	c.timer = time.AfterFunc(c.delay, func() {
		c.mu.Lock()
		c.timerScheduled = false
		c.mu.Unlock()
		c.connect()
	})
}

// reconnectPending reports whether a reconnect timer is armed. Test hook.
func (c *Conn) reconnectPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timerScheduled
}

func (c *Conn) setStateLocked(s State) {
	if c.state == s {
		return
	}
	c.state = s
	if c.opts.OnState != nil {
		go c.opts.OnState(s)
	}
}
