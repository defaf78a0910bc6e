// Package client is the session-sync runtime shared by the capture station
// and companion clients: it routes inbound relay frames into the session
// store, enriches scans via the product store, and carries user actions back
// out over the socket.
package client

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"scanlink/internal/lookup"
	"scanlink/internal/protocol"
	"scanlink/internal/session"
	"scanlink/internal/transport"
)

// ImageRef tells the UI where the current product photo comes from: an
// inline base64 payload when one rode along on the socket, otherwise a
// cache-busted fetch URL.
type ImageRef struct {
	Inline string
	URL    string
}

// UI is the rendering surface a runtime drives. Implementations must be safe
// to call from the runtime's goroutines.
type UI interface {
	RenderArticle(a session.Article, img ImageRef)
	RenderLogin(l session.LoginState)
	RenderConnection(s transport.State)
	ShowStatus(msg string)
}

// sender is the slice of transport.Conn the runtime needs. Narrowed for tests.
type sender interface {
	Send(raw []byte) error
	State() transport.State
}

// Runtime wires one transport connection, one session store, one upload
// buffer and one product store client into a client process.
type Runtime struct {
	store    *session.Store
	conn     sender
	buf      *transport.UploadBuffer
	api      *lookup.Client
	resolver *lookup.Resolver
	ui       UI

	pollInterval time.Duration
}

// Config for New.
type Config struct {
	RelayURL     string
	API          *lookup.Client
	UI           UI
	PollInterval time.Duration
	// ReconnectDelay is passed through to the transport; zero keeps the
	// default.
	ReconnectDelay time.Duration
}

// New builds a runtime and dials the relay. The connection keeps retrying in
// the background for the life of the process.
func New(cfg Config) *Runtime {
	rt := &Runtime{
		buf:          &transport.UploadBuffer{},
		api:          cfg.API,
		resolver:     lookup.NewResolver(cfg.API),
		ui:           cfg.UI,
		pollInterval: cfg.PollInterval,
	}
	if rt.pollInterval <= 0 {
		rt.pollInterval = 5 * time.Second
	}
	rt.store = session.New(rt.notify)

	rt.conn = transport.Dial(cfg.RelayURL, transport.Options{
		OnOpen:         rt.onOpen,
		OnMessage:      rt.Dispatch,
		OnState:        rt.onState,
		ReconnectDelay: cfg.ReconnectDelay,
	})
	return rt
}

// Store exposes the runtime's session store.
func (rt *Runtime) Store() *session.Store {
	return rt.store
}

// Run blocks pumping the login-state poller until ctx is cancelled, then
// tears the connection down.
func (rt *Runtime) Run(ctx context.Context) {
	ticker := time.NewTicker(rt.pollInterval)
	defer ticker.Stop()

	rt.pollLogin(ctx)
	for {
		select {
		case <-ctx.Done():
			if c, ok := rt.conn.(*transport.Conn); ok {
				c.Close()
			}
			return
		case <-ticker.C:
			rt.pollLogin(ctx)
		}
	}
}

// onOpen runs once per transport open: replay the current article request,
// then flush a staged upload exactly once.
func (rt *Runtime) onOpen() {
	rt.send(protocol.RequestCurrentArticle{})

	if ean, frame, ok := rt.buf.Take(); ok {
		// Fire and forget: a send that races a close is not restaged.
		if err := rt.conn.Send(frame); err != nil {
			slog.Warn("Deferred image upload lost", "ean", ean, "err", err)
		} else {
			slog.Info("Deferred image upload sent", "ean", ean)
		}
	}
}

func (rt *Runtime) onState(s transport.State) {
	if rt.ui != nil {
		rt.ui.RenderConnection(s)
	}
}

// Dispatch routes one raw inbound frame. Malformed and unknown frames are
// dropped silently.
func (rt *Runtime) Dispatch(raw []byte) {
	msg, ok := protocol.Decode(raw)
	if !ok {
		return
	}

	switch m := msg.(type) {
	case protocol.CurrentArticle:
		rt.handleCurrentArticle(m)
	case protocol.ImageUpdated:
		rt.handleImageUpdated(m)
	case protocol.UserLogin:
		rt.store.SetLogin(m.UserID, m.UserName)
	case protocol.UserLogout:
		rt.store.ClearLogin()
	case protocol.Error:
		slog.Warn("Relay reported error", "message", m.Message)
		if rt.ui != nil {
			rt.ui.ShowStatus(m.Message)
		}
	default:
		// Client-originated tags echoed back are of no interest here.
	}
}

func (rt *Runtime) handleCurrentArticle(m protocol.CurrentArticle) {
	ean := strings.TrimSpace(m.EAN)
	if ean == "" {
		return
	}

	rt.store.SetCurrentArticle(ean, m.Name)
	rt.renderArticle(m.ImageBase64)

	// Enrich in the background; a response that arrives after the session
	// moved on is discarded by the store.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		article := rt.resolver.Resolve(ctx, ean, m.Name)
		if rt.store.ApplyLookup(article) {
			rt.renderArticle(m.ImageBase64)
		}
	}()
}

func (rt *Runtime) handleImageUpdated(m protocol.ImageUpdated) {
	if !rt.store.MarkImageUploaded(m.EAN) {
		return
	}
	rt.renderArticle(m.ImageBase64)
}

func (rt *Runtime) renderArticle(inline string) {
	if rt.ui == nil {
		return
	}
	article := rt.store.Article()
	ref := ImageRef{Inline: inline}
	if inline == "" {
		ref.URL = rt.api.ImageURL(article.EAN)
	}
	rt.ui.RenderArticle(article, ref)
}

func (rt *Runtime) notify(c session.Change) {
	if rt.ui == nil {
		return
	}
	if c == session.ChangedLogin {
		rt.ui.RenderLogin(rt.store.Login())
	}
}

func (rt *Runtime) pollLogin(ctx context.Context) {
	reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	user, err := rt.api.CurrentUser(reqCtx)
	if err != nil {
		slog.Debug("Login poll failed", "err", err)
		return
	}

	var expiresAt *time.Time
	if user.ExpiresAt != "" {
		if t, err := time.Parse(time.RFC3339, user.ExpiresAt); err == nil {
			expiresAt = &t
		}
	}
	rt.store.ReconcilePoll(user.UserID, user.UserName, user.TimeoutMinutes, expiresAt)
}

func (rt *Runtime) send(m protocol.Message) {
	frame, err := protocol.Encode(m)
	if err != nil {
		slog.Error("Failed to encode frame", "err", err)
		return
	}
	if err := rt.conn.Send(frame); err != nil {
		slog.Warn("Frame not sent", "err", err)
	}
}
