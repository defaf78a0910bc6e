// Package relay implements the intermediary between the capture station and
// its companions: a websocket hub that rebroadcasts session events, plus the
// product store HTTP API. Product records live in memory (by design there is
// no storage engine behind the relay); photos live in a plain directory.
package relay

import (
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"scanlink/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Companions connect from other hosts on the local network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type hubClient struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex // serializes writes
}

func (c *hubClient) send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

// Hub tracks connected clients and the last announced article, and applies
// the per-tag relay behavior to every inbound frame.
type Hub struct {
	catalog *Catalog
	session *LoginSession

	mu          sync.Mutex
	clients     map[string]*hubClient
	lastArticle *protocol.CurrentArticle
}

// NewHub wires a hub to its catalog and login session.
func NewHub(catalog *Catalog, session *LoginSession) *Hub {
	return &Hub{
		catalog: catalog,
		session: session,
		clients: make(map[string]*hubClient),
	}
}

// ServeWS upgrades one HTTP request to a websocket client and pumps its
// frames until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Websocket upgrade failed", "err", err)
		return
	}

	client := &hubClient{id: uuid.NewString(), ws: ws}
	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	slog.Info("Client connected", "client", client.id, "remote", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		delete(h.clients, client.id)
		h.mu.Unlock()
		ws.Close()
		slog.Info("Client disconnected", "client", client.id)
	}()

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			return
		}
		h.handleFrame(client, raw)
	}
}

// Broadcast sends a frame to every connected client. Clients whose write
// fails are dropped; they will reconnect on their own.
func (h *Hub) Broadcast(m protocol.Message) {
	frame, err := protocol.Encode(m)
	if err != nil {
		slog.Error("Failed to encode broadcast", "err", err)
		return
	}

	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.send(frame); err != nil {
			slog.Warn("Dropping client after failed write", "client", c.id, "err", err)
			h.mu.Lock()
			delete(h.clients, c.id)
			h.mu.Unlock()
			c.ws.Close()
		}
	}
}

func (h *Hub) handleFrame(client *hubClient, raw []byte) {
	msg, ok := protocol.Decode(raw)
	if !ok {
		// Malformed or unknown frames are ignored.
		return
	}

	switch m := msg.(type) {
	case protocol.SetArticle:
		h.handleSetArticle(m)
	case protocol.RequestCurrentArticle:
		h.replyCurrentArticle(client)
	case protocol.UploadImage:
		h.handleUploadImage(client, m)
	case protocol.ImageUploaded:
		if ean := strings.TrimSpace(m.EAN); ean != "" {
			h.Broadcast(protocol.ImageUpdated{EAN: ean, Timestamp: time.Now().Unix()})
		}
	case protocol.SaveName:
		h.handleSaveName(client, m)
	default:
		// Relay-originated tags coming from a client are of no interest.
	}
}

func (h *Hub) handleSetArticle(m protocol.SetArticle) {
	article := protocol.CurrentArticle{
		EAN:  strings.TrimSpace(m.EAN),
		Name: strings.TrimSpace(m.Name),
	}
	h.mu.Lock()
	h.lastArticle = &article
	h.mu.Unlock()
	h.Broadcast(article)
}

func (h *Hub) replyCurrentArticle(client *hubClient) {
	h.mu.Lock()
	article := h.lastArticle
	h.mu.Unlock()
	if article == nil {
		return
	}
	frame, err := protocol.Encode(*article)
	if err != nil {
		return
	}
	if err := client.send(frame); err != nil {
		slog.Warn("Current-article replay failed", "client", client.id, "err", err)
	}
}

func (h *Hub) handleUploadImage(client *hubClient, m protocol.UploadImage) {
	ean := strings.TrimSpace(m.EAN)
	if ean == "" || m.ImageBase64 == "" {
		h.sendError(client, "ean and image_base64 are required")
		return
	}

	path, err := h.catalog.SaveImage(ean, m.ImageBase64)
	if err != nil {
		slog.Error("Failed to store uploaded image", "ean", ean, "err", err)
		h.sendError(client, "failed to store image")
		return
	}
	slog.Info("Image stored", "ean", ean, "path", path)

	h.Broadcast(protocol.ImageUpdated{
		EAN:       ean,
		ImagePath: path,
		Timestamp: time.Now().Unix(),
	})
}

func (h *Hub) handleSaveName(client *hubClient, m protocol.SaveName) {
	ean := strings.TrimSpace(m.EAN)
	name := strings.TrimSpace(m.Name)
	if ean == "" {
		h.sendError(client, "ean is required")
		return
	}

	snap := h.session.Snapshot()
	h.catalog.UpdateName(ean, name, snap.UserID)

	article := protocol.CurrentArticle{EAN: ean, Name: name}
	h.mu.Lock()
	h.lastArticle = &article
	h.mu.Unlock()
	h.Broadcast(article)
}

func (h *Hub) sendError(client *hubClient, message string) {
	frame, err := protocol.Encode(protocol.Error{Message: message})
	if err != nil {
		return
	}
	if err := client.send(frame); err != nil {
		slog.Warn("Error frame not delivered", "client", client.id, "err", err)
	}
}
