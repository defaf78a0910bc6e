package relay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"scanlink/internal/config"
	"scanlink/internal/protocol"
)

// Server bundles the hub, the catalog and the login session behind one HTTP
// router.
type Server struct {
	hub         *Hub
	catalog     *Catalog
	session     *LoginSession
	placeholder []byte
}

// NewServer builds the relay from config.
func NewServer(cfg config.Config) (*Server, error) {
	catalog, err := NewCatalog(cfg.ImageDir, cfg.Shops)
	if err != nil {
		return nil, err
	}

	s := &Server{catalog: catalog}
	s.session = NewLoginSession(cfg.TimeoutMinutes, func(prevID *int64, prevName string) {
		slog.Info("Operator session expired", "user", prevName)
		s.hub.Broadcast(protocol.UserLogout{PrevUserID: prevID, PrevUserName: prevName})
	})
	s.hub = NewHub(catalog, s.session)
	s.placeholder = placeholderPNG()
	return s, nil
}

// Hub exposes the websocket hub (used by tests and the serve command).
func (s *Server) Hub() *Hub {
	return s.hub
}

// Router returns the full HTTP surface: the websocket endpoint plus the
// product store API.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.hub.ServeWS)
	r.HandleFunc("/api/lookup_ean", s.handleLookupEAN).Methods("GET")
	r.HandleFunc("/api/save_item", s.handleSaveItem).Methods("POST")
	r.HandleFunc("/api/shops", s.handleShops).Methods("GET")
	r.HandleFunc("/api/current_user", s.handleCurrentUser).Methods("GET")
	r.HandleFunc("/api/login", s.handleLogin).Methods("POST")
	r.HandleFunc("/api/logout", s.handleLogout).Methods("POST")
	r.HandleFunc("/image/{ean}", s.handleImage).Methods("GET")
	r.HandleFunc("/upload_image/{ean}", s.handleUploadImage).Methods("POST")
	r.HandleFunc("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			slog.Error("Unable to write healthcheck", "err", err)
		}
	})
	return r
}

func (s *Server) handleLookupEAN(w http.ResponseWriter, r *http.Request) {
	ean := strings.TrimSpace(r.URL.Query().Get("ean"))
	if ean == "" {
		writeJSON(w, map[string]any{
			"ean": "", "name": "", "image_path": "", "qty": 0.0,
			"shop_id": nil, "source": "none",
		})
		return
	}

	item, ok := s.catalog.Lookup(ean)
	if !ok {
		writeJSON(w, map[string]any{
			"ean": ean, "name": "", "image_path": "", "qty": 0.0,
			"shop_id": nil, "source": "none",
		})
		return
	}

	writeJSON(w, map[string]any{
		"ean":        item.EAN,
		"name":       item.Name,
		"image_path": item.ImagePath,
		"qty":        item.Qty,
		"shop_id":    item.ShopID,
		"source":     "local",
	})
}

func (s *Server) handleSaveItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EAN    string  `json:"ean"`
		Name   string  `json:"name"`
		Qty    float64 `json:"qty"`
		ShopID *int64  `json:"shop_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAck(w, http.StatusBadRequest, false, "invalid JSON body")
		return
	}

	req.EAN = strings.TrimSpace(req.EAN)
	if req.EAN == "" {
		writeAck(w, http.StatusBadRequest, false, "ean is required")
		return
	}

	snap := s.session.Snapshot()
	s.catalog.Save(Item{
		EAN:        req.EAN,
		Name:       strings.TrimSpace(req.Name),
		Qty:        req.Qty,
		ShopID:     req.ShopID,
		LastUserID: snap.UserID,
	})
	writeAck(w, http.StatusOK, true, "item saved")
}

func (s *Server) handleShops(w http.ResponseWriter, r *http.Request) {
	shops := s.catalog.Shops()
	if shops == nil {
		shops = []config.Shop{}
	}
	writeJSON(w, map[string]any{"shops": shops})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	snap := s.session.Snapshot()
	resp := map[string]any{
		"user_id":         snap.UserID,
		"user_name":       snap.UserName,
		"timeout_minutes": snap.TimeoutMinutes,
		"expires_at":      nil,
	}
	if snap.ExpiresAt != nil {
		resp["expires_at"] = snap.ExpiresAt.Format(time.RFC3339)
	}
	writeJSON(w, resp)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   int64  `json:"user_id"`
		UserName string `json:"user_name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAck(w, http.StatusBadRequest, false, "invalid JSON body")
		return
	}
	if req.UserName == "" {
		writeAck(w, http.StatusBadRequest, false, "user_name is required")
		return
	}

	s.session.Login(req.UserID, req.UserName)
	slog.Info("Operator logged in", "user_id", req.UserID, "user", req.UserName)
	s.hub.Broadcast(protocol.UserLogin{UserID: req.UserID, UserName: req.UserName})
	writeAck(w, http.StatusOK, true, "logged in as "+req.UserName)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	prevID, prevName := s.session.Logout()
	slog.Info("Operator logged out", "user", prevName)
	s.hub.Broadcast(protocol.UserLogout{PrevUserID: prevID, PrevUserName: prevName})
	writeAck(w, http.StatusOK, true, "logged out")
}

func (s *Server) handleImage(w http.ResponseWriter, r *http.Request) {
	ean := mux.Vars(r)["ean"]
	if path := s.catalog.ImagePath(ean); path != "" {
		w.Header().Set("Content-Type", "image/jpeg")
		http.ServeFile(w, r, path)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if _, err := w.Write(s.placeholder); err != nil {
		slog.Error("Unable to write placeholder image", "err", err)
	}
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	ean := strings.TrimSpace(mux.Vars(r)["ean"])
	if ean == "" {
		writeAck(w, http.StatusBadRequest, false, "ean is required")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeAck(w, http.StatusBadRequest, false, "no image submitted")
		return
	}
	defer file.Close()

	// Limit uploads to 10MB.
	raw, err := io.ReadAll(io.LimitReader(file, 10*1024*1024))
	if err != nil {
		writeAck(w, http.StatusInternalServerError, false, "failed to read image")
		return
	}

	path, err := s.catalog.SaveImageBytes(ean, raw)
	if err != nil {
		slog.Error("Failed to store uploaded image", "ean", ean, "err", err)
		writeAck(w, http.StatusInternalServerError, false, "failed to store image")
		return
	}
	slog.Info("Image stored via HTTP", "ean", ean, "path", path)

	s.hub.Broadcast(protocol.ImageUpdated{EAN: ean, ImagePath: path, Timestamp: time.Now().Unix()})
	writeAck(w, http.StatusOK, true, "image stored")
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func writeAck(w http.ResponseWriter, status int, ok bool, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]any{"ok": ok, "message": message}); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

// placeholderPNG renders the neutral image served when no photo is stored.
func placeholderPNG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	grey := color.RGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, grey)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		// A 200x200 RGBA in memory cannot fail to encode.
		panic(fmt.Sprintf("placeholder encode: %v", err))
	}
	return buf.Bytes()
}
