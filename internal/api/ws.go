package api

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"dravyalabs/internal/form"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

// StreamHandler pushes every outcome transition to WebSocket clients
type StreamHandler struct {
	controller *form.Controller
	logger     *zap.Logger
	upgrader   websocket.Upgrader
}

// NewStreamHandler creates new stream handler
func NewStreamHandler(controller *form.Controller, logger *zap.Logger) *StreamHandler {
	h := &StreamHandler{
		controller: controller,
		logger:     logger,
	}

	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     sameOrigin,
	}

	return h
}

// sameOrigin rejects cross-site upgrades. Requests without an Origin header
// come from non-browser clients and are allowed.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// Connect handles GET /api/ws
func (h *StreamHandler) Connect(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()

	updates, unsubscribe := h.controller.Subscribe()
	defer unsubscribe()

	// Reader only watches for close and pongs.
	closed := make(chan struct{})
	ws.SetReadDeadline(time.Now().Add(wsPongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					h.logger.Debug("websocket read error", zap.Error(err))
				}
				return
			}
		}
	}()

	send := func(out form.Outcome) bool {
		ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := ws.WriteJSON(out); err != nil {
			h.logger.Debug("websocket write error", zap.Error(err))
			return false
		}
		return true
	}

	if !send(h.controller.State()) {
		return
	}

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case out, ok := <-updates:
			if !ok {
				return
			}
			if !send(out) {
				return
			}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
