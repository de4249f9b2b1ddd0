package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/bobmcallan/vire-track/internal/common"
	"github.com/bobmcallan/vire-track/internal/realtime"
)

// WSHandler upgrades dashboard clients onto the live price hub.
type WSHandler struct {
	logger   *common.Logger
	hub      *realtime.Hub
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new websocket handler.
func NewWSHandler(logger *common.Logger, hub *realtime.Hub) *WSHandler {
	return &WSHandler{
		logger: logger,
		hub:    hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /ws/prices.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.hub.AddClient(conn)
	h.logger.Debug().Int("clients", h.hub.ClientCount()).Msg("websocket client connected")

	// Clients only receive; drain until the connection drops.
	go func() {
		defer h.hub.RemoveClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
