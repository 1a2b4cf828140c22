// Package handler provides HTTP handlers for the dashboard API.
package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/tonycerq/tonycerq-comfyui/core/models"
	"github.com/tonycerq/tonycerq-comfyui/core/service"
)

// writeWait is the time allowed to write one message to a peer.
const writeWait = 10 * time.Second

// WSHandler serves the realtime event stream to dashboard clients.
type WSHandler struct {
	registry *service.Registry
	upgrader websocket.Upgrader
}

// NewWSHandler creates a websocket handler backed by the subscriber registry.
func NewWSHandler(registry *service.Registry) *WSHandler {
	return &WSHandler{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
	}
}

// Connect handles GET /ws. The client is registered for the lifetime of the
// connection and receives every broadcast event; the first message is a
// connection acknowledgment.
func (h *WSHandler) Connect(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("Failed to upgrade to WebSocket: %v", err)
		return
	}
	defer conn.Close()

	sub := h.registry.Register()
	defer h.registry.Unregister(sub)

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(models.NewMsgEvent("websocket connected")); err != nil {
		log.Printf("Failed to write welcome message: %v", err)
		return
	}

	// Drain the connection to detect client disconnect; unregistering closes
	// the subscriber's channel, which ends the write loop below.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.registry.Unregister(sub)
				return
			}
		}
	}()

	for event := range sub.Events() {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(event); err != nil {
			return
		}
	}
}
