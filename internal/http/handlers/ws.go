package handlers

import (
	"net/http"

	"arcade_webapp/internal/logger"
	"arcade_webapp/internal/service"
	"arcade_webapp/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WS subscribes the caller to the live broadcast feed
func (h *Handler) WS(c *gin.Context) {
	if h.Hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "broadcast feed unavailable"})
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if h.AllowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == h.AllowedOrigin
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.WithContext(c.Request.Context()).Warn("ws upgrade error", "error", err)
		return
	}

	id := uuid.NewString()
	if claims, ok := service.ClaimsFromContext(c.Request.Context()); ok {
		id = claims.Subject + "/" + id
	}

	go ws.NewClient(id, conn, h.Hub).Run()
}
