package handlers

import (
	"encoding/json"
	"net/http"

	"arcade_webapp/internal/http/middleware"
	"arcade_webapp/internal/service"
	"arcade_webapp/internal/ws"

	"github.com/gin-gonic/gin"
)

// Handler serves the account, settings and level endpoints. Accounts and
// Settings are nil when no database is configured.
type Handler struct {
	Accounts      *service.AccountService
	Settings      *service.SettingsService
	Levels        service.LevelStore
	Audit         *service.AuditService
	Hub           *ws.Hub
	AllowedOrigin string
}

// actionRequest is the body of every dispatching POST endpoint
type actionRequest struct {
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

type actionFunc func(c *gin.Context, data json.RawMessage)

// dispatch runs the handler registered for the request's action and counts it
func dispatch(c *gin.Context, endpoint string, actions map[string]actionFunc) {
	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		middleware.ObserveAction(endpoint, "invalid", http.StatusBadRequest)
		return
	}

	fn, ok := actions[req.Action]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown action"})
		middleware.ObserveAction(endpoint, "unknown", http.StatusBadRequest)
		return
	}

	fn(c, req.Data)
	middleware.ObserveAction(endpoint, req.Action, c.Writer.Status())
}

// bindData decodes an action payload; a missing payload leaves v zeroed
func bindData(c *gin.Context, data json.RawMessage, v any) bool {
	if len(data) == 0 || string(data) == "null" {
		return true
	}
	if err := json.Unmarshal(data, v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return false
	}
	return true
}
