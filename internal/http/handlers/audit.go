package handlers

import (
	"net/http"
	"strconv"

	"arcade_webapp/internal/domain"

	"github.com/gin-gonic/gin"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// ListAuditLogs returns recent audit entries to an admin, optionally
// narrowed to one account or category
func (h *Handler) ListAuditLogs(c *gin.Context) {
	if h.Accounts == nil || h.Audit == nil {
		dbNotConfigured(c)
		return
	}
	ctx := c.Request.Context()

	if _, err := h.Accounts.AuthorizeAdmin(ctx, c.Query("adminUser")); err != nil {
		respondError(c, err)
		return
	}

	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = defaultAuditLimit
	}
	limit = min(limit, maxAuditLimit)

	logs, err := h.Audit.Query(ctx, domain.AuditFilter{
		Username: c.Query("username"),
		Category: c.Query("category"),
		Limit:    limit,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}
