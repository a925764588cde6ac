package handlers

import (
	"net/http"
	"strconv"

	"arcade_webapp/internal/domain"
	"arcade_webapp/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// GetGlobal returns the settings document, or the defaults without a database
func (h *Handler) GetGlobal(c *gin.Context) {
	if h.Settings == nil {
		c.JSON(http.StatusOK, domain.DefaultSettings())
		return
	}
	c.JSON(http.StatusOK, h.Settings.Get(c.Request.Context()))
}

// PostGlobal applies one settings action and returns the resulting document
func (h *Handler) PostGlobal(c *gin.Context) {
	if h.Settings == nil {
		dbNotConfigured(c)
		return
	}

	var req actionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	settings, err := h.Settings.Apply(c.Request.Context(), req.Action, req.Data)
	if err != nil {
		respondError(c, err)
		observeGlobal(c, req.Action)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
	observeGlobal(c, req.Action)
}

// ListWithdrawals returns the withdrawal log to an admin
func (h *Handler) ListWithdrawals(c *gin.Context) {
	if h.Settings == nil || h.Accounts == nil {
		dbNotConfigured(c)
		return
	}
	ctx := c.Request.Context()

	if _, err := h.Accounts.AuthorizeAdmin(ctx, c.Query("adminUser")); err != nil {
		respondError(c, err)
		return
	}

	limit, _ := strconv.Atoi(c.Query("limit"))
	status := domain.WithdrawalStatus(c.Query("status"))
	switch status {
	case "", domain.WithdrawalStatusPending, domain.WithdrawalStatusApproved,
		domain.WithdrawalStatusCompleted, domain.WithdrawalStatusRejected:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	list, err := h.Settings.ListWithdrawals(ctx, status, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": list})
}

// settingsActions bounds the metric label set to known actions
var settingsActions = map[string]bool{
	"sendBroadcast": true, "createPromoCode": true, "deletePromoCode": true,
	"updatePromoCode": true, "setMinWithdraw": true, "setSponsorLink": true,
	"submitWithdrawal": true, "updateWithdrawalStatus": true, "deleteWithdrawal": true,
	"createTask": true, "deleteTask": true, "saveCustomLevel": true,
	"deleteCustomLevel": true, "reportError": true, "deleteErrorReport": true,
	"createWithdrawMethod": true, "deleteWithdrawMethod": true,
}

func observeGlobal(c *gin.Context, action string) {
	if !settingsActions[action] {
		action = "unknown"
	}
	middleware.ObserveAction("global", action, c.Writer.Status())
}
