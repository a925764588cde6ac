package handlers

import (
	"errors"
	"net/http"

	"arcade_webapp/internal/logger"
	"arcade_webapp/internal/service"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	err     error
	status  int
	message string
}

// Order matters: the first match wins.
var errorTable = []errorMapping{
	{service.ErrInvalidUsername, http.StatusBadRequest, "Username must be 3-20 characters"},
	{service.ErrPasswordTooLong, http.StatusBadRequest, "Password must be at most 72 bytes"},
	{service.ErrUsernameTaken, http.StatusConflict, "Username already exists"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid username or password"},
	{service.ErrNoStats, http.StatusBadRequest, "No stats provided"},
	{service.ErrInvalidAmount, http.StatusBadRequest, "Invalid amount"},
	{service.ErrInsufficientCash, http.StatusBadRequest, "Insufficient cash balance"},
	{service.ErrInsufficientFunds, http.StatusBadRequest, "Insufficient funds (including 1% fee)"},
	{service.ErrSelfTransfer, http.StatusBadRequest, "Cannot transfer to yourself"},
	{service.ErrAdminToken, http.StatusUnauthorized, "Admin token required"},
	{service.ErrAdminRequired, http.StatusForbidden, "Admin access required"},
	{service.ErrSelfDelete, http.StatusBadRequest, "Cannot delete your own account"},
	{service.ErrUnknownAction, http.StatusBadRequest, "Unknown action"},
	{service.ErrPromoNotFound, http.StatusNotFound, "Promo code not found"},
	{service.ErrPromoAlreadyUsed, http.StatusConflict, "Promo code already used"},
	{service.ErrPromoExhausted, http.StatusConflict, "Promo code usage limit reached"},
	{service.ErrRevisionConflict, http.StatusConflict, "Settings changed concurrently, please retry"},
	{service.ErrNotFound, http.StatusNotFound, "Account not found"},
}

// respondError maps a service error to its status. Unexpected errors are
// logged and answered with a generic message.
func respondError(c *gin.Context, err error) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			c.JSON(m.status, gin.H{"error": m.message})
			return
		}
	}
	if errors.Is(err, service.ErrInvalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logger.WithContext(c.Request.Context()).Error("request failed", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process request"})
}

func dbNotConfigured(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Database not configured"})
}
