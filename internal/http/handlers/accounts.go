package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"arcade_webapp/internal/domain"
	"arcade_webapp/internal/http/middleware"
	"arcade_webapp/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type credentialsData struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type amountsData struct {
	Credits int64           `json:"credits"`
	Plays   int64           `json:"plays"`
	Cash    decimal.Decimal `json:"cash"`
}

func (a amountsData) amounts() domain.Amounts {
	return domain.Amounts{Credits: a.Credits, Plays: a.Plays, Cash: a.Cash}
}

// GetAccounts serves IP auto-login (?ip=true), an existence lookup
// (?username=) or the reduced listing of every account.
func (h *Handler) GetAccounts(c *gin.Context) {
	if h.Accounts == nil {
		c.JSON(http.StatusOK, gin.H{"accounts": []any{}, "error": "Database not configured"})
		return
	}
	ctx := c.Request.Context()

	if c.Query("ip") == "true" {
		ip := middleware.ClientIP(c)
		acct, err := h.Accounts.LookupByIP(ctx, ip)
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"autoLogin": false, "ip": ip})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"autoLogin": true, "account": acct, "ip": ip})
		return
	}

	if username := c.Query("username"); username != "" {
		acct, err := h.Accounts.LookupByUsername(ctx, username)
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"exists": false})
			return
		}
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"exists": true, "account": acct})
		return
	}

	accounts, err := h.Accounts.List(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

// PostAccounts dispatches on the body's action
func (h *Handler) PostAccounts(c *gin.Context) {
	if h.Accounts == nil {
		dbNotConfigured(c)
		return
	}
	dispatch(c, "accounts", map[string]actionFunc{
		"register":          h.register,
		"login":             h.login,
		"saveStats":         h.saveStats,
		"getStats":          h.getStats,
		"buyCredits":        h.buyCredits,
		"transfer":          h.transfer,
		"getAllAccounts":    h.getAllAccounts,
		"giveToAllAccounts": h.giveToAllAccounts,
		"updateAccount":     h.updateAccount,
		"deleteAccount":     h.deleteAccount,
		"redeemPromoCode":   h.redeemPromoCode,
	})
}

func (h *Handler) register(c *gin.Context, data json.RawMessage) {
	var in credentialsData
	if !bindData(c, data, &in) {
		return
	}
	ip := middleware.ClientIP(c)
	sess, err := h.Accounts.Register(c.Request.Context(), in.Username, in.Password, ip)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSession(c, sess, ip)
}

func (h *Handler) login(c *gin.Context, data json.RawMessage) {
	var in credentialsData
	if !bindData(c, data, &in) {
		return
	}
	ip := middleware.ClientIP(c)
	sess, err := h.Accounts.Login(c.Request.Context(), in.Username, in.Password, ip)
	if err != nil {
		respondError(c, err)
		return
	}
	respondSession(c, sess, ip)
}

func respondSession(c *gin.Context, sess *service.Session, ip string) {
	resp := gin.H{"success": true, "account": sess.Account, "ip": ip}
	if sess.Token != "" {
		resp["token"] = sess.Token
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) saveStats(c *gin.Context, data json.RawMessage) {
	var in struct {
		Username string             `json:"username"`
		Stats    *domain.StatsUpdate `json:"stats"`
	}
	if !bindData(c, data, &in) {
		return
	}
	b, err := h.Accounts.SaveStats(c.Request.Context(), in.Username, in.Stats)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": b})
}

func (h *Handler) getStats(c *gin.Context, data json.RawMessage) {
	var in struct {
		Username string `json:"username"`
	}
	if !bindData(c, data, &in) {
		return
	}
	stats, err := h.Accounts.GetStats(c.Request.Context(), in.Username)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

func (h *Handler) buyCredits(c *gin.Context, data json.RawMessage) {
	var in struct {
		Username string `json:"username"`
		Amount   int64  `json:"amount"`
	}
	if !bindData(c, data, &in) {
		return
	}
	b, err := h.Accounts.BuyCredits(c.Request.Context(), in.Username, in.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "credits": b.Credits, "cashBalance": b.CashBalance})
}

func (h *Handler) transfer(c *gin.Context, data json.RawMessage) {
	var in struct {
		FromUser string `json:"fromUser"`
		ToUser   string `json:"toUser"`
		amountsData
	}
	if !bindData(c, data, &in) {
		return
	}
	res, err := h.Accounts.Transfer(c.Request.Context(), in.FromUser, in.ToUser, in.amounts())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"fee":         service.TransferFee,
		"transferred": res.Transferred,
		"charged":     res.Charged,
		"stats":       res.Sender,
	})
}

func (h *Handler) getAllAccounts(c *gin.Context, data json.RawMessage) {
	var in struct {
		AdminUser string `json:"adminUser"`
	}
	if !bindData(c, data, &in) {
		return
	}
	accounts, err := h.Accounts.GetAllAccounts(c.Request.Context(), in.AdminUser)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func (h *Handler) giveToAllAccounts(c *gin.Context, data json.RawMessage) {
	var in struct {
		AdminUser string `json:"adminUser"`
		amountsData
	}
	if !bindData(c, data, &in) {
		return
	}
	n, err := h.Accounts.GiveToAllAccounts(c.Request.Context(), in.AdminUser, in.amounts())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "totalAccounts": n, "given": in.amounts()})
}

func (h *Handler) updateAccount(c *gin.Context, data json.RawMessage) {
	var in struct {
		AdminUser string                 `json:"adminUser"`
		Username  string                 `json:"username"`
		Updates   domain.BalanceOverride `json:"updates"`
	}
	if !bindData(c, data, &in) {
		return
	}
	if err := h.Accounts.UpdateAccount(c.Request.Context(), in.AdminUser, in.Username, in.Updates); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) deleteAccount(c *gin.Context, data json.RawMessage) {
	var in struct {
		AdminUser string `json:"adminUser"`
		Username  string `json:"username"`
	}
	if !bindData(c, data, &in) {
		return
	}
	if err := h.Accounts.DeleteAccount(c.Request.Context(), in.AdminUser, in.Username); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *Handler) redeemPromoCode(c *gin.Context, data json.RawMessage) {
	var in struct {
		Username string `json:"username"`
		Code     string `json:"code"`
	}
	if !bindData(c, data, &in) {
		return
	}
	r, err := h.Accounts.RedeemPromoCode(c.Request.Context(), in.Username, in.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"code":    r.Code,
		"reward":  r.Promo.Reward(),
		"event": gin.H{
			"type":    r.Promo.EventType,
			"emoji":   r.Promo.Emoji,
			"message": r.Promo.Message,
		},
		"stats": r.Balances,
	})
}
