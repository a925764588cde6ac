package domain

import "time"

// AuditLog represents an audit log entry for tracking important actions
type AuditLog struct {
	ID        int64          `db:"id" json:"id"`
	Username  string         `db:"username" json:"username"`
	Action    string         `db:"action" json:"action"`
	Category  string         `db:"category" json:"category"`
	Details   map[string]any `db:"details" json:"details"`
	IP        string         `db:"ip" json:"ip,omitempty"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// Audit action categories
const (
	AuditCategoryAuth       = "auth"
	AuditCategoryEconomy    = "economy"
	AuditCategoryAdmin      = "admin"
	AuditCategoryWithdrawal = "withdrawal"
)

// Audit actions
const (
	// Auth actions
	AuditActionRegister = "register"
	AuditActionLogin    = "login"

	// Economy actions
	AuditActionBuyCredits  = "buy_credits"
	AuditActionTransferOut = "transfer_out"
	AuditActionPromoRedeem = "promo_redeem"

	// Withdrawal actions
	AuditActionWithdrawRequest = "withdraw_request"
	AuditActionWithdrawStatus  = "withdraw_status"
	AuditActionWithdrawDelete  = "withdraw_delete"

	// Admin actions
	AuditActionAdminGiveAll = "admin_give_all"
	AuditActionAdminUpdate  = "admin_update_account"
	AuditActionAdminDelete  = "admin_delete_account"
	AuditActionAdminListAll = "admin_list_accounts"
)

// AuditFilter narrows an audit listing. Empty fields match everything.
type AuditFilter struct {
	Username string
	Category string
	Limit    int
}
