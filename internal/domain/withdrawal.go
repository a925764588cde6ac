package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Withdrawal is a cash-out request logged for manual processing by an admin
type Withdrawal struct {
	ID        int64            `db:"id" json:"id"`
	Username  string           `db:"username" json:"username"`
	Amount    decimal.Decimal  `db:"amount" json:"amount"`
	Method    string           `db:"method" json:"method"`
	Account   string           `db:"account" json:"account"`
	Status    WithdrawalStatus `db:"status" json:"status"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
}

// WithdrawalStatus represents withdrawal processing status
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusApproved  WithdrawalStatus = "approved"
	WithdrawalStatusCompleted WithdrawalStatus = "completed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
)

// AnonymousUser is recorded when a request names no user
const AnonymousUser = "anonymous"
