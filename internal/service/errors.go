package service

import (
	"errors"

	"arcade_webapp/internal/repository"
)

var (
	ErrInvalidUsername    = errors.New("username must be 3-20 characters")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
	ErrNoStats            = errors.New("no stats provided")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInsufficientCash   = errors.New("insufficient cash balance")
	ErrSelfTransfer       = errors.New("cannot transfer to yourself")
	ErrAdminRequired      = errors.New("admin access required")
	ErrAdminToken         = errors.New("admin token missing or does not match")
	ErrSelfDelete         = errors.New("cannot delete your own account")
	ErrUnknownAction      = errors.New("unknown action")
	ErrInvalidInput       = errors.New("invalid input")
	ErrPromoNotFound      = errors.New("promo code not found")
	ErrInvalidToken       = errors.New("invalid token")
)

// Store errors surfaced unchanged to callers
var (
	ErrNotFound          = repository.ErrNotFound
	ErrUsernameTaken     = repository.ErrUsernameTaken
	ErrInsufficientFunds = repository.ErrInsufficientFunds
	ErrRevisionConflict  = repository.ErrRevisionConflict
	ErrPromoAlreadyUsed  = repository.ErrPromoAlreadyUsed
	ErrPromoExhausted    = repository.ErrPromoExhausted
)
