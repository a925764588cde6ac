package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"arcade_webapp/internal/domain"
	"arcade_webapp/internal/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

const (
	minUsernameLen   = 3
	maxUsernameLen   = 20
	maxPasswordBytes = 72
)

// AccountStore is the persistence the account service needs
type AccountStore interface {
	Create(ctx context.Context, a *domain.Account) error
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	GetByIP(ctx context.Context, ip string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.AccountSummary, error)
	ListFull(ctx context.Context) ([]*domain.Account, error)
	UpdateIP(ctx context.Context, username, ip string) error
	SaveStats(ctx context.Context, username string, u domain.StatsUpdate) (*domain.Balances, error)
	PurchaseCredits(ctx context.Context, username string, credits int64, cost decimal.Decimal) (*domain.Balances, error)
	Transfer(ctx context.Context, from, to string, debit, credit domain.Amounts) (*domain.Balances, error)
	GiveToAll(ctx context.Context, amounts domain.Amounts) (int64, error)
	UpdateBalances(ctx context.Context, username string, o domain.BalanceOverride) error
	Delete(ctx context.Context, username string) error
	RedeemPromo(ctx context.Context, username, code string, promo domain.PromoCode) (*domain.Balances, error)
}

// PromoCatalog resolves promo codes to their current definition
type PromoCatalog interface {
	LookupPromo(ctx context.Context, code string) (string, domain.PromoCode, error)
}

// Session is a logged-in account with its signed token
type Session struct {
	Account *domain.Account
	Token   string
}

// TransferResult describes a completed transfer
type TransferResult struct {
	Transferred domain.Amounts
	Charged     domain.Amounts
	Sender      domain.Balances
}

// PromoRedemption is a granted promo reward
type PromoRedemption struct {
	Code     string
	Promo    domain.PromoCode
	Balances domain.Balances
}

type AccountService struct {
	store             AccountStore
	promos            PromoCatalog
	tokens            *TokenIssuer
	audit             *AuditService
	requireAdminToken bool
}

type AccountServiceOption func(*AccountService)

// WithAudit records logins, economy and admin actions
func WithAudit(a *AuditService) AccountServiceOption {
	return func(s *AccountService) { s.audit = a }
}

// WithPromoCatalog enables promo code redemption
func WithPromoCatalog(p PromoCatalog) AccountServiceOption {
	return func(s *AccountService) { s.promos = p }
}

// WithAdminTokenRequired binds admin actions to the bearer token subject
func WithAdminTokenRequired(required bool) AccountServiceOption {
	return func(s *AccountService) { s.requireAdminToken = required }
}

func NewAccountService(store AccountStore, tokens *TokenIssuer, opts ...AccountServiceOption) *AccountService {
	s := &AccountService{store: store, tokens: tokens}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeUsername is the stored form of a username
func NormalizeUsername(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

// LookupByIP returns the most recently active account registered from ip
func (s *AccountService) LookupByIP(ctx context.Context, ip string) (*domain.Account, error) {
	return s.store.GetByIP(ctx, ip)
}

func (s *AccountService) LookupByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.store.GetByUsername(ctx, NormalizeUsername(username))
}

func (s *AccountService) List(ctx context.Context) ([]domain.AccountSummary, error) {
	return s.store.List(ctx)
}

// Register creates an account with the starting balances. An empty password
// creates a guest account.
func (s *AccountService) Register(ctx context.Context, username, password, ip string) (*Session, error) {
	name := strings.TrimSpace(username)
	if n := utf8.RuneCountInString(name); n < minUsernameLen || n > maxUsernameLen {
		return nil, ErrInvalidUsername
	}

	// bcrypt refuses anything longer
	if len(password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash := ""
	if password != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		hash = string(b)
	}

	acct := &domain.Account{
		Username:     NormalizeUsername(name),
		PasswordHash: hash,
		IPAddress:    ip,
		Stats:        domain.NewStats(),
	}
	if err := s.store.Create(ctx, acct); err != nil {
		return nil, err
	}

	s.audit.LogLogin(ctx, acct.Username, true)
	return s.session(acct)
}

// Login checks the password and records the caller's IP
func (s *AccountService) Login(ctx context.Context, username, password, ip string) (*Session, error) {
	name := NormalizeUsername(username)
	if name == "" {
		return nil, ErrInvalidCredentials
	}

	acct, err := s.store.GetByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !passwordMatches(acct.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if err := s.store.UpdateIP(ctx, acct.Username, ip); err != nil {
		return nil, fmt.Errorf("update ip: %w", err)
	}
	acct.IPAddress = ip

	s.audit.LogLogin(ctx, acct.Username, false)
	return s.session(acct)
}

// passwordMatches accepts anything for guest accounts. Rows imported with a
// plaintext password are compared in constant time.
func passwordMatches(stored, given string) bool {
	if stored == "" {
		return true
	}
	if strings.HasPrefix(stored, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func (s *AccountService) session(acct *domain.Account) (*Session, error) {
	sess := &Session{Account: acct}
	if s.tokens == nil {
		return sess, nil
	}
	token, err := s.tokens.Issue(acct.Username, acct.IsAdmin)
	if err != nil {
		return nil, err
	}
	sess.Token = token
	return sess, nil
}

// SaveStats stores the provided fields and returns the resulting balances
func (s *AccountService) SaveStats(ctx context.Context, username string, u *domain.StatsUpdate) (*domain.Balances, error) {
	if u == nil {
		return nil, ErrNoStats
	}
	if (u.Credits != nil && *u.Credits < 0) ||
		(u.Plays != nil && *u.Plays < 0) ||
		(u.CashBalance != nil && u.CashBalance.IsNegative()) {
		return nil, ErrInvalidAmount
	}
	return s.store.SaveStats(ctx, NormalizeUsername(username), *u)
}

func (s *AccountService) GetStats(ctx context.Context, username string) (*domain.Stats, error) {
	acct, err := s.store.GetByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		return nil, err
	}
	return &acct.Stats, nil
}

// BuyCredits converts cash into credits at the fixed credit price
func (s *AccountService) BuyCredits(ctx context.Context, username string, credits int64) (*domain.Balances, error) {
	if credits <= 0 {
		return nil, ErrInvalidAmount
	}
	name := NormalizeUsername(username)
	cost := PurchaseCost(credits)

	b, err := s.store.PurchaseCredits(ctx, name, credits, cost)
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			return nil, ErrInsufficientCash
		}
		return nil, err
	}

	s.audit.LogEconomy(ctx, name, domain.AuditActionBuyCredits, map[string]any{
		"credits": credits,
		"cost":    cost.String(),
	})
	return b, nil
}

// Transfer moves amounts from one account to another. The sender also pays the fee.
func (s *AccountService) Transfer(ctx context.Context, fromUser, toUser string, amounts domain.Amounts) (*TransferResult, error) {
	from, to := NormalizeUsername(fromUser), NormalizeUsername(toUser)
	if from == to {
		return nil, ErrSelfTransfer
	}
	if !validAmounts(amounts) || amounts.IsZero() {
		return nil, ErrInvalidAmount
	}

	charged := TransferCost(amounts)
	sender, err := s.store.Transfer(ctx, from, to, charged, amounts)
	if err != nil {
		return nil, err
	}

	s.audit.LogEconomy(ctx, from, domain.AuditActionTransferOut, map[string]any{
		"to":      to,
		"credits": amounts.Credits,
		"plays":   amounts.Plays,
		"cash":    amounts.Cash.String(),
	})
	return &TransferResult{Transferred: amounts, Charged: charged, Sender: *sender}, nil
}

// RedeemPromoCode grants a promo reward once per account
func (s *AccountService) RedeemPromoCode(ctx context.Context, username, code string) (*PromoRedemption, error) {
	if s.promos == nil {
		return nil, ErrPromoNotFound
	}
	key, promo, err := s.promos.LookupPromo(ctx, code)
	if err != nil {
		return nil, err
	}

	name := NormalizeUsername(username)
	b, err := s.store.RedeemPromo(ctx, name, key, promo)
	if err != nil {
		return nil, err
	}

	s.audit.LogEconomy(ctx, name, domain.AuditActionPromoRedeem, map[string]any{"code": key})
	return &PromoRedemption{Code: key, Promo: promo, Balances: *b}, nil
}

// AuthorizeAdmin re-reads the asserted admin's row and checks the flag.
// With token binding enabled the bearer token must belong to the same user.
func (s *AccountService) AuthorizeAdmin(ctx context.Context, adminUser string) (string, error) {
	name := NormalizeUsername(adminUser)
	if name == "" {
		return "", ErrAdminRequired
	}
	if s.requireAdminToken {
		claims, ok := ClaimsFromContext(ctx)
		if !ok || claims.Subject != name {
			return "", ErrAdminToken
		}
	}

	acct, err := s.store.GetByUsername(ctx, name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", ErrAdminRequired
		}
		return "", err
	}
	if !acct.IsAdmin {
		logger.WithContext(ctx).Warn("admin action refused", "username", name)
		return "", ErrAdminRequired
	}
	return name, nil
}

func (s *AccountService) GetAllAccounts(ctx context.Context, adminUser string) ([]*domain.Account, error) {
	admin, err := s.AuthorizeAdmin(ctx, adminUser)
	if err != nil {
		return nil, err
	}
	accounts, err := s.store.ListFull(ctx)
	if err != nil {
		return nil, err
	}
	s.audit.LogAdminAction(ctx, admin, domain.AuditActionAdminListAll, "", map[string]any{"count": len(accounts)})
	return accounts, nil
}

// GiveToAllAccounts credits every account and returns how many were touched
func (s *AccountService) GiveToAllAccounts(ctx context.Context, adminUser string, amounts domain.Amounts) (int64, error) {
	admin, err := s.AuthorizeAdmin(ctx, adminUser)
	if err != nil {
		return 0, err
	}
	if !validAmounts(amounts) {
		return 0, ErrInvalidAmount
	}

	n, err := s.store.GiveToAll(ctx, amounts)
	if err != nil {
		return 0, err
	}
	s.audit.LogAdminAction(ctx, admin, domain.AuditActionAdminGiveAll, "", map[string]any{
		"credits":  amounts.Credits,
		"plays":    amounts.Plays,
		"cash":     amounts.Cash.String(),
		"accounts": n,
	})
	return n, nil
}

func (s *AccountService) UpdateAccount(ctx context.Context, adminUser, username string, o domain.BalanceOverride) error {
	admin, err := s.AuthorizeAdmin(ctx, adminUser)
	if err != nil {
		return err
	}
	if (o.Credits != nil && *o.Credits < 0) ||
		(o.Plays != nil && *o.Plays < 0) ||
		(o.CashBalance != nil && o.CashBalance.IsNegative()) {
		return ErrInvalidAmount
	}

	target := NormalizeUsername(username)
	if err := s.store.UpdateBalances(ctx, target, o); err != nil {
		return err
	}
	s.audit.LogAdminAction(ctx, admin, domain.AuditActionAdminUpdate, target, nil)
	return nil
}

// DeleteAccount removes an account. Admins can never delete themselves.
func (s *AccountService) DeleteAccount(ctx context.Context, adminUser, username string) error {
	admin, err := s.AuthorizeAdmin(ctx, adminUser)
	if err != nil {
		return err
	}
	target := NormalizeUsername(username)
	if target == admin {
		return ErrSelfDelete
	}

	if err := s.store.Delete(ctx, target); err != nil {
		return err
	}
	s.audit.LogAdminAction(ctx, admin, domain.AuditActionAdminDelete, target, nil)
	return nil
}
