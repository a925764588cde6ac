package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"arcade_webapp/internal/domain"

	"github.com/shopspring/decimal"
)

// memAccounts is an in-memory AccountStore with the same error contract as
// the postgres repository.
type memAccounts struct {
	mu       sync.Mutex
	accounts map[string]*domain.Account
	redeemed map[string]map[string]bool // code -> usernames
	ipCalls  int
}

func newMemAccounts() *memAccounts {
	return &memAccounts{accounts: map[string]*domain.Account{}, redeemed: map[string]map[string]bool{}}
}

func (m *memAccounts) put(a *domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Stats.FillDefaults()
	m.accounts[a.Username] = a
}

func (m *memAccounts) balances(name string) domain.Balances {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[name].Stats.Balances()
}

func (m *memAccounts) Create(_ context.Context, a *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.Username]; ok {
		return ErrUsernameTaken
	}
	a.CreatedAt = time.Now()
	cp := *a
	m.accounts[a.Username] = &cp
	return nil
}

func (m *memAccounts) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAccounts) GetByIP(_ context.Context, ip string) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		if a.IPAddress == ip {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memAccounts) List(_ context.Context) ([]domain.AccountSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AccountSummary, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, domain.AccountSummary{Username: a.Username, IsAdmin: a.IsAdmin, Stats: a.Stats.Balances()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *memAccounts) ListFull(_ context.Context) ([]*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memAccounts) UpdateIP(_ context.Context, username, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ipCalls++
	if a, ok := m.accounts[username]; ok {
		a.IPAddress = ip
	}
	return nil
}

func (m *memAccounts) SaveStats(_ context.Context, username string, u domain.StatsUpdate) (*domain.Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return nil, ErrNotFound
	}
	if u.Credits != nil {
		a.Stats.Credits = *u.Credits
	}
	if u.Plays != nil {
		a.Stats.Plays = *u.Plays
	}
	if u.CashBalance != nil {
		a.Stats.CashBalance = *u.CashBalance
	}
	if u.CompletedTasks != nil {
		a.Stats.CompletedTasks = *u.CompletedTasks
	}
	if u.UsedPromoCodes != nil {
		a.Stats.UsedPromoCodes = *u.UsedPromoCodes
	}
	b := a.Stats.Balances()
	return &b, nil
}

func (m *memAccounts) PurchaseCredits(_ context.Context, username string, credits int64, cost decimal.Decimal) (*domain.Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return nil, ErrNotFound
	}
	if a.Stats.CashBalance.LessThan(cost) {
		return nil, ErrInsufficientFunds
	}
	a.Stats.CashBalance = a.Stats.CashBalance.Sub(cost)
	a.Stats.Credits += credits
	b := a.Stats.Balances()
	return &b, nil
}

func (m *memAccounts) Transfer(_ context.Context, from, to string, debit, credit domain.Amounts) (*domain.Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.accounts[from]
	if !ok {
		return nil, ErrNotFound
	}
	dst, ok := m.accounts[to]
	if !ok {
		return nil, ErrNotFound
	}
	if src.Stats.Credits < debit.Credits || src.Stats.Plays < debit.Plays || src.Stats.CashBalance.LessThan(debit.Cash) {
		return nil, ErrInsufficientFunds
	}
	src.Stats.Credits -= debit.Credits
	src.Stats.Plays -= debit.Plays
	src.Stats.CashBalance = src.Stats.CashBalance.Sub(debit.Cash)
	dst.Stats.Credits += credit.Credits
	dst.Stats.Plays += credit.Plays
	dst.Stats.CashBalance = dst.Stats.CashBalance.Add(credit.Cash)
	b := src.Stats.Balances()
	return &b, nil
}

func (m *memAccounts) GiveToAll(_ context.Context, amounts domain.Amounts) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.accounts {
		a.Stats.Credits += amounts.Credits
		a.Stats.Plays += amounts.Plays
		a.Stats.CashBalance = a.Stats.CashBalance.Add(amounts.Cash)
	}
	return int64(len(m.accounts)), nil
}

func (m *memAccounts) UpdateBalances(_ context.Context, username string, o domain.BalanceOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return ErrNotFound
	}
	if o.Credits != nil {
		a.Stats.Credits = *o.Credits
	}
	if o.Plays != nil {
		a.Stats.Plays = *o.Plays
	}
	if o.CashBalance != nil {
		a.Stats.CashBalance = *o.CashBalance
	}
	return nil
}

func (m *memAccounts) Delete(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[username]; !ok {
		return ErrNotFound
	}
	delete(m.accounts, username)
	return nil
}

func (m *memAccounts) RedeemPromo(_ context.Context, username, code string, promo domain.PromoCode) (*domain.Balances, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return nil, ErrNotFound
	}
	if m.redeemed[code][username] {
		return nil, ErrPromoAlreadyUsed
	}
	if promo.MaxUses > 0 && int64(len(m.redeemed[code])) >= promo.MaxUses {
		return nil, ErrPromoExhausted
	}
	if m.redeemed[code] == nil {
		m.redeemed[code] = map[string]bool{}
	}
	m.redeemed[code][username] = true
	if a.Stats.UsedPromoCodes == nil {
		a.Stats.UsedPromoCodes = map[string]any{}
	}
	a.Stats.UsedPromoCodes[code] = true
	a.Stats.Credits += promo.Credits
	a.Stats.Plays += promo.Plays
	a.Stats.CashBalance = a.Stats.CashBalance.Add(promo.Cash)
	b := a.Stats.Balances()
	return &b, nil
}

// memSettings is a SettingsStore with a revision counter. conflicts makes
// the next N saves fail as if another writer got there first.
type memSettings struct {
	mu        sync.Mutex
	doc       *domain.GlobalSettings
	rev       int64
	conflicts int
	saves     int
}

func (m *memSettings) Get(_ context.Context) (*domain.GlobalSettings, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		return nil, 0, ErrNotFound
	}
	cp := cloneSettings(*m.doc)
	return &cp, m.rev, nil
}

func (m *memSettings) Save(_ context.Context, s *domain.GlobalSettings, expected int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.conflicts > 0 {
		m.conflicts--
		return 0, ErrRevisionConflict
	}
	if expected != m.rev {
		return 0, ErrRevisionConflict
	}
	cp := cloneSettings(*s)
	m.doc = &cp
	m.rev++
	return m.rev, nil
}

func cloneSettings(s domain.GlobalSettings) domain.GlobalSettings {
	out := s
	out.CustomPromoCodes = make(map[string]domain.PromoCode, len(s.CustomPromoCodes))
	for k, v := range s.CustomPromoCodes {
		out.CustomPromoCodes[k] = v
	}
	out.CustomLevels = make(map[string]domain.CustomLevel, len(s.CustomLevels))
	for k, v := range s.CustomLevels {
		v.Obstacles = domain.CloneObstacles(v.Obstacles)
		out.CustomLevels[k] = v
	}
	out.AdminBroadcasts = append([]domain.Broadcast(nil), s.AdminBroadcasts...)
	out.CustomTasks = append([]domain.CustomTask(nil), s.CustomTasks...)
	out.CustomWithdrawMethods = append([]domain.WithdrawMethod(nil), s.CustomWithdrawMethods...)
	out.ErrorReports = append([]domain.ErrorReport(nil), s.ErrorReports...)
	return out
}

type memWithdrawals struct {
	mu    sync.Mutex
	items []domain.Withdrawal
	fail  error
}

func (m *memWithdrawals) Create(_ context.Context, w *domain.Withdrawal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	w.ID = int64(len(m.items) + 1)
	m.items = append(m.items, *w)
	return nil
}

func (m *memWithdrawals) UpdateStatus(_ context.Context, id int64, status domain.WithdrawalStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for i := range m.items {
		if m.items[i].ID == id {
			m.items[i].Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (m *memWithdrawals) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	before := len(m.items)
	m.items = without(m.items, func(w domain.Withdrawal) bool { return w.ID == id })
	if len(m.items) == before {
		return ErrNotFound
	}
	return nil
}

func (m *memWithdrawals) List(_ context.Context, status domain.WithdrawalStatus, limit int) ([]domain.Withdrawal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Withdrawal
	for _, w := range m.items {
		if status == "" || w.Status == status {
			out = append(out, w)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memAudit struct {
	mu   sync.Mutex
	logs []*domain.AuditLog
}

func (m *memAudit) Create(_ context.Context, l *domain.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = int64(len(m.logs) + 1)
	m.logs = append(m.logs, l)
	return nil
}

func (m *memAudit) List(_ context.Context, f domain.AuditFilter) ([]*domain.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.AuditLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		l := m.logs[i]
		if (f.Username == "" || l.Username == f.Username) && (f.Category == "" || l.Category == f.Category) {
			out = append(out, l)
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.logs))
	for i, l := range m.logs {
		out[i] = l.Action
	}
	return out
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []domain.Broadcast
}

func (p *recordingPublisher) PublishBroadcast(b domain.Broadcast) {
	p.mu.Lock()
	p.sent = append(p.sent, b)
	p.mu.Unlock()
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

type stubPromos map[string]domain.PromoCode

func (s stubPromos) LookupPromo(_ context.Context, code string) (string, domain.PromoCode, error) {
	p, ok := s[code]
	if !ok {
		return "", domain.PromoCode{}, ErrPromoNotFound
	}
	return code, p, nil
}
