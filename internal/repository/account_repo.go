package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"arcade_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const accountColumns = `username, password, is_admin, ip_address, created_at, last_login_at,
	credits, plays, cash_balance::text, high_scores, completed_levels, owned_skins,
	selected_skins, last_daily_claim, sponsor_visited, completed_tasks, used_promo_codes`

type AccountRepository struct {
	db *pgxpool.Pool
}

func NewAccountRepository(db *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{db: db}
}

// Create inserts a new account. The primary key on username is the
// authoritative duplicate check.
func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) error {
	docs, err := marshalDocs(a.Stats)
	if err != nil {
		return err
	}

	err = r.db.QueryRow(ctx, `
		INSERT INTO accounts (
			username, password, is_admin, ip_address, credits, plays, cash_balance,
			high_scores, completed_levels, owned_skins, selected_skins,
			last_daily_claim, sponsor_visited, completed_tasks, used_promo_codes
		) VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at
	`, a.Username, a.PasswordHash, a.IsAdmin, a.IPAddress,
		a.Stats.Credits, a.Stats.Plays, a.Stats.CashBalance.String(),
		docs[0], docs[1], docs[2], docs[3],
		a.Stats.LastDailyClaim, a.Stats.SponsorVisited, docs[4], docs[5],
	).Scan(&a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsernameTaken
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username)
	return scanAccount(row)
}

// GetByIP returns the most recently active account seen from ip
func (r *AccountRepository) GetByIP(ctx context.Context, ip string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE ip_address = $1
		ORDER BY last_login_at DESC NULLS LAST, created_at DESC
		LIMIT 1
	`, ip)
	return scanAccount(row)
}

// List returns every account with balances only
func (r *AccountRepository) List(ctx context.Context) ([]domain.AccountSummary, error) {
	rows, err := r.db.Query(ctx, `
		SELECT username, is_admin, created_at, ip_address, credits, plays, cash_balance::text
		FROM accounts
		ORDER BY created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.AccountSummary{}
	for rows.Next() {
		var s domain.AccountSummary
		var cash string
		if err := rows.Scan(&s.Username, &s.IsAdmin, &s.CreatedAt, &s.IPAddress,
			&s.Stats.Credits, &s.Stats.Plays, &cash); err != nil {
			return nil, err
		}
		if s.Stats.CashBalance, err = decimal.NewFromString(cash); err != nil {
			return nil, fmt.Errorf("parse cash balance: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// ListFull returns every account with full stats, newest first
func (r *AccountRepository) ListFull(ctx context.Context) ([]*domain.Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.Account{}
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateIP records the login address and time
func (r *AccountRepository) UpdateIP(ctx context.Context, username, ip string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE accounts SET ip_address = $2, last_login_at = NOW() WHERE username = $1
	`, username, ip)
	return err
}

// SetAdmin grants or revokes the admin flag
func (r *AccountRepository) SetAdmin(ctx context.Context, username string, admin bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET is_admin = $2 WHERE username = $1`, username, admin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveStats overwrites every provided field and keeps the rest
func (r *AccountRepository) SaveStats(ctx context.Context, username string, u domain.StatsUpdate) (*domain.Balances, error) {
	highScores, err := optJSON(u.HighScores)
	if err != nil {
		return nil, err
	}
	completedLevels, err := optJSON(u.CompletedLevels)
	if err != nil {
		return nil, err
	}
	ownedSkins, err := optJSON(u.OwnedSkins)
	if err != nil {
		return nil, err
	}
	selectedSkins, err := optJSON(u.SelectedSkins)
	if err != nil {
		return nil, err
	}
	completedTasks, err := optJSON(u.CompletedTasks)
	if err != nil {
		return nil, err
	}
	usedPromoCodes, err := optJSON(u.UsedPromoCodes)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRow(ctx, `
		UPDATE accounts SET
			credits          = COALESCE($2, credits),
			plays            = COALESCE($3, plays),
			cash_balance     = COALESCE($4::numeric, cash_balance),
			high_scores      = COALESCE($5::jsonb, high_scores),
			completed_levels = COALESCE($6::jsonb, completed_levels),
			owned_skins      = COALESCE($7::jsonb, owned_skins),
			selected_skins   = COALESCE($8::jsonb, selected_skins),
			last_daily_claim = COALESCE($9, last_daily_claim),
			sponsor_visited  = COALESCE($10, sponsor_visited),
			completed_tasks  = COALESCE($11::jsonb, completed_tasks),
			used_promo_codes = COALESCE($12::jsonb, used_promo_codes)
		WHERE username = $1
		RETURNING credits, plays, cash_balance::text
	`, username, u.Credits, u.Plays, optDecimal(u.CashBalance),
		highScores, completedLevels, ownedSkins, selectedSkins,
		u.LastDailyClaim, u.SponsorVisited, completedTasks, usedPromoCodes,
	)
	return scanBalances(row)
}

// PurchaseCredits swaps cost cash for credits in one guarded update
func (r *AccountRepository) PurchaseCredits(ctx context.Context, username string, credits int64, cost decimal.Decimal) (*domain.Balances, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE accounts SET
			cash_balance = cash_balance - $2::numeric,
			credits = credits + $3
		WHERE username = $1 AND cash_balance >= $2::numeric
		RETURNING credits, plays, cash_balance::text
	`, username, cost.String(), credits)

	b, err := scanBalances(row)
	if errors.Is(err, ErrNotFound) {
		return nil, r.missingOrShort(ctx, username)
	}
	return b, err
}

// Transfer debits the sender and credits the receiver in one transaction.
// Both rows are locked in username order so concurrent transfers between the
// same pair cannot deadlock.
func (r *AccountRepository) Transfer(ctx context.Context, from, to string, debit, credit domain.Amounts) (*domain.Balances, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, `
		SELECT username, credits, plays, cash_balance::text
		FROM accounts
		WHERE username = ANY($1)
		ORDER BY username
		FOR UPDATE
	`, []string{from, to})
	if err != nil {
		return nil, err
	}
	locked := make(map[string]domain.Balances, 2)
	for rows.Next() {
		var name, cash string
		var b domain.Balances
		if err := rows.Scan(&name, &b.Credits, &b.Plays, &cash); err != nil {
			rows.Close()
			return nil, err
		}
		if b.CashBalance, err = decimal.NewFromString(cash); err != nil {
			rows.Close()
			return nil, fmt.Errorf("parse cash balance: %w", err)
		}
		locked[name] = b
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sender, okFrom := locked[from]
	_, okTo := locked[to]
	if !okFrom || !okTo {
		return nil, ErrNotFound
	}
	if sender.Credits < debit.Credits || sender.Plays < debit.Plays || sender.CashBalance.LessThan(debit.Cash) {
		return nil, ErrInsufficientFunds
	}

	after, err := scanBalances(tx.QueryRow(ctx, `
		UPDATE accounts SET
			credits = credits - $2,
			plays = plays - $3,
			cash_balance = cash_balance - $4::numeric
		WHERE username = $1
		RETURNING credits, plays, cash_balance::text
	`, from, debit.Credits, debit.Plays, debit.Cash.String()))
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE accounts SET
			credits = credits + $2,
			plays = plays + $3,
			cash_balance = cash_balance + $4::numeric
		WHERE username = $1
	`, to, credit.Credits, credit.Plays, credit.Cash.String()); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return after, nil
}

// GiveToAll adds the same amounts to every account and returns how many rows changed
func (r *AccountRepository) GiveToAll(ctx context.Context, amounts domain.Amounts) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			credits = credits + $1,
			plays = plays + $2,
			cash_balance = cash_balance + $3::numeric
	`, amounts.Credits, amounts.Plays, amounts.Cash.String())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// UpdateBalances overrides the provided balances of one account
func (r *AccountRepository) UpdateBalances(ctx context.Context, username string, o domain.BalanceOverride) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE accounts SET
			credits = COALESCE($2, credits),
			plays = COALESCE($3, plays),
			cash_balance = COALESCE($4::numeric, cash_balance)
		WHERE username = $1
	`, username, o.Credits, o.Plays, optDecimal(o.CashBalance))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountRepository) Delete(ctx context.Context, username string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE username = $1`, username)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RedeemPromo credits a promo reward once per account. Redemptions live in
// promo_redemptions, which saveStats never touches; used_promo_codes only
// mirrors them for the client. Redemptions of the same code are serialized
// with an advisory lock so the usage cap holds.
func (r *AccountRepository) RedeemPromo(ctx context.Context, username, code string, promo domain.PromoCode) (*domain.Balances, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('promo:' || $1))`, code); err != nil {
		return nil, err
	}

	var used bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM promo_redemptions WHERE username = a.username AND code = $2)
		FROM accounts a WHERE a.username = $1 FOR UPDATE
	`, username, code).Scan(&used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if used {
		return nil, ErrPromoAlreadyUsed
	}

	if promo.MaxUses > 0 {
		var uses int64
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM promo_redemptions WHERE code = $1`, code).Scan(&uses); err != nil {
			return nil, err
		}
		if uses >= promo.MaxUses {
			return nil, ErrPromoExhausted
		}
	}

	now := time.Now()
	if _, err := tx.Exec(ctx, `
		INSERT INTO promo_redemptions (username, code, redeemed_at) VALUES ($1, $2, $3)
	`, username, code, now); err != nil {
		return nil, err
	}

	after, err := scanBalances(tx.QueryRow(ctx, `
		UPDATE accounts SET
			credits = credits + $2,
			plays = plays + $3,
			cash_balance = cash_balance + $4::numeric,
			used_promo_codes = CASE WHEN jsonb_typeof(used_promo_codes) = 'object'
				THEN used_promo_codes ELSE '{}'::jsonb END || jsonb_build_object($5::text, $6::bigint)
		WHERE username = $1
		RETURNING credits, plays, cash_balance::text
	`, username, promo.Credits, promo.Plays, promo.Cash.String(), code, now.UnixMilli()))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return after, nil
}

// missingOrShort tells a missing account apart from an insufficient balance
// after a guarded update matched nothing.
func (r *AccountRepository) missingOrShort(ctx context.Context, username string) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1)`, username).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrInsufficientFunds
}

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var (
		a     domain.Account
		cash  string
		hs    []byte
		cl    []byte
		owned []byte
		ss    []byte
		tasks []byte
		promo []byte
	)
	if err := row.Scan(
		&a.Username, &a.PasswordHash, &a.IsAdmin, &a.IPAddress, &a.CreatedAt, &a.LastLoginAt,
		&a.Stats.Credits, &a.Stats.Plays, &cash, &hs, &cl, &owned, &ss,
		&a.Stats.LastDailyClaim, &a.Stats.SponsorVisited, &tasks, &promo,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var err error
	if a.Stats.CashBalance, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("parse cash balance: %w", err)
	}

	for _, doc := range []struct {
		raw []byte
		dst any
	}{
		{hs, &a.Stats.HighScores},
		{cl, &a.Stats.CompletedLevels},
		{owned, &a.Stats.OwnedSkins},
		{ss, &a.Stats.SelectedSkins},
		{tasks, &a.Stats.CompletedTasks},
		{promo, &a.Stats.UsedPromoCodes},
	} {
		if len(doc.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
			return nil, fmt.Errorf("decode account document: %w", err)
		}
	}
	a.Stats.FillDefaults()

	return &a, nil
}

func scanBalances(row pgx.Row) (*domain.Balances, error) {
	var b domain.Balances
	var cash string
	if err := row.Scan(&b.Credits, &b.Plays, &cash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var err error
	if b.CashBalance, err = decimal.NewFromString(cash); err != nil {
		return nil, fmt.Errorf("parse cash balance: %w", err)
	}
	return &b, nil
}

// marshalDocs encodes the six JSON documents of s in column order
func marshalDocs(s domain.Stats) ([6][]byte, error) {
	var out [6][]byte
	for i, v := range []any{s.HighScores, s.CompletedLevels, s.OwnedSkins, s.SelectedSkins, s.CompletedTasks, s.UsedPromoCodes} {
		b, err := json.Marshal(v)
		if err != nil {
			return out, fmt.Errorf("encode account document: %w", err)
		}
		out[i] = b
	}
	return out, nil
}

// optJSON encodes v, or returns nil (SQL NULL) when v is absent
func optJSON[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(*v)
	if err != nil {
		return nil, fmt.Errorf("encode stats document: %w", err)
	}
	return b, nil
}

func optDecimal(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
