package repository

import (
	"context"
	"errors"
	"fmt"

	"arcade_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type WithdrawalRepository struct {
	db *pgxpool.Pool
}

func NewWithdrawalRepository(db *pgxpool.Pool) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

// GetByID retrieves withdrawal by ID
func (r *WithdrawalRepository) GetByID(ctx context.Context, id int64) (*domain.Withdrawal, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, username, amount::text, method, account, status, created_at
		FROM withdrawals
		WHERE id = $1
	`, id)

	return scanWithdrawal(row)
}

// List returns withdrawals newest first, optionally filtered by status
func (r *WithdrawalRepository) List(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.Withdrawal, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, username, amount::text, method, account, status, created_at
		FROM withdrawals
		WHERE $1::text = '' OR status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Withdrawal{}
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

// Create creates a new withdrawal request
func (r *WithdrawalRepository) Create(ctx context.Context, w *domain.Withdrawal) error {
	if w.Status == "" {
		w.Status = domain.WithdrawalStatusPending
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO withdrawals (username, amount, method, account, status)
		VALUES ($1, $2::numeric, $3, $4, $5)
		RETURNING id, created_at
	`, w.Username, w.Amount.String(), w.Method, w.Account, w.Status).Scan(&w.ID, &w.CreatedAt)
}

// UpdateStatus updates withdrawal status
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, id int64, status domain.WithdrawalStatus) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE withdrawals SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *WithdrawalRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM withdrawals WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWithdrawal(row pgx.Row) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	var amount string

	if err := row.Scan(&w.ID, &w.Username, &amount, &w.Method, &w.Account, &w.Status, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var err error
	if w.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("parse withdrawal amount: %w", err)
	}
	return &w, nil
}
