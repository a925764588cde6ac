package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"arcade_webapp/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultAuditLimit = 50

type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create stores one entry and fills in its id and timestamp
func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	details := []byte("{}")
	if entry.Details != nil {
		b, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("encode audit details: %w", err)
		}
		details = b
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO audit_logs (username, action, category, details, ip)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, entry.Username, entry.Action, entry.Category, details, entry.IP).Scan(&entry.ID, &entry.CreatedAt)
}

// List returns matching entries, newest first
func (r *AuditRepository) List(ctx context.Context, f domain.AuditFilter) ([]*domain.AuditLog, error) {
	if f.Limit <= 0 {
		f.Limit = defaultAuditLimit
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, username, action, category, details, ip, created_at
		FROM audit_logs
		WHERE ($1::text = '' OR username = $1)
		  AND ($2::text = '' OR category = $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, f.Username, f.Category, f.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*domain.AuditLog{}
	for rows.Next() {
		var (
			e   domain.AuditLog
			raw []byte
		)
		if err := rows.Scan(&e.ID, &e.Username, &e.Action, &e.Category, &raw, &e.IP, &e.CreatedAt); err != nil {
			return nil, err
		}
		// a corrupt details document should not hide the entry
		if json.Unmarshal(raw, &e.Details) != nil || e.Details == nil {
			e.Details = map[string]any{}
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
