package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"arcade_webapp/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// settingsID is the fixed key of the settings singleton
const settingsID = 1

type SettingsRepository struct {
	db *pgxpool.Pool
}

func NewSettingsRepository(db *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get returns the stored settings and their revision. ErrNotFound means
// nothing was ever saved; the caller starts from defaults at revision 0.
func (r *SettingsRepository) Get(ctx context.Context) (*domain.GlobalSettings, int64, error) {
	var (
		s         domain.GlobalSettings
		revision  int64
		minW      *string
		sponsor   *string
		promo     []byte
		casts     []byte
		tasks     []byte
		levels    []byte
		methods   []byte
		errReport []byte
	)
	err := r.db.QueryRow(ctx, `
		SELECT revision, min_withdraw::text, sponsor_link, custom_promo_codes, admin_broadcasts,
		       custom_tasks, custom_levels, custom_withdraw_methods, error_reports
		FROM global_settings
		WHERE id = $1
	`, settingsID).Scan(&revision, &minW, &sponsor, &promo, &casts, &tasks, &levels, &methods, &errReport)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, ErrNotFound
		}
		return nil, 0, err
	}

	if minW != nil {
		if s.MinWithdraw, err = decimal.NewFromString(*minW); err != nil {
			return nil, 0, fmt.Errorf("parse min withdraw: %w", err)
		}
	}
	if sponsor != nil {
		s.SponsorLink = *sponsor
	}
	for _, doc := range []struct {
		raw []byte
		dst any
	}{
		{promo, &s.CustomPromoCodes},
		{casts, &s.AdminBroadcasts},
		{tasks, &s.CustomTasks},
		{levels, &s.CustomLevels},
		{methods, &s.CustomWithdrawMethods},
		{errReport, &s.ErrorReports},
	} {
		if len(doc.raw) == 0 {
			continue
		}
		if err := json.Unmarshal(doc.raw, doc.dst); err != nil {
			return nil, 0, fmt.Errorf("decode settings document: %w", err)
		}
	}
	s.FillDefaults()

	return &s, revision, nil
}

// Save writes the whole document if the stored revision still equals
// expected (0 = not stored yet) and returns the new revision.
func (r *SettingsRepository) Save(ctx context.Context, s *domain.GlobalSettings, expected int64) (int64, error) {
	docs := make([][]byte, 0, 6)
	for _, v := range []any{s.CustomPromoCodes, s.AdminBroadcasts, s.CustomTasks, s.CustomLevels, s.CustomWithdrawMethods, s.ErrorReports} {
		b, err := json.Marshal(v)
		if err != nil {
			return 0, fmt.Errorf("encode settings document: %w", err)
		}
		docs = append(docs, b)
	}

	var revision int64
	var err error
	if expected == 0 {
		err = r.db.QueryRow(ctx, `
			INSERT INTO global_settings (
				id, revision, min_withdraw, sponsor_link, custom_promo_codes, admin_broadcasts,
				custom_tasks, custom_levels, custom_withdraw_methods, error_reports
			) VALUES ($1, 1, $2::numeric, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO NOTHING
			RETURNING revision
		`, settingsID, s.MinWithdraw.String(), s.SponsorLink,
			docs[0], docs[1], docs[2], docs[3], docs[4], docs[5],
		).Scan(&revision)
	} else {
		err = r.db.QueryRow(ctx, `
			UPDATE global_settings SET
				revision = revision + 1,
				min_withdraw = $3::numeric,
				sponsor_link = $4,
				custom_promo_codes = $5,
				admin_broadcasts = $6,
				custom_tasks = $7,
				custom_levels = $8,
				custom_withdraw_methods = $9,
				error_reports = $10,
				updated_at = NOW()
			WHERE id = $1 AND revision = $2
			RETURNING revision
		`, settingsID, expected, s.MinWithdraw.String(), s.SponsorLink,
			docs[0], docs[1], docs[2], docs[3], docs[4], docs[5],
		).Scan(&revision)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrRevisionConflict
		}
		return 0, err
	}
	return revision, nil
}
