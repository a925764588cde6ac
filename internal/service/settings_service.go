package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"arcade_webapp/internal/domain"
	"arcade_webapp/internal/logger"

	"github.com/shopspring/decimal"
)

// Settings writes are retried this many times on a revision conflict
const maxSaveAttempts = 3

const (
	defaultTaskCooldown   = 24
	defaultLevelDistance  = 500
	defaultBroadcastType  = "info"
	defaultWithdrawIcon   = "💵"
	withdrawalListDefault = 100
)

// SettingsStore keeps the settings singleton under a revision token
type SettingsStore interface {
	Get(ctx context.Context) (*domain.GlobalSettings, int64, error)
	Save(ctx context.Context, s *domain.GlobalSettings, expected int64) (int64, error)
}

// WithdrawalStore is the withdrawal request log
type WithdrawalStore interface {
	Create(ctx context.Context, w *domain.Withdrawal) error
	UpdateStatus(ctx context.Context, id int64, status domain.WithdrawalStatus) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.Withdrawal, error)
}

// BroadcastPublisher receives every broadcast once it is stored
type BroadcastPublisher interface {
	PublishBroadcast(b domain.Broadcast)
}

type SettingsService struct {
	store       SettingsStore
	withdrawals WithdrawalStore
	publisher   BroadcastPublisher
	audit       *AuditService
	now         func() time.Time
}

func NewSettingsService(store SettingsStore, withdrawals WithdrawalStore, publisher BroadcastPublisher, audit *AuditService) *SettingsService {
	return &SettingsService{
		store:       store,
		withdrawals: withdrawals,
		publisher:   publisher,
		audit:       audit,
		now:         time.Now,
	}
}

// Get returns the stored settings, or the defaults when nothing is stored or
// the store fails.
func (s *SettingsService) Get(ctx context.Context) *domain.GlobalSettings {
	cur, _, err := s.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.WithContext(ctx).Error("load settings failed, serving defaults", "error", err)
		}
		def := domain.DefaultSettings()
		return &def
	}
	return cur
}

// LookupPromo finds a promo code by its exact key, falling back to uppercase
func (s *SettingsService) LookupPromo(ctx context.Context, code string) (string, domain.PromoCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", domain.PromoCode{}, ErrPromoNotFound
	}
	codes := s.Get(ctx).CustomPromoCodes
	for _, key := range []string{code, strings.ToUpper(code)} {
		if p, ok := codes[key]; ok {
			return key, p, nil
		}
	}
	return "", domain.PromoCode{}, ErrPromoNotFound
}

// ListWithdrawals returns logged withdrawal requests, newest first
func (s *SettingsService) ListWithdrawals(ctx context.Context, status domain.WithdrawalStatus, limit int) ([]domain.Withdrawal, error) {
	if limit <= 0 {
		limit = withdrawalListDefault
	}
	return s.withdrawals.List(ctx, status, limit)
}

// Apply runs one named action and returns the resulting settings
func (s *SettingsService) Apply(ctx context.Context, action string, data json.RawMessage) (*domain.GlobalSettings, error) {
	switch action {
	case "submitWithdrawal", "updateWithdrawalStatus", "deleteWithdrawal":
		s.applyWithdrawal(ctx, action, data)
		return s.Get(ctx), nil
	}

	mutate, err := s.mutation(action, data)
	if err != nil {
		return nil, err
	}

	var published *domain.Broadcast
	for attempt := 1; attempt <= maxSaveAttempts; attempt++ {
		cur, rev, err := s.store.Get(ctx)
		if errors.Is(err, ErrNotFound) {
			def := domain.DefaultSettings()
			cur, rev, err = &def, 0, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load settings: %w", err)
		}

		published = mutate(cur, s.now())

		if _, err := s.store.Save(ctx, cur, rev); err != nil {
			if errors.Is(err, ErrRevisionConflict) {
				logger.WithContext(ctx).Debug("settings revision conflict, retrying", "action", action, "attempt", attempt)
				continue
			}
			return nil, fmt.Errorf("save settings: %w", err)
		}

		if published != nil && s.publisher != nil {
			s.publisher.PublishBroadcast(*published)
		}
		return cur, nil
	}
	return nil, ErrRevisionConflict
}

// settingsMutation changes a freshly loaded document and reports the
// broadcast it appended, if any.
type settingsMutation func(s *domain.GlobalSettings, now time.Time) *domain.Broadcast

// mutation decodes data for action. It runs once per request; the returned
// closure runs once per save attempt.
func (s *SettingsService) mutation(action string, data json.RawMessage) (settingsMutation, error) {
	switch action {
	case "sendBroadcast":
		var in struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		}
		if err := decodeData(data, &in); err != nil {
			return nil, err
		}
		if in.Type == "" {
			in.Type = defaultBroadcastType
		}
		return func(g *domain.GlobalSettings, now time.Time) *domain.Broadcast {
			id := nextID(now, idsOf(g.AdminBroadcasts, func(b domain.Broadcast) int64 { return b.ID }))
			b := domain.Broadcast{ID: id, Message: in.Message, Type: in.Type, Timestamp: now.UnixMilli()}
			g.AdminBroadcasts = keepLast(append(g.AdminBroadcasts, b), domain.MaxBroadcasts)
			return &b
		}, nil

	case "createPromoCode":
		var in struct {
			Code      string          `json:"code"`
			Credits   int64           `json:"credits"`
			Plays     int64           `json:"plays"`
			Cash      decimal.Decimal `json:"cash"`
			EventType string          `json:"eventType"`
			Emoji     string          `json:"emoji"`
			Message   string          `json:"message"`
			MaxUses   int64           `json:"maxUses"`
		}
		if err := decodeData(data, &in); err != nil {
			return nil, err
		}
		if in.Code == "" {
			return nil, fmt.Errorf("%w: code is required", ErrInvalidInput)
		}
		if in.Credits < 0 || in.Plays < 0 || in.Cash.IsNegative() || in.MaxUses < 0 {
			return nil, ErrInvalidAmount
		}
		if in.EventType == "" {
			in.EventType = domain.PromoEventNone
		}
		promo := domain.PromoCode{
			Credits:   in.Credits,
			Plays:     in.Plays,
			Cash:      in.Cash,
			EventType: in.EventType,
			Emoji:     in.Emoji,
			Message:   in.Message,
			MaxUses:   in.MaxUses,
		}
		return func(g *domain.GlobalSettings, _ time.Time) *domain.Broadcast {
			g.CustomPromoCodes[in.Code] = promo
			return nil
		}, nil

	case "deletePromoCode":
		var in struct {
			Code string `json:"code"`
		}
		if err := decodeData(data, &in); err != nil {
			return nil, err
		}
		return func(g *domain.GlobalSettings, _ time.Time) *domain.Broadcast {
			delete(g.CustomPromoCodes, in.Code)
			return nil
		}, nil

	case "updatePromoCode":
		var in struct {
			Code    string           `json:"code"`
			Credits *int64           `json:"credits"`
			Plays   *int64           `json:"plays"`
			Cash    *decimal.Decimal `json:"cash"`
			MaxUses *int64           `json:"maxUses"`
		}
		if err := decodeData(data, &in); err != nil {
			return nil, err
		}
		if (in.Credits != nil && *in.Credits < 0) || (in.Plays != nil && *in.Plays < 0) ||
			(in.Cash != nil && in.Cash.IsNegative()) || (in.MaxUses != nil && *in.MaxUses < 0) {
			return nil, ErrInvalidAmount
		}
		return func(g *domain.GlobalSettings, _ time.Time) *domain.Broadcast {
			p, ok := g.CustomPromoCodes[in.Code]
			if !ok {
				return nil
			}
			if in.Credits != nil {
				p.Credits = *in.Credits
			}
			if in.Plays != nil {
				p.Plays = *in.Plays
			}
			if in.Cash != nil {
				p.Cash = *in.Cash
			}
			if in.MaxUses != nil {
				p.MaxUses = *in.MaxUses
			}
			g.CustomPromoCodes[in.Code] = p
			return nil
		}, nil

	case "setMinWithdraw":
		var in struct {
			Min decimal.Decimal `json:"min"`
		}
		if err := decodeData(data, &in); err != nil {
			return nil, err
		}
		if !in.Min.IsPositive() {
			return nil, ErrInvalidAmount
		}
		return func(g *domain.GlobalSettings, _ time.Time) *domain.Broadcast {
			g.MinWithdraw = in.Min
			return nil
		}, nil

	case "setSponsorLink":
		var in struct {
			Link string `json:"link"`
		}
		if err := decodeData(data, &in); err != nil {
			return nil, err
		}
		return func(g *domain.GlobalSettings, _ time.Time) *domain.Broadcast {
			g.SponsorLink = in.Link
			return nil
		}, nil

	case "createTask":
		var in struct {
			Name        string `json:"name"`
			Type        string `json:"type"`
			URL         string `json:"url"`
			Reward      int64  `json:"reward"`
			Cooldown    int64  `json:"cooldown"`
			HTMLContent string `json:"htmlContent"`
		}
		if err := decodeData(data, &in); err != nil {
			return nil, err
		}
		if in.Reward < 0 || in.Cooldown < 0 {
			return nil, ErrInvalidAmount
		}
		if in.Cooldown == 0 {
			in.Cooldown = defaultTaskCooldown
		}
		return func(g *domain.GlobalSettings, now time.Time) *domain.Broadcast {
			g.CustomTasks = append(g.CustomTasks, domain.CustomTask{
				ID:          nextID(now, idsOf(g.CustomTasks, func(t domain.CustomTask) int64 { return t.ID })),
				Name:        in.Name,
				Type:        in.Type,
				URL:         in.URL,
				Reward:      in.Reward,
				Cooldown:    in.Cooldown,
				HTMLContent: in.HTMLContent,
			})
			return nil
		}, nil

	case "deleteTask":
		id, err := decodeID(data)
		if err != nil {
			return nil, err
		}
		return func(g *domain.GlobalSettings, _ time.Time) *domain.Broadcast {
			g.CustomTasks = without(g.CustomTasks, func(t domain.CustomTask) bool { return t.ID == id })
			return nil
		}, nil

	case "saveCustomLevel":
		var in struct {
			LevelName string            `json:"levelName"`
			Obstacles []domain.Obstacle `json:"obstacles"`
			Distance  int64             `json:"distance"`
		}
		if err := decodeData(data, &in); err != nil {
			return nil, err
		}
		if in.LevelName == "" {
			return nil, fmt.Errorf("%w: levelName is required", ErrInvalidInput)
		}
		if in.Distance <= 0 {
			in.Distance = defaultLevelDistance
		}
		if in.Obstacles == nil {
			in.Obstacles = []domain.Obstacle{}
		}
		return func(g *domain.GlobalSettings, _ time.Time) *domain.Broadcast {
			g.CustomLevels[in.LevelName] = domain.CustomLevel{Obstacles: in.Obstacles, Distance: in.Distance}
			return nil
		}, nil

	case "deleteCustomLevel":
		var in struct {
			LevelName string `json:"levelName"`
		}
		if err := decodeData(data, &in); err != nil {
			return nil, err
		}
		return func(g *domain.GlobalSettings, _ time.Time) *domain.Broadcast {
			delete(g.CustomLevels, in.LevelName)
			return nil
		}, nil

	case "reportError":
		var in struct {
			Message string `json:"message"`
			User    string `json:"user"`
		}
		if err := decodeData(data, &in); err != nil {
			return nil, err
		}
		if in.User == "" {
			in.User = domain.AnonymousUser
		}
		return func(g *domain.GlobalSettings, now time.Time) *domain.Broadcast {
			ids := idsOf(g.ErrorReports, func(r domain.ErrorReport) int64 { return r.ID })
			g.ErrorReports = keepLast(append(g.ErrorReports, domain.ErrorReport{
				ID:        nextID(now, ids),
				Message:   in.Message,
				User:      in.User,
				Timestamp: now.UnixMilli(),
			}), domain.MaxErrorReports)
			return nil
		}, nil

	case "deleteErrorReport":
		id, err := decodeID(data)
		if err != nil {
			return nil, err
		}
		return func(g *domain.GlobalSettings, _ time.Time) *domain.Broadcast {
			g.ErrorReports = without(g.ErrorReports, func(r domain.ErrorReport) bool { return r.ID == id })
			return nil
		}, nil

	case "createWithdrawMethod":
		var in struct {
			Name string `json:"name"`
			Icon string `json:"icon"`
		}
		if err := decodeData(data, &in); err != nil {
			return nil, err
		}
		if in.Icon == "" {
			in.Icon = defaultWithdrawIcon
		}
		return func(g *domain.GlobalSettings, now time.Time) *domain.Broadcast {
			ids := idsOf(g.CustomWithdrawMethods, func(m domain.WithdrawMethod) int64 { return m.ID })
			g.CustomWithdrawMethods = append(g.CustomWithdrawMethods, domain.WithdrawMethod{
				ID:   nextID(now, ids),
				Name: in.Name,
				Icon: in.Icon,
			})
			return nil
		}, nil

	case "deleteWithdrawMethod":
		id, err := decodeID(data)
		if err != nil {
			return nil, err
		}
		return func(g *domain.GlobalSettings, _ time.Time) *domain.Broadcast {
			g.CustomWithdrawMethods = without(g.CustomWithdrawMethods, func(m domain.WithdrawMethod) bool { return m.ID == id })
			return nil
		}, nil
	}

	return nil, ErrUnknownAction
}

// applyWithdrawal writes to the withdrawal log. Failures are logged and the
// enclosing action still succeeds.
func (s *SettingsService) applyWithdrawal(ctx context.Context, action string, data json.RawMessage) {
	log := logger.WithContext(ctx).With("action", action)
	if s.withdrawals == nil {
		log.Warn("withdrawal log not configured")
		return
	}

	switch action {
	case "submitWithdrawal":
		var in struct {
			User    string          `json:"user"`
			Amount  decimal.Decimal `json:"amount"`
			Method  string          `json:"method"`
			Account string          `json:"account"`
		}
		if err := decodeData(data, &in); err != nil {
			log.Error("withdrawal insert error", "error", err)
			return
		}
		if in.User == "" {
			in.User = domain.AnonymousUser
		}
		w := &domain.Withdrawal{
			Username: in.User,
			Amount:   in.Amount,
			Method:   in.Method,
			Account:  in.Account,
			Status:   domain.WithdrawalStatusPending,
		}
		if err := s.withdrawals.Create(ctx, w); err != nil {
			log.Error("withdrawal insert error", "error", err)
			return
		}
		s.audit.LogWithdrawal(ctx, w.Username, domain.AuditActionWithdrawRequest, map[string]any{
			"id":     w.ID,
			"amount": w.Amount.String(),
			"method": w.Method,
		})

	case "updateWithdrawalStatus":
		var in struct {
			ID     int64                   `json:"id"`
			Status domain.WithdrawalStatus `json:"status"`
		}
		if err := decodeData(data, &in); err != nil {
			log.Error("withdrawal update error", "error", err)
			return
		}
		if err := s.withdrawals.UpdateStatus(ctx, in.ID, in.Status); err != nil {
			log.Error("withdrawal update error", "error", err, "id", in.ID)
			return
		}
		s.audit.LogWithdrawal(ctx, domain.AnonymousUser, domain.AuditActionWithdrawStatus, map[string]any{
			"id":     in.ID,
			"status": string(in.Status),
		})

	case "deleteWithdrawal":
		id, err := decodeID(data)
		if err != nil {
			log.Error("withdrawal delete error", "error", err)
			return
		}
		if err := s.withdrawals.Delete(ctx, id); err != nil {
			log.Error("withdrawal delete error", "error", err, "id", id)
			return
		}
		s.audit.LogWithdrawal(ctx, domain.AnonymousUser, domain.AuditActionWithdrawDelete, map[string]any{"id": id})
	}
}

func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func decodeID(data json.RawMessage) (int64, error) {
	var in struct {
		ID int64 `json:"id"`
	}
	if err := decodeData(data, &in); err != nil {
		return 0, err
	}
	return in.ID, nil
}

func keepLast[T any](items []T, n int) []T {
	if len(items) <= n {
		return items
	}
	return append([]T(nil), items[len(items)-n:]...)
}

func without[T any](items []T, drop func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if !drop(it) {
			out = append(out, it)
		}
	}
	return out
}

func idsOf[T any](items []T, id func(T) int64) []int64 {
	out := make([]int64, len(items))
	for i, it := range items {
		out[i] = id(it)
	}
	return out
}

// nextID is a millisecond timestamp bumped past any id already in use
func nextID(now time.Time, taken []int64) int64 {
	id := now.UnixMilli()
	for _, t := range taken {
		if t >= id {
			id = t + 1
		}
	}
	return id
}
