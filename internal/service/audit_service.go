package service

import (
	"context"

	"arcade_webapp/internal/domain"
	"arcade_webapp/internal/logger"
)

// AuditStore persists audit entries
type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
	List(ctx context.Context, f domain.AuditFilter) ([]*domain.AuditLog, error)
}

// AuditService handles audit logging. A nil *AuditService is a no-op.
type AuditService struct {
	repo AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// Log creates a new audit log entry. Failures are logged and dropped.
func (s *AuditService) Log(ctx context.Context, username, action, category string, details map[string]any) {
	if s == nil || s.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		Username: username,
		Action:   action,
		Category: category,
		Details:  details,
		IP:       clientIPFrom(ctx),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "username", username)
	}
}

// LogLogin logs a successful login or registration
func (s *AuditService) LogLogin(ctx context.Context, username string, registered bool) {
	action := domain.AuditActionLogin
	if registered {
		action = domain.AuditActionRegister
	}
	s.Log(ctx, username, action, domain.AuditCategoryAuth, nil)
}

// LogEconomy logs a balance-changing player action
func (s *AuditService) LogEconomy(ctx context.Context, username, action string, details map[string]any) {
	s.Log(ctx, username, action, domain.AuditCategoryEconomy, details)
}

// LogAdminAction logs an admin action against a target account
func (s *AuditService) LogAdminAction(ctx context.Context, admin, action, target string, details map[string]any) {
	if details == nil {
		details = make(map[string]any)
	}
	if target != "" {
		details["target"] = target
	}
	s.Log(ctx, admin, action, domain.AuditCategoryAdmin, details)
}

// LogWithdrawal logs a withdrawal log change
func (s *AuditService) LogWithdrawal(ctx context.Context, username, action string, details map[string]any) {
	s.Log(ctx, username, action, domain.AuditCategoryWithdrawal, details)
}

// Query lists entries newest first. The username filter is normalized.
func (s *AuditService) Query(ctx context.Context, f domain.AuditFilter) ([]*domain.AuditLog, error) {
	f.Username = NormalizeUsername(f.Username)
	return s.repo.List(ctx, f)
}

type clientIPKey struct{}

// ContextWithClientIP records the caller's address for audit entries
func ContextWithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey{}, ip)
}

func clientIPFrom(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}
