package security

import (
	"context"

	"taskflow/internal/domain"
)

// AuditService exposes the audit log to callers holding VIEW_AUDIT.
type AuditService struct {
	repo domain.AuditRepository
}

// NewAuditService creates a new AuditService.
func NewAuditService(repo domain.AuditRepository) *AuditService {
	return &AuditService{repo: repo}
}

// List returns audit entries matching filter, newest first.
func (s *AuditService) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	p, _ := domain.PrincipalFromContext(ctx)
	if err := domain.RequirePermission(p, domain.PermViewAudit); err != nil {
		return nil, err
	}
	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, domain.AsInternal(err, "list audit entries")
	}
	return entries, nil
}
