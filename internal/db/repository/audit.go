package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"taskflow/internal/domain"
)

var _ domain.AuditRepository = (*AuditRepo)(nil)

const defaultAuditLimit = 100

type AuditRepo struct {
	db *sqlx.DB
}

func NewAuditRepo(db *sqlx.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = nowUTC()
	}
	e.CreatedAt = e.CreatedAt.UTC()
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, actor_name, action, target_id, status, detail, created_at)
		VALUES (:id, :actor_id, :actor_name, :action, :target_id, :status, :detail, :created_at)
	`, e)
	return err
}

// List returns entries newest first. Nil filter fields match everything.
func (r *AuditRepo) List(ctx context.Context, filter domain.AuditFilter) ([]domain.AuditEntry, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, *filter.ActorID)
	}
	if filter.Action != nil {
		where = append(where, "action = ?")
		args = append(args, *filter.Action)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}
	if filter.Since != nil {
		where = append(where, "created_at >= ?")
		args = append(args, filter.Since.UTC())
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	q := `SELECT id, actor_id, actor_name, action, target_id, status, detail, created_at FROM audit_log`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var entries []domain.AuditEntry
	if err := r.db.SelectContext(ctx, &entries, q, args...); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
