// Package auditutil records authorization decisions in the audit log.
package auditutil

import (
	"context"

	"taskflow/internal/domain"
)

func LogAllowed(ctx context.Context, audit domain.AuditRepository, actor *domain.Principal, action, targetID, detail string) {
	logDecision(ctx, audit, actor, action, targetID, domain.AuditAllowed, detail)
}

func LogDenied(ctx context.Context, audit domain.AuditRepository, actor *domain.Principal, action, targetID, detail string) {
	logDecision(ctx, audit, actor, action, targetID, domain.AuditDenied, detail)
}

func LogError(ctx context.Context, audit domain.AuditRepository, actor *domain.Principal, action, targetID, detail string) {
	logDecision(ctx, audit, actor, action, targetID, domain.AuditError, detail)
}

func logDecision(ctx context.Context, audit domain.AuditRepository, actor *domain.Principal, action, targetID, status, detail string) {
	if audit == nil {
		return
	}
	e := &domain.AuditEntry{
		Action:   action,
		TargetID: targetID,
		Status:   status,
	}
	if actor != nil {
		e.ActorID = actor.ID
		e.ActorName = actor.Name
	}
	if detail != "" {
		e.Detail = &detail
	}
	_ = audit.Insert(ctx, e)
}
