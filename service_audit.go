package authkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"github.com/uptrace/bun"
)

// Audit actions recorded for membership and lifecycle changes.
const (
	AuditActionMembershipAdded   = "membership_added"
	AuditActionMembershipRemoved = "membership_removed"
	AuditActionAdminPromoted     = "admin_promoted"
	AuditActionAdminDemoted      = "admin_demoted"
	AuditActionUserDeleted       = "user_deleted"
	AuditActionTenantDeleted     = "tenant_deleted"
)

// AuditLog is one recorded membership or lifecycle change.
type AuditLog struct {
	bun.BaseModel `bun:"table:auth_audit_log,alias:al"`

	ID            int64     `bun:"id,pk,autoincrement" json:"id"`
	Timestamp     time.Time `bun:"timestamp,notnull,default:current_timestamp" json:"timestamp"`
	ActorRef      string    `bun:"actor_ref,notnull" json:"actor_ref"`
	Action        string    `bun:"action,notnull" json:"action"`
	TargetUserRef string    `bun:"target_user_ref,notnull" json:"target_user_ref"`
	GroupRef      string    `bun:"group_ref" json:"group_ref,omitempty"`
	TenantRef     string    `bun:"tenant_ref" json:"tenant_ref,omitempty"`
	IPAddress     string    `bun:"ip_address" json:"ip_address,omitempty"`
	UserAgent     string    `bun:"user_agent" json:"user_agent,omitempty"`
	RequestID     string    `bun:"request_id" json:"request_id,omitempty"`
}

// AuditLogFilter narrows audit log retrieval. Zero-valued fields are
// ignored.
type AuditLogFilter struct {
	ActorRef      string
	TargetUserRef string
	TenantRef     string
	GroupRef      string
	Action        string
	Since         time.Time
	Until         time.Time
	Limit         int
	Offset        int
}

// recordAudit inserts an audit row on the current handle, so entries
// written inside a transaction roll back with it. Request metadata comes
// from the context helpers.
func (s *Service) recordAudit(ctx context.Context, actor *LoginContext, action, targetUserRef, groupRef, tenantRef string) error {
	ac := GetAuditContext(ctx)
	entry := &AuditLog{
		Timestamp:     time.Now(),
		ActorRef:      actorRefOf(actor),
		Action:        action,
		TargetUserRef: targetUserRef,
		GroupRef:      groupRef,
		TenantRef:     tenantRef,
		IPAddress:     ac.IPAddress,
		UserAgent:     ac.UserAgent,
		RequestID:     ac.RequestID,
	}

	res, err := s.db.NewInsert().Model(entry).Exec(ctx)
	return dbkit.WithErr(res, err, "recordAudit").Err()
}

// GetAuditLog retrieves audit log entries with optional filters.
func (s *Service) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]AuditLog, error) {
	var logs []AuditLog
	q := s.db.NewSelect().Model(&logs)
	if filter.ActorRef != "" {
		q = q.Where("actor_ref = ?", filter.ActorRef)
	}
	if filter.TargetUserRef != "" {
		q = q.Where("target_user_ref = ?", filter.TargetUserRef)
	}
	if filter.TenantRef != "" {
		q = q.Where("tenant_ref = ?", filter.TenantRef)
	}
	if filter.GroupRef != "" {
		q = q.Where("group_ref = ?", filter.GroupRef)
	}
	if filter.Action != "" {
		q = q.Where("action = ?", filter.Action)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100 // Default limit
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err()
	if err != nil {
		return nil, err
	}

	return logs, nil
}
