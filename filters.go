package authkit

import "time"

// NewAuditLogFilter creates a new AuditLogFilter with default values.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{
		Limit: 100,
	}
}

// WithActor sets the actor reference filter.
func (f AuditLogFilter) WithActor(actorRef string) AuditLogFilter {
	f.ActorRef = actorRef
	return f
}

// WithTargetUser sets the target user reference filter.
func (f AuditLogFilter) WithTargetUser(userRef string) AuditLogFilter {
	f.TargetUserRef = userRef
	return f
}

// WithTenant sets the tenant reference filter.
func (f AuditLogFilter) WithTenant(tenantRef string) AuditLogFilter {
	f.TenantRef = tenantRef
	return f
}

// WithGroup sets the group reference filter.
func (f AuditLogFilter) WithGroup(groupRef string) AuditLogFilter {
	f.GroupRef = groupRef
	return f
}

// WithAction sets the action filter.
func (f AuditLogFilter) WithAction(action string) AuditLogFilter {
	f.Action = action
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditLogFilter) WithTimeRange(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithSince sets the start time filter.
func (f AuditLogFilter) WithSince(since time.Time) AuditLogFilter {
	f.Since = since
	return f
}

// WithUntil sets the end time filter.
func (f AuditLogFilter) WithUntil(until time.Time) AuditLogFilter {
	f.Until = until
	return f
}

// WithLimit sets the limit for results.
func (f AuditLogFilter) WithLimit(limit int) AuditLogFilter {
	f.Limit = limit
	return f
}

// WithOffset sets the offset for pagination.
func (f AuditLogFilter) WithOffset(offset int) AuditLogFilter {
	f.Offset = offset
	return f
}

// WithPagination sets both limit and offset.
func (f AuditLogFilter) WithPagination(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}
