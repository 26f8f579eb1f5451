package authkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// HealthService exposes the store's health probes alongside the Service.
// Callers that mount a readiness endpoint wrap their Service once and
// delegate to these methods.
type HealthService struct {
	*Service
}

// NewHealthService wraps a service with health monitoring.
func NewHealthService(service *Service) *HealthService {
	return &HealthService{Service: service}
}

// Health reports the full health status of the backing store, including
// latency and pool statistics. A service bound to a transaction can only
// probe connectivity, so the status degrades to a basic reachability check.
func (hs *HealthService) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}
	if err := hs.probe(ctx); err != nil {
		return dbkit.HealthStatus{Healthy: false, Error: err.Error()}
	}
	return dbkit.HealthStatus{Healthy: true}
}

// IsHealthy reports whether the store is reachable.
func (hs *HealthService) IsHealthy(ctx context.Context) bool {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}
	return hs.probe(ctx) == nil
}

// GetPoolStats returns connection pool statistics. A transaction-bound
// service has no pool of its own and reports zero values.
func (hs *HealthService) GetPoolStats() dbkit.PoolStats {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}

// Ping runs a minimal round trip against the store.
func (hs *HealthService) Ping(ctx context.Context) error {
	return hs.probe(ctx)
}

// probe issues the cheapest statement the store accepts. It works on both
// the pooled handle and inside a transaction.
func (hs *HealthService) probe(ctx context.Context) error {
	var one int
	return hs.db.NewSelect().Model((*struct{})(nil)).ColumnExpr("1").Limit(1).Scan(ctx, &one)
}
