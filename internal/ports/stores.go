package ports

import (
	"context"
	"errors"
	"time"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
)

// ErrCacheMiss is returned by CacheStore.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// RelationalStore answers aggregation queries from the relational database.
type RelationalStore interface {
	// Aggregate runs the grouped aggregation with native pagination. A
	// negative pageSize disables the limit and returns the full result.
	Aggregate(ctx context.Context, tenant string, spec filters.Spec, scope domain.ScopeConstraint, page, pageSize int) ([]domain.AggregationRecord, error)

	// Count runs a count-only aggregation over the same filter.
	Count(ctx context.Context, tenant string, spec filters.Spec, scope domain.ScopeConstraint) (int64, error)
}

// SearchStore answers aggregation queries from the denormalized search
// index. Page and pageSize may be negative to request the full result;
// some calculations only support that mode and rely on client-side
// pagination correction.
type SearchStore interface {
	Aggregate(ctx context.Context, tenant string, spec filters.Spec, stacks []string, scope domain.ScopeConstraint, page, pageSize int) ([]domain.AggregationRecord, error)
}

// IssueListStore answers flat drilldown listings over issues, with the
// total row count for the filter.
type IssueListStore interface {
	List(ctx context.Context, tenant string, f filters.IssueFilter, scope domain.ScopeConstraint, page, pageSize int) ([]domain.IssueRow, int64, error)
}

// CacheStore is the byte-oriented TTL cache behind the orchestrator.
type CacheStore interface {
	// Get returns the cached payload or ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores the payload under key for ttl.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ScopeResolver expands an organizational-unit reference carried by the
// request into additional filter constraints plus a rewritten request.
type ScopeResolver interface {
	Resolve(ctx context.Context, tenant string, integrationTypes []string, req domain.ListRequest) (domain.ScopeConstraint, domain.ListRequest, error)
}

// IssueLookup resolves parent-issue keys to their display summaries in one
// bounded batch call. Missing keys are simply absent from the result.
type IssueLookup interface {
	Summaries(ctx context.Context, tenant string, keys []string) (map[string]string, error)
}

// SprintCalculator owns the per-metric sprint arithmetic. The pipeline is
// only responsible for feeding it correctly filtered sprint-mapping records.
type SprintCalculator interface {
	Calculate(ctx context.Context, tenant string, records []domain.AggregationRecord, settings domain.SprintMetricsSettings) ([]domain.SprintMetrics, error)
}

// WorkflowProfiles reads tenant workflow (stage) configuration.
type WorkflowProfiles interface {
	Get(ctx context.Context, tenant, profileID string) (domain.WorkflowProfile, error)
}
