// Package usecase implements the report pipeline: scope resolution, filter
// normalization, backing-store selection, caching and post-processing, in
// that order for every endpoint.
package usecase

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/cache"
	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/fanout"
	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/internal/ports"
	"github.com/devlens/devlens/internal/source"
)

const (
	defaultPageSize = 100
)

// QueryOptions carries the per-request knobs read from query parameters
// rather than the filter body.
type QueryOptions struct {
	// DisableCache bypasses the cache read and write for this request.
	DisableCache bool
	// ForceSource overrides the configured backing-store selection.
	ForceSource source.Override
}

// ScopeStatus reports how organizational scoping went for a request.
type ScopeStatus struct {
	// Applied is true when an org-unit constraint was merged into the query.
	Applied bool `json:"applied"`
	// Degraded is true when scope resolution failed and the query ran
	// unscoped.
	Degraded bool `json:"degraded,omitempty"`
}

// Deps bundles the stores and services the report pipeline runs on.
type Deps struct {
	Relational ports.RelationalStore
	IssueList  ports.IssueListStore
	Search     ports.SearchStore
	Cache      *cache.Orchestrator
	Selector   *source.Selector
	Scope      ports.ScopeResolver
	Lookup     ports.IssueLookup
	Sprints    ports.SprintCalculator
	Profiles   ports.WorkflowProfiles
	Pool       *fanout.Pool
	Log        *logrus.Logger

	// MaxPageSize caps any requested page size. Zero means no cap.
	MaxPageSize int
}

// ReportService is the shared engine behind every report endpoint.
type ReportService struct {
	deps Deps
}

// NewReportService wires the report pipeline.
func NewReportService(deps Deps) *ReportService {
	if deps.Pool == nil {
		deps.Pool = fanout.NewPool(1)
	}
	return &ReportService{deps: deps}
}

// pageOf normalizes the requested page window. Page sizes at or below zero
// get the default; anything above the configured cap is clamped, never
// rejected.
func (s *ReportService) pageOf(req domain.ListRequest) (page, pageSize int) {
	page = req.Page
	if page < 0 {
		page = 0
	}
	pageSize = req.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if s.deps.MaxPageSize > 0 && pageSize > s.deps.MaxPageSize {
		pageSize = s.deps.MaxPageSize
	}
	return page, pageSize
}

// resolveScope expands the request's org-unit reference, if any, into a
// scope constraint and a rewritten request. Resolution failures degrade:
// the query proceeds unscoped and the caller sees the degraded flag, not an
// error.
func (s *ReportService) resolveScope(ctx context.Context, tenant string, integrationTypes []string, req domain.ListRequest) (domain.ScopeConstraint, domain.ListRequest, ScopeStatus) {
	scope, rewritten, err := s.deps.Scope.Resolve(ctx, tenant, integrationTypes, req)
	if err != nil {
		s.deps.Log.WithFields(logrus.Fields{
			"tenant": tenant,
			"error":  err,
		}).Warn("org-unit scope resolution failed, serving unscoped results")
		return domain.ScopeConstraint{}, req, ScopeStatus{Degraded: true}
	}
	return scope, rewritten, ScopeStatus{Applied: scope.Applied()}
}

// cacheKey builds the deterministic cache key for one report computation.
func cacheKey(report source.Report, filterHash string, scope domain.ScopeConstraint, page, pageSize int, sort []domain.SortEntry) cache.Key {
	return cache.Key{
		Endpoint:   string(report),
		FilterHash: filterHash,
		ScopeHash:  scope.ContentHash(),
		Page:       page,
		PageSize:   pageSize,
		SortHash:   cache.SortHash(sort),
	}
}

// fetchAggregation runs one grouped aggregation against the selected store.
// The search store returns whole result sets, so its records come back
// unpaged for client-side correction; the relational store pages natively.
func (s *ReportService) fetchAggregation(ctx context.Context, tenant string, useSearch bool, spec filters.Spec, stacks []string, scope domain.ScopeConstraint, page, pageSize int) ([]domain.AggregationRecord, error) {
	if useSearch {
		return s.deps.Search.Aggregate(ctx, tenant, spec, stacks, scope, -1, -1)
	}
	return s.deps.Relational.Aggregate(ctx, tenant, spec, scope, page, pageSize)
}

// cachedValues runs the values fan-out for one endpoint and shapes the
// response the way the values endpoints always have: one single-key object
// per requested field, in request order, page fixed at zero and page size
// equal to the number of fields.
func (s *ReportService) cachedValues(ctx context.Context, tenant string, report source.Report, opts QueryOptions, req domain.ListRequest, base filters.Spec, useSearch bool, scope domain.ScopeConstraint) (domain.PaginatedResponse, error) {
	key := valuesKey(report, base, scope, req)
	return cache.CacheOrCall(ctx, s.deps.Cache, opts.DisableCache, tenant, base.Calculation(), key, base.IntegrationIDs(), 0, func() (domain.PaginatedResponse, error) {
		results, err := fanout.Execute(ctx, s.deps.Pool, base, req.Fields, func(ctx context.Context, spec filters.Spec) ([]domain.AggregationRecord, error) {
			return s.fetchAggregation(ctx, tenant, useSearch, spec, nil, scope, 0, defaultPageSize)
		})
		if err != nil {
			return domain.PaginatedResponse{}, err
		}
		records := make([]map[string][]domain.AggregationRecord, 0, len(results))
		for _, r := range results {
			records = append(records, map[string][]domain.AggregationRecord{r.Field: r.Records})
		}
		return domain.NewPaginatedResponse(0, len(records), records), nil
	})
}

// valuesKey extends the base filter hash with the requested fields, since
// the field list changes the response but not the filter.
func valuesKey(report source.Report, base filters.Spec, scope domain.ScopeConstraint, req domain.ListRequest) cache.Key {
	h := base.CacheHash()
	for _, f := range req.Fields {
		h += "/" + f
	}
	return cacheKey(report, h, scope, 0, len(req.Fields), nil)
}
