package usecase

import (
	"context"

	"github.com/devlens/devlens/internal/cache"
	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/internal/postprocess"
	"github.com/devlens/devlens/internal/source"
)

var commitIntegrationTypes = []string{"scm"}

// CommitsAggregate groups commit activity by the requested dimension.
func (s *ReportService) CommitsAggregate(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	scope, req, status := s.resolveScope(ctx, tenant, commitIntegrationTypes, req)
	f, err := filters.ParseCommitFilter(req, calcOf(req))
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	page, pageSize := s.pageOf(req)
	useSearch := s.deps.Selector.UseSearch(tenant, source.ReportCommitsAggregate, opts.ForceSource)

	key := cacheKey(source.ReportCommitsAggregate, f.CacheHash(), scope, page, pageSize, req.Sort)
	resp, err := cache.CacheOrCall(ctx, s.deps.Cache, opts.DisableCache, tenant, f.Calculation(), key, f.IntegrationIDs(), 0, func() (domain.PaginatedResponse, error) {
		records, err := s.fetchAggregation(ctx, tenant, useSearch, f, req.Stacks, scope, page, pageSize)
		if err != nil {
			return domain.PaginatedResponse{}, err
		}
		if useSearch {
			return postprocess.PageSlice(records, page, pageSize), nil
		}
		return domain.NewPaginatedResponse(page, pageSize, records), nil
	})
	return resp, status, err
}

// CommitsValues fans out one distinct-values aggregation per requested
// field.
func (s *ReportService) CommitsValues(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	scope, req, status := s.resolveScope(ctx, tenant, commitIntegrationTypes, req)
	f, err := filters.ParseCommitFilter(req, filters.CalcValues)
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	useSearch := s.deps.Selector.UseSearch(tenant, source.ReportCommitsValues, opts.ForceSource)
	resp, err := s.cachedValues(ctx, tenant, source.ReportCommitsValues, opts, req, f, useSearch, scope)
	return resp, status, err
}
