package usecase

import (
	"context"

	"github.com/devlens/devlens/internal/cache"
	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/internal/postprocess"
	"github.com/devlens/devlens/internal/source"
)

var ticketIntegrationTypes = []string{"support"}

// TicketsAggregate groups support tickets by the requested dimension.
func (s *ReportService) TicketsAggregate(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	scope, req, status := s.resolveScope(ctx, tenant, ticketIntegrationTypes, req)
	f, err := filters.ParseTicketFilter(req, calcOf(req))
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	page, pageSize := s.pageOf(req)
	useSearch := s.deps.Selector.UseSearch(tenant, source.ReportTicketsAggregate, opts.ForceSource)

	key := cacheKey(source.ReportTicketsAggregate, f.CacheHash(), scope, page, pageSize, req.Sort)
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

// TicketsValues fans out one distinct-values aggregation per requested
// field.
func (s *ReportService) TicketsValues(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	scope, req, status := s.resolveScope(ctx, tenant, ticketIntegrationTypes, req)
	f, err := filters.ParseTicketFilter(req, filters.CalcValues)
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	useSearch := s.deps.Selector.UseSearch(tenant, source.ReportTicketsValues, opts.ForceSource)
	resp, err := s.cachedValues(ctx, tenant, source.ReportTicketsValues, opts, req, f, useSearch, scope)
	return resp, status, err
}
