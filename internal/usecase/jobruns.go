package usecase

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/devlens/devlens/internal/cache"
	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/internal/postprocess"
	"github.com/devlens/devlens/internal/source"
)

var jobRunIntegrationTypes = []string{"cicd"}

// calcOf reads the requested aggregation kind off the filter, falling back
// to a count.
func calcOf(req domain.ListRequest) filters.Calculation {
	if req.FilterString("metric") == string(filters.CalcDuration) {
		return filters.CalcDuration
	}
	return filters.CalcCount
}

// JobRunsAggregate groups pipeline executions by the requested dimension.
func (s *ReportService) JobRunsAggregate(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	scope, req, status := s.resolveScope(ctx, tenant, jobRunIntegrationTypes, req)
	f, err := filters.ParseJobRunFilter(req, calcOf(req))
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	page, pageSize := s.pageOf(req)
	useSearch := s.deps.Selector.UseSearch(tenant, source.ReportJobRunsAggregate, opts.ForceSource)

	key := cacheKey(source.ReportJobRunsAggregate, f.CacheHash(), scope, page, pageSize, req.Sort)
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

// JobRunsValues fans out one distinct-values aggregation per requested
// field.
func (s *ReportService) JobRunsValues(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	scope, req, status := s.resolveScope(ctx, tenant, jobRunIntegrationTypes, req)
	f, err := filters.ParseJobRunFilter(req, filters.CalcValues)
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	useSearch := s.deps.Selector.UseSearch(tenant, source.ReportJobRunsValues, opts.ForceSource)
	resp, err := s.cachedValues(ctx, tenant, source.ReportJobRunsValues, opts, req, f, useSearch, scope)
	return resp, status, err
}

// JobChangeVolume correlates a build job's output against a deploy job's
// cadence: both sub-filters aggregate over the same trend buckets and the
// result merges them key by key, build figures in Total and deploy figures
// in Count.
func (s *ReportService) JobChangeVolume(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	scope, req, status := s.resolveScope(ctx, tenant, jobRunIntegrationTypes, req)
	dual, err := filters.ParseDualJobFilter(req, calcOf(req))
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	page, pageSize := s.pageOf(req)
	useSearch := s.deps.Selector.UseSearch(tenant, source.ReportJobChangeVolume, opts.ForceSource)

	key := cacheKey(source.ReportJobChangeVolume,
		dual.BuildJob.CacheHash()+"/"+dual.DeployJob.CacheHash(),
		scope, page, pageSize, req.Sort)
	resp, err := cache.CacheOrCall(ctx, s.deps.Cache, opts.DisableCache, tenant, dual.BuildJob.Calculation(), key, dual.BuildJob.IntegrationIDs(), 0, func() (domain.PaginatedResponse, error) {
		var build, deploy []domain.AggregationRecord
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return s.deps.Pool.Do(gctx, func() error {
				var err error
				build, err = s.fetchAggregation(gctx, tenant, useSearch, dual.BuildJob, nil, scope, -1, -1)
				return err
			})
		})
		g.Go(func() error {
			return s.deps.Pool.Do(gctx, func() error {
				var err error
				deploy, err = s.fetchAggregation(gctx, tenant, useSearch, dual.DeployJob, nil, scope, -1, -1)
				return err
			})
		})
		if err := g.Wait(); err != nil {
			return domain.PaginatedResponse{}, err
		}
		merged := mergeChangeVolume(build, deploy)
		return postprocess.PageSlice(merged, page, pageSize), nil
	})
	return resp, status, err
}

// mergeChangeVolume joins two bucketed aggregations on their keys,
// preserving the build-side order and appending deploy-only buckets after.
func mergeChangeVolume(build, deploy []domain.AggregationRecord) []domain.AggregationRecord {
	deployByKey := make(map[string]domain.AggregationRecord, len(deploy))
	for _, d := range deploy {
		deployByKey[d.Key] = d
	}
	out := make([]domain.AggregationRecord, 0, len(build))
	seen := make(map[string]bool, len(build))
	for _, b := range build {
		r := domain.AggregationRecord{Key: b.Key, AdditionalKey: b.AdditionalKey, Total: b.Count}
		if d, ok := deployByKey[b.Key]; ok {
			r.Count = d.Count
		}
		out = append(out, r)
		seen[b.Key] = true
	}
	for _, d := range deploy {
		if seen[d.Key] {
			continue
		}
		out = append(out, domain.AggregationRecord{Key: d.Key, AdditionalKey: d.AdditionalKey, Count: d.Count})
	}
	return out
}
