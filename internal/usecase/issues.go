package usecase

import (
	"context"
	"strings"

	"github.com/devlens/devlens/internal/cache"
	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/internal/postprocess"
	"github.com/devlens/devlens/internal/source"
	"github.com/devlens/devlens/pkg/apperror"
)

var issueIntegrationTypes = []string{"issue_tracker"}

// IssuesAggregate groups tracked issues by the requested dimension. When
// the caller asks for epic summaries, stacked breakdowns come back with the
// epic's display summary attached.
func (s *ReportService) IssuesAggregate(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	scope, req, status := s.resolveScope(ctx, tenant, issueIntegrationTypes, req)
	f, err := filters.ParseIssueFilter(req, calcOf(req))
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	page, pageSize := s.pageOf(req)
	useSearch := s.deps.Selector.UseSearchForIssues(tenant, source.ReportIssuesAggregate, opts.ForceSource, f, req.Stacks)
	fetchEpicSummary := req.FilterBool("fetch_epic_summary", false)

	// The flag changes the cached payload, so it has to change the key.
	filterHash := f.CacheHash()
	if fetchEpicSummary {
		filterHash += "/epic_summary"
	}
	key := cacheKey(source.ReportIssuesAggregate, filterHash, scope, page, pageSize, req.Sort)
	resp, err := cache.CacheOrCall(ctx, s.deps.Cache, opts.DisableCache, tenant, f.Calculation(), key, f.IntegrationIDs(), 0, func() (domain.PaginatedResponse, error) {
		records, err := s.fetchAggregation(ctx, tenant, useSearch, f, req.Stacks, scope, page, pageSize)
		if err != nil {
			return domain.PaginatedResponse{}, err
		}
		if fetchEpicSummary {
			records, err = postprocess.EnrichStackSummaries(ctx, s.deps.Lookup, tenant, records)
			if err != nil {
				return domain.PaginatedResponse{}, err
			}
		}
		if useSearch {
			return postprocess.PageSlice(records, page, pageSize), nil
		}
		return domain.NewPaginatedResponse(page, pageSize, records), nil
	})
	return resp, status, err
}

// IssuesList serves flat drilldown listings. Aggregation-only keys are
// stripped from the filter first so that a drilldown launched from a chart
// cell never re-applies the chart's grouping.
func (s *ReportService) IssuesList(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	scope, req, status := s.resolveScope(ctx, tenant, issueIntegrationTypes, req)
	req = sanitizeDrilldown(req)
	f, err := filters.ParseIssueFilter(req, filters.CalcCount)
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	page, pageSize := s.pageOf(req)

	key := cacheKey(source.ReportIssuesList, f.CacheHash(), scope, page, pageSize, req.Sort)
	resp, err := cache.CacheOrCall(ctx, s.deps.Cache, opts.DisableCache, tenant, f.Calculation(), key, f.IntegrationIDs(), 0, func() (domain.PaginatedResponse, error) {
		rows, total, err := s.deps.IssueList.List(ctx, tenant, f, scope, page, pageSize)
		if err != nil {
			return domain.PaginatedResponse{}, err
		}
		rows, err = postprocess.EnrichIssueRows(ctx, s.deps.Lookup, tenant, rows)
		if err != nil {
			return domain.PaginatedResponse{}, err
		}
		return domain.NewCountedResponse(page, pageSize, int(total), rows), nil
	})
	return resp, status, err
}

// IssuesValues fans out one distinct-values aggregation per requested
// field.
func (s *ReportService) IssuesValues(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	scope, req, status := s.resolveScope(ctx, tenant, issueIntegrationTypes, req)
	f, err := filters.ParseIssueFilter(req, filters.CalcValues)
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	useSearch := s.deps.Selector.UseSearchForIssues(tenant, source.ReportIssuesValues, opts.ForceSource, f, nil)
	resp, err := s.cachedValues(ctx, tenant, source.ReportIssuesValues, opts, req, f, useSearch, scope)
	return resp, status, err
}

// IssueCustomFieldValues is the values fan-out restricted to tenant-defined
// custom fields. Every requested field must carry the custom-field marker.
func (s *ReportService) IssueCustomFieldValues(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	for _, field := range req.Fields {
		if !strings.HasPrefix(field, filters.CustomFieldPrefix) {
			return domain.PaginatedResponse{}, ScopeStatus{}, apperror.NewBadRequest(
				"field '" + field + "' is not a custom field")
		}
	}
	scope, req, status := s.resolveScope(ctx, tenant, issueIntegrationTypes, req)
	f, err := filters.ParseIssueFilter(req, filters.CalcValues)
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	useSearch := s.deps.Selector.UseSearchForIssues(tenant, source.ReportIssueCustomValues, opts.ForceSource, f, nil)
	resp, err := s.cachedValues(ctx, tenant, source.ReportIssueCustomValues, opts, req, f, useSearch, scope)
	return resp, status, err
}

// drilldownStripKeys are the aggregation-shaping filter keys a flat listing
// must not see.
var drilldownStripKeys = []string{
	"fetch_epic_summary",
	"sprint_count",
}

func sanitizeDrilldown(req domain.ListRequest) domain.ListRequest {
	filter := req.CopyFilter()
	for _, k := range drilldownStripKeys {
		delete(filter, k)
	}
	for k := range filter {
		if strings.HasPrefix(k, "sprint_mapping_") {
			delete(filter, k)
		}
	}
	out := req.CloneWithFilter(filter)
	out.Across = ""
	out.Stacks = nil
	return out
}
