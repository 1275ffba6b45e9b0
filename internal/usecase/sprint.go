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

// SprintMetrics derives per-sprint planned/delivered/creep figures from
// sprint-mapping aggregations over closed sprints.
func (s *ReportService) SprintMetrics(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	scope, req, status := s.resolveScope(ctx, tenant, issueIntegrationTypes, req)
	req, err := buildSprintRequest(req)
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	f, err := filters.ParseIssueFilter(req, filters.CalcSprintMapping)
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}

	page, pageSize := s.pageOf(req)
	// A sprint_count request means "the N most recent sprints", overriding
	// whatever page window came with the request.
	if n := req.FilterInt("sprint_count", 0); n > 0 {
		page, pageSize = 0, n
	}
	useSearch := s.deps.Selector.UseSearchForIssues(tenant, source.ReportSprintMetrics, opts.ForceSource, f, nil)
	settings := sprintSettings(req)

	key := cacheKey(source.ReportSprintMetrics, f.CacheHash(), scope, page, pageSize, req.Sort)
	resp, err := cache.CacheOrCall(ctx, s.deps.Cache, opts.DisableCache, tenant, f.Calculation(), key, f.IntegrationIDs(), 0, func() (domain.PaginatedResponse, error) {
		var records []domain.AggregationRecord
		var total int
		if useSearch {
			full, err := s.deps.Search.Aggregate(ctx, tenant, f, nil, scope, -1, -1)
			if err != nil {
				return domain.PaginatedResponse{}, err
			}
			paged := postprocess.PageSlice(full, page, pageSize)
			records = paged.Records.([]domain.AggregationRecord)
			total = len(full)
		} else {
			var err error
			records, err = s.deps.Relational.Aggregate(ctx, tenant, f, scope, page, pageSize)
			if err != nil {
				return domain.PaginatedResponse{}, err
			}
			count, err := s.deps.Relational.Count(ctx, tenant, f.WithCalculation(filters.CalcSprintMappingCount), scope)
			if err != nil {
				return domain.PaginatedResponse{}, err
			}
			total = int(count)
		}
		metrics, err := s.deps.Sprints.Calculate(ctx, tenant, records, settings)
		if err != nil {
			return domain.PaginatedResponse{}, err
		}
		return domain.NewCountedResponse(page, pageSize, total, metrics), nil
	})
	return resp, status, err
}

// buildSprintRequest rewrites the caller-facing sprint filter keys into the
// sprint-mapping keys the issue filter understands. At least one sprint
// date window must be present so the metric never scans every sprint a
// tenant ever ran.
func buildSprintRequest(req domain.ListRequest) (domain.ListRequest, error) {
	completed, err := filters.TimeRange(req.Filter, "completed_at")
	if err != nil {
		return domain.ListRequest{}, err
	}
	started, err := filters.TimeRange(req.Filter, "started_at")
	if err != nil {
		return domain.ListRequest{}, err
	}
	planned, err := filters.TimeRange(req.Filter, "planned_ended_at")
	if err != nil {
		return domain.ListRequest{}, err
	}
	if completed.IsZero() && started.IsZero() && planned.IsZero() {
		return domain.ListRequest{}, apperror.NewValidation(
			"sprint metrics require a completed_at, started_at or planned_ended_at filter")
	}

	filter := req.CopyFilter()
	setRange(filter, "sprint_mapping_sprint_completed_at", completed)
	setRange(filter, "sprint_mapping_sprint_started_at", started)
	setRange(filter, "sprint_mapping_sprint_planned_completed_at", planned)
	if states := req.FilterStrings("sprint_states"); len(states) > 0 {
		filter["sprint_mapping_sprint_state"] = states[0]
	}
	copyKey(filter, "sprint_names", "sprint_mapping_sprint_names")
	copyKey(filter, "exclude_sprint_names", "sprint_mapping_exclude_sprint_names")
	copyKey(filter, "sprint_name_contains", "sprint_mapping_sprint_name_contains")
	copyKey(filter, "sprint_name_starts_with", "sprint_mapping_sprint_name_starts_with")
	copyKey(filter, "sprint_name_ends_with", "sprint_mapping_sprint_name_ends_with")
	return req.CloneWithFilter(filter), nil
}

func setRange(filter map[string]interface{}, prefix string, r filters.Range) {
	if r.Start != nil {
		filter[prefix+"_after"] = *r.Start
	}
	if r.End != nil {
		filter[prefix+"_before"] = *r.End
	}
}

func copyKey(filter map[string]interface{}, from, to string) {
	if v, ok := filter[from]; ok {
		if _, taken := filter[to]; !taken {
			filter[to] = v
		}
	}
}

func sprintSettings(req domain.ListRequest) domain.SprintMetricsSettings {
	done := req.FilterStrings("additional_done_statuses")
	for i, s := range done {
		done[i] = strings.ToLower(s)
	}
	return domain.SprintMetricsSettings{
		IncludeIssueKeys:       req.FilterBool("include_issue_keys", false),
		CreepBuffer:            req.FilterInt("creep_buffer", 0),
		AdditionalDoneStatuses: done,
		TreatOutsideOfSprintAsPlannedAndDelivered: req.FilterBool("treat_outside_of_sprint_as_planned_and_delivered", false),
	}
}
