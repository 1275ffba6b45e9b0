package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/devlens/devlens/internal/cache"
	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/internal/postprocess"
	"github.com/devlens/devlens/internal/source"
	"github.com/devlens/devlens/pkg/apperror"
)

// StageTimes reports time spent per configured workflow stage. Results
// always come back in the tenant's configured stage order, one record per
// stage, stages with no events included with zeroed figures.
func (s *ReportService) StageTimes(ctx context.Context, tenant string, opts QueryOptions, req domain.ListRequest) (domain.PaginatedResponse, ScopeStatus, error) {
	profileID := req.FilterString("workflow_profile_id")
	if profileID == "" {
		return domain.PaginatedResponse{}, ScopeStatus{}, apperror.NewBadRequest("missing 'workflow_profile_id' filter")
	}
	profile, err := s.deps.Profiles.Get(ctx, tenant, profileID)
	if err != nil {
		return domain.PaginatedResponse{}, ScopeStatus{}, err
	}
	stages := profile.OrderedStages()
	if err := validateStageNames(req.FilterStrings("stages"), stages); err != nil {
		return domain.PaginatedResponse{}, ScopeStatus{}, err
	}

	scope, req, status := s.resolveScope(ctx, tenant, issueIntegrationTypes, req)
	f, err := filters.ParseIssueFilter(req, filters.CalcStageTimes)
	if err != nil {
		return domain.PaginatedResponse{}, status, err
	}
	page, pageSize := s.pageOf(req)
	useSearch := s.deps.Selector.UseSearchForIssues(tenant, source.ReportStageTimes, opts.ForceSource, f, req.Stacks)
	includeSingleState := req.FilterBool("include_single_state", false)

	// Stage configuration shapes the payload, so its identity and revision
	// join the key. A profile edit invalidates naturally.
	filterHash := fmt.Sprintf("%s/%s@%d", f.CacheHash(), profile.ID, profile.UpdatedAt)
	key := cacheKey(source.ReportStageTimes, filterHash, scope, page, pageSize, req.Sort)
	resp, err := cache.CacheOrCall(ctx, s.deps.Cache, opts.DisableCache, tenant, f.Calculation(), key, f.IntegrationIDs(), 0, func() (domain.PaginatedResponse, error) {
		records, err := s.fetchAggregation(ctx, tenant, useSearch, f, req.Stacks, scope, -1, -1)
		if err != nil {
			return domain.PaginatedResponse{}, err
		}
		aligned := postprocess.AlignStages(records, stages, includeSingleState)
		return postprocess.PageSlice(aligned, page, pageSize), nil
	})
	return resp, status, err
}

// validateStageNames rejects requested stage names that are not part of the
// workflow profile, so a typo fails loudly instead of returning an
// all-zero stage.
func validateStageNames(requested []string, stages []domain.StageDefinition) error {
	if len(requested) == 0 {
		return nil
	}
	known := make(map[string]bool, len(stages))
	for _, s := range stages {
		known[strings.ToLower(s.Name)] = true
	}
	for _, name := range requested {
		if !known[strings.ToLower(name)] {
			return apperror.NewValidation(fmt.Sprintf("stage %q is not part of the workflow profile", name))
		}
	}
	return nil
}
