package filters

import (
	"github.com/devlens/devlens/internal/domain"
)

var issueAcrossValues = map[string]bool{
	"trend":           true,
	"project":         true,
	"status":          true,
	"priority":        true,
	"issue_type":      true,
	"assignee":        true,
	"reporter":        true,
	"component":       true,
	"label":           true,
	"epic":            true,
	"version":         true,
	"sprint":          true,
	"velocity_stage":  true,
	"ticket_category": true,
	"sprint_mapping":  true,
	"none":            true,
}

var issuePartialMatchFields = map[string]bool{
	"summary":   true,
	"project":   true,
	"assignee":  true,
	"reporter":  true,
	"component": true,
	"label":     true,
	"epic":      true,
	"version":   true,
	"sprint_name": true,
}

// SprintMappingFilter narrows sprint-mapping aggregations to closed sprints
// in a completion/start/planned-end window. It is built internally by the
// sprint-metrics pipeline, not supplied by callers directly.
type SprintMappingFilter struct {
	SprintState            string   `json:"sprint_state,omitempty"`
	CompletedAtAfter       *int64   `json:"completed_at_after,omitempty"`
	CompletedAtBefore      *int64   `json:"completed_at_before,omitempty"`
	StartedAtAfter         *int64   `json:"started_at_after,omitempty"`
	StartedAtBefore        *int64   `json:"started_at_before,omitempty"`
	PlannedEndedAtAfter    *int64   `json:"planned_ended_at_after,omitempty"`
	PlannedEndedAtBefore   *int64   `json:"planned_ended_at_before,omitempty"`
	SprintNames            []string `json:"sprint_names,omitempty"`
	ExcludeSprintNames     []string `json:"exclude_sprint_names,omitempty"`
	SprintNameContains     string   `json:"sprint_name_contains,omitempty"`
	SprintNameStartsWith   string   `json:"sprint_name_starts_with,omitempty"`
	SprintNameEndsWith     string   `json:"sprint_name_ends_with,omitempty"`
	IgnorableIssueType     *bool    `json:"ignorable_issue_type,omitempty"`
}

// IssueFilter is the typed filter for issue-tracker reports.
type IssueFilter struct {
	across      string
	customField string
	calculation Calculation

	Keys              []string
	ExcludeKeys       []string
	Projects          []string
	ExcludeProjects   []string
	Statuses          []string
	ExcludeStatuses   []string
	Priorities        []string
	ExcludePriorities []string
	IssueTypes        []string
	ExcludeIssueTypes []string
	Assignees         []string
	ExcludeAssignees  []string
	Reporters         []string
	ExcludeReporters  []string
	Labels            []string
	ExcludeLabels     []string
	Components        []string
	ExcludeComponents []string
	Epics             []string
	ExcludeEpics      []string
	Versions          []string
	ExcludeVersions   []string
	VelocityStages    []string
	ExcludeVelocityStages []string

	// Ticket-category classification is relational-only; the source
	// selector pins requests carrying any of these to the relational store.
	TicketCategorizationSchemeID string
	TicketCategories             []string

	CustomFields   map[string]string
	PartialMatches map[string]Match
	CreatedRange   Range
	UpdatedRange   Range
	ResolvedRange  Range
	SprintMapping  SprintMappingFilter
	Sort           map[string]SortOrder

	integrationIDs []string
}

// ParseIssueFilter normalizes a generic request into an issue filter.
func ParseIssueFilter(req domain.ListRequest, calc Calculation) (IssueFilter, error) {
	f := IssueFilter{calculation: calc}
	f.across, f.customField = ResolveAcross(req.Across, AcrossTrend, issueAcrossValues)

	var err error
	pairs := []struct {
		field            string
		include, exclude *[]string
	}{
		{"keys", &f.Keys, &f.ExcludeKeys},
		{"projects", &f.Projects, &f.ExcludeProjects},
		{"statuses", &f.Statuses, &f.ExcludeStatuses},
		{"priorities", &f.Priorities, &f.ExcludePriorities},
		{"issue_types", &f.IssueTypes, &f.ExcludeIssueTypes},
		{"assignees", &f.Assignees, &f.ExcludeAssignees},
		{"reporters", &f.Reporters, &f.ExcludeReporters},
		{"labels", &f.Labels, &f.ExcludeLabels},
		{"components", &f.Components, &f.ExcludeComponents},
		{"epics", &f.Epics, &f.ExcludeEpics},
		{"versions", &f.Versions, &f.ExcludeVersions},
		{"velocity_stages", &f.VelocityStages, &f.ExcludeVelocityStages},
	}
	for _, p := range pairs {
		if *p.include, *p.exclude, err = ListPair(req, p.field); err != nil {
			return IssueFilter{}, err
		}
	}
	if f.PartialMatches, err = PartialMatches(req, issuePartialMatchFields); err != nil {
		return IssueFilter{}, err
	}
	if f.CreatedRange, err = TimeRange(req.Filter, "issue_created_at"); err != nil {
		return IssueFilter{}, err
	}
	if f.UpdatedRange, err = TimeRange(req.Filter, "issue_updated_at"); err != nil {
		return IssueFilter{}, err
	}
	if f.ResolvedRange, err = TimeRange(req.Filter, "issue_resolved_at"); err != nil {
		return IssueFilter{}, err
	}
	f.TicketCategorizationSchemeID = req.FilterString("ticket_categorization_scheme")
	f.TicketCategories = req.FilterStrings("ticket_categories")
	f.CustomFields = Params(req, "custom_fields")
	f.SprintMapping = parseSprintMapping(req)
	f.Sort = SortFor(req, f.across)
	f.integrationIDs = req.FilterStrings("integration_ids")
	return f, nil
}

func parseSprintMapping(req domain.ListRequest) SprintMappingFilter {
	sm := SprintMappingFilter{
		SprintState:          req.FilterString("sprint_mapping_sprint_state"),
		SprintNames:          req.FilterStrings("sprint_mapping_sprint_names"),
		ExcludeSprintNames:   req.FilterStrings("sprint_mapping_exclude_sprint_names"),
		SprintNameContains:   req.FilterString("sprint_mapping_sprint_name_contains"),
		SprintNameStartsWith: req.FilterString("sprint_mapping_sprint_name_starts_with"),
		SprintNameEndsWith:   req.FilterString("sprint_mapping_sprint_name_ends_with"),
	}
	sm.CompletedAtAfter = optInt64(req, "sprint_mapping_sprint_completed_at_after")
	sm.CompletedAtBefore = optInt64(req, "sprint_mapping_sprint_completed_at_before")
	sm.StartedAtAfter = optInt64(req, "sprint_mapping_sprint_started_at_after")
	sm.StartedAtBefore = optInt64(req, "sprint_mapping_sprint_started_at_before")
	sm.PlannedEndedAtAfter = optInt64(req, "sprint_mapping_sprint_planned_completed_at_after")
	sm.PlannedEndedAtBefore = optInt64(req, "sprint_mapping_sprint_planned_completed_at_before")
	if v, ok := req.Filter["sprint_mapping_ignorable_issue_type"].(bool); ok {
		sm.IgnorableIssueType = &v
	}
	return sm
}

func optInt64(req domain.ListRequest, key string) *int64 {
	if req.Filter == nil {
		return nil
	}
	switch v := req.Filter[key].(type) {
	case float64:
		n := int64(v)
		return &n
	case int64:
		return &v
	case int:
		n := int64(v)
		return &n
	}
	return nil
}

func (f IssueFilter) Domain() ReportDomain     { return DomainIssue }
func (f IssueFilter) Across() string           { return f.across }
func (f IssueFilter) CustomField() string      { return f.customField }
func (f IssueFilter) Calculation() Calculation { return f.calculation }
func (f IssueFilter) IntegrationIDs() []string { return f.integrationIDs }

func (f IssueFilter) WithAcross(field string) Spec {
	out := f
	out.across, out.customField = ResolveAcross(field, field, issueAcrossValues)
	out.Sort = map[string]SortOrder{field: SortAsc}
	return out
}

// WithCalculation clones the filter with a different aggregation kind.
func (f IssueFilter) WithCalculation(calc Calculation) IssueFilter {
	out := f
	out.calculation = calc
	return out
}

// TicketCategorySpecified reports whether the request groups, stacks or
// filters by ticket category, which the search index cannot answer.
func (f IssueFilter) TicketCategorySpecified(stacks []string) bool {
	if f.across == "ticket_category" {
		return true
	}
	for _, s := range stacks {
		if s == "ticket_category" {
			return true
		}
	}
	return f.TicketCategorizationSchemeID != "" || len(f.TicketCategories) > 0
}

type issueHashPayload struct {
	Domain      ReportDomain `json:"domain"`
	Across      string       `json:"across"`
	CustomField string       `json:"custom_field"`
	Calculation Calculation  `json:"calculation"`

	Keys              []string `json:"keys"`
	ExcludeKeys       []string `json:"exclude_keys"`
	Projects          []string `json:"projects"`
	ExcludeProjects   []string `json:"exclude_projects"`
	Statuses          []string `json:"statuses"`
	ExcludeStatuses   []string `json:"exclude_statuses"`
	Priorities        []string `json:"priorities"`
	ExcludePriorities []string `json:"exclude_priorities"`
	IssueTypes        []string `json:"issue_types"`
	ExcludeIssueTypes []string `json:"exclude_issue_types"`
	Assignees         []string `json:"assignees"`
	ExcludeAssignees  []string `json:"exclude_assignees"`
	Reporters         []string `json:"reporters"`
	ExcludeReporters  []string `json:"exclude_reporters"`
	Labels            []string `json:"labels"`
	ExcludeLabels     []string `json:"exclude_labels"`
	Components        []string `json:"components"`
	ExcludeComponents []string `json:"exclude_components"`
	Epics             []string `json:"epics"`
	ExcludeEpics      []string `json:"exclude_epics"`
	Versions          []string `json:"versions"`
	ExcludeVersions   []string `json:"exclude_versions"`
	VelocityStages    []string `json:"velocity_stages"`
	ExcludeVelocityStages []string `json:"exclude_velocity_stages"`

	TicketCategorizationSchemeID string   `json:"ticket_categorization_scheme"`
	TicketCategories             []string `json:"ticket_categories"`

	CustomFields   []keyValue          `json:"custom_fields"`
	PartialMatches []fieldMatch        `json:"partial_matches"`
	CreatedRange   Range               `json:"created_range"`
	UpdatedRange   Range               `json:"updated_range"`
	ResolvedRange  Range               `json:"resolved_range"`
	SprintMapping  SprintMappingFilter `json:"sprint_mapping"`
	Sort           []keyValue          `json:"sort"`
	IntegrationIDs []string            `json:"integration_ids"`
}

func (f IssueFilter) CacheHash() string {
	sm := f.SprintMapping
	sm.SprintNames = sortedCopy(sm.SprintNames)
	sm.ExcludeSprintNames = sortedCopy(sm.ExcludeSprintNames)
	return contentHash(issueHashPayload{
		Domain:      DomainIssue,
		Across:      f.across,
		CustomField: f.customField,
		Calculation: f.calculation,

		Keys:              sortedCopy(f.Keys),
		ExcludeKeys:       sortedCopy(f.ExcludeKeys),
		Projects:          sortedCopy(f.Projects),
		ExcludeProjects:   sortedCopy(f.ExcludeProjects),
		Statuses:          sortedCopy(f.Statuses),
		ExcludeStatuses:   sortedCopy(f.ExcludeStatuses),
		Priorities:        sortedCopy(f.Priorities),
		ExcludePriorities: sortedCopy(f.ExcludePriorities),
		IssueTypes:        sortedCopy(f.IssueTypes),
		ExcludeIssueTypes: sortedCopy(f.ExcludeIssueTypes),
		Assignees:         sortedCopy(f.Assignees),
		ExcludeAssignees:  sortedCopy(f.ExcludeAssignees),
		Reporters:         sortedCopy(f.Reporters),
		ExcludeReporters:  sortedCopy(f.ExcludeReporters),
		Labels:            sortedCopy(f.Labels),
		ExcludeLabels:     sortedCopy(f.ExcludeLabels),
		Components:        sortedCopy(f.Components),
		ExcludeComponents: sortedCopy(f.ExcludeComponents),
		Epics:             sortedCopy(f.Epics),
		ExcludeEpics:      sortedCopy(f.ExcludeEpics),
		Versions:          sortedCopy(f.Versions),
		ExcludeVersions:   sortedCopy(f.ExcludeVersions),
		VelocityStages:    sortedCopy(f.VelocityStages),
		ExcludeVelocityStages: sortedCopy(f.ExcludeVelocityStages),

		TicketCategorizationSchemeID: f.TicketCategorizationSchemeID,
		TicketCategories:             sortedCopy(f.TicketCategories),

		CustomFields:   sortedParams(f.CustomFields),
		PartialMatches: sortedMatches(f.PartialMatches),
		CreatedRange:   f.CreatedRange,
		UpdatedRange:   f.UpdatedRange,
		ResolvedRange:  f.ResolvedRange,
		SprintMapping:  sm,
		Sort:           sortedSorts(f.Sort),
		IntegrationIDs: sortedCopy(f.integrationIDs),
	})
}
