// Package source decides, per tenant and per report, whether a query is
// answered from the search-indexed store or the relational store.
package source

import (
	"strings"

	"github.com/devlens/devlens/internal/filters"
)

// Report is a typed report identifier. Config lookups key on these instead
// of raw endpoint strings.
type Report string

const (
	ReportJobRunsAggregate Report = "job_runs/aggregate"
	ReportJobRunsList      Report = "job_runs/list"
	ReportJobRunsValues    Report = "job_runs/values"
	ReportJobChangeVolume  Report = "job_runs/change_volume"

	ReportIssuesAggregate Report = "issues/aggregate"
	ReportIssuesList      Report = "issues/list"
	ReportIssuesValues    Report = "issues/values"
	ReportIssueCustomValues Report = "issues/custom_field_values"
	ReportSprintMetrics   Report = "issues/sprint_metrics"
	ReportStageTimes      Report = "issues/stage_times"

	ReportCommitsAggregate Report = "commits/aggregate"
	ReportCommitsValues    Report = "commits/values"

	ReportTicketsAggregate Report = "tickets/aggregate"
	ReportTicketsValues    Report = "tickets/values"
)

// Override is the tri-state per-request source override.
type Override int

const (
	OverrideUnset Override = iota
	OverrideSearch
	OverrideRelational
)

// ParseOverride reads the force_source request parameter. Unrecognized
// values leave the override unset.
func ParseOverride(raw string) Override {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "search", "es":
		return OverrideSearch
	case "relational", "db":
		return OverrideRelational
	}
	return OverrideUnset
}

// TenantSet is an immutable membership set.
type TenantSet map[string]bool

// Config is the immutable source-selection table, loaded once at startup
// and safe to share across concurrent requests. Search eligibility is
// additive; a relational pin always wins so that an incident rollback needs
// a config change only.
type Config struct {
	// SearchAllowed enables the search store for a tenant on every report.
	SearchAllowed TenantSet
	// SearchAllowedByReport enables the search store per report.
	SearchAllowedByReport map[Report]TenantSet
	// RelationalPinned forces the relational store for a tenant globally.
	RelationalPinned TenantSet
	// RelationalPinnedByReport forces the relational store per report.
	RelationalPinnedByReport map[Report]TenantSet
}

// Selector resolves the backing store once per request. It is a pure
// function of its immutable config snapshot.
type Selector struct {
	cfg Config
}

// NewSelector builds a selector over a config snapshot.
func NewSelector(cfg Config) *Selector {
	return &Selector{cfg: cfg}
}

// UseSearch decides the backing store. Precedence, first match wins:
// explicit override, relational pin (global or per report), search
// allow-list (global or per report), then the relational default.
func (s *Selector) UseSearch(tenant string, report Report, override Override) bool {
	switch override {
	case OverrideSearch:
		return true
	case OverrideRelational:
		return false
	}
	if s.cfg.RelationalPinned[tenant] || s.cfg.RelationalPinnedByReport[report][tenant] {
		return false
	}
	if s.cfg.SearchAllowed[tenant] || s.cfg.SearchAllowedByReport[report][tenant] {
		return true
	}
	return false
}

// UseSearchForIssues applies the issue-domain rule on top of UseSearch:
// ticket-category classification is not expressible against the search
// index, so any request grouping, stacking or filtering by it is pinned to
// the relational store regardless of overrides and allow-lists.
func (s *Selector) UseSearchForIssues(tenant string, report Report, override Override, f filters.IssueFilter, stacks []string) bool {
	if f.TicketCategorySpecified(stacks) {
		return false
	}
	return s.UseSearch(tenant, report, override)
}
