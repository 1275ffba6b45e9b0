package persistence

import (
	"fmt"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
)

var jobRunColumns = map[string]string{
	"job_name":                 "job_name",
	"job_normalized_full_name": "job_normalized_full_name",
	"job_status":               "job_status",
	"project_name":             "project",
	"instance_name":            "instance_name",
	"cicd_user_id":             "cicd_user_id",
	"triage_rule":              "triage_rule",
	"trend":                    "to_char(to_timestamp(started_at), 'YYYY-MM-DD')",
}

func buildJobRunQuery(tenant string, f filters.JobRunFilter, scope domain.ScopeConstraint) (*aggQuery, error) {
	b := &whereBuilder{}
	b.in("job_name", f.JobNames)
	b.notIn("job_name", f.ExcludeJobNames)
	b.in("job_normalized_full_name", f.JobNormalizedFullNames)
	b.notIn("job_normalized_full_name", f.ExcludeJobNormalizedFullNames)
	b.in("job_status", f.JobStatuses)
	b.notIn("job_status", f.ExcludeJobStatuses)
	b.in("project", f.ProjectNames)
	b.notIn("project", f.ExcludeProjectNames)
	b.in("instance_name", f.InstanceNames)
	b.notIn("instance_name", f.ExcludeInstanceNames)
	b.in("cicd_user_id", f.CICDUserIDs)
	b.notIn("cicd_user_id", f.ExcludeCICDUserIDs)
	b.in("integration_id", f.IntegrationIDs())
	b.rng("started_at", f.StartTimeRange)
	b.rng("ended_at", f.EndTimeRange)
	for param, value := range f.Parameters {
		b.conds = append(b.conds, fmt.Sprintf("parameters->>%s = %s", b.arg(param), b.arg(value)))
	}
	for field, m := range f.PartialMatches {
		if col, ok := jobRunColumns[field]; ok {
			b.match(col, m)
		}
	}
	b.scope(scope, jobRunColumns)

	expr, ungrouped := acrossColumn(jobRunColumns, f.Across(), f.CustomField(), "parameters", b)
	return &aggQuery{
		table:        tenantTable(tenant, "job_runs"),
		acrossExpr:   expr,
		durationExpr: "duration",
		calculation:  f.Calculation(),
		where:        b.clause(),
		orderBy:      orderFor(f.Sort, f.Across()),
		args:         b.args,
		ungrouped:    ungrouped,
	}, nil
}

// acrossColumn resolves the grouping expression: a built-in dimension maps
// to its column, a custom-field across reads the JSONB attribute column and
// across=none collapses into a single bucket.
func acrossColumn(columns map[string]string, across, customField, jsonCol string, b *whereBuilder) (string, bool) {
	if across == "none" {
		return b.arg("none"), true
	}
	if across == filters.AcrossCustomField && customField != "" {
		return fmt.Sprintf("%s->>%s", jsonCol, b.arg(customField)), false
	}
	if col, ok := columns[across]; ok {
		return col, false
	}
	return columns["trend"], false
}
