package filters

import (
	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/pkg/apperror"
)

// jobRunAcrossValues are the built-in grouping dimensions for job runs.
var jobRunAcrossValues = map[string]bool{
	"trend":                    true,
	"job_name":                 true,
	"job_normalized_full_name": true,
	"job_status":               true,
	"cicd_user_id":             true,
	"project_name":             true,
	"instance_name":            true,
	"triage_rule":              true,
}

var jobRunPartialMatchFields = map[string]bool{
	"job_name":                 true,
	"job_normalized_full_name": true,
	"project_name":             true,
	"instance_name":            true,
}

// JobRunFilter is the typed filter for build-pipeline job-run reports.
type JobRunFilter struct {
	across      string
	customField string
	calculation Calculation

	JobNames                  []string
	ExcludeJobNames           []string
	JobNormalizedFullNames    []string
	ExcludeJobNormalizedFullNames []string
	JobStatuses               []string
	ExcludeJobStatuses        []string
	ProjectNames              []string
	ExcludeProjectNames       []string
	InstanceNames             []string
	ExcludeInstanceNames      []string
	CICDUserIDs               []string
	ExcludeCICDUserIDs        []string

	Parameters     map[string]string
	PartialMatches map[string]Match
	StartTimeRange Range
	EndTimeRange   Range
	Sort           map[string]SortOrder

	integrationIDs []string
}

// ParseJobRunFilter normalizes a generic request into a job-run filter.
func ParseJobRunFilter(req domain.ListRequest, calc Calculation) (JobRunFilter, error) {
	return parseJobRunFilter(req, calc, AcrossTrend)
}

func parseJobRunFilter(req domain.ListRequest, calc Calculation, defaultAcross string) (JobRunFilter, error) {
	f := JobRunFilter{calculation: calc}
	f.across, f.customField = ResolveAcross(req.Across, defaultAcross, jobRunAcrossValues)

	var err error
	if f.JobNames, f.ExcludeJobNames, err = ListPair(req, "job_names"); err != nil {
		return JobRunFilter{}, err
	}
	if f.JobNormalizedFullNames, f.ExcludeJobNormalizedFullNames, err = ListPair(req, "job_normalized_full_names"); err != nil {
		return JobRunFilter{}, err
	}
	if f.JobStatuses, f.ExcludeJobStatuses, err = ListPair(req, "job_statuses"); err != nil {
		return JobRunFilter{}, err
	}
	if f.ProjectNames, f.ExcludeProjectNames, err = ListPair(req, "projects"); err != nil {
		return JobRunFilter{}, err
	}
	if f.InstanceNames, f.ExcludeInstanceNames, err = ListPair(req, "instance_names"); err != nil {
		return JobRunFilter{}, err
	}
	if f.CICDUserIDs, f.ExcludeCICDUserIDs, err = ListPair(req, "cicd_user_ids"); err != nil {
		return JobRunFilter{}, err
	}
	if f.PartialMatches, err = PartialMatches(req, jobRunPartialMatchFields); err != nil {
		return JobRunFilter{}, err
	}
	if f.StartTimeRange, err = TimeRange(req.Filter, "start_time"); err != nil {
		return JobRunFilter{}, err
	}
	if f.EndTimeRange, err = TimeRange(req.Filter, "end_time"); err != nil {
		return JobRunFilter{}, err
	}
	f.Parameters = Params(req, "parameters")
	f.Sort = SortFor(req, f.across)
	f.integrationIDs = req.FilterStrings("integration_ids")
	return f, nil
}

func (f JobRunFilter) Domain() ReportDomain      { return DomainJobRun }
func (f JobRunFilter) Across() string            { return f.across }
func (f JobRunFilter) CustomField() string       { return f.customField }
func (f JobRunFilter) Calculation() Calculation  { return f.calculation }
func (f JobRunFilter) IntegrationIDs() []string  { return f.integrationIDs }

// WithAcross clones the filter grouped by field with an ascending per-field
// sort, as the field fan-out requires.
func (f JobRunFilter) WithAcross(field string) Spec {
	out := f
	out.across, out.customField = ResolveAcross(field, field, jobRunAcrossValues)
	out.Sort = map[string]SortOrder{field: SortAsc}
	return out
}

type jobRunHashPayload struct {
	Domain      ReportDomain `json:"domain"`
	Across      string       `json:"across"`
	CustomField string       `json:"custom_field"`
	Calculation Calculation  `json:"calculation"`

	JobNames                  []string `json:"job_names"`
	ExcludeJobNames           []string `json:"exclude_job_names"`
	JobNormalizedFullNames    []string `json:"job_normalized_full_names"`
	ExcludeJobNormalizedFullNames []string `json:"exclude_job_normalized_full_names"`
	JobStatuses               []string `json:"job_statuses"`
	ExcludeJobStatuses        []string `json:"exclude_job_statuses"`
	ProjectNames              []string `json:"projects"`
	ExcludeProjectNames       []string `json:"exclude_projects"`
	InstanceNames             []string `json:"instance_names"`
	ExcludeInstanceNames      []string `json:"exclude_instance_names"`
	CICDUserIDs               []string `json:"cicd_user_ids"`
	ExcludeCICDUserIDs        []string `json:"exclude_cicd_user_ids"`

	Parameters     []keyValue   `json:"parameters"`
	PartialMatches []fieldMatch `json:"partial_matches"`
	StartTimeRange Range        `json:"start_time_range"`
	EndTimeRange   Range        `json:"end_time_range"`
	Sort           []keyValue   `json:"sort"`
	IntegrationIDs []string     `json:"integration_ids"`
}

// CacheHash is a deterministic content hash covering every semantic field.
func (f JobRunFilter) CacheHash() string {
	return contentHash(jobRunHashPayload{
		Domain:      DomainJobRun,
		Across:      f.across,
		CustomField: f.customField,
		Calculation: f.calculation,

		JobNames:                  sortedCopy(f.JobNames),
		ExcludeJobNames:           sortedCopy(f.ExcludeJobNames),
		JobNormalizedFullNames:    sortedCopy(f.JobNormalizedFullNames),
		ExcludeJobNormalizedFullNames: sortedCopy(f.ExcludeJobNormalizedFullNames),
		JobStatuses:               sortedCopy(f.JobStatuses),
		ExcludeJobStatuses:        sortedCopy(f.ExcludeJobStatuses),
		ProjectNames:              sortedCopy(f.ProjectNames),
		ExcludeProjectNames:       sortedCopy(f.ExcludeProjectNames),
		InstanceNames:             sortedCopy(f.InstanceNames),
		ExcludeInstanceNames:      sortedCopy(f.ExcludeInstanceNames),
		CICDUserIDs:               sortedCopy(f.CICDUserIDs),
		ExcludeCICDUserIDs:        sortedCopy(f.ExcludeCICDUserIDs),

		Parameters:     sortedParams(f.Parameters),
		PartialMatches: sortedMatches(f.PartialMatches),
		StartTimeRange: f.StartTimeRange,
		EndTimeRange:   f.EndTimeRange,
		Sort:           sortedSorts(f.Sort),
		IntegrationIDs: sortedCopy(f.integrationIDs),
	})
}

// hasIdentifyingNames reports whether the filter names at least one job,
// either plainly or by normalized full name.
func (f JobRunFilter) hasIdentifyingNames() bool {
	return len(f.JobNames) > 0 || len(f.JobNormalizedFullNames) > 0
}

// DualJobFilter pairs a build-job and a deploy-job sub-filter, as required
// by change-volume style reports.
type DualJobFilter struct {
	BuildJob  JobRunFilter
	DeployJob JobRunFilter
}

// ParseDualJobFilter reads the build_job and deploy_job sub-filters. Each
// must identify at least one job by name or normalized full name.
func ParseDualJobFilter(req domain.ListRequest, calc Calculation) (DualJobFilter, error) {
	buildReq := domain.ListRequest{Filter: req.FilterMap("build_job")}
	deployReq := domain.ListRequest{Filter: req.FilterMap("deploy_job")}

	build, err := parseJobRunFilter(buildReq, calc, AcrossTrend)
	if err != nil {
		return DualJobFilter{}, err
	}
	deploy, err := parseJobRunFilter(deployReq, calc, AcrossTrend)
	if err != nil {
		return DualJobFilter{}, err
	}
	if !build.hasIdentifyingNames() {
		return DualJobFilter{}, apperror.NewValidation(
			"expected either build job names or build job normalized full names, but both are empty")
	}
	if !deploy.hasIdentifyingNames() {
		return DualJobFilter{}, apperror.NewValidation(
			"expected either deploy job names or deploy job normalized full names, but both are empty")
	}
	return DualJobFilter{BuildJob: build, DeployJob: deploy}, nil
}
