// Package filters turns the generic list request into typed, validated,
// immutable filter specs, one per report domain. Parsing is a pure
// transform: it never touches a store and never mutates the request.
package filters

// ReportDomain identifies which underlying data domain a filter targets.
type ReportDomain string

const (
	DomainJobRun ReportDomain = "job_run"
	DomainIssue  ReportDomain = "issue"
	DomainCommit ReportDomain = "commit"
	DomainTicket ReportDomain = "ticket"
)

// Calculation is the aggregation computed over the grouped records.
type Calculation string

const (
	CalcCount            Calculation = "count"
	CalcDuration         Calculation = "duration"
	CalcTrend            Calculation = "trend"
	CalcStageTimes       Calculation = "stage_times"
	CalcSprintMapping    Calculation = "sprint_mapping"
	CalcSprintMappingCount Calculation = "sprint_mapping_count"
	CalcValues           Calculation = "values"
)

// AcrossTrend is the fallback grouping dimension shared by all domains.
const AcrossTrend = "trend"

// CustomFieldPrefix marks an across value that refers to a tenant-defined
// custom field rather than a built-in dimension.
const CustomFieldPrefix = "customfield_"

// AcrossCustomField is the grouping mode used when the requested across
// carries the custom-field marker.
const AcrossCustomField = "custom_field"

// Spec is the behaviour the pipeline needs from every domain filter. The
// concrete specs stay typed; the pipeline only clones them for fan-out and
// hashes them for cache keys.
type Spec interface {
	// Domain names the data domain this spec queries.
	Domain() ReportDomain
	// Across is the resolved grouping dimension.
	Across() string
	// Calculation is the aggregation kind.
	Calculation() Calculation
	// WithAcross clones the spec with a new grouping dimension and an
	// ascending sort on that dimension. Used by the field fan-out.
	WithAcross(field string) Spec
	// CacheHash is a deterministic content hash of every semantic field.
	CacheHash() string
	// IntegrationIDs lists the integrations the result depends on, for
	// targeted cache invalidation.
	IntegrationIDs() []string
}

// Range is a half-open time window; a nil side is unbounded.
type Range struct {
	Start *int64 `json:"start"`
	End   *int64 `json:"end"`
}

// IsZero reports whether both sides are unbounded.
func (r Range) IsZero() bool {
	return r.Start == nil && r.End == nil
}

// Bounded reports whether both sides are set.
func (r Range) Bounded() bool {
	return r.Start != nil && r.End != nil
}

// Match is a partial-match rule for one field. At most one operator is
// meaningful; parsing keeps the first recognized one and ignores the rest.
type Match struct {
	Contains string `json:"contains,omitempty"`
	Begins   string `json:"begins,omitempty"`
	Ends     string `json:"ends,omitempty"`
}

// IsZero reports whether no operator is set.
func (m Match) IsZero() bool {
	return m.Contains == "" && m.Begins == "" && m.Ends == ""
}

// SortOrder is an aggregation sort direction.
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)
