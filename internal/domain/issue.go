package domain

// IssueRow is a single issue in a flat drilldown listing.
type IssueRow struct {
	Key           string   `json:"key"`
	Project       string   `json:"project,omitempty"`
	Summary       string   `json:"summary,omitempty"`
	Status        string   `json:"status,omitempty"`
	Priority      string   `json:"priority,omitempty"`
	IssueType     string   `json:"issue_type,omitempty"`
	Assignee      string   `json:"assignee,omitempty"`
	Reporter      string   `json:"reporter,omitempty"`
	Labels        []string `json:"labels,omitempty"`
	Components    []string `json:"components,omitempty"`
	Epic          string   `json:"epic,omitempty"`
	EpicSummary   string   `json:"epic_summary,omitempty"`
	StoryPoints   float64  `json:"story_points,omitempty"`
	IssueCreated  int64    `json:"issue_created_at,omitempty"`
	IssueUpdated  int64    `json:"issue_updated_at,omitempty"`
	IssueResolved int64    `json:"issue_resolved_at,omitempty"`
}
