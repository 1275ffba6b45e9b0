package domain

// SprintMappingRecord is the payload of one sprint-mapping aggregation
// record: one issue-to-sprint mapping within a closed sprint.
type SprintMappingRecord struct {
	SprintID       string      `json:"sprint_id"`
	SprintName     string      `json:"sprint_name"`
	SprintGoal     string      `json:"sprint_goal,omitempty"`
	StartedAt      int64       `json:"started_at"`
	CompletedAt    int64       `json:"completed_at"`
	PlannedEndedAt int64       `json:"planned_ended_at"`
	Issue          SprintIssue `json:"issue"`
}

// SprintIssue is the per-issue slice of a sprint mapping.
type SprintIssue struct {
	Key                   string  `json:"key"`
	Type                  string  `json:"type"`
	Status                string  `json:"status"`
	StoryPointsPlanned    float64 `json:"story_points_planned"`
	StoryPointsDelivered  float64 `json:"story_points_delivered"`
	AddedAt               int64   `json:"added_at"`
	Planned               bool    `json:"planned"`
	Delivered             bool    `json:"delivered"`
	OutsideOfSprint       bool    `json:"outside_of_sprint"`
}

// SprintMetricsSettings tunes sprint-metrics derivation. Read from the
// request filter, never mutated by the pipeline.
type SprintMetricsSettings struct {
	IncludeIssueKeys                          bool
	CreepBuffer                               int
	AdditionalDoneStatuses                    []string
	TreatOutsideOfSprintAsPlannedAndDelivered bool
}

// SprintMetrics is the derived per-sprint planned/delivered/creep summary.
type SprintMetrics struct {
	SprintID             string   `json:"sprint_id"`
	SprintName           string   `json:"sprint_name"`
	SprintGoal           string   `json:"sprint_goal,omitempty"`
	StartedAt            int64    `json:"started_at"`
	CompletedAt          int64    `json:"completed_at"`
	CommittedPoints      float64  `json:"committed_points"`
	CommitDeliveredPoints float64 `json:"commit_delivered_points"`
	DeliveredPoints      float64  `json:"delivered_points"`
	CreepPoints          float64  `json:"creep_points"`
	DeliveredCreepPoints float64  `json:"delivered_creep_points"`
	CommittedKeys        []string `json:"committed_keys,omitempty"`
	DeliveredKeys        []string `json:"delivered_keys,omitempty"`
	CreepKeys            []string `json:"creep_keys,omitempty"`
	TotalIssues          int      `json:"total_issues"`
	TotalUnestimatedIssues int    `json:"total_unestimated_issues"`
}
