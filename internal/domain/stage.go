package domain

import "sort"

// RatingLevel classifies a stage duration against its configured thresholds.
type RatingLevel string

const (
	RatingGood           RatingLevel = "good"
	RatingNeedsAttention RatingLevel = "needs_attention"
	RatingSlow           RatingLevel = "slow"
)

// EventType identifies the source event kind a workflow stage is measured on.
type EventType string

const (
	EventIssueStatus    EventType = "issue_status"
	EventIssueRelease   EventType = "issue_release"
	EventCommitCreated  EventType = "commit_created"
	EventBuildCompleted EventType = "build_completed"
	EventTicketStatus   EventType = "ticket_status"
)

// ThresholdUnit is the unit of a stage threshold value.
type ThresholdUnit string

const (
	UnitSeconds ThresholdUnit = "SECONDS"
	UnitMinutes ThresholdUnit = "MINUTES"
	UnitHours   ThresholdUnit = "HOURS"
	UnitDays    ThresholdUnit = "DAYS"
)

// Seconds converts a threshold value in this unit to seconds.
func (u ThresholdUnit) Seconds(value int64) int64 {
	switch u {
	case UnitMinutes:
		return value * 60
	case UnitHours:
		return value * 3600
	case UnitDays:
		return value * 86400
	}
	return value
}

// StageDefinition is one configured workflow stage read from tenant
// configuration. Thresholds bound the acceptable median duration.
type StageDefinition struct {
	Name            string        `json:"name"`
	Order           int           `json:"order"`
	Event           EventType     `json:"event"`
	LowerLimitValue int64         `json:"lower_limit_value"`
	LowerLimitUnit  ThresholdUnit `json:"lower_limit_unit"`
	UpperLimitValue int64         `json:"upper_limit_value"`
	UpperLimitUnit  ThresholdUnit `json:"upper_limit_unit"`
}

// Rating grades a duration (seconds) against the stage thresholds: at or
// under the lower limit is good, over the upper limit is slow, anything in
// between needs attention.
func (s StageDefinition) Rating(duration int64) RatingLevel {
	if duration <= s.LowerLimitUnit.Seconds(s.LowerLimitValue) {
		return RatingGood
	}
	if duration > s.UpperLimitUnit.Seconds(s.UpperLimitValue) {
		return RatingSlow
	}
	return RatingNeedsAttention
}

// StageResult is the rating attachment placed on an aggregation record by
// workflow-stage alignment.
type StageResult struct {
	LowerLimitValue int64         `json:"lower_limit_value"`
	LowerLimitUnit  ThresholdUnit `json:"lower_limit_unit"`
	UpperLimitValue int64         `json:"upper_limit_value"`
	UpperLimitUnit  ThresholdUnit `json:"upper_limit_unit"`
	Rating          RatingLevel   `json:"rating"`
}

// NewStageResult rates the given median duration against a stage definition.
func NewStageResult(stage StageDefinition, median int64) *StageResult {
	return &StageResult{
		LowerLimitValue: stage.LowerLimitValue,
		LowerLimitUnit:  stage.LowerLimitUnit,
		UpperLimitValue: stage.UpperLimitValue,
		UpperLimitUnit:  stage.UpperLimitUnit,
		Rating:          stage.Rating(median),
	}
}

// WorkflowProfile is an ordered set of configured stages for a tenant.
type WorkflowProfile struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	UpdatedAt int64             `json:"updated_at"`
	PreStages []StageDefinition `json:"pre_stages"`
	PostStages []StageDefinition `json:"post_stages"`
}

// OrderedStages returns pre- and post-development stages sorted by their
// configured order, filtered to the given event types when any are passed.
func (p WorkflowProfile) OrderedStages(events ...EventType) []StageDefinition {
	stages := make([]StageDefinition, 0, len(p.PreStages)+len(p.PostStages))
	stages = append(stages, sortedByOrder(p.PreStages)...)
	stages = append(stages, sortedByOrder(p.PostStages)...)
	if len(events) == 0 {
		return stages
	}
	allowed := make(map[EventType]bool, len(events))
	for _, e := range events {
		allowed[e] = true
	}
	out := stages[:0]
	for _, s := range stages {
		if allowed[s.Event] {
			out = append(out, s)
		}
	}
	return out
}

func sortedByOrder(stages []StageDefinition) []StageDefinition {
	out := make([]StageDefinition, len(stages))
	copy(out, stages)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
