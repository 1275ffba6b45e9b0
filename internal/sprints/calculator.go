// Package sprints derives per-sprint commitment and delivery metrics from
// issue-sprint mapping records.
package sprints

import (
	"context"
	"strings"

	"github.com/devlens/devlens/internal/domain"
)

// Calculator implements the sprint arithmetic over mapping records.
type Calculator struct{}

// NewCalculator returns a stateless sprint calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate folds mapping records into one metrics row per sprint, in the
// order sprints first appear in the input. Records without a mapping
// payload are skipped.
//
// An issue counts as committed when it entered the sprint before the start
// (plus the configured creep buffer) and as creep otherwise. Delivery is
// the mapping's delivered flag, widened by the additional done statuses.
// Issues outside of sprint are normally ignored on the commitment side
// unless the settings fold them into both totals.
func (c *Calculator) Calculate(ctx context.Context, tenant string, records []domain.AggregationRecord, settings domain.SprintMetricsSettings) ([]domain.SprintMetrics, error) {
	doneStatuses := make(map[string]bool, len(settings.AdditionalDoneStatuses))
	for _, s := range settings.AdditionalDoneStatuses {
		doneStatuses[strings.ToLower(s)] = true
	}

	order := []string{}
	bySprint := map[string]*domain.SprintMetrics{}
	for _, rec := range records {
		m := rec.SprintMapping
		if m == nil {
			continue
		}
		metrics, ok := bySprint[m.SprintID]
		if !ok {
			metrics = &domain.SprintMetrics{
				SprintID:    m.SprintID,
				SprintName:  m.SprintName,
				SprintGoal:  m.SprintGoal,
				StartedAt:   m.StartedAt,
				CompletedAt: m.CompletedAt,
			}
			bySprint[m.SprintID] = metrics
			order = append(order, m.SprintID)
		}
		c.fold(metrics, m, settings, doneStatuses)
	}

	out := make([]domain.SprintMetrics, 0, len(order))
	for _, id := range order {
		out = append(out, *bySprint[id])
	}
	return out, nil
}

func (c *Calculator) fold(metrics *domain.SprintMetrics, m *domain.SprintMappingRecord, settings domain.SprintMetricsSettings, doneStatuses map[string]bool) {
	issue := m.Issue
	metrics.TotalIssues++
	if issue.StoryPointsPlanned == 0 {
		metrics.TotalUnestimatedIssues++
	}

	outside := issue.OutsideOfSprint
	if outside && !settings.TreatOutsideOfSprintAsPlannedAndDelivered {
		return
	}

	delivered := issue.Delivered || doneStatuses[strings.ToLower(issue.Status)]
	committed := issue.Planned ||
		issue.AddedAt <= m.StartedAt+int64(settings.CreepBuffer) ||
		(outside && settings.TreatOutsideOfSprintAsPlannedAndDelivered)

	if committed {
		metrics.CommittedPoints += issue.StoryPointsPlanned
		if settings.IncludeIssueKeys {
			metrics.CommittedKeys = append(metrics.CommittedKeys, issue.Key)
		}
		if delivered {
			metrics.CommitDeliveredPoints += issue.StoryPointsDelivered
		}
	} else {
		metrics.CreepPoints += issue.StoryPointsPlanned
		if settings.IncludeIssueKeys {
			metrics.CreepKeys = append(metrics.CreepKeys, issue.Key)
		}
		if delivered {
			metrics.DeliveredCreepPoints += issue.StoryPointsDelivered
		}
	}
	if delivered {
		metrics.DeliveredPoints += issue.StoryPointsDelivered
		if settings.IncludeIssueKeys {
			metrics.DeliveredKeys = append(metrics.DeliveredKeys, issue.Key)
		}
	}
}
