package sprints

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/domain"
)

func mappingRecord(sprintID string, startedAt int64, issue domain.SprintIssue) domain.AggregationRecord {
	return domain.AggregationRecord{
		Key:   sprintID,
		Count: 1,
		SprintMapping: &domain.SprintMappingRecord{
			SprintID:   sprintID,
			SprintName: "Sprint " + sprintID,
			StartedAt:  startedAt,
			Issue:      issue,
		},
	}
}

func TestCalculateCommittedAndCreep(t *testing.T) {
	records := []domain.AggregationRecord{
		// Planned before the sprint started and delivered.
		mappingRecord("s1", 1000, domain.SprintIssue{
			Key: "A-1", Planned: true, Delivered: true,
			StoryPointsPlanned: 5, StoryPointsDelivered: 5, AddedAt: 900,
		}),
		// Added mid-sprint: creep, delivered.
		mappingRecord("s1", 1000, domain.SprintIssue{
			Key: "A-2", Delivered: true,
			StoryPointsPlanned: 3, StoryPointsDelivered: 3, AddedAt: 5000,
		}),
		// Committed but not delivered.
		mappingRecord("s1", 1000, domain.SprintIssue{
			Key: "A-3", AddedAt: 500,
			StoryPointsPlanned: 2,
		}),
	}

	out, err := NewCalculator().Calculate(context.Background(), "acme", records, domain.SprintMetricsSettings{})
	require.NoError(t, err)
	require.Len(t, out, 1)

	m := out[0]
	assert.Equal(t, "s1", m.SprintID)
	assert.Equal(t, 3, m.TotalIssues)
	assert.Equal(t, float64(7), m.CommittedPoints)
	assert.Equal(t, float64(5), m.CommitDeliveredPoints)
	assert.Equal(t, float64(3), m.CreepPoints)
	assert.Equal(t, float64(3), m.DeliveredCreepPoints)
	assert.Equal(t, float64(8), m.DeliveredPoints)
}

func TestCalculateCreepBufferWidensCommitment(t *testing.T) {
	record := mappingRecord("s1", 1000, domain.SprintIssue{
		Key: "A-1", AddedAt: 1050, StoryPointsPlanned: 3,
	})

	out, err := NewCalculator().Calculate(context.Background(), "acme",
		[]domain.AggregationRecord{record}, domain.SprintMetricsSettings{})
	require.NoError(t, err)
	assert.Equal(t, float64(3), out[0].CreepPoints)
	assert.Zero(t, out[0].CommittedPoints)

	out, err = NewCalculator().Calculate(context.Background(), "acme",
		[]domain.AggregationRecord{record}, domain.SprintMetricsSettings{CreepBuffer: 100})
	require.NoError(t, err)
	assert.Equal(t, float64(3), out[0].CommittedPoints)
	assert.Zero(t, out[0].CreepPoints)
}

func TestCalculateAdditionalDoneStatuses(t *testing.T) {
	record := mappingRecord("s1", 1000, domain.SprintIssue{
		Key: "A-1", Status: "Shipped", Planned: true, AddedAt: 500,
		StoryPointsPlanned: 4, StoryPointsDelivered: 4,
	})

	out, err := NewCalculator().Calculate(context.Background(), "acme",
		[]domain.AggregationRecord{record}, domain.SprintMetricsSettings{})
	require.NoError(t, err)
	assert.Zero(t, out[0].DeliveredPoints)

	out, err = NewCalculator().Calculate(context.Background(), "acme",
		[]domain.AggregationRecord{record},
		domain.SprintMetricsSettings{AdditionalDoneStatuses: []string{"shipped"}})
	require.NoError(t, err)
	assert.Equal(t, float64(4), out[0].DeliveredPoints)
	assert.Equal(t, float64(4), out[0].CommitDeliveredPoints)
}

func TestCalculateOutsideOfSprint(t *testing.T) {
	record := mappingRecord("s1", 1000, domain.SprintIssue{
		Key: "A-1", OutsideOfSprint: true, Delivered: true,
		StoryPointsPlanned: 2, StoryPointsDelivered: 2, AddedAt: 500,
	})

	out, err := NewCalculator().Calculate(context.Background(), "acme",
		[]domain.AggregationRecord{record}, domain.SprintMetricsSettings{})
	require.NoError(t, err)
	assert.Equal(t, 1, out[0].TotalIssues)
	assert.Zero(t, out[0].CommittedPoints)
	assert.Zero(t, out[0].DeliveredPoints)

	out, err = NewCalculator().Calculate(context.Background(), "acme",
		[]domain.AggregationRecord{record},
		domain.SprintMetricsSettings{TreatOutsideOfSprintAsPlannedAndDelivered: true})
	require.NoError(t, err)
	assert.Equal(t, float64(2), out[0].CommittedPoints)
	assert.Equal(t, float64(2), out[0].DeliveredPoints)
}

func TestCalculatePreservesSprintOrderAndIssueKeys(t *testing.T) {
	records := []domain.AggregationRecord{
		mappingRecord("s2", 1000, domain.SprintIssue{Key: "B-1", Planned: true, StoryPointsPlanned: 1}),
		mappingRecord("s1", 1000, domain.SprintIssue{Key: "A-1", AddedAt: 9000, StoryPointsPlanned: 1}),
		{Key: "no-mapping"},
	}

	out, err := NewCalculator().Calculate(context.Background(), "acme", records,
		domain.SprintMetricsSettings{IncludeIssueKeys: true})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "s2", out[0].SprintID)
	assert.Equal(t, []string{"B-1"}, out[0].CommittedKeys)
	assert.Equal(t, "s1", out[1].SprintID)
	assert.Equal(t, []string{"A-1"}, out[1].CreepKeys)
}

func TestCalculateCountsUnestimated(t *testing.T) {
	records := []domain.AggregationRecord{
		mappingRecord("s1", 1000, domain.SprintIssue{Key: "A-1", Planned: true}),
	}
	out, err := NewCalculator().Calculate(context.Background(), "acme", records, domain.SprintMetricsSettings{})
	require.NoError(t, err)
	assert.Equal(t, 1, out[0].TotalUnestimatedIssues)
}
