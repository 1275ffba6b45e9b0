package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/domain"
)

func TestBuildSprintRequestRewritesFilterKeys(t *testing.T) {
	req := domain.ListRequest{Filter: map[string]interface{}{
		"completed_at":  map[string]interface{}{"$gt": float64(100), "$lt": float64(200)},
		"sprint_states": []interface{}{"closed", "active"},
		"sprint_names":  []interface{}{"Sprint 4"},
	}}

	out, err := buildSprintRequest(req)
	require.NoError(t, err)

	assert.Equal(t, int64(100), out.Filter["sprint_mapping_sprint_completed_at_after"])
	assert.Equal(t, int64(200), out.Filter["sprint_mapping_sprint_completed_at_before"])
	assert.Equal(t, "closed", out.Filter["sprint_mapping_sprint_state"])
	assert.Equal(t, []interface{}{"Sprint 4"}, out.Filter["sprint_mapping_sprint_names"])

	// The inbound request is never mutated.
	_, ok := req.Filter["sprint_mapping_sprint_state"]
	assert.False(t, ok)
}

func TestBuildSprintRequestRequiresDateWindow(t *testing.T) {
	_, err := buildSprintRequest(domain.ListRequest{Filter: map[string]interface{}{
		"sprint_names": []interface{}{"Sprint 4"},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "completed_at")
}

func TestBuildSprintRequestAcceptsAnyWindow(t *testing.T) {
	for _, field := range []string{"completed_at", "started_at", "planned_ended_at"} {
		_, err := buildSprintRequest(domain.ListRequest{Filter: map[string]interface{}{
			field: map[string]interface{}{"$gt": float64(1)},
		}})
		assert.NoError(t, err, field)
	}
}

func TestSprintSettings(t *testing.T) {
	settings := sprintSettings(domain.ListRequest{Filter: map[string]interface{}{
		"include_issue_keys":       true,
		"creep_buffer":             float64(86400),
		"additional_done_statuses": []interface{}{"Shipped", "DONE"},
		"treat_outside_of_sprint_as_planned_and_delivered": true,
	}})
	assert.True(t, settings.IncludeIssueKeys)
	assert.Equal(t, 86400, settings.CreepBuffer)
	assert.Equal(t, []string{"shipped", "done"}, settings.AdditionalDoneStatuses)
	assert.True(t, settings.TreatOutsideOfSprintAsPlannedAndDelivered)

	defaults := sprintSettings(domain.ListRequest{})
	assert.False(t, defaults.IncludeIssueKeys)
	assert.Zero(t, defaults.CreepBuffer)
}
