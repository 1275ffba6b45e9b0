package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/domain"
)

func TestParseIssueFilter(t *testing.T) {
	req := domain.ListRequest{
		Across: "status",
		Filter: map[string]interface{}{
			"projects":   []interface{}{"CORE"},
			"labels":     []interface{}{"backend"},
			"custom_fields": map[string]interface{}{
				"customfield_10001": "team-a",
			},
			"issue_created_at": map[string]interface{}{"$gt": float64(1000)},
		},
	}
	f, err := ParseIssueFilter(req, CalcCount)
	require.NoError(t, err)
	assert.Equal(t, "status", f.Across())
	assert.Equal(t, []string{"CORE"}, f.Projects)
	assert.Equal(t, []string{"backend"}, f.Labels)
	assert.Equal(t, "team-a", f.CustomFields["customfield_10001"])
	require.NotNil(t, f.CreatedRange.Start)
	assert.Nil(t, f.CreatedRange.End)
}

func TestParseIssueFilterSprintMappingKeys(t *testing.T) {
	req := domain.ListRequest{Filter: map[string]interface{}{
		"sprint_mapping_sprint_state":              "closed",
		"sprint_mapping_sprint_names":              []interface{}{"Sprint 9"},
		"sprint_mapping_sprint_completed_at_after": float64(500),
		"sprint_mapping_ignorable_issue_type":      false,
	}}
	f, err := ParseIssueFilter(req, CalcSprintMapping)
	require.NoError(t, err)
	assert.Equal(t, "closed", f.SprintMapping.SprintState)
	assert.Equal(t, []string{"Sprint 9"}, f.SprintMapping.SprintNames)
	require.NotNil(t, f.SprintMapping.CompletedAtAfter)
	assert.Equal(t, int64(500), *f.SprintMapping.CompletedAtAfter)
	require.NotNil(t, f.SprintMapping.IgnorableIssueType)
	assert.False(t, *f.SprintMapping.IgnorableIssueType)
}

func TestTicketCategorySpecified(t *testing.T) {
	f, err := ParseIssueFilter(domain.ListRequest{Across: "ticket_category"}, CalcCount)
	require.NoError(t, err)
	assert.True(t, f.TicketCategorySpecified(nil))

	f, err = ParseIssueFilter(domain.ListRequest{}, CalcCount)
	require.NoError(t, err)
	assert.False(t, f.TicketCategorySpecified(nil))
	assert.True(t, f.TicketCategorySpecified([]string{"ticket_category"}))

	f, err = ParseIssueFilter(domain.ListRequest{Filter: map[string]interface{}{
		"ticket_categories": []interface{}{"bugs"},
	}}, CalcCount)
	require.NoError(t, err)
	assert.True(t, f.TicketCategorySpecified(nil))
}

func TestIssueCacheHashCoversSprintMapping(t *testing.T) {
	base := domain.ListRequest{Filter: map[string]interface{}{}}
	a, err := ParseIssueFilter(base, CalcSprintMapping)
	require.NoError(t, err)
	b, err := ParseIssueFilter(domain.ListRequest{Filter: map[string]interface{}{
		"sprint_mapping_sprint_state": "closed",
	}}, CalcSprintMapping)
	require.NoError(t, err)
	assert.NotEqual(t, a.CacheHash(), b.CacheHash())
}

func TestWithCalculation(t *testing.T) {
	f, err := ParseIssueFilter(domain.ListRequest{}, CalcSprintMapping)
	require.NoError(t, err)
	count := f.WithCalculation(CalcSprintMappingCount)
	assert.Equal(t, CalcSprintMappingCount, count.Calculation())
	assert.Equal(t, CalcSprintMapping, f.Calculation())
}
