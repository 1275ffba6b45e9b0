package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/domain"
)

func TestTimeRange(t *testing.T) {
	filter := map[string]interface{}{
		"start_time": map[string]interface{}{"$gt": "1700000000", "$lt": float64(1710000000)},
	}
	r, err := TimeRange(filter, "start_time")
	require.NoError(t, err)
	require.NotNil(t, r.Start)
	require.NotNil(t, r.End)
	assert.Equal(t, int64(1700000000), *r.Start)
	assert.Equal(t, int64(1710000000), *r.End)
	assert.True(t, r.Bounded())
}

func TestTimeRangeAbsent(t *testing.T) {
	r, err := TimeRange(map[string]interface{}{}, "start_time")
	require.NoError(t, err)
	assert.True(t, r.IsZero())
}

func TestTimeRangeRejectsGarbage(t *testing.T) {
	filter := map[string]interface{}{
		"start_time": map[string]interface{}{"$gt": "not-a-number"},
	}
	_, err := TimeRange(filter, "start_time")
	assert.Error(t, err)
}

func TestListPair(t *testing.T) {
	req := domain.ListRequest{Filter: map[string]interface{}{
		"projects": []interface{}{"alpha", "beta"},
		"exclude": map[string]interface{}{
			"projects": []interface{}{"gamma"},
		},
	}}
	include, exclude, err := ListPair(req, "projects")
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, include)
	assert.Equal(t, []string{"gamma"}, exclude)
}

func TestListPairRejectsOverlap(t *testing.T) {
	req := domain.ListRequest{Filter: map[string]interface{}{
		"projects": []interface{}{"alpha"},
		"exclude": map[string]interface{}{
			"projects": []interface{}{"alpha"},
		},
	}}
	_, _, err := ListPair(req, "projects")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alpha")
}

func TestPartialMatchesRejectsUnknownField(t *testing.T) {
	req := domain.ListRequest{Filter: map[string]interface{}{
		"partial_match": map[string]interface{}{
			"no_such_field": map[string]interface{}{"$contains": "x"},
		},
	}}
	_, err := PartialMatches(req, map[string]bool{"job_name": true})
	assert.Error(t, err)
}

func TestPartialMatchesKeepsKnownOperators(t *testing.T) {
	req := domain.ListRequest{Filter: map[string]interface{}{
		"partial_match": map[string]interface{}{
			"job_name": map[string]interface{}{"$begins": "deploy-"},
		},
	}}
	out, err := PartialMatches(req, map[string]bool{"job_name": true})
	require.NoError(t, err)
	assert.Equal(t, "deploy-", out["job_name"].Begins)
}

func TestResolveAcross(t *testing.T) {
	known := map[string]bool{"job_name": true, "trend": true}

	across, custom := ResolveAcross("job_name", AcrossTrend, known)
	assert.Equal(t, "job_name", across)
	assert.Empty(t, custom)

	across, custom = ResolveAcross("unknown_dim", AcrossTrend, known)
	assert.Equal(t, AcrossTrend, across)
	assert.Empty(t, custom)

	across, custom = ResolveAcross("customfield_10001", AcrossTrend, known)
	assert.Equal(t, AcrossCustomField, across)
	assert.Equal(t, "customfield_10001", custom)
}

func TestSortFor(t *testing.T) {
	req := domain.ListRequest{Sort: []domain.SortEntry{{ID: "count", Desc: true}}}
	assert.Equal(t, map[string]SortOrder{"count": SortDesc}, SortFor(req, "job_name"))

	assert.Equal(t, map[string]SortOrder{"job_name": SortAsc},
		SortFor(domain.ListRequest{}, "job_name"))
}
