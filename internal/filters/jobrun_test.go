package filters

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/domain"
)

func TestParseJobRunFilter(t *testing.T) {
	req := domain.ListRequest{
		Across: "job_status",
		Filter: map[string]interface{}{
			"job_names":       []interface{}{"build", "deploy"},
			"integration_ids": []interface{}{"7", "3"},
			"parameters":      map[string]interface{}{"branch": "main"},
			"start_time":      map[string]interface{}{"$gt": float64(100), "$lt": float64(200)},
		},
	}
	f, err := ParseJobRunFilter(req, CalcCount)
	require.NoError(t, err)
	assert.Equal(t, "job_status", f.Across())
	assert.Equal(t, CalcCount, f.Calculation())
	assert.Equal(t, DomainJobRun, f.Domain())
	assert.Equal(t, []string{"build", "deploy"}, f.JobNames)
	assert.Equal(t, []string{"7", "3"}, f.IntegrationIDs())
	assert.Equal(t, "main", f.Parameters["branch"])
	assert.True(t, f.StartTimeRange.Bounded())
}

func TestJobRunCacheHashIsOrderIndependent(t *testing.T) {
	a, err := ParseJobRunFilter(domain.ListRequest{Filter: map[string]interface{}{
		"job_names":       []interface{}{"b", "a"},
		"integration_ids": []interface{}{"2", "1"},
	}}, CalcCount)
	require.NoError(t, err)
	b, err := ParseJobRunFilter(domain.ListRequest{Filter: map[string]interface{}{
		"job_names":       []interface{}{"a", "b"},
		"integration_ids": []interface{}{"1", "2"},
	}}, CalcCount)
	require.NoError(t, err)
	assert.Equal(t, a.CacheHash(), b.CacheHash())
}

func TestJobRunCacheHashSeparatesCalculations(t *testing.T) {
	req := domain.ListRequest{Filter: map[string]interface{}{"job_names": []interface{}{"a"}}}
	count, err := ParseJobRunFilter(req, CalcCount)
	require.NoError(t, err)
	duration, err := ParseJobRunFilter(req, CalcDuration)
	require.NoError(t, err)
	assert.NotEqual(t, count.CacheHash(), duration.CacheHash())
}

func TestWithAcrossClonesWithoutMutating(t *testing.T) {
	f, err := ParseJobRunFilter(domain.ListRequest{Across: "job_name"}, CalcValues)
	require.NoError(t, err)
	clone := f.WithAcross("job_status")
	assert.Equal(t, "job_status", clone.Across())
	assert.Equal(t, "job_name", f.Across())
	assert.NotEqual(t, f.CacheHash(), clone.CacheHash())
}

func TestParseDualJobFilter(t *testing.T) {
	req := domain.ListRequest{Filter: map[string]interface{}{
		"build_job": map[string]interface{}{
			"job_names": []interface{}{"ci-build"},
		},
		"deploy_job": map[string]interface{}{
			"job_normalized_full_names": []interface{}{"org/deploy"},
		},
	}}
	dual, err := ParseDualJobFilter(req, CalcCount)
	require.NoError(t, err)
	assert.Equal(t, []string{"ci-build"}, dual.BuildJob.JobNames)
	assert.Equal(t, []string{"org/deploy"}, dual.DeployJob.JobNormalizedFullNames)
}

func TestParseDualJobFilterRequiresJobNames(t *testing.T) {
	_, err := ParseDualJobFilter(domain.ListRequest{Filter: map[string]interface{}{
		"build_job":  map[string]interface{}{},
		"deploy_job": map[string]interface{}{"job_names": []interface{}{"d"}},
	}}, CalcCount)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "build job")

	_, err = ParseDualJobFilter(domain.ListRequest{Filter: map[string]interface{}{
		"build_job":  map[string]interface{}{"job_names": []interface{}{"b"}},
		"deploy_job": map[string]interface{}{},
	}}, CalcCount)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deploy job")
}
