package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/domain"
)

func stage(name string, order int, lower, upper int64) domain.StageDefinition {
	return domain.StageDefinition{
		Name:            name,
		Order:           order,
		LowerLimitValue: lower,
		LowerLimitUnit:  domain.UnitSeconds,
		UpperLimitValue: upper,
		UpperLimitUnit:  domain.UnitSeconds,
	}
}

func TestAlignStages(t *testing.T) {
	stages := []domain.StageDefinition{
		stage("In Progress", 1, 100, 1000),
		stage("Review", 2, 100, 1000),
		stage("QA", 3, 100, 1000),
	}
	records := []domain.AggregationRecord{
		{Key: "review", Count: 4, Median: 500},
		{Key: "In Progress", Count: 9, Median: 50},
	}

	out := AlignStages(records, stages, false)
	require.Len(t, out, 3)

	assert.Equal(t, "In Progress", out[0].Key)
	assert.Equal(t, int64(9), out[0].Count)
	require.NotNil(t, out[0].StageResult)
	assert.Equal(t, domain.RatingGood, out[0].StageResult.Rating)

	// Case-insensitive match keeps the raw record's figures.
	assert.Equal(t, "review", out[1].Key)
	assert.Equal(t, int64(4), out[1].Count)
	assert.Equal(t, domain.RatingNeedsAttention, out[1].StageResult.Rating)

	// A configured stage with no events is zero-filled.
	assert.Equal(t, "QA", out[2].Key)
	assert.Zero(t, out[2].Count)
	require.NotNil(t, out[2].StageResult)
	assert.Equal(t, domain.RatingGood, out[2].StageResult.Rating)
}

func TestAlignStagesPassthroughBuckets(t *testing.T) {
	stages := []domain.StageDefinition{stage("Dev", 1, 10, 20)}
	records := []domain.AggregationRecord{
		{Key: "Dev", Median: 5},
		{Key: "Other", Count: 2},
		{Key: SingleStateKey, Count: 7},
	}

	out := AlignStages(records, stages, false)
	require.Len(t, out, 2)
	assert.Equal(t, "Other", out[1].Key)

	out = AlignStages(records, stages, true)
	require.Len(t, out, 3)
	assert.Equal(t, SingleStateKey, out[2].Key)
}

func TestAlignStagesNoConfiguredStages(t *testing.T) {
	records := []domain.AggregationRecord{{Key: "x"}}
	assert.Equal(t, records, AlignStages(records, nil, false))
	assert.Empty(t, AlignStages(nil, []domain.StageDefinition{stage("Dev", 1, 1, 2)}, false))
}
