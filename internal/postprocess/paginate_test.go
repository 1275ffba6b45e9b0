package postprocess

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/domain"
)

func nRecords(n int) []domain.AggregationRecord {
	out := make([]domain.AggregationRecord, n)
	for i := range out {
		out[i] = domain.AggregationRecord{Key: string(rune('a' + i))}
	}
	return out
}

func TestPageSlice(t *testing.T) {
	resp := PageSlice(nRecords(5), 1, 2)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 2, resp.PageSize)
	require.NotNil(t, resp.TotalCount)
	assert.Equal(t, 5, *resp.TotalCount)

	records := resp.Records.([]domain.AggregationRecord)
	require.Len(t, records, 2)
	assert.Equal(t, "c", records[0].Key)
	assert.Equal(t, "d", records[1].Key)
}

func TestPageSlicePastEnd(t *testing.T) {
	resp := PageSlice(nRecords(3), 5, 2)
	assert.Empty(t, resp.Records.([]domain.AggregationRecord))
	assert.Equal(t, 3, *resp.TotalCount)
}

func TestPageSliceLastPartialPage(t *testing.T) {
	resp := PageSlice(nRecords(5), 2, 2)
	records := resp.Records.([]domain.AggregationRecord)
	require.Len(t, records, 1)
	assert.Equal(t, "e", records[0].Key)
}

func TestPageSliceDegenerateInputs(t *testing.T) {
	resp := PageSlice(nRecords(3), 0, 0)
	assert.Empty(t, resp.Records.([]domain.AggregationRecord))
	assert.Equal(t, 3, *resp.TotalCount)

	resp = PageSlice(nRecords(3), -1, 2)
	records := resp.Records.([]domain.AggregationRecord)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Key)
}
