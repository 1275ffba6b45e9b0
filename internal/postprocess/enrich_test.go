package postprocess

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/domain"
)

type fakeLookup struct {
	summaries map[string]string
	err       error
	calls     int
	lastKeys  []string
}

func (l *fakeLookup) Summaries(ctx context.Context, tenant string, keys []string) (map[string]string, error) {
	l.calls++
	l.lastKeys = keys
	if l.err != nil {
		return nil, l.err
	}
	return l.summaries, nil
}

func TestEnrichStackSummaries(t *testing.T) {
	lookup := &fakeLookup{summaries: map[string]string{"EPIC-1": "Payments revamp"}}
	records := []domain.AggregationRecord{
		{Key: "alice", Stacks: []domain.AggregationRecord{
			{Key: "EPIC-1", Count: 3},
			{Key: "EPIC-404", Count: 1},
		}},
		{Key: "bob", Stacks: []domain.AggregationRecord{
			{Key: "EPIC-1", Count: 2},
		}},
	}

	out, err := EnrichStackSummaries(context.Background(), lookup, "acme", records)
	require.NoError(t, err)

	assert.Equal(t, "Payments revamp", out[0].Stacks[0].AdditionalKey)
	assert.Empty(t, out[0].Stacks[1].AdditionalKey)
	assert.Equal(t, "Payments revamp", out[1].Stacks[0].AdditionalKey)

	// The shared key is looked up once.
	assert.Equal(t, 1, lookup.calls)
	assert.Equal(t, []string{"EPIC-1", "EPIC-404"}, lookup.lastKeys)
}

func TestEnrichStackSummariesIdempotent(t *testing.T) {
	lookup := &fakeLookup{summaries: map[string]string{"EPIC-1": "Payments revamp"}}
	records := []domain.AggregationRecord{
		{Key: "alice", Stacks: []domain.AggregationRecord{{Key: "EPIC-1"}}},
	}
	once, err := EnrichStackSummaries(context.Background(), lookup, "acme", records)
	require.NoError(t, err)
	twice, err := EnrichStackSummaries(context.Background(), lookup, "acme", once)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
	// Second pass has nothing left to resolve.
	assert.Equal(t, 1, lookup.calls)
}

func TestEnrichStackSummariesNoStacks(t *testing.T) {
	lookup := &fakeLookup{}
	records := []domain.AggregationRecord{{Key: "alice"}}
	out, err := EnrichStackSummaries(context.Background(), lookup, "acme", records)
	require.NoError(t, err)
	assert.Equal(t, records, out)
	assert.Zero(t, lookup.calls)
}

func TestEnrichIssueRows(t *testing.T) {
	lookup := &fakeLookup{summaries: map[string]string{"EPIC-1": "Payments revamp"}}
	rows := []domain.IssueRow{
		{Key: "CORE-1", Epic: "EPIC-1"},
		{Key: "CORE-2", Epic: "EPIC-1"},
		{Key: "CORE-3"},
		{Key: "CORE-4", Epic: "EPIC-2", EpicSummary: "already set"},
	}

	out, err := EnrichIssueRows(context.Background(), lookup, "acme", rows)
	require.NoError(t, err)
	assert.Equal(t, "Payments revamp", out[0].EpicSummary)
	assert.Equal(t, "Payments revamp", out[1].EpicSummary)
	assert.Empty(t, out[2].EpicSummary)
	assert.Equal(t, "already set", out[3].EpicSummary)
	assert.Equal(t, []string{"EPIC-1"}, lookup.lastKeys)
}

func TestEnrichIssueRowsLookupError(t *testing.T) {
	lookup := &fakeLookup{err: errors.New("db down")}
	_, err := EnrichIssueRows(context.Background(), lookup, "acme",
		[]domain.IssueRow{{Key: "CORE-1", Epic: "EPIC-1"}})
	assert.Error(t, err)
}
