package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
)

func baseSpec(t *testing.T) filters.Spec {
	t.Helper()
	f, err := filters.ParseJobRunFilter(domain.ListRequest{}, filters.CalcValues)
	require.NoError(t, err)
	return f
}

func TestExecuteJoinsInRequestOrder(t *testing.T) {
	fields := []string{"job_name", "job_status", "instance_name"}
	results, err := Execute(context.Background(), NewPool(2), baseSpec(t), fields,
		func(ctx context.Context, spec filters.Spec) ([]domain.AggregationRecord, error) {
			// Stagger completion so request order differs from completion order.
			if spec.Across() == "job_name" {
				time.Sleep(20 * time.Millisecond)
			}
			return []domain.AggregationRecord{{Key: spec.Across()}}, nil
		})
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, field := range fields {
		assert.Equal(t, field, results[i].Field)
		require.Len(t, results[i].Records, 1)
		assert.Equal(t, field, results[i].Records[0].Key)
	}
}

func TestExecuteRejectsEmptyFields(t *testing.T) {
	_, err := Execute(context.Background(), NewPool(1), baseSpec(t), nil,
		func(ctx context.Context, spec filters.Spec) ([]domain.AggregationRecord, error) {
			t.Fatal("aggregator must not run")
			return nil, nil
		})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fields")
}

func TestExecuteFailsWhole(t *testing.T) {
	boom := errors.New("store down")
	_, err := Execute(context.Background(), NewPool(4), baseSpec(t), []string{"job_name", "job_status"},
		func(ctx context.Context, spec filters.Spec) ([]domain.AggregationRecord, error) {
			if spec.Across() == "job_status" {
				return nil, boom
			}
			return nil, nil
		})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "job_status")
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := NewPool(2)
	var inFlight, peak int32
	_, err := Execute(context.Background(), pool, baseSpec(t),
		[]string{"a", "b", "c", "d", "e"},
		func(ctx context.Context, spec filters.Spec) ([]domain.AggregationRecord, error) {
			n := atomic.AddInt32(&inFlight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inFlight, -1)
			return nil, nil
		})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPoolRespectsContext(t *testing.T) {
	pool := NewPool(1)
	release := make(chan struct{})
	go pool.Do(context.Background(), func() error {
		<-release
		return nil
	})
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := pool.Do(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}
