package fanout

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/pkg/apperror"
)

// FieldResult pairs one requested field with its value distribution.
type FieldResult struct {
	Field   string                     `json:"field"`
	Records []domain.AggregationRecord `json:"records"`
}

// Aggregator runs one (possibly cached) single-dimension aggregation.
type Aggregator func(ctx context.Context, spec filters.Spec) ([]domain.AggregationRecord, error)

// Execute clones the base filter once per field, runs each clone on the
// shared pool and joins results in the original field order, not completion
// order. An empty field list fails before any task is spawned; a failure in
// any one task fails the whole fan-out, with no partial results.
func Execute(ctx context.Context, pool *Pool, base filters.Spec, fields []string, agg Aggregator) ([]FieldResult, error) {
	if len(fields) == 0 {
		return nil, apperror.NewBadRequest("missing or empty list of 'fields' provided")
	}

	results := make([]FieldResult, len(fields))
	g, gctx := errgroup.WithContext(ctx)
	for i, field := range fields {
		i, field := i, field
		spec := base.WithAcross(field)
		g.Go(func() error {
			return pool.Do(gctx, func() error {
				records, err := agg(gctx, spec)
				if err != nil {
					return fmt.Errorf("aggregating field %q: %w", field, err)
				}
				results[i] = FieldResult{Field: field, Records: records}
				return nil
			})
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
