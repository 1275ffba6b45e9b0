package postprocess

import (
	"strings"

	"github.com/devlens/devlens/internal/domain"
)

// OtherStageKey groups events that do not belong to any configured stage.
const OtherStageKey = "other"

// SingleStateKey is the synthetic bucket emitted when the whole flow is
// treated as one state.
const SingleStateKey = "SingleState"

// AlignStages rewrites raw stage aggregations into the configured stage
// order. Every configured stage appears exactly once: stages present in the
// input keep their figures and gain a rating from the stage thresholds,
// stages with no events are synthesized with zeroed figures and the rating
// a zero duration earns. Keys are matched ignoring case. The passthrough
// buckets, when present in the input, are appended after the configured
// stages in their relative input order.
//
// With no configured stages, or no records, the input is returned as is.
func AlignStages(records []domain.AggregationRecord, stages []domain.StageDefinition, includeSingleState bool) []domain.AggregationRecord {
	if len(stages) == 0 || len(records) == 0 {
		return records
	}
	byKey := make(map[string]domain.AggregationRecord, len(records))
	for _, r := range records {
		byKey[strings.ToLower(r.Key)] = r
	}
	out := make([]domain.AggregationRecord, 0, len(stages)+2)
	for _, stage := range stages {
		if r, ok := byKey[strings.ToLower(stage.Name)]; ok {
			r.StageResult = domain.NewStageResult(stage, r.Median)
			out = append(out, r)
			continue
		}
		zero := domain.ZeroRecord(stage.Name)
		zero.StageResult = domain.NewStageResult(stage, 0)
		out = append(out, zero)
	}
	for _, r := range records {
		if strings.EqualFold(r.Key, OtherStageKey) {
			out = append(out, r)
		}
		if includeSingleState && r.Key == SingleStateKey {
			out = append(out, r)
		}
	}
	return out
}
