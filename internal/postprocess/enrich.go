package postprocess

import (
	"context"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/ports"
)

// summaryBatchLimit bounds the single batch lookup issued per enrichment.
const summaryBatchLimit = 10000

// EnrichStackSummaries resolves the parent-issue keys referenced by stacked
// breakdowns and attaches each display summary onto the originating stack
// record's additional key. Keys the lookup cannot resolve leave the field
// unset. Records already enriched keep their value, so running the stage on
// its own output changes nothing.
func EnrichStackSummaries(ctx context.Context, lookup ports.IssueLookup, tenant string, records []domain.AggregationRecord) ([]domain.AggregationRecord, error) {
	keys := collectStackKeys(records)
	if len(keys) == 0 {
		return records, nil
	}
	summaries, err := lookup.Summaries(ctx, tenant, keys)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AggregationRecord, len(records))
	for i, r := range records {
		stacks := make([]domain.AggregationRecord, len(r.Stacks))
		for j, s := range r.Stacks {
			if s.AdditionalKey == "" {
				if summary, ok := summaries[s.Key]; ok {
					s.AdditionalKey = summary
				}
			}
			stacks[j] = s
		}
		r.Stacks = stacks
		out[i] = r
	}
	return out, nil
}

func collectStackKeys(records []domain.AggregationRecord) []string {
	seen := map[string]bool{}
	keys := []string{}
	for _, r := range records {
		for _, s := range r.Stacks {
			if s.Key == "" || s.AdditionalKey != "" || seen[s.Key] {
				continue
			}
			seen[s.Key] = true
			keys = append(keys, s.Key)
			if len(keys) == summaryBatchLimit {
				return keys
			}
		}
	}
	return keys
}

// EnrichIssueRows resolves the parent (epic) keys of a flat issue list and
// attaches each summary onto the row's dedicated slot. Rows already
// carrying a summary are left untouched.
func EnrichIssueRows(ctx context.Context, lookup ports.IssueLookup, tenant string, rows []domain.IssueRow) ([]domain.IssueRow, error) {
	seen := map[string]bool{}
	keys := []string{}
	for _, r := range rows {
		if r.Epic == "" || r.EpicSummary != "" || seen[r.Epic] {
			continue
		}
		seen[r.Epic] = true
		keys = append(keys, r.Epic)
		if len(keys) == summaryBatchLimit {
			break
		}
	}
	if len(keys) == 0 {
		return rows, nil
	}
	summaries, err := lookup.Summaries(ctx, tenant, keys)
	if err != nil {
		return nil, err
	}
	out := make([]domain.IssueRow, len(rows))
	for i, r := range rows {
		if r.EpicSummary == "" {
			if summary, ok := summaries[r.Epic]; ok {
				r.EpicSummary = summary
			}
		}
		out[i] = r
	}
	return out, nil
}
