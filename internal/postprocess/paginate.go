package postprocess

import "github.com/devlens/devlens/internal/domain"

// PageSlice cuts a page out of a fully materialized result set. The
// search-indexed store returns whole result sets, so paging happens here;
// the reported total is always the full length. Pages past the end come
// back empty, never out of range.
func PageSlice(records []domain.AggregationRecord, page, pageSize int) domain.PaginatedResponse {
	total := len(records)
	if pageSize <= 0 {
		return domain.NewCountedResponse(page, pageSize, total, []domain.AggregationRecord{})
	}
	if page < 0 {
		page = 0
	}
	lo := page * pageSize
	if lo > total {
		lo = total
	}
	hi := lo + pageSize
	if hi > total {
		hi = total
	}
	return domain.NewCountedResponse(page, pageSize, total, records[lo:hi])
}
