package domain

// AggregationRecord is a single bucket of an aggregation: the grouping value,
// its summary statistics and, when a secondary breakdown was requested, the
// nested stacks sharing the same shape.
type AggregationRecord struct {
	Key           string              `json:"key"`
	AdditionalKey string              `json:"additional_key,omitempty"`
	Stacks        []AggregationRecord `json:"stacks,omitempty"`

	Count  int64   `json:"count"`
	Min    int64   `json:"min"`
	Max    int64   `json:"max"`
	Mean   float64 `json:"mean"`
	Median int64   `json:"median"`
	P90    int64   `json:"p90"`
	P95    int64   `json:"p95"`

	// Total is only set by count-only aggregations.
	Total int64 `json:"total,omitempty"`

	// StageResult is attached by workflow-stage alignment.
	StageResult *StageResult `json:"stage_result,omitempty"`

	// SprintMapping is only set on sprint-mapping aggregation records.
	SprintMapping *SprintMappingRecord `json:"sprint_mapping,omitempty"`
}

// ZeroRecord returns an all-zero record for the given key. Used when a
// configured workflow stage has no matching raw aggregation bucket.
func ZeroRecord(key string) AggregationRecord {
	return AggregationRecord{Key: key}
}

// PaginatedResponse is the outbound envelope shared by every report endpoint.
type PaginatedResponse struct {
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalCount *int        `json:"total_count,omitempty"`
	Records    interface{} `json:"records"`
}

// NewPaginatedResponse builds a response without a total count.
func NewPaginatedResponse(page, pageSize int, records interface{}) PaginatedResponse {
	return PaginatedResponse{Page: page, PageSize: pageSize, Records: records}
}

// NewCountedResponse builds a response carrying a total count.
func NewCountedResponse(page, pageSize, total int, records interface{}) PaginatedResponse {
	return PaginatedResponse{Page: page, PageSize: pageSize, TotalCount: &total, Records: records}
}
