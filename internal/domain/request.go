package domain

// SortEntry is one column of a requested sort order.
type SortEntry struct {
	ID   string `json:"id"`
	Desc bool   `json:"desc"`
}

// ListRequest is the generic list/filter request accepted by every report
// endpoint. Filter carries arbitrary inclusion lists plus the reserved
// sub-keys "exclude" and "partial_match".
type ListRequest struct {
	Page     int                    `json:"page"`
	PageSize int                    `json:"page_size"`
	Across   string                 `json:"across"`
	Stacks   []string               `json:"stacks"`
	Sort     []SortEntry            `json:"sort"`
	Fields   []string               `json:"fields"`
	Filter   map[string]interface{} `json:"filter"`
}

// FilterString returns a string filter value, or "" when absent or not a string.
func (r ListRequest) FilterString(key string) string {
	if r.Filter == nil {
		return ""
	}
	s, _ := r.Filter[key].(string)
	return s
}

// FilterStrings returns a string-list filter value. Both []string and
// []interface{} (the shape produced by JSON decoding) are accepted.
// Absent or mistyped values yield an empty, non-nil slice.
func (r ListRequest) FilterStrings(key string) []string {
	if r.Filter == nil {
		return []string{}
	}
	return toStringSlice(r.Filter[key])
}

// FilterMap returns a nested object filter value, or an empty map.
func (r ListRequest) FilterMap(key string) map[string]interface{} {
	if r.Filter == nil {
		return map[string]interface{}{}
	}
	if m, ok := r.Filter[key].(map[string]interface{}); ok {
		return m
	}
	return map[string]interface{}{}
}

// FilterBool returns a bool filter value, or def when absent or mistyped.
func (r ListRequest) FilterBool(key string, def bool) bool {
	if r.Filter == nil {
		return def
	}
	if b, ok := r.Filter[key].(bool); ok {
		return b
	}
	return def
}

// FilterInt returns an int filter value, or def when absent. JSON numbers
// decode as float64, so both int and float64 are accepted.
func (r ListRequest) FilterInt(key string, def int) int {
	if r.Filter == nil {
		return def
	}
	switch v := r.Filter[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// Exclude returns the mirrored exclusion object nested under filter.exclude.
func (r ListRequest) Exclude() map[string]interface{} {
	return r.FilterMap("exclude")
}

// PartialMatch returns the filter.partial_match object.
func (r ListRequest) PartialMatch() map[string]interface{} {
	return r.FilterMap("partial_match")
}

// CloneWithFilter returns a shallow copy of the request carrying the given
// filter map. The original request is never mutated.
func (r ListRequest) CloneWithFilter(filter map[string]interface{}) ListRequest {
	out := r
	out.Filter = filter
	return out
}

// CopyFilter returns a mutable copy of the filter map.
func (r ListRequest) CopyFilter() map[string]interface{} {
	out := make(map[string]interface{}, len(r.Filter))
	for k, v := range r.Filter {
		out[k] = v
	}
	return out
}

func toStringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []string:
		out := make([]string, len(vv))
		copy(out, vv)
		return out
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
