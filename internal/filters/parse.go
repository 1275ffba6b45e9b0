package filters

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/pkg/apperror"
)

// TimeRange reads a two-key range object ({"$gt": ..., "$lt": ...}) from the
// filter. An absent operator leaves that side unbounded. Values may be
// strings or JSON numbers; anything else is a validation error.
func TimeRange(filter map[string]interface{}, field string) (Range, error) {
	raw, ok := filter[field].(map[string]interface{})
	if !ok {
		return Range{}, nil
	}
	start, err := rangeBound(raw, "$gt", field)
	if err != nil {
		return Range{}, err
	}
	end, err := rangeBound(raw, "$lt", field)
	if err != nil {
		return Range{}, err
	}
	return Range{Start: start, End: end}, nil
}

func rangeBound(raw map[string]interface{}, op, field string) (*int64, error) {
	v, ok := raw[op]
	if !ok || v == nil {
		return nil, nil
	}
	switch vv := v.(type) {
	case string:
		n, err := strconv.ParseInt(vv, 10, 64)
		if err != nil {
			return nil, apperror.NewValidation(fmt.Sprintf("invalid %s bound for %q: %q", op, field, vv))
		}
		return &n, nil
	case float64:
		n := int64(vv)
		return &n, nil
	case int64:
		return &vv, nil
	}
	return nil, apperror.NewValidation(fmt.Sprintf("invalid %s bound for %q", op, field))
}

// PartialMatches reads filter.partial_match into per-field Match rules,
// keeping only operators the domain recognizes. Fields outside allowed are a
// validation error so that typos fail fast instead of silently matching
// everything.
func PartialMatches(req domain.ListRequest, allowed map[string]bool) (map[string]Match, error) {
	out := map[string]Match{}
	for field, v := range req.PartialMatch() {
		if !allowed[field] {
			return nil, apperror.NewValidation(fmt.Sprintf("field %q is not valid for partial match", field))
		}
		rules, ok := v.(map[string]interface{})
		if !ok {
			continue
		}
		m := Match{}
		if s, ok := rules["$contains"].(string); ok {
			m.Contains = s
		}
		if s, ok := rules["$begins"].(string); ok {
			m.Begins = s
		}
		if s, ok := rules["$ends"].(string); ok {
			m.Ends = s
		}
		if !m.IsZero() {
			out[field] = m
		}
	}
	return out, nil
}

// ListPair reads the inclusion list for field and its mirrored exclusion
// list from filter.exclude.<field>. Both default to empty, non-nil slices.
// A value present in both lists is an unsatisfiable request and fails
// validation rather than guessing a precedence.
func ListPair(req domain.ListRequest, field string) ([]string, []string, error) {
	include := req.FilterStrings(field)
	exclude := excludeStrings(req, field)
	if dup := firstOverlap(include, exclude); dup != "" {
		return nil, nil, apperror.NewValidation(
			fmt.Sprintf("value %q for field %q appears in both the filter and its exclusion", dup, field))
	}
	return include, exclude, nil
}

func excludeStrings(req domain.ListRequest, field string) []string {
	ex := req.Exclude()
	switch vv := ex[field].(type) {
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

func firstOverlap(a, b []string) string {
	if len(a) == 0 || len(b) == 0 {
		return ""
	}
	set := make(map[string]bool, len(a))
	for _, v := range a {
		set[v] = true
	}
	for _, v := range b {
		if set[v] {
			return v
		}
	}
	return ""
}

// ResolveAcross maps the raw across value to the grouping dimension. Unknown
// or missing values fall back to def; a custom-field marker switches to
// custom-field mode and carries the raw name alongside.
func ResolveAcross(raw, def string, known map[string]bool) (across, customField string) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, CustomFieldPrefix) {
		return AcrossCustomField, raw
	}
	if raw == "" || !known[raw] {
		return def, ""
	}
	return raw, ""
}

// SortFor returns the requested sort for the across dimension, defaulting to
// an ascending sort on the dimension itself.
func SortFor(req domain.ListRequest, across string) map[string]SortOrder {
	for _, s := range req.Sort {
		if s.ID == "" {
			continue
		}
		order := SortAsc
		if s.Desc {
			order = SortDesc
		}
		return map[string]SortOrder{s.ID: order}
	}
	return map[string]SortOrder{across: SortAsc}
}

// Params reads the free-form parameter object for a field, defaulting to an
// empty map.
func Params(req domain.ListRequest, field string) map[string]string {
	out := map[string]string{}
	for k, v := range req.FilterMap(field) {
		switch vv := v.(type) {
		case string:
			out[k] = vv
		case float64:
			out[k] = strconv.FormatInt(int64(vv), 10)
		case bool:
			out[k] = strconv.FormatBool(vv)
		}
	}
	return out
}
