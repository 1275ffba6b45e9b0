package filters

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/goccy/go-json"
)

// contentHash produces a deterministic hash of a filter's semantic content.
// The payload is marshalled to canonical JSON: struct fields serialize in
// declaration order and map keys are sorted by the encoder, so two
// structurally identical filters always hash the same regardless of how the
// inbound request maps were ordered.
func contentHash(payload interface{}) string {
	b, err := json.Marshal(payload)
	if err != nil {
		// Filter payloads are plain data; marshalling only fails on
		// programmer error. Hash the error text so the key is still stable.
		b = []byte(err.Error())
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// sortedCopy returns a sorted copy so list order never influences the hash.
func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}

// sortedMatches flattens a partial-match map into a deterministic slice.
func sortedMatches(in map[string]Match) []fieldMatch {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]fieldMatch, 0, len(keys))
	for _, k := range keys {
		out = append(out, fieldMatch{Field: k, Match: in[k]})
	}
	return out
}

type fieldMatch struct {
	Field string `json:"field"`
	Match Match  `json:"match"`
}

// sortedParams flattens a parameter map into a deterministic slice.
func sortedParams(in map[string]string) []keyValue {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]keyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyValue{Key: k, Value: in[k]})
	}
	return out
}

type keyValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// sortedSorts flattens a sort map into a deterministic slice.
func sortedSorts(in map[string]SortOrder) []keyValue {
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]keyValue, 0, len(keys))
	for _, k := range keys {
		out = append(out, keyValue{Key: k, Value: string(in[k])})
	}
	return out
}
