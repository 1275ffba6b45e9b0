package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ScopeConstraint carries the additional attribute restrictions derived from
// an organizational-unit configuration. The pipeline treats the predicates
// as opaque; they are merged into the backing-store query and contribute a
// stable hash to the cache key.
type ScopeConstraint struct {
	OrgUnitID  string              `json:"org_unit_id,omitempty"`
	Predicates map[string][]string `json:"predicates,omitempty"`
}

// Applied reports whether any organizational scoping is in effect.
func (c ScopeConstraint) Applied() bool {
	return c.OrgUnitID != "" || len(c.Predicates) > 0
}

// ContentHash is a deterministic digest of the constraint, independent of
// map iteration order.
func (c ScopeConstraint) ContentHash() string {
	if !c.Applied() {
		return ""
	}
	keys := make([]string, 0, len(c.Predicates))
	for k := range c.Predicates {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(c.OrgUnitID)
	for _, k := range keys {
		vals := make([]string, len(c.Predicates[k]))
		copy(vals, c.Predicates[k])
		sort.Strings(vals)
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(strings.Join(vals, ","))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}
