// Package cache wraps expensive report computations with a deterministic
// get-or-compute-and-store contract over a byte-oriented TTL cache store.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"

	"github.com/devlens/devlens/internal/domain"
)

// Key identifies one cached computation. Every component is content-based:
// two requests with identical semantic content build the same key no matter
// how the inbound maps were ordered.
type Key struct {
	Endpoint   string
	FilterHash string
	ScopeHash  string
	Page       int
	PageSize   int
	SortHash   string
}

// String renders the key as a single opaque string. The endpoint stays in
// clear for operability; everything else is digested.
func (k Key) String() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		k.FilterHash,
		k.ScopeHash,
		fmt.Sprintf("pg_%d_sz_%d", k.Page, k.PageSize),
		k.SortHash,
	}, "/")))
	return k.Endpoint + ":" + hex.EncodeToString(sum[:])
}

// SortHash digests a requested sort order. An empty sort hashes to a stable
// sentinel so that "no sort" and "default sort" share a cache line.
func SortHash(sort []domain.SortEntry) string {
	if len(sort) == 0 {
		return "nosort"
	}
	b, err := json.Marshal(sort)
	if err != nil {
		b = []byte(err.Error())
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// scopedKey prefixes the key with the tenant and the sorted integration
// scope, so invalidating one integration's data touches only its lines.
func scopedKey(tenant string, integrationIDs []string, key Key) string {
	ids := make([]string, len(integrationIDs))
	copy(ids, integrationIDs)
	sort.Strings(ids)
	parts := []string{"devlens", tenant}
	if len(ids) > 0 {
		parts = append(parts, strings.Join(ids, "_"))
	}
	parts = append(parts, key.String())
	return strings.Join(parts, ":")
}
