package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/sirupsen/logrus"

	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/internal/ports"
)

// Config tunes the orchestrator. LongCacheTenants grants selected tenants a
// longer TTL for specific calculation kinds.
type Config struct {
	DefaultTTL       time.Duration
	LongTTL          time.Duration
	LongCacheTenants map[string][]filters.Calculation
}

// Orchestrator implements the get-or-compute-and-store contract. Concurrent
// identical misses may both compute and both write; the cache store is
// last-write-wins and duplicated work is accepted.
type Orchestrator struct {
	store     ports.CacheStore
	log       *logrus.Logger
	defaultTTL time.Duration
	longTTL    time.Duration
	longCache  map[string]map[filters.Calculation]bool
}

// New builds an orchestrator over a cache store.
func New(store ports.CacheStore, log *logrus.Logger, cfg Config) *Orchestrator {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 60 * time.Minute
	}
	if cfg.LongTTL <= 0 {
		cfg.LongTTL = 24 * time.Hour
	}
	longCache := make(map[string]map[filters.Calculation]bool, len(cfg.LongCacheTenants))
	for tenant, calcs := range cfg.LongCacheTenants {
		set := make(map[filters.Calculation]bool, len(calcs))
		for _, c := range calcs {
			set[c] = true
		}
		longCache[tenant] = set
	}
	return &Orchestrator{
		store:      store,
		log:        log,
		defaultTTL: cfg.DefaultTTL,
		longTTL:    cfg.LongTTL,
		longCache:  longCache,
	}
}

// TTL resolves the entry lifetime: an explicit override wins, then the
// per-tenant long-cache allow-list for this calculation kind, then the
// system default.
func (o *Orchestrator) TTL(tenant string, calc filters.Calculation, override time.Duration) time.Duration {
	if override > 0 {
		return override
	}
	if o.longCache[tenant][calc] {
		return o.longTTL
	}
	return o.defaultTTL
}

// CacheOrCall returns the cached value for key, or invokes compute and
// stores its result. The result is round-tripped through the cache codec in
// both paths' contract: a hit decodes back to exactly what was stored.
//
// disable skips both the read and the write. A cache read error counts as a
// miss; a write error is logged and swallowed. A compute error propagates
// and nothing is cached.
func CacheOrCall[T any](
	ctx context.Context,
	o *Orchestrator,
	disable bool,
	tenant string,
	calc filters.Calculation,
	key Key,
	integrationIDs []string,
	ttlOverride time.Duration,
	compute func() (T, error),
) (T, error) {
	var zero T
	if disable {
		return compute()
	}

	fullKey := scopedKey(tenant, integrationIDs, key)
	payload, err := o.store.Get(ctx, fullKey)
	if err == nil {
		var out T
		if decErr := json.Unmarshal(payload, &out); decErr == nil {
			return out, nil
		}
		// An undecodable entry is as good as a miss; fall through and
		// recompute so a codec change never breaks reads.
		o.log.WithFields(logrus.Fields{"tenant": tenant, "key": key.Endpoint}).
			Warn("discarding undecodable cache entry")
	} else if !errors.Is(err, ports.ErrCacheMiss) {
		o.log.WithFields(logrus.Fields{"tenant": tenant, "key": key.Endpoint, "error": err}).
			Warn("cache read failed, computing live")
	}

	out, err := compute()
	if err != nil {
		return zero, err
	}

	encoded, err := json.Marshal(out)
	if err != nil {
		// A write-path failure never fails the request.
		o.log.WithFields(logrus.Fields{"tenant": tenant, "key": key.Endpoint, "error": err}).
			Warn(fmt.Sprintf("cache encode failed for %s", key.Endpoint))
		return out, nil
	}
	ttl := o.TTL(tenant, calc, ttlOverride)
	if putErr := o.store.Put(ctx, fullKey, encoded, ttl); putErr != nil {
		o.log.WithFields(logrus.Fields{"tenant": tenant, "key": key.Endpoint, "error": putErr}).
			Warn("cache write failed")
	}
	return out, nil
}
