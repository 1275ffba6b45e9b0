package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/domain"
	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/internal/ports"
)

type fakeStore struct {
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	putErr  error
	gets    int
	puts    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.gets++
	if s.getErr != nil {
		return nil, s.getErr
	}
	v, ok := s.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return v, nil
}

func (s *fakeStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.data[key] = value
	s.ttls[key] = ttl
	return nil
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func testKey() Key {
	return Key{Endpoint: "issues/aggregate", FilterHash: "fh", ScopeHash: "", Page: 0, PageSize: 100, SortHash: "nosort"}
}

func TestKeyStringIsDeterministic(t *testing.T) {
	a := testKey()
	b := testKey()
	assert.Equal(t, a.String(), b.String())
	assert.Contains(t, a.String(), "issues/aggregate:")

	c := testKey()
	c.Page = 1
	assert.NotEqual(t, a.String(), c.String())
}

func TestSortHash(t *testing.T) {
	assert.Equal(t, "nosort", SortHash(nil))
	assert.Equal(t, "nosort", SortHash([]domain.SortEntry{}))
	assert.NotEqual(t,
		SortHash([]domain.SortEntry{{ID: "count", Desc: true}}),
		SortHash([]domain.SortEntry{{ID: "count", Desc: false}}))
}

func TestScopedKeySortsIntegrationIDs(t *testing.T) {
	a := scopedKey("acme", []string{"2", "1"}, testKey())
	b := scopedKey("acme", []string{"1", "2"}, testKey())
	assert.Equal(t, a, b)
	assert.Contains(t, a, "devlens:acme:1_2:")
}

func TestCacheOrCallRoundTrip(t *testing.T) {
	store := newFakeStore()
	o := New(store, testLogger(), Config{})
	calls := 0
	compute := func() (domain.PaginatedResponse, error) {
		calls++
		return domain.NewPaginatedResponse(0, 10, []string{"a"}), nil
	}

	first, err := CacheOrCall(context.Background(), o, false, "acme", filters.CalcCount, testKey(), nil, 0, compute)
	require.NoError(t, err)
	second, err := CacheOrCall(context.Background(), o, false, "acme", filters.CalcCount, testKey(), nil, 0, compute)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first.Page, second.Page)
	assert.Equal(t, first.PageSize, second.PageSize)
}

func TestCacheOrCallDisableSkipsStore(t *testing.T) {
	store := newFakeStore()
	o := New(store, testLogger(), Config{})
	calls := 0
	compute := func() (int, error) { calls++; return 42, nil }

	for i := 0; i < 2; i++ {
		out, err := CacheOrCall(context.Background(), o, true, "acme", filters.CalcCount, testKey(), nil, 0, compute)
		require.NoError(t, err)
		assert.Equal(t, 42, out)
	}
	assert.Equal(t, 2, calls)
	assert.Zero(t, store.gets)
	assert.Zero(t, store.puts)
}

func TestCacheOrCallReadErrorComputesLive(t *testing.T) {
	store := newFakeStore()
	store.getErr = errors.New("connection refused")
	o := New(store, testLogger(), Config{})

	out, err := CacheOrCall(context.Background(), o, false, "acme", filters.CalcCount, testKey(), nil, 0,
		func() (string, error) { return "live", nil })
	require.NoError(t, err)
	assert.Equal(t, "live", out)
	assert.Equal(t, 1, store.puts)
}

func TestCacheOrCallWriteErrorIsSwallowed(t *testing.T) {
	store := newFakeStore()
	store.putErr = errors.New("oom")
	o := New(store, testLogger(), Config{})

	out, err := CacheOrCall(context.Background(), o, false, "acme", filters.CalcCount, testKey(), nil, 0,
		func() (string, error) { return "fresh", nil })
	require.NoError(t, err)
	assert.Equal(t, "fresh", out)
}

func TestCacheOrCallComputeErrorCachesNothing(t *testing.T) {
	store := newFakeStore()
	o := New(store, testLogger(), Config{})

	boom := errors.New("query failed")
	_, err := CacheOrCall(context.Background(), o, false, "acme", filters.CalcCount, testKey(), nil, 0,
		func() (string, error) { return "", boom })
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, store.puts)
}

func TestTTLResolution(t *testing.T) {
	o := New(newFakeStore(), testLogger(), Config{
		DefaultTTL: time.Minute,
		LongTTL:    time.Hour,
		LongCacheTenants: map[string][]filters.Calculation{
			"bigco": {filters.CalcSprintMapping},
		},
	})

	assert.Equal(t, time.Minute, o.TTL("acme", filters.CalcCount, 0))
	assert.Equal(t, time.Hour, o.TTL("bigco", filters.CalcSprintMapping, 0))
	assert.Equal(t, time.Minute, o.TTL("bigco", filters.CalcCount, 0))
	assert.Equal(t, 5*time.Second, o.TTL("bigco", filters.CalcSprintMapping, 5*time.Second))
}
