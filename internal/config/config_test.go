package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/internal/source"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "devlens", cfg.Database.DBName)
	assert.Equal(t, "mongodb://localhost:27017", cfg.Search.URI)
	assert.Equal(t, 10000, cfg.Reports.MaxPageSize)
	assert.Equal(t, 8, cfg.Reports.FanOutPoolSize)
	assert.Equal(t, time.Hour, cfg.Reports.CacheDefaultTTL)
	require.NoError(t, cfg.Validate())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("REPORTS_CACHE_DEFAULT_TTL", "15m")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 15*time.Minute, cfg.Reports.CacheDefaultTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.CORSOrigins)
}

func TestValidateRejectsDefaultSecretInProduction(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Server.Environment = "production"
	assert.Error(t, cfg.Validate())

	cfg.Security.JWTSecret = "an-actual-secret"
	assert.NoError(t, cfg.Validate())
}

func TestGetDatabaseURL(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host:     "db.internal",
		Port:     5432,
		User:     "reports",
		Password: "pw",
		DBName:   "devlens",
		SSLMode:  "require",
	}}
	assert.Equal(t,
		"host=db.internal port=5432 user=reports password=pw dbname=devlens sslmode=require",
		cfg.GetDatabaseURL())
}

func TestGetRedisURL(t *testing.T) {
	cfg := &Config{Redis: RedisConfig{Host: "cache.internal", Port: 6379, DB: 2}}
	assert.Equal(t, "redis://cache.internal:6379/2", cfg.GetRedisURL())

	cfg.Redis.Password = "pw"
	assert.Equal(t, "redis://:pw@cache.internal:6379/2", cfg.GetRedisURL())
}

func TestSourceSelectionParsing(t *testing.T) {
	cfg := &Config{Source: SourceConfig{
		SearchAllowed:         "acme, globex",
		SearchAllowedByReport: "issues/aggregate:acme|initech; job_runs/aggregate:globex",
		RelationalPinned:      "hooli",
	}}

	sel := cfg.SourceSelection()
	assert.Equal(t, source.TenantSet{"acme": true, "globex": true}, sel.SearchAllowed)
	assert.Equal(t, source.TenantSet{"hooli": true}, sel.RelationalPinned)
	require.Len(t, sel.SearchAllowedByReport, 2)
	assert.True(t, sel.SearchAllowedByReport[source.ReportIssuesAggregate]["initech"])
	assert.True(t, sel.SearchAllowedByReport[source.ReportJobRunsAggregate]["globex"])
}

func TestSourceSelectionIgnoresMalformedSegments(t *testing.T) {
	cfg := &Config{Source: SourceConfig{
		SearchAllowedByReport: "no-colon-here; issues/aggregate:; ;issues/values:acme",
	}}
	sel := cfg.SourceSelection()
	require.Len(t, sel.SearchAllowedByReport, 1)
	assert.True(t, sel.SearchAllowedByReport[source.ReportIssuesValues]["acme"])
}

func TestCacheSettingsParsing(t *testing.T) {
	cfg := &Config{Reports: ReportsConfig{
		CacheDefaultTTL:  time.Hour,
		CacheLongTTL:     24 * time.Hour,
		LongCacheTenants: "acme:count|duration; globex:count",
	}}

	settings := cfg.CacheSettings()
	assert.Equal(t, time.Hour, settings.DefaultTTL)
	assert.Equal(t, 24*time.Hour, settings.LongTTL)
	assert.Equal(t, []filters.Calculation{filters.CalcCount, filters.CalcDuration},
		settings.LongCacheTenants["acme"])
	assert.Equal(t, []filters.Calculation{filters.CalcCount},
		settings.LongCacheTenants["globex"])
}
