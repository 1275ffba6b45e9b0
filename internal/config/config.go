package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/devlens/devlens/internal/cache"
	"github.com/devlens/devlens/internal/filters"
	"github.com/devlens/devlens/internal/source"
)

// Config represents application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Search   SearchConfig   `json:"search"`
	Redis    RedisConfig    `json:"redis"`
	Logging  LoggingConfig  `json:"logging"`
	Security SecurityConfig `json:"security"`
	Reports  ReportsConfig  `json:"reports"`
	Source   SourceConfig   `json:"source"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
	Debug        bool          `json:"debug"`
}

// DatabaseConfig represents the relational store configuration
type DatabaseConfig struct {
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"dbname"`
	SSLMode        string        `json:"sslmode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleTime    time.Duration `json:"max_idle_time"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
}

// SearchConfig represents the search-index store configuration
type SearchConfig struct {
	URI     string        `json:"uri"`
	Timeout time.Duration `json:"timeout"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json, text
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	JWTSecret     string        `json:"jwt_secret"`
	JWTExpiration time.Duration `json:"jwt_expiration"`
	CORSOrigins   []string      `json:"cors_origins"`
}

// ReportsConfig tunes the report pipeline
type ReportsConfig struct {
	MaxPageSize      int           `json:"max_page_size"`
	FanOutPoolSize   int           `json:"fan_out_pool_size"`
	CacheDefaultTTL  time.Duration `json:"cache_default_ttl"`
	CacheLongTTL     time.Duration `json:"cache_long_ttl"`
	LongCacheTenants string        `json:"long_cache_tenants"`
}

// SourceConfig is the raw backing-store selection configuration. Lists are
// comma-separated tenants; per-report entries use "report:tenant|tenant"
// segments joined with ";".
type SourceConfig struct {
	SearchAllowed            string `json:"search_allowed"`
	SearchAllowedByReport    string `json:"search_allowed_by_report"`
	RelationalPinned         string `json:"relational_pinned"`
	RelationalPinnedByReport string `json:"relational_pinned_by_report"`
}

// Load loads configuration from environment variables and defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
			Debug:        getEnvBool("DEBUG", true),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "devlens"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 20),
			MaxIdleTime:    getEnvDuration("DB_MAX_IDLE_TIME", 30*time.Minute),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
		},
		Search: SearchConfig{
			URI:     getEnv("SEARCH_URI", "mongodb://localhost:27017"),
			Timeout: getEnvDuration("SEARCH_TIMEOUT", 30*time.Second),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			JWTSecret:     getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			JWTExpiration: getEnvDuration("JWT_EXPIRATION", 24*time.Hour),
			CORSOrigins:   getEnvSlice("CORS_ORIGINS", []string{"*"}),
		},
		Reports: ReportsConfig{
			MaxPageSize:      getEnvInt("REPORTS_MAX_PAGE_SIZE", 10000),
			FanOutPoolSize:   getEnvInt("REPORTS_FAN_OUT_POOL_SIZE", 8),
			CacheDefaultTTL:  getEnvDuration("REPORTS_CACHE_DEFAULT_TTL", time.Hour),
			CacheLongTTL:     getEnvDuration("REPORTS_CACHE_LONG_TTL", 24*time.Hour),
			LongCacheTenants: getEnv("REPORTS_LONG_CACHE_TENANTS", ""),
		},
		Source: SourceConfig{
			SearchAllowed:            getEnv("SOURCE_SEARCH_ALLOWED_TENANTS", ""),
			SearchAllowedByReport:    getEnv("SOURCE_SEARCH_ALLOWED_BY_REPORT", ""),
			RelationalPinned:         getEnv("SOURCE_RELATIONAL_PINNED_TENANTS", ""),
			RelationalPinnedByReport: getEnv("SOURCE_RELATIONAL_PINNED_BY_REPORT", ""),
		},
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Search.URI == "" {
		return fmt.Errorf("search URI is required")
	}
	if c.Security.JWTSecret == "" || c.Security.JWTSecret == "your-secret-key-change-in-production" {
		if c.IsProduction() {
			return fmt.Errorf("JWT secret must be set in production")
		}
	}
	return nil
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// GetDatabaseURL returns the database connection URL
func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisURL returns the Redis connection URL
func (c *Config) GetRedisURL() string {
	if c.Redis.Password != "" {
		return fmt.Sprintf("redis://:%s@%s:%d/%d", c.Redis.Password, c.Redis.Host, c.Redis.Port, c.Redis.DB)
	}
	return fmt.Sprintf("redis://%s:%d/%d", c.Redis.Host, c.Redis.Port, c.Redis.DB)
}

// SourceSelection parses the raw source lists into the immutable selection
// table.
func (c *Config) SourceSelection() source.Config {
	return source.Config{
		SearchAllowed:            parseTenantSet(c.Source.SearchAllowed),
		SearchAllowedByReport:    parseReportTenants(c.Source.SearchAllowedByReport),
		RelationalPinned:         parseTenantSet(c.Source.RelationalPinned),
		RelationalPinnedByReport: parseReportTenants(c.Source.RelationalPinnedByReport),
	}
}

// CacheSettings parses the cache tuning into the orchestrator config.
func (c *Config) CacheSettings() cache.Config {
	return cache.Config{
		DefaultTTL:       c.Reports.CacheDefaultTTL,
		LongTTL:          c.Reports.CacheLongTTL,
		LongCacheTenants: parseLongCacheTenants(c.Reports.LongCacheTenants),
	}
}

func parseTenantSet(raw string) source.TenantSet {
	set := source.TenantSet{}
	for _, tenant := range strings.Split(raw, ",") {
		tenant = strings.TrimSpace(tenant)
		if tenant != "" {
			set[tenant] = true
		}
	}
	return set
}

// parseReportTenants reads "report:tenantA|tenantB;report2:tenantC".
func parseReportTenants(raw string) map[source.Report]source.TenantSet {
	out := map[source.Report]source.TenantSet{}
	for _, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		parts := strings.SplitN(segment, ":", 2)
		if len(parts) != 2 {
			continue
		}
		report := source.Report(strings.TrimSpace(parts[0]))
		set := source.TenantSet{}
		for _, tenant := range strings.Split(parts[1], "|") {
			tenant = strings.TrimSpace(tenant)
			if tenant != "" {
				set[tenant] = true
			}
		}
		if len(set) > 0 {
			out[report] = set
		}
	}
	return out
}

// parseLongCacheTenants reads "tenant:calc|calc;tenant2:calc".
func parseLongCacheTenants(raw string) map[string][]filters.Calculation {
	out := map[string][]filters.Calculation{}
	for _, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		parts := strings.SplitN(segment, ":", 2)
		if len(parts) != 2 {
			continue
		}
		tenant := strings.TrimSpace(parts[0])
		var calcs []filters.Calculation
		for _, calc := range strings.Split(parts[1], "|") {
			calc = strings.TrimSpace(calc)
			if calc != "" {
				calcs = append(calcs, filters.Calculation(calc))
			}
		}
		if tenant != "" && len(calcs) > 0 {
			out[tenant] = calcs
		}
	}
	return out
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
