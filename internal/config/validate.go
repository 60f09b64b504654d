package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	logLevels  = []string{"debug", "info", "warn", "warning", "error"}
	logFormats = []string{"text", "json"}
)

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.URL != "", "DATABASE_URL is required")
	check(db.MaxConns > 0, "DB_MAX_CONNS must be positive")
	check(db.MinConns >= 0, "DB_MIN_CONNS must be non-negative")
	check(db.MaxConns >= db.MinConns, "DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", db.MaxConns, db.MinConns)

	srv := c.Server
	check(srv.Port > 0 && srv.Port <= 65535, "SERVER_PORT (%d) must be 1-65535", srv.Port)
	check(srv.ReadTimeout >= 0, "SERVER_READ_TIMEOUT must be non-negative")
	check(srv.ShutdownTimeout > 0, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	check(srv.RequestTimeout > 0, "SERVER_REQUEST_TIMEOUT must be positive")

	tbl := c.Table
	check(tbl.CatalogPath != "", "TABLE_CATALOG must not be empty")
	check(tbl.DefaultPageSize > 0, "TABLE_DEFAULT_PAGE_SIZE must be positive")
	check(tbl.MaxPageSize >= tbl.DefaultPageSize,
		"TABLE_MAX_PAGE_SIZE (%d) must be >= TABLE_DEFAULT_PAGE_SIZE (%d)", tbl.MaxPageSize, tbl.DefaultPageSize)
	check(tbl.SessionTTL > 0, "TABLE_SESSION_TTL must be positive")

	check(!c.Rate.Enabled || c.Rate.RequestsPerMinute > 0,
		"RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	check(!c.Security.RequireAPIKey || len(c.Security.APIKeys) > 0,
		"REQUIRE_API_KEY is set but API_KEYS is empty")

	check(slices.Contains(logLevels, strings.ToLower(c.Logging.Level)),
		"LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level)
	check(slices.Contains(logFormats, strings.ToLower(c.Logging.Format)),
		"LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format)

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("validation failed: %w", errors.Join(errs...))
}

// String renders the config for startup logs with secrets masked.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Server: {Addr: %q, RequestTimeout: %s}, "+
		"Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, "+
		"Table: {Catalog: %q, DefaultPageSize: %d, MaxPageSize: %d, SessionTTL: %s}, "+
		"Rate: {Enabled: %v, RequestsPerMinute: %d}, "+
		"Security: {RequireAPIKey: %v, APIKeys: %d configured}, "+
		"Logging: {Level: %q, Format: %q}}",
		c.Server.Addr(), c.Server.RequestTimeout,
		c.Database.MaxConns, c.Database.MinConns,
		c.Table.CatalogPath, c.Table.DefaultPageSize, c.Table.MaxPageSize, c.Table.SessionTTL,
		c.Rate.Enabled, c.Rate.RequestsPerMinute,
		c.Security.RequireAPIKey, len(c.Security.APIKeys),
		c.Logging.Level, c.Logging.Format)
}
