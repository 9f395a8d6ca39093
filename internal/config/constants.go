package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Outbound GraphQL request timeout
const GatewayRequestTimeout = 15 * time.Second

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Visitor stores idle longer than this are evicted from memory.
// The persisted snapshot survives eviction until it expires.
const VisitorIdleTimeout = 30 * time.Minute

// Cookie names
const (
	VisitorCookie    = "rf_visitor"
	OAuthStateCookie = "rf_oauth_state"
)
