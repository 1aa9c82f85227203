package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 10
	DBMaxIdleConns    = 2
	DBConnMaxLifetime = 5 * time.Minute
)

// Store retry policy
const (
	StoreRetryAttempts = 6
	StoreRetryDelay    = 20 * time.Second
)

// Process exit codes
const (
	ExitOK               = 0
	ExitVersionMismatch  = 1
	ExitStoreUnavailable = 2
	ExitOperatorRestart  = 3
	ExitInvalidConfig    = 4
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 10 * time.Second
)

// Database ping timeout for startup checks
const DBPingTimeout = 5 * time.Second

// Background job intervals
const CleanupJobInterval = 30 * time.Minute

// Completed admin commands are kept this long before cleanup
const AdminCommandRetention = 7 * 24 * time.Hour

// Bounds for shifting an account's worktime when nothing is eligible
const (
	IdleShiftMin = 1 * time.Minute
	IdleShiftMax = 60 * time.Minute
)

// Resource pool sizing
const (
	ResourcePoolCapacity = 4096
	ResourcePoolTTL      = 6 * time.Hour
)

// Operator API limits
const (
	DefaultDispatchLimit = 50
	MaxDispatchLimit     = 500
	TokenHashCost        = 12
	OpsRateLimitPerMin   = 60
)
