package config

import "time"

const appName = "habitlens"

// Record sources.
const (
	SourceSQLite = "sqlite"
	SourceFile   = "file"
	SourceMongo  = "mongo"
)

// Cache backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Default values
const (
	defaultMongoDB              = "habitlens"
	defaultCacheCleanupInterval = time.Minute
	defaultConnectivityInterval = 30 * time.Second
	defaultRetryAttempts        = 3
	defaultRetryBaseDelay       = time.Second
	defaultEngineWorkers        = 2
	defaultMinDataPoints        = 1
)
