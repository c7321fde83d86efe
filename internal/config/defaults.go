package config

const (
	defaultUserAgent      = "rollingbatch/dev (+https://github.com/Sternrassler/rollingbatch)"
	defaultTimeoutSeconds = 30
	defaultMaxBodyBytes   = 10 << 20
	defaultMaxRedirects   = 10
	defaultParallelism    = 3
	defaultMaxIterations  = 100
	defaultInitialWaitUS  = 500
	defaultWaitTimeoutMS  = 50
	defaultRedisAddr      = "localhost:6379"
	defaultCacheNamespace = "rollingbatch"
	defaultMaxEntryBytes  = 1 << 20

	// FormatAuto picks console output on a terminal and JSON otherwise.
	FormatAuto    = "auto"
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Environment variables that override file values.
const (
	EnvRedisAddr = "ROLLINGBATCH_REDIS_ADDR"
	EnvUserAgent = "ROLLINGBATCH_USER_AGENT"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTP: HTTP{
			UserAgent:      defaultUserAgent,
			TimeoutSeconds: defaultTimeoutSeconds,
			MaxBodyBytes:   defaultMaxBodyBytes,
			MaxRedirects:   defaultMaxRedirects,
		},
		Batch: Batch{
			Parallelism:   defaultParallelism,
			MaxIterations: defaultMaxIterations,
			InitialWaitUS: defaultInitialWaitUS,
			WaitTimeoutMS: defaultWaitTimeoutMS,
		},
		Cache: Cache{
			RedisAddr:     defaultRedisAddr,
			Namespace:     defaultCacheNamespace,
			MaxEntryBytes: defaultMaxEntryBytes,
		},
		Logging: Logging{
			Level:  "info",
			Format: FormatAuto,
		},
	}
}
