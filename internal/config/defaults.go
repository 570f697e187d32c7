package config

// Defaults returns the built-in configuration. A config file and environment
// overrides are merged on top of these values.
func Defaults() Config {
	return Config{
		Gamma: GammaConfig{
			Host:           "https://gamma-api.polymarket.com",
			Limit:          500,
			TimeoutSeconds: 10,
		},
		Cache: CacheConfig{
			TTLSeconds: 60,
			ServeStale: true,
		},
		Redis: RedisConfig{
			Enabled:  false,
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		Postgres: PostgresConfig{
			SSLMode:      "disable",
			PoolMaxConns: 4,
			PoolMinConns: 1,
		},
		Archive: ArchiveConfig{
			IntervalMinutes: 15,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Mode:     "serve",
		LogLevel: "info",
	}
}
