package config

import "time"

// CacheConfig defines settings for the profile response cache. When Enabled
// is false or no Redis client is available, caching is disabled. TTL bounds
// how stale a cached profile may be; Prefix namespaces the keys and
// MaxBodyBytes skips caching unusually large responses.
type CacheConfig struct {
	Enabled      bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads the CACHE_* variables. Malformed values fall back to
// the defaults; the cache is an optimisation and never blocks startup.
func LoadCacheConfig() CacheConfig {
	var errs []error
	p := &parser{errs: &errs}
	return CacheConfig{
		Enabled:      p.boolean("CACHE_ENABLED", true),
		TTL:          p.duration("CACHE_TTL", 30*time.Second),
		Prefix:       getenv("CACHE_PREFIX", "cache"),
		MaxBodyBytes: p.integer("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
