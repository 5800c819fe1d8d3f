package config

// Redis backs the profile response cache. If the server cannot be reached at
// startup the client is nil and callers run without the cache.

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisPingTimeout bounds the startup reachability check.
const redisPingTimeout = 2 * time.Second

// RedisOptions builds client options from REDIS_HOST + REDIS_PORT (or the
// REDIS_ADDR shorthand), REDIS_PASSWORD, REDIS_DB and REDIS_TLS. A malformed
// REDIS_DB or REDIS_TLS falls back to the default like the other cache
// settings do.
func RedisOptions() *redis.Options {
	var ignored []error
	p := &parser{errs: &ignored}

	addr := getenv("REDIS_ADDR", "localhost:6379")
	if host, port := getenv("REDIS_HOST", ""), getenv("REDIS_PORT", ""); host != "" && port != "" {
		addr = net.JoinHostPort(host, port)
	}

	opts := &redis.Options{
		Addr:     addr,
		Password: getenv("REDIS_PASSWORD", ""),
		DB:       p.integer("REDIS_DB", 0),
	}
	if p.boolean("REDIS_TLS", false) {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return opts
}

// NewRedisClient connects with RedisOptions and pings the server. It returns
// nil, after closing the client, when the ping fails.
func NewRedisClient(ctx context.Context) *redis.Client {
	client := redis.NewClient(RedisOptions())
	ctx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
