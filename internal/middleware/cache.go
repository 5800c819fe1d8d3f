package middleware

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/storefront-auth/internal/config"
)

// captureWriter captures response body/status while forwarding to the client.
// Once the body grows past limit the capture is abandoned.
type captureWriter struct {
	http.ResponseWriter
	status   int
	buf      bytes.Buffer
	limit    int64
	overflow bool
}

func (cw *captureWriter) WriteHeader(code int) { cw.status = code; cw.ResponseWriter.WriteHeader(code) }

func (cw *captureWriter) Write(b []byte) (int, error) {
	if !cw.overflow {
		if cw.limit > 0 && int64(cw.buf.Len()+len(b)) > cw.limit {
			cw.overflow = true
			cw.buf.Reset()
		} else {
			cw.buf.Write(b)
		}
	}
	return cw.ResponseWriter.Write(b)
}

// encodePayload packs: [4 bytes status][4 bytes headerLen][headerJSON][body]
func encodePayload(status int, header http.Header, body []byte) ([]byte, error) {
	hdrJSON, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8+len(hdrJSON)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdrJSON)))
	copy(out[8:8+len(hdrJSON)], hdrJSON)
	copy(out[8+len(hdrJSON):], body)
	return out, nil
}

func decodePayload(bs []byte) (status int, header http.Header, body []byte, ok bool) {
	if len(bs) < 8 {
		return 0, nil, nil, false
	}
	status = int(binary.BigEndian.Uint32(bs[0:4]))
	hlen := int(binary.BigEndian.Uint32(bs[4:8]))
	if hlen < 0 || 8+hlen > len(bs) {
		return 0, nil, nil, false
	}
	hdr := make(http.Header)
	if hlen > 0 {
		if err := json.Unmarshal(bs[8:8+hlen], &hdr); err != nil {
			return 0, nil, nil, false
		}
	}
	return status, hdr, bs[8+hlen:], true
}

// ProfileCache stores the authenticated profile response per account in
// Redis. Entries live for the configured TTL. Each account has a generation
// counter that is part of the entry key; Invalidate bumps it, so a response
// rendered before the bump can only land under a key nobody reads anymore.
// A nil *ProfileCache, a nil client or a disabled config all turn it into a
// pass-through.
type ProfileCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
	log *slog.Logger
}

// NewProfileCache returns a cache backed by rdb, which may be nil.
func NewProfileCache(cfg config.CacheConfig, rdb *redis.Client, log *slog.Logger) *ProfileCache {
	if log == nil {
		log = slog.Default()
	}
	return &ProfileCache{cfg: cfg, rdb: rdb, log: log}
}

func (p *ProfileCache) enabled() bool {
	return p != nil && p.cfg.Enabled && p.rdb != nil && p.cfg.TTL > 0
}

// minGenerationTTL keeps a generation counter alive well past the entries
// keyed on it.
const minGenerationTTL = 24 * time.Hour

func (p *ProfileCache) genKey(accountID string) string {
	return p.cfg.Prefix + ":profile:" + accountID + ":gen"
}

func (p *ProfileCache) key(accountID string, gen int64) string {
	return p.cfg.Prefix + ":profile:" + accountID + ":" + strconv.FormatInt(gen, 10)
}

func (p *ProfileCache) generation(ctx context.Context, accountID string) (int64, error) {
	gen, err := p.rdb.Get(ctx, p.genKey(accountID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (p *ProfileCache) generationTTL() time.Duration {
	if ttl := 2 * p.cfg.TTL; ttl > minGenerationTTL {
		return ttl
	}
	return minGenerationTTL
}

// Middleware serves GET requests from the cache and stores successful
// responses on a miss. It must run after SessionGuard.
func (p *ProfileCache) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !p.enabled() || c.Request().Method != http.MethodGet {
				return next(c)
			}
			accountID := AccountID(c)
			if accountID == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			gen, err := p.generation(ctx, accountID)
			if err != nil {
				p.log.Warn("profile cache generation read failed", "error", err)
				return next(c)
			}
			key := p.key(accountID, gen)

			bs, err := p.rdb.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				if status, hdr, body, ok := decodePayload(bs); ok {
					for k, vals := range hdr {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					if len(body) > 0 {
						_, _ = c.Response().Write(body)
					}
					return nil
				}
			case !errors.Is(err, redis.Nil):
				p.log.Warn("profile cache read failed", "error", err)
			}

			orig := c.Response().Writer
			cw := &captureWriter{ResponseWriter: orig, status: http.StatusOK, limit: int64(p.cfg.MaxBodyBytes)}
			c.Response().Writer = cw
			defer func() { c.Response().Writer = orig }()
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if cw.status != http.StatusOK || cw.overflow {
				return nil
			}

			hdr := c.Response().Header().Clone()
			hdr.Del("X-Cache")
			payload, err := encodePayload(cw.status, hdr, cw.buf.Bytes())
			if err != nil {
				return nil
			}
			if err := p.rdb.SetEx(context.WithoutCancel(ctx), key, payload, p.cfg.TTL).Err(); err != nil {
				p.log.Warn("profile cache write failed", "error", err)
			}
			return nil
		}
	}
}

// Invalidate retires every cached profile of accountID, including one a
// concurrent request is about to write.
func (p *ProfileCache) Invalidate(ctx context.Context, accountID string) error {
	if !p.enabled() {
		return nil
	}
	genKey := p.genKey(accountID)
	_, err := p.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, p.generationTTL())
		return nil
	})
	return err
}
