package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/storefront-auth/internal/config"
	"github.com/iliyamo/storefront-auth/internal/logging"
)

func newTestCache(t *testing.T, cfg config.CacheConfig) (*ProfileCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewProfileCache(cfg, rdb, logging.Discard()), mr
}

var testCacheConfig = config.CacheConfig{Enabled: true, TTL: 30 * time.Second, Prefix: "test", MaxBodyBytes: 1 << 20}

// serve runs one request through the cache for accountID; the handler answers
// with body and counts its invocations.
func serve(t *testing.T, pc *ProfileCache, accountID, body string, status int, calls *int) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/user/userdata", nil)
	if accountID != "" {
		req = req.WithContext(WithAccountID(req.Context(), accountID))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := pc.Middleware()(func(c echo.Context) error {
		*calls++
		return c.JSONBlob(status, []byte(body))
	})
	require.NoError(t, h(c))
	return rec
}

func TestProfileCache_MissThenHit(t *testing.T) {
	pc, mr := newTestCache(t, testCacheConfig)
	calls := 0

	rec := serve(t, pc, "acc-1", `{"success":true}`, http.StatusOK, &calls)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.True(t, mr.Exists("test:profile:acc-1:0"))

	rec = serve(t, pc, "acc-1", `{"success":false}`, http.StatusOK, &calls)
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, `{"success":true}`, rec.Body.String())
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON))
	assert.Equal(t, 1, calls)

	mr.FastForward(31 * time.Second)
	serve(t, pc, "acc-1", `{"success":true}`, http.StatusOK, &calls)
	assert.Equal(t, 2, calls)
}

func TestProfileCache_PerAccount(t *testing.T) {
	pc, _ := newTestCache(t, testCacheConfig)
	calls := 0
	serve(t, pc, "acc-1", `{"u":"alice"}`, http.StatusOK, &calls)
	rec := serve(t, pc, "acc-2", `{"u":"bob"}`, http.StatusOK, &calls)
	assert.Equal(t, `{"u":"bob"}`, rec.Body.String())
	assert.Equal(t, 2, calls)
}

func TestProfileCache_Invalidate(t *testing.T) {
	pc, mr := newTestCache(t, testCacheConfig)
	calls := 0
	serve(t, pc, "acc-1", `{"isAccountVerified":false}`, http.StatusOK, &calls)
	require.True(t, mr.Exists("test:profile:acc-1:0"))

	require.NoError(t, pc.Invalidate(context.Background(), "acc-1"))
	gen, err := mr.Get("test:profile:acc-1:gen")
	require.NoError(t, err)
	assert.Equal(t, "1", gen)
	assert.Greater(t, mr.TTL("test:profile:acc-1:gen"), testCacheConfig.TTL)

	rec := serve(t, pc, "acc-1", `{"isAccountVerified":true}`, http.StatusOK, &calls)
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, `{"isAccountVerified":true}`, rec.Body.String())
	assert.Equal(t, 2, calls)
	assert.True(t, mr.Exists("test:profile:acc-1:1"))
}

// A profile rendered before an invalidation must not be served after it, even
// when the rendering request writes the cache last.
func TestProfileCache_InvalidateDuringRender(t *testing.T) {
	pc, _ := newTestCache(t, testCacheConfig)
	e := echo.New()
	calls := 0

	run := func(h echo.HandlerFunc) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/user/userdata", nil)
		req = req.WithContext(WithAccountID(req.Context(), "acc-1"))
		rec := httptest.NewRecorder()
		require.NoError(t, pc.Middleware()(h)(e.NewContext(req, rec)))
		return rec
	}

	run(func(c echo.Context) error {
		calls++
		stale := []byte(`{"isAccountVerified":false}`)
		require.NoError(t, pc.Invalidate(c.Request().Context(), "acc-1"))
		return c.JSONBlob(http.StatusOK, stale)
	})

	rec := run(func(c echo.Context) error {
		calls++
		return c.JSONBlob(http.StatusOK, []byte(`{"isAccountVerified":true}`))
	})
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
	assert.Equal(t, `{"isAccountVerified":true}`, rec.Body.String())
	assert.Equal(t, 2, calls)

	rec = run(func(c echo.Context) error {
		calls++
		return c.JSONBlob(http.StatusOK, []byte(`{}`))
	})
	assert.Equal(t, "HIT", rec.Header().Get("X-Cache"))
	assert.Equal(t, `{"isAccountVerified":true}`, rec.Body.String())
	assert.Equal(t, 2, calls)
}

func TestProfileCache_GenerationReadFailurePassesThrough(t *testing.T) {
	pc, mr := newTestCache(t, testCacheConfig)
	require.NoError(t, mr.Set("test:profile:acc-1:gen", "not-a-number"))
	calls := 0

	rec := serve(t, pc, "acc-1", `{}`, http.StatusOK, &calls)
	assert.Empty(t, rec.Header().Get("X-Cache"))
	assert.False(t, mr.Exists("test:profile:acc-1:0"))
	assert.Equal(t, 1, calls)
}

func TestProfileCache_SkipsErrorsAndLargeBodies(t *testing.T) {
	cfg := testCacheConfig
	cfg.MaxBodyBytes = 8
	pc, mr := newTestCache(t, cfg)
	calls := 0

	serve(t, pc, "acc-1", `{"success":false}`, http.StatusNotFound, &calls)
	assert.False(t, mr.Exists("test:profile:acc-1:0"))

	rec := serve(t, pc, "acc-1", `{"long":"body over the limit"}`, http.StatusOK, &calls)
	assert.Equal(t, `{"long":"body over the limit"}`, rec.Body.String())
	assert.False(t, mr.Exists("test:profile:acc-1:0"))
}

func TestProfileCache_PassThrough(t *testing.T) {
	calls := 0

	var nilCache *ProfileCache
	serve(t, nilCache, "acc-1", `{}`, http.StatusOK, &calls)
	assert.NoError(t, nilCache.Invalidate(context.Background(), "acc-1"))

	disabled := NewProfileCache(config.CacheConfig{Enabled: false}, nil, nil)
	serve(t, disabled, "acc-1", `{}`, http.StatusOK, &calls)

	pc, mr := newTestCache(t, testCacheConfig)
	serve(t, pc, "", `{}`, http.StatusOK, &calls)
	assert.Empty(t, mr.Keys())
	assert.Equal(t, 3, calls)
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, hdr, got)
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}
