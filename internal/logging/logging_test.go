package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSONCarriesServiceAndVersion(t *testing.T) {
	var buf bytes.Buffer
	log := Setup("storefront-auth", "1.2.3", "", &buf)
	log.Info("hello", "k", "v")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "storefront-auth", line["service"])
	assert.Equal(t, "1.2.3", line["version"])
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "v", line["k"])
}

func TestSetup_Text(t *testing.T) {
	var buf bytes.Buffer
	Setup("svc", "dev", "text", &buf).Info("hello")
	assert.True(t, strings.Contains(buf.String(), "msg=hello"))
	assert.True(t, strings.Contains(buf.String(), "service=svc"))
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	log := Setup("svc", "dev", "json", &buf)

	err := oops.Code("ACCOUNT_STORE_FAILED").With("operation", "login").Wrap(errors.New("connection reset"))
	LogError(log, "request failed", err, "path", "/api/auth/login")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ERROR", line["level"])
	assert.Equal(t, "ACCOUNT_STORE_FAILED", line["code"])
	assert.Equal(t, "/api/auth/login", line["path"])
	assert.Contains(t, line["error"], "connection reset")
	ctx, ok := line["context"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "login", ctx["operation"])

	buf.Reset()
	LogError(log, "plain", errors.New("boom"))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "boom", line["error"])
}
