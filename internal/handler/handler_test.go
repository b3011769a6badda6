package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deppfellow/carledger/internal/config"
	"github.com/deppfellow/carledger/internal/errs"
	"github.com/deppfellow/carledger/internal/server"
	"github.com/deppfellow/carledger/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// argvPeer prints its ctor argument to stdout and a fixed line to stderr.
// `peer version` prints a version banner.
const argvPeer = `if [ "$1" = "version" ]; then echo "peer:"; echo " Version: 2.5.4"; exit 0; fi
for last; do :; done
echo "$last"
echo "Chaincode invoke successful. result: status:200" >&2`

func newTestHandlers(t *testing.T, policy, script string) (*server.Server, *Handlers) {
	t.Helper()

	bin := filepath.Join(t.TempDir(), "peer")
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"+script+"\n"), 0o755))

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	cfg.Peer.Binary = bin
	cfg.Peer.ResponsePolicy = policy

	log := zerolog.Nop()
	s, err := server.New(cfg, &log, nil)
	require.NoError(t, err)

	services, err := service.NewServices(s)
	require.NoError(t, err)

	return s, NewHandlers(s, services)
}

func createCar(t *testing.T, h *Handlers, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cars", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/cars")

	err := HandleOutcome(h.Car.Handler, h.Car.CreateCar, NewCreateCarRequest)(c)
	return rec, err
}

func decodeString(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()

	var body string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCreateCarStderrPolicy(t *testing.T) {
	_, h := newTestHandlers(t, config.PolicyStderr, argvPeer)

	rec, err := createCar(t, h, `{"username":"bob"}`)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Chaincode invoke successful. result: status:200\n", decodeString(t, rec))
}

func TestCreateCarStdoutPolicyUsesDefaultUsername(t *testing.T) {
	_, h := newTestHandlers(t, config.PolicyStdout, argvPeer)

	rec, err := createCar(t, h, `{"username":"bob"}`)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decodeString(t, rec), `"create", "amag", "garage"`)
}

func TestCreateCarRequestUsername(t *testing.T) {
	// Echo the ctor on stderr, the stream this policy returns.
	_, h := newTestHandlers(t, config.PolicyStderrRequestUser, `for last; do :; done; echo "$last" >&2`)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"from body", `{"username":"bob"}`, `"create", "bob", "garage"`},
		{"quotes and shell characters", `{"username":"o'neil & $(sons)"}`, `"create", "o'neil & $(sons)", "garage"`},
		{"missing falls back to default", `{}`, `"create", "amag", "garage"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := createCar(t, h, tt.body)
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, decodeString(t, rec), tt.want)
		})
	}
}

func TestCreateCarFailure(t *testing.T) {
	_, h := newTestHandlers(t, config.PolicyStderr, `echo "Error: endorsement failure" >&2; exit 1`)

	rec, err := createCar(t, h, `{}`)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Error: endorsement failure\n", decodeString(t, rec))
}

func TestCreateCarEmptyBody(t *testing.T) {
	_, h := newTestHandlers(t, config.PolicyStderrRequestUser, argvPeer)

	rec, err := createCar(t, h, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateCarInvalidBody(t *testing.T) {
	_, h := newTestHandlers(t, config.PolicyStderrRequestUser, argvPeer)

	t.Run("non-string username", func(t *testing.T) {
		_, err := createCar(t, h, `{"username":42}`)

		var httpErr *errs.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
		require.Len(t, httpErr.Errors, 1)
		assert.Equal(t, "username", httpErr.Errors[0].Field)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := createCar(t, h, `{"username":`)

		var httpErr *errs.HTTPError
		require.ErrorAs(t, err, &httpErr)
		assert.Equal(t, http.StatusBadRequest, httpErr.Status)
	})
}

func TestCheckHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		_, h := newTestHandlers(t, config.PolicyStderr, argvPeer)

		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/status", nil), rec)

		require.NoError(t, h.Health.CheckHealth(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])

		peerCheck := body["checks"].(map[string]interface{})["peer"].(map[string]interface{})
		assert.Equal(t, "healthy", peerCheck["status"])
		assert.Equal(t, "2.5.4", peerCheck["version"])
	})

	t.Run("missing binary", func(t *testing.T) {
		s, h := newTestHandlers(t, config.PolicyStderr, argvPeer)
		s.Config.Peer.Binary = filepath.Join(t.TempDir(), "nope")

		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/status", nil), rec)

		require.NoError(t, h.Health.CheckHealth(c))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"unhealthy"`)
	})

	t.Run("version exits non-zero", func(t *testing.T) {
		_, h := newTestHandlers(t, config.PolicyStderr, `echo "Error: core.yaml not found" >&2; exit 1`)

		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/status", nil), rec)

		require.NoError(t, h.Health.CheckHealth(c))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "core.yaml not found")
	})

	t.Run("checks disabled", func(t *testing.T) {
		s, h := newTestHandlers(t, config.PolicyStderr, argvPeer)
		s.Config.Peer.Binary = filepath.Join(t.TempDir(), "nope")
		s.Config.Observability.HealthChecks.Enabled = false

		e := echo.New()
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/status", nil), rec)

		require.NoError(t, h.Health.CheckHealth(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestServeOpenAPIUI(t *testing.T) {
	s, h := newTestHandlers(t, config.PolicyStderr, argvPeer)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "openapi.html"), []byte("<html>docs</html>"), 0o644))
	s.Config.Server.StaticDir = dir

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/docs", nil), rec)

	require.NoError(t, h.OpenAPI.ServeOpenAPIUI(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "<html>docs</html>", rec.Body.String())
}

func TestParseVersion(t *testing.T) {
	output := "peer:\n Version: v2.5.4\n Commit SHA: 9bbe4a2\n Go version: go1.21.5\n OS/Arch: linux/amd64\n"

	assert.Equal(t, "v2.5.4", parseVersion(output))
	assert.Equal(t, "unknown", parseVersion("peer:\n"))
}
