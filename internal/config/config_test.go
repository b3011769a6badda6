package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Primary.Env)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 0, cfg.Server.WriteTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)

	assert.Equal(t, "peer", cfg.Peer.Binary)
	assert.Equal(t, "car_cc", cfg.Peer.Chaincode)
	assert.Equal(t, "info", cfg.Peer.LoggingLevel)
	assert.Equal(t, "amag", cfg.Peer.DefaultUsername)
	assert.Equal(t, "garage", cfg.Peer.Role)
	assert.Equal(t, "WVW ZZZ 6RZ HY26 0780", cfg.Peer.VIN)
	assert.Equal(t, PolicyStderr, cfg.Peer.ResponsePolicy)
	assert.Zero(t, cfg.Peer.InvokeTimeout)

	require.NotNil(t, cfg.Observability)
	assert.Equal(t, ServiceName, cfg.Observability.ServiceName)
	assert.Equal(t, "development", cfg.Observability.Environment)
	assert.Equal(t, 5*time.Second, cfg.Observability.HealthChecks.Timeout)
	assert.True(t, cfg.Observability.HealthCheckEnabled("peer"))
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("CARLEDGER_PRIMARY.ENV", "production")
	t.Setenv("CARLEDGER_SERVER.PORT", "9090")
	t.Setenv("CARLEDGER_SERVER.CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("CARLEDGER_SERVER.RATE_LIMIT", "2.5")
	t.Setenv("CARLEDGER_PEER.RESPONSE_POLICY", "stderr_request_user")
	t.Setenv("CARLEDGER_PEER.INVOKE_TIMEOUT", "30s")
	t.Setenv("CARLEDGER_PEER.CHANNEL", "mychannel")
	t.Setenv("CARLEDGER_PEER.EXTRA_ARGS", `--tls --cafile "/etc/ca cert.pem"`)
	t.Setenv("CARLEDGER_OBSERVABILITY.LOGGING.LEVEL", "warn")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
	assert.InDelta(t, 2.5, cfg.Server.RateLimit, 0.0001)
	assert.Equal(t, PolicyStderrRequestUser, cfg.Peer.ResponsePolicy)
	assert.Equal(t, 30*time.Second, cfg.Peer.InvokeTimeout)
	assert.Equal(t, "mychannel", cfg.Peer.Channel)
	assert.Equal(t, "warn", cfg.Observability.Logging.Level)
	assert.Equal(t, "production", cfg.Observability.Environment)
	assert.True(t, cfg.Observability.IsProduction())

	extra, err := cfg.Peer.ExtraArgList()
	require.NoError(t, err)
	assert.Equal(t, []string{"--tls", "--cafile", "/etc/ca cert.pem"}, extra)
}

func TestLoadConfigRejectsUnknownPolicy(t *testing.T) {
	t.Setenv("CARLEDGER_PEER.RESPONSE_POLICY", "combined")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfigRejectsBadExtraArgs(t *testing.T) {
	t.Setenv("CARLEDGER_PEER.EXTRA_ARGS", `--cafile "unterminated`)

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestObservabilityValidate(t *testing.T) {
	cfg := DefaultObservabilityConfig()
	require.NoError(t, cfg.Validate())

	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = DefaultObservabilityConfig()
	cfg.Logging.Format = "xml"
	assert.Error(t, cfg.Validate())

	cfg = DefaultObservabilityConfig()
	cfg.Logging.SlowInvokeThreshold = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestGetLogLevel(t *testing.T) {
	cfg := DefaultObservabilityConfig()
	cfg.Logging.Level = ""

	cfg.Environment = "development"
	assert.Equal(t, "debug", cfg.GetLogLevel())

	cfg.Environment = "production"
	assert.Equal(t, "info", cfg.GetLogLevel())

	cfg.Logging.Level = "error"
	assert.Equal(t, "error", cfg.GetLogLevel())
}

func TestHealthCheckEnabled(t *testing.T) {
	cfg := DefaultObservabilityConfig()
	assert.True(t, cfg.HealthCheckEnabled("peer"))
	assert.False(t, cfg.HealthCheckEnabled("database"))

	cfg.HealthChecks.Enabled = false
	assert.False(t, cfg.HealthCheckEnabled("peer"))
}
