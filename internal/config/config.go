// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file,
// if present), loads them on top of built-in defaults into structured
// Go types, and validates them so the app fails fast on bad config.
//
// Responsibilities:
//   - Provide defaults for the car_cc chaincode and the garage role
//     (peer binary, chaincode name, fixed username/role/VIN).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values and enums (response policy, log level).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: if a `.env` file exists in the working directory
	// it is loaded into the process env before anything reads it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/kballard/go-shellquote"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix every configuration variable carries.
//
// Keys are lowercased and the prefix removed; "." separates nesting:
//
//	CARLEDGER_PEER.RESPONSE_POLICY -> peer.response_policy -> Config.Peer.ResponsePolicy
const EnvPrefix = "CARLEDGER_"

// ServiceName tags logs and New Relic data.
const ServiceName = "carledger"

// Config is the root configuration object for the application.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Peer          PeerConfig           `koanf:"peer" validate:"required"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
//
// Timeouts are whole seconds. WriteTimeout defaults to 0 (none) because a
// create call holds the response until the peer process exits, and the
// process itself has no time bound unless peer.invoke_timeout is set.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"min=0"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`

	// RateLimit is the allowed requests per second per client IP.
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit" validate:"min=0"`

	// StaticDir holds openapi.html and openapi.json, served under /static.
	StaticDir string `koanf:"static_dir" validate:"required"`
}

// Response policies. See service.ResponsePolicy for their semantics.
const (
	PolicyStderr            = "stderr"
	PolicyStdout            = "stdout"
	PolicyStderrRequestUser = "stderr_request_user"
)

// PeerConfig describes how the `peer` CLI is invoked for a car creation.
type PeerConfig struct {
	// Binary is the peer executable, looked up on PATH unless absolute.
	Binary string `koanf:"binary" validate:"required"`

	// Chaincode is the deployed chaincode name (-n).
	Chaincode string `koanf:"chaincode" validate:"required"`

	// Channel (-C) and Orderer (-o) are optional.
	Channel string `koanf:"channel"`
	Orderer string `koanf:"orderer"`

	// LoggingLevel is the peer CLI's own --logging-level.
	LoggingLevel string `koanf:"logging_level"`

	// ExtraArgs is a shell-style string of additional flags,
	// e.g. `--tls --cafile "/etc/hyperledger/ca cert.pem"`.
	ExtraArgs string `koanf:"extra_args"`

	// DefaultUsername, Role and VIN are the literals of the create call.
	DefaultUsername string `koanf:"default_username" validate:"required"`
	Role            string `koanf:"role" validate:"required"`
	VIN             string `koanf:"vin" validate:"required"`

	// ResponsePolicy selects how process output maps to the HTTP response.
	ResponsePolicy string `koanf:"response_policy" validate:"required,oneof=stderr stdout stderr_request_user"`

	// InvokeTimeout kills a hanging peer process. Zero waits forever.
	InvokeTimeout time.Duration `koanf:"invoke_timeout" validate:"min=0"`
}

// ExtraArgList splits ExtraArgs the way a POSIX shell would.
func (p PeerConfig) ExtraArgList() ([]string, error) {
	if strings.TrimSpace(p.ExtraArgs) == "" {
		return nil, nil
	}

	args, err := shellquote.Split(p.ExtraArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid peer extra_args %q: %w", p.ExtraArgs, err)
	}
	return args, nil
}

var listKeys = map[string]bool{
	"server.cors_allowed_origins":        true,
	"observability.health_checks.checks": true,
}

// defaults holds the value of every key not set in the environment.
func defaults() map[string]interface{} {
	obs := DefaultObservabilityConfig()

	return map[string]interface{}{
		"primary.env": "development",

		"server.port":                 "8080",
		"server.read_timeout":         30,
		"server.write_timeout":        0,
		"server.idle_timeout":         60,
		"server.cors_allowed_origins": []string{"*"},
		"server.rate_limit":           0,
		"server.static_dir":           "static",

		"peer.binary":           "peer",
		"peer.chaincode":        "car_cc",
		"peer.channel":          "",
		"peer.orderer":          "",
		"peer.logging_level":    "info",
		"peer.extra_args":       "",
		"peer.default_username": "amag",
		"peer.role":             "garage",
		"peer.vin":              "WVW ZZZ 6RZ HY26 0780",
		"peer.response_policy":  PolicyStderr,
		"peer.invoke_timeout":   time.Duration(0),

		"observability.logging.level":                         obs.Logging.Level,
		"observability.logging.format":                        obs.Logging.Format,
		"observability.logging.slow_invoke_threshold":         obs.Logging.SlowInvokeThreshold,
		"observability.new_relic.license_key":                 obs.NewRelic.LicenseKey,
		"observability.new_relic.app_log_forwarding_enabled":  obs.NewRelic.AppLogForwardingEnabled,
		"observability.new_relic.distributed_tracing_enabled": obs.NewRelic.DistributedTracingEnabled,
		"observability.new_relic.debug_logging":               obs.NewRelic.DebugLogging,
		"observability.health_checks.enabled":                 obs.HealthChecks.Enabled,
		"observability.health_checks.timeout":                 obs.HealthChecks.Timeout,
		"observability.health_checks.checks":                  obs.HealthChecks.Checks,
	}
}

// LoadConfig builds the configuration: defaults first, then every
// CARLEDGER_ env var on top. The result is validated with struct tags
// and with ObservabilityConfig.Validate.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("could not load default config: %w", err)
	}

	err := k.Load(env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))

		// List values are comma separated in the environment.
		if listKeys[key] {
			return key, strings.Split(value, ",")
		}
		return key, value
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := &Config{}
	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if _, err := mainConfig.Peer.ExtraArgList(); err != nil {
		return nil, err
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name is fixed; the environment label always follows primary.env.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
