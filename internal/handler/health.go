package handler

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/deppfellow/carledger/internal/middleware"
	"github.com/deppfellow/carledger/internal/server"
	"github.com/labstack/echo/v4"
)

// HealthHandler serves the /status endpoint used by load balancers and
// uptime monitors.
type HealthHandler struct {
	Handler
}

func NewHealthHandler(s *server.Server) *HealthHandler {
	return &HealthHandler{
		Handler: NewHandler(s),
	}
}

// CheckHealth returns the service status and dependency checks.
//
// The only dependency is the peer CLI: it must resolve on PATH and answer
// `peer version` within the configured health check timeout.
// It returns 200 when every enabled check passes and 503 otherwise.
func (h *HealthHandler) CheckHealth(c echo.Context) error {
	start := time.Now()

	logger := middleware.GetLogger(c).With().
		Str("operation", "health_check").
		Logger()

	response := map[string]interface{}{
		"status":      "healthy",
		"timestamp":   time.Now().UTC(),
		"environment": h.server.Config.Primary.Env,
		"checks":      make(map[string]interface{}),
	}

	checks := response["checks"].(map[string]interface{})
	isHealthy := true

	if h.server.Config.Observability.HealthCheckEnabled("peer") {
		peerStart := time.Now()

		version, err := h.checkPeer(c.Request().Context())
		if err != nil {
			checks["peer"] = map[string]interface{}{
				"status":        "unhealthy",
				"response_time": time.Since(peerStart).String(),
				"error":         err.Error(),
			}

			isHealthy = false

			logger.Error().
				Err(err).
				Dur("response_time", time.Since(peerStart)).
				Msg("peer health check failed")

			h.recordHealthCheckError(map[string]interface{}{
				"check_type":       "peer",
				"operation":        "health_check",
				"error_type":       "peer_unhealthy",
				"response_time_ms": time.Since(peerStart).Milliseconds(),
				"error_message":    err.Error(),
			})
		} else {
			checks["peer"] = map[string]interface{}{
				"status":        "healthy",
				"response_time": time.Since(peerStart).String(),
				"version":       version,
			}

			logger.Info().
				Dur("response_time", time.Since(peerStart)).
				Msg("peer health check passed")
		}
	}

	if !isHealthy {
		response["status"] = "unhealthy"

		logger.Warn().
			Dur("total_duration", time.Since(start)).
			Msg("health check failed")

		h.recordHealthCheckError(map[string]interface{}{
			"check_type":        "overall",
			"operation":         "health_check",
			"error_type":        "overall_unhealthy",
			"total_duration_ms": time.Since(start).Milliseconds(),
		})

		return c.JSON(http.StatusServiceUnavailable, response)
	}

	logger.Info().
		Dur("total_duration", time.Since(start)).
		Msg("health check passed")

	if err := c.JSON(http.StatusOK, response); err != nil {
		logger.Error().Err(err).Msg("failed to write JSON response")
		return fmt.Errorf("failed to write JSON response: %w", err)
	}

	return nil
}

// checkPeer resolves the peer binary and runs `peer version`, returning
// the reported version:
//
//	peer:
//	 Version: v2.5.4
//	 Commit SHA: ...
func (h *HealthHandler) checkPeer(ctx context.Context) (string, error) {
	binary := h.server.Config.Peer.Binary

	if _, err := exec.LookPath(binary); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, h.server.Config.Observability.HealthChecks.Timeout)
	defer cancel()

	res := h.server.Peer.Version(ctx, binary)
	if res.Failed() {
		return "", fmt.Errorf("peer version exited with code %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}

	return parseVersion(res.Stdout), nil
}

// parseVersion returns the value of the "Version:" line, or "unknown" when
// the output has none.
func parseVersion(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if version, ok := strings.CutPrefix(strings.TrimSpace(line), "Version:"); ok {
			return strings.TrimSpace(version)
		}
	}
	return "unknown"
}

func (h *HealthHandler) recordHealthCheckError(attrs map[string]interface{}) {
	if h.server.LoggerService == nil || h.server.LoggerService.GetApplication() == nil {
		return
	}
	h.server.LoggerService.GetApplication().RecordCustomEvent("HealthCheckError", attrs)
}
