// Package server defines the core Server struct that composes the app's main dependencies.
//
// It contains the initialization logic to spin up the HTTP server
// and handles graceful shutdowns.
//
// It owns the lifecycle of:
//   - configuration
//   - logger + optional New Relic service wrapper
//   - the peer CLI client
//   - http.Server
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"time"

	"github.com/deppfellow/carledger/internal/config"
	"github.com/deppfellow/carledger/internal/lib/peer"
	"github.com/rs/zerolog"

	loggerPkg "github.com/deppfellow/carledger/internal/logger"
)

// Server is the application container that holds shared resources.
//
// It is not the HTTP server itself; that one is private and configured
// by SetupHTTPServer.
type Server struct {
	// Config holds all environment/config values for the app.
	Config *config.Config

	// Logger is the application's main structured logger.
	Logger *zerolog.Logger

	// LoggerService optionally holds the New Relic application instance.
	LoggerService *loggerPkg.LoggerService

	// Peer spawns `peer` CLI processes.
	Peer *peer.Client

	httpServer *http.Server

	// cancelRequests cancels the base context of every request, which
	// kills the peer processes still bound to them.
	cancelRequests context.CancelFunc
}

// New constructs a Server and initializes core dependencies.
//
// A peer binary that cannot be found on PATH is logged but does not stop
// startup: the CLI may be mounted later, and /status reports it meanwhile.
func New(cfg *config.Config, logger *zerolog.Logger, loggerService *loggerPkg.LoggerService) (*Server, error) {
	peerClient, err := peer.NewClient(peer.Options{
		Timeout: cfg.Peer.InvokeTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize peer client: %w", err)
	}

	if path, err := exec.LookPath(cfg.Peer.Binary); err != nil {
		logger.Warn().
			Err(err).
			Str("binary", cfg.Peer.Binary).
			Msg("peer binary not found, create calls will fail until it is installed")
	} else {
		logger.Info().
			Str("binary", path).
			Str("chaincode", cfg.Peer.Chaincode).
			Str("response_policy", cfg.Peer.ResponsePolicy).
			Msg("using peer CLI")
	}

	return &Server{
		Config:        cfg,
		Logger:        logger,
		LoggerService: loggerService,
		Peer:          peerClient,
	}, nil
}

// SetupHTTPServer configures the internal net/http server.
//
// Every request context derives from a server-level context so Shutdown
// can cancel requests that outlive the grace period.
func (s *Server) SetupHTTPServer(handler http.Handler) {
	baseCtx, cancel := context.WithCancel(context.Background())
	s.cancelRequests = cancel

	s.httpServer = &http.Server{
		Addr:    ":" + s.Config.Server.Port,
		Handler: handler,
		BaseContext: func(net.Listener) context.Context {
			return baseCtx
		},

		// Config stores whole seconds; zero means no timeout.
		ReadTimeout:  time.Duration(s.Config.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.Config.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.Config.Server.IdleTimeout) * time.Second,
	}
}

// Start listens on the configured port and serves until the server stops.
func (s *Server) Start() error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}

	return s.Serve(listener)
}

// Serve runs the HTTP server on listener. It blocks until the server stops.
func (s *Server) Serve(listener net.Listener) error {
	if s.httpServer == nil {
		return errors.New("HTTP server not initialized")
	}

	s.Logger.Info().
		Str("addr", listener.Addr().String()).
		Str("env", s.Config.Primary.Env).
		Msg("starting server")

	return s.httpServer.Serve(listener)
}

// ShutdownKillDelay is how long Shutdown waits for killed peer processes
// to be reaped once the grace period has expired.
const ShutdownKillDelay = peer.DefaultWaitDelay + time.Second

// Shutdown gracefully stops the HTTP server, waiting for in-flight
// requests (and so their peer processes) until ctx expires.
//
// Requests still running after that are cancelled, which kills their peer
// processes, and Shutdown returns only once those processes are gone.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	err := s.httpServer.Shutdown(ctx)

	s.cancelRequests()

	if err != nil {
		s.Logger.Warn().
			Err(err).
			Msg("graceful shutdown timed out, killing running peer processes")

		_ = s.httpServer.Close()

		killCtx, cancel := context.WithTimeout(context.Background(), ShutdownKillDelay)
		defer cancel()

		if waitErr := s.Peer.Wait(killCtx); waitErr != nil {
			s.Logger.Error().Err(waitErr).Msg("peer processes did not exit")
		}

		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}
