package service

import (
	"context"
	"fmt"

	"github.com/deppfellow/carledger/internal/lib/peer"
	"github.com/deppfellow/carledger/internal/server"
	"github.com/rs/zerolog"
)

// CreateFunction is the chaincode function invoked by Create.
const CreateFunction = "create"

// CarService creates cars on the ledger through the peer CLI.
type CarService struct {
	server    *server.Server
	policy    ResponsePolicy
	extraArgs []string
}

// NewCarService validates the peer settings once so requests do not have to.
func NewCarService(s *server.Server) (*CarService, error) {
	policy, err := ParsePolicy(s.Config.Peer.ResponsePolicy)
	if err != nil {
		return nil, err
	}

	extraArgs, err := s.Config.Peer.ExtraArgList()
	if err != nil {
		return nil, err
	}

	return &CarService{
		server:    s,
		policy:    policy,
		extraArgs: extraArgs,
	}, nil
}

// Policy returns the configured response policy.
func (s *CarService) Policy() ResponsePolicy {
	return s.policy
}

// ResolveUsername picks the username for the create call.
//
// Only PolicyStderrRequestUser looks at the request; the other policies
// always use the configured default, as does a request without the field.
func (s *CarService) ResolveUsername(requested *string) string {
	if s.policy.UsesRequestUsername() && requested != nil {
		return *requested
	}
	return s.server.Config.Peer.DefaultUsername
}

// CreateInvocation builds the `peer chaincode invoke` call for username:
//
//	-c {"Args":["create", "<username>", "<role>", "{\"vin\": \"<vin>\"}"]}
func (s *CarService) CreateInvocation(username string) (peer.ChaincodeInvoke, error) {
	cfg := s.server.Config.Peer

	vin, err := peer.Quote(cfg.VIN)
	if err != nil {
		return peer.ChaincodeInvoke{}, fmt.Errorf("failed to encode VIN: %w", err)
	}
	car := `{"vin": ` + vin + `}`

	ctor, err := peer.Ctor(CreateFunction, username, cfg.Role, car)
	if err != nil {
		return peer.ChaincodeInvoke{}, fmt.Errorf("failed to encode chaincode arguments: %w", err)
	}

	return peer.ChaincodeInvoke{
		Binary:       cfg.Binary,
		LoggingLevel: cfg.LoggingLevel,
		Name:         cfg.Chaincode,
		ChannelID:    cfg.Channel,
		Orderer:      cfg.Orderer,
		ExtraArgs:    s.extraArgs,
		Ctor:         ctor,
	}, nil
}

// Create runs one create invocation and maps its result through the policy.
//
// The returned error is only set for failures before the process runs;
// a failing process is a normal Outcome.
func (s *CarService) Create(ctx context.Context, requested *string) (*Outcome, error) {
	logger := s.loggerFrom(ctx)

	username := s.ResolveUsername(requested)

	inv, err := s.CreateInvocation(username)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("username", username).
		Str("command", inv.String()).
		Msg("invoking chaincode create")

	result := s.server.Peer.Invoke(logger.WithContext(ctx), inv)
	outcome := s.policy.Apply(result)
	outcome.Username = username

	s.logOutcome(logger, inv, result, outcome)
	s.recordOutcome(inv, result, outcome)

	return outcome, nil
}

func (s *CarService) logOutcome(logger *zerolog.Logger, inv peer.ChaincodeInvoke, result *peer.Result, outcome *Outcome) {
	var event *zerolog.Event
	if result.Failed() {
		event = logger.Warn().
			Err(result.Err).
			Str("stderr", result.Stderr).
			Str("stdout", result.Stdout)
	} else {
		event = logger.Info()
	}

	event.
		Str("chaincode", inv.Name).
		Str("policy", string(outcome.Policy)).
		Str("stream", outcome.Stream).
		Int("exit_code", result.ExitCode).
		Int("status", outcome.Status).
		Bool("policy_hides_failure", outcome.HidesFailure()).
		Dur("duration", result.Duration).
		Msg("chaincode create finished")

	threshold := s.server.Config.Observability.Logging.SlowInvokeThreshold
	if threshold > 0 && result.Duration > threshold {
		logger.Warn().
			Dur("duration", result.Duration).
			Dur("threshold", threshold).
			Msg("slow peer invocation")
	}
}

func (s *CarService) recordOutcome(inv peer.ChaincodeInvoke, result *peer.Result, outcome *Outcome) {
	if s.server.LoggerService == nil || s.server.LoggerService.GetApplication() == nil {
		return
	}

	s.server.LoggerService.GetApplication().RecordCustomEvent("PeerInvocation", map[string]interface{}{
		"function":    CreateFunction,
		"chaincode":   inv.Name,
		"policy":      string(outcome.Policy),
		"exit_code":   result.ExitCode,
		"status":      outcome.Status,
		"failed":      outcome.Failed,
		"duration_ms": result.Duration.Milliseconds(),
	})
}

// loggerFrom returns the request logger stored in ctx by the context
// enhancer middleware, or the server logger outside of a request.
func (s *CarService) loggerFrom(ctx context.Context) *zerolog.Logger {
	if logger := zerolog.Ctx(ctx); logger.GetLevel() != zerolog.Disabled {
		return logger
	}
	return s.server.Logger
}
