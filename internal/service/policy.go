package service

import (
	"fmt"
	"net/http"

	"github.com/deppfellow/carledger/internal/config"
	"github.com/deppfellow/carledger/internal/lib/peer"
)

// ResponsePolicy decides which captured stream becomes the response body
// and which status code goes with it.
//
// The three policies disagree with each other on purpose. They are the
// three behaviours deployed controllers have had and clients depend on
// them individually, so none of them is folded into another.
type ResponsePolicy string

const (
	// PolicyStderr answers with the error stream: 200 when the process
	// succeeded, 400 when it failed. The peer CLI writes its successful
	// invoke summary to stderr, which is why this is the default.
	PolicyStderr ResponsePolicy = config.PolicyStderr

	// PolicyStdout always answers 200 with the standard output stream.
	// Failures are only visible in the operator logs.
	PolicyStdout ResponsePolicy = config.PolicyStdout

	// PolicyStderrRequestUser behaves like PolicyStderr but takes the
	// username from the request body.
	PolicyStderrRequestUser ResponsePolicy = config.PolicyStderrRequestUser
)

// Names of the captured streams, as reported in Outcome.Stream.
const (
	StreamStdout = "stdout"
	StreamStderr = "stderr"
)

// ParsePolicy validates a configured policy name.
func ParsePolicy(name string) (ResponsePolicy, error) {
	switch p := ResponsePolicy(name); p {
	case PolicyStderr, PolicyStdout, PolicyStderrRequestUser:
		return p, nil
	default:
		return "", fmt.Errorf("unknown response policy %q", name)
	}
}

// UsesRequestUsername reports whether the username comes from the request.
func (p ResponsePolicy) UsesRequestUsername() bool {
	return p == PolicyStderrRequestUser
}

// Outcome is the HTTP-facing result of one create call.
type Outcome struct {
	// Status is the HTTP status code to answer with.
	Status int

	// Body is exactly one of the captured streams, never transformed.
	Body string

	// Stream names the stream Body was taken from.
	Stream string

	Policy   ResponsePolicy
	Username string
	ExitCode int

	// Failed reports the process error state, whatever the policy did with it.
	Failed bool
}

// HidesFailure is true when the process failed but the client gets a 200.
func (o *Outcome) HidesFailure() bool {
	return o.Failed && o.Status < http.StatusBadRequest
}

// Apply maps a process result onto an Outcome.
func (p ResponsePolicy) Apply(res *peer.Result) *Outcome {
	outcome := &Outcome{
		Policy:   p,
		ExitCode: res.ExitCode,
		Failed:   res.Failed(),
	}

	switch p {
	case PolicyStdout:
		outcome.Status = http.StatusOK
		outcome.Body = res.Stdout
		outcome.Stream = StreamStdout

	default:
		outcome.Body = res.Stderr
		outcome.Stream = StreamStderr
		if res.Failed() {
			outcome.Status = http.StatusBadRequest
		} else {
			outcome.Status = http.StatusOK
		}
	}

	return outcome
}
