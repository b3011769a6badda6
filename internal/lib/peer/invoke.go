package peer

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ChaincodeInvoke describes one `peer chaincode invoke` call.
//
// It only holds data; Args renders it into the argument vector handed
// to the child process. Nothing here is ever joined into a shell string
// for execution, so values such as a username cannot escape their argument.
type ChaincodeInvoke struct {
	// Binary is the peer executable (name on PATH or absolute path).
	Binary string

	// LoggingLevel is passed as --logging-level=<level>. Empty omits the flag.
	LoggingLevel string

	// Name is the chaincode name (-n).
	Name string

	// ChannelID (-C) and Orderer (-o) are optional; when empty the peer
	// falls back to its own core.yaml / environment settings.
	ChannelID string
	Orderer   string

	// ExtraArgs are appended verbatim before the ctor, e.g. TLS flags.
	ExtraArgs []string

	// Ctor is the JSON constructor message passed with -c.
	Ctor string
}

// Args returns the argument vector (without the binary itself).
func (c ChaincodeInvoke) Args() []string {
	args := []string{"chaincode", "invoke"}

	if c.LoggingLevel != "" {
		args = append(args, "--logging-level="+c.LoggingLevel)
	}

	args = append(args, "-n", c.Name)

	if c.ChannelID != "" {
		args = append(args, "-C", c.ChannelID)
	}
	if c.Orderer != "" {
		args = append(args, "-o", c.Orderer)
	}

	args = append(args, c.ExtraArgs...)
	args = append(args, "-c", c.Ctor)

	return args
}

// String renders the invocation as an equivalent, properly quoted shell
// command line. Only used for logs and diagnostics.
func (c ChaincodeInvoke) String() string {
	return shellquote.Join(append([]string{c.Binary}, c.Args()...)...)
}

// Ctor renders a chaincode constructor message:
//
//	{"Args":["create", "amag", "garage", "{\"vin\": \"...\"}"]}
//
// Elements are separated by ", " to match the message format the
// peer CLI users of this network already rely on.
func Ctor(function string, args ...string) (string, error) {
	var b strings.Builder
	b.WriteString(`{"Args":[`)

	for i, arg := range append([]string{function}, args...) {
		if i > 0 {
			b.WriteString(", ")
		}

		quoted, err := Quote(arg)
		if err != nil {
			return "", err
		}
		b.WriteString(quoted)
	}

	b.WriteString("]}")
	return b.String(), nil
}

// Quote JSON-encodes s as a string literal.
//
// HTML escaping is disabled so characters like '<' or '&' reach the
// chaincode exactly as the caller sent them.
func Quote(s string) (string, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(s); err != nil {
		return "", err
	}

	// Encoder always terminates with a newline.
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
