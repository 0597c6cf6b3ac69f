package acme

import (
	"fmt"

	"github.com/acmecore/acmecore/acme/resources"
)

// ProtocolError wraps a problem document returned by the ACME server in
// response to a request. Callers can use errors.As to recover the
// underlying *resources.ApiProblem for inspection (type, status, detail,
// subproblems).
type ProtocolError struct {
	Op      string
	Problem *resources.ApiProblem
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Problem.Error())
}

func (e *ProtocolError) Unwrap() error {
	return e.Problem
}

// TransportError reports a failure to complete an HTTP round trip: a dial
// failure, a timeout, a malformed response, or a response that carried
// neither a problem document nor a usable body.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StateError reports a violation of the order façade's state machine: for
// example finalizing an order before all of its authorizations are valid,
// or downloading a certificate before the order has reached "valid".
type StateError struct {
	Op     string
	Status string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("%s: invalid in status %q", e.Op, e.Status)
}

// CryptoError reports a failure generating or parsing key material, a CSR,
// or a JWK thumbprint.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// ConfigError reports invalid caller-supplied configuration, caught before
// any network request is attempted.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}
