// Package client wires together the nonce cache, directory and JWS signer
// into an authenticated ACME session: registering an account and POSTing
// signed requests to arbitrary server URLs.
package client

import (
	"crypto"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/acmecore/acmecore/acme"
	"github.com/acmecore/acmecore/acme/jws"
	"github.com/acmecore/acmecore/acme/keys"
	"github.com/acmecore/acmecore/acme/resources"
	"github.com/acmecore/acmecore/acme/transport"
)

// Config configures a new Session.
type Config struct {
	// DirectoryURL is the ACME server's directory endpoint. Required.
	DirectoryURL string
	// CABundlePath optionally overrides the system trust roots, for
	// talking to a test ACME server with a private CA.
	CABundlePath string
}

func (c Config) normalize() error {
	if strings.TrimSpace(c.DirectoryURL) == "" {
		return fmt.Errorf("DirectoryURL must not be empty")
	}
	return nil
}

// Session is an authenticated connection to one ACME server as one
// Account. It owns the Transport, the cached Directory, and the
// NonceCache all other components consume.
type Session struct {
	transport *transport.Transport
	directory *resources.Directory
	nonces    *NonceCache

	// Account is the registered (or about-to-be-registered) account
	// whose keypair authenticates every Call.
	Account *resources.Account
}

// New builds a Session by fetching the server's directory and setting up an
// empty nonce cache, which fetches its first nonce when the first signed
// request needs one. The returned Session has no Account yet; call Register or
// set Session.Account directly to restore a previously registered account.
func New(conf Config) (*Session, error) {
	if err := conf.normalize(); err != nil {
		return nil, err
	}

	t, err := transport.New(transport.Config{CABundlePath: conf.CABundlePath})
	if err != nil {
		return nil, err
	}

	dir, err := FetchDirectory(t, conf.DirectoryURL)
	if err != nil {
		return nil, err
	}

	return &Session{
		transport: t,
		directory: dir,
		nonces:    NewNonceCache(t, dir.NewNonce),
	}, nil
}

// Directory returns the server's directory resource.
func (s *Session) Directory() *resources.Directory {
	return s.directory
}

// Endpoint looks up a directory endpoint by its ACME key (e.g.
// "newAccount", "keyChange").
func (s *Session) Endpoint(name string) (string, bool) {
	return s.directory.Endpoint(name)
}

// Register creates acct with the ACME server, unconditionally agreeing to
// its terms of service. On success acct.ID is set to the server-assigned
// account URL and Session.Account is set to acct. See RFC 8555 section 7.3.
func (s *Session) Register(acct *resources.Account) error {
	if acct.ID != "" {
		return fmt.Errorf("register: account already has ID %q", acct.ID)
	}

	body, err := json.Marshal(struct {
		Contact   []string `json:"contact,omitempty"`
		ToSAgreed bool     `json:"termsOfServiceAgreed"`
	}{
		Contact:   acct.Contact,
		ToSAgreed: true,
	})
	if err != nil {
		return fmt.Errorf("register: marshaling request: %w", err)
	}

	resp, err := s.doCall(s.directory.NewAccount, body, jws.Options{
		Signer:      acct.Signer,
		NonceSource: s.nonces,
	})
	if err != nil {
		return err
	}

	if resp.Raw.StatusCode != http.StatusOK && resp.Raw.StatusCode != http.StatusCreated {
		return fmt.Errorf("register: server returned status %d", resp.Raw.StatusCode)
	}

	loc := resp.Raw.Header.Get("Location")
	if loc == "" {
		return fmt.Errorf("register: response had no Location header")
	}
	acct.ID = loc
	s.Account = acct
	return nil
}

// Call POSTs payload (JSON-encoded, or an empty POST-as-GET if payload is
// nil) to url, signed as Session.Account, and unmarshals the response body
// into out if out is non-nil. A single badNonce response is retried
// transparently with a fresh nonce; any other failed round trip is returned
// as an *acme.ProtocolError (problem document) or *acme.TransportError
// (everything else), and a signing failure as an *acme.CryptoError, all
// recoverable with errors.As.
func (s *Session) Call(url string, payload interface{}, out interface{}) (*transport.Response, error) {
	if s.Account == nil {
		return nil, fmt.Errorf("call: no registered account for this session")
	}

	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("call: marshaling payload: %w", err)
		}
	}

	resp, err := s.doCall(url, body, jws.Options{
		Signer:      s.Account.Signer,
		KeyID:       s.Account.ID,
		NonceSource: s.nonces,
	})
	if err != nil {
		return nil, err
	}

	if out != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return resp, fmt.Errorf("call: decoding response body: %w", err)
		}
	}
	return resp, nil
}

// doCall signs body and POSTs it to url, retrying exactly once if the
// server rejects the nonce. Every response that carries a Replay-Nonce
// header (success or problem document alike) offers it to the nonce cache,
// per RFC 8555 section 6.5.1, so the next signed request can reuse it
// without its own HEAD round trip. A final round-trip error is wrapped as
// either *acme.ProtocolError or *acme.TransportError, and a signing failure
// as *acme.CryptoError, so callers can recover it with errors.As.
func (s *Session) doCall(url string, body []byte, opts jws.Options) (*transport.Response, error) {
	envelope, err := jws.Sign(url, body, opts)
	if err != nil {
		return nil, &acme.CryptoError{Op: "doCall", Err: fmt.Errorf("signing request to %s: %w", url, err)}
	}

	resp, err := s.transport.PostJOSE(url, envelope)
	s.harvestNonce(resp)
	if err == nil {
		return resp, nil
	}

	problem, ok := err.(*resources.ApiProblem)
	if ok && problem.IsBadNonce() {
		envelope, err = jws.Sign(url, body, opts)
		if err != nil {
			return nil, &acme.CryptoError{Op: "doCall", Err: fmt.Errorf("signing retry request to %s: %w", url, err)}
		}
		resp, err = s.transport.PostJOSE(url, envelope)
		s.harvestNonce(resp)
		if err == nil {
			return resp, nil
		}
	}

	return nil, wrapCallErr(url, err)
}

// harvestNonce offers resp's Replay-Nonce header, if present, to the nonce
// cache. resp is non-nil whenever the round trip itself completed, even if
// the response was classified as a problem document.
func (s *Session) harvestNonce(resp *transport.Response) {
	if resp == nil || resp.Raw == nil {
		return
	}
	if nonce := resp.Raw.Header.Get(acme.ReplayNonceHeader); nonce != "" {
		s.nonces.Set(nonce)
	}
}

// wrapCallErr classifies err into the acme package's error taxonomy: a
// problem document becomes a *acme.ProtocolError, anything else (a dial
// failure, a timeout, a malformed response) becomes a *acme.TransportError.
func wrapCallErr(url string, err error) error {
	if problem, ok := err.(*resources.ApiProblem); ok {
		return &acme.ProtocolError{Op: "doCall", Problem: problem}
	}
	return &acme.TransportError{Op: "doCall", URL: url, Err: err}
}

// Rollover replaces the Account's key with newKey via RFC 8555 section
// 7.3.5's key-change protocol: an inner JWS (authenticated by newKey,
// embedding newKey's JWK) wrapping the account-and-oldkey payload, itself
// wrapped in an outer JWS authenticated by the account's current key.
func (s *Session) Rollover(newKey crypto.Signer) error {
	if s.Account == nil {
		return fmt.Errorf("rollover: no registered account for this session")
	}

	keyChangeURL, ok := s.Endpoint(resources.KeyChangeEndpoint)
	if !ok {
		return fmt.Errorf("rollover: server directory has no keyChange endpoint")
	}

	payload, err := json.Marshal(struct {
		Account string          `json:"account"`
		OldKey  json.RawMessage `json:"oldKey"`
	}{
		Account: s.Account.ID,
		OldKey:  json.RawMessage(keys.JWKJSON(s.Account.Signer)),
	})
	if err != nil {
		return fmt.Errorf("rollover: marshaling payload: %w", err)
	}

	inner, err := jws.Sign(keyChangeURL, payload, jws.Options{
		Signer: newKey,
	})
	if err != nil {
		return fmt.Errorf("rollover: signing inner JWS: %w", err)
	}

	resp, err := s.doCall(keyChangeURL, inner, jws.Options{
		Signer:      s.Account.Signer,
		KeyID:       s.Account.ID,
		NonceSource: s.nonces,
	})
	if err != nil {
		return fmt.Errorf("rollover: %w", err)
	}
	if resp.Raw.StatusCode != http.StatusOK {
		return fmt.Errorf("rollover: server returned status %d", resp.Raw.StatusCode)
	}

	s.Account.Signer = newKey
	return nil
}
