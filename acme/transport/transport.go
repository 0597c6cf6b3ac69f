// Package transport performs the raw HTTP round trips an ACME client needs
// (GET, HEAD, authenticated POST) and classifies non-2xx responses into
// problem documents or synthesized transport errors.
package transport

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/acmecore/acmecore/acme"
	"github.com/acmecore/acmecore/acme/resources"
)

const (
	version       = "0.1.0"
	userAgentBase = "acmecore"
	locale        = "en-us"

	// defaultTimeout bounds dial, TLS handshake, and response header wait.
	// The original client used 5s timeouts in preference to the 30s some
	// older ACME clients used; shorter is kept until proven insufficient.
	defaultTimeout = 5 * time.Second
)

// Config controls how a Transport's underlying *http.Client is built.
type Config struct {
	// CABundlePath, if non-empty, is a file path to one or more PEM
	// encoded CA certificates to trust in place of the system roots.
	// Useful for pointing at a local test ACME server with a private CA.
	CABundlePath string
	// Timeout overrides the default 5s connect/response-header timeout.
	Timeout time.Duration
}

// Transport performs HTTP requests to an ACME server.
type Transport struct {
	httpClient *http.Client
}

// New builds a Transport from the given Config.
func New(conf Config) (*Transport, error) {
	timeout := conf.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	tlsConfig := &tls.Config{}
	if conf.CABundlePath != "" {
		pemBundle, err := os.ReadFile(conf.CABundlePath)
		if err != nil {
			return nil, fmt.Errorf("reading CA bundle %q: %w", conf.CABundlePath, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pemBundle) {
			return nil, fmt.Errorf("no usable certificates found in %q", conf.CABundlePath)
		}
		tlsConfig.RootCAs = pool
	}

	dialer := &net.Dialer{Timeout: timeout}
	return &Transport{
		httpClient: &http.Client{
			Transport: &http.Transport{
				TLSClientConfig:       tlsConfig,
				DialContext:           dialer.DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: timeout,
			},
		},
	}, nil
}

// Response is the result of a round trip: the parsed *http.Response and its
// fully read body (read defensively, see safeReadBody).
type Response struct {
	Raw  *http.Response
	Body []byte
}

func (t *Transport) do(req *http.Request) (*Response, error) {
	ua := fmt.Sprintf("%s %s (%s; %s)", userAgentBase, version, runtime.GOOS, runtime.GOARCH)
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept-Language", locale)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body := safeReadBody(resp)
	return &Response{Raw: resp, Body: body}, nil
}

// safeReadBody reads a response body tolerating an abrupt TLS close after
// the payload has already been delivered, which some ACME servers do.
func safeReadBody(resp *http.Response) []byte {
	body, err := io.ReadAll(resp.Body)
	if err != nil && len(body) == 0 {
		return nil
	}
	return body
}

// Get performs an HTTP GET and classifies the response.
func (t *Transport) Get(url string) (*Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, &RequestError{Op: "GET", URL: url, Err: err}
	}
	resp, err := t.do(req)
	if err != nil {
		return nil, &RequestError{Op: "GET", URL: url, Err: err}
	}
	return resp, classify("GET", url, resp)
}

// Head performs an HTTP HEAD and classifies the response. The body is
// always empty for HEAD.
func (t *Transport) Head(url string) (*Response, error) {
	req, err := http.NewRequest(http.MethodHead, url, nil)
	if err != nil {
		return nil, &RequestError{Op: "HEAD", URL: url, Err: err}
	}
	resp, err := t.do(req)
	if err != nil {
		return nil, &RequestError{Op: "HEAD", URL: url, Err: err}
	}
	return resp, classify("HEAD", url, resp)
}

// PostJOSE POSTs a flattened-JSON JWS body with the ACME content type and
// classifies the response.
func (t *Transport) PostJOSE(url string, jws []byte) (*Response, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(jws))
	if err != nil {
		return nil, &RequestError{Op: "POST", URL: url, Err: err}
	}
	req.Header.Set("Content-Type", acme.ContentTypeJOSE)
	resp, err := t.do(req)
	if err != nil {
		return nil, &RequestError{Op: "POST", URL: url, Err: err}
	}
	return resp, classify("POST", url, resp)
}

// ExpectHeader returns the named header value from resp, or an error if
// absent.
func ExpectHeader(resp *Response, name string) (string, error) {
	val := resp.Raw.Header.Get(name)
	if val == "" {
		return "", fmt.Errorf("response from %s missing %q header", resp.Raw.Request.URL, name)
	}
	return val, nil
}

// RequestError reports a failure to even complete a round trip (dial error,
// malformed request). It is always a transport-layer failure, never a
// protocol-level problem document.
type RequestError struct {
	Op  string
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Op, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// classify inspects a non-erroring HTTP round trip's status code and
// content type, returning nil for 2xx responses. Non-2xx application/
// problem+json bodies are parsed into *resources.ApiProblem (or, if they do
// not parse, reported as a *ProblemDecodeError); anything else non-2xx is
// reported as an *HTTPError carrying the raw status and body, matching the
// server-misbehavior fallbacks an ACME client must tolerate.
func classify(op, url string, resp *Response) error {
	status := resp.Raw.StatusCode
	if status >= 200 && status < 300 {
		return nil
	}

	contentType := resp.Raw.Header.Get("Content-Type")
	if isProblemContentType(contentType) {
		var problem resources.ApiProblem
		if err := json.Unmarshal(resp.Body, &problem); err != nil {
			return &ProblemDecodeError{
				Op:   op,
				URL:  url,
				Body: string(resp.Body),
				Err:  err,
			}
		}
		return &problem
	}

	return &HTTPError{
		Op:     op,
		URL:    url,
		Status: status,
		Body:   string(resp.Body),
	}
}

func isProblemContentType(contentType string) bool {
	return contentType == acme.ContentTypeProblem
}

// ProblemDecodeError is synthesized when a server sends
// application/problem+json but the body fails to parse as one. It mirrors
// the "problemJsonFail" fallback problem type.
type ProblemDecodeError struct {
	Op, URL, Body string
	Err           error
}

func (e *ProblemDecodeError) Error() string {
	return fmt.Sprintf("%s %s: failed to decode problem+json body (%s): %s", e.Op, e.URL, e.Err, e.Body)
}

func (e *ProblemDecodeError) Unwrap() error { return e.Err }

// HTTPError is synthesized when a non-2xx response carries no problem
// document at all. It mirrors the "httpReqError" fallback problem type.
type HTTPError struct {
	Op, URL string
	Status  int
	Body    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d, body: %s", e.Op, e.URL, e.Status, e.Body)
}
