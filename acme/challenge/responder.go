// Package challenge dispatches ACME challenge responses (http-01, dns-01,
// tls-alpn-01) to an external responder and computes the key authorization
// values challenges are validated against. See RFC 8555 section 8.
package challenge

// ReleaseFunc tears down whatever a Present* call set up (an HTTP response,
// a TXT record, a TLS certificate) once the challenge has been answered
// and validated, or abandoned.
type ReleaseFunc func()

// Responder presents a challenge's expected response through some external
// system (a test fixture server, a DNS provider API, a reverse proxy) and
// returns a ReleaseFunc to clean it up. Implementations must be safe for
// concurrent use if the caller drives multiple authorizations at once.
type Responder interface {
	// PresentHTTP01 arranges for a GET to
	// http://<domain>/.well-known/acme-challenge/<token> to return
	// keyAuth, per RFC 8555 section 8.3.
	PresentHTTP01(token, keyAuth string) (ReleaseFunc, error)
	// PresentDNS01 arranges for a TXT lookup of
	// _acme-challenge.<domain> to return the SHA-256 digest of keyAuth,
	// per RFC 8555 section 8.4.
	PresentDNS01(domain, keyAuth string) (ReleaseFunc, error)
	// PresentTLSALPN01 arranges for a TLS handshake to domain with the
	// acme-tls/1 ALPN protocol to present a self-signed certificate
	// carrying keyAuth's digest, per RFC 8737 section 3.
	PresentTLSALPN01(domain, keyAuth string) (ReleaseFunc, error)
}
