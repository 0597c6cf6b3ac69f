// Package acme provides the ACME protocol constants (status values,
// challenge types, header and content-type names) and the error taxonomy
// shared by every other acmecore package. The wire resource types
// (directory, problem documents, orders, authorizations, challenges) live
// in acme/resources.
package acme

// Directory endpoint keys (NewNonceEndpoint, KeyChangeEndpoint, ...) and
// BadNonceProblemType live in acme/resources instead of here: Directory's
// Endpoint method and ApiProblem's IsBadNonce are their only call sites,
// and acme/resources can't import this package back (acme/errors.go
// already imports acme/resources for ProtocolError.Problem).

const (
	// ReplayNonceHeader is the HTTP response header carrying a fresh nonce.
	// See RFC 8555 section 6.5.1.
	ReplayNonceHeader = "Replay-Nonce"

	// ContentTypeJOSE is the Content-Type used for every authenticated
	// ACME request body.
	ContentTypeJOSE = "application/jose+json"
	// ContentTypeProblem is the Content-Type ACME servers use for RFC 7807
	// problem documents.
	ContentTypeProblem = "application/problem+json"
)

// Order and authorization status values. See RFC 8555 section 7.1.6.
const (
	StatusPending     = "pending"
	StatusReady       = "ready"
	StatusProcessing  = "processing"
	StatusValid       = "valid"
	StatusInvalid     = "invalid"
	StatusExpired     = "expired"
	StatusDeactivated = "deactivated"
	StatusRevoked     = "revoked"
)

// Challenge type values. See RFC 8555 section 8.
const (
	ChallengeHTTP01    = "http-01"
	ChallengeDNS01     = "dns-01"
	ChallengeTLSALPN01 = "tls-alpn-01"
)
