package resources

// The ACME Challenge resource represents an action that the client must take to
// authorize a given account for a specific identifier in order to issue
// a certificate containing that identifier.
//
// For information about the Challenge resource see
// https://ietf-wg-acme.github.io/acme/draft-ietf-acme-acme.html#rfc.section.7.1.5
//
// To understand the Challenge types specified by ACME see
// https://ietf-wg-acme.github.io/acme/draft-ietf-acme-acme.html#rfc.section.8
//
// To understand the Challenge Status changes specified by ACME see
// https://ietf-wg-acme.github.io/acme/draft-ietf-acme-acme.html#rfc.section.7.1.6
type Challenge struct {
	// The Type of the challenge (expected values include "http-01", "dns-01", "tls-alpn-01")
	Type string `json:"type"`
	// The URL used to notify the server that the challenge has been
	// fulfilled and should be validated.
	URL string `json:"url"`
	// The Token used for constructing the challenge response for this challenge.
	Token string `json:"token"`
	// The Status of the challenge.
	Status string `json:"status"`
	// Validated is a RFC 3339 timestamp set by the server once the
	// challenge's status transitions to "valid".
	Validated string `json:"validated,omitempty"`
	// The Error associated with an invalid challenge
	Error *ApiProblem `json:"error,omitempty"`
}

// String returns the URL of the Challenge.
func (c Challenge) String() string {
	return c.URL
}
