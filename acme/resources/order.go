package resources

// The Order resource represents a collection of identifiers that an account
// wishes to create a Certificate for.
//
// See https://ietf-wg-acme.github.io/acme/draft-ietf-acme-acme.html#rfc.section.7.1.3
//
// To understand the Status changes specified by ACME for the Order resource see
// https://ietf-wg-acme.github.io/acme/draft-ietf-acme-acme.html#rfc.section.7.1.6
//
type Order struct {
	// The server-assigned ID (a URL) identifying the Order. Populated by
	// the caller from the Location header of the newOrder response; ACME
	// does not echo it in the body.
	ID string `json:"-"`
	// The Status of the Order.
	Status string `json:"status"`
	// A string representing a RFC 3339 date after which the server will
	// consider the Order invalid if it has not reached a final state.
	Expires string `json:"expires,omitempty"`
	// The Identifiers the Order wishes to finalize a Certificate for once the
	// Order is ready.
	Identifiers []Identifier `json:"identifiers"`
	// A list of URLs for Authorization resources the server specifies for the
	// Order Identifiers.
	Authorizations []string `json:"authorizations"`
	// A URL used to Finalize the Order with a CSR once the Order has a status of
	// "ready".
	Finalize string `json:"finalize"`
	// A URL used to fetch the Certificate issued by the server for the Order
	// after being Finalized. The Certificate field should be present and
	// not-empty when the Order has a status of "valid".
	Certificate string `json:"certificate,omitempty"`
	// Error holds the problem document the server returned if the Order's
	// processing failed.
	Error *ApiProblem `json:"error,omitempty"`
}

// String returns the Order's ID URL.
func (o Order) String() string {
	return o.ID
}
