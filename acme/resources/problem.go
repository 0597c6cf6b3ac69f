package resources

import "fmt"

// BadNonceProblemType is the problem "type" value servers use when a
// request's nonce has already been consumed or is unknown. See RFC 8555
// section 6.5. Defined here, rather than alongside the header and
// content-type constants in the acme package, so that ApiProblem can use
// it without acme (which already imports resources for ProtocolError)
// importing back into this package.
const BadNonceProblemType = "urn:ietf:params:acme:error:badNonce"

// ApiProblem is a RFC 7807 problem document as returned by an ACME server
// for any non-2xx response. See RFC 8555 section 6.7.
type ApiProblem struct {
	// Type is a URI reference identifying the problem type, e.g.
	// "urn:ietf:params:acme:error:badNonce".
	Type string `json:"type"`
	// Detail is a human readable explanation of the problem.
	Detail string `json:"detail"`
	// Status is the HTTP status code repeated in the problem body.
	Status int `json:"status"`
	// Subproblems holds zero or more sub-problems describing which of
	// several identifiers in a batched request were responsible. See RFC
	// 8555 section 6.7.1.
	Subproblems []ApiProblem `json:"subproblems,omitempty"`
}

// Error satisfies the error interface so an ApiProblem can be returned
// and wrapped directly.
func (p *ApiProblem) Error() string {
	if p == nil {
		return "<nil ApiProblem>"
	}
	return fmt.Sprintf("%s: %s (status %d)", p.Type, p.Detail, p.Status)
}

// IsBadNonce reports whether the problem is a badNonce error the caller
// should retry with a fresh nonce.
func (p *ApiProblem) IsBadNonce() bool {
	return p != nil && p.Type == BadNonceProblemType
}
