// Package order implements the ACME order life cycle as a chain of
// phase-typed façades: a NewOrder proves domain ownership through
// authorizations, confirms into a CsrOrder that submits a CSR, and
// finalizes into a CertOrder that downloads the issued certificate. See
// RFC 8555 section 7.4.
package order

import (
	"context"
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"

	"github.com/acmecore/acmecore/acme"
	"github.com/acmecore/acmecore/acme/client"
	"github.com/acmecore/acmecore/acme/keys"
	"github.com/acmecore/acmecore/acme/resources"
)

// NewOrder is a just-created order whose identifiers still need their
// authorizations satisfied before it can be finalized.
type NewOrder struct {
	session  *client.Session
	resource resources.Order
}

// Create submits a newOrder request for domains and returns the resulting
// NewOrder façade. See RFC 8555 section 7.4.
func Create(s *client.Session, domains []string) (*NewOrder, error) {
	if len(domains) == 0 {
		return nil, &acme.ConfigError{Field: "domains", Msg: "must not be empty"}
	}

	identifiers := make([]resources.Identifier, len(domains))
	for i, d := range domains {
		identifiers[i] = resources.Identifier{Type: "dns", Value: d}
	}

	req := struct {
		Identifiers []resources.Identifier `json:"identifiers"`
	}{Identifiers: identifiers}

	var result resources.Order
	resp, err := s.Call(s.Directory().NewOrder, req, &result)
	if err != nil {
		return nil, err
	}
	if resp.Raw.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("create order: server returned status %d", resp.Raw.StatusCode)
	}
	loc := resp.Raw.Header.Get("Location")
	if loc == "" {
		return nil, fmt.Errorf("create order: response had no Location header")
	}
	result.ID = loc

	return &NewOrder{session: s, resource: result}, nil
}

// Resource returns the order's current wire representation.
func (o *NewOrder) Resource() resources.Order {
	return o.resource
}

// Refresh POST-as-GETs the order's current state from the server.
func (o *NewOrder) Refresh() error {
	var updated resources.Order
	if _, err := o.session.Call(o.resource.ID, nil, &updated); err != nil {
		return err
	}
	updated.ID = o.resource.ID
	o.resource = updated
	return nil
}

// IsValidated reports whether the order's identifiers have already been
// authorized (status "ready" or "valid") without making any request.
func (o *NewOrder) IsValidated() bool {
	return o.resource.Status == acme.StatusReady || o.resource.Status == acme.StatusValid
}

// Authorizations fetches every Authorization the order references.
func (o *NewOrder) Authorizations() ([]resources.Authorization, error) {
	result := make([]resources.Authorization, 0, len(o.resource.Authorizations))
	for _, authzURL := range o.resource.Authorizations {
		var authz resources.Authorization
		if _, err := o.session.Call(authzURL, nil, &authz); err != nil {
			return nil, fmt.Errorf("fetching authorization %s: %w", authzURL, err)
		}
		authz.ID = authzURL
		result = append(result, authz)
	}
	return result, nil
}

// WaitForAuthorization polls authz until it leaves "pending", bounded by
// ctx and policy.
func (o *NewOrder) WaitForAuthorization(ctx context.Context, authz resources.Authorization, policy PollPolicy) (*resources.Authorization, error) {
	return waitForAuthorizationStatus(ctx, o.session, authz.ID, policy)
}

// AnswerChallenge tells the server the client is ready for it to validate
// challenge, by POSTing an empty JSON object to the challenge URL. See RFC
// 8555 section 7.5.1. The caller must have already made the key
// authorization resolvable (e.g. serving it at the http-01 well-known path)
// before calling this.
func (o *NewOrder) AnswerChallenge(challenge resources.Challenge) (*resources.Challenge, error) {
	var updated resources.Challenge
	_, err := o.session.Call(challenge.URL, struct{}{}, &updated)
	if err != nil {
		return nil, fmt.Errorf("answering challenge %s: %w", challenge.URL, err)
	}
	updated.URL = challenge.URL
	return &updated, nil
}

// KeyAuthorization computes the key authorization string for token using
// the session account's key, per RFC 8555 section 8.1.
func (o *NewOrder) KeyAuthorization(token string) string {
	return keys.KeyAuth(o.session.Account.Signer, token)
}

// ConfirmValidations progresses the order to a CsrOrder if its identifiers
// have already been authorized. It performs no I/O; call Refresh first to
// pick up server-side status changes.
func (o *NewOrder) ConfirmValidations() (*CsrOrder, error) {
	if !o.IsValidated() {
		return nil, &acme.StateError{Op: "ConfirmValidations", Status: o.resource.Status}
	}
	return &CsrOrder{session: o.session, resource: o.resource}, nil
}

// CsrOrder is an order whose authorizations are all satisfied and that is
// ready to be finalized with a CSR.
type CsrOrder struct {
	session  *client.Session
	resource resources.Order
}

// Resource returns the order's wire representation as of the last fetch.
func (o CsrOrder) Resource() resources.Order {
	return o.resource
}

// Finalize submits a CSR for the order's identifiers signed by key, then
// polls (bounded by ctx and policy) until the order leaves "processing".
// Finalize logically consumes the CsrOrder; Go has no move semantics, so
// it is expressed as a value receiver returning a new CertOrder rather than
// mutating or invalidating the CsrOrder.
func (o CsrOrder) Finalize(ctx context.Context, key crypto.Signer, policy PollPolicy) (*CertOrder, error) {
	domains := identifierValues(o.resource.Identifiers)

	csrDER, err := keys.MakeCSR(key, domains)
	if err != nil {
		return nil, &acme.CryptoError{Op: "Finalize", Err: err}
	}

	req := struct {
		CSR string `json:"csr"`
	}{CSR: base64.RawURLEncoding.EncodeToString(csrDER)}

	if _, err := o.session.Call(o.resource.Finalize, req, nil); err != nil {
		return nil, fmt.Errorf("finalizing order %s: %w", o.resource.ID, err)
	}

	final, err := waitForOrderStatus(ctx, o.session, o.resource.ID, policy)
	if err != nil {
		return nil, err
	}
	switch final.Status {
	case acme.StatusValid:
		return &CertOrder{session: o.session, resource: *final, key: key}, nil
	case acme.StatusInvalid:
		if final.Error != nil {
			return nil, &acme.ProtocolError{Op: "Finalize", Problem: final.Error}
		}
		return nil, &acme.StateError{Op: "Finalize", Status: final.Status}
	default:
		return nil, &acme.StateError{Op: "Finalize", Status: final.Status}
	}
}

func identifierValues(identifiers []resources.Identifier) []string {
	domains := make([]string, len(identifiers))
	for i, id := range identifiers {
		domains[i] = id.Value
	}
	return domains
}

// CertOrder is a finalized, issued order ready to download its certificate
// chain.
type CertOrder struct {
	session  *client.Session
	resource resources.Order
	key      crypto.Signer
}

// Resource returns the order's wire representation as of finalization.
func (o CertOrder) Resource() resources.Order {
	return o.resource
}

// Key returns the private key the CSR was signed with, needed to pair with
// the downloaded certificate chain.
func (o CertOrder) Key() crypto.Signer {
	return o.key
}

// DownloadCertificate fetches the issued order's PEM certificate chain and
// parses it into a tls.Certificate pairing the DER chain with the CSR key,
// a usable TLS identity ready to be served or stored. See RFC 8555 section
// 7.4.2.
func (o CertOrder) DownloadCertificate() (*tls.Certificate, error) {
	if o.resource.Certificate == "" {
		return nil, &acme.StateError{Op: "DownloadCertificate", Status: o.resource.Status}
	}
	resp, err := o.session.Call(o.resource.Certificate, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("downloading certificate for order %s: %w", o.resource.ID, err)
	}

	var identity tls.Certificate
	rest := resp.Body
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		identity.Certificate = append(identity.Certificate, block.Bytes)
	}
	if len(identity.Certificate) == 0 {
		return nil, &acme.CryptoError{
			Op:  "DownloadCertificate",
			Err: fmt.Errorf("no PEM certificate blocks in response for order %s", o.resource.ID),
		}
	}

	leaf, err := x509.ParseCertificate(identity.Certificate[0])
	if err != nil {
		return nil, &acme.CryptoError{Op: "DownloadCertificate", Err: fmt.Errorf("parsing leaf certificate: %w", err)}
	}
	identity.Leaf = leaf
	identity.PrivateKey = o.key

	return &identity, nil
}
