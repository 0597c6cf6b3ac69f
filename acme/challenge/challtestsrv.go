package challenge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/miekg/dns"
)

// ChallTestSrvResponder drives a github.com/letsencrypt/challtestsrv
// instance's HTTP management API. Address is the base URL of the
// management HTTP interface (e.g. "http://localhost:8055").
type ChallTestSrvResponder struct {
	Address string

	client *http.Client
}

// NewChallTestSrvResponder builds a ChallTestSrvResponder for the
// challtestsrv management API at address.
func NewChallTestSrvResponder(address string) *ChallTestSrvResponder {
	return &ChallTestSrvResponder{
		Address: address,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *ChallTestSrvResponder) post(path string, body interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("challtestsrv: marshaling %s request: %w", path, err)
	}
	resp, err := r.client.Post(r.Address+"/"+path, "application/json", bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("challtestsrv: POST %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("challtestsrv: POST %s: unexpected status %d", path, resp.StatusCode)
	}
	return nil
}

// PresentHTTP01 registers token/keyAuth with challtestsrv's http-01
// responder.
func (r *ChallTestSrvResponder) PresentHTTP01(token, keyAuth string) (ReleaseFunc, error) {
	if err := r.post("add-http01", struct {
		Token   string `json:"token"`
		Content string `json:"content"`
	}{Token: token, Content: keyAuth}); err != nil {
		return nil, err
	}
	return func() {
		_ = r.post("del-http01", struct {
			Token string `json:"token"`
		}{Token: token})
	}, nil
}

// PresentDNS01 registers the _acme-challenge TXT record for domain with
// challtestsrv's dns-01 responder. The TXT value is the base64url SHA-256
// digest of keyAuth, per RFC 8555 section 8.4, not keyAuth itself.
func (r *ChallTestSrvResponder) PresentDNS01(domain, keyAuth string) (ReleaseFunc, error) {
	fqdn := DNS01TXTName(domain)
	if err := r.post("set-txt", struct {
		Host  string `json:"host"`
		Value string `json:"value"`
	}{Host: fqdn, Value: DNS01Digest(keyAuth)}); err != nil {
		return nil, err
	}
	return func() {
		_ = r.post("clear-txt", struct {
			Host string `json:"host"`
		}{Host: fqdn})
	}, nil
}

// PresentTLSALPN01 registers domain/keyAuth with challtestsrv's
// tls-alpn-01 responder.
func (r *ChallTestSrvResponder) PresentTLSALPN01(domain, keyAuth string) (ReleaseFunc, error) {
	if err := r.post("add-tlsalpn01", struct {
		Host    string `json:"host"`
		Content string `json:"content"`
	}{Host: domain, Content: keyAuth}); err != nil {
		return nil, err
	}
	return func() {
		_ = r.post("del-tlsalpn01", struct {
			Host string `json:"host"`
		}{Host: domain})
	}, nil
}

// DNS01TXTName returns the fully qualified _acme-challenge TXT record name
// for domain, per RFC 8555 section 8.4.
func DNS01TXTName(domain string) string {
	return dns.Fqdn("_acme-challenge." + domain)
}
