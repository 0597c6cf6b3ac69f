package challenge

import (
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/acmecore/acmecore/acme"
	"github.com/acmecore/acmecore/acme/resources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDNS01Digest(t *testing.T) {
	sum := sha256.Sum256([]byte("key-authorization-value"))
	want := base64.RawURLEncoding.EncodeToString(sum[:])
	assert.Equal(t, want, DNS01Digest("key-authorization-value"))
}

func TestDNS01TXTName(t *testing.T) {
	assert.Equal(t, "_acme-challenge.example.com.", DNS01TXTName("example.com"))
}

func TestTLSALPN01CertificateCarriesDigestAndIsSelfSigned(t *testing.T) {
	keyAuth := "token123.thumbprint456"
	cert, err := TLSALPN01Certificate("example.com", keyAuth)
	require.NoError(t, err)
	require.Len(t, cert.Certificate, 1)

	parsed, err := x509.ParseCertificate(cert.Certificate[0])
	require.NoError(t, err)
	assert.Equal(t, "example.com", parsed.Subject.CommonName)
	assert.Contains(t, parsed.DNSNames, "example.com")
	assert.NoError(t, parsed.CheckSignature(parsed.SignatureAlgorithm, parsed.RawTBSCertificate, parsed.Signature))

	var found bool
	digest := sha256.Sum256([]byte(keyAuth))
	for _, ext := range parsed.Extensions {
		if ext.Id.Equal(idPeACMEIdentifier) {
			found = true
			assert.True(t, ext.Critical)
			assert.Contains(t, string(ext.Value), string(digest[:]))
		}
	}
	assert.True(t, found, "expected id-pe-acmeIdentifier extension to be present")
}

func TestServerNextProtosIncludesACMETLS1(t *testing.T) {
	assert.Equal(t, []string{"acme-tls/1"}, ServerNextProtos())
}

func TestChallTestSrvResponderPresentHTTP01(t *testing.T) {
	var gotPath string
	var gotBody struct {
		Token   string `json:"token"`
		Content string `json:"content"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	responder := NewChallTestSrvResponder(srv.URL)
	release, err := responder.PresentHTTP01("tok", "tok.thumb")
	require.NoError(t, err)
	require.NotNil(t, release)

	assert.Equal(t, "/add-http01", gotPath)
	assert.Equal(t, "tok", gotBody.Token)
	assert.Equal(t, "tok.thumb", gotBody.Content)

	release()
}

func TestChallTestSrvResponderPresentDNS01UsesDigest(t *testing.T) {
	var gotBody struct {
		Host  string `json:"host"`
		Value string `json:"value"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	responder := NewChallTestSrvResponder(srv.URL)
	keyAuth := "tok.thumb"
	_, err := responder.PresentDNS01("example.com", keyAuth)
	require.NoError(t, err)

	assert.Equal(t, "_acme-challenge.example.com.", gotBody.Host)
	assert.Equal(t, DNS01Digest(keyAuth), gotBody.Value)
	assert.NotEqual(t, keyAuth, gotBody.Value)
}

func TestChallTestSrvResponderPresentTLSALPN01(t *testing.T) {
	var gotBody struct {
		Host    string `json:"host"`
		Content string `json:"content"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	responder := NewChallTestSrvResponder(srv.URL)
	_, err := responder.PresentTLSALPN01("example.com", "tok.thumb")
	require.NoError(t, err)
	assert.Equal(t, "example.com", gotBody.Host)
	assert.Equal(t, "tok.thumb", gotBody.Content)
}

func TestChallTestSrvResponderReturnsErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	responder := NewChallTestSrvResponder(srv.URL)
	_, err := responder.PresentHTTP01("tok", "tok.thumb")
	assert.Error(t, err)
}

func TestPresentDispatchesByChallengeType(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	responder := NewChallTestSrvResponder(srv.URL)

	release, err := Present(responder, "example.com", resources.Challenge{Type: acme.ChallengeHTTP01, Token: "tok"}, "tok.thumb")
	require.NoError(t, err)
	require.NotNil(t, release)
	assert.Equal(t, "/add-http01", gotPath)

	release, err = Present(responder, "example.com", resources.Challenge{Type: acme.ChallengeDNS01}, "tok.thumb")
	require.NoError(t, err)
	require.NotNil(t, release)
	assert.Equal(t, "/set-txt", gotPath)

	release, err = Present(responder, "example.com", resources.Challenge{Type: acme.ChallengeTLSALPN01}, "tok.thumb")
	require.NoError(t, err)
	require.NotNil(t, release)
	assert.Equal(t, "/add-tlsalpn01", gotPath)
}

func TestPresentRejectsUnknownChallengeType(t *testing.T) {
	responder := NewChallTestSrvResponder("http://unused.invalid")
	_, err := Present(responder, "example.com", resources.Challenge{Type: "oob-01"}, "tok.thumb")
	assert.Error(t, err)
}

var _ Responder = (*ChallTestSrvResponder)(nil)
