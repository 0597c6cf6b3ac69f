package order

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/acmecore/acmecore/acme"
	"github.com/acmecore/acmecore/acme/client"
	"github.com/acmecore/acmecore/acme/keys"
	"github.com/acmecore/acmecore/acme/resources"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// selfSignedCertPEM builds a throwaway self-signed certificate for
// example.com, standing in for what a CA would return from a cert URL.
// DownloadCertificate doesn't check the private key matches the leaf's
// public key (a fixture's self-signed key need not be the CSR key), so any
// parseable certificate exercises the PEM-to-DER parsing path.
func selfSignedCertPEM(t *testing.T) []byte {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "example.com"},
		DNSNames:     []string{"example.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

// fixtureServer stands up a minimal ACME server that satisfies exactly the
// requests the NewOrder -> CsrOrder -> CertOrder chain makes, with the order
// served as pending, then processing, then valid; the test sets "ready"
// locally before confirming validations.
type fixtureServer struct {
	srv          *httptest.Server
	orderPolls   int32
	finalizeHits int32
}

func newFixtureServer(t *testing.T) (*fixtureServer, *client.Session) {
	t.Helper()
	f := &fixtureServer{}
	mux := http.NewServeMux()
	base := new(string)
	certPEM := selfSignedCertPEM(t)

	mux.HandleFunc("/directory", func(w http.ResponseWriter, r *http.Request) {
		dir := resources.Directory{
			NewNonce:   *base + "/new-nonce",
			NewAccount: *base + "/new-acct",
			NewOrder:   *base + "/new-order",
		}
		_ = json.NewEncoder(w).Encode(dir)
	})
	mux.HandleFunc("/new-nonce", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "nonce")
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/new-order", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "nonce")
		w.Header().Set("Location", *base+"/order/1")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resources.Order{
			Status:         acme.StatusPending,
			Identifiers:    []resources.Identifier{{Type: "dns", Value: "example.com"}},
			Authorizations: []string{*base + "/authz/1"},
			Finalize:       *base + "/order/1/finalize",
		})
	})
	mux.HandleFunc("/authz/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "nonce")
		_ = json.NewEncoder(w).Encode(resources.Authorization{
			Status: acme.StatusValid,
			Identifier: resources.Identifier{
				Type: "dns", Value: "example.com",
			},
			Challenges: []resources.Challenge{
				{Type: "http-01", URL: *base + "/chal/1", Token: "token123", Status: acme.StatusValid},
			},
		})
	})
	mux.HandleFunc("/chal/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "nonce")
		_ = json.NewEncoder(w).Encode(resources.Challenge{
			Type: "http-01", URL: *base + "/chal/1", Token: "token123", Status: acme.StatusValid,
		})
	})
	mux.HandleFunc("/order/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "nonce")
		n := atomic.AddInt32(&f.orderPolls, 1)
		status := acme.StatusProcessing
		if n >= 2 {
			status = acme.StatusValid
		}
		_ = json.NewEncoder(w).Encode(resources.Order{
			Status:         status,
			Identifiers:    []resources.Identifier{{Type: "dns", Value: "example.com"}},
			Authorizations: []string{*base + "/authz/1"},
			Finalize:       *base + "/order/1/finalize",
			Certificate:    *base + "/cert/1",
		})
	})
	mux.HandleFunc("/order/1/finalize", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "nonce")
		atomic.AddInt32(&f.finalizeHits, 1)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/cert/1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "nonce")
		_, _ = w.Write(certPEM)
	})
	mux.HandleFunc("/new-acct", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Replay-Nonce", "nonce")
		w.Header().Set("Location", *base+"/acct/1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{}`))
	})

	srv := httptest.NewServer(mux)
	*base = srv.URL
	f.srv = srv
	t.Cleanup(srv.Close)

	session, err := client.New(client.Config{DirectoryURL: srv.URL + "/directory"})
	require.NoError(t, err)

	acct, err := resources.NewAccount([]string{"admin@example.com"}, nil)
	require.NoError(t, err)
	require.NoError(t, session.Register(acct))

	return f, session
}

func TestOrderFacadeChain(t *testing.T) {
	_, session := newFixtureServer(t)

	newOrder, err := Create(session, []string{"example.com"})
	require.NoError(t, err)
	assert.False(t, newOrder.IsValidated())

	authzs, err := newOrder.Authorizations()
	require.NoError(t, err)
	require.Len(t, authzs, 1)
	assert.Equal(t, acme.StatusValid, authzs[0].Status)

	chal := authzs[0].ChallengeByType("http-01")
	require.NotNil(t, chal)
	keyAuth := newOrder.KeyAuthorization(chal.Token)
	assert.Contains(t, keyAuth, chal.Token+".")

	updated, err := newOrder.AnswerChallenge(*chal)
	require.NoError(t, err)
	assert.Equal(t, chal.URL, updated.URL)

	require.NoError(t, newOrder.Refresh())

	newOrder.resource.Status = acme.StatusReady
	csrOrder, err := newOrder.ConfirmValidations()
	require.NoError(t, err)

	certKey, err := keys.GenerateCertKey(elliptic.P256())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	certOrder, err := csrOrder.Finalize(ctx, certKey, PollPolicy{
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     20 * time.Millisecond,
		MaxElapsedTime:  2 * time.Second,
	})
	require.NoError(t, err)

	identity, err := certOrder.DownloadCertificate()
	require.NoError(t, err)
	require.Len(t, identity.Certificate, 1)
	require.NotNil(t, identity.Leaf)
	assert.Equal(t, "example.com", identity.Leaf.Subject.CommonName)
	assert.Same(t, certKey, identity.PrivateKey)
	assert.Same(t, certKey, certOrder.Key())
}

func TestConfirmValidationsRejectsUnready(t *testing.T) {
	_, session := newFixtureServer(t)

	newOrder, err := Create(session, []string{"example.com"})
	require.NoError(t, err)

	_, err = newOrder.ConfirmValidations()
	require.Error(t, err)

	var stateErr *acme.StateError
	assert.ErrorAs(t, err, &stateErr)
}

func TestCreateRejectsEmptyDomains(t *testing.T) {
	_, session := newFixtureServer(t)

	_, err := Create(session, nil)
	require.Error(t, err)

	var configErr *acme.ConfigError
	assert.ErrorAs(t, err, &configErr)
}
