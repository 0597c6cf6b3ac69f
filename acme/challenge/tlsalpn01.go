package challenge

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
	"time"
)

// idPeACMEIdentifier is the critical certificate extension OID a tls-alpn-01
// challenge certificate must carry, containing the SHA-256 digest of the
// key authorization. See RFC 8737 section 3.
var idPeACMEIdentifier = asn1.ObjectIdentifier{1, 3, 6, 1, 5, 5, 7, 1, 31}

// acmeTLS1Protocol is the ALPN protocol name a tls-alpn-01 validation
// connection negotiates.
const acmeTLS1Protocol = "acme-tls/1"

// TLSALPN01Certificate builds a self-signed certificate for domain carrying
// the critical id-pe-acmeIdentifier extension over the SHA-256 digest of
// keyAuth, ready to serve via tls.Config.GetCertificate for an incoming
// acme-tls/1 handshake. See RFC 8737 section 3.
func TLSALPN01Certificate(domain, keyAuth string) (*tls.Certificate, error) {
	digest := sha256.Sum256([]byte(keyAuth))
	extValue, err := asn1.Marshal(digest[:])
	if err != nil {
		return nil, fmt.Errorf("marshaling acmeIdentifier extension: %w", err)
	}

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating tls-alpn-01 key: %w", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: domain},
		DNSNames:     []string{domain},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		ExtraExtensions: []pkix.Extension{
			{
				Id:       idPeACMEIdentifier,
				Critical: true,
				Value:    extValue,
			},
		},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, key.Public(), key)
	if err != nil {
		return nil, fmt.Errorf("creating tls-alpn-01 certificate: %w", err)
	}

	return &tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}, nil
}

// ServerNextProtos is the ALPN protocol list a tls.Config offers to accept
// tls-alpn-01 validation connections. It holds only acme-tls/1; the
// protocols of ordinary HTTPS (h2, http/1.1) are not included.
func ServerNextProtos() []string {
	return []string{acmeTLS1Protocol}
}
