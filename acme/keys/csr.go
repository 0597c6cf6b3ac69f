package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
)

// GenerateCertKey generates a fresh private key to use for a certificate's
// CSR. RFC 8555 section 11.1 recommends the certificate keypair not reuse
// the account keypair; curve selects the ECDSA curve (elliptic.P256() or
// elliptic.P384()).
func GenerateCertKey(curve elliptic.Curve) (crypto.Signer, error) {
	key, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating certificate key: %w", err)
	}
	return key, nil
}

// MakeCSR builds a DER encoded PKCS#10 certificate signing request for the
// given domains, using domains[0] as the CommonName and all of domains as
// the DNS SAN list. An empty domains slice is an error.
func MakeCSR(signer crypto.Signer, domains []string) ([]byte, error) {
	if len(domains) == 0 {
		return nil, fmt.Errorf("MakeCSR: no domains specified")
	}

	template := x509.CertificateRequest{
		Subject: pkix.Name{
			CommonName: domains[0],
		},
		DNSNames: domains,
	}

	csrDER, err := x509.CreateCertificateRequest(rand.Reader, &template, signer)
	if err != nil {
		return nil, fmt.Errorf("creating CSR: %w", err)
	}
	return csrDER, nil
}
