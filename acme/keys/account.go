package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"fmt"
)

// GenerateAccountKey generates a new ECDSA P-256 private key suitable for
// use as an ACME account key. RFC 8555 requires ES256/RS256 for JWS
// signatures; P-256 is the default here and the only curve the
// template-guard in assertGeneratorTemplate checks against.
func GenerateAccountKey() (crypto.Signer, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating account key: %w", err)
	}
	return key, nil
}

// LoadAccountKey parses a PKCS#8 DER encoded private key as produced by
// GenerateAccountKey or loaded from disk. The primary extraction path goes
// through crypto/x509's PKCS#8 parser; assertGeneratorTemplate is only
// a defense-in-depth sanity check, never the source of the returned key.
func LoadAccountKey(pkcs8 []byte) (*ecdsa.PrivateKey, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(pkcs8)
	if err != nil {
		return nil, fmt.Errorf("parsing PKCS#8 account key: %w", err)
	}
	ecKey, ok := parsed.(*ecdsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("account key is %T, want *ecdsa.PrivateKey", parsed)
	}
	if ecKey.Curve != elliptic.P256() {
		return nil, fmt.Errorf("account key uses curve %s, want P-256", ecKey.Curve.Params().Name)
	}
	return ecKey, nil
}

// assertGeneratorTemplate is a defensive sanity check, not a key-derivation
// path: it confirms that the PKCS#8 DER prefix of a freshly generated P-256
// key still matches the ASN.1 template this package expects, so that any
// future standard-library change to ECDSA PKCS#8 encoding is caught loudly
// instead of silently corrupting a JWK. It is wired from tests, never from
// LoadAccountKey or JWKForSigner.
func assertGeneratorTemplate(pkcs8 []byte, template []byte) error {
	const (
		prefixEnd  = 0x24
		pointStart = 0x49
	)
	if len(pkcs8) < pointStart+1 {
		return fmt.Errorf("pkcs8 too short: %d bytes", len(pkcs8))
	}
	if len(template) < prefixEnd {
		return fmt.Errorf("template too short: %d bytes", len(template))
	}
	for i := 0; i < prefixEnd; i++ {
		if pkcs8[i] != template[i] {
			return fmt.Errorf("pkcs8 prefix diverged from template at byte %#x", i)
		}
	}
	if pkcs8[pointStart] != 4 {
		return fmt.Errorf("pkcs8 byte %#x = %d, want uncompressed-point marker 4", pointStart, pkcs8[pointStart])
	}
	return nil
}
