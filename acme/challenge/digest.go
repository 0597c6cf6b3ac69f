package challenge

import (
	"crypto/sha256"
	"encoding/base64"
)

// DNS01Digest computes the value a _acme-challenge TXT record must hold
// for a dns-01 challenge: the base64url (no padding) encoding of the
// SHA-256 digest of the key authorization. See RFC 8555 section 8.4.
func DNS01Digest(keyAuth string) string {
	sum := sha256.Sum256([]byte(keyAuth))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
