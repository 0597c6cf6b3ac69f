// Package jws builds the flattened-JSON JWS envelopes ACME authenticates
// every non-GET request with. See RFC 8555 section 6.2.
package jws

import (
	"crypto"
	"fmt"

	"github.com/acmecore/acmecore/acme/keys"

	jose "github.com/go-jose/go-jose/v4"
)

// Options controls how a request body is enveloped.
type Options struct {
	// Signer is the account (or, for key rollover's inner envelope, the
	// new account) key used to sign the JWS.
	Signer crypto.Signer
	// KeyID, if non-empty, is used as the JWS "kid" header and the
	// account's public key is not embedded. Mutually exclusive with
	// leaving KeyID empty, which embeds the Signer's public key as a JWK
	// instead (required for newAccount and key rollover's inner JWS).
	KeyID string
	// NonceSource supplies the "nonce" protected header value. Leave nil
	// to omit the header entirely, which RFC 8555 section 7.3.5 requires
	// for a key-change request's inner JWS.
	NonceSource jose.NonceSource
}

func (o Options) validate() error {
	if o.Signer == nil {
		return fmt.Errorf("jws: Options.Signer must not be nil")
	}
	return nil
}

// Sign produces the flattened JSON serialization of a JWS over payload,
// with the target url embedded in the protected header as RFC 8555
// requires. A nil payload serializes to an empty string, the form POST-as-
// GET requests use.
func Sign(url string, payload []byte, opts Options) ([]byte, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	var signingKey jose.SigningKey
	if opts.KeyID == "" {
		signingKey = keys.SigningKeyForSigner(opts.Signer, "")
	} else {
		signingKey = keys.SigningKeyForSigner(opts.Signer, opts.KeyID)
	}

	signerOpts := &jose.SignerOptions{
		NonceSource: opts.NonceSource,
		ExtraHeaders: map[jose.HeaderKey]interface{}{
			"url": url,
		},
	}
	if opts.KeyID == "" {
		signerOpts.EmbedJWK = true
	}

	signer, err := jose.NewSigner(signingKey, signerOpts)
	if err != nil {
		return nil, fmt.Errorf("jws: building signer: %w", err)
	}

	signed, err := signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("jws: signing payload: %w", err)
	}

	return []byte(signed.FullSerialize()), nil
}
