package client

import (
	"fmt"
	"sync"

	"github.com/acmecore/acmecore/acme"
	"github.com/acmecore/acmecore/acme/transport"
)

// NonceCache holds the single most recently offered Replay-Nonce and serves
// it to the JWS signer through the jose.NonceSource interface. ACME nonces
// are single use (RFC 8555 section 6.5): Nonce hands out the cached value
// and clears the slot, expecting the session layer to refill it by calling
// Set with the Replay-Nonce header from the next response. A HEAD to the
// newNonce endpoint is only a fallback for when the cache is empty (the
// first call, or after a gap with no harvested nonce). A mutex ensures only
// one goroutine can be mid-exchange at a time.
type NonceCache struct {
	mu   sync.Mutex
	t    *transport.Transport
	url  string
	last string
}

// NewNonceCache builds a NonceCache that fetches fresh nonces by issuing
// HEAD requests against the server's newNonce endpoint.
func NewNonceCache(t *transport.Transport, newNonceURL string) *NonceCache {
	return &NonceCache{t: t, url: newNonceURL}
}

// Nonce implements jose.NonceSource. It hands out the cached nonce and
// clears it, falling back to a HEAD against newNonce only if the cache is
// currently empty. See RFC 8555 section 7.2.
func (c *NonceCache) Nonce() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == "" {
		if err := c.refresh(); err != nil {
			return "", err
		}
	}

	n := c.last
	c.last = ""
	return n, nil
}

// Set offers a nonce observed in a response header (RFC 8555 section
// 6.5.1's Replay-Nonce) to the cache, so the next Nonce call can hand it
// out without a dedicated HEAD round trip.
func (c *NonceCache) Set(nonce string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.last = nonce
}

func (c *NonceCache) refresh() error {
	resp, err := c.t.Head(c.url)
	if err != nil {
		return err
	}
	nonce, err := transport.ExpectHeader(resp, acme.ReplayNonceHeader)
	if err != nil {
		return fmt.Errorf("refreshing nonce: %w", err)
	}
	c.last = nonce
	return nil
}
