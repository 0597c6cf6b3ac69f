package challenge

import (
	"fmt"

	"github.com/acmecore/acmecore/acme"
	"github.com/acmecore/acmecore/acme/resources"
)

// Present dispatches chal to the Responder method matching its Type,
// returning a ReleaseFunc to tear down whatever it set up. domain is the
// identifier the authorization containing chal is for.
func Present(r Responder, domain string, chal resources.Challenge, keyAuth string) (ReleaseFunc, error) {
	switch chal.Type {
	case acme.ChallengeHTTP01:
		return r.PresentHTTP01(chal.Token, keyAuth)
	case acme.ChallengeDNS01:
		return r.PresentDNS01(domain, keyAuth)
	case acme.ChallengeTLSALPN01:
		return r.PresentTLSALPN01(domain, keyAuth)
	default:
		return nil, fmt.Errorf("challenge: unsupported type %q", chal.Type)
	}
}
