package client

import (
	"encoding/json"
	"fmt"

	"github.com/acmecore/acmecore/acme/resources"
	"github.com/acmecore/acmecore/acme/transport"
)

// FetchDirectory retrieves and parses the ACME server's directory resource.
// See RFC 8555 section 7.1.1.
func FetchDirectory(t *transport.Transport, directoryURL string) (*resources.Directory, error) {
	resp, err := t.Get(directoryURL)
	if err != nil {
		return nil, fmt.Errorf("fetching directory: %w", err)
	}

	var dir resources.Directory
	if err := json.Unmarshal(resp.Body, &dir); err != nil {
		return nil, fmt.Errorf("parsing directory body: %w", err)
	}
	if dir.NewNonce == "" || dir.NewAccount == "" || dir.NewOrder == "" {
		return nil, fmt.Errorf("directory missing one of newNonce/newAccount/newOrder")
	}
	return &dir, nil
}
