package resources

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"

	"github.com/acmecore/acmecore/acme/keys"
)

// Account holds information related to a single ACME Account resource. An
// Account with an empty ID has not yet been registered with the ACME
// server.
//
// The Signer field holds the Account's keypair. Requests authenticated for
// this Account are signed with it, first embedding the public JWK (during
// registration) and afterwards using the server-assigned ID as the JWS Key
// ID. See RFC 8555 section 7.1.2.
type Account struct {
	// The server assigned Account ID (a URL), used as the JWS Key ID once set.
	ID string `json:"id,omitempty"`
	// "mailto:" contact URIs registered for the account.
	Contact []string `json:"contact,omitempty"`
	// Signer holds the account keypair. Its public half is embedded as
	// a JWK in the registration request; afterwards the ID is used instead.
	Signer crypto.Signer `json:"-"`
	// Orders the account has created, referenced by their server URL.
	Orders []string `json:"-"`

	jsonPath string
}

// String returns the Account's ID, or an empty string if unregistered.
func (a Account) String() string {
	return a.ID
}

// Path returns the file path the Account was last saved to or restored
// from, or an empty string.
func (a Account) Path() string {
	return a.jsonPath
}

// OrderURL returns the URL of the ith Order the Account has created.
func (a *Account) OrderURL(i int) (string, error) {
	if len(a.Orders) == 0 {
		return "", fmt.Errorf("account has no orders")
	}
	if i < 0 || i >= len(a.Orders) {
		return "", fmt.Errorf("order index must be 0 <= i < %d", len(a.Orders))
	}
	return a.Orders[i], nil
}

// NewAccount creates an Account in memory. It is not registered with the
// ACME server until passed to Session.Register. If privKey is nil a fresh
// ECDSA P-256 key is generated for the account.
func NewAccount(emails []string, privKey crypto.Signer) (*Account, error) {
	var contacts []string
	for _, e := range emails {
		if e == "" {
			continue
		}
		contacts = append(contacts, fmt.Sprintf("mailto:%s", e))
	}

	if privKey == nil {
		randKey, err := keys.GenerateAccountKey()
		if err != nil {
			return nil, err
		}
		privKey = randKey
	}

	return &Account{
		Contact: contacts,
		Signer:  privKey,
	}, nil
}

// SaveAccount persists account to path, including its private key. The
// file is written with mode 0600 since it contains key material.
func SaveAccount(path string, account *Account) error {
	if account == nil {
		return fmt.Errorf("account must not be nil")
	}
	frozen, err := account.save()
	if err != nil {
		return err
	}
	account.jsonPath = path
	return os.WriteFile(path, frozen, 0600)
}

// rawAccount is the on-disk shape SaveAccount/RestoreAccount persist. The
// account key is stored as PKCS#8 DER, matching the persistence format
// SaveAccount's callers are documented to produce: the PKCS#8 DER of the
// account key plus the key-id URL.
type rawAccount struct {
	ID         string
	Contact    []string
	Orders     []string
	PrivateKey []byte
}

func (a *Account) save() ([]byte, error) {
	keyBytes, err := x509.MarshalPKCS8PrivateKey(a.Signer)
	if err != nil {
		return nil, fmt.Errorf("marshaling account key: %w", err)
	}
	raw := rawAccount{
		ID:         a.ID,
		Contact:    a.Contact,
		Orders:     a.Orders,
		PrivateKey: keyBytes,
	}
	return json.MarshalIndent(raw, "", "  ")
}

// RestoreAccount loads an Account previously written by SaveAccount.
func RestoreAccount(path string) (*Account, error) {
	acct := &Account{}
	frozen, err := os.ReadFile(path)
	if err != nil {
		return acct, err
	}
	err = acct.restore(frozen)
	acct.jsonPath = path
	return acct, err
}

func (a *Account) restore(frozen []byte) error {
	var raw rawAccount
	if err := json.Unmarshal(frozen, &raw); err != nil {
		return err
	}
	parsed, err := x509.ParsePKCS8PrivateKey(raw.PrivateKey)
	if err != nil {
		return fmt.Errorf("parsing account key: %w", err)
	}
	signer, ok := parsed.(crypto.Signer)
	if !ok {
		return fmt.Errorf("account key is %T, not a crypto.Signer", parsed)
	}
	if _, ok := signer.(*ecdsa.PrivateKey); !ok {
		return fmt.Errorf("account key is %T, want *ecdsa.PrivateKey", signer)
	}

	a.ID = raw.ID
	a.Contact = raw.Contact
	a.Orders = raw.Orders
	a.Signer = signer
	return nil
}
