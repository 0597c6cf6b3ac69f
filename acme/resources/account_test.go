package resources

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccountGeneratesKeyWhenNilSigner(t *testing.T) {
	acct, err := NewAccount([]string{"admin@example.com"}, nil)
	require.NoError(t, err)
	assert.NotNil(t, acct.Signer)
	assert.Equal(t, []string{"mailto:admin@example.com"}, acct.Contact)
}

func TestNewAccountSkipsEmptyEmails(t *testing.T) {
	acct, err := NewAccount([]string{"", "admin@example.com", ""}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"mailto:admin@example.com"}, acct.Contact)
}

func TestSaveAndRestoreAccountRoundTrip(t *testing.T) {
	acct, err := NewAccount([]string{"admin@example.com"}, nil)
	require.NoError(t, err)
	acct.ID = "https://example.com/acme/acct/1"
	acct.Orders = []string{"https://example.com/acme/order/1"}

	path := filepath.Join(t.TempDir(), "account.json")
	require.NoError(t, SaveAccount(path, acct))

	restored, err := RestoreAccount(path)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, restored.ID)
	assert.Equal(t, acct.Contact, restored.Contact)
	assert.Equal(t, acct.Orders, restored.Orders)
	assert.Equal(t, acct.Signer.Public(), restored.Signer.Public())
	assert.Equal(t, path, restored.Path())
}

func TestSaveAccountRejectsNil(t *testing.T) {
	err := SaveAccount(filepath.Join(t.TempDir(), "x.json"), nil)
	assert.Error(t, err)
}

func TestOrderURLBounds(t *testing.T) {
	acct := &Account{Orders: []string{"a", "b"}}

	url, err := acct.OrderURL(1)
	require.NoError(t, err)
	assert.Equal(t, "b", url)

	_, err = acct.OrderURL(2)
	assert.Error(t, err)

	empty := &Account{}
	_, err = empty.OrderURL(0)
	assert.Error(t, err)
}
