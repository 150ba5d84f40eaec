package testutil

import (
	"sharesync/internal/sharing"
	"sharesync/internal/vault"
)

// NewTestVault creates a new in-memory snapshot vault for testing.
func NewTestVault() sharing.Vault {
	return vault.NewMemoryVault("test-vault")
}
