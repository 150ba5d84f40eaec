package testutil

import (
	"sharesync/internal/encryption"
	"sharesync/internal/sharing"
)

// NewTestEncryptor creates a reversible, keyless encryptor for testing.
func NewTestEncryptor() sharing.Encryptor {
	return encryption.NewTestEncryptor()
}
