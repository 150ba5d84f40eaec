package encryption

import (
	"fmt"

	"sharesync/internal/config"
	"sharesync/internal/sharing"
)

// NewEncryptorFromConfig creates an Encryptor based on the configuration type.
// Type "none" (or empty) disables snapshot encryption and returns nil.
func NewEncryptorFromConfig(cfg config.EncryptionConfig) (sharing.Encryptor, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "age":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Type)
	}
}
