package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
// The custom rules cover the tagged unions, whose required fields depend on Type.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	switch cfg.Database.Type {
	case "sqlite":
		if cfg.Database.DataDir == "" {
			return fmt.Errorf("database: data_dir required for sqlite database")
		}
	case "postgres":
		if cfg.Database.DSN == "" {
			return fmt.Errorf("database: dsn required for postgres database")
		}
	}

	names := make(map[string]bool)
	for i, v := range cfg.Vaults {
		if names[v.Name] {
			return fmt.Errorf("vaults[%d]: duplicate vault name %q", i, v.Name)
		}
		names[v.Name] = true

		switch v.Type {
		case "s3":
			if v.S3Bucket == "" || v.S3Region == "" {
				return fmt.Errorf("vaults[%d]: s3_bucket and s3_region required for s3 vault", i)
			}
			if (v.S3AccessKeyID == "") != (v.S3SecretAccessKey == "") {
				return fmt.Errorf("vaults[%d]: s3_access_key_id and s3_secret_access_key must be set together", i)
			}
		case "filesystem":
			if v.FSVaultRoot == "" {
				return fmt.Errorf("vaults[%d]: fs_vault_root required for filesystem vault", i)
			}
		}
	}

	if cfg.Encryption.Type == "age" {
		if cfg.Encryption.PublicKeyPath == "" || cfg.Encryption.PrivateKeyPath == "" {
			return fmt.Errorf("encryption: public_key_path and private_key_path required for age encryption")
		}
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}
