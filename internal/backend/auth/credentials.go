package auth

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/solitude/internal/config"
	"github.com/vyrodovalexey/solitude/internal/vault"
)

// Vault secret keys holding PayPal API credentials.
const (
	vaultKeyUserID        = "userId"
	vaultKeyPassword      = "password"
	vaultKeySignature     = "signature"
	vaultKeyApplicationID = "applicationId"
)

// Credentials are PayPal API credentials.
type Credentials struct {
	UserID        string
	Password      string
	Signature     string
	ApplicationID string
}

func (c *Credentials) validate() error {
	switch {
	case c.UserID == "":
		return fmt.Errorf("%w: %s", ErrMissingCredential, vaultKeyUserID)
	case c.Password == "":
		return fmt.Errorf("%w: %s", ErrMissingCredential, vaultKeyPassword)
	case c.Signature == "":
		return fmt.Errorf("%w: %s", ErrMissingCredential, vaultKeySignature)
	}
	return nil
}

// CredentialSource supplies API credentials for one call.
type CredentialSource interface {
	Credentials(ctx context.Context) (*Credentials, error)
}

// StaticCredentialSource serves credentials fixed at construction.
type StaticCredentialSource struct {
	creds Credentials
}

// NewStaticCredentialSource creates a static source.
func NewStaticCredentialSource(creds Credentials) *StaticCredentialSource {
	return &StaticCredentialSource{creds: creds}
}

// Credentials returns a copy of the configured credentials.
func (s *StaticCredentialSource) Credentials(_ context.Context) (*Credentials, error) {
	if err := s.creds.validate(); err != nil {
		return nil, err
	}
	creds := s.creds
	return &creds, nil
}

// VaultCredentialSource reads credentials from a Vault KV secret on
// every call.
type VaultCredentialSource struct {
	reader        vault.KVReader
	mount         string
	path          string
	applicationID string
}

// NewVaultCredentialSource creates a Vault-backed source. applicationID
// is used when the secret does not carry one.
func NewVaultCredentialSource(reader vault.KVReader, mount, path, applicationID string) *VaultCredentialSource {
	return &VaultCredentialSource{
		reader:        reader,
		mount:         mount,
		path:          path,
		applicationID: applicationID,
	}
}

// Credentials reads the secret and extracts the credential keys.
func (s *VaultCredentialSource) Credentials(ctx context.Context) (*Credentials, error) {
	data, err := s.reader.ReadKV(ctx, s.mount, s.path)
	if err != nil {
		return nil, err
	}

	creds := &Credentials{
		UserID:        stringValue(data, vaultKeyUserID),
		Password:      stringValue(data, vaultKeyPassword),
		Signature:     stringValue(data, vaultKeySignature),
		ApplicationID: stringValue(data, vaultKeyApplicationID),
	}
	if creds.ApplicationID == "" {
		creds.ApplicationID = s.applicationID
	}
	if err := creds.validate(); err != nil {
		return nil, fmt.Errorf("secret %s/%s: %w", s.mount, s.path, err)
	}
	return creds, nil
}

func stringValue(data map[string]interface{}, key string) string {
	if s, ok := data[key].(string); ok {
		return s
	}
	return ""
}

// NewCredentialSource builds the source named by cfg.Source. reader is
// required only for the vault source.
func NewCredentialSource(cfg config.CredentialsConfig, reader vault.KVReader) (CredentialSource, error) {
	switch cfg.Source {
	case "", config.CredentialSourceStatic:
		return NewStaticCredentialSource(Credentials{
			UserID:        cfg.UserID,
			Password:      cfg.Password,
			Signature:     cfg.Signature,
			ApplicationID: cfg.ApplicationID,
		}), nil
	case config.CredentialSourceVault:
		if reader == nil {
			return nil, fmt.Errorf("credential source %q requires a vault client", cfg.Source)
		}
		return NewVaultCredentialSource(reader, cfg.VaultMount, cfg.VaultPath, cfg.ApplicationID), nil
	default:
		return nil, fmt.Errorf("unknown credential source %q", cfg.Source)
	}
}
