package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/solitude/internal/config"
)

type stubKVReader struct {
	data  map[string]interface{}
	err   error
	mount string
	path  string
	calls int
}

func (s *stubKVReader) ReadKV(_ context.Context, mount, path string) (map[string]interface{}, error) {
	s.calls++
	s.mount, s.path = mount, path
	return s.data, s.err
}

func TestStaticCredentialSource(t *testing.T) {
	t.Parallel()

	src := NewStaticCredentialSource(Credentials{UserID: "u", Password: "p", Signature: "s", ApplicationID: "APP"})

	creds, err := src.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u", creds.UserID)
	assert.Equal(t, "APP", creds.ApplicationID)

	creds.UserID = "mutated"
	again, err := src.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u", again.UserID)
}

func TestStaticCredentialSource_Missing(t *testing.T) {
	t.Parallel()

	_, err := NewStaticCredentialSource(Credentials{UserID: "u", Password: "p"}).Credentials(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "signature")
}

func TestVaultCredentialSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    map[string]interface{}
		err     error
		wantApp string
		wantErr error
	}{
		{
			name:    "all keys",
			data:    map[string]interface{}{"userId": "u", "password": "p", "signature": "s", "applicationId": "APP-V"},
			wantApp: "APP-V",
		},
		{
			name:    "application id fallback",
			data:    map[string]interface{}{"userId": "u", "password": "p", "signature": "s"},
			wantApp: "APP-CFG",
		},
		{
			name:    "non string value",
			data:    map[string]interface{}{"userId": "u", "password": 42, "signature": "s"},
			wantErr: ErrMissingCredential,
		},
		{
			name:    "read failure",
			err:     errors.New("permission denied"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reader := &stubKVReader{data: tt.data, err: tt.err}
			src := NewVaultCredentialSource(reader, "secret", "solitude/paypal", "APP-CFG")

			creds, err := src.Credentials(context.Background())
			assert.Equal(t, "secret", reader.mount)
			assert.Equal(t, "solitude/paypal", reader.path)

			switch {
			case tt.err != nil:
				assert.ErrorIs(t, err, tt.err)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantApp, creds.ApplicationID)
			}
		})
	}
}

func TestNewCredentialSource(t *testing.T) {
	t.Parallel()

	src, err := NewCredentialSource(config.CredentialsConfig{UserID: "u", Password: "p", Signature: "s"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &StaticCredentialSource{}, src)

	src, err = NewCredentialSource(config.CredentialsConfig{
		Source:     config.CredentialSourceVault,
		VaultMount: "secret",
		VaultPath:  "paypal",
	}, &stubKVReader{})
	require.NoError(t, err)
	assert.IsType(t, &VaultCredentialSource{}, src)

	_, err = NewCredentialSource(config.CredentialsConfig{Source: config.CredentialSourceVault}, nil)
	assert.Error(t, err)

	_, err = NewCredentialSource(config.CredentialsConfig{Source: "ldap"}, nil)
	assert.Error(t, err)
}
