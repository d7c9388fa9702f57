package backend

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		services map[string]string
		wantErr  bool
	}{
		{name: "empty", services: nil},
		{name: "valid", services: map[string]string{"get-pay-key": "https://svcs.sandbox.paypal.com/AdaptivePayments/Pay"}},
		{name: "relative url", services: map[string]string{"x": "/AdaptivePayments/Pay"}, wantErr: true},
		{name: "bad scheme", services: map[string]string{"x": "ftp://example.com"}, wantErr: true},
		{name: "empty name", services: map[string]string{"": "https://example.com"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reg, err := NewRegistry("paypal", tt.services)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, reg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.services), reg.Len())
			assert.Equal(t, "paypal", reg.Backend())
		})
	}
}

func TestRegistry_Resolve(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry("paypal", map[string]string{
		"get-pay-key":    "https://api.example.com/Pay",
		"check-purchase": "https://api.example.com/PaymentDetails",
	})
	require.NoError(t, err)

	u, err := reg.Resolve("get-pay-key")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/Pay", u)

	_, err = reg.Resolve("get-nothing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownBackend))

	var svcErr *UnknownServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "paypal", svcErr.Backend)
	assert.Equal(t, "get-nothing", svcErr.Service)
	assert.Contains(t, err.Error(), `"get-nothing"`)
}

func TestRegistry_IsImmutable(t *testing.T) {
	t.Parallel()

	services := map[string]string{"a": "https://api.example.com/a"}
	reg, err := NewRegistry("bango", services)
	require.NoError(t, err)

	services["a"] = "https://evil.example.com/a"
	services["b"] = "https://api.example.com/b"

	u, err := reg.Resolve("a")
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/a", u)
	assert.Equal(t, []string{"a"}, reg.Names())

	names := reg.Names()
	names[0] = "mutated"
	assert.Equal(t, []string{"a"}, reg.Names())
}

func TestRegistry_Names_Sorted(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry("paypal", map[string]string{
		"get-verified":   "https://api.example.com/v",
		"check-purchase": "https://api.example.com/c",
		"get-pay-key":    "https://api.example.com/p",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"check-purchase", "get-pay-key", "get-verified"}, reg.Names())
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	t.Parallel()

	reg, err := NewRegistry("paypal", map[string]string{"a": "https://api.example.com/a"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			u, err := reg.Resolve("a")
			assert.NoError(t, err)
			assert.Equal(t, "https://api.example.com/a", u)
		}()
	}
	wg.Wait()
}
