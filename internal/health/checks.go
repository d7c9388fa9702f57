package health

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Pinger is a dependency that can report its own health.
type Pinger interface {
	Health(ctx context.Context) error
}

// NewVaultCheck checks that Vault is initialized and unsealed.
func NewVaultCheck(vault Pinger) HealthCheck {
	return NewHealthCheckFunc("vault", vault.Health)
}

// NewRedisCheck pings the rate limit store.
func NewRedisCheck(client redis.UniversalClient) HealthCheck {
	return NewHealthCheckFunc("redis", func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}
