// Package vault reads payment backend credentials from HashiCorp Vault.
//
// Only the KV secrets engine is used. Reads go through the KV v2 data
// path and fall back to the v1 layout when the response is not wrapped.
// Nothing is cached: every call is a fresh read bounded by the caller's
// context.
//
//	client, err := vault.New(cfg.Vault, logger)
//	secret, err := client.ReadKV(ctx, "secret", "payments/paypal")
package vault
