// Package auth computes the authentication headers sent to payment backends.
//
// Each backend has one Injector. An injector turns per-request metadata
// (target URL and the optional caller token) into the extra headers the
// backend expects:
//
//   - PayPal: X-PAYPAL-SECURITY-* API credentials plus, when the caller
//     supplies a third-party token, an OAuth 1.0 X-PAYPAL-AUTHORIZATION
//     header
//   - Bango: not implemented; every call fails with ErrNotImplemented
//
// # Credentials
//
// PayPal API credentials come from a CredentialSource. The static source
// serves values from configuration; the Vault source reads a KV secret on
// every call and is bounded by the caller's context:
//
//	source, err := auth.NewCredentialSource(cfg.Credentials, vaultClient)
//	if err != nil {
//	    // handle error
//	}
//	injector := auth.NewPayPalInjector(source, auth.WithLogger(logger))
//	headers, err := injector.Headers(ctx, auth.Metadata{
//	    Method: http.MethodPost,
//	    URL:    serviceURL,
//	    Token:  auth.ParseToken(r.Header.Get("X-Solitude-Token")),
//	})
//
// # Thread Safety
//
// Injectors hold no per-request state and are safe for concurrent use.
//
// # Errors
//
// Every failure to compute headers wraps ErrAuthComputation, except the
// unported Bango flow which returns ErrNotImplemented.
package auth
