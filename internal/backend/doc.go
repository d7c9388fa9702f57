// Package backend holds what the proxy knows about each payment backend:
// the static service registry, the pooled HTTP transport, and the
// outbound caller.
//
// A Registry maps service names to upstream URLs and is immutable after
// construction, so it is read concurrently without locking.
//
//	reg, err := backend.NewRegistry("paypal", map[string]string{
//	    "get-pay-key": "https://svcs.sandbox.paypal.com/AdaptivePayments/Pay",
//	})
//	url, err := reg.Resolve("get-pay-key")
//
// The Caller performs exactly one POST per call over a ConnectionPool.
// It never retries and never follows redirects; certificate
// verification cannot be disabled.
package backend
