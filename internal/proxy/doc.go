// Package proxy forwards caller requests to payment backends.
//
// A Dispatcher serves POST /proxy/{backend}. It selects the backend's
// Adapter from a fixed lookup table and runs one linear pipeline per
// request:
//
//  1. reject unknown or disabled backends
//  2. Prepare: read the body, resolve the service named by the routing
//     header and compute auth headers
//  3. Call: POST the body to the service URL under the backend timeout
//  4. PostProcess the result and write it back verbatim
//
// There are no retries and no state is kept between requests.
//
// # Status Mapping
//
// Caller faults (unknown backend, unknown service, missing routing header)
// get 400 with a JSON error body. A disabled backend gets 404 with an
// empty body. Auth and transport failures get 500 with an empty body so
// that nothing about credentials or the upstream network reaches the
// caller; the failure class is logged instead. Unported auth schemes get
// 501.
//
// # Usage
//
//	adapters, err := proxy.NewAdaptersFromConfig(cfg.Proxy, vaultClient,
//	    proxy.WithFactoryLogger(logger))
//	if err != nil {
//	    // handle error
//	}
//	dispatcher := proxy.NewDispatcher(adapters, proxy.WithLogger(logger))
//	mux.Handle(proxy.RoutePattern, dispatcher)
package proxy
