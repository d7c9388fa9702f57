// Package health serves the admin endpoints: liveness, readiness and
// detailed health, plus the Prometheus scrape endpoint.
//
// Readiness runs every registered dependency check in parallel under a
// timeout. Liveness never touches dependencies.
//
//	h := health.NewHandler(health.WithLogger(logger))
//	h.AddCheck(health.NewVaultCheck(vaultClient))
//	router := health.NewRouter(h, metrics.Handler(), "/metrics")
package health
