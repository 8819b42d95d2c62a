// Package api hosts the ops HTTP server run alongside the harvester daemon.
// Routes:
//   - GET /healthz and /readyz for liveness and database readiness probes.
//   - GET /metrics for Prometheus scraping.
//   - GET /v1/status for the last crawl cycle report and stored row count.
package api
