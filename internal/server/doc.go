// Package server implements the HTTP server for the composehook webhook.
//
// This package provides:
//   - The deploy webhook endpoint with shared-token authentication
//   - Per-IP rate limiting to prevent abuse
//   - Health, status and Prometheus metrics endpoints
//   - Structured logging of all HTTP requests
//
// The server integrates with other packages:
//   - internal/stack: directory-derived stack registry
//   - internal/deploy: image pull and compose restart execution
//   - internal/config: environment-driven configuration
//
// Security properties:
//   - Constant-time token comparison; auth failures answer 404 so the
//     endpoint is indistinguishable from an unknown route
//   - Content-Type validation (application/json only)
//   - Payload size limit (64 KiB)
//   - Service and tag allow-list checks before anything is executed
//   - External commands restricted to the container-engine allow-list
package server
