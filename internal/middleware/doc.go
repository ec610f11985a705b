// Package middleware provides the HTTP middleware chain of the server.
//
// It includes:
//   - Request logging in W3C Extended Log Format
//   - Prometheus request metrics labelled by route template
//   - gzip compression for the JSON API
//   - Per-client rate limiting with golang.org/x/time/rate
//   - A local-network guard for the cast endpoints
//
// Client addresses used for limiting and access decisions come from the
// connection, never from forwarding headers.
package middleware
