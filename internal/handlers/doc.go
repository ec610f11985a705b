// Package handlers provides the HTTP handlers of the media share server.
//
// It includes handlers for:
//   - Login, logout and session checks
//   - Browsing and downloading below a user's virtual root
//   - Creating and following share links
//   - Live transcoded streams of shared media
//   - Handing streams to cast receivers
//   - Health checks and build information
//
// Authenticated routes are wrapped with RequireAuth, which accepts the
// session cookie or HTTP basic auth and stores the caller's access.Identity
// in the request context.
package handlers
