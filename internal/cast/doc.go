// Package cast defines the optional cast-device capability.
//
// Handlers hold a Caster and never check for nil: when no backend is
// configured they get Unavailable, whose methods return ErrUnavailable,
// which the HTTP layer turns into 503 Service Unavailable.
package cast
