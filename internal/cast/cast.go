package cast

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable is returned by every method of a Caster when no cast
	// backend is configured.
	ErrUnavailable = errors.New("cast support is not available")

	// ErrDeviceNotFound is returned by Play for an unknown device name.
	ErrDeviceNotFound = errors.New("cast device not found")
)

// Device is a receiver on the local network.
type Device struct {
	Name string `json:"name"`
}

// Caster discovers receivers and hands them a stream URL to play.
type Caster interface {
	Devices(ctx context.Context) ([]Device, error)
	// Play starts playback of url on the named device. An empty name picks
	// the first device found.
	Play(ctx context.Context, device, url, mimeType string) error
}

// Unavailable is the Caster used when no backend is configured.
type Unavailable struct{}

var _ Caster = Unavailable{}

// Devices always fails with ErrUnavailable.
func (Unavailable) Devices(context.Context) ([]Device, error) {
	return nil, ErrUnavailable
}

// Play always fails with ErrUnavailable.
func (Unavailable) Play(context.Context, string, string, string) error {
	return ErrUnavailable
}

// OrUnavailable returns c, or Unavailable when c is nil.
func OrUnavailable(c Caster) Caster {
	if c == nil {
		return Unavailable{}
	}
	return c
}
