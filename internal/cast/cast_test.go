package cast

import (
	"context"
	"errors"
	"testing"
)

type fakeCaster struct{}

func (fakeCaster) Devices(context.Context) ([]Device, error) {
	return []Device{{Name: "Living Room"}}, nil
}

func (fakeCaster) Play(context.Context, string, string, string) error { return nil }

func TestUnavailable(t *testing.T) {
	var c Caster = Unavailable{}

	devices, err := c.Devices(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Devices() error = %v, want ErrUnavailable", err)
	}
	if devices != nil {
		t.Errorf("Devices() = %v, want nil", devices)
	}

	err = c.Play(context.Background(), "", "http://host/stream/abc", "video/x-matroska")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Play() error = %v, want ErrUnavailable", err)
	}
}

func TestOrUnavailable(t *testing.T) {
	if _, ok := OrUnavailable(nil).(Unavailable); !ok {
		t.Error("OrUnavailable(nil) should return Unavailable")
	}

	c := OrUnavailable(fakeCaster{})
	devices, err := c.Devices(context.Background())
	if err != nil || len(devices) != 1 {
		t.Errorf("configured caster was replaced: %v, %v", devices, err)
	}
}
