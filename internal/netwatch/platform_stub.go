//go:build !linux

package netwatch

import (
	"context"
	"fmt"
	"net/netip"
)

// Platform is unavailable off linux; the daemon refuses to start
// watchers rather than pretending to monitor anything.
type Platform struct{}

func NewPlatform() (Platform, error) {
	return Platform{}, fmt.Errorf("interface monitoring requires linux")
}

func (Platform) ListInterfaces(context.Context) ([]string, error) {
	return nil, fmt.Errorf("interface monitoring requires linux")
}

func (Platform) Subscribe(context.Context, string) (<-chan Event, error) {
	return nil, fmt.Errorf("interface monitoring requires linux")
}

func (Platform) Addr(context.Context, string) (netip.Addr, bool, error) {
	return netip.Addr{}, false, fmt.Errorf("interface monitoring requires linux")
}

func (Platform) Configure(context.Context, string, Options) error {
	return fmt.Errorf("interface monitoring requires linux")
}
