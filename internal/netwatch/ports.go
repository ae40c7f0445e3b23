package netwatch

import (
	"context"
	"net"
	"net/netip"
)

// EventKind is the closed set of registry event variants the watcher
// recognizes. Unrecognized is deliberately a no-op: network event
// sources are noisy and the watcher must never crash on a shape it
// does not know.
type EventKind uint8

const (
	EventAddrChanged EventKind = iota + 1
	EventLinkChanged
	EventUnrecognized
)

// Event is one interface-registry change. Interface may be empty on
// Unrecognized events.
type Event struct {
	Kind      EventKind
	Interface string
	Addr      netip.Addr
}

// Options selects how the platform network manager configures the
// interface: a DHCP lease or a static address.
type Options struct {
	DHCP    bool
	Address netip.Prefix
}

// Registry is the platform's interface registry.
// Production: netlink adapter (linux)
// Testing: scripted fake
type Registry interface {
	// ListInterfaces reports the interfaces currently present.
	ListInterfaces(ctx context.Context) ([]string, error)
	// Subscribe delivers registry events for one interface in the
	// order the platform emits them.
	Subscribe(ctx context.Context, iface string) (<-chan Event, error)
	// Addr reads the interface's current IPv4 address from a fresh
	// registry snapshot. The bool is false when none is assigned.
	Addr(ctx context.Context, iface string) (netip.Addr, bool, error)
}

// Configurer requests interface configuration from the platform
// network manager.
type Configurer interface {
	Configure(ctx context.Context, iface string, opts Options) error
}

// Resolver probes DNS reachability. Only success or failure matters,
// never the payload.
type Resolver interface {
	LookupHost(ctx context.Context, host string) error
}

// TimeSyncer re-synchronizes the device clock. Best-effort: the
// watcher logs failures and moves on.
type TimeSyncer interface {
	Sync(ctx context.Context) error
}

// StdResolver probes through the stdlib resolver.
type StdResolver struct{}

func (StdResolver) LookupHost(ctx context.Context, host string) error {
	_, err := net.DefaultResolver.LookupHost(ctx, host)
	return err
}
