//go:build linux

package netwatch

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/vishvananda/netlink"
)

const updateChannelCap = 16

// Platform is the netlink-backed Registry and Configurer.
type Platform struct{}

func NewPlatform() (Platform, error) {
	// Probe rtnetlink availability up front so a misconfigured kernel
	// fails at wiring time, not mid-monitoring.
	if _, err := netlink.LinkList(); err != nil {
		return Platform{}, fmt.Errorf("rtnetlink unavailable: %w", err)
	}
	return Platform{}, nil
}

func (Platform) ListInterfaces(_ context.Context) ([]string, error) {
	links, err := netlink.LinkList()
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	names := make([]string, 0, len(links))
	for _, link := range links {
		names = append(names, link.Attrs().Name)
	}
	return names, nil
}

func (Platform) Addr(_ context.Context, iface string) (netip.Addr, bool, error) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return netip.Addr{}, false, fmt.Errorf("link %s: %w", iface, err)
	}
	addrs, err := netlink.AddrList(link, netlink.FAMILY_V4)
	if err != nil {
		return netip.Addr{}, false, fmt.Errorf("list addresses on %s: %w", iface, err)
	}
	for _, a := range addrs {
		if addr, ok := netipFromIP(a.IP); ok {
			return addr, true, nil
		}
	}
	return netip.Addr{}, false, nil
}

// Subscribe registers for rtnetlink address and link notifications and
// translates those scoped to iface into watcher events. Everything
// else arrives as EventUnrecognized.
func (Platform) Subscribe(ctx context.Context, iface string) (<-chan Event, error) {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return nil, fmt.Errorf("link %s: %w", iface, err)
	}
	index := link.Attrs().Index

	addrCh := make(chan netlink.AddrUpdate, updateChannelCap)
	linkCh := make(chan netlink.LinkUpdate, updateChannelCap)
	done := make(chan struct{})
	if err := netlink.AddrSubscribe(addrCh, done); err != nil {
		close(done)
		return nil, fmt.Errorf("subscribe address updates: %w", err)
	}
	if err := netlink.LinkSubscribe(linkCh, done); err != nil {
		close(done)
		return nil, fmt.Errorf("subscribe link updates: %w", err)
	}

	out := make(chan Event, updateChannelCap)
	go func() {
		defer close(out)
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case u, ok := <-addrCh:
				if !ok {
					return
				}
				if !forward(ctx, out, translateAddrUpdate(u, index, iface)) {
					return
				}
			case u, ok := <-linkCh:
				if !ok {
					return
				}
				if !forward(ctx, out, translateLinkUpdate(u, index, iface)) {
					return
				}
			}
		}
	}()
	return out, nil
}

// forward delivers one event unless ctx is cancelled first. The
// consumer drains one event at a time and each handling step can block
// for seconds; a bare send here would park this goroutine past the
// watcher's exit and keep the rtnetlink subscriptions open forever.
func forward(ctx context.Context, out chan<- Event, ev Event) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

func (Platform) Configure(_ context.Context, iface string, opts Options) error {
	link, err := netlink.LinkByName(iface)
	if err != nil {
		return fmt.Errorf("link %s: %w", iface, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("bring up %s: %w", iface, err)
	}
	if opts.DHCP {
		// The platform's DHCP lease client owns address assignment;
		// the lease shows up later as an address event.
		return nil
	}
	if !opts.Address.IsValid() {
		return fmt.Errorf("static configuration for %s requires an address", iface)
	}
	addr := &netlink.Addr{IPNet: &net.IPNet{
		IP:   opts.Address.Addr().AsSlice(),
		Mask: net.CIDRMask(opts.Address.Bits(), opts.Address.Addr().BitLen()),
	}}
	if err := netlink.AddrReplace(link, addr); err != nil {
		return fmt.Errorf("assign %s to %s: %w", opts.Address, iface, err)
	}
	return nil
}

func translateAddrUpdate(u netlink.AddrUpdate, index int, iface string) Event {
	if u.LinkIndex != index {
		return Event{Kind: EventUnrecognized}
	}
	addr, ok := netipFromIP(u.LinkAddress.IP)
	if !ok {
		return Event{Kind: EventUnrecognized}
	}
	return Event{Kind: EventAddrChanged, Interface: iface, Addr: addr}
}

func translateLinkUpdate(u netlink.LinkUpdate, index int, iface string) Event {
	if u.Link == nil || u.Link.Attrs() == nil || u.Link.Attrs().Index != index {
		return Event{Kind: EventUnrecognized}
	}
	return Event{Kind: EventLinkChanged, Interface: iface}
}

func netipFromIP(ip net.IP) (netip.Addr, bool) {
	v4 := ip.To4()
	if v4 == nil {
		return netip.Addr{}, false
	}
	addr, ok := netip.AddrFromSlice(v4)
	return addr, ok
}
