// Package netwatch tracks one network interface's readiness: presence,
// address assignment, DNS reachability, and clock resync after address
// changes. Each interface gets its own watcher goroutine; watchers for
// different interfaces never block each other.
package netwatch

import (
	"context"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"farmd/internal/check"
)

// defaultPollInterval is 1s: the interface-presence poll cadence. The
// wait itself is unbounded; a robot may sit for minutes before a USB
// NIC enumerates.
const defaultPollInterval = 1 * time.Second

const resubscribeDelay = 1 * time.Second

// State is the watcher's current view of its interface. Addr is the
// zero value when no address is assigned. Connected is true only while
// the most recent DNS probe succeeded.
type State struct {
	Interface string
	Addr      netip.Addr
	Connected bool
}

// Config wires a Watcher. Registry, Configurer and Resolver are
// required; TimeSync may be nil to disable resync.
type Config struct {
	Interface    string
	Options      Options
	ProbeHost    string
	PollInterval time.Duration
	Registry     Registry
	Configurer   Configurer
	Resolver     Resolver
	TimeSync     TimeSyncer
}

type Watcher struct {
	cfg Config
	log *slog.Logger

	mu       sync.RWMutex
	phase    Phase
	state    State
	lastAddr netip.Addr
}

func New(cfg Config) *Watcher {
	check.Assert(cfg.Interface != "", "netwatch.New: interface name is required")
	check.Assert(cfg.Registry != nil, "netwatch.New: Registry must not be nil")
	check.Assert(cfg.Configurer != nil, "netwatch.New: Configurer must not be nil")
	check.Assert(cfg.Resolver != nil, "netwatch.New: Resolver must not be nil")

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	return &Watcher{
		cfg:   cfg,
		log:   slog.With("component", "netwatch", "interface", cfg.Interface),
		phase: WaitingForInterface,
		state: State{Interface: cfg.Interface},
	}
}

func (w *Watcher) Name() string { return "netwatch/" + w.cfg.Interface }

// Phase reports the current lifecycle phase.
func (w *Watcher) Phase() Phase {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.phase
}

// State reports the current interface view as a copy.
func (w *Watcher) State() State {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

// Run blocks until ctx is cancelled. It waits for the interface to
// appear, registers for registry events, requests configuration once,
// then handles events one at a time in arrival order.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.waitForInterface(ctx); err != nil {
		return err
	}
	w.transition(Configuring)

	// Register for events before configuring so an address assigned
	// during configuration is not missed.
	events, err := w.cfg.Registry.Subscribe(ctx, w.cfg.Interface)
	if err != nil {
		return err
	}
	if err := w.cfg.Configurer.Configure(ctx, w.cfg.Interface, w.cfg.Options); err != nil {
		return err
	}
	w.log.Info("interface configuration requested", "dhcp", w.cfg.Options.DHCP)
	w.transition(Monitoring)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				if !sleepContext(ctx, resubscribeDelay) {
					return ctx.Err()
				}
				next, err := w.cfg.Registry.Subscribe(ctx, w.cfg.Interface)
				if err != nil {
					w.log.Warn("event resubscribe failed", "err", err)
					continue
				}
				events = next
				continue
			}
			w.handleEvent(ctx, ev)
		}
	}
}

// waitForInterface polls until the registry reports the interface
// present. Deliberately unbounded.
func (w *Watcher) waitForInterface(ctx context.Context) error {
	for {
		names, err := w.cfg.Registry.ListInterfaces(ctx)
		if err != nil {
			w.log.Debug("list interfaces failed", "err", err)
		} else {
			for _, name := range names {
				if name == w.cfg.Interface {
					return nil
				}
			}
			w.log.Debug("interface not present yet")
		}
		if !sleepContext(ctx, w.cfg.PollInterval) {
			return ctx.Err()
		}
	}
}

// handleEvent processes one registry event to completion before the
// next is read: fresh address snapshot, resync on change, DNS probe.
func (w *Watcher) handleEvent(ctx context.Context, ev Event) {
	switch ev.Kind {
	case EventAddrChanged, EventLinkChanged:
	case EventUnrecognized:
		w.log.Debug("dropping unrecognized registry event")
		return
	default:
		w.log.Debug("dropping unknown registry event", "kind", ev.Kind)
		return
	}
	if ev.Interface != "" && ev.Interface != w.cfg.Interface {
		return
	}

	addr, assigned, err := w.cfg.Registry.Addr(ctx, w.cfg.Interface)
	if err != nil {
		w.log.Debug("address snapshot failed", "err", err)
		w.setConnected(false)
		return
	}
	if !assigned {
		addr = netip.Addr{}
	}

	if addr != w.lastAddr {
		w.lastAddr = addr
		w.setAddr(addr)
		w.log.Info("interface address changed", "addr", addr)
		if w.cfg.TimeSync != nil {
			if err := w.cfg.TimeSync.Sync(ctx); err != nil {
				w.log.Warn("time resync failed", "err", err)
			}
		}
	}

	err = w.cfg.Resolver.LookupHost(ctx, w.cfg.ProbeHost)
	w.setConnected(err == nil)
	if err != nil {
		w.log.Debug("dns probe failed", "host", w.cfg.ProbeHost, "err", err)
	}
}

func (w *Watcher) transition(to Phase) {
	w.mu.Lock()
	w.phase = w.phase.Transition(to)
	w.mu.Unlock()
}

func (w *Watcher) setAddr(addr netip.Addr) {
	w.mu.Lock()
	w.state.Addr = addr
	w.mu.Unlock()
}

func (w *Watcher) setConnected(connected bool) {
	w.mu.Lock()
	w.state.Connected = connected
	w.mu.Unlock()
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
