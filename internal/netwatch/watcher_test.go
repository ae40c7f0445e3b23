package netwatch

import (
	"context"
	"errors"
	"net/netip"
	"sync"
	"testing"
	"time"
)

type fakeRegistry struct {
	mu           sync.Mutex
	presentAfter int // ListInterfaces calls before the interface shows up
	listCalls    int
	events       chan Event
	addr         netip.Addr
	assigned     bool
}

func (f *fakeRegistry) ListInterfaces(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listCalls < f.presentAfter {
		return []string{"lo"}, nil
	}
	return []string{"lo", "eth0"}, nil
}

func (f *fakeRegistry) Subscribe(context.Context, string) (<-chan Event, error) {
	return f.events, nil
}

func (f *fakeRegistry) Addr(context.Context, string) (netip.Addr, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addr, f.assigned, nil
}

func (f *fakeRegistry) setAddr(addr netip.Addr) {
	f.mu.Lock()
	f.addr = addr
	f.assigned = true
	f.mu.Unlock()
}

func (f *fakeRegistry) polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

type fakeConfigurer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeConfigurer) Configure(context.Context, string, Options) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return nil
}

func (f *fakeConfigurer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeResolver signals every probe on done and fails while failing is set.
type fakeResolver struct {
	mu      sync.Mutex
	failing bool
	done    chan struct{}
}

func (f *fakeResolver) LookupHost(context.Context, string) error {
	f.mu.Lock()
	failing := f.failing
	f.mu.Unlock()
	f.done <- struct{}{}
	if failing {
		return errors.New("no such host")
	}
	return nil
}

func (f *fakeResolver) setFailing(v bool) {
	f.mu.Lock()
	f.failing = v
	f.mu.Unlock()
}

type fakeSyncer struct {
	mu    sync.Mutex
	calls int
}

func (f *fakeSyncer) Sync(context.Context) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return nil
}

func (f *fakeSyncer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type watcherHarness struct {
	registry   *fakeRegistry
	configurer *fakeConfigurer
	resolver   *fakeResolver
	syncer     *fakeSyncer
	watcher    *Watcher
	cancel     context.CancelFunc
	runDone    chan error
}

func startWatcher(t *testing.T, presentAfter int) *watcherHarness {
	t.Helper()

	h := &watcherHarness{
		registry:   &fakeRegistry{presentAfter: presentAfter, events: make(chan Event)},
		configurer: &fakeConfigurer{},
		resolver:   &fakeResolver{done: make(chan struct{}, 16)},
		syncer:     &fakeSyncer{},
	}
	h.watcher = New(Config{
		Interface:    "eth0",
		Options:      Options{DHCP: true},
		ProbeHost:    "probe.farm.example",
		PollInterval: time.Millisecond,
		Registry:     h.registry,
		Configurer:   h.configurer,
		Resolver:     h.resolver,
		TimeSync:     h.syncer,
	})

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	h.runDone = make(chan error, 1)
	go func() { h.runDone <- h.watcher.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case <-h.runDone:
		case <-time.After(5 * time.Second):
			t.Error("watcher did not stop")
		}
	})
	return h
}

func (h *watcherHarness) awaitPhase(t *testing.T, want Phase) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if h.watcher.Phase() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("watcher phase = %s, want %s", h.watcher.Phase(), want)
}

func (h *watcherHarness) awaitConnected(t *testing.T, want bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if h.watcher.State().Connected == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("State.Connected = %v, want %v", h.watcher.State().Connected, want)
}

// emit pushes an event and waits for its probe, i.e. for handling to finish.
func (h *watcherHarness) emit(t *testing.T, ev Event) {
	t.Helper()
	h.registry.events <- ev
	select {
	case <-h.resolver.done:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not handled")
	}
}

func TestRun_WaitsForInterfaceThenConfiguresOnce(t *testing.T) {
	h := startWatcher(t, 5)
	h.awaitPhase(t, Monitoring)

	if polls := h.registry.polls(); polls < 5 {
		t.Errorf("ListInterfaces calls = %d, want at least 5", polls)
	}
	if got := h.configurer.count(); got != 1 {
		t.Errorf("Configure calls = %d, want exactly 1", got)
	}
}

func TestHandleEvent_ChangedAddressTriggersOneResync(t *testing.T) {
	h := startWatcher(t, 1)
	h.awaitPhase(t, Monitoring)

	addr := netip.MustParseAddr("10.0.0.7")
	h.registry.setAddr(addr)
	h.emit(t, Event{Kind: EventAddrChanged, Interface: "eth0", Addr: addr})

	if got := h.syncer.count(); got != 1 {
		t.Fatalf("Sync calls after address change = %d, want 1", got)
	}
	if st := h.watcher.State(); st.Addr != addr {
		t.Fatalf("State.Addr = %v, want %v", st.Addr, addr)
	}

	// Same address again: no further resync.
	h.emit(t, Event{Kind: EventAddrChanged, Interface: "eth0", Addr: addr})
	if got := h.syncer.count(); got != 1 {
		t.Fatalf("Sync calls after unchanged address = %d, want still 1", got)
	}

	// A different address: exactly one more.
	next := netip.MustParseAddr("10.0.0.8")
	h.registry.setAddr(next)
	h.emit(t, Event{Kind: EventAddrChanged, Interface: "eth0", Addr: next})
	if got := h.syncer.count(); got != 2 {
		t.Fatalf("Sync calls after second change = %d, want 2", got)
	}
}

func TestHandleEvent_ConnectedFollowsProbe(t *testing.T) {
	h := startWatcher(t, 1)
	h.awaitPhase(t, Monitoring)

	addr := netip.MustParseAddr("192.168.4.20")
	h.registry.setAddr(addr)

	h.emit(t, Event{Kind: EventAddrChanged, Interface: "eth0", Addr: addr})
	h.awaitConnected(t, true)

	h.resolver.setFailing(true)
	h.emit(t, Event{Kind: EventLinkChanged, Interface: "eth0"})
	h.awaitConnected(t, false)
}

func TestHandleEvent_UnrecognizedAndForeignEventsIgnored(t *testing.T) {
	h := startWatcher(t, 1)
	h.awaitPhase(t, Monitoring)

	// Neither of these reaches the resolver, so handling is confirmed
	// through a recognized follow-up event.
	h.registry.events <- Event{Kind: EventUnrecognized}
	h.registry.events <- Event{Kind: EventAddrChanged, Interface: "wlan1"}

	addr := netip.MustParseAddr("10.1.1.1")
	h.registry.setAddr(addr)
	h.emit(t, Event{Kind: EventAddrChanged, Interface: "eth0", Addr: addr})

	if len(h.resolver.done) != 0 {
		t.Fatal("dropped events must not trigger probes")
	}
	if got := h.syncer.count(); got != 1 {
		t.Fatalf("Sync calls = %d, want 1 (recognized event only)", got)
	}
}
