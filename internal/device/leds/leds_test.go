package leds

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePin struct {
	mu     sync.Mutex
	states []bool
	err    error
}

func (f *fakePin) Set(on bool) error {
	f.mu.Lock()
	f.states = append(f.states, on)
	f.mu.Unlock()
	return f.err
}

func (f *fakePin) last() (bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return false, false
	}
	return f.states[len(f.states)-1], true
}

func waitForPin(t *testing.T, pin *fakePin, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, ok := pin.last(); ok && got == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("pin never reached %v", want)
}

func TestDriver_ReflectsStatus(t *testing.T) {
	var mu sync.Mutex
	status := StatusBooting
	setStatus := func(s Status) {
		mu.Lock()
		status = s
		mu.Unlock()
	}

	power, network, fault := &fakePin{}, &fakePin{}, &fakePin{}
	d := &Driver{
		Power:   power,
		Network: network,
		Fault:   fault,
		Source: func() Status {
			mu.Lock()
			defer mu.Unlock()
			return status
		},
		PollInterval: time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitForPin(t, power, true)
	if on, _ := network.last(); on {
		t.Error("network LED on while booting")
	}

	setStatus(StatusOnline)
	waitForPin(t, network, true)
	if on, _ := fault.last(); on {
		t.Error("fault LED on while online")
	}

	setStatus(StatusFault)
	waitForPin(t, fault, true)
	waitForPin(t, network, false)

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, want context.Canceled", err)
	}
	for name, pin := range map[string]*fakePin{"power": power, "network": network, "fault": fault} {
		if on, ok := pin.last(); !ok || on {
			t.Errorf("%s LED not switched off on shutdown", name)
		}
	}
}

func TestDriver_PinErrorDoesNotKillLoop(t *testing.T) {
	fault := &fakePin{err: errors.New("EIO")}
	d := &Driver{
		Fault:        fault,
		Source:       func() Status { return StatusFault },
		PollInterval: time.Millisecond,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := d.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v, want deadline exceeded", err)
	}
}
