// Package leds drives the chassis indicator LEDs so a person standing
// next to the robot can read its state without a terminal.
package leds

import (
	"context"
	"log/slog"
	"time"
)

const defaultPollInterval = 500 * time.Millisecond

// Status is the coarse device state reflected on the indicators.
type Status uint8

const (
	StatusBooting Status = iota + 1
	StatusOnline
	StatusFault
)

func (s Status) String() string {
	switch s {
	case StatusBooting:
		return "booting"
	case StatusOnline:
		return "online"
	case StatusFault:
		return "fault"
	default:
		return "unknown"
	}
}

// Pin drives a single output line.
//
// Production: SysfsPin over /sys/class/gpio.
// Testing: fake recording writes.
type Pin interface {
	Set(on bool) error
}

// Driver polls a status source and mirrors it on the power, network
// and fault LEDs. All pins are optional; a nil pin is skipped.
type Driver struct {
	Power   Pin
	Network Pin
	Fault   Pin

	// Source reports the status to display. Polled; must be safe for
	// concurrent use.
	Source       func() Status
	PollInterval time.Duration

	log *slog.Logger
}

func (d *Driver) Name() string { return "leds" }

// Run shows booting immediately, then mirrors Source until cancelled.
// On shutdown all LEDs are switched off.
func (d *Driver) Run(ctx context.Context) error {
	d.log = slog.With("component", "leds")

	interval := d.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	last := StatusBooting
	d.apply(last)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			d.allOff()
			return ctx.Err()
		case <-ticker.C:
			if d.Source == nil {
				continue
			}
			if status := d.Source(); status != last {
				d.log.Debug("status changed", "from", last, "to", status)
				last = status
				d.apply(status)
			}
		}
	}
}

func (d *Driver) apply(status Status) {
	d.set(d.Power, true)
	d.set(d.Network, status == StatusOnline)
	d.set(d.Fault, status == StatusFault)
}

func (d *Driver) allOff() {
	d.set(d.Power, false)
	d.set(d.Network, false)
	d.set(d.Fault, false)
}

func (d *Driver) set(pin Pin, on bool) {
	if pin == nil {
		return
	}
	if err := pin.Set(on); err != nil {
		d.log.Warn("led write failed", "err", err)
	}
}
