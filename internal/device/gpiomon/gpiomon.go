// Package gpiomon watches physical input lines (lid switches, e-stop,
// hopper sensors) and publishes edges to the settings dispatcher so
// interested subsystems can react without touching hardware.
package gpiomon

import (
	"context"
	"log/slog"
	"time"

	"farmd/internal/check"
	"farmd/internal/settings"
)

// defaultPollInterval is 50ms: fast enough for human-speed inputs, far
// from busy-waiting.
const defaultPollInterval = 50 * time.Millisecond

// Reader reads the level of one input line.
//
// Production: SysfsReader over /sys/class/gpio.
// Testing: fake with scripted levels.
type Reader interface {
	Read(pin int) (bool, error)
}

// Events receives edge notifications. Satisfied by
// *settings.Dispatcher.
type Events interface {
	Publish(change settings.Change)
}

// Monitor polls named input pins and publishes a change per edge under
// the key "gpio.<name>" with value "1" or "0".
type Monitor struct {
	Pins         map[string]int
	Reader       Reader
	Events       Events
	PollInterval time.Duration
}

func (m *Monitor) Name() string { return "gpiomon" }

func (m *Monitor) Run(ctx context.Context) error {
	check.Assert(m.Reader != nil, "Monitor.Run: Reader must not be nil")
	check.Assert(m.Events != nil, "Monitor.Run: Events must not be nil")
	log := slog.With("component", "gpiomon")

	interval := m.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	// Take the initial levels silently: only edges are events.
	levels := make(map[string]bool, len(m.Pins))
	for name, pin := range m.Pins {
		level, err := m.Reader.Read(pin)
		if err != nil {
			log.Warn("initial pin read failed", "pin", name, "err", err)
			continue
		}
		levels[name] = level
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.poll(log, levels)
		}
	}
}

func (m *Monitor) poll(log *slog.Logger, levels map[string]bool) {
	for name, pin := range m.Pins {
		level, err := m.Reader.Read(pin)
		if err != nil {
			log.Warn("pin read failed", "pin", name, "err", err)
			continue
		}
		previous, known := levels[name]
		levels[name] = level
		if known && previous == level {
			continue
		}
		value := "0"
		if level {
			value = "1"
		}
		log.Debug("edge", "pin", name, "level", value)
		m.Events.Publish(settings.Change{Key: "gpio." + name, Value: value})
	}
}
