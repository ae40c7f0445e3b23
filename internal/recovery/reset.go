// Package recovery implements the device's terminal answer to
// non-transient bootstrap failures: wipe local state and reboot into
// the unconfigured default. Destructive and operator-visible on
// purpose — an endless retry loop against a bad password never heals.
package recovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Wiper clears the persistent configuration store.
// Production: *settings.Store
type Wiper interface {
	Wipe(ctx context.Context) error
}

// Rebooter restarts the device. On hardware Reboot does not return.
type Rebooter interface {
	Reboot() error
}

type Resetter struct {
	DataRoot string
	Wiper    Wiper
	Rebooter Rebooter
}

// New returns a Resetter using the platform rebooter.
func New(dataRoot string, wiper Wiper) *Resetter {
	return &Resetter{DataRoot: dataRoot, Wiper: wiper, Rebooter: platformRebooter{}}
}

// FactoryReset wipes the settings store and the data root, then
// reboots. Wipe failures are logged but do not stop the reset: a
// partially wiped device that reboots is still better than one stuck
// in a bad configuration.
func (r *Resetter) FactoryReset(ctx context.Context, reason error) error {
	slog.Error("factory reset", "reason", reason)

	if r.Wiper != nil {
		if err := r.Wiper.Wipe(ctx); err != nil {
			slog.Warn("settings wipe failed", "err", err)
		}
	}
	if r.DataRoot != "" {
		if err := os.RemoveAll(r.DataRoot); err != nil {
			slog.Warn("data root wipe failed", "path", r.DataRoot, "err", err)
		}
	}

	if err := r.Rebooter.Reboot(); err != nil {
		return fmt.Errorf("reboot after factory reset: %w", err)
	}
	return nil
}
