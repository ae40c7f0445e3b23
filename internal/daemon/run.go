// Package daemon wires the device's subsystems into the supervision
// tree and runs it for the process lifetime.
package daemon

import (
	"context"
	"log/slog"

	"farmd/config"
)

// Run builds the full device runtime from cfg and supervises it until
// ctx is cancelled.
func Run(ctx context.Context, cfg config.Device) error {
	app, err := wire(cfg)
	if err != nil {
		return err
	}
	defer app.close()

	slog.Info("farmd starting", "data_root", cfg.DataRoot, "interfaces", len(cfg.Interfaces))
	return app.tree.Run(ctx)
}
