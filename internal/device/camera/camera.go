// Package camera keeps the external capture pipeline alive. The
// pipeline itself (encoder, streamer) is a separate process; this
// subsystem only owns its lifecycle.
package camera

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Pipeline runs the capture process for its lifetime.
//
// Production: ExecPipeline spawning the configured command.
// Testing: fake recording runs.
type Pipeline interface {
	Run(ctx context.Context) error
}

// Capture supervises one capture pipeline. A pipeline that dies takes
// the subsystem down with its error; restart policy lives in the
// supervision tree, not here.
type Capture struct {
	Pipeline Pipeline
}

func (c *Capture) Name() string { return "camera" }

func (c *Capture) Run(ctx context.Context) error {
	log := slog.With("component", "camera")
	log.Info("starting capture pipeline")

	err := c.Pipeline.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return fmt.Errorf("capture pipeline: %w", err)
	}
	return errors.New("capture pipeline exited unexpectedly")
}
