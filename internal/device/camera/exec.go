package camera

import (
	"context"
	"fmt"
	"os/exec"

	"farmd/internal/check"
)

// ExecPipeline runs the capture pipeline as a child process. The
// process is killed when ctx is cancelled.
type ExecPipeline struct {
	Command []string
}

func (p ExecPipeline) Run(ctx context.Context) error {
	check.Assert(len(p.Command) > 0, "ExecPipeline.Run: Command must not be empty")

	cmd := exec.CommandContext(ctx, p.Command[0], p.Command[1:]...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w", p.Command[0], err)
	}
	return nil
}
