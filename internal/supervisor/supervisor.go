// Package supervisor is the device's supervision tree. Subsystems start
// in three strictly ordered phases (pre-auth, init strategy, post-auth)
// and run under a one-for-all restart policy: phases have hard ordering
// dependencies, so when one child dies the only safe recovery is to
// tear everything down and boot the whole sequence again.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// defaultRestartDelay is 2s: long enough to let hardware settle
	// after a teardown, short enough that a robot in the field is not
	// dark for long.
	defaultRestartDelay = 2 * time.Second
	// defaultMaxRestarts is 5 consecutive whole-tree failures before
	// the tree gives up and surfaces the error to the process.
	defaultMaxRestarts = 5
)

type childExit struct {
	name string
	err  error
}

// Tree supervises the device's subsystems.
type Tree struct {
	PreAuth  []Subsystem
	Init     []Subsystem
	PostAuth []Subsystem

	Tracer       trace.Tracer // optional boot-phase spans
	RestartDelay time.Duration
	MaxRestarts  int

	mu    sync.RWMutex
	phase BootPhase
}

// Phase reports the current boot phase.
func (t *Tree) Phase() BootPhase {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.phase == 0 {
		return BootIdle
	}
	return t.phase
}

func (t *Tree) transition(to BootPhase) {
	t.mu.Lock()
	if t.phase == 0 {
		t.phase = BootIdle
	}
	t.phase = t.phase.Transition(to)
	t.mu.Unlock()
}

// Run boots the tree and supervises it until ctx is cancelled, every
// child has completed cleanly, or the restart budget is exhausted.
func (t *Tree) Run(ctx context.Context) error {
	delay := t.RestartDelay
	if delay <= 0 {
		delay = defaultRestartDelay
	}
	maxRestarts := t.MaxRestarts
	if maxRestarts <= 0 {
		maxRestarts = defaultMaxRestarts
	}

	failures := 0
	for {
		err := t.runOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err == nil {
			return nil
		}

		failures++
		if failures >= maxRestarts {
			return fmt.Errorf("supervision tree giving up after %d restarts: %w", failures, err)
		}
		slog.Warn("restarting supervision tree", "err", err, "failures", failures)
		t.transition(BootRestarting)
		if !sleepContext(ctx, delay) {
			return ctx.Err()
		}
	}
}

// runOnce performs one full boot sequence and supervises the children
// until the first abnormal termination, which tears everything down.
func (t *Tree) runOnce(ctx context.Context) error {
	treeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := len(t.PreAuth) + len(t.Init) + len(t.PostAuth)
	exits := make(chan childExit, total)
	running := 0

	phases := []struct {
		boot BootPhase
		name string
		subs []Subsystem
	}{
		{BootPreAuth, "boot.pre_auth", t.PreAuth},
		{BootInit, "boot.init", t.Init},
		{BootPostAuth, "boot.post_auth", t.PostAuth},
	}
	for _, phase := range phases {
		t.transition(phase.boot)
		if err := t.startPhase(treeCtx, phase.name, phase.subs, exits, &running); err != nil {
			cancel()
			drain(exits, running)
			return err
		}
	}
	t.transition(BootRunning)
	slog.Info("all subsystems started", "count", total)

	for running > 0 {
		select {
		case <-treeCtx.Done():
			drain(exits, running)
			return treeCtx.Err()
		case exit := <-exits:
			running--
			if abnormal(exit.err) {
				slog.Error("subsystem terminated abnormally", "name", exit.name, "err", exit.err)
				cancel()
				drain(exits, running)
				return fmt.Errorf("subsystem %s: %w", exit.name, exit.err)
			}
			slog.Info("subsystem completed", "name", exit.name)
		}
	}
	return nil
}

// startPhase launches a phase's subsystems in declared order, waiting
// for each one's readiness point before the next. The phase — and with
// it the whole boot — fails on any abnormal exit observed meanwhile.
func (t *Tree) startPhase(ctx context.Context, name string, subs []Subsystem, exits chan childExit, running *int) error {
	var span trace.Span
	if t.Tracer != nil {
		_, span = t.Tracer.Start(ctx, name)
		defer span.End()
	}

	for _, sub := range subs {
		launch(ctx, sub, exits)
		*running++
		if err := awaitStarted(ctx, sub, exits, running); err != nil {
			if span != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		}
	}
	return nil
}

func launch(ctx context.Context, sub Subsystem, exits chan<- childExit) {
	slog.Info("starting subsystem", "name", sub.Name())
	go func() {
		exits <- childExit{name: sub.Name(), err: runChild(ctx, sub)}
	}()
}

// runChild converts an unhandled panic into a termination signal; the
// tree itself must never come down with a child.
func runChild(ctx context.Context, sub Subsystem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return sub.Run(ctx)
}

// awaitStarted blocks until sub reports readiness (or, for subsystems
// without a readiness point, immediately). Clean exits observed while
// waiting are tolerated — a readiness-check step may simply run to
// completion — but an abnormal one aborts the boot.
func awaitStarted(ctx context.Context, sub Subsystem, exits chan childExit, running *int) error {
	notifier, ok := sub.(StartNotifier)
	if !ok {
		return nil
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-notifier.Started():
			return nil
		case exit := <-exits:
			*running--
			if abnormal(exit.err) {
				return fmt.Errorf("subsystem %s: %w", exit.name, exit.err)
			}
			if exit.name == sub.Name() {
				return nil
			}
		}
	}
}

// abnormal reports whether a child exit should trigger one-for-all
// teardown. Clean completion and cancellation are normal.
func abnormal(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func drain(exits chan childExit, running int) {
	for ; running > 0; running-- {
		exit := <-exits
		if abnormal(exit.err) {
			slog.Debug("subsystem exit during teardown", "name", exit.name, "err", exit.err)
		}
	}
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
