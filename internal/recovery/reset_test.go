package recovery

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type fakeWiper struct {
	calls int
	err   error
}

func (f *fakeWiper) Wipe(context.Context) error {
	f.calls++
	return f.err
}

type fakeRebooter struct {
	calls int
	err   error
}

func (f *fakeRebooter) Reboot() error {
	f.calls++
	return f.err
}

func TestFactoryReset_WipesAndReboots(t *testing.T) {
	dataRoot := filepath.Join(t.TempDir(), "farmd")
	if err := os.MkdirAll(filepath.Join(dataRoot, "cache"), 0o755); err != nil {
		t.Fatalf("prepare data root: %v", err)
	}

	wiper := &fakeWiper{}
	rebooter := &fakeRebooter{}
	r := &Resetter{DataRoot: dataRoot, Wiper: wiper, Rebooter: rebooter}

	if err := r.FactoryReset(context.Background(), errors.New("bad password")); err != nil {
		t.Fatalf("FactoryReset: %v", err)
	}

	if wiper.calls != 1 {
		t.Errorf("Wipe calls = %d, want 1", wiper.calls)
	}
	if rebooter.calls != 1 {
		t.Errorf("Reboot calls = %d, want 1", rebooter.calls)
	}
	if _, err := os.Stat(dataRoot); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("data root still exists after reset")
	}
}

func TestFactoryReset_WipeFailureStillReboots(t *testing.T) {
	wiper := &fakeWiper{err: errors.New("db locked")}
	rebooter := &fakeRebooter{}
	r := &Resetter{Wiper: wiper, Rebooter: rebooter}

	if err := r.FactoryReset(context.Background(), errors.New("reason")); err != nil {
		t.Fatalf("FactoryReset: %v", err)
	}
	if rebooter.calls != 1 {
		t.Errorf("Reboot calls = %d, want 1", rebooter.calls)
	}
}

func TestFactoryReset_RebootFailureSurfaces(t *testing.T) {
	rebootErr := errors.New("EPERM")
	r := &Resetter{Rebooter: &fakeRebooter{err: rebootErr}}

	if err := r.FactoryReset(context.Background(), errors.New("reason")); !errors.Is(err, rebootErr) {
		t.Fatalf("FactoryReset error = %v, want reboot error", err)
	}
}
