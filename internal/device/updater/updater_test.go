package updater

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeApplier struct {
	mu        sync.Mutex
	manifests []Manifest
	err       error
}

func (f *fakeApplier) Apply(_ context.Context, m Manifest) error {
	f.mu.Lock()
	f.manifests = append(f.manifests, m)
	f.mu.Unlock()
	return f.err
}

func (f *fakeApplier) applied() []Manifest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Manifest(nil), f.manifests...)
}

func runUntilCancel(t *testing.T, c *Checker, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	if err := c.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v, want deadline exceeded", err)
	}
}

func TestChecker_AppliesNewerVersion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"version":"1.4.2","url":"https://updates.example/farmd-1.4.2.img"}`))
	}))
	defer srv.Close()

	applier := &fakeApplier{}
	c := &Checker{
		Endpoint: srv.URL,
		Version:  "1.4.1",
		Interval: time.Hour,
		Applier:  applier,
	}
	runUntilCancel(t, c, 100*time.Millisecond)

	got := applier.applied()
	if len(got) != 1 {
		t.Fatalf("applied %d manifests, want 1", len(got))
	}
	if got[0].Version != "1.4.2" || got[0].URL == "" {
		t.Errorf("applied manifest = %+v", got[0])
	}
}

func TestChecker_SameVersionNotApplied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"version":"1.4.1"}`))
	}))
	defer srv.Close()

	applier := &fakeApplier{}
	c := &Checker{Endpoint: srv.URL, Version: "1.4.1", Interval: time.Hour, Applier: applier}
	runUntilCancel(t, c, 50*time.Millisecond)

	if got := applier.applied(); len(got) != 0 {
		t.Fatalf("applied %d manifests, want 0", len(got))
	}
}

func TestChecker_EndpointFailureIsBestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := &Checker{Endpoint: srv.URL, Version: "1.4.1", Interval: time.Hour}
	runUntilCancel(t, c, 50*time.Millisecond)
}
