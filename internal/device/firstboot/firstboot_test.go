package firstboot

import (
	"context"
	"errors"
	"testing"

	"farmd/internal/settings"
)

type fakeStore struct {
	values map[string]string
	sets   []string
	getErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{values: map[string]string{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, bool, error) {
	if f.getErr != nil {
		return "", false, f.getErr
	}
	v, ok := f.values[key]
	return v, ok, nil
}

func (f *fakeStore) Set(_ context.Context, key, value string) error {
	f.values[key] = value
	f.sets = append(f.sets, key)
	return nil
}

func TestRun_SeedsFreshDevice(t *testing.T) {
	store := newFakeStore()
	c := &Configurator{
		Store: store,
		Seeds: Seeds{Email: "robot@farm.example", Password: "factory", Server: "https://fleet.example"},
	}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := map[string]string{
		settings.KeyAuthEmail:    "robot@farm.example",
		settings.KeyAuthPassword: "factory",
		settings.KeyAuthServer:   "https://fleet.example",
		settings.KeyProvisioned:  "1",
	}
	for key, value := range want {
		if got := store.values[key]; got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
}

func TestRun_ProvisionedDeviceUntouched(t *testing.T) {
	store := newFakeStore()
	store.values[settings.KeyProvisioned] = "1"
	c := &Configurator{Store: store, Seeds: Seeds{Email: "robot@farm.example"}}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.sets) != 0 {
		t.Errorf("store writes = %v, want none", store.sets)
	}
}

func TestRun_OperatorCredentialsPreserved(t *testing.T) {
	store := newFakeStore()
	store.values[settings.KeyAuthEmail] = "owner@farm.example"
	c := &Configurator{Store: store, Seeds: Seeds{Email: "robot@farm.example", Server: "https://fleet.example"}}

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := store.values[settings.KeyAuthEmail]; got != "owner@farm.example" {
		t.Errorf("auth.email = %q, operator value clobbered", got)
	}
	if got := store.values[settings.KeyAuthServer]; got != "https://fleet.example" {
		t.Errorf("auth.server = %q, want seeded value", got)
	}
}

func TestRun_StoreFailureSurfaces(t *testing.T) {
	storeErr := errors.New("db locked")
	c := &Configurator{Store: &fakeStore{getErr: storeErr}}

	if err := c.Run(context.Background()); !errors.Is(err, storeErr) {
		t.Fatalf("Run = %v, want store error", err)
	}
}

func TestName_CarriesIdentity(t *testing.T) {
	c := &Configurator{Identity: "greenhouse-a"}
	if got := c.Name(); got != "firstboot/greenhouse-a" {
		t.Errorf("Name = %q", got)
	}
}
