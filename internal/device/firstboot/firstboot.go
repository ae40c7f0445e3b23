// Package firstboot provisions a factory-fresh device. It runs once
// per boot during the init phase and completes: on an already
// provisioned device it is a no-op, on a fresh one it seeds the
// settings store from the shipped device config.
package firstboot

import (
	"context"
	"fmt"
	"log/slog"

	"farmd/internal/check"
	"farmd/internal/settings"
)

// Store is the slice of the settings store this subsystem needs.
//
// Production: *settings.Store.
// Testing: in-memory fake.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Seeds are the factory credentials shipped in the device config.
type Seeds struct {
	Email    string
	Password string
	Server   string
}

// Configurator seeds a fresh settings store and marks the device
// provisioned. Identity distinguishes configured init strategies in
// logs and supervision.
type Configurator struct {
	Identity string
	Store    Store
	Seeds    Seeds
}

func (c *Configurator) Name() string {
	if c.Identity == "" {
		return "firstboot"
	}
	return "firstboot/" + c.Identity
}

func (c *Configurator) Run(ctx context.Context) error {
	check.Assert(c.Store != nil, "Configurator.Run: Store must not be nil")
	log := slog.With("component", c.Name())

	_, provisioned, err := c.Store.Get(ctx, settings.KeyProvisioned)
	if err != nil {
		return fmt.Errorf("read provisioning state: %w", err)
	}
	if provisioned {
		log.Debug("device already provisioned")
		return nil
	}

	seeded := 0
	for _, field := range []struct {
		key   string
		value string
	}{
		{settings.KeyAuthEmail, c.Seeds.Email},
		{settings.KeyAuthPassword, c.Seeds.Password},
		{settings.KeyAuthServer, c.Seeds.Server},
	} {
		if field.value == "" {
			continue
		}
		// Never clobber credentials an operator set by hand.
		if _, present, err := c.Store.Get(ctx, field.key); err != nil {
			return fmt.Errorf("read %s: %w", field.key, err)
		} else if present {
			continue
		}
		if err := c.Store.Set(ctx, field.key, field.value); err != nil {
			return fmt.Errorf("seed %s: %w", field.key, err)
		}
		seeded++
	}

	if err := c.Store.Set(ctx, settings.KeyProvisioned, "1"); err != nil {
		return fmt.Errorf("mark provisioned: %w", err)
	}
	log.Info("device provisioned", "seeded", seeded)
	return nil
}
