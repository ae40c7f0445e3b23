// Package updater periodically checks the fleet update endpoint for a
// newer firmware build. Checks are best-effort: an unreachable endpoint
// is logged and retried at the next tick, never escalated.
package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"farmd/internal/check"
)

const (
	// defaultInterval is 1h: update rollouts are not latency-sensitive
	// and the fleet endpoint should not be hammered.
	defaultInterval = time.Hour

	maxManifestBytes = 1 << 16
)

// Manifest is the update endpoint's response.
type Manifest struct {
	Version string `json:"version"`
	URL     string `json:"url"`
}

// Applier installs an available update.
//
// Production: platform-specific image installer.
// Testing: fake recording manifests.
type Applier interface {
	Apply(ctx context.Context, m Manifest) error
}

// Checker polls Endpoint and hands newer versions to Applier. With a
// nil Applier available updates are only logged.
type Checker struct {
	Endpoint string
	Version  string // running build
	Interval time.Duration
	Client   *http.Client
	Applier  Applier

	log *slog.Logger
}

func (c *Checker) Name() string { return "updater" }

func (c *Checker) Run(ctx context.Context) error {
	check.Assert(c.Endpoint != "", "Checker.Run: Endpoint must not be empty")
	c.log = slog.With("component", "updater")

	interval := c.Interval
	if interval <= 0 {
		interval = defaultInterval
	}

	c.checkOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.checkOnce(ctx)
		}
	}
}

func (c *Checker) checkOnce(ctx context.Context) {
	manifest, err := c.fetch(ctx)
	if err != nil {
		c.log.Warn("update check failed", "err", err)
		return
	}
	if manifest.Version == "" || manifest.Version == c.Version {
		return
	}

	c.log.Info("update available", "current", c.Version, "available", manifest.Version)
	if c.Applier == nil {
		return
	}
	if err := c.Applier.Apply(ctx, manifest); err != nil {
		c.log.Warn("update apply failed", "version", manifest.Version, "err", err)
	}
}

func (c *Checker) fetch(ctx context.Context) (Manifest, error) {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return Manifest{}, fmt.Errorf("build update request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Manifest{}, fmt.Errorf("fetch update manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Manifest{}, fmt.Errorf("update endpoint returned %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return Manifest{}, fmt.Errorf("read update manifest: %w", err)
	}
	var manifest Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("decode update manifest: %w", err)
	}
	return manifest, nil
}
