// Package bootstrap gates the authenticated subsystem group behind a
// successful credential exchange. Credential and authorization failures
// are non-transient here: retrying a bad password or an unreachable
// server never self-heals, so the only productive action is a factory
// reset back to a known-good state for the operator to reconfigure.
package bootstrap

import (
	"context"
	"log/slog"
	"sync"

	"farmd/internal/check"
)

type credentials struct {
	email    string
	password string
	server   string
}

type Bootstrap struct {
	Credentials CredentialSource
	Authorizer  Authorizer
	Recovery    Recovery
	Group       Group

	initOnce  sync.Once
	closeOnce sync.Once
	started   chan struct{}
}

func (b *Bootstrap) Name() string { return "bootstrap" }

// Started closes once the bootstrap outcome is known: the authenticated
// group is starting, or recovery has been triggered. The supervision
// tree gates the post-auth phase on this signal.
func (b *Bootstrap) Started() <-chan struct{} {
	b.initOnce.Do(func() { b.started = make(chan struct{}) })
	return b.started
}

func (b *Bootstrap) markStarted() {
	b.initOnce.Do(func() { b.started = make(chan struct{}) })
	b.closeOnce.Do(func() { close(b.started) })
}

// Run reads credentials, authorizes, and starts the authenticated
// group. A missing credential or a provider rejection triggers
// recovery exactly once with the cause as the diagnostic payload; no
// local retry in either case.
func (b *Bootstrap) Run(ctx context.Context) error {
	check.Assert(b.Credentials != nil, "bootstrap.Run: Credentials must not be nil")
	check.Assert(b.Authorizer != nil, "bootstrap.Run: Authorizer must not be nil")
	check.Assert(b.Recovery != nil, "bootstrap.Run: Recovery must not be nil")
	check.Assert(b.Group != nil, "bootstrap.Run: Group must not be nil")
	defer b.markStarted()

	creds, err := b.readCredentials(ctx)
	if err != nil {
		return err
	}
	if creds == nil {
		// A field was absent; recovery has been invoked.
		return nil
	}

	// The provider bounds this call; no extra timeout, no retry.
	token, err := b.Authorizer.Authorize(ctx, creds.email, creds.password, creds.server)
	if err != nil {
		return b.recover(ctx, &AuthorizationError{Reason: err.Error()})
	}

	slog.Info("device authorized, starting authenticated subsystems")
	b.markStarted()
	return b.Group.Start(ctx, token)
}

// readCredentials returns nil credentials (and a nil error) when a
// field was absent and recovery was triggered. Store read failures are
// returned as errors: they are subsystem crashes, not bad credentials.
func (b *Bootstrap) readCredentials(ctx context.Context) (*credentials, error) {
	var creds credentials
	for _, field := range []struct {
		name string
		dst  *string
	}{
		{FieldEmail, &creds.email},
		{FieldPassword, &creds.password},
		{FieldServer, &creds.server},
	} {
		value, present, err := b.Credentials.Get(ctx, field.name)
		if err != nil {
			return nil, err
		}
		if !present || value == "" {
			return nil, b.recover(ctx, &MissingCredentialError{Field: field.name})
		}
		*field.dst = value
	}
	return &creds, nil
}

func (b *Bootstrap) recover(ctx context.Context, reason error) error {
	slog.Error("bootstrap failed, invoking factory reset", "reason", reason)
	b.markStarted()
	return b.Recovery.FactoryReset(ctx, reason)
}
