package bootstrap

import "context"

// Token is the opaque session token returned by the authorization
// provider. It is held only for the lifetime of the authenticated
// group and never persisted.
type Token string

// Credential fields, read in this order; the first absent one names
// the failure.
const (
	FieldEmail    = "email"
	FieldPassword = "password"
	FieldServer   = "server"
)

// CredentialSource reads stored credentials by field.
// Production: adapter over the settings store
// Testing: map-backed fake
type CredentialSource interface {
	Get(ctx context.Context, field string) (string, bool, error)
}

// Authorizer exchanges credentials for a session token.
// Production: HTTPAuthorizer
// Testing: scripted fake
type Authorizer interface {
	Authorize(ctx context.Context, email, password, server string) (Token, error)
}

// Recovery performs the device's factory reset. On hardware it does
// not return: the device reboots into its default state.
type Recovery interface {
	FactoryReset(ctx context.Context, reason error) error
}

// Group starts the authenticated subsystem set with the session token.
// The group carries its own all-or-nothing restart policy.
type Group interface {
	Start(ctx context.Context, token Token) error
}
