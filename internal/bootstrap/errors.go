package bootstrap

// MissingCredentialError names the first credential field found absent
// at bootstrap time. It is never propagated as a crash: the orchestrator
// converts it into a recovery invocation.
type MissingCredentialError struct {
	Field string
}

func (e *MissingCredentialError) Error() string {
	return "missing credential " + e.Field
}

// AuthorizationError wraps a rejection from the authorization provider.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "authorization failed: " + e.Reason
}
