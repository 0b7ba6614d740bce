package application

import (
	"errors"
	"fmt"
)

// Sentinel errors for precondition failures. Callers branch with errors.Is;
// none of these leave any state modified.
var (
	// ErrNoConfigs indicates the registry holds no configuration lines, so
	// there is nothing to publish.
	ErrNoConfigs = errors.New("no configurations available")

	// ErrNoSubscriptions indicates the registry holds no subscriptions to
	// update.
	ErrNoSubscriptions = errors.New("no subscriptions to update")

	// ErrRefreshRejected indicates the refresh token itself was rejected by
	// the provider. The stored credential has already been purged; the only
	// recovery is a fresh authorization flow.
	ErrRefreshRejected = errors.New("credential refresh rejected")

	// ErrAuthSessionExpired indicates a code was submitted with no pending
	// authorization exchange (for example after a process restart). The
	// caller must begin the flow again from scratch.
	ErrAuthSessionExpired = errors.New("authorization session expired")
)

// ValidationError reports user-correctable bad input. The conversation stays
// in the same state so the user can retry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// AuthRequiredError indicates no valid credential is available. It carries
// the authorization URL the operator must visit; the conversation suspends
// into the awaiting-code state until a code is supplied.
type AuthRequiredError struct {
	AuthURL string
}

func (e *AuthRequiredError) Error() string {
	return "authorization required"
}

// RemoteError wraps a failed object-storage call. The registry is never
// modified when a RemoteError is returned: the mutating registry write only
// happens after the remote call succeeds.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s failed: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}
