package driven

import "golang.org/x/oauth2"

// CredentialStore defines the driven port for the delegated-access credential
// record. The record never outlives a known-dead credential: callers purge on
// refresh rejection, and the adapter itself purges a corrupt record.
type CredentialStore interface {
	// Load returns the persisted token, or (nil, nil) when none is stored.
	// A corrupt record is purged and reported as absent rather than failing
	// the caller.
	Load() (*oauth2.Token, error)

	// Save persists the token atomically with owner-only permissions.
	Save(tok *oauth2.Token) error

	// Purge removes the persisted record. Purging an absent record is a no-op.
	Purge() error
}
