// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"io"
)

// ObjectStore defines the driven port for the remote object-storage provider.
// Objects are addressed by an opaque provider-assigned id; the id is stable
// across content updates.
type ObjectStore interface {
	// Create uploads a new object with the given name and returns its id.
	Create(ctx context.Context, name string, content io.Reader) (string, error)

	// Update replaces the contents of an existing object. The id and the
	// public download URL do not change.
	Update(ctx context.Context, remoteID string, content io.Reader) error

	// Delete removes the object by id.
	Delete(ctx context.Context, remoteID string) error

	// GrantPublicRead makes the object readable by anyone holding its URL.
	GrantPublicRead(ctx context.Context, remoteID string) error

	// Exists reports whether the object is still present on the provider.
	Exists(ctx context.Context, remoteID string) (bool, error)

	// DownloadURL returns the public download URL for the object.
	DownloadURL(remoteID string) string
}
