package driven

import (
	"errors"

	"github.com/akulinin/subman/internal/domain/model"
)

// ErrSubscriptionNotFound indicates no subscription record exists for the
// requested id.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// RegistryStore defines the driven port for the local registry snapshot.
// Load bootstraps and persists an empty snapshot when none exists, and
// recovers from a corrupt snapshot by purging it and starting over; neither
// condition fails the caller.
type RegistryStore interface {
	Load() (*model.Registry, error)
	Save(reg *model.Registry) error
}
