// Package file implements the local persistence ports as JSON snapshot files.
package file

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"

	"github.com/akulinin/subman/internal/domain/model"
	"github.com/akulinin/subman/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RegistryStore = (*RegistryStore)(nil)

// RegistryStore persists the registry as a single human-readable JSON
// snapshot. Missing and corrupt files are both recovered by bootstrapping an
// empty snapshot, so the process never fails to start over registry state.
type RegistryStore struct {
	path string
}

// NewRegistryStore creates a RegistryStore backed by the given file path.
func NewRegistryStore(path string) *RegistryStore {
	return &RegistryStore{path: path}
}

// Load reads the whole snapshot. When the file is missing it bootstraps an
// empty snapshot and persists it. When the file is unparseable it purges the
// file and bootstraps, losing the corrupt state rather than crashing.
func (s *RegistryStore) Load() (*model.Registry, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s.bootstrap()
	}
	if err != nil {
		return nil, fmt.Errorf("read registry file: %w", err)
	}

	var reg model.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		slog.Warn("registry file corrupt, starting over", "path", s.path, "error", err)
		if rmErr := os.Remove(s.path); rmErr != nil {
			slog.Error("removing corrupt registry file", "path", s.path, "error", rmErr)
		}
		return s.bootstrap()
	}

	// Normalize nil slices so callers and the on-disk form always see [].
	if reg.Configs == nil {
		reg.Configs = []string{}
	}
	if reg.Subscriptions == nil {
		reg.Subscriptions = []model.Subscription{}
	}
	return &reg, nil
}

// Save atomically rewrites the whole snapshot.
func (s *RegistryStore) Save(reg *model.Registry) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create registry directory: %w", err)
	}

	data, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write registry file: %w", err)
	}
	return nil
}

func (s *RegistryStore) bootstrap() (*model.Registry, error) {
	reg := model.NewRegistry()
	if err := s.Save(reg); err != nil {
		return nil, fmt.Errorf("bootstrap registry: %w", err)
	}
	return reg, nil
}
