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
	"golang.org/x/oauth2"

	"github.com/akulinin/subman/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*TokenStore)(nil)

// TokenStore persists the OAuth2 token bundle as a single JSON record with
// owner-only permissions.
type TokenStore struct {
	path string
}

// NewTokenStore creates a TokenStore backed by the given file path.
func NewTokenStore(path string) *TokenStore {
	return &TokenStore{path: path}
}

// Load returns the persisted token, or (nil, nil) when the record is absent.
// An unparseable record is purged and reported as absent so a damaged file
// can never wedge the process; the caller simply re-authorizes.
func (s *TokenStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		slog.Warn("credential file corrupt, purging", "path", s.path, "error", err)
		if rmErr := os.Remove(s.path); rmErr != nil {
			slog.Error("removing corrupt credential file", "path", s.path, "error", rmErr)
		}
		return nil, nil
	}
	return &tok, nil
}

// Save atomically writes the token and restricts the record to the owner.
func (s *TokenStore) Save(tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}

	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := os.Chmod(s.path, 0o600); err != nil {
		return fmt.Errorf("restrict credential file permissions: %w", err)
	}
	return nil
}

// Purge removes the persisted record. Purging an absent record is a no-op.
func (s *TokenStore) Purge() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
