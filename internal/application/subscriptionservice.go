package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/akulinin/subman/internal/domain/model"
	"github.com/akulinin/subman/internal/domain/port/driven"
)

// ObjectStoreFactory builds an object-storage client for a valid credential.
// The composition root wires it to the Drive adapter; tests substitute a mock.
type ObjectStoreFactory func(ctx context.Context, tok *oauth2.Token) (driven.ObjectStore, error)

const (
	scratchRemoveAttempts = 3
	scratchRemoveDelay    = 500 * time.Millisecond
)

// SubscriptionService orchestrates the credential lifecycle, the remote
// object store, and the local registry for every subscription operation.
// Each operation ensures a valid credential first; registry writes happen
// only after the remote mutation succeeded.
type SubscriptionService struct {
	auth       *AuthService
	registry   driven.RegistryStore
	newStore   ObjectStoreFactory
	scratchDir string
	filePrefix string
}

// NewSubscriptionService creates a SubscriptionService. scratchDir is where
// upload staging files are written; filePrefix is prepended to remote file
// names.
func NewSubscriptionService(
	auth *AuthService,
	registry driven.RegistryStore,
	newStore ObjectStoreFactory,
	scratchDir string,
	filePrefix string,
) *SubscriptionService {
	return &SubscriptionService{
		auth:       auth,
		registry:   registry,
		newStore:   newStore,
		scratchDir: scratchDir,
		filePrefix: filePrefix,
	}
}

// ReplaceConfigs replaces the registry's configuration lines wholesale.
// Edits are never merged line-by-line.
func (s *SubscriptionService) ReplaceConfigs(lines []string) (int, error) {
	reg, err := s.registry.Load()
	if err != nil {
		return 0, err
	}
	reg.Configs = lines
	if err := s.registry.Save(reg); err != nil {
		return 0, fmt.Errorf("persist configs: %w", err)
	}
	slog.Info("configs replaced", "count", len(lines))
	return len(lines), nil
}

// Create publishes the current ConfigSet as a new remote file for the given
// client and records the subscription. The returned warning is non-empty
// when the remote mutation succeeded but the registry could not be
// persisted.
func (s *SubscriptionService) Create(ctx context.Context, sess *Session, clientName string) (model.Subscription, string, error) {
	name := strings.TrimSpace(clientName)
	if name == "" {
		return model.Subscription{}, "", &ValidationError{Field: "client name", Reason: "must not be empty"}
	}

	reg, err := s.registry.Load()
	if err != nil {
		return model.Subscription{}, "", err
	}
	if len(reg.Configs) == 0 {
		return model.Subscription{}, "", ErrNoConfigs
	}

	store, err := s.objectStore(ctx, sess)
	if err != nil {
		return model.Subscription{}, "", err
	}

	remoteName := s.remoteFileName(name)
	scratch, err := s.stage(remoteName, reg.Configs)
	if err != nil {
		return model.Subscription{}, "", err
	}
	defer removeScratch(scratch)

	f, err := os.Open(scratch)
	if err != nil {
		return model.Subscription{}, "", fmt.Errorf("open scratch file: %w", err)
	}
	remoteID, err := store.Create(ctx, remoteName, f)
	closeErr := f.Close()
	if err != nil {
		return model.Subscription{}, "", &RemoteError{Op: "create file", Err: err}
	}
	if closeErr != nil {
		slog.Warn("closing scratch file", "path", scratch, "error", closeErr)
	}

	if err := store.GrantPublicRead(ctx, remoteID); err != nil {
		return model.Subscription{}, "", &RemoteError{Op: "grant public read", Err: err}
	}

	sub := model.Subscription{
		ID:           uuid.NewString(),
		Name:         name,
		CreatedAt:    time.Now().UTC(),
		RemoteFileID: remoteID,
		DownloadURL:  store.DownloadURL(remoteID),
	}
	reg.Subscriptions = append(reg.Subscriptions, sub)

	warning := ""
	if err := s.registry.Save(reg); err != nil {
		slog.Error("registry persist failed after remote create", "subscription_id", sub.ID, "error", err)
		warning = "subscription published, but saving the local registry failed"
	}
	slog.Info("subscription created", "id", sub.ID, "name", sub.Name, "remote_id", remoteID)
	return sub, warning, nil
}

// RefreshAll re-uploads the current ConfigSet to every subscription's
// existing remote file; download URLs never change. The first remote failure
// aborts the batch. Returns the number of subscriptions updated.
func (s *SubscriptionService) RefreshAll(ctx context.Context, sess *Session) (int, error) {
	reg, err := s.registry.Load()
	if err != nil {
		return 0, err
	}
	if len(reg.Configs) == 0 {
		return 0, ErrNoConfigs
	}
	if len(reg.Subscriptions) == 0 {
		return 0, ErrNoSubscriptions
	}

	store, err := s.objectStore(ctx, sess)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, sub := range reg.Subscriptions {
		if err := s.updateOne(ctx, store, sub, reg.Configs); err != nil {
			return count, err
		}
		count++
	}
	slog.Info("subscriptions refreshed", "count", count)
	return count, nil
}

// Delete removes the subscription's remote object and then its local record.
// The ordering is deliberate: a crash between the two steps leaves a local
// record pointing at nothing, which Reconcile prunes; the inverse ordering
// would leak the remote object.
func (s *SubscriptionService) Delete(ctx context.Context, sess *Session, id string) (model.Subscription, string, error) {
	reg, err := s.registry.Load()
	if err != nil {
		return model.Subscription{}, "", err
	}
	sub, ok := reg.FindSubscription(id)
	if !ok {
		return model.Subscription{}, "", driven.ErrSubscriptionNotFound
	}

	store, err := s.objectStore(ctx, sess)
	if err != nil {
		return model.Subscription{}, "", err
	}

	if err := store.Delete(ctx, sub.RemoteFileID); err != nil {
		return model.Subscription{}, "", &RemoteError{Op: "delete file", Err: err}
	}

	reg.RemoveSubscription(id)
	warning := ""
	if err := s.registry.Save(reg); err != nil {
		slog.Error("registry persist failed after remote delete", "subscription_id", id, "error", err)
		warning = "remote file deleted, but saving the local registry failed"
	}
	slog.Info("subscription deleted", "id", sub.ID, "name", sub.Name, "remote_id", sub.RemoteFileID)
	return sub, warning, nil
}

// Reconcile is the startup consistency pass: every local record whose remote
// object no longer exists is pruned. It runs only when a usable credential
// is already stored; it never starts an interactive flow.
func (s *SubscriptionService) Reconcile(ctx context.Context) error {
	tok, err := s.auth.EnsureStored(ctx)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	if tok == nil {
		slog.Info("reconciliation skipped, no stored credential")
		return nil
	}

	store, err := s.newStore(ctx, tok)
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}
	reg, err := s.registry.Load()
	if err != nil {
		return fmt.Errorf("reconcile: %w", err)
	}

	kept := make([]model.Subscription, 0, len(reg.Subscriptions))
	pruned := 0
	for _, sub := range reg.Subscriptions {
		exists, err := store.Exists(ctx, sub.RemoteFileID)
		if err != nil {
			return fmt.Errorf("reconcile stat %q: %w", sub.RemoteFileID, err)
		}
		if !exists {
			slog.Warn("pruning dangling subscription record", "id", sub.ID, "name", sub.Name, "remote_id", sub.RemoteFileID)
			pruned++
			continue
		}
		kept = append(kept, sub)
	}

	if pruned == 0 {
		return nil
	}
	reg.Subscriptions = kept
	if err := s.registry.Save(reg); err != nil {
		return fmt.Errorf("reconcile persist: %w", err)
	}
	slog.Info("reconciliation pruned dangling records", "count", pruned)
	return nil
}

// objectStore ensures a valid credential and builds the object-storage
// client for it.
func (s *SubscriptionService) objectStore(ctx context.Context, sess *Session) (driven.ObjectStore, error) {
	tok, err := s.auth.Ensure(ctx, sess)
	if err != nil {
		return nil, err
	}
	store, err := s.newStore(ctx, tok)
	if err != nil {
		return nil, fmt.Errorf("create object store: %w", err)
	}
	return store, nil
}

func (s *SubscriptionService) updateOne(ctx context.Context, store driven.ObjectStore, sub model.Subscription, configs []string) error {
	scratch, err := s.stage(fmt.Sprintf("scratch_%s.txt", sub.ID), configs)
	if err != nil {
		return err
	}
	defer removeScratch(scratch)

	f, err := os.Open(scratch)
	if err != nil {
		return fmt.Errorf("open scratch file: %w", err)
	}
	err = store.Update(ctx, sub.RemoteFileID, f)
	closeErr := f.Close()
	if err != nil {
		return &RemoteError{Op: fmt.Sprintf("update file for %q", sub.Name), Err: err}
	}
	if closeErr != nil {
		slog.Warn("closing scratch file", "path", scratch, "error", closeErr)
	}
	return nil
}

// remoteFileName derives the remote file name from the client name plus an
// 8-hex uniqueness suffix. The suffix avoids collisions only; identity is
// the subscription id.
func (s *SubscriptionService) remoteFileName(clientName string) string {
	slug := strings.ToLower(strings.ReplaceAll(clientName, " ", "_"))
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s.txt", s.filePrefix, slug, suffix)
}

// stage writes the newline-joined ConfigSet to a scratch file and returns
// its path.
func (s *SubscriptionService) stage(name string, configs []string) (string, error) {
	path := filepath.Join(s.scratchDir, name)
	if err := os.WriteFile(path, []byte(strings.Join(configs, "\n")), 0o644); err != nil {
		return "", fmt.Errorf("stage upload file: %w", err)
	}
	return path, nil
}

// removeScratch deletes the staging file with bounded retry to tolerate
// transient file-lock contention on the host. Failure is logged, not fatal.
func removeScratch(path string) {
	for attempt := 1; attempt <= scratchRemoveAttempts; attempt++ {
		err := os.Remove(path)
		if err == nil || errors.Is(err, os.ErrNotExist) {
			return
		}
		if attempt == scratchRemoveAttempts {
			slog.Warn("scratch file not removed", "path", path, "error", err)
			return
		}
		time.Sleep(scratchRemoveDelay)
	}
}
