// Package drive implements the ObjectStore port using the Google Drive v3 API.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/akulinin/subman/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ObjectStore = (*Store)(nil)

// downloadURLFormat is the public direct-download form for a Drive file that
// has been granted anyone-reader access.
const downloadURLFormat = "https://drive.google.com/uc?id=%s&export=download"

// Store implements the driven.ObjectStore port against Google Drive.
// Uploaded files are plain text; public access is granted separately via
// GrantPublicRead because Drive permissions are a distinct resource.
type Store struct {
	svc *drivev3.Service
}

// NewStore creates a Store using the given authenticated HTTP client. The
// client must carry drive.file-scoped credentials; token refresh is the
// client's concern, not the adapter's.
func NewStore(ctx context.Context, httpClient *http.Client) (*Store, error) {
	svc, err := drivev3.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Store{svc: svc}, nil
}

// NewStoreWithEndpoint creates a Store pointed at a custom API base URL.
// This constructor is intended for testing against an httptest server.
func NewStoreWithEndpoint(ctx context.Context, httpClient *http.Client, endpoint string) (*Store, error) {
	svc, err := drivev3.NewService(ctx, option.WithHTTPClient(httpClient), option.WithEndpoint(endpoint))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return &Store{svc: svc}, nil
}

// Create uploads a new file and returns the Drive file id.
func (s *Store) Create(ctx context.Context, name string, content io.Reader) (string, error) {
	meta := &drivev3.File{
		Name:    name,
		Parents: []string{"root"},
	}
	f, err := s.svc.Files.Create(meta).Media(content).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("drive create %q: %w", name, err)
	}
	return f.Id, nil
}

// Update replaces the file's contents in place; the file id stays the same.
func (s *Store) Update(ctx context.Context, remoteID string, content io.Reader) error {
	_, err := s.svc.Files.Update(remoteID, &drivev3.File{}).Media(content).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("drive update %q: %w", remoteID, err)
	}
	return nil
}

// Delete removes the file by id.
func (s *Store) Delete(ctx context.Context, remoteID string) error {
	if err := s.svc.Files.Delete(remoteID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("drive delete %q: %w", remoteID, err)
	}
	return nil
}

// GrantPublicRead attaches an anyone-reader permission to the file.
func (s *Store) GrantPublicRead(ctx context.Context, remoteID string) error {
	perm := &drivev3.Permission{
		Type: "anyone",
		Role: "reader",
	}
	_, err := s.svc.Permissions.Create(remoteID, perm).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("drive grant public read %q: %w", remoteID, err)
	}
	return nil
}

// Exists reports whether the file is still present. A 404 from the API is a
// definitive "gone"; any other failure is returned to the caller.
func (s *Store) Exists(ctx context.Context, remoteID string) (bool, error) {
	_, err := s.svc.Files.Get(remoteID).Fields("id").Context(ctx).Do()
	if err == nil {
		return true, nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("drive stat %q: %w", remoteID, err)
}

// DownloadURL returns the public direct-download URL for the file.
func (s *Store) DownloadURL(remoteID string) string {
	return fmt.Sprintf(downloadURLFormat, remoteID)
}
