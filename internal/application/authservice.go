package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/akulinin/subman/internal/domain/port/driven"
)

// LoadOAuthConfig reads an installed-app client secrets file and returns the
// OAuth2 config for the given scopes.
func LoadOAuthConfig(path string, scopes ...string) (*oauth2.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client secrets %q: %w", path, err)
	}
	cfg, err := google.ConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse client secrets %q: %w", path, err)
	}
	return cfg, nil
}

// AuthService owns the delegated-access credential lifecycle: loading and
// validating the stored token, refreshing it, and driving the interactive
// authorization exchange when no usable credential exists.
//
// The flow is a small state machine per session: Begin moves the session's
// exchange context to pending (awaiting a code), SubmitCode either completes
// it, retries it, or re-issues a Begin when the exchanged token cannot
// survive a restart.
type AuthService struct {
	cfg   *oauth2.Config
	store driven.CredentialStore
}

// NewAuthService creates an AuthService over the given OAuth2 config and
// credential store.
func NewAuthService(cfg *oauth2.Config, store driven.CredentialStore) *AuthService {
	return &AuthService{cfg: cfg, store: store}
}

// Valid reports whether the token can still produce a usable access token:
// either it has not expired, or it carries a refresh token.
func (s *AuthService) Valid(tok *oauth2.Token) bool {
	return tok != nil && (tok.Valid() || tok.RefreshToken != "")
}

// Client returns an HTTP client that authenticates with the given token and
// refreshes it transparently mid-call if needed.
func (s *AuthService) Client(ctx context.Context, tok *oauth2.Token) *http.Client {
	return s.cfg.Client(ctx, tok)
}

// Ensure returns a live token, refreshing and re-persisting an expired one.
// When no usable credential is stored it begins a fresh authorization flow on
// the session and returns AuthRequiredError carrying the URL the operator
// must visit.
func (s *AuthService) Ensure(ctx context.Context, sess *Session) (*oauth2.Token, error) {
	tok, err := s.ensureStored(ctx)
	if err != nil && !errors.Is(err, ErrRefreshRejected) {
		return nil, err
	}
	if tok != nil {
		return tok, nil
	}
	return nil, &AuthRequiredError{AuthURL: s.Begin(sess)}
}

// EnsureStored is the non-interactive variant of Ensure, used by startup
// tasks that must not suspend into an authorization flow. It returns
// (nil, nil) when interaction would be required.
func (s *AuthService) EnsureStored(ctx context.Context) (*oauth2.Token, error) {
	return s.ensureStored(ctx)
}

// ensureStored loads and, if necessary, refreshes the stored token. It
// returns (nil, nil) when the credential is absent or unusable, and
// ErrRefreshRejected (with the record already purged) when the refresh token
// itself is dead.
func (s *AuthService) ensureStored(ctx context.Context) (*oauth2.Token, error) {
	tok, err := s.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load credential: %w", err)
	}
	if tok == nil {
		return nil, nil
	}
	if tok.Valid() {
		return tok, nil
	}
	if tok.RefreshToken == "" {
		return nil, nil
	}
	return s.refresh(ctx, tok)
}

// refresh exchanges the refresh token for a fresh access token and persists
// the result. A 4xx from the token endpoint means the refresh token has been
// revoked or expired: the stored record is purged so it never retains a
// known-dead credential.
func (s *AuthService) refresh(ctx context.Context, tok *oauth2.Token) (*oauth2.Token, error) {
	fresh, err := s.cfg.TokenSource(ctx, tok).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil &&
			retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			slog.Warn("refresh token rejected, purging credential", "error", err)
			if purgeErr := s.store.Purge(); purgeErr != nil {
				slog.Error("purging rejected credential", "error", purgeErr)
			}
			return nil, fmt.Errorf("%w: %v", ErrRefreshRejected, err)
		}
		return nil, fmt.Errorf("refresh credential: %w", err)
	}

	// The token endpoint usually omits the refresh token on refresh; carry
	// the old one forward so the persisted record stays refreshable.
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = tok.RefreshToken
	}
	if err := s.store.Save(fresh); err != nil {
		slog.Warn("persisting refreshed credential failed", "error", err)
	} else {
		slog.Info("credential refreshed")
	}
	return fresh, nil
}

// Begin starts a new authorization exchange for the session and returns the
// URL the operator must visit out-of-band. Offline access and forced
// re-consent are requested so the provider issues a refresh token even when
// the user granted access before.
func (s *AuthService) Begin(sess *Session) string {
	sess.PendingAuth = &PendingAuth{BeganAt: time.Now()}
	return s.cfg.AuthCodeURL("", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
}

// SubmitCode exchanges a one-time authorization code for a credential.
//
// With no pending exchange on the session the flow is terminal
// (ErrAuthSessionExpired). An exchange failure is retryable: the pending
// context stays and the operator may resubmit a code. An exchanged token
// without a refresh token is discarded and a fresh Begin is issued, because
// such a credential cannot survive a process restart. On success the token
// is persisted and the pending context cleared.
func (s *AuthService) SubmitCode(ctx context.Context, sess *Session, code string) error {
	if sess.PendingAuth == nil {
		return ErrAuthSessionExpired
	}

	tok, err := s.cfg.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("exchange authorization code: %w", err)
	}

	if tok.RefreshToken == "" {
		slog.Warn("exchanged token has no refresh token, restarting flow")
		return &AuthRequiredError{AuthURL: s.Begin(sess)}
	}

	if err := s.store.Save(tok); err != nil {
		// The credential works for this process lifetime; losing the record
		// only costs a re-authorization after restart.
		slog.Warn("persisting credential failed", "error", err)
	}
	sess.PendingAuth = nil
	slog.Info("authorization completed")
	return nil
}
