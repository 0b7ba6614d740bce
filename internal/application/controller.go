package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/akulinin/subman/internal/domain/model"
	"github.com/akulinin/subman/internal/domain/port/driven"
)

// deletePrefix marks a per-subscription delete callback token.
const deletePrefix = "delete_"

// Callback tokens understood by OnCallback.
const (
	CallbackMainMenu            = "main_menu"
	CallbackManageConfigs       = "manage_configs"
	CallbackManageSubscriptions = "manage_subscriptions"
	CallbackEditConfigs         = "edit_configs"
	CallbackCreateSubscription  = "create_subscription"
	CallbackUpdateAll           = "update_all"
)

// Controller is the conversation state machine. It owns one Session per chat
// and exposes one entry point per conversation state; every entry point
// gates on the admin allow-list before touching any state.
//
// A single mutex serializes all entry points. The chat front-end already
// serializes updates per conversation; the mutex additionally covers
// registry read-modify-write races between different operator chats.
type Controller struct {
	mu       sync.Mutex
	admins   map[int64]struct{}
	sessions map[int64]*Session
	auth     *AuthService
	subs     *SubscriptionService
	registry driven.RegistryStore
}

// NewController creates a Controller restricted to the given admin chat ids.
func NewController(adminIDs []int64, auth *AuthService, subs *SubscriptionService, registry driven.RegistryStore) *Controller {
	admins := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = struct{}{}
	}
	return &Controller{
		admins:   admins,
		sessions: make(map[int64]*Session),
		auth:     auth,
		subs:     subs,
		registry: registry,
	}
}

// StateOf returns the conversation state for the chat, which the front-end
// uses to route free-text messages to the matching entry point.
func (c *Controller) StateOf(chatID int64) model.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sess, ok := c.sessions[chatID]; ok {
		return sess.State
	}
	return model.StateIdle
}

// OnStart handles the start command. With no usable stored credential it
// begins the authorization flow; otherwise it shows the main menu.
func (c *Controller) OnStart(ctx context.Context, chatID int64) Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allowed(chatID) {
		return Reply{Kind: ReplyDenied}
	}
	sess := c.session(chatID)

	tok, err := c.auth.EnsureStored(ctx)
	if err != nil && !errors.Is(err, ErrRefreshRejected) {
		return Reply{Kind: ReplyError, Err: err}
	}
	if tok == nil {
		sess.State = model.StateAwaitingAuthCode
		return Reply{Kind: ReplyPromptAuthCode, AuthURL: c.auth.Begin(sess), Err: err}
	}

	sess.State = model.StateIdle
	return c.menu()
}

// Menu returns the main-menu reply with current registry stats.
func (c *Controller) Menu(chatID int64) Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allowed(chatID) {
		return Reply{Kind: ReplyDenied}
	}
	return c.menu()
}

// OnAuthCode handles a submitted one-time authorization code.
func (c *Controller) OnAuthCode(ctx context.Context, chatID int64, text string) Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allowed(chatID) {
		return Reply{Kind: ReplyDenied}
	}
	sess := c.session(chatID)

	err := c.auth.SubmitCode(ctx, sess, strings.TrimSpace(text))
	switch {
	case err == nil:
		sess.State = model.StateIdle
		return Reply{Kind: ReplyAuthCompleted}
	case errors.Is(err, ErrAuthSessionExpired):
		sess.State = model.StateIdle
		return Reply{Kind: ReplyError, Err: err}
	default:
		var authReq *AuthRequiredError
		if errors.As(err, &authReq) {
			// No refresh token came back; a fresh consent round was issued.
			sess.State = model.StateAwaitingAuthCode
			return Reply{Kind: ReplyPromptAuthCode, AuthURL: authReq.AuthURL, Err: err}
		}
		// Exchange failed; the operator may resubmit a code.
		sess.State = model.StateAwaitingAuthCode
		return Reply{Kind: ReplyError, Err: err}
	}
}

// OnClientName handles the client name for a pending subscription creation.
func (c *Controller) OnClientName(ctx context.Context, chatID int64, text string) Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allowed(chatID) {
		return Reply{Kind: ReplyDenied}
	}
	sess := c.session(chatID)

	sub, warning, err := c.subs.Create(ctx, sess, text)
	if err != nil {
		return c.failure(sess, err, model.StateAwaitingClientName)
	}
	sess.State = model.StateIdle
	return Reply{Kind: ReplySubscriptionCreated, Subscription: &sub, Warning: warning}
}

// OnConfigBlock handles a pasted block of configuration lines: one config
// per line, blank lines dropped, existing configs replaced wholesale.
func (c *Controller) OnConfigBlock(_ context.Context, chatID int64, text string) Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allowed(chatID) {
		return Reply{Kind: ReplyDenied}
	}
	sess := c.session(chatID)

	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}

	count, err := c.subs.ReplaceConfigs(lines)
	if err != nil {
		sess.State = model.StateIdle
		return Reply{Kind: ReplyError, Err: err}
	}
	sess.State = model.StateIdle
	return Reply{Kind: ReplyConfigsSaved, ConfigCount: count}
}

// OnCallback handles a menu button press identified by its callback token.
func (c *Controller) OnCallback(ctx context.Context, chatID int64, token string) Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allowed(chatID) {
		return Reply{Kind: ReplyDenied}
	}
	sess := c.session(chatID)

	switch {
	case token == CallbackMainMenu:
		sess.State = model.StateIdle
		return c.menu()

	case token == CallbackManageConfigs:
		reg, err := c.registry.Load()
		if err != nil {
			return Reply{Kind: ReplyError, Err: err}
		}
		return Reply{Kind: ReplyConfigsView, Configs: reg.Configs, ConfigCount: len(reg.Configs)}

	case token == CallbackManageSubscriptions:
		reg, err := c.registry.Load()
		if err != nil {
			return Reply{Kind: ReplyError, Err: err}
		}
		return Reply{Kind: ReplySubscriptionsView, Subscriptions: reg.Subscriptions, SubscriptionCount: len(reg.Subscriptions)}

	case token == CallbackEditConfigs:
		sess.State = model.StateAwaitingConfigs
		return Reply{Kind: ReplyPromptConfigs}

	case token == CallbackCreateSubscription:
		reg, err := c.registry.Load()
		if err != nil {
			return Reply{Kind: ReplyError, Err: err}
		}
		if len(reg.Configs) == 0 {
			return Reply{Kind: ReplyError, Err: ErrNoConfigs}
		}
		sess.State = model.StateAwaitingClientName
		return Reply{Kind: ReplyPromptClientName}

	case token == CallbackUpdateAll:
		count, err := c.subs.RefreshAll(ctx, sess)
		if err != nil {
			return c.failure(sess, err, model.StateIdle)
		}
		return Reply{Kind: ReplyRefreshDone, UpdatedCount: count}

	case strings.HasPrefix(token, deletePrefix):
		sub, warning, err := c.subs.Delete(ctx, sess, strings.TrimPrefix(token, deletePrefix))
		if err != nil {
			return c.failure(sess, err, model.StateIdle)
		}
		return Reply{Kind: ReplySubscriptionDeleted, Subscription: &sub, Warning: warning}

	default:
		slog.Warn("unknown callback token", "token", token, "chat_id", chatID)
		return Reply{Kind: ReplyError, Err: &ValidationError{Field: "action", Reason: "unknown"}}
	}
}

// Cancel aborts the current operation: any pending authorization exchange is
// discarded and the session returns to idle. Partially-completed remote
// mutations are not rolled back.
func (c *Controller) Cancel(chatID int64) Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allowed(chatID) {
		return Reply{Kind: ReplyDenied}
	}
	sess := c.session(chatID)
	sess.PendingAuth = nil
	sess.State = model.StateIdle
	return Reply{Kind: ReplyCancelled}
}

// failure maps a service error onto the session state and reply. An
// AuthRequiredError suspends the conversation into the awaiting-code state;
// a ValidationError re-prompts in retryState; anything else returns to idle.
func (c *Controller) failure(sess *Session, err error, retryState model.SessionState) Reply {
	var authReq *AuthRequiredError
	if errors.As(err, &authReq) {
		sess.State = model.StateAwaitingAuthCode
		return Reply{Kind: ReplyPromptAuthCode, AuthURL: authReq.AuthURL}
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		sess.State = retryState
		return Reply{Kind: ReplyError, Err: err}
	}

	sess.State = model.StateIdle
	return Reply{Kind: ReplyError, Err: err}
}

func (c *Controller) allowed(chatID int64) bool {
	_, ok := c.admins[chatID]
	return ok
}

// session returns the chat's session, creating an idle one on first use.
// Callers hold c.mu.
func (c *Controller) session(chatID int64) *Session {
	if sess, ok := c.sessions[chatID]; ok {
		return sess
	}
	sess := NewSession(chatID)
	c.sessions[chatID] = sess
	return sess
}

// menu builds the main-menu reply. Callers hold c.mu.
func (c *Controller) menu() Reply {
	reg, err := c.registry.Load()
	if err != nil {
		return Reply{Kind: ReplyError, Err: err}
	}
	return Reply{
		Kind:              ReplyMenu,
		ConfigCount:       len(reg.Configs),
		SubscriptionCount: len(reg.Subscriptions),
	}
}
