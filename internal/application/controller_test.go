package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akulinin/subman/internal/domain/model"
)

const (
	adminChat    = int64(1001)
	strangerChat = int64(9999)
)

func newControllerFixture(t *testing.T, reg *model.Registry) (*Controller, *subFixture) {
	t.Helper()
	fx := newSubFixture(t, reg)
	ctrl := NewController([]int64{adminChat}, fx.svc.auth, fx.svc, fx.registry)
	return ctrl, fx
}

// --- Allow-list gate ---

func TestController_NonAdminIsDeniedEverywhere(t *testing.T) {
	ctrl, fx := newControllerFixture(t, registryWith([]string{"vmess://a"}))
	ctx := context.Background()

	replies := []Reply{
		ctrl.OnStart(ctx, strangerChat),
		ctrl.Menu(strangerChat),
		ctrl.OnAuthCode(ctx, strangerChat, "code"),
		ctrl.OnClientName(ctx, strangerChat, "alice"),
		ctrl.OnConfigBlock(ctx, strangerChat, "vmess://x"),
		ctrl.OnCallback(ctx, strangerChat, CallbackUpdateAll),
		ctrl.Cancel(strangerChat),
	}

	for _, reply := range replies {
		assert.Equal(t, ReplyDenied, reply.Kind)
	}
	assert.Empty(t, fx.store.calls, "denied callers cause no side effects")
	assert.Zero(t, fx.registry.saves)
	assert.Equal(t, model.StateIdle, ctrl.StateOf(strangerChat))
}

// --- Start / menu ---

func TestController_StartWithCredentialShowsMenu(t *testing.T) {
	ctrl, _ := newControllerFixture(t, registryWith([]string{"vmess://a", "trojan://b"},
		subRecord("id-1", "alice", "remote-a")))

	reply := ctrl.OnStart(context.Background(), adminChat)

	assert.Equal(t, ReplyMenu, reply.Kind)
	assert.Equal(t, 2, reply.ConfigCount)
	assert.Equal(t, 1, reply.SubscriptionCount)
}

func TestController_StartWithoutCredentialPromptsAuth(t *testing.T) {
	ctrl, fx := newControllerFixture(t, registryWith([]string{"vmess://a"}))
	fx.creds.tok = nil

	reply := ctrl.OnStart(context.Background(), adminChat)

	assert.Equal(t, ReplyPromptAuthCode, reply.Kind)
	assert.NotEmpty(t, reply.AuthURL)
	assert.Equal(t, model.StateAwaitingAuthCode, ctrl.StateOf(adminChat))
}

// --- Config editing flow ---

func TestController_EditConfigsFlow(t *testing.T) {
	ctrl, fx := newControllerFixture(t, registryWith([]string{"old://1"}))
	ctx := context.Background()

	reply := ctrl.OnCallback(ctx, adminChat, CallbackEditConfigs)
	assert.Equal(t, ReplyPromptConfigs, reply.Kind)
	assert.Equal(t, model.StateAwaitingConfigs, ctrl.StateOf(adminChat))

	reply = ctrl.OnConfigBlock(ctx, adminChat, "vmess://a\n\n  trojan://b  \n")
	assert.Equal(t, ReplyConfigsSaved, reply.Kind)
	assert.Equal(t, 2, reply.ConfigCount)
	assert.Equal(t, model.StateIdle, ctrl.StateOf(adminChat))
	assert.Equal(t, []string{"vmess://a", "trojan://b"}, fx.registry.reg.Configs)
}

// --- Subscription creation flow ---

func TestController_CreateSubscriptionFlow(t *testing.T) {
	ctrl, fx := newControllerFixture(t, registryWith([]string{"vmess://a"}))
	ctx := context.Background()

	reply := ctrl.OnCallback(ctx, adminChat, CallbackCreateSubscription)
	assert.Equal(t, ReplyPromptClientName, reply.Kind)
	assert.Equal(t, model.StateAwaitingClientName, ctrl.StateOf(adminChat))

	reply = ctrl.OnClientName(ctx, adminChat, "alice")
	require.Equal(t, ReplySubscriptionCreated, reply.Kind)
	require.NotNil(t, reply.Subscription)
	assert.Equal(t, "alice", reply.Subscription.Name)
	assert.Equal(t, model.StateIdle, ctrl.StateOf(adminChat))
	assert.Len(t, fx.registry.reg.Subscriptions, 1)
}

func TestController_CreateSubscriptionWithoutConfigsIsRejectedUpfront(t *testing.T) {
	ctrl, _ := newControllerFixture(t, registryWith([]string{}))

	reply := ctrl.OnCallback(context.Background(), adminChat, CallbackCreateSubscription)

	assert.Equal(t, ReplyError, reply.Kind)
	assert.ErrorIs(t, reply.Err, ErrNoConfigs)
	assert.Equal(t, model.StateIdle, ctrl.StateOf(adminChat))
}

func TestController_BlankClientNameRepromptsSameState(t *testing.T) {
	ctrl, _ := newControllerFixture(t, registryWith([]string{"vmess://a"}))
	ctx := context.Background()
	ctrl.OnCallback(ctx, adminChat, CallbackCreateSubscription)

	reply := ctrl.OnClientName(ctx, adminChat, "   ")

	assert.Equal(t, ReplyError, reply.Kind)
	var validation *ValidationError
	assert.ErrorAs(t, reply.Err, &validation)
	assert.Equal(t, model.StateAwaitingClientName, ctrl.StateOf(adminChat))
}

func TestController_CreateWithoutCredentialSuspendsIntoAuth(t *testing.T) {
	ctrl, fx := newControllerFixture(t, registryWith([]string{"vmess://a"}))
	fx.creds.tok = nil
	ctx := context.Background()

	reply := ctrl.OnClientName(ctx, adminChat, "alice")

	assert.Equal(t, ReplyPromptAuthCode, reply.Kind)
	assert.NotEmpty(t, reply.AuthURL)
	assert.Equal(t, model.StateAwaitingAuthCode, ctrl.StateOf(adminChat))
}

// --- Refresh all ---

func TestController_UpdateAllReportsCount(t *testing.T) {
	ctrl, _ := newControllerFixture(t, registryWith(
		[]string{"x"},
		subRecord("id-1", "alice", "remote-a"),
		subRecord("id-2", "bob", "remote-b"),
	))

	reply := ctrl.OnCallback(context.Background(), adminChat, CallbackUpdateAll)

	assert.Equal(t, ReplyRefreshDone, reply.Kind)
	assert.Equal(t, 2, reply.UpdatedCount)
}

// --- Delete ---

func TestController_DeleteCallback(t *testing.T) {
	ctrl, fx := newControllerFixture(t, registryWith([]string{"x"}, subRecord("id-1", "alice", "remote-a")))

	reply := ctrl.OnCallback(context.Background(), adminChat, "delete_id-1")

	require.Equal(t, ReplySubscriptionDeleted, reply.Kind)
	assert.Equal(t, "alice", reply.Subscription.Name)
	assert.Empty(t, fx.registry.reg.Subscriptions)
}

func TestController_UnknownCallbackToken(t *testing.T) {
	ctrl, _ := newControllerFixture(t, registryWith([]string{"x"}))

	reply := ctrl.OnCallback(context.Background(), adminChat, "bogus_token")

	assert.Equal(t, ReplyError, reply.Kind)
	var validation *ValidationError
	assert.ErrorAs(t, reply.Err, &validation)
}

// --- Views ---

func TestController_ViewsExposeRegistryData(t *testing.T) {
	ctrl, _ := newControllerFixture(t, registryWith(
		[]string{"vmess://a", "trojan://b"},
		subRecord("id-1", "alice", "remote-a"),
	))
	ctx := context.Background()

	configs := ctrl.OnCallback(ctx, adminChat, CallbackManageConfigs)
	assert.Equal(t, ReplyConfigsView, configs.Kind)
	assert.Equal(t, []string{"vmess://a", "trojan://b"}, configs.Configs)

	subs := ctrl.OnCallback(ctx, adminChat, CallbackManageSubscriptions)
	assert.Equal(t, ReplySubscriptionsView, subs.Kind)
	require.Len(t, subs.Subscriptions, 1)
	assert.Equal(t, "alice", subs.Subscriptions[0].Name)
}

// --- Cancel ---

func TestController_CancelDiscardsPendingAuth(t *testing.T) {
	ctrl, fx := newControllerFixture(t, registryWith([]string{"vmess://a"}))
	fx.creds.tok = nil
	ctx := context.Background()

	ctrl.OnStart(ctx, adminChat)
	require.Equal(t, model.StateAwaitingAuthCode, ctrl.StateOf(adminChat))

	reply := ctrl.Cancel(adminChat)

	assert.Equal(t, ReplyCancelled, reply.Kind)
	assert.Equal(t, model.StateIdle, ctrl.StateOf(adminChat))

	// The discarded exchange makes a late code terminal.
	late := ctrl.OnAuthCode(ctx, adminChat, "code-123")
	assert.Equal(t, ReplyError, late.Kind)
	assert.ErrorIs(t, late.Err, ErrAuthSessionExpired)
}
