package application

import "github.com/akulinin/subman/internal/domain/model"

// ReplyKind identifies what a conversation entry point produced. The chat
// front-end maps kinds to presentation; the controller never builds
// user-facing text.
type ReplyKind string

const (
	ReplyDenied              ReplyKind = "denied"
	ReplyMenu                ReplyKind = "menu"
	ReplyConfigsView         ReplyKind = "configs_view"
	ReplySubscriptionsView   ReplyKind = "subscriptions_view"
	ReplyPromptAuthCode      ReplyKind = "prompt_auth_code"
	ReplyPromptClientName    ReplyKind = "prompt_client_name"
	ReplyPromptConfigs       ReplyKind = "prompt_configs"
	ReplyAuthCompleted       ReplyKind = "auth_completed"
	ReplyConfigsSaved        ReplyKind = "configs_saved"
	ReplySubscriptionCreated ReplyKind = "subscription_created"
	ReplySubscriptionDeleted ReplyKind = "subscription_deleted"
	ReplyRefreshDone         ReplyKind = "refresh_done"
	ReplyCancelled           ReplyKind = "cancelled"
	ReplyError               ReplyKind = "error"
)

// Reply is the presentation-agnostic result of a conversation entry point.
// Only the fields relevant to the Kind are populated.
type Reply struct {
	Kind ReplyKind

	// Menu / views.
	ConfigCount       int
	SubscriptionCount int
	Configs           []string
	Subscriptions     []model.Subscription

	// Authorization.
	AuthURL string

	// Mutations.
	Subscription *model.Subscription
	UpdatedCount int

	// Warning is set when the operation succeeded remotely but local
	// persistence failed; the front-end renders it alongside the success.
	Warning string

	// Err carries the taxonomy error for ReplyError (and the retry reason
	// for a re-issued auth prompt); the front-end describes it to the user.
	Err error
}
