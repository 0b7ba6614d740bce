package telegram

import (
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/akulinin/subman/internal/application"
	"github.com/akulinin/subman/internal/domain/port/driven"
)

const (
	configSampleLimit = 3
	configSampleWidth = 30
)

// view is a rendered reply: message text, optional inline keyboard, and
// whether a fresh main menu should follow.
type view struct {
	text       string
	keyboard   *tgbotapi.InlineKeyboardMarkup
	followMenu bool
}

// renderReply maps a controller reply to its Telegram presentation.
func renderReply(r application.Reply) view {
	switch r.Kind {
	case application.ReplyDenied:
		return view{text: "⚠️ You are not allowed to use this bot."}

	case application.ReplyMenu:
		return renderMenu(r)

	case application.ReplyConfigsView:
		return renderConfigsView(r)

	case application.ReplySubscriptionsView:
		return renderSubscriptionsView(r)

	case application.ReplyPromptAuthCode:
		text := fmt.Sprintf(
			"To authorize storage access, open this link:\n%s\n\n"+
				"After authorizing you will receive a code. Send it here.", r.AuthURL)
		if r.Err != nil {
			text = "A refresh token was not granted; please authorize again.\n\n" + text
		}
		return view{text: text}

	case application.ReplyPromptClientName:
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔙 Cancel", application.CallbackMainMenu),
			),
		)
		return view{text: "➕ *New subscription*\n\nSend the client name.", keyboard: &kb}

	case application.ReplyPromptConfigs:
		kb := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🔙 Cancel", application.CallbackManageConfigs),
			),
		)
		text := "📝 *Edit configurations*\n\n" +
			"Send all configurations in one message, one per line " +
			"(`vmess://…`, `trojan://…`, …).\n\n" +
			"Existing configurations will be replaced."
		return view{text: text, keyboard: &kb}

	case application.ReplyAuthCompleted:
		return view{text: "✅ Storage authorization completed!", followMenu: true}

	case application.ReplyConfigsSaved:
		return view{
			text:       withWarning(fmt.Sprintf("✅ Saved %d configurations.", r.ConfigCount), r.Warning),
			followMenu: true,
		}

	case application.ReplySubscriptionCreated:
		text := fmt.Sprintf(
			"✅ Subscription created for *%s*!\n\nDownload link:\n`%s`",
			r.Subscription.Name, r.Subscription.DownloadURL)
		return view{text: withWarning(text, r.Warning), followMenu: true}

	case application.ReplySubscriptionDeleted:
		text := fmt.Sprintf("✅ Subscription for *%s* deleted.", r.Subscription.Name)
		return view{text: withWarning(text, r.Warning), followMenu: true}

	case application.ReplyRefreshDone:
		return view{text: fmt.Sprintf("✅ Updated %d subscriptions.", r.UpdatedCount), followMenu: true}

	case application.ReplyCancelled:
		return view{text: "❌ Operation cancelled.", followMenu: true}

	case application.ReplyError:
		return view{text: describeError(r.Err)}

	default:
		return view{text: "Unknown result."}
	}
}

func renderMenu(r application.Reply) view {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Manage configurations", application.CallbackManageConfigs),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Manage subscriptions", application.CallbackManageSubscriptions),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Create subscription", application.CallbackCreateSubscription),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Update all subscriptions", application.CallbackUpdateAll),
		),
	)
	text := fmt.Sprintf(
		"🔰 *Subscription Manager* 🔰\n\n"+
			"📊 *Stats*:\n"+
			"• Configurations: %d\n"+
			"• Active subscriptions: %d\n\n"+
			"Pick an action:",
		r.ConfigCount, r.SubscriptionCount)
	return view{text: text, keyboard: &kb}
}

func renderConfigsView(r application.Reply) view {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📝 Edit configurations", application.CallbackEditConfigs),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main menu", application.CallbackMainMenu),
		),
	)

	var sb strings.Builder
	fmt.Fprintf(&sb, "📝 *Configurations*\n\n%d configurations available.\n\n", r.ConfigCount)
	if len(r.Configs) == 0 {
		sb.WriteString("None yet. Press 'Edit configurations' to add some.")
	} else {
		sb.WriteString("Sample:\n")
		for i, cfg := range r.Configs {
			if i == configSampleLimit {
				fmt.Fprintf(&sb, "…and %d more\n", len(r.Configs)-configSampleLimit)
				break
			}
			fmt.Fprintf(&sb, "%d. `%s`\n", i+1, truncate(cfg, configSampleWidth))
		}
	}
	return view{text: sb.String(), keyboard: &kb}
}

func renderSubscriptionsView(r application.Reply) view {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(r.Subscriptions)+3)
	for _, sub := range r.Subscriptions {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Delete "+sub.Name, "delete_"+sub.ID),
		))
	}
	rows = append(rows,
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ Create subscription", application.CallbackCreateSubscription),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Update all subscriptions", application.CallbackUpdateAll),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🏠 Main menu", application.CallbackMainMenu),
		),
	)
	kb := tgbotapi.NewInlineKeyboardMarkup(rows...)

	var sb strings.Builder
	sb.WriteString("🔄 *Subscriptions*\n\n")
	if len(r.Subscriptions) == 0 {
		sb.WriteString("None found. Create a new one!")
	} else {
		for i, sub := range r.Subscriptions {
			fmt.Fprintf(&sb, "%d. *%s*\n", i+1, sub.Name)
			fmt.Fprintf(&sb, "   📅 Created: %s\n", sub.CreatedAt.Format("2006-01-02"))
			fmt.Fprintf(&sb, "   🔗 [Link](%s)\n\n", sub.DownloadURL)
		}
	}
	return view{text: sb.String(), keyboard: &kb}
}

// describeError turns a taxonomy error into user-facing text.
func describeError(err error) string {
	switch {
	case err == nil:
		return "❌ Something went wrong."
	case errors.Is(err, application.ErrNoConfigs):
		return "❌ No configurations available. Please add configurations first."
	case errors.Is(err, application.ErrNoSubscriptions):
		return "❌ No subscriptions to update."
	case errors.Is(err, application.ErrAuthSessionExpired):
		return "❌ The authorization session expired. Start over with /start."
	case errors.Is(err, driven.ErrSubscriptionNotFound):
		return "❌ Subscription not found."
	default:
		var validation *application.ValidationError
		if errors.As(err, &validation) {
			return fmt.Sprintf("⚠️ %s. Please try again.", capitalize(validation.Error()))
		}
		var remote *application.RemoteError
		if errors.As(err, &remote) {
			return fmt.Sprintf("❌ Storage operation failed: %v", remote.Err)
		}
		return fmt.Sprintf("❌ Error: %v", err)
	}
}

func withWarning(text, warning string) string {
	if warning == "" {
		return text
	}
	return text + "\n\n⚠️ " + warning
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width] + "…"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
