// Package telegram implements the chat front-end over the Telegram Bot API.
// It owns presentation only: controller replies are rendered to message text
// and inline keyboards, and incoming updates are routed to the controller
// entry point matching the conversation state.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/akulinin/subman/internal/application"
	"github.com/akulinin/subman/internal/domain/model"
)

// Bot runs the long-poll update loop and bridges Telegram to the controller.
type Bot struct {
	api         *tgbotapi.BotAPI
	ctrl        *application.Controller
	pollTimeout time.Duration
}

// New creates a Bot authenticated with the given bot token.
func New(token string, ctrl *application.Controller, pollTimeout time.Duration) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Bot{api: api, ctrl: ctrl, pollTimeout: pollTimeout}, nil
}

// Run processes updates until the context is cancelled. Updates are handled
// sequentially, which serializes operations per conversation.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(b.pollTimeout.Seconds())
	updates := b.api.GetUpdatesChan(cfg)
	slog.Info("telegram bot started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, upd)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.CallbackQuery != nil:
		cb := upd.CallbackQuery
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			slog.Warn("answering callback query", "error", err)
		}
		if cb.Message == nil {
			return
		}
		chatID := cb.Message.Chat.ID
		b.deliver(chatID, b.ctrl.OnCallback(ctx, chatID, cb.Data))

	case upd.Message != nil:
		b.handleMessage(ctx, upd.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start", "menu":
			b.deliver(chatID, b.ctrl.OnStart(ctx, chatID))
		case "cancel":
			b.deliver(chatID, b.ctrl.Cancel(chatID))
		default:
			b.deliver(chatID, b.ctrl.Menu(chatID))
		}
		return
	}

	// Free text is routed by conversation state.
	switch b.ctrl.StateOf(chatID) {
	case model.StateAwaitingAuthCode:
		b.deliver(chatID, b.ctrl.OnAuthCode(ctx, chatID, msg.Text))
	case model.StateAwaitingClientName:
		b.deliver(chatID, b.ctrl.OnClientName(ctx, chatID, msg.Text))
	case model.StateAwaitingConfigs:
		b.deliver(chatID, b.ctrl.OnConfigBlock(ctx, chatID, msg.Text))
	default:
		b.deliver(chatID, b.ctrl.OnStart(ctx, chatID))
	}
}

// deliver renders the reply and sends it; replies that conclude a dialog are
// followed by a fresh main menu.
func (b *Bot) deliver(chatID int64, reply application.Reply) {
	view := renderReply(reply)
	if view.text != "" {
		b.send(chatID, view.text, view.keyboard)
	}
	if view.followMenu {
		menu := renderReply(b.ctrl.Menu(chatID))
		b.send(chatID, menu.text, menu.keyboard)
	}
}

func (b *Bot) send(chatID int64, text string, keyboard *tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if keyboard != nil {
		msg.ReplyMarkup = *keyboard
	}
	if _, err := b.api.Send(msg); err != nil {
		slog.Error("sending telegram message", "chat_id", chatID, "error", err)
	}
}
