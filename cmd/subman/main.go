package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"golang.org/x/oauth2"
	drivev3 "google.golang.org/api/drive/v3"

	driveadapter "github.com/akulinin/subman/internal/adapter/driven/drive"
	fileadapter "github.com/akulinin/subman/internal/adapter/driven/file"
	"github.com/akulinin/subman/internal/adapter/driving/telegram"
	"github.com/akulinin/subman/internal/application"
	"github.com/akulinin/subman/internal/config"
	"github.com/akulinin/subman/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on missing required env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"admin_ids", cfg.AdminIDs,
		"registry_path", cfg.RegistryPath,
		"token_path", cfg.TokenPath,
		"poll_timeout", cfg.PollTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Wire file-backed stores.
	registryStore := fileadapter.NewRegistryStore(cfg.RegistryPath)
	tokenStore := fileadapter.NewTokenStore(cfg.TokenPath)

	// 4. Load the OAuth2 client secrets and create the auth service.
	oauthCfg, err := application.LoadOAuthConfig(cfg.ClientSecretsPath, drivev3.DriveFileScope)
	if err != nil {
		return err
	}
	auth := application.NewAuthService(oauthCfg, tokenStore)

	// 5. Object stores are built per credential so a refreshed or replaced
	// token always backs the next remote call.
	newStore := func(ctx context.Context, tok *oauth2.Token) (driven.ObjectStore, error) {
		return driveadapter.NewStore(ctx, auth.Client(ctx, tok))
	}

	// 6. Create the subscription service.
	subs := application.NewSubscriptionService(auth, registryStore, newStore, cfg.ScratchDir, cfg.FilePrefix)

	// 7. Reconcile the registry against remote storage. A failure here is
	// logged but not fatal; the bot still starts.
	if err := subs.Reconcile(ctx); err != nil {
		slog.Warn("startup reconcile failed", "error", err)
	}

	// 8. Create the conversation controller and the Telegram front-end.
	ctrl := application.NewController(cfg.AdminIDs, auth, subs, registryStore)
	bot, err := telegram.New(cfg.TelegramToken, ctrl, cfg.PollTimeout)
	if err != nil {
		return err
	}

	// 9. Run until a shutdown signal arrives.
	slog.Info("subman started", "admins", len(cfg.AdminIDs))
	if err := bot.Run(ctx); err != nil {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}
