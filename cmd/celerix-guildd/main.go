package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/celerix-dev/celerix-guild/internal/api"
	"github.com/celerix-dev/celerix-guild/internal/auth"
	"github.com/celerix-dev/celerix-guild/internal/automation"
	"github.com/celerix-dev/celerix-guild/internal/config"
	"github.com/celerix-dev/celerix-guild/internal/dispatch"
	"github.com/celerix-dev/celerix-guild/internal/engine"
	"github.com/celerix-dev/celerix-guild/internal/logger"
	"github.com/celerix-dev/celerix-guild/internal/platform"
	"github.com/celerix-dev/celerix-guild/internal/platform/discord"
	"github.com/celerix-dev/celerix-guild/internal/vault"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "celerix-guildd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	log := logger.Wrap(zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Store
	persister, err := engine.NewPersistence(cfg.DataFile)
	if err != nil {
		return err
	}
	store := engine.NewStore(persister, log)
	if _, err := store.Initialize(); err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}

	// 2. Chat platform
	var chat platform.Platform = platform.Offline{}
	var gateway *discord.Gateway
	if cfg.BotEnabled() {
		gateway, err = discord.New(cfg.BotToken, log)
		if err != nil {
			return err
		}
		chat = gateway
	} else {
		log.Warn("BOT_TOKEN not set, running dashboard only", nil)
	}

	auto := automation.New(store, chat, log, automation.Options{LogChannelID: cfg.LogChannelID})
	dispatcher := dispatch.New(store, auto, chat, log, dispatch.Options{GuildID: cfg.GuildID})

	if gateway != nil {
		gateway.Attach(ctx, dispatcher, auto)
		if err := gateway.Open(); err != nil {
			return err
		}
		defer func() {
			if err := gateway.Close(); err != nil {
				log.WithError(err).Warn("gateway close failed", nil)
			}
		}()
	}

	// 3. Dashboard
	secret := cfg.SessionSecret
	if secret == "" {
		secret, err = gonanoid.New(32)
		if err != nil {
			return err
		}
		log.Warn("SESSION_SECRET not set, sessions end on restart", nil)
	}
	sealer, err := vault.NewSealer(secret)
	if err != nil {
		return err
	}
	sessions := auth.NewSessions(sealer, cfg.SecureCookies())

	var provider *auth.Provider
	if cfg.LoginEnabled() {
		provider = auth.NewProvider(auth.ProviderConfig{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			CallbackURL:  cfg.CallbackURL,
		}, sessions, log)
	} else {
		log.Warn("CLIENT_ID/CLIENT_SECRET not set, dashboard login disabled", nil)
	}

	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.RouterConfig{
		Handler:  &api.Handler{Store: store, Automation: auto, Log: log},
		Sessions: sessions,
		Provider: provider,
		Origin:   cfg.BaseURL,
		Live:     chat.Live,
		Log:      log,
	})
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("dashboard listening", map[string]interface{}{"addr": srv.Addr, "base_url": cfg.BaseURL})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received", nil)
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("dashboard server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown dashboard: %w", err)
	}
	log.Info("stopped", nil)
	return nil
}
