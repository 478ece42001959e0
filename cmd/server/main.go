// channelgate grants, tracks and automatically revokes time-limited access
// to a gated Telegram channel. An administrator issues grants through bot
// commands; a background reconciler removes subscribers whose grant lapsed.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	croncontroller "github.com/channelgate/channelgate/internal/api/cron"
	"github.com/channelgate/channelgate/internal/bot"
	"github.com/channelgate/channelgate/internal/config"
	"github.com/channelgate/channelgate/internal/logger"
	"github.com/channelgate/channelgate/internal/relay"
	"github.com/channelgate/channelgate/internal/repository/postgres"
	"github.com/channelgate/channelgate/internal/rest"
	"github.com/channelgate/channelgate/internal/service"
	"github.com/channelgate/channelgate/internal/telegram"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		logger.GetLogger().Fatalf("failed to load configuration: %v", err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		logger.GetLogger().Fatalf("failed to initialize logger: %v", err)
	}

	// Durable state is a hard requirement; refuse to start without it.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := postgres.NewDB(ctx, cfg.Postgres)
	cancel()
	if err != nil {
		log.Fatalf("failed to initialize postgres: %v", err)
	}
	defer db.Close()

	subRepo := postgres.NewSubscriptionRepository(db, cfg.Subscription.RetirementMode, log)

	tgClient := telegram.NewClient(cfg.Telegram, log)
	gateway := telegram.NewMembershipAdapter(tgClient, cfg.Telegram, log)
	notifier := telegram.NewNotifierAdapter(tgClient)
	profiles := telegram.NewProfileAdapter(tgClient, log)

	params := service.ServiceParams{
		Logger:   log,
		Config:   cfg,
		SubRepo:  subRepo,
		Gateway:  gateway,
		Notifier: notifier,
		Profiles: profiles,
	}

	grantService := service.NewGrantService(params)
	exportService := service.NewExportService(grantService, log)
	reconciler := service.NewReconciler(params)

	var relayService *relay.Service
	if cfg.Relay.Enabled {
		relayService, err = relay.NewService(cfg.Relay, log)
		if err != nil {
			log.Fatalf("failed to initialize relay: %v", err)
		}
	}

	tgBot := bot.New(cfg, tgClient, grantService, exportService, relayService, log)

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = tgBot.Start(startCtx)
	startCancel()
	if err != nil {
		log.Fatalf("failed to start bot: %v", err)
	}

	reconciler.Start()

	cronHandler := croncontroller.NewSubscriptionCronHandler(reconciler, log)
	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: rest.NewRouter(cfg, db, cronHandler, log),
	}
	go func() {
		log.Infow("http server listening", "address", cfg.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Infow("shutting down", "signal", sig.String())

	tgBot.Stop()
	reconciler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("http server shutdown failed", "error", err)
	}

	log.Infow("shutdown complete")
}
