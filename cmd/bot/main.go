// Package main runs the Telegram bot. It long-polls for updates, or
// receives them on a webhook when --webhook-url is set, and serves the
// session validation API used by the web app.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"nova-arcade/internal/bot"
	"nova-arcade/internal/config"
	"nova-arcade/internal/jupiter"
	"nova-arcade/internal/kvstore"
	"nova-arcade/internal/logging"
	"nova-arcade/internal/storage/kv"
	"nova-arcade/internal/trial"
)

const sessionPruneInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bot: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, _, err := config.Load("bot", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logs, err := logging.NewLogBackend(logging.LogConfig{DebugLevel: cfg.LogLevel})
	if err != nil {
		return err
	}
	log := logs.Logger(logging.SubsysBot)

	if err := cfg.ValidateBot(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}
	catalog, err := config.LoadCatalog(cfg.CatalogPath, cfg.NAGMint)
	if err != nil {
		return err
	}

	trials, err := kvstore.OpenFileStore(cfg.TrialsFile)
	if err != nil {
		return err
	}
	defer func() {
		if err := trials.Close(); err != nil {
			log.Errorf("Failed to save trial data: %v", err)
			return
		}
		log.Infof("Trial data saved to %s", trials.Path())
	}()

	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	log.Infof("Authorized as @%s", botAPI.Self.UserName)

	gate := trial.NewGate(kv.NewTrialStore(trials), nil, trial.WithLogger(logs.Logger(logging.SubsysGate)))
	prices := jupiter.NewClient(
		jupiter.WithPriceURL(cfg.JupiterPriceURL),
		jupiter.WithLogger(logs.Logger(logging.SubsysSwap)),
	)
	b, err := bot.New(botAPI, gate, catalog, cfg.WebAppURL,
		bot.WithPrices(prices),
		bot.WithDepositAddress(cfg.DepositAddress),
		bot.WithLogger(log),
	)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	webhookPath := ""
	if cfg.WebhookURL != "" {
		u, err := url.Parse(cfg.WebhookURL)
		if err != nil {
			return fmt.Errorf("parse webhook url: %w", err)
		}
		webhookPath = u.Path
		if webhookPath == "" {
			webhookPath = "/"
		}
		wh, err := tgbotapi.NewWebhook(cfg.WebhookURL)
		if err != nil {
			return fmt.Errorf("webhook config: %w", err)
		}
		if _, err := botAPI.Request(wh); err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		log.Infof("Webhook set to %s", cfg.WebhookURL)
	} else if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		log.Warnf("delete webhook: %v", err)
	}

	httpServer := &http.Server{
		Addr:              cfg.BotAPIAddr,
		Handler:           b.Handler(webhookPath),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b.Sessions().Run(gctx, sessionPruneInterval)
		return nil
	})
	g.Go(func() error {
		log.Infof("Bot API listening on %s", cfg.BotAPIAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("bot api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer stop()
		return httpServer.Shutdown(shutdownCtx)
	})
	if webhookPath == "" {
		g.Go(func() error {
			u := tgbotapi.NewUpdate(0)
			u.Timeout = 60
			updates := botAPI.GetUpdatesChan(u)
			go func() {
				<-gctx.Done()
				botAPI.StopReceivingUpdates()
			}()
			log.Infof("Polling for updates")
			if err := b.Run(gctx, updates); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Infof("Shutdown complete")
	return nil
}
