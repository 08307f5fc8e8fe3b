package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/LukasGX/Untis-App-API/internal/auth"
	"github.com/LukasGX/Untis-App-API/internal/chat"
	"github.com/LukasGX/Untis-App-API/internal/config"
	"github.com/LukasGX/Untis-App-API/internal/filter"
	"github.com/LukasGX/Untis-App-API/internal/handlers"
	"github.com/LukasGX/Untis-App-API/internal/logging"
	"github.com/LukasGX/Untis-App-API/internal/moderation"
	"github.com/LukasGX/Untis-App-API/internal/notify"
	"github.com/LukasGX/Untis-App-API/internal/store/sqlstore"
	"github.com/LukasGX/Untis-App-API/internal/validate"
	"github.com/LukasGX/Untis-App-API/internal/ws"
)

var configPath = flag.String("config", os.Getenv("UNTIS_CONFIG"), "path to config file")

const shutdownTimeout = 15 * time.Second

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(os.Stderr, logging.Options{
		Level:              cfg.Log.Level,
		Format:             cfg.Log.Format,
		RollbarToken:       cfg.Rollbar.Token,
		RollbarEnvironment: cfg.Rollbar.Environment,
	})
	if err != nil {
		slog.Error("configuring logging", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logger)
	defer logging.Close()

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "error", err)
		logging.Close()
		os.Exit(1)
	}
}

func newMailer(cfg config.Mail) notify.Mailer {
	switch cfg.Backend {
	case "smtp":
		return &notify.SMTPMailer{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.From,
		}
	case "sendgrid":
		return &notify.SendgridMailer{APIKey: cfg.SendgridAPIKey, From: cfg.From}
	default:
		return notify.LogMailer{}
	}
}

func run(cfg *config.Config) error {
	// Initialize Database
	store, err := sqlstore.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	contentFilter, err := filter.Load(cfg.Filter.File, cfg.Filter.Patterns)
	if err != nil {
		return err
	}

	signer, err := auth.NewSigner([]byte(cfg.Auth.SessionKey))
	if err != nil {
		return err
	}
	sessions, err := auth.NewAdminSessions(cfg.Auth.AdminToken, signer, cfg.Auth.SecureCookie)
	if err != nil {
		return err
	}

	// Initialize WebSocket registry and dispatcher
	registry := ws.NewRegistry()
	hub := ws.NewHub(registry, cfg.DispatchQueueSize)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	notifier := notify.NewNotifier(newMailer(cfg.Mail), cfg.NotifyAdminEmail)

	router := handlers.NewRouter(handlers.Deps{
		Store:     store,
		Chat:      chat.NewService(store, contentFilter, moderation.NewGate(store), hub),
		Registry:  registry,
		Tokens:    auth.Tokens{API: cfg.Auth.APIToken, Admin: cfg.Auth.AdminToken},
		Sessions:  sessions,
		Validator: validate.New(),
		Notifier:  notifier,
		WSOptions: ws.Options{
			SendBuffer:   cfg.WS.SendBuffer,
			WriteTimeout: cfg.WS.WriteTimeout,
			PongTimeout:  cfg.WS.PongTimeout,
		},
		HistoryLimit:      cfg.Chat.HistoryLimit,
		AdminHistoryLimit: cfg.Chat.AdminHistoryLimit,
	})

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", cfg.HTTP.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		slog.Info("shutting down", "signal", s.String())
	case err := <-errCh:
		stopHub()
		<-hub.Done()
		registry.Close()
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("http shutdown", "error", err)
	}

	// drain pending events before closing the connections they target
	stopHub()
	<-hub.Done()
	registry.Close()
	notifier.Wait()
	slog.Info("server stopped")
	return nil
}
