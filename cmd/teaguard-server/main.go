package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/craigfactory/teaguard/internal/broadcast"
	"github.com/craigfactory/teaguard/internal/config"
	dbpkg "github.com/craigfactory/teaguard/internal/db"
	"github.com/craigfactory/teaguard/internal/httpapi"
	"github.com/craigfactory/teaguard/internal/logging"
	"github.com/craigfactory/teaguard/internal/notify"
	"github.com/craigfactory/teaguard/internal/teaguard/service"
	"github.com/craigfactory/teaguard/internal/teaguard/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "teaguard-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "teaguard.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database + stores
	conn, err := dbpkg.Open(ctx, dbpkg.Config{Path: cfg.DB.Path, Env: cfg.Env})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer conn.Close()

	if cfg.Env == "dev" {
		if err := dbpkg.SeedDev(ctx, conn); err != nil {
			return fmt.Errorf("seed dev data: %w", err)
		}
	}

	writer := dbpkg.NewWorker(conn)
	defer writer.Close()

	directory := sqlite.NewDirectoryStore(conn, writer)
	accessLog := sqlite.NewAccessLogStore(conn, writer)

	// Notification channels + broadcast hub
	smtpSender := notify.NewSMTPSender(cfg.Alerts.SMTP)
	channels := []notify.Channel{
		notify.NewMailChannel(smtpSender, cfg.Alerts.SMTP, cfg.Alerts.Mail, cfg.Alerts.Facility, logger),
		notify.NewSMSChannel(smtpSender, cfg.Alerts.SMTP, cfg.Alerts.SMS, cfg.Alerts.Facility, logger),
		notify.NewChatChannel(cfg.Alerts.Chat, cfg.Alerts.Facility, logger),
	}
	hub := broadcast.NewHub(cfg.Broadcast.SubscriberBuffer, logger)

	// Services
	matcher := service.NewMatcher(directory, accessLog, logger)
	dispatcher := service.NewDispatcher(channels, hub, cfg.Alerts.ChannelTimeout, logger)

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:     logger,
		Addr:       cfg.HTTP.Addr,
		Matcher:    matcher,
		Dispatcher: dispatcher,
		Hub:        hub,
		Directory:  directory,
		AccessLog:  accessLog,
	})

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.String("env", cfg.Env))
		if err := srv.Start(); err != nil {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	// Drain in-flight access log appends before the db closes.
	matcher.Flush()

	return nil
}
