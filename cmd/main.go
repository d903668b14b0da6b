package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/siteeye/internal/alert"
	"github.com/siteeye/internal/api"
	"github.com/siteeye/internal/auth"
	"github.com/siteeye/internal/config"
	"github.com/siteeye/internal/database"
	"github.com/siteeye/internal/notify"
	"github.com/siteeye/internal/report"
	"github.com/siteeye/internal/repository"

	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	if err := database.Initialize(cfg.Database.Path); err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer database.Close()

	db := database.GetDB()
	alertRepo := repository.NewAlertRepository(db, logger)
	escalationRepo := repository.NewEscalationRepository(db, logger)
	factRepo := repository.NewFactRepository(db)

	detector := alert.NewDetector(cfg.Engine, factRepo, alertRepo, logger)
	scheduler := alert.NewScheduler(cfg.Engine, alertRepo, escalationRepo, buildNotifiers(cfg), nil, logger)
	engine := alert.NewEngine(cfg.Engine, detector, scheduler, logger)

	if err := engine.Start(); err != nil {
		logger.Fatal("failed to start alert engine", zap.Error(err))
	}

	auth.SetSecret(cfg.Server.JWTSecret)
	loc := cfg.Engine.Location()
	reports := report.NewGenerator(db, loc)
	server := api.NewServer(db, engine, alertRepo, escalationRepo, factRepo, reports, loc, logger)

	go func() {
		if err := server.Start(cfg.Server.Port); err != nil {
			logger.Fatal("API server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	engine.Stop()
}

func buildNotifiers(cfg *config.Config) []notify.Notifier {
	var notifiers []notify.Notifier
	if cfg.Notify.Slack.Token != "" {
		notifiers = append(notifiers, notify.NewSlackNotifier(cfg.Notify.Slack.Token, cfg.Notify.Slack.Channel))
	}
	if cfg.Notify.Email.SMTPHost != "" {
		email := cfg.Notify.Email
		notifiers = append(notifiers, notify.NewEmailNotifier(
			email.SMTPHost, email.SMTPPort, email.From, email.Password, email.ToReceivers,
		))
	}
	return notifiers
}
