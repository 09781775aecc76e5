package main

import (
	"context"
	"fmt"

	"github.com/jonathan/screening-agent/internal/config"
	"github.com/jonathan/screening-agent/internal/db"
	"github.com/jonathan/screening-agent/internal/embedding"
	"github.com/jonathan/screening-agent/internal/logger"
	"github.com/jonathan/screening-agent/internal/notify"
	"github.com/jonathan/screening-agent/internal/workflow"
	"go.uber.org/zap"
)

// loadConfig reads the configuration and applies the logging flags on top of it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logJSON {
		cfg.Log.JSON = true
	}
	if logDebug {
		cfg.Log.Debug = true
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Log.JSON, cfg.Log.Debug)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

func connectDB(ctx context.Context, cfg *config.Config) (*db.DB, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	return db.Connect(ctx, cfg.Database.URL)
}

func embeddingConfig(cfg config.EmbeddingConfig) *embedding.Config {
	return &embedding.Config{
		Provider:  embedding.Provider(cfg.Provider),
		Model:     cfg.Model,
		BatchSize: cfg.BatchSize,
	}
}

func newOracle(ctx context.Context, cfg config.EmbeddingConfig) (embedding.Oracle, error) {
	oracle, err := embedding.NewOracle(ctx, embeddingConfig(cfg), cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding oracle: %w", err)
	}
	return oracle, nil
}

func smtpConfig(cfg config.EmailConfig) notify.SMTPConfig {
	return notify.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		From:     cfg.From,
		TLS:      cfg.TLS,
		Timeout:  cfg.Timeout,
	}
}

// newNotifier returns an SMTP-backed dispatcher when email is enabled, otherwise a logging no-op.
func newNotifier(cfg config.EmailConfig, log *zap.Logger) (workflow.Notifier, error) {
	if !cfg.Enabled {
		log.Info("email notifications disabled")
		return notify.Noop{Log: log}, nil
	}

	sender, err := notify.NewSMTPSender(smtpConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create email sender: %w", err)
	}
	company := notify.Company{
		Name:         cfg.CompanyName,
		SupportEmail: cfg.SupportEmail,
		SupportPhone: cfg.SupportPhone,
		Website:      cfg.Website,
	}
	return notify.NewDispatcher(sender, company, cfg.HRAddress, log), nil
}
