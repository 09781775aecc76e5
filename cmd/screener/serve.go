package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/screening-agent/internal/checkpoint"
	"github.com/jonathan/screening-agent/internal/config"
	"github.com/jonathan/screening-agent/internal/embedding"
	"github.com/jonathan/screening-agent/internal/scoring"
	"github.com/jonathan/screening-agent/internal/server"
	"github.com/jonathan/screening-agent/internal/workflow"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	servePort           int
	serveMigrate        bool
	serveEmbedQuestions bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the screening chat server",
	Long:  `Start an HTTP server that issues session tokens and runs screening conversations over websockets.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", false, "Apply pending database migrations before serving")
	serveCmd.Flags().BoolVar(&serveEmbedQuestions, "embed-questions", false, "Backfill missing ideal-answer embeddings in the background")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	if err := cfg.RequireSessionSecret(); err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, log)
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	database, err := connectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if serveMigrate {
		applied, err := database.Migrate(ctx)
		if err != nil {
			return err
		}
		log.Info("migrations applied", zap.Strings("versions", applied))
	}

	store, err := checkpoint.Open(ctx, cfg.Checkpoint.Driver, cfg.Checkpoint.DSN, database.Pool())
	if err != nil {
		return fmt.Errorf("failed to open checkpoint store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close checkpoint store", zap.Error(err))
		}
	}()

	oracle, err := newOracle(ctx, cfg.Embedding)
	if err != nil {
		return err
	}
	defer func() { _ = oracle.Close() }()

	notifier, err := newNotifier(cfg.Email, log.Named("notify"))
	if err != nil {
		return err
	}

	machine, err := workflow.NewMachine(workflow.Config{
		MessageWindow: cfg.Workflow.MessageWindow,
		ResumeWindow:  cfg.Workflow.ResumeWindow,
	}, workflow.Deps{
		Catalog:     database,
		Prospects:   database,
		Evaluations: database,
		Scorer:      scoring.NewEngine(database, embedding.CosineSimilarity),
		Embedder:    oracle,
		Notifier:    notifier,
		Logger:      log.Named("workflow"),
	})
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	engine := workflow.NewEngine(machine, store, cfg.Workflow.LockTimeout, log.Named("engine"))

	tokens, err := server.NewTokenIssuer(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Port:                     cfg.Server.Port,
		AllowedOrigins:           cfg.Server.AllowedOrigins,
		MaxConnectionsPerIP:      cfg.Server.MaxConnectionsPerIP,
		MaxMessagesPerConnection: cfg.Server.MaxMessagesPerConnection,
		RateLimitPerMinute:       cfg.Server.RateLimitPerMinute,
		ShutdownTimeout:          cfg.Server.ShutdownTimeout,
	}, server.Deps{
		Conversations: engine,
		Prospects:     database,
		Tokens:        tokens,
		Health:        database.Ping,
		Logger:        log.Named("server"),
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	log.Info("screener configured",
		zap.Int("port", cfg.Server.Port),
		zap.String("checkpoint_driver", cfg.Checkpoint.Driver),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.Bool("email_enabled", cfg.Email.Enabled))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	if serveEmbedQuestions {
		g.Go(func() error {
			n, err := embedding.Backfill(gctx, database, oracle, log.Named("embedding"))
			if err != nil {
				// A failed backfill leaves semantic questions scoring zero; keep serving.
				log.Error("embedding backfill failed", zap.Error(err))
				return nil
			}
			log.Info("embedding backfill finished", zap.Int("stored", n))
			return nil
		})
	}
	return g.Wait()
}
