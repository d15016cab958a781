package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/anthropics/feishu-reply-bot/internal/biz"
	"github.com/anthropics/feishu-reply-bot/internal/biz/usecase"
	"github.com/anthropics/feishu-reply-bot/internal/conf"
	"github.com/anthropics/feishu-reply-bot/internal/data"
	"github.com/anthropics/feishu-reply-bot/internal/infra/lark"
	"github.com/anthropics/feishu-reply-bot/internal/server"
	"github.com/anthropics/feishu-reply-bot/internal/service"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Info().Msg("no .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := conf.LoadFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid environment")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	logger := setupLogger(cfg)

	// Initialize transport client
	larkClient := lark.NewClient(cfg.AppID, cfg.AppSecret, logger.With().Str("component", "lark").Logger())

	// Initialize repository layer
	repos, err := data.NewRepositories(larkClient, cfg.AdminFile, cfg.CommandsFile, cfg.AuditDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create repositories")
	}
	defer repos.Audit.Close()

	logger.Info().
		Str("admin_file", cfg.AdminFile).
		Str("commands_file", cfg.CommandsFile).
		Str("audit_db", cfg.AuditDBPath).
		Msg("storage configured")

	// Initialize usecase layer
	ctx := context.Background()
	permUC, err := usecase.NewPermissionUsecase(ctx, repos.Permission, repos.Audit, cfg.OwnerID,
		logger.With().Str("component", "permission").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load permission record")
	}
	cmdUC, err := usecase.NewCommandUsecase(ctx, repos.Command, permUC, repos.Audit,
		logger.With().Str("component", "command").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load command table")
	}
	provUC := usecase.NewProvisioningUsecase(cmdUC, repos.Messenger,
		logger.With().Str("component", "provision").Logger())
	ucs := &biz.Usecases{
		Permission:   permUC,
		Command:      cmdUC,
		Provisioning: provUC,
	}

	// Initialize service and server layers
	dispatcher := service.NewDispatcher(ucs.Permission, ucs.Command, ucs.Provisioning, repos.Messenger,
		logger.With().Str("component", "dispatcher").Logger())
	srv := server.NewLarkServer(larkClient, dispatcher,
		logger.With().Str("component", "server").Logger())

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info().Msg("shutting down")
		srv.Stop()
		os.Exit(0)
	}()

	logger.Info().Msg("starting reply bot")
	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func setupLogger(cfg *conf.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	if cfg.Debug {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout}).Level(zerolog.DebugLevel)
	}
	return logger
}
