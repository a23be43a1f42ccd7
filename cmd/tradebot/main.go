// tradebot runs one trading bot account.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/tradebot/internal/bot"
	"github.com/ashureev/tradebot/internal/config"
	"github.com/ashureev/tradebot/internal/handlers"
	"github.com/ashureev/tradebot/internal/logging"
	"github.com/ashureev/tradebot/internal/operator"
	"github.com/ashureev/tradebot/internal/store"
	"github.com/ashureev/tradebot/internal/trade"
	"github.com/ashureev/tradebot/internal/transport"
	"github.com/ashureev/tradebot/internal/webapi"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		slog.Error("tradebot failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	var botFile, envFile string
	flagSet := pflag.NewFlagSet("tradebot", pflag.ContinueOnError)
	flagSet.StringVarP(&botFile, "config", "c", "bot.toml", "path to the bot definition (TOML)")
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		slog.Info("No .env file found, using environment variables", "path", envFile)
	}

	cfg, err := config.Load(botFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	if err := repo.Ping(context.Background()); err != nil {
		return fmt.Errorf("database health check: %w", err)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	web, err := webapi.New(cfg.WebURL, logger, webapi.WithAPIKey(cfg.Bot.APIKey))
	if err != nil {
		return fmt.Errorf("initialize web client: %w", err)
	}
	client := transport.NewWSClient(cfg.GatewayURL, logger)
	defer func() { _ = client.Close() }()

	factory, err := handlers.Factory(cfg.Bot.BotControlClass)
	if err != nil {
		return err
	}

	// Codes come from the terminal when there is one, otherwise from POST /api/auth.
	var creds bot.CredentialProvider
	var codes operator.CodeSink
	if term.IsTerminal(int(os.Stdin.Fd())) {
		creds = bot.NewConsoleCredentials(os.Stdin, os.Stdout)
	} else {
		ch := bot.NewChannelCredentials()
		creds, codes = ch, ch
	}

	botCfg, err := botConfig(cfg)
	if err != nil {
		return err
	}
	health := operator.NewHealth(logger)
	b, err := bot.New(botCfg, bot.Deps{
		Client:      client,
		Web:         web,
		Store:       repo,
		Handlers:    factory,
		Credentials: creds,
	}, bot.WithStateObserver(health.Observe))
	if err != nil {
		return fmt.Errorf("create bot: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := operator.NewServer(cfg.OperatorAddr, operator.NewHandler(b, codes, logger), cfg.OperatorToken, logger)
	go func() {
		slog.Info("Operator API listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Operator API failed", "error", err)
			stop()
		}
	}()

	if cfg.HealthAddr != "" {
		lis, err := net.Listen("tcp", cfg.HealthAddr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", cfg.HealthAddr, err)
		}
		grpcSrv := operator.NewGRPCServer(health)
		defer grpcSrv.GracefulStop()
		go func() {
			slog.Info("Health service listening", "addr", cfg.HealthAddr)
			if err := grpcSrv.Serve(lis); err != nil {
				slog.Error("Health service failed", "error", err)
			}
		}()
	}

	if err := b.Start(ctx); err != nil {
		return fmt.Errorf("start bot: %w", err)
	}

	var loopErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutting down gracefully...")
		loopErr = b.Stop()
	case <-b.Done():
		loopErr = b.Stop()
		stop()
	}
	health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Operator API forced to shutdown", "error", err)
	}

	if loopErr != nil {
		return fmt.Errorf("bot stopped: %w", loopErr)
	}
	slog.Info("Bot stopped successfully")
	return nil
}

func botConfig(cfg *config.Config) (bot.Config, error) {
	info := cfg.Bot
	inventories, err := info.InventoryContexts()
	if err != nil {
		return bot.Config{}, err
	}
	maxDuration, actionGap, pollInterval := info.TradeLimits()
	consoleLevel, fileLevel, notes := info.LogLevels()
	for _, n := range notes {
		slog.Warn(n)
	}

	return bot.Config{
		Username:          info.Username,
		Password:          info.Password,
		DisplayName:       info.DisplayName,
		DisplayNamePrefix: info.DisplayNamePrefix,
		ChatResponse:      info.ChatResponse,
		Admins:            info.AdminIDs(),
		Inventories:       inventories,
		TradeLimits: trade.Limits{
			MaxDuration:  maxDuration,
			ActionGap:    actionGap,
			PollInterval: pollInterval,
		},
		WebAuthRetryDelay: cfg.WebAuthRetryDelay,
		TransportCooldown: cfg.TransportCooldown,
		OfferPollInterval: cfg.OfferPollInterval,
		Log: logging.Options{
			Name:         info.DisplayName,
			ConsoleLevel: consoleLevel,
			FileLevel:    fileLevel,
			FilePath:     info.LogFile,
		},
	}, nil
}
