package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/ai-relay-tgbot-go/internal/config"
	"github.com/ai-relay-tgbot-go/internal/handlers"
	"github.com/ai-relay-tgbot-go/internal/i18n"
	"github.com/ai-relay-tgbot-go/internal/middleware"
	"github.com/ai-relay-tgbot-go/internal/services/ai"
	"github.com/ai-relay-tgbot-go/internal/services/response"
	"github.com/ai-relay-tgbot-go/internal/services/storage"
	"github.com/ai-relay-tgbot-go/internal/services/telegram"
	"github.com/ai-relay-tgbot-go/pkg/logger"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, envFile string

	cmd := &cobra.Command{
		Use:           "relay-bot",
		Short:         "Telegram bot relaying messages to an LLM completion API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, envFile)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "configs/config.yaml", "Path to configuration file")
	cmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Path to .env file")

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	})

	return cmd
}

func run(configPath, envFile string) error {
	// Load .env file if exists
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Warning: failed to load %s: %v\n", envFile, err)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return err
	}

	log, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return err
	}

	log.WithField("version", version).Info("Starting relay bot...")

	bot, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		log.WithError(err).Error("Failed to create bot")
		return err
	}
	bot.Debug = cfg.Logging.Level == "debug"
	log.WithField("username", bot.Self.UserName).Info("Bot authorized")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := middleware.NewMetrics()

	storageManager, err := storage.NewManager(&cfg.Storage, metrics, log)
	if err != nil {
		log.WithError(err).Error("Failed to initialize storage")
		return err
	}
	defer storageManager.Close()

	localizer, err := i18n.NewLocalizer(&cfg.I18n)
	if err != nil {
		log.WithError(err).Error("Failed to initialize i18n")
		return err
	}

	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	aiClient := ai.NewClient(&cfg.Model, log)
	sender := telegram.NewSender(bot, &cfg.Bot, log)
	processor := response.NewProcessor(response.DefaultCatalogue())

	messageHandler := handlers.NewMessageHandler(
		cfg,
		sender,
		aiClient,
		rateLimiter,
		processor,
		storageManager,
		localizer,
		metrics,
		log,
	)
	commandHandler := handlers.NewCommandHandler(
		sender,
		rateLimiter,
		storageManager,
		localizer,
		log,
		cfg.Model.Name(),
		version,
	)

	var metricsServer *http.Server
	if cfg.Monitoring.Metrics.Enabled {
		metricsServer = middleware.NewMetricsServer(cfg.Monitoring.Metrics.Port, cfg.Monitoring.Metrics.Path)
		go func() {
			log.WithFields(logrus.Fields{
				"port": cfg.Monitoring.Metrics.Port,
				"path": cfg.Monitoring.Metrics.Path,
			}).Info("Starting metrics server")

			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	go startPeriodicTasks(ctx, rateLimiter, metrics)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = cfg.Bot.UpdateTimeout
	updates := bot.GetUpdatesChan(u)
	log.Info("Using long polling")

	// In-flight handlers outlive the signal so their replies still go out.
	handlerCtx := context.WithoutCancel(ctx)
	var wg sync.WaitGroup

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case update, ok := <-updates:
			if !ok {
				break loop
			}
			dispatch(handlerCtx, &wg, update, messageHandler, commandHandler, metrics, log)
		}
	}

	log.Info("Shutdown signal received")
	bot.StopReceivingUpdates()

	if !waitTimeout(&wg, shutdownTimeout) {
		log.WithField("timeout", shutdownTimeout).Warn("Timed out waiting for in-flight messages")
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Failed to stop metrics server")
		}
		cancel()
	}

	log.Info("Bot stopped")
	return nil
}

// dispatch hands one update to its own goroutine so a slow completion never
// blocks the update loop.
func dispatch(
	ctx context.Context,
	wg *sync.WaitGroup,
	update tgbotapi.Update,
	messageHandler *handlers.MessageHandler,
	commandHandler *handlers.CommandHandler,
	metrics *middleware.Metrics,
	log *logrus.Logger,
) {
	message := update.Message
	if message == nil || message.From == nil || message.From.IsBot || message.Text == "" {
		return
	}

	metrics.RecordMessageReceived(message.Chat.Type)
	in := handlers.FromTelegram(message)

	wg.Add(1)
	go func() {
		defer wg.Done()

		var err error
		if message.IsCommand() {
			metrics.RecordCommandExecuted(message.Command())
			err = commandHandler.HandleCommand(ctx, in, message.Command())
			if err != nil {
				logger.WithContext(log, in.ChatID, in.UserID).WithError(err).Error("Failed to handle command")
			}
		} else {
			err = messageHandler.HandleMessage(ctx, in)
		}

		if err != nil {
			metrics.RecordMessageProcessed("error")
		} else {
			metrics.RecordMessageProcessed("success")
		}
	}()
}

// startPeriodicTasks starts periodic background tasks
func startPeriodicTasks(ctx context.Context, rateLimiter *middleware.UserRateLimiter, metrics *middleware.Metrics) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.SetActiveUsers(float64(rateLimiter.ActiveUsers()))
		}
	}
}

func waitTimeout(wg *sync.WaitGroup, timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
