package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"loan_interest_accrual/internal/app"
	"loan_interest_accrual/internal/domain/messaging"
	"loan_interest_accrual/internal/infra/auth"
	"loan_interest_accrual/internal/infra/config"
	idb "loan_interest_accrual/internal/infra/database"
	"loan_interest_accrual/internal/infra/health"
	"loan_interest_accrual/internal/infra/logger"
	"loan_interest_accrual/internal/infra/scheduler"
	"loan_interest_accrual/internal/infra/telegram"

	"gopkg.in/telebot.v3"
)

func main() {
	runOnce := flag.Bool("run-once", false, "run one accrual batch immediately and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Log.Fatalf("Could not load application configuration: %v", err)
	}
	logger.Init(cfg)
	mainLogger := logger.WithComponent("main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := idb.NewPostgresConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		mainLogger.Fatalf("Could not connect to database: %v", err)
	}
	defer db.Close()
	mainLogger.Info("Database connection established successfully.")

	// Repositories
	loanRepo := idb.NewPostgresLoanRepository(db)
	applicationRepo := idb.NewPostgresLoanApplicationRepository(db)
	interestRepo := idb.NewPostgresInterestRepository(db)
	delinquencyRepo := idb.NewPostgresDelinquencyRepository(db)
	alertRepo := idb.NewPostgresAlertProfileRepository(db)

	// Notification channel
	var bot *telebot.Bot
	var messenger messaging.Client = telegram.NewLogClient(logger.WithComponent("notifications"))
	if cfg.TelegramToken != "" {
		bot, err = telebot.NewBot(telebot.Settings{
			Token:  cfg.TelegramToken,
			Poller: &telebot.LongPoller{Timeout: 10 * time.Second},
			OnError: func(err error, c telebot.Context) {
				logger.WithComponent("telebot").WithError(err).Error("Telegram bot error")
			},
		})
		if err != nil {
			mainLogger.Fatalf("Could not create Telegram bot: %v", err)
		}
		messenger = telegram.NewTelebotAdapter(bot)
	} else {
		mainLogger.Warn("TELEGRAM_TOKEN not set, batch notifications will only be logged")
	}

	notifier := app.NewNotifier(alertRepo, messenger, logger.WithComponent("notifier"))
	delinquencyService := app.NewDelinquencyService(delinquencyRepo).WithLocation(cfg.Location)
	// Days are counted in the same zone the scheduler fires in.
	interestService := app.NewInterestService(
		loanRepo,
		applicationRepo,
		interestRepo,
		notifier,
		logger.WithComponent("interest_service"),
	).WithLocation(cfg.Location).WithBuckets(delinquencyService)

	tokens := auth.NewJWTTokenProvider(cfg.ServiceTokenSecret, cfg.ServiceTokenSubject, cfg.ServiceTokenTTL)

	accrualScheduler := scheduler.NewAccrualScheduler(interestService, tokens, logger.WithComponent("scheduler"), scheduler.Options{
		RunHour:       cfg.RunHour,
		RunMinute:     cfg.RunMinute,
		Location:      cfg.Location,
		HeartbeatSpec: cfg.HeartbeatSpec,
	})

	if *runOnce {
		if err := accrualScheduler.RunNow(ctx); err != nil {
			mainLogger.WithError(err).Error("Accrual batch failed")
			os.Exit(1)
		}
		mainLogger.Info("Accrual batch finished.")
		return
	}

	if err := accrualScheduler.Start(ctx); err != nil {
		mainLogger.Fatalf("Could not start accrual scheduler: %v", err)
	}

	if bot != nil {
		telegram.RegisterBotCommands(ctx, bot, alertRepo, accrualScheduler, logger.WithComponent("telegram"))
		go bot.Start()
	}

	var healthServer *http.Server
	if cfg.HealthAddr != "" {
		healthServer = &http.Server{
			Addr:              cfg.HealthAddr,
			Handler:           health.NewRouter(accrualScheduler),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			mainLogger.WithField("addr", cfg.HealthAddr).Info("Health endpoint listening")
			if err := healthServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				mainLogger.WithError(err).Error("Health endpoint stopped")
			}
		}()
	}

	mainLogger.Info("Application setup complete. Accrual scheduler is running.")

	<-ctx.Done() // Block until a signal is received

	mainLogger.Info("Shutting down application...")
	accrualScheduler.Stop()
	if bot != nil {
		bot.Stop()
	}
	if healthServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = healthServer.Shutdown(shutdownCtx)
	}
	mainLogger.Info("Application shut down gracefully.")
}
