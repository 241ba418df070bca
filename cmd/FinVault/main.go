package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	database "github.com/finvault/FinVault/db"
	"github.com/finvault/FinVault/internal/email"
	"github.com/finvault/FinVault/internal/finance/application"
	"github.com/finvault/FinVault/internal/finance/currency"
	"github.com/finvault/FinVault/internal/finance/infrastructure"
	"github.com/finvault/FinVault/internal/finance/interfaces"
	"github.com/finvault/FinVault/internal/identity"
	"github.com/finvault/FinVault/internal/logging"
)

func main() {
	logger := logging.New(logging.DefaultConfig())

	if err := godotenv.Load(); err != nil {
		logger.Info("no .env file, using system environment variables")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	dbService, err := database.NewDBService()
	if err != nil {
		logger.Error("could not initialize database", "error", err)
		os.Exit(1)
	}
	defer dbService.Close()

	if err := database.RunMigrations(dbService.DB); err != nil {
		logger.Error("could not run migrations", "error", err)
		os.Exit(1)
	}

	mailer, err := email.NewService(email.Config{
		From:     os.Getenv("EMAIL_ADDRESS"),
		Password: os.Getenv("EMAIL_PASSWORD"),
		Host:     envOr("SMTP_HOST", "smtp.gmail.com"),
		Port:     envOr("SMTP_PORT", "587"),
	}, logger)
	if err != nil {
		logger.Error("could not initialize email service", "error", err)
		os.Exit(1)
	}
	defer mailer.Close()

	// Identity stack.
	userRepo := identity.NewRepository(dbService.DB)
	sessions := identity.NewSessionStore()
	sessions.StartCleanup(time.Minute)
	identityService := identity.NewService(
		userRepo,
		mailer,
		identity.NewTokenManager(jwtSecret),
		identity.NewTOTPAuthenticator("FinVault"),
		sessions,
		logger,
	)
	identityHandler := identity.NewHandler(identityService, logger)

	// Finance stack.
	accountRepo := infrastructure.NewAccountRepository(dbService.DB)
	transactionRepo := infrastructure.NewTransactionRepository(dbService.DB)
	budgetRepo := infrastructure.NewBudgetRepository(dbService.DB)
	debtRepo := infrastructure.NewDebtRepository(dbService.DB)
	goalRepo := infrastructure.NewGoalRepository(dbService.DB)
	investmentRepo := infrastructure.NewInvestmentRepository(dbService.DB)

	converter := currency.NewClient(os.Getenv("EXCHANGE_RATE_API_URL"), logger)
	goalNotifier := email.NewGoalNotifier(mailer, userRepo, logger)

	accountService := application.NewAccountService(accountRepo, transactionRepo, logger)
	transactionService := application.NewTransactionService(transactionRepo, accountService, converter, logger)
	budgetService := application.NewBudgetService(budgetRepo, transactionRepo, logger)
	debtService := application.NewDebtService(debtRepo, logger)
	goalService := application.NewGoalService(goalRepo, goalNotifier, logger)
	investmentService := application.NewInvestmentService(investmentRepo, logger)
	dashboardService := application.NewDashboardService(
		accountRepo, transactionRepo, goalRepo, debtRepo, investmentRepo, budgetService, logger)
	recurrenceService := application.NewRecurrenceService(transactionRepo, budgetRepo, accountService, logger)

	mux := http.NewServeMux()
	identityHandler.RegisterRoutes(mux)
	interfaces.Handlers{
		Accounts:     interfaces.NewAccountHandler(accountService, logger),
		Transactions: interfaces.NewTransactionHandler(transactionService, logger),
		Budgets:      interfaces.NewBudgetHandler(budgetService, logger),
		Debts:        interfaces.NewDebtHandler(debtService, logger),
		Goals:        interfaces.NewGoalHandler(goalService, logger),
		Investments:  interfaces.NewInvestmentHandler(investmentService, logger),
		Dashboard:    interfaces.NewDashboardHandler(dashboardService, logger),
	}.RegisterRoutes(mux, identityService.RequireAccessToken)
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"` + dbService.Health()["status"] + `"}`))
	})

	scheduler, err := startRecurrenceSweep(recurrenceService, goalService, logger)
	if err != nil {
		logger.Error("could not start recurrence scheduler", "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	addr := ":" + envOr("PORT", "8080")
	server := &http.Server{
		Addr:              addr,
		Handler:           requestLogging(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

// startRecurrenceSweep runs the daily sweep that materializes recurring
// transactions, rolls over expired budgets and sends approaching-deadline
// goal notices. SkipIfStillRunning keeps a long sweep from stacking up.
func startRecurrenceSweep(service *application.RecurrenceService, goals *application.GoalService, logger *logging.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		result, err := service.RunDue(ctx, time.Now())
		if err != nil {
			logger.Error("recurrence sweep failed", "error", err)
			return
		}
		notices, err := goals.NotifyApproachingDeadlines(ctx, time.Now())
		if err != nil {
			logger.Error("goal deadline sweep failed", "error", err)
		}
		logger.Info("recurrence sweep finished",
			"transactions_created", result.TransactionsCreated,
			"budgets_rolled", result.BudgetsRolled,
			"goal_deadline_notices", notices)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func requestLogging(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Log(r.Context(), slog.LevelInfo, "request",
			"method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
