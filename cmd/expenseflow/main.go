package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/expenseflow/expenseflow/internal/alerts"
	"github.com/expenseflow/expenseflow/internal/app"
	"github.com/expenseflow/expenseflow/internal/auth"
	"github.com/expenseflow/expenseflow/internal/cache"
	"github.com/expenseflow/expenseflow/internal/categories"
	"github.com/expenseflow/expenseflow/internal/dashboard"
	"github.com/expenseflow/expenseflow/internal/departments"
	"github.com/expenseflow/expenseflow/internal/expenses"
	"github.com/expenseflow/expenseflow/internal/files"
	"github.com/expenseflow/expenseflow/internal/notify"
	"github.com/expenseflow/expenseflow/internal/observability"
	platformcache "github.com/expenseflow/expenseflow/internal/platform/cache"
	"github.com/expenseflow/expenseflow/internal/platform/db"
	"github.com/expenseflow/expenseflow/internal/reports"
	"github.com/expenseflow/expenseflow/internal/tags"
	"github.com/expenseflow/expenseflow/internal/users"
	"github.com/expenseflow/expenseflow/jobs"
	"github.com/expenseflow/expenseflow/report"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := platformcache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	store := cache.NewStore(redisClient)
	mailer := notify.NewMailer(notify.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		From: cfg.SMTPFrom,
	})
	broadcaster := notify.NewRedisBroadcaster(redisClient)
	dispatcher := notify.NewDispatcher(logger, mailer, broadcaster)

	uploads, err := files.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Error("init upload store", slog.Any("error", err))
		os.Exit(1)
	}

	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, cfg.JWTSecret)
	authMiddleware := &auth.Middleware{Secret: cfg.JWTSecret}

	usersRepo := users.NewRepository(pool)
	usersService := users.NewService(logger, usersRepo, store, dispatcher)
	usersHandler := users.NewHandler(logger, usersService)

	expensesRepo := expenses.NewRepository(pool)
	expensesService := expenses.NewService(logger, expensesRepo, usersRepo, store, dispatcher)
	expensesHandler := expenses.NewHandler(logger, expensesService, uploads)

	departmentsRepo := departments.NewRepository(pool)
	departmentsService := departments.NewService(logger, departmentsRepo, store)
	departmentsHandler := departments.NewHandler(logger, departmentsService)

	tagsHandler := tags.NewHandler(logger, tags.NewRepository(pool))
	categoriesHandler := categories.NewHandler(logger, categories.NewRepository(pool), store)

	dashboardService := dashboard.NewService(dashboard.NewRepository(pool), store)
	dashboardHandler := dashboard.NewHandler(logger, dashboardService)

	queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queue.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	alertsRepo := alerts.NewRepository(pool)
	alertsHandler := alerts.NewHandler(logger, alertsRepo, queue)

	pdfClient := report.NewClient(cfg.GotenbergURL)
	reportsHandler := reports.NewHandler(logger, reports.NewRepository(pool), pdfClient)

	cacheHandler := cache.NewHandler(logger, store)

	metrics := observability.NewMetrics()

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		Auth:               authMiddleware,
		AuthHandler:        authHandler,
		UsersHandler:       usersHandler,
		ExpensesHandler:    expensesHandler,
		DepartmentsHandler: departmentsHandler,
		TagsHandler:        tagsHandler,
		CategoriesHandler:  categoriesHandler,
		DashboardHandler:   dashboardHandler,
		AlertsHandler:      alertsHandler,
		ReportsHandler:     reportsHandler,
		CacheHandler:       cacheHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
		UploadDir:          uploads.Dir(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
