package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Hazher89/oppdrag-app/api/routes"
	"github.com/Hazher89/oppdrag-app/internal/admin"
	"github.com/Hazher89/oppdrag-app/internal/assignments"
	"github.com/Hazher89/oppdrag-app/internal/auth"
	"github.com/Hazher89/oppdrag-app/internal/chat"
	"github.com/Hazher89/oppdrag-app/internal/notify"
	"github.com/Hazher89/oppdrag-app/internal/realtime"
	"github.com/Hazher89/oppdrag-app/internal/uploads"
	"github.com/Hazher89/oppdrag-app/internal/users"
	"github.com/Hazher89/oppdrag-app/pkg/config"
	"github.com/Hazher89/oppdrag-app/pkg/db"
	"github.com/Hazher89/oppdrag-app/pkg/logger"
	"github.com/Hazher89/oppdrag-app/pkg/metrics"
	"github.com/Hazher89/oppdrag-app/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if cfg.App.AutoMigrate {
		if err := dbClient.AutoMigrate(context.Background()); err != nil {
			logg.Error(context.Background(), "failed to run auto migrations", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPMetrics(registry)
	wsMetrics := metrics.NewWebsocketMetrics(registry)

	uploadStore, err := uploads.NewStore(cfg.Uploads)
	if err != nil {
		logg.Error(context.Background(), "failed to prepare upload store", err)
		os.Exit(1)
	}

	notifier := notify.NewNotifier(cfg.Email, cfg.SMS, logg)
	hub := realtime.NewHub(wsMetrics)
	userRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       userRepo,
		Notifier:       notifier,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	assignmentRepo := assignments.NewRepository(dbClient.DB())
	assignmentService, err := assignments.NewService(assignments.ServiceParams{
		Repo:     assignmentRepo,
		Users:    userRepo,
		Events:   hub,
		Notifier: notifier,
		Files:    uploadStore,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create assignment service", err)
		os.Exit(1)
	}

	chatService, err := chat.NewService(chat.ServiceParams{
		Repo:   chat.NewRepository(dbClient.DB()),
		Users:  userRepo,
		Tx:     dbClient,
		Events: hub,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create chat service", err)
		os.Exit(1)
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		Stats:          admin.NewRepository(dbClient.DB()),
		Users:          userRepo,
		Assignments:    assignmentService,
		ActiveCounter:  assignmentRepo,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create admin service", err)
		os.Exit(1)
	}

	handler := routes.New(routes.Deps{
		Config:            cfg,
		Logger:            logg,
		Database:          dbClient,
		Redis:             redisClient,
		Registry:          registry,
		HTTPMetrics:       httpMetrics,
		ActorLoader:       userRepo,
		Uploads:           uploadStore,
		Hub:               hub,
		AuthService:       authService,
		AssignmentService: assignmentService,
		ChatService:       chatService,
		AdminService:      adminService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case sig := <-stop:
		logg.Info(logg.WithField(ctx, "signal", sig.String()), "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
