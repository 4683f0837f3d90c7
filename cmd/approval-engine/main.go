package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quyennt2020/device-repair-management-system-sub002/internal/api"
	"github.com/quyennt2020/device-repair-management-system-sub002/internal/config"
	"github.com/quyennt2020/device-repair-management-system-sub002/internal/db"
	"github.com/quyennt2020/device-repair-management-system-sub002/internal/jobs"
	"github.com/quyennt2020/device-repair-management-system-sub002/internal/model"
	"github.com/quyennt2020/device-repair-management-system-sub002/internal/notify"
	"github.com/quyennt2020/device-repair-management-system-sub002/internal/service"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Check for migrate command
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrations(cfg); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		os.Exit(0)
	}

	logger, err := newLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if len(os.Args) > 1 && os.Args[1] != "serve" {
		log.Fatalf("Unknown command: %s (use 'serve' or 'migrate')", os.Args[1])
	}

	// Database connection
	ctx := context.Background()
	dbPool, err := db.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	// Redis connection
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal("Failed to connect to Redis", zap.Error(err))
	}

	// Delivery transports
	transports := map[model.Channel]service.Transport{
		model.ChannelInApp: notify.NewInAppTransport(rdb, logger),
		model.ChannelEmail: notify.NewEmailTransport(notify.EmailConfig{
			Host:            cfg.Email.Host,
			Port:            cfg.Email.Port,
			Username:        cfg.Email.Username,
			Password:        cfg.Email.Password,
			From:            cfg.Email.From,
			FromName:        cfg.Email.FromName,
			RecipientDomain: cfg.Email.RecipientDomain,
		}),
	}
	if cfg.Webhook.URL != "" {
		transports[model.ChannelWebhook] = notify.NewWebhookTransport(notify.WebhookConfig{
			URL:     cfg.Webhook.URL,
			Timeout: cfg.Webhook.Timeout,
		})
	}
	if cfg.SMS.GatewayURL != "" {
		transports[model.ChannelSMS] = notify.NewSMSTransport(notify.SMSConfig{
			GatewayURL: cfg.SMS.GatewayURL,
			Sender:     cfg.SMS.Sender,
			Timeout:    cfg.SMS.Timeout,
		})
	}

	// Services
	queries := dbPool.Queries
	workflowSvc := service.NewWorkflowService(queries, logger)
	approvalSvc := service.NewApprovalService(queries, queries, workflowSvc, queries, queries, logger)
	notificationSvc := service.NewNotificationService(queries, queries, queries, transports, logger)
	notificationSvc.SetBatchSize(cfg.Scheduler.DispatchBatch)
	escalationSvc := service.NewEscalationService(queries, queries, workflowSvc, approvalSvc, logger)
	cycle := service.NewCycle(escalationSvc, notificationSvc, cfg.Retention(), logger)

	// Background jobs
	jobServer, jobClient := jobs.NewJobServer(cfg.Redis.Addr, cycle, notificationSvc, cfg.Scheduler.Interval, logger)
	approvalSvc.SetJobClient(jobs.NewAsynqJobClient(jobClient))

	go func() {
		if err := jobServer.Start(); err != nil {
			logger.Fatal("Job server failed", zap.Error(err))
		}
	}()
	defer jobServer.Stop()

	// Run one full cycle at startup so overdue work is not left waiting
	// for the first scheduled tick.
	if err := jobServer.EnqueueStartupCycle(); err != nil {
		logger.Warn("Failed to enqueue startup cycle", zap.Error(err))
	}

	// HTTP router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Mount("/v1", api.Routes(api.Dependencies{
		Workflows: workflowSvc,
		Approvals: approvalSvc,
		Log:       logger,
	}))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	logger.Info("Starting server", zap.String("addr", cfg.Server.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func newLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	if cfg.Format == "console" {
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = lvl
	}
	return zc.Build()
}
