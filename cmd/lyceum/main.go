package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lyceum-app/lyceum/internal/app"
	"github.com/lyceum-app/lyceum/internal/audit"
	"github.com/lyceum-app/lyceum/internal/auth"
	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/classroom"
	"github.com/lyceum-app/lyceum/internal/platform/cache"
	"github.com/lyceum-app/lyceum/internal/platform/db"
	"github.com/lyceum-app/lyceum/internal/policy"
	"github.com/lyceum-app/lyceum/internal/ratelimit"
	"github.com/lyceum-app/lyceum/internal/school"
	"github.com/lyceum-app/lyceum/internal/sequence"
	"github.com/lyceum-app/lyceum/internal/student"
	"github.com/lyceum-app/lyceum/internal/token"
	"github.com/lyceum-app/lyceum/internal/transfer"
	"github.com/lyceum-app/lyceum/internal/user"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := audit.NewLogger(dbpool, logger)

	sessionRepo := token.NewRepository(dbpool)
	tokenService := token.NewService(sessionRepo, token.Config{
		AccessSecret: []byte(cfg.AccessTokenSecret),
		AccessTTL:    cfg.AccessTokenTTL,
		SessionTTL:   cfg.SessionTTL,
	})

	policies := policy.Default()
	limiter := ratelimit.New(redisClient, logger)
	guard := authz.Middleware{
		Tokens:   tokenService,
		Policies: policies,
		Limiter:  limiter,
		Logger:   logger,
	}

	userRepo := user.NewRepository(dbpool)
	authService := auth.NewService(userRepo, tokenService, auditLogger)
	authHandler := auth.NewHandler(logger, authService, guard)

	schoolRepo := school.NewRepository(dbpool)
	schoolService := school.NewService(schoolRepo, userRepo, auditLogger)
	schoolHandler := school.NewHandler(logger, schoolService, guard)

	classroomRepo := classroom.NewRepository(dbpool)
	classroomService := classroom.NewService(classroomRepo, schoolRepo, auditLogger)
	classroomHandler := classroom.NewHandler(logger, classroomService, guard)

	sequences := sequence.NewGenerator(dbpool)
	studentRepo := student.NewRepository(dbpool)
	studentService := student.NewService(studentRepo, schoolRepo, classroomRepo, sequences, auditLogger)
	studentHandler := student.NewHandler(logger, studentService, guard)

	transferRepo := transfer.NewRepository(dbpool)
	transferService := transfer.NewService(transferRepo, studentRepo, schoolRepo, classroomRepo, auditLogger)
	transferHandler := transfer.NewHandler(logger, transferService, guard)

	router, err := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Guard:            guard,
		Policies:         policies,
		AuthHandler:      authHandler,
		SchoolHandler:    schoolHandler,
		ClassroomHandler: classroomHandler,
		StudentHandler:   studentHandler,
		TransferHandler:  transferHandler,
	})
	if err != nil {
		logger.Error("build router", slog.Any("error", err))
		os.Exit(1)
	}

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
