package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planfusion/internal/config"
	"planfusion/internal/db"
	"planfusion/internal/email"
	apihttp "planfusion/internal/http"
	"planfusion/internal/repository"
	"planfusion/internal/service"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, pool); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	accountRepo := repository.NewPgAccountRepository(pool)
	lockoutRepo := repository.NewPgLockoutRepository(pool)
	otpRepo := repository.NewPgOTPRepository(pool)
	resetRepo := repository.NewPgPasswordResetRepository(pool)
	taskRepo := repository.NewPgTaskRepository(pool)
	skillRepo := repository.NewPgSkillRepository(pool)
	goalRepo := repository.NewPgGoalRepository(pool)
	contactRepo := repository.NewPgContactRepository(pool)

	emailSender, err := email.FromConfig(cfg)
	if err != nil {
		logger.Warn("smtp sender init failed", zap.Error(err))
	}

	sessionStore := service.NewMemorySessionStore()
	otpLimiter := service.NewOTPRateLimiter(cfg.OTPResendWindow, cfg.OTPResendLimit)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory sessions", zap.Error(err))
		} else {
			sessionStore = service.NewRedisSessionStore(redisClient)
			otpLimiter = service.NewRedisOTPRateLimiter(redisClient, cfg.OTPResendWindow, cfg.OTPResendLimit)
		}
		cancel()
	}

	resetSecret := cfg.ResetTokenSecret
	if resetSecret == "" {
		resetSecret = randomSecret()
		logger.Warn("reset token secret not configured, using an ephemeral one")
	}
	resetTokens := service.NewResetTokenService(resetSecret, 30*time.Minute)

	credentialSvc := service.NewCredentialService(logger, accountRepo, lockoutRepo, resetRepo, resetTokens, emailSender, service.CredentialOptions{
		AppBaseURL:  cfg.AppBaseURL,
		SendTimeout: cfg.EmailSendTimeout,
	})
	dashboardSvc := service.NewDashboardService(logger, taskRepo, skillRepo, goalRepo, contactRepo)
	authSvc := service.NewAuthService(logger, credentialSvc, lockoutRepo, otpRepo, sessionStore, emailSender, otpLimiter, dashboardSvc, service.AuthOptions{
		SessionTTL:    cfg.SessionTTL(),
		RememberMeTTL: cfg.RememberMeTTL(),
		PendingTTL:    cfg.PendingTTL(),
		SendTimeout:   cfg.EmailSendTimeout,
	})
	digestSvc := service.NewDigestService(logger, accountRepo, dashboardSvc, emailSender, cfg.EmailSendTimeout)

	authLimiter := apihttp.NewIPRateLimiter(cfg.AuthRatePerSecond, cfg.AuthRateBurst)
	go authLimiter.StartCleanupWorker(ctx, time.Minute)

	router := apihttp.NewRouter(logger, authSvc, authLimiter, cfg.TrustedProxies, apihttp.Handlers{
		Auth:      apihttp.NewAuthHandler(logger, authSvc, credentialSvc, cfg.CookieSecure),
		Dashboard: apihttp.NewDashboardHandler(logger, dashboardSvc, digestSvc),
		Tasks:     apihttp.NewTaskHandler(logger, service.NewTaskService(taskRepo)),
		Skills:    apihttp.NewSkillHandler(logger, service.NewSkillService(skillRepo)),
		Goals:     apihttp.NewGoalHandler(logger, service.NewGoalService(goalRepo)),
		Contacts:  apihttp.NewContactHandler(logger, service.NewContactService(contactRepo)),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server error", zap.Error(err))
	}
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
