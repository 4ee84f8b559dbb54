package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"planfusion/internal/config"
	"planfusion/internal/db"
	"planfusion/internal/email"
	"planfusion/internal/queue"
	"planfusion/internal/repository"
	"planfusion/internal/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// digest corre desde cron: envia inline, encola un job por cuenta o consume la cola con -consume.
func main() {
	consume := flag.Bool("consume", false, "run the digest queue worker")
	flag.Parse()

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

	emailSender, err := email.FromConfig(cfg)
	if err != nil {
		logger.Warn("smtp sender init failed", zap.Error(err))
	}

	accountRepo := repository.NewPgAccountRepository(pool)
	dashboardSvc := service.NewDashboardService(
		logger,
		repository.NewPgTaskRepository(pool),
		repository.NewPgSkillRepository(pool),
		repository.NewPgGoalRepository(pool),
		repository.NewPgContactRepository(pool),
	)
	digestSvc := service.NewDigestService(logger, accountRepo, dashboardSvc, emailSender, cfg.EmailSendTimeout)

	switch {
	case *consume:
		if cfg.AMQPURL == "" {
			logger.Fatal("digest worker requires AMQP_URL")
		}
		logger.Info("starting digest worker")
		err := queue.StartDigestConsumer(ctx, logger, cfg.AMQPURL, func(ctx context.Context, job queue.DigestJob) error {
			err := digestSvc.SendDigest(ctx, job.Email)
			switch {
			case errors.Is(err, service.ErrNotificationsDisabled):
				return nil
			case errors.Is(err, service.ErrUnknownAccount):
				return fmt.Errorf("%w: %w", queue.ErrRejectJob, err)
			}
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("digest worker", zap.Error(err))
		}
	case cfg.AMQPURL != "":
		if err := publishAll(ctx, logger, cfg.AMQPURL, digestSvc); err != nil {
			logger.Fatal("publish digests", zap.Error(err))
		}
	default:
		summary, err := digestSvc.SendAll(ctx)
		if err != nil {
			logger.Fatal("send digests", zap.Error(err))
		}
		logger.Info("digests sent",
			zap.Int("sent", summary.Sent),
			zap.Int("skipped", summary.Skipped),
			zap.Int("failed", summary.Failed),
		)
	}
}

func publishAll(ctx context.Context, logger *zap.Logger, url string, digests *service.DigestService) error {
	publisher, err := queue.NewPublisher(url)
	if err != nil {
		return err
	}
	defer publisher.Close()

	emails, err := digests.Recipients(ctx)
	if err != nil {
		return err
	}
	requestedAt := time.Now().UTC()
	published := 0
	for _, addr := range emails {
		if err := publisher.PublishDigest(ctx, queue.DigestJob{Email: addr, RequestedAt: requestedAt}); err != nil {
			logger.Error("publish digest job failed", zap.Error(err), zap.String("email", addr))
			continue
		}
		published++
	}
	logger.Info("digest jobs published", zap.Int("published", published), zap.Int("accounts", len(emails)))
	return nil
}
