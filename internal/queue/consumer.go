package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// DigestHandler procesa un job. Un error se reintenta una vez salvo que envuelva ErrRejectJob.
type DigestHandler func(ctx context.Context, job DigestJob) error

const (
	consumerPrefetch = 10
	maxBackoff       = 30 * time.Second
)

// StartDigestConsumer consume hasta que ctx se cancela, reconectando con backoff exponencial.
func StartDigestConsumer(ctx context.Context, logger *zap.Logger, url string, handler DigestHandler) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	if url == "" {
		return errors.New("amqp url is required")
	}
	backoff := time.Second
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn("digest consumer dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = nextBackoff(backoff)
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, logger, conn, handler)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("digest consumer loop ended, reconnecting", zap.Error(err))
		if !sleepCtx(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, logger *zap.Logger, conn *amqp.Connection, handler DigestHandler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(consumerPrefetch, 0, false); err != nil {
		logger.Warn("digest consumer qos failed", zap.Error(err))
	}
	if err := declareDigestQueues(ch); err != nil {
		return err
	}
	msgs, err := ch.Consume(DigestQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	return drain(ctx, logger, msgs, handler)
}

func drain(ctx context.Context, logger *zap.Logger, msgs <-chan amqp.Delivery, handler DigestHandler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			handleDelivery(ctx, logger, d, handler)
		}
	}
}

func handleDelivery(ctx context.Context, logger *zap.Logger, d amqp.Delivery, handler DigestHandler) {
	var job DigestJob
	if err := json.Unmarshal(d.Body, &job); err != nil || job.Email == "" {
		logger.Warn("digest consumer rejected malformed job", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	if err := handler(ctx, job); err != nil {
		requeue := !errors.Is(err, ErrRejectJob) && !d.Redelivered
		logger.Error("digest job failed", zap.Error(err), zap.String("email", job.Email), zap.Bool("requeue", requeue))
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

func nextBackoff(current time.Duration) time.Duration {
	if current >= maxBackoff {
		return maxBackoff
	}
	next := current * 2
	if next > maxBackoff {
		next = maxBackoff
	}
	return next
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
