package service

import (
	"context"
	"fmt"
	"time"

	"planfusion/internal/email"
)

const defaultSendTimeout = 10 * time.Second

// dispatchEmail acota el envio a timeout aunque el sender ignore el contexto.
func dispatchEmail(ctx context.Context, sender email.Sender, timeout time.Duration, msg email.Message) error {
	if sender == nil {
		return fmt.Errorf("%w: sender not configured", ErrNotificationDeliveryFailed)
	}
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- sender.Send(ctx, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%w: %w", ErrNotificationDeliveryFailed, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrNotificationDeliveryFailed, ctx.Err())
	}
}
