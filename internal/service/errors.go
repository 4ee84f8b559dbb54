package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownAccount             = errors.New("unknown account")
	ErrDuplicateAccount           = errors.New("duplicate account")
	ErrWeakPassword               = errors.New("weak password")
	ErrAccountLocked              = errors.New("account locked")
	ErrIncorrectPassword          = errors.New("incorrect password")
	ErrOTPNotFound                = errors.New("otp not found")
	ErrOTPExpired                 = errors.New("otp expired")
	ErrOTPMismatch                = errors.New("otp mismatch")
	ErrSkillNotFound              = errors.New("skill not found")
	ErrDayNotFound                = errors.New("day not found")
	ErrNotificationDeliveryFailed = errors.New("notification delivery failed")
	ErrStorageFailure             = errors.New("storage failure")

	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("not found")
	ErrDuplicateTask         = errors.New("duplicate task")
	ErrRateLimited           = errors.New("rate limited")
	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrResetTokenInvalid     = errors.New("reset token invalid")
	ErrResetTokenExpired     = errors.New("reset token expired")
	ErrNotificationsDisabled = errors.New("notifications disabled")
)

// Reglas de password en el orden en que se evaluan.
const (
	RuleMinLength        = "min_length"
	RuleUppercase        = "uppercase"
	RuleSpecialCharacter = "special_character"
)

// WeakPasswordError indica la primera regla incumplida.
type WeakPasswordError struct {
	Rule string
}

func (e *WeakPasswordError) Error() string {
	return fmt.Sprintf("weak password: %s", e.Rule)
}

func (e *WeakPasswordError) Is(target error) bool {
	return target == ErrWeakPassword
}

// AccountLockedError lleva los minutos restantes redondeados hacia arriba.
type AccountLockedError struct {
	RemainingMinutes int
	Until            time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked for %d more minutes", e.RemainingMinutes)
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

type IncorrectPasswordError struct {
	RemainingAttempts int
	LockedUntil       *time.Time
}

func (e *IncorrectPasswordError) Error() string {
	if e.LockedUntil != nil {
		return "incorrect password: account locked"
	}
	return fmt.Sprintf("incorrect password: %d attempts remaining", e.RemainingAttempts)
}

func (e *IncorrectPasswordError) Is(target error) bool {
	return target == ErrIncorrectPassword
}

// storageError envuelve errores de repositorio con la operacion que fallo.
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageFailure, err)
}

func invalidInput(field, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidInput, field, reason)
}
