package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"planfusion/internal/domain"
	"planfusion/internal/email"
	"planfusion/internal/repository"
)

// CredentialService administra cuentas, passwords y preferencias.
type CredentialService struct {
	logger      *zap.Logger
	accounts    repository.AccountRepository
	lockouts    repository.LockoutRepository
	resets      repository.PasswordResetRepository
	tokens      *ResetTokenService
	emailSender email.Sender
	baseURL     string
	sendTimeout time.Duration
	now         func() time.Time
}

type CredentialOptions struct {
	AppBaseURL  string
	SendTimeout time.Duration
}

func NewCredentialService(
	logger *zap.Logger,
	accounts repository.AccountRepository,
	lockouts repository.LockoutRepository,
	resets repository.PasswordResetRepository,
	tokens *ResetTokenService,
	emailSender email.Sender,
	opts CredentialOptions,
) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CredentialService{
		logger:      logger,
		accounts:    accounts,
		lockouts:    lockouts,
		resets:      resets,
		tokens:      tokens,
		emailSender: emailSender,
		baseURL:     strings.TrimRight(opts.AppBaseURL, "/"),
		sendTimeout: opts.SendTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *CredentialService) Register(ctx context.Context, name, emailAddr, password string) (domain.Account, error) {
	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.Account{}, invalidInput("email", "is required")
	}
	if err := ValidatePassword(password); err != nil {
		return domain.Account{}, err
	}

	_, err := s.accounts.GetByEmail(ctx, emailAddr)
	if err == nil {
		return domain.Account{}, ErrDuplicateAccount
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.Account{}, storageError("get account", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return domain.Account{}, err
	}
	account := domain.Account{
		Email:        emailAddr,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		Preferences:  domain.DefaultNotificationPreferences(),
		CreatedAt:    s.now(),
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return domain.Account{}, ErrDuplicateAccount
		}
		return domain.Account{}, storageError("create account", err)
	}
	return account, nil
}

// Verify devuelve false sin error cuando el password no coincide.
func (s *CredentialService) Verify(ctx context.Context, emailAddr, password string) (bool, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUnknownAccount
		}
		return false, storageError("get account", err)
	}
	if account.PasswordHash == "" {
		return false, nil
	}
	return bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) == nil, nil
}

func (s *CredentialService) ResetPassword(ctx context.Context, emailAddr, newHash string) error {
	if err := s.accounts.UpdatePasswordHash(ctx, normalizeEmail(emailAddr), newHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnknownAccount
		}
		return storageError("update password", err)
	}
	return nil
}

func (s *CredentialService) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = normalizeEmail(emailAddr)
	if _, err := s.accounts.GetByEmail(ctx, emailAddr); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnknownAccount
		}
		return storageError("get account", err)
	}

	issued, err := s.tokens.Issue(emailAddr)
	if err != nil {
		return err
	}
	if err := s.resets.Create(ctx, domain.PasswordReset{
		ID:        issued.ID,
		Email:     emailAddr,
		ExpiresAt: issued.ExpiresAt,
		CreatedAt: s.now(),
	}); err != nil {
		return storageError("create password reset", err)
	}

	link := fmt.Sprintf("%s/reset_password/%s", s.baseURL, issued.Token)
	msg := email.Message{
		To:      emailAddr,
		Subject: "Password Reset Request",
		Body: fmt.Sprintf(
			"To reset your password, visit the following link:\n%s\n\nThis link expires in 30 minutes. If you did not make this request, ignore this email.",
			link,
		),
	}
	if err := dispatchEmail(ctx, s.emailSender, s.sendTimeout, msg); err != nil {
		s.logger.Warn("send password reset failed", zap.Error(err), zap.String("email", emailAddr))
		return err
	}
	return nil
}

func (s *CredentialService) CompletePasswordReset(ctx context.Context, token, newPassword, confirm string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return err
	}
	if newPassword != confirm {
		return ErrPasswordMismatch
	}
	if err := ValidatePassword(newPassword); err != nil {
		return err
	}

	reset, err := s.resets.Consume(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResetTokenInvalid
		}
		return storageError("consume password reset", err)
	}
	if reset.Email != claims.Email {
		return ErrResetTokenInvalid
	}
	if s.now().After(reset.ExpiresAt) {
		return ErrResetTokenExpired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := s.ResetPassword(ctx, reset.Email, string(hash)); err != nil {
		return err
	}
	if err := s.lockouts.Reset(ctx, reset.Email); err != nil {
		return storageError("reset lockout", err)
	}
	return nil
}

func (s *CredentialService) Preferences(ctx context.Context, emailAddr string) (domain.NotificationPreferences, error) {
	account, err := s.accounts.GetByEmail(ctx, normalizeEmail(emailAddr))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotificationPreferences{}, ErrUnknownAccount
		}
		return domain.NotificationPreferences{}, storageError("get account", err)
	}
	return account.Preferences, nil
}

func (s *CredentialService) UpdatePreferences(ctx context.Context, emailAddr string, prefs domain.NotificationPreferences) error {
	if err := s.accounts.UpdatePreferences(ctx, normalizeEmail(emailAddr), prefs); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUnknownAccount
		}
		return storageError("update preferences", err)
	}
	return nil
}
