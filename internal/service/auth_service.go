package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"planfusion/internal/domain"
	"planfusion/internal/email"
	"planfusion/internal/repository"
)

const (
	maxFailedAttempts = 3
	lockoutDuration   = time.Hour
	otpTTL            = 10 * time.Minute

	otpSubject  = "Your PlanFusion Login Code"
	otpBodyTmpl = "Your one-time login code is: %s\nThis code expires in 10 minutes."
)

// PasswordVerifier compara un password contra la credencial guardada.
type PasswordVerifier interface {
	Verify(ctx context.Context, email, password string) (bool, error)
}

// NotificationCounter calcula el badge de notificaciones de un usuario.
type NotificationCounter interface {
	NotificationCount(ctx context.Context, email string) (int, error)
}

type AuthOptions struct {
	SessionTTL    time.Duration
	RememberMeTTL time.Duration
	PendingTTL    time.Duration
	SendTimeout   time.Duration
}

// LoginResult es la sesion autenticada mas el conteo de bienvenida.
type LoginResult struct {
	Session           domain.Session
	NotificationCount int
}

// AuthService implementa la maquina de estados de login.
type AuthService struct {
	logger       *zap.Logger
	credentials  PasswordVerifier
	lockouts     repository.LockoutRepository
	otps         repository.OTPRepository
	sessions     SessionStore
	emailSender  email.Sender
	otpLimiter   OTPRateLimiter
	counter      NotificationCounter
	opts         AuthOptions
	now          func() time.Time
	generateCode func() (string, error)
}

func NewAuthService(
	logger *zap.Logger,
	credentials PasswordVerifier,
	lockouts repository.LockoutRepository,
	otps repository.OTPRepository,
	sessions SessionStore,
	emailSender email.Sender,
	otpLimiter OTPRateLimiter,
	counter NotificationCounter,
	opts AuthOptions,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	if otpLimiter == nil {
		otpLimiter = NewOTPRateLimiter(otpTTL, 5)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 24 * time.Hour
	}
	if opts.RememberMeTTL <= 0 {
		opts.RememberMeTTL = 30 * 24 * time.Hour
	}
	if opts.PendingTTL <= 0 {
		opts.PendingTTL = 15 * time.Minute
	}
	return &AuthService{
		logger:       logger,
		credentials:  credentials,
		lockouts:     lockouts,
		otps:         otps,
		sessions:     sessions,
		emailSender:  emailSender,
		otpLimiter:   otpLimiter,
		counter:      counter,
		opts:         opts,
		now:          func() time.Time { return time.Now().UTC() },
		generateCode: randomOTPCode,
	}
}

// Session resuelve el token del cliente a su registro vigente.
func (s *AuthService) Session(ctx context.Context, token string) (domain.Session, error) {
	if strings.TrimSpace(token) == "" {
		return domain.Session{}, ErrUnauthenticated
	}
	session, err := s.sessions.Get(ctx, token)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return domain.Session{}, ErrUnauthenticated
		}
		return domain.Session{}, storageError("get session", err)
	}
	return session, nil
}

// SubmitPassword descarta la sesion actual, aplica el lockout y emite el OTP.
// Si el envio falla devuelve la sesion en password_pending junto con ErrNotificationDeliveryFailed.
func (s *AuthService) SubmitPassword(ctx context.Context, currentToken, emailAddr, password string, rememberMe bool) (domain.Session, error) {
	if currentToken != "" {
		if err := s.sessions.Delete(ctx, currentToken); err != nil {
			s.logger.Warn("discard session failed", zap.Error(err))
		}
	}

	emailAddr = normalizeEmail(emailAddr)
	if emailAddr == "" {
		return domain.Session{}, invalidInput("email", "is required")
	}
	if password == "" {
		return domain.Session{}, invalidInput("password", "is required")
	}

	now := s.now()
	record, err := s.lockouts.Get(ctx, emailAddr)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, storageError("get lockout", err)
	}
	if record.LockedAt(now) {
		return domain.Session{}, &AccountLockedError{
			RemainingMinutes: remainingMinutes(*record.LockUntil, now),
			Until:            *record.LockUntil,
		}
	}
	if record.LockElapsedAt(now) {
		if _, err := s.lockouts.ResetIfExpired(ctx, emailAddr, now); err != nil {
			return domain.Session{}, storageError("reset expired lockout", err)
		}
	}

	ok, err := s.credentials.Verify(ctx, emailAddr, password)
	if err != nil {
		return domain.Session{}, err
	}
	if !ok {
		record, err := s.lockouts.RecordFailure(ctx, emailAddr, maxFailedAttempts, now.Add(lockoutDuration))
		if err != nil {
			return domain.Session{}, storageError("record failed attempt", err)
		}
		incorrect := &IncorrectPasswordError{RemainingAttempts: max(0, maxFailedAttempts-record.FailedAttempts)}
		if record.LockedAt(now) {
			until := *record.LockUntil
			incorrect.LockedUntil = &until
		}
		return domain.Session{}, incorrect
	}

	if err := s.lockouts.Reset(ctx, emailAddr); err != nil {
		return domain.Session{}, storageError("reset lockout", err)
	}

	code, err := s.storeChallenge(ctx, emailAddr, now)
	if err != nil {
		return domain.Session{}, err
	}

	token, err := newSessionToken()
	if err != nil {
		return domain.Session{}, err
	}
	session := domain.Session{
		Token:        token,
		Phase:        domain.SessionPasswordPending,
		PendingEmail: emailAddr,
		RememberMe:   rememberMe,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.opts.PendingTTL),
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.Session{}, storageError("save session", err)
	}

	if err := s.sendCode(ctx, emailAddr, code); err != nil {
		return session, err
	}
	return s.markOTPPending(ctx, session)
}

// SubmitOTP consume el challenge a lo sumo una vez y promueve la sesion.
func (s *AuthService) SubmitOTP(ctx context.Context, pending domain.Session, code string) (LoginResult, error) {
	if !pending.IsPending() || pending.PendingEmail == "" {
		return LoginResult{}, ErrUnauthenticated
	}
	emailAddr := pending.PendingEmail
	now := s.now()

	challenge, err := s.otps.Get(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, ErrOTPNotFound
		}
		return LoginResult{}, storageError("get otp", err)
	}
	if challenge.ExpiredAt(now) {
		return LoginResult{}, ErrOTPExpired
	}

	code = strings.TrimSpace(code)
	if !isValidOTPCode(code) || !verifyOTP(code, challenge.CodeHash) {
		if err := s.otps.IncrementAttempts(ctx, emailAddr); err != nil {
			return LoginResult{}, storageError("increment otp attempts", err)
		}
		return LoginResult{}, ErrOTPMismatch
	}

	if err := s.otps.Consume(ctx, emailAddr, challenge.CodeHash); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LoginResult{}, ErrOTPNotFound
		}
		return LoginResult{}, storageError("consume otp", err)
	}

	token, err := newSessionToken()
	if err != nil {
		return LoginResult{}, err
	}
	ttl := s.opts.SessionTTL
	if pending.RememberMe {
		ttl = s.opts.RememberMeTTL
	}
	next := domain.Session{
		Token:              token,
		Phase:              domain.SessionAuthenticated,
		AuthenticatedEmail: emailAddr,
		RememberMe:         pending.RememberMe,
		CreatedAt:          now,
		ExpiresAt:          now.Add(ttl),
	}
	if err := s.sessions.Replace(ctx, pending.Token, next); err != nil {
		return LoginResult{}, storageError("promote session", err)
	}

	result := LoginResult{Session: next}
	if s.counter != nil {
		count, err := s.counter.NotificationCount(ctx, emailAddr)
		if err != nil {
			s.logger.Warn("welcome notification count failed", zap.Error(err), zap.String("email", emailAddr))
		} else {
			result.NotificationCount = count
		}
	}
	return result, nil
}

// ResendOTP reemplaza el challenge vigente sin tocar el lockout.
func (s *AuthService) ResendOTP(ctx context.Context, pending domain.Session) (domain.Session, error) {
	if !pending.IsPending() || pending.PendingEmail == "" {
		return domain.Session{}, ErrUnauthenticated
	}
	emailAddr := pending.PendingEmail
	if !s.otpLimiter.Allow(emailAddr) {
		return pending, ErrRateLimited
	}

	code, err := s.storeChallenge(ctx, emailAddr, s.now())
	if err != nil {
		return pending, err
	}
	if err := s.sendCode(ctx, emailAddr, code); err != nil {
		return pending, err
	}
	return s.markOTPPending(ctx, pending)
}

// Logout es idempotente.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, token); err != nil {
		return storageError("delete session", err)
	}
	return nil
}

func (s *AuthService) storeChallenge(ctx context.Context, emailAddr string, now time.Time) (string, error) {
	code, err := s.generateCode()
	if err != nil {
		return "", err
	}
	hash, err := hashOTP(code)
	if err != nil {
		return "", err
	}
	challenge := domain.OtpChallenge{
		Email:     emailAddr,
		CodeHash:  hash,
		ExpiresAt: now.Add(otpTTL),
		CreatedAt: now,
	}
	if err := s.otps.Upsert(ctx, challenge); err != nil {
		return "", storageError("upsert otp", err)
	}
	return code, nil
}

func (s *AuthService) sendCode(ctx context.Context, emailAddr, code string) error {
	msg := email.Message{
		To:      emailAddr,
		Subject: otpSubject,
		Body:    fmt.Sprintf(otpBodyTmpl, code),
	}
	if err := dispatchEmail(ctx, s.emailSender, s.opts.SendTimeout, msg); err != nil {
		s.logger.Warn("send login otp failed", zap.Error(err), zap.String("email", emailAddr))
		return err
	}
	return nil
}

func (s *AuthService) markOTPPending(ctx context.Context, session domain.Session) (domain.Session, error) {
	if session.Phase == domain.SessionOTPPending {
		return session, nil
	}
	session.Phase = domain.SessionOTPPending
	if err := s.sessions.Save(ctx, session); err != nil {
		return domain.Session{}, storageError("save session", err)
	}
	return session, nil
}

// remainingMinutes redondea hacia arriba para no mostrar 0 con bloqueo vigente.
func remainingMinutes(until, now time.Time) int {
	return int(math.Ceil(until.Sub(now).Minutes()))
}
