package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"planfusion/internal/domain"
)

const (
	testEmail    = "user@example.com"
	testPassword = "Secret!Pass"
)

type authFixture struct {
	svc      *AuthService
	lockouts *mockLockoutRepo
	otps     *mockOTPRepo
	sessions SessionStore
	sender   *mockEmailSender
	now      time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		lockouts: newMockLockoutRepo(),
		otps:     newMockOTPRepo(),
		sender:   &mockEmailSender{},
		now:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	store := NewMemorySessionStore().(*memorySessionStore)
	store.now = func() time.Time { return f.now }
	f.sessions = store
	verifier := stubVerifier{passwords: map[string]string{testEmail: testPassword}}
	f.svc = NewAuthService(
		zap.NewNop(),
		verifier,
		f.lockouts,
		f.otps,
		f.sessions,
		f.sender,
		NewOTPRateLimiter(10*time.Minute, 3),
		stubCounter{count: 4},
		AuthOptions{SendTimeout: 50 * time.Millisecond},
	)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *authFixture) login(t *testing.T) domain.Session {
	t.Helper()
	session, err := f.svc.SubmitPassword(context.Background(), "", testEmail, testPassword, false)
	if err != nil {
		t.Fatalf("submit password: %v", err)
	}
	return session
}

func TestSubmitPassword_IssuesOTP(t *testing.T) {
	f := newAuthFixture(t)
	session := f.login(t)

	if session.Phase != domain.SessionOTPPending || session.PendingEmail != testEmail {
		t.Fatalf("expected otp_pending session, got %+v", session)
	}
	if session.AuthenticatedEmail != "" {
		t.Fatalf("pending session must not carry authenticated email")
	}
	stored, err := f.sessions.Get(context.Background(), session.Token)
	if err != nil || stored.Phase != domain.SessionOTPPending {
		t.Fatalf("expected stored otp_pending session, got %+v %v", stored, err)
	}

	msg := f.sender.last(t)
	if msg.To != testEmail || msg.Subject != "Your PlanFusion Login Code" {
		t.Fatalf("unexpected otp email %+v", msg)
	}
	challenge, err := f.otps.Get(context.Background(), testEmail)
	if err != nil {
		t.Fatalf("expected challenge stored: %v", err)
	}
	if !challenge.ExpiresAt.Equal(f.now.Add(10 * time.Minute)) {
		t.Fatalf("expected 10 minute expiry, got %v", challenge.ExpiresAt)
	}
	if !verifyOTP(f.sender.lastCode(t), challenge.CodeHash) {
		t.Fatalf("expected emailed code to match stored hash")
	}
}

func TestSubmitPassword_LocksAfterThreeFailures(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for i, want := range []int{2, 1, 0} {
		_, err := f.svc.SubmitPassword(ctx, "", testEmail, "Wrong!Pass1", false)
		var incorrect *IncorrectPasswordError
		if !errors.As(err, &incorrect) {
			t.Fatalf("attempt %d: expected IncorrectPasswordError, got %v", i+1, err)
		}
		if incorrect.RemainingAttempts != want {
			t.Fatalf("attempt %d: expected %d remaining, got %d", i+1, want, incorrect.RemainingAttempts)
		}
		if i == 2 && incorrect.LockedUntil == nil {
			t.Fatalf("expected third failure to report the lock")
		}
	}

	f.now = f.now.Add(30 * time.Minute)
	_, err := f.svc.SubmitPassword(ctx, "", testEmail, testPassword, false)
	var locked *AccountLockedError
	if !errors.As(err, &locked) || !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected AccountLockedError, got %v", err)
	}
	if locked.RemainingMinutes != 30 {
		t.Fatalf("expected 30 minutes remaining, got %d", locked.RemainingMinutes)
	}
	rec, _ := f.lockouts.Get(ctx, testEmail)
	if rec.FailedAttempts != 3 {
		t.Fatalf("expected locked attempt not to be counted, got %d", rec.FailedAttempts)
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("expected no otp while locked")
	}
}

func TestSubmitPassword_RemainingMinutesRoundUp(t *testing.T) {
	f := newAuthFixture(t)
	until := f.now.Add(90 * time.Second)
	f.lockouts.records[testEmail] = domain.LockoutRecord{Email: testEmail, FailedAttempts: 3, LockUntil: &until}

	_, err := f.svc.SubmitPassword(context.Background(), "", testEmail, testPassword, false)
	var locked *AccountLockedError
	if !errors.As(err, &locked) || locked.RemainingMinutes != 2 {
		t.Fatalf("expected 2 remaining minutes, got %v", err)
	}
}

func TestSubmitPassword_ElapsedLockResets(t *testing.T) {
	f := newAuthFixture(t)
	until := f.now.Add(-time.Minute)
	f.lockouts.records[testEmail] = domain.LockoutRecord{Email: testEmail, FailedAttempts: 3, LockUntil: &until}

	session := f.login(t)
	if session.Phase != domain.SessionOTPPending {
		t.Fatalf("expected otp issuance after elapsed lock, got %+v", session)
	}
	rec := f.lockouts.records[testEmail]
	if rec.FailedAttempts != 0 || rec.LockUntil != nil {
		t.Fatalf("expected lockout reset, got %+v", rec)
	}
}

func TestSubmitPassword_ElapsedLockThenWrongPasswordCountsFromZero(t *testing.T) {
	f := newAuthFixture(t)
	until := f.now.Add(-time.Minute)
	f.lockouts.records[testEmail] = domain.LockoutRecord{Email: testEmail, FailedAttempts: 3, LockUntil: &until}

	_, err := f.svc.SubmitPassword(context.Background(), "", testEmail, "nope", false)
	var incorrect *IncorrectPasswordError
	if !errors.As(err, &incorrect) || incorrect.RemainingAttempts != 2 {
		t.Fatalf("expected 2 remaining attempts after lazy reset, got %v", err)
	}
}

func TestSubmitPassword_UnknownAccount(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.SubmitPassword(context.Background(), "", "nobody@example.com", testPassword, false)
	if !errors.Is(err, ErrUnknownAccount) {
		t.Fatalf("expected ErrUnknownAccount, got %v", err)
	}
	if _, ok := f.lockouts.records["nobody@example.com"]; ok {
		t.Fatalf("expected no lockout record for unknown account")
	}
}

func TestSubmitPassword_DiscardsCurrentSession(t *testing.T) {
	f := newAuthFixture(t)
	first := f.login(t)
	_, err := f.svc.SubmitPassword(context.Background(), first.Token, testEmail, testPassword, false)
	if err != nil {
		t.Fatalf("second login: %v", err)
	}
	if _, err := f.sessions.Get(context.Background(), first.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected previous session discarded, got %v", err)
	}
}

func TestSubmitPassword_DeliveryFailureStaysPasswordPending(t *testing.T) {
	f := newAuthFixture(t)
	f.sender.err = errors.New("smtp down")

	session, err := f.svc.SubmitPassword(context.Background(), "", testEmail, testPassword, false)
	if !errors.Is(err, ErrNotificationDeliveryFailed) {
		t.Fatalf("expected ErrNotificationDeliveryFailed, got %v", err)
	}
	if session.Phase != domain.SessionPasswordPending || session.Token == "" {
		t.Fatalf("expected password_pending session, got %+v", session)
	}
	if _, err := f.otps.Get(context.Background(), testEmail); err != nil {
		t.Fatalf("expected otp to stay live, got %v", err)
	}

	f.sender.err = nil
	resent, err := f.svc.ResendOTP(context.Background(), session)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if resent.Phase != domain.SessionOTPPending {
		t.Fatalf("expected resend to advance to otp_pending, got %s", resent.Phase)
	}
}

func TestSubmitPassword_SendTimeoutIsBounded(t *testing.T) {
	f := newAuthFixture(t)
	f.sender.block = true

	start := time.Now()
	_, err := f.svc.SubmitPassword(context.Background(), "", testEmail, testPassword, false)
	if !errors.Is(err, ErrNotificationDeliveryFailed) {
		t.Fatalf("expected delivery failure on timeout, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("expected send to be bounded by the timeout")
	}
}

func TestSubmitOTP_Success(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	pending := f.login(t)
	code := f.sender.lastCode(t)

	result, err := f.svc.SubmitOTP(ctx, pending, code)
	if err != nil {
		t.Fatalf("submit otp: %v", err)
	}
	if !result.Session.IsAuthenticated() || result.Session.PendingEmail != "" {
		t.Fatalf("expected clean authenticated session, got %+v", result.Session)
	}
	if result.Session.Token == pending.Token {
		t.Fatalf("expected a fresh token on promotion")
	}
	if result.NotificationCount != 4 {
		t.Fatalf("expected welcome count 4, got %d", result.NotificationCount)
	}
	if !result.Session.ExpiresAt.Equal(f.now.Add(24 * time.Hour)) {
		t.Fatalf("expected default session ttl, got %v", result.Session.ExpiresAt)
	}
	if _, err := f.sessions.Get(ctx, pending.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected pending token removed, got %v", err)
	}
	if _, err := f.otps.Get(ctx, testEmail); err == nil {
		t.Fatalf("expected challenge deleted")
	}

	if _, err := f.svc.SubmitOTP(ctx, pending, code); !errors.Is(err, ErrOTPNotFound) {
		t.Fatalf("expected second verify to yield ErrOTPNotFound, got %v", err)
	}
}

func TestSubmitOTP_RememberMeExtendsSession(t *testing.T) {
	f := newAuthFixture(t)
	pending, err := f.svc.SubmitPassword(context.Background(), "", testEmail, testPassword, true)
	if err != nil {
		t.Fatalf("submit password: %v", err)
	}
	result, err := f.svc.SubmitOTP(context.Background(), pending, f.sender.lastCode(t))
	if err != nil {
		t.Fatalf("submit otp: %v", err)
	}
	if !result.Session.ExpiresAt.Equal(f.now.Add(30 * 24 * time.Hour)) {
		t.Fatalf("expected remember-me ttl, got %v", result.Session.ExpiresAt)
	}
}

func TestSubmitOTP_Expired(t *testing.T) {
	f := newAuthFixture(t)
	pending := f.login(t)
	code := f.sender.lastCode(t)

	f.now = f.now.Add(10*time.Minute + time.Second)
	if _, err := f.svc.SubmitOTP(context.Background(), pending, code); !errors.Is(err, ErrOTPExpired) {
		t.Fatalf("expected ErrOTPExpired, got %v", err)
	}
}

func TestSubmitOTP_MismatchCountsAttempts(t *testing.T) {
	f := newAuthFixture(t)
	pending := f.login(t)
	code := f.sender.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < 5; i++ {
		if _, err := f.svc.SubmitOTP(context.Background(), pending, wrong); !errors.Is(err, ErrOTPMismatch) {
			t.Fatalf("expected ErrOTPMismatch, got %v", err)
		}
	}
	if _, err := f.svc.SubmitOTP(context.Background(), pending, "abc"); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("expected malformed code to be a mismatch, got %v", err)
	}
	challenge, _ := f.otps.Get(context.Background(), testEmail)
	if challenge.Attempts != 6 {
		t.Fatalf("expected 6 attempts recorded, got %d", challenge.Attempts)
	}
	if _, err := f.svc.SubmitOTP(context.Background(), pending, code); err != nil {
		t.Fatalf("expected correct code to still work without an attempt cap, got %v", err)
	}
}

func TestSubmitOTP_RequiresPendingSession(t *testing.T) {
	f := newAuthFixture(t)
	authenticated := domain.Session{Token: "t", Phase: domain.SessionAuthenticated, AuthenticatedEmail: testEmail}
	if _, err := f.svc.SubmitOTP(context.Background(), authenticated, "123456"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := f.svc.SubmitOTP(context.Background(), domain.Session{}, "123456"); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for anonymous, got %v", err)
	}
}

func TestSubmitOTP_CountFailureDoesNotFailLogin(t *testing.T) {
	f := newAuthFixture(t)
	f.svc.counter = stubCounter{err: errors.New("db down")}
	pending := f.login(t)

	result, err := f.svc.SubmitOTP(context.Background(), pending, f.sender.lastCode(t))
	if err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if result.NotificationCount != 0 {
		t.Fatalf("expected count 0 on failure, got %d", result.NotificationCount)
	}
}

func TestSubmitOTP_ConcurrentConsumeAtMostOnce(t *testing.T) {
	f := newAuthFixture(t)
	pending := f.login(t)
	code := f.sender.lastCode(t)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notFound  int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.SubmitOTP(context.Background(), pending, code)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, ErrOTPNotFound):
				notFound++
			}
		}()
	}
	wg.Wait()
	if successes != 1 || notFound != 7 {
		t.Fatalf("expected exactly one success, got %d successes and %d not found", successes, notFound)
	}
}

func TestResendOTP_OnlyNewestCodeValidates(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	f.svc.generateCode = sequenceCodes("111111", "222222")
	pending := f.login(t)
	if f.sender.lastCode(t) != "111111" {
		t.Fatalf("expected first code dispatched")
	}

	pending, err := f.svc.ResendOTP(ctx, pending)
	if err != nil {
		t.Fatalf("resend: %v", err)
	}
	if f.sender.lastCode(t) != "222222" {
		t.Fatalf("expected new code dispatched")
	}
	if _, err := f.svc.SubmitOTP(ctx, pending, "111111"); !errors.Is(err, ErrOTPMismatch) {
		t.Fatalf("expected old code rejected, got %v", err)
	}
	if _, err := f.svc.SubmitOTP(ctx, pending, "222222"); err != nil {
		t.Fatalf("expected newest code to validate, got %v", err)
	}
}

func TestResendOTP_LeavesLockoutUntouched(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	pending := f.login(t)
	f.lockouts.records[testEmail] = domain.LockoutRecord{Email: testEmail, FailedAttempts: 2}

	if _, err := f.svc.ResendOTP(ctx, pending); err != nil {
		t.Fatalf("resend: %v", err)
	}
	if f.lockouts.records[testEmail].FailedAttempts != 2 {
		t.Fatalf("expected lockout counters untouched")
	}
}

func TestResendOTP_RateLimitAndGuard(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	pending := f.login(t)

	for i := 0; i < 3; i++ {
		if _, err := f.svc.ResendOTP(ctx, pending); err != nil {
			t.Fatalf("resend %d: %v", i+1, err)
		}
	}
	if _, err := f.svc.ResendOTP(ctx, pending); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := f.svc.ResendOTP(ctx, domain.Session{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated without pending session, got %v", err)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	pending := f.login(t)
	result, err := f.svc.SubmitOTP(ctx, pending, f.sender.lastCode(t))
	if err != nil {
		t.Fatalf("submit otp: %v", err)
	}

	if err := f.svc.Logout(ctx, result.Session.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := f.svc.Session(ctx, result.Session.Token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected session gone after logout, got %v", err)
	}
	if err := f.svc.Logout(ctx, result.Session.Token); err != nil {
		t.Fatalf("expected second logout to succeed, got %v", err)
	}
	if err := f.svc.Logout(ctx, ""); err != nil {
		t.Fatalf("expected anonymous logout to succeed, got %v", err)
	}
}

func sequenceCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}
