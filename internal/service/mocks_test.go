package service

import (
	"context"
	"regexp"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"planfusion/internal/domain"
	"planfusion/internal/email"
	"planfusion/internal/repository"
)

type mockAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
	err      error
}

func newMockAccountRepo() *mockAccountRepo {
	return &mockAccountRepo{accounts: make(map[string]domain.Account)}
}

func (m *mockAccountRepo) Create(_ context.Context, account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.accounts[account.Email]; ok {
		return repository.ErrDuplicateKey
	}
	m.accounts[account.Email] = account
	return nil
}

func (m *mockAccountRepo) GetByEmail(_ context.Context, email string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return domain.Account{}, m.err
	}
	account, ok := m.accounts[email]
	if !ok {
		return domain.Account{}, pgx.ErrNoRows
	}
	return account, nil
}

func (m *mockAccountRepo) UpdatePasswordHash(_ context.Context, email, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[email]
	if !ok {
		return pgx.ErrNoRows
	}
	account.PasswordHash = passwordHash
	m.accounts[email] = account
	return nil
}

func (m *mockAccountRepo) UpdatePreferences(_ context.Context, email string, prefs domain.NotificationPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[email]
	if !ok {
		return pgx.ErrNoRows
	}
	account.Preferences = prefs
	m.accounts[email] = account
	return nil
}

func (m *mockAccountRepo) ListEmails(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	emails := make([]string, 0, len(m.accounts))
	for e := range m.accounts {
		emails = append(emails, e)
	}
	sort.Strings(emails)
	return emails, nil
}

type mockLockoutRepo struct {
	mu      sync.Mutex
	records map[string]domain.LockoutRecord
}

func newMockLockoutRepo() *mockLockoutRepo {
	return &mockLockoutRepo{records: make(map[string]domain.LockoutRecord)}
}

func (m *mockLockoutRepo) Get(_ context.Context, email string) (domain.LockoutRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[email]
	if !ok {
		return domain.LockoutRecord{}, pgx.ErrNoRows
	}
	return rec, nil
}

func (m *mockLockoutRepo) RecordFailure(_ context.Context, email string, maxAttempts int, lockUntil time.Time) (domain.LockoutRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec := m.records[email]
	rec.Email = email
	rec.FailedAttempts++
	if rec.FailedAttempts >= maxAttempts {
		until := lockUntil
		rec.LockUntil = &until
	}
	m.records[email] = rec
	return rec, nil
}

func (m *mockLockoutRepo) Reset(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[email]; ok {
		rec.FailedAttempts = 0
		rec.LockUntil = nil
		m.records[email] = rec
	}
	return nil
}

func (m *mockLockoutRepo) ResetIfExpired(_ context.Context, email string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[email]
	if !ok || rec.LockUntil == nil || rec.LockUntil.After(now) {
		return false, nil
	}
	rec.FailedAttempts = 0
	rec.LockUntil = nil
	m.records[email] = rec
	return true, nil
}

type mockOTPRepo struct {
	mu    sync.Mutex
	items map[string]domain.OtpChallenge
}

func newMockOTPRepo() *mockOTPRepo {
	return &mockOTPRepo{items: make(map[string]domain.OtpChallenge)}
}

func (m *mockOTPRepo) Upsert(_ context.Context, challenge domain.OtpChallenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	challenge.Attempts = 0
	m.items[challenge.Email] = challenge
	return nil
}

func (m *mockOTPRepo) Get(_ context.Context, email string) (domain.OtpChallenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[email]
	if !ok {
		return domain.OtpChallenge{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockOTPRepo) IncrementAttempts(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.items[email]; ok {
		c.Attempts++
		m.items[email] = c
	}
	return nil
}

func (m *mockOTPRepo) Consume(_ context.Context, email, codeHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.items[email]
	if !ok || c.CodeHash != codeHash {
		return pgx.ErrNoRows
	}
	delete(m.items, email)
	return nil
}

type mockResetRepo struct {
	mu    sync.Mutex
	items map[string]domain.PasswordReset
}

func newMockResetRepo() *mockResetRepo {
	return &mockResetRepo{items: make(map[string]domain.PasswordReset)}
}

func (m *mockResetRepo) Create(_ context.Context, reset domain.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[reset.ID] = reset
	return nil
}

func (m *mockResetRepo) Consume(_ context.Context, id string) (domain.PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reset, ok := m.items[id]
	if !ok {
		return domain.PasswordReset{}, pgx.ErrNoRows
	}
	delete(m.items, id)
	return reset, nil
}

type mockTaskRepo struct {
	mu    sync.Mutex
	tasks []domain.Task
	err   error
}

func (m *mockTaskRepo) Create(_ context.Context, task domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockTaskRepo) ListByUser(_ context.Context, email string) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.Task
	for _, t := range m.tasks {
		if t.UserEmail == email {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *mockTaskRepo) GetByID(_ context.Context, email, id string) (domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tasks {
		if t.UserEmail == email && t.ID == id {
			return t, nil
		}
	}
	return domain.Task{}, pgx.ErrNoRows
}

func (m *mockTaskRepo) Update(_ context.Context, task domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks {
		if t.UserEmail == task.UserEmail && t.ID == task.ID {
			m.tasks[i] = task
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *mockTaskRepo) Delete(_ context.Context, email, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks {
		if t.UserEmail == email && t.ID == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

// mockSkillRepo serializa UpdateDay por skill como lo hace el FOR UPDATE en Postgres.
type mockSkillRepo struct {
	mu     sync.Mutex
	skills map[string]domain.Skill
	locks  map[string]*sync.Mutex
}

func newMockSkillRepo() *mockSkillRepo {
	return &mockSkillRepo{skills: make(map[string]domain.Skill), locks: make(map[string]*sync.Mutex)}
}

func cloneSkill(s domain.Skill) domain.Skill {
	s.Days = append([]domain.SkillDay(nil), s.Days...)
	return s
}

func (m *mockSkillRepo) Create(_ context.Context, skill domain.Skill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skills[skill.ID] = cloneSkill(skill)
	m.locks[skill.ID] = &sync.Mutex{}
	return nil
}

func (m *mockSkillRepo) ListByUser(_ context.Context, email string) ([]domain.Skill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Skill
	for _, s := range m.skills {
		if s.UserEmail == email {
			out = append(out, cloneSkill(s))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockSkillRepo) GetByID(_ context.Context, email, id string) (domain.Skill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.skills[id]
	if !ok || s.UserEmail != email {
		return domain.Skill{}, pgx.ErrNoRows
	}
	return cloneSkill(s), nil
}

func (m *mockSkillRepo) Update(_ context.Context, skill domain.Skill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.skills[skill.ID]
	if !ok || current.UserEmail != skill.UserEmail {
		return pgx.ErrNoRows
	}
	skill.Days = current.Days
	m.skills[skill.ID] = skill
	return nil
}

func (m *mockSkillRepo) Delete(_ context.Context, email, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.skills[id]
	if !ok || s.UserEmail != email {
		return pgx.ErrNoRows
	}
	delete(m.skills, id)
	return nil
}

func (m *mockSkillRepo) UpdateDay(ctx context.Context, email, skillID, date string, apply func(*domain.Skill) error) (domain.Skill, error) {
	m.mu.Lock()
	lock, ok := m.locks[skillID]
	m.mu.Unlock()
	if !ok {
		return domain.Skill{}, pgx.ErrNoRows
	}
	lock.Lock()
	defer lock.Unlock()

	skill, err := m.GetByID(ctx, email, skillID)
	if err != nil {
		return domain.Skill{}, err
	}
	// Cede el procesador para que otra actualizacion concurrente intente intercalarse.
	time.Sleep(time.Millisecond)
	if err := apply(&skill); err != nil {
		return domain.Skill{}, err
	}
	m.mu.Lock()
	m.skills[skillID] = cloneSkill(skill)
	m.mu.Unlock()
	return skill, nil
}

type mockGoalRepo struct {
	mu    sync.Mutex
	goals []domain.Goal
}

func (m *mockGoalRepo) Create(_ context.Context, goal domain.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.goals = append(m.goals, goal)
	return nil
}

func (m *mockGoalRepo) ListByUser(_ context.Context, email string) ([]domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Goal
	for _, g := range m.goals {
		if g.UserEmail == email {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *mockGoalRepo) GetByID(_ context.Context, email, id string) (domain.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.goals {
		if g.UserEmail == email && g.ID == id {
			return g, nil
		}
	}
	return domain.Goal{}, pgx.ErrNoRows
}

func (m *mockGoalRepo) Update(_ context.Context, goal domain.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, g := range m.goals {
		if g.UserEmail == goal.UserEmail && g.ID == goal.ID {
			m.goals[i] = goal
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *mockGoalRepo) Delete(_ context.Context, email, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, g := range m.goals {
		if g.UserEmail == email && g.ID == id {
			m.goals = append(m.goals[:i], m.goals[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type mockContactRepo struct {
	mu       sync.Mutex
	contacts []domain.Contact
}

func (m *mockContactRepo) Create(_ context.Context, contact domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, contact)
	return nil
}

func (m *mockContactRepo) ListByUser(_ context.Context, email string) ([]domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Contact
	for _, c := range m.contacts {
		if c.UserEmail == email {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContactRepo) GetByID(_ context.Context, email, id string) (domain.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.contacts {
		if c.UserEmail == email && c.ID == id {
			return c, nil
		}
	}
	return domain.Contact{}, pgx.ErrNoRows
}

func (m *mockContactRepo) Update(_ context.Context, contact domain.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.contacts {
		if c.UserEmail == contact.UserEmail && c.ID == contact.ID {
			m.contacts[i] = contact
			return nil
		}
	}
	return pgx.ErrNoRows
}

func (m *mockContactRepo) Delete(_ context.Context, email, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range m.contacts {
		if c.UserEmail == email && c.ID == id {
			m.contacts = append(m.contacts[:i], m.contacts[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

type mockEmailSender struct {
	mu    sync.Mutex
	sent  []email.Message
	err   error
	block bool
}

func (m *mockEmailSender) Send(ctx context.Context, msg email.Message) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockEmailSender) last(t *testing.T) email.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected an email to be sent")
	}
	return m.sent[len(m.sent)-1]
}

var otpCodePattern = regexp.MustCompile(`\b\d{6}\b`)

// lastCode extrae el codigo del ultimo OTP enviado.
func (m *mockEmailSender) lastCode(t *testing.T) string {
	t.Helper()
	code := otpCodePattern.FindString(m.last(t).Body)
	if code == "" {
		t.Fatalf("expected otp code in email body")
	}
	return code
}

type stubVerifier struct {
	passwords map[string]string
}

func (s stubVerifier) Verify(_ context.Context, email, password string) (bool, error) {
	stored, ok := s.passwords[normalizeEmail(email)]
	if !ok {
		return false, ErrUnknownAccount
	}
	return stored == password, nil
}

type stubCounter struct {
	count int
	err   error
}

func (s stubCounter) NotificationCount(_ context.Context, _ string) (int, error) {
	return s.count, s.err
}
