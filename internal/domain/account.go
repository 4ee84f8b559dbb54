package domain

import "time"

// Account es la credencial de un usuario registrado.
type Account struct {
	Email        string                  `json:"email"`
	Name         string                  `json:"name,omitempty"`
	PasswordHash string                  `json:"-"`
	Preferences  NotificationPreferences `json:"notification_preferences"`
	CreatedAt    time.Time               `json:"created_at"`
}

// NotificationPreferences agrupa los opt-in de notificaciones por usuario.
type NotificationPreferences struct {
	PushNotifications       bool `json:"push_notifications"`
	EmailNotifications      bool `json:"email_notifications"`
	DailyTaskReminders      bool `json:"daily_task_reminders"`
	DueDateReminders        bool `json:"due_date_reminders"`
	CompletionNotifications bool `json:"completion_notifications"`
}

// DefaultNotificationPreferences devuelve las preferencias de una cuenta nueva.
func DefaultNotificationPreferences() NotificationPreferences {
	return NotificationPreferences{
		PushNotifications:       true,
		EmailNotifications:      true,
		DailyTaskReminders:      true,
		DueDateReminders:        true,
		CompletionNotifications: true,
	}
}

// DigestEnabled indica si el usuario acepta el resumen diario por email.
func (p NotificationPreferences) DigestEnabled() bool {
	return p.EmailNotifications && p.DailyTaskReminders
}

// LockoutRecord cuenta intentos fallidos de password por email.
type LockoutRecord struct {
	Email          string     `json:"email"`
	FailedAttempts int        `json:"failed_attempts"`
	LockUntil      *time.Time `json:"lock_until,omitempty"`
}

// LockedAt indica si el registro bloquea intentos en el instante dado.
func (r LockoutRecord) LockedAt(now time.Time) bool {
	return r.LockUntil != nil && now.Before(*r.LockUntil)
}

// LockElapsedAt indica si hubo un bloqueo que ya vencio y debe resetearse.
func (r LockoutRecord) LockElapsedAt(now time.Time) bool {
	return r.LockUntil != nil && !now.Before(*r.LockUntil)
}

// OtpChallenge es el unico codigo vivo por email.
type OtpChallenge struct {
	Email     string    `json:"email"`
	CodeHash  string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
}

// ExpiredAt indica si el codigo ya no es valido.
func (c OtpChallenge) ExpiredAt(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// PasswordReset registra un token de reseteo emitido y no consumido.
type PasswordReset struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}
