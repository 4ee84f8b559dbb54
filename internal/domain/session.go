package domain

import "time"

type SessionPhase string

const (
	SessionPasswordPending SessionPhase = "password_pending"
	SessionOTPPending      SessionPhase = "otp_pending"
	SessionAuthenticated   SessionPhase = "authenticated"
)

// Session es el estado de login asociado a un token opaco.
type Session struct {
	Token              string       `json:"-"`
	Phase              SessionPhase `json:"phase"`
	PendingEmail       string       `json:"pending_email,omitempty"`
	AuthenticatedEmail string       `json:"authenticated_email,omitempty"`
	RememberMe         bool         `json:"remember_me,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	ExpiresAt          time.Time    `json:"expires_at"`
}

func (s Session) IsPending() bool {
	return s.Phase == SessionPasswordPending || s.Phase == SessionOTPPending
}

func (s Session) IsAuthenticated() bool {
	return s.Phase == SessionAuthenticated && s.AuthenticatedEmail != ""
}
