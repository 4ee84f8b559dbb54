package domain

import "time"

// MeetingLayout es el formato de fecha y hora aceptado para contactos.
const MeetingLayout = "2006-01-02 15:04"

type Contact struct {
	ID              string     `json:"id"`
	UserEmail       string     `json:"user_email"`
	Name            string     `json:"name"`
	Email           string     `json:"email,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Category        string     `json:"category,omitempty"`
	Notes           string     `json:"notes,omitempty"`
	LastInteraction *time.Time `json:"last_interaction,omitempty"`
	NextMeeting     *time.Time `json:"next_meeting,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// HasUpcomingMeeting indica si la proxima reunion es estrictamente futura.
func (c Contact) HasUpcomingMeeting(now time.Time) bool {
	return c.NextMeeting != nil && c.NextMeeting.After(now)
}
