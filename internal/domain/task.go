package domain

import "time"

const (
	TaskPending   = "pending"
	TaskCompleted = "completed"
	TaskOverdue   = "overdue"
)

type Task struct {
	ID        string    `json:"id"`
	UserEmail string    `json:"user_email"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority,omitempty"`
	DueDate   string    `json:"due_date,omitempty"`
	Reminder  string    `json:"reminder,omitempty"`
	Label     string    `json:"label,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidTaskStatus reporta si el status pertenece al ciclo de vida de una tarea.
func ValidTaskStatus(status string) bool {
	switch status {
	case TaskPending, TaskCompleted, TaskOverdue:
		return true
	}
	return false
}
