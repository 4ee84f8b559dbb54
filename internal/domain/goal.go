package domain

import "time"

const (
	GoalCompleted = "completed"
	GoalOtherType = "other"
)

type Goal struct {
	ID          string     `json:"id"`
	UserEmail   string     `json:"user_email"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Target      int        `json:"target"`
	Completed   int        `json:"completed"`
	Status      string     `json:"status,omitempty"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Achieved aplica la regla de meta cumplida: status completed o target alcanzado.
func (g Goal) Achieved() bool {
	return g.Status == GoalCompleted || (g.Target > 0 && g.Completed >= g.Target)
}

// GroupType devuelve el tipo usado para agrupar estadisticas.
func (g Goal) GroupType() string {
	if g.Type == "" {
		return GoalOtherType
	}
	return g.Type
}
