package domain

import "time"

const (
	SkillPending    = "pending"
	SkillInProgress = "in_progress"
	SkillCompleted  = "completed"
	SkillOnHold     = "on_hold"
)

// DayLayout es el formato de fecha de los dias de una skill.
const DayLayout = "2006-01-02"

// Skill sigue el progreso diario de un aprendizaje.
type Skill struct {
	ID              string     `json:"id"`
	UserEmail       string     `json:"user_email"`
	Name            string     `json:"name"`
	LearningFrom    string     `json:"learning_from"`
	StartDate       string     `json:"start_date"`
	ExpectedEndDate string     `json:"expected_end_date"`
	Status          string     `json:"status"`
	Completed       int        `json:"completed"`
	Priority        string     `json:"priority"`
	Level           string     `json:"level"`
	Days            []SkillDay `json:"days"`
	CreatedAt       time.Time  `json:"created_at"`
}

type SkillDay struct {
	Date      string `json:"date"`
	Note      string `json:"note"`
	Completed bool   `json:"completed"`
}

// IsComplete indica si la skill llego al 100%.
func (s Skill) IsComplete() bool {
	return s.Completed == 100
}
