package service

import (
	"sort"
	"time"

	"planfusion/internal/domain"
)

type PendingTask struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Priority string `json:"priority,omitempty"`
	DueDate  string `json:"due_date,omitempty"`
}

type TaskStats struct {
	Total                int           `json:"total"`
	Completed            int           `json:"completed"`
	Pending              int           `json:"pending"`
	Overdue              int           `json:"overdue"`
	CompletionPercentage int           `json:"completion_percentage"`
	PendingTasks         []PendingTask `json:"pending_tasks"`
}

type SkillProgress struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Completed int    `json:"completed"`
	Status    string `json:"status"`
}

type SkillStats struct {
	Total                int             `json:"total"`
	Completed            int             `json:"completed"`
	InProgress           int             `json:"in_progress"`
	OnHold               int             `json:"on_hold"`
	CompletionPercentage int             `json:"completion_percentage"`
	InProgressSkills     []SkillProgress `json:"in_progress_skills"`
}

type GoalGroupStats struct {
	Total                 int `json:"total"`
	Achieved              int `json:"achieved"`
	AchievementPercentage int `json:"achievement_percentage"`
}

type ActiveGoal struct {
	ID          string     `json:"id"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Target      int        `json:"target"`
	Completed   int        `json:"completed"`
	Deadline    *time.Time `json:"deadline,omitempty"`
}

type GoalStats struct {
	GoalGroupStats
	ByType      map[string]GoalGroupStats `json:"by_type"`
	ActiveGoals []ActiveGoal              `json:"active_goals"`
}

type UpcomingMeeting struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Category string    `json:"category,omitempty"`
	At       time.Time `json:"at"`
}

type ContactStats struct {
	Total            int               `json:"total"`
	NewThisMonth     int               `json:"new_this_month"`
	MeetingsAttended int               `json:"meetings_attended"`
	GrowthPercentage int               `json:"growth_percentage"`
	UpcomingMeetings []UpcomingMeeting `json:"upcoming_meetings"`
}

// DashboardStats agrupa todas las estadisticas derivadas de un usuario.
type DashboardStats struct {
	Tasks             TaskStats    `json:"tasks"`
	Skills            SkillStats   `json:"skills"`
	Goals             GoalStats    `json:"goals"`
	Contacts          ContactStats `json:"contacts"`
	NotificationCount int          `json:"notification_count"`
	GeneratedAt       time.Time    `json:"generated_at"`
}

// roundHalfUp redondea num/den con medio hacia arriba sobre el racional exacto.
func roundHalfUp(num, den int) int {
	if den <= 0 {
		return 0
	}
	return (2*num + den) / (2 * den)
}

func percentage(part, total int) int {
	if total == 0 {
		return 0
	}
	return roundHalfUp(100*part, total)
}

func ComputeTaskStats(tasks []domain.Task) TaskStats {
	stats := TaskStats{Total: len(tasks), PendingTasks: []PendingTask{}}
	for _, t := range tasks {
		switch t.Status {
		case domain.TaskCompleted:
			stats.Completed++
		case domain.TaskPending:
			stats.Pending++
			stats.PendingTasks = append(stats.PendingTasks, PendingTask{
				ID:       t.ID,
				Name:     t.Name,
				Priority: t.Priority,
				DueDate:  t.DueDate,
			})
		case domain.TaskOverdue:
			stats.Overdue++
		}
	}
	stats.CompletionPercentage = percentage(stats.Completed, stats.Total)
	return stats
}

// ComputeSkillStats promedia los porcentajes de cada skill, sin ponderar.
func ComputeSkillStats(skills []domain.Skill) SkillStats {
	stats := SkillStats{Total: len(skills), InProgressSkills: []SkillProgress{}}
	sum := 0
	for _, s := range skills {
		sum += s.Completed
		if s.IsComplete() {
			stats.Completed++
		} else {
			stats.InProgress++
			stats.InProgressSkills = append(stats.InProgressSkills, SkillProgress{
				ID:        s.ID,
				Name:      s.Name,
				Completed: s.Completed,
				Status:    s.Status,
			})
		}
		if s.Status == domain.SkillOnHold {
			stats.OnHold++
		}
	}
	if stats.Total > 0 {
		stats.CompletionPercentage = roundHalfUp(sum, stats.Total)
	}
	return stats
}

func ComputeGoalStats(goals []domain.Goal) GoalStats {
	stats := GoalStats{ByType: map[string]GoalGroupStats{}, ActiveGoals: []ActiveGoal{}}
	for _, g := range goals {
		group := stats.ByType[g.GroupType()]
		group.Total++
		stats.Total++
		if g.Achieved() {
			group.Achieved++
			stats.Achieved++
		} else {
			stats.ActiveGoals = append(stats.ActiveGoals, ActiveGoal{
				ID:          g.ID,
				Description: g.Description,
				Type:        g.GroupType(),
				Target:      g.Target,
				Completed:   g.Completed,
				Deadline:    g.Deadline,
			})
		}
		stats.ByType[g.GroupType()] = group
	}
	for k, group := range stats.ByType {
		group.AchievementPercentage = percentage(group.Achieved, group.Total)
		stats.ByType[k] = group
	}
	stats.AchievementPercentage = percentage(stats.Achieved, stats.Total)
	return stats
}

func sameMonth(a, b time.Time) bool {
	a, b = a.UTC(), b.UTC()
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func ComputeContactStats(contacts []domain.Contact, now time.Time) ContactStats {
	stats := ContactStats{Total: len(contacts), UpcomingMeetings: []UpcomingMeeting{}}
	for _, c := range contacts {
		if sameMonth(c.CreatedAt, now) {
			stats.NewThisMonth++
		}
		if c.LastInteraction != nil && sameMonth(*c.LastInteraction, now) {
			stats.MeetingsAttended++
		}
		if c.HasUpcomingMeeting(now) {
			stats.UpcomingMeetings = append(stats.UpcomingMeetings, UpcomingMeeting{
				ID:       c.ID,
				Name:     c.Name,
				Category: c.Category,
				At:       *c.NextMeeting,
			})
		}
	}
	sort.SliceStable(stats.UpcomingMeetings, func(i, j int) bool {
		a, b := stats.UpcomingMeetings[i], stats.UpcomingMeetings[j]
		if !a.At.Equal(b.At) {
			return a.At.Before(b.At)
		}
		return a.Name < b.Name
	})
	stats.GrowthPercentage = percentage(stats.NewThisMonth, stats.Total)
	return stats
}

// ComputeDashboard es funcion pura de las cuatro colecciones y now.
func ComputeDashboard(tasks []domain.Task, skills []domain.Skill, goals []domain.Goal, contacts []domain.Contact, now time.Time) DashboardStats {
	stats := DashboardStats{
		Tasks:       ComputeTaskStats(tasks),
		Skills:      ComputeSkillStats(skills),
		Goals:       ComputeGoalStats(goals),
		Contacts:    ComputeContactStats(contacts, now),
		GeneratedAt: now,
	}
	stats.NotificationCount = notificationCount(stats)
	return stats
}

// notificationCount suma tareas pendientes, skills sin completar, reuniones proximas y metas no cumplidas.
func notificationCount(stats DashboardStats) int {
	incompleteGoals := stats.Goals.Total - stats.Goals.Achieved
	return stats.Tasks.Pending + stats.Skills.InProgress + len(stats.Contacts.UpcomingMeetings) + incompleteGoals
}
