package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"planfusion/internal/repository"
)

// DashboardService carga las colecciones del usuario y delega en el motor de estadisticas.
type DashboardService struct {
	logger   *zap.Logger
	tasks    repository.TaskRepository
	skills   repository.SkillRepository
	goals    repository.GoalRepository
	contacts repository.ContactRepository
	now      func() time.Time
}

func NewDashboardService(
	logger *zap.Logger,
	tasks repository.TaskRepository,
	skills repository.SkillRepository,
	goals repository.GoalRepository,
	contacts repository.ContactRepository,
) *DashboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		logger:   logger,
		tasks:    tasks,
		skills:   skills,
		goals:    goals,
		contacts: contacts,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *DashboardService) Dashboard(ctx context.Context, email string) (DashboardStats, error) {
	email = normalizeEmail(email)
	tasks, err := s.tasks.ListByUser(ctx, email)
	if err != nil {
		return DashboardStats{}, storageError("list tasks", err)
	}
	skills, err := s.skills.ListByUser(ctx, email)
	if err != nil {
		return DashboardStats{}, storageError("list skills", err)
	}
	goals, err := s.goals.ListByUser(ctx, email)
	if err != nil {
		return DashboardStats{}, storageError("list goals", err)
	}
	contacts, err := s.contacts.ListByUser(ctx, email)
	if err != nil {
		return DashboardStats{}, storageError("list contacts", err)
	}
	return ComputeDashboard(tasks, skills, goals, contacts, s.now()), nil
}

func (s *DashboardService) NotificationCount(ctx context.Context, email string) (int, error) {
	stats, err := s.Dashboard(ctx, email)
	if err != nil {
		return 0, err
	}
	return stats.NotificationCount, nil
}

var _ NotificationCounter = (*DashboardService)(nil)

