package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planfusion/internal/domain"
	"planfusion/internal/service"
)

type GoalManager interface {
	Create(ctx context.Context, email string, input service.GoalInput) (domain.Goal, error)
	List(ctx context.Context, email string) ([]domain.Goal, error)
	Update(ctx context.Context, email, id string, update service.GoalUpdate) (domain.Goal, error)
	Delete(ctx context.Context, email, id string) error
}

type GoalHandler struct {
	logger *zap.Logger
	goals  GoalManager
}

func NewGoalHandler(logger *zap.Logger, goals GoalManager) *GoalHandler {
	return &GoalHandler{logger: logger, goals: goals}
}

func (h *GoalHandler) List(c *gin.Context) {
	email, _ := CurrentEmail(c)
	goals, err := h.goals.List(c.Request.Context(), email)
	if err != nil {
		respondError(c, h.logger, "list goals", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goals": goals})
}

func (h *GoalHandler) Create(c *gin.Context) {
	var req struct {
		Description string `json:"description" binding:"required"`
		Type        string `json:"type" binding:"required"`
		Target      int    `json:"target"`
		Completed   int    `json:"completed"`
		Status      string `json:"status"`
		Deadline    string `json:"deadline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "create goal", err)
		return
	}
	email, _ := CurrentEmail(c)
	goal, err := h.goals.Create(c.Request.Context(), email, service.GoalInput{
		Description: req.Description,
		Type:        req.Type,
		Target:      req.Target,
		Completed:   req.Completed,
		Status:      req.Status,
		Deadline:    req.Deadline,
	})
	if err != nil {
		respondError(c, h.logger, "create goal", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"goal": goal})
}

func (h *GoalHandler) Update(c *gin.Context) {
	var req struct {
		Description *string `json:"description"`
		Type        *string `json:"type"`
		Target      *int    `json:"target"`
		Completed   *int    `json:"completed"`
		Status      *string `json:"status"`
		Deadline    *string `json:"deadline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update goal", err)
		return
	}
	email, _ := CurrentEmail(c)
	goal, err := h.goals.Update(c.Request.Context(), email, c.Param("id"), service.GoalUpdate{
		Description: req.Description,
		Type:        req.Type,
		Target:      req.Target,
		Completed:   req.Completed,
		Status:      req.Status,
		Deadline:    req.Deadline,
	})
	if err != nil {
		respondError(c, h.logger, "update goal", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"goal": goal})
}

func (h *GoalHandler) Delete(c *gin.Context) {
	email, _ := CurrentEmail(c)
	if err := h.goals.Delete(c.Request.Context(), email, c.Param("id")); err != nil {
		respondError(c, h.logger, "delete goal", err)
		return
	}
	c.Status(http.StatusNoContent)
}
