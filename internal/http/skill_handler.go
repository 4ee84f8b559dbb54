package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"planfusion/internal/domain"
	"planfusion/internal/service"
)

type SkillManager interface {
	Create(ctx context.Context, email string, input service.SkillInput) (domain.Skill, error)
	List(ctx context.Context, email string) ([]domain.Skill, error)
	Update(ctx context.Context, email, id string, update service.SkillUpdate) (domain.Skill, error)
	Delete(ctx context.Context, email, id string) error
	UpdateDay(ctx context.Context, email, skillID, date, note string, completed bool) (domain.Skill, error)
}

type SkillHandler struct {
	logger *zap.Logger
	skills SkillManager
}

func NewSkillHandler(logger *zap.Logger, skills SkillManager) *SkillHandler {
	return &SkillHandler{logger: logger, skills: skills}
}

func (h *SkillHandler) List(c *gin.Context) {
	email, _ := CurrentEmail(c)
	skills, err := h.skills.List(c.Request.Context(), email)
	if err != nil {
		respondError(c, h.logger, "list skills", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skills": skills})
}

func (h *SkillHandler) Create(c *gin.Context) {
	var req struct {
		Name            string `json:"name" binding:"required"`
		LearningFrom    string `json:"learning_from"`
		StartDate       string `json:"start_date" binding:"required"`
		ExpectedEndDate string `json:"expected_end_date" binding:"required"`
		Priority        string `json:"priority"`
		Level           string `json:"level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "create skill", err)
		return
	}
	email, _ := CurrentEmail(c)
	skill, err := h.skills.Create(c.Request.Context(), email, service.SkillInput{
		Name:            req.Name,
		LearningFrom:    req.LearningFrom,
		StartDate:       req.StartDate,
		ExpectedEndDate: req.ExpectedEndDate,
		Priority:        req.Priority,
		Level:           req.Level,
	})
	if err != nil {
		respondError(c, h.logger, "create skill", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"skill": skill})
}

func (h *SkillHandler) Update(c *gin.Context) {
	var req struct {
		Name         *string `json:"name"`
		LearningFrom *string `json:"learning_from"`
		Priority     *string `json:"priority"`
		Level        *string `json:"level"`
		Status       *string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update skill", err)
		return
	}
	email, _ := CurrentEmail(c)
	skill, err := h.skills.Update(c.Request.Context(), email, c.Param("id"), service.SkillUpdate{
		Name:         req.Name,
		LearningFrom: req.LearningFrom,
		Priority:     req.Priority,
		Level:        req.Level,
		Status:       req.Status,
	})
	if err != nil {
		respondError(c, h.logger, "update skill", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skill": skill})
}

func (h *SkillHandler) Delete(c *gin.Context) {
	email, _ := CurrentEmail(c)
	if err := h.skills.Delete(c.Request.Context(), email, c.Param("id")); err != nil {
		respondError(c, h.logger, "delete skill", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateDay maneja PUT /api/skills/:id/day/:date.
func (h *SkillHandler) UpdateDay(c *gin.Context) {
	var req struct {
		Note      string `json:"note"`
		Completed *bool  `json:"completed" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, h.logger, "update skill day", err)
		return
	}
	email, _ := CurrentEmail(c)
	skill, err := h.skills.UpdateDay(c.Request.Context(), email, c.Param("id"), c.Param("date"), req.Note, *req.Completed)
	if err != nil {
		respondError(c, h.logger, "update skill day", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skill": skill})
}
