package handlers

import (
	"answer-grading-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	gradingSvc     *services.GradingService
	uploadMaxBytes int64
}

func New(gradingSvc *services.GradingService, uploadMaxBytes int64) *Handler {
	return &Handler{
		gradingSvc:     gradingSvc,
		uploadMaxBytes: uploadMaxBytes,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)

	// Grading
	r.POST("/submit-answer/", h.SubmitAnswer)
}
