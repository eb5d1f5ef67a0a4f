package handlers

import (
	"errors"
	"net/http"

	"answer-grading-service/internal/core/domain"

	"github.com/gin-gonic/gin"
)

func mapDomainError(c *gin.Context, err error) {
	var (
		unavailable *domain.RecognitionUnavailableError
		serviceErr  *domain.RecognitionServiceError
	)

	switch {
	// Recognition errors
	case errors.As(err, &unavailable):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error calling MathPix: " + unavailable.Error()})
	case errors.As(err, &serviceErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "MathPix API error", "details": serviceErr.Body})

	// Upload errors
	case errors.Is(err, domain.ErrImageRequired),
		errors.Is(err, domain.ErrEmptyImage):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrImageTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})

	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
