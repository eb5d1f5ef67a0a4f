package ports

import (
	"context"

	"answer-grading-service/internal/core/domain"
)

// Recognizer defines the contract for handwriting-to-LaTeX transcription
type Recognizer interface {
	// Recognize transcribes a single image. Unconfigured recognizers return a
	// result with domain.RecognitionUnconfigured and no error for any input;
	// configured ones reject an empty image with domain.ErrEmptyImage.
	Recognize(ctx context.Context, image []byte) (*domain.RecognitionResult, error)
}
