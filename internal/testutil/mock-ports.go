package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"answer-grading-service/internal/core/domain"
)

// MockRecognizer is a mock of ports.Recognizer.
type MockRecognizer struct {
	mock.Mock
}

func (m *MockRecognizer) Recognize(ctx context.Context, image []byte) (*domain.RecognitionResult, error) {
	args := m.Called(ctx, image)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RecognitionResult), args.Error(1)
}

// MockComparator is a mock of ports.ExpressionComparator.
type MockComparator struct {
	mock.Mock
}

func (m *MockComparator) Equivalent(recognized, expected string) (bool, error) {
	args := m.Called(recognized, expected)
	return args.Bool(0), args.Error(1)
}

// Recognized is a shorthand for a successful transcription.
func Recognized(text string) *domain.RecognitionResult {
	return &domain.RecognitionResult{Text: text, Status: domain.RecognitionOK}
}

// Unconfigured is the result of a recognizer without credentials.
func Unconfigured() *domain.RecognitionResult {
	return &domain.RecognitionResult{Status: domain.RecognitionUnconfigured}
}
