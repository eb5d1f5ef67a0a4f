package services

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"answer-grading-service/internal/core/domain"
	ports "answer-grading-service/internal/core/ports/output"
)

// GradingService runs a submission through recognition and comparison
type GradingService struct {
	recognizer      ports.Recognizer
	comparator      ports.ExpressionComparator
	defaultExpected string
}

// NewGradingService creates a new grading service
func NewGradingService(
	recognizer ports.Recognizer,
	comparator ports.ExpressionComparator,
	defaultExpected string,
) *GradingService {
	return &GradingService{
		recognizer:      recognizer,
		comparator:      comparator,
		defaultExpected: defaultExpected,
	}
}

// Grade returns an outcome for every comparator-level result. Only recognition
// failures, including an empty image, are returned as errors.
func (s *GradingService) Grade(ctx context.Context, sub domain.Submission) (*domain.ComparisonOutcome, error) {
	result, err := s.recognizer.Recognize(ctx, sub.Image)
	if err != nil {
		return nil, err
	}

	if result.Status == domain.RecognitionUnconfigured {
		log.Debug("recognizer not configured, returning dev-mode outcome")
		return domain.NewUngradedOutcome("", domain.FeedbackNotConfigured), nil
	}

	latex := strings.TrimSpace(result.Text)
	if latex == "" {
		return domain.NewUngradedOutcome("", domain.FeedbackIllegible), nil
	}

	expected := s.expectedAnswer(sub.ExpectedAnswer)

	correct, err := s.comparator.Equivalent(latex, expected)
	if err != nil {
		log.WithFields(log.Fields{
			"latex":    latex,
			"expected": expected,
		}).WithError(err).Info("answer could not be compared")
		return domain.NewUngradedOutcome(latex, domain.FeedbackErrorPrefix+expressionDetail(err)), nil
	}

	return domain.NewGradedOutcome(latex, correct), nil
}

func (s *GradingService) expectedAnswer(supplied string) string {
	if supplied = strings.TrimSpace(supplied); supplied != "" {
		return supplied
	}
	return s.defaultExpected
}

// expressionDetail strips the sentinel prefix so feedback reads naturally.
func expressionDetail(err error) string {
	msg := err.Error()
	if errors.Is(err, domain.ErrExpression) {
		msg = strings.TrimPrefix(msg, domain.ErrExpression.Error()+": ")
	}
	return msg
}
