package dto

import "answer-grading-service/internal/core/domain"

// GradeResponse always carries all three keys; correct is null when the
// answer could not be graded.
type GradeResponse struct {
	Latex    string `json:"latex"`
	Correct  *bool  `json:"correct"`
	Feedback string `json:"feedback"`
}

func ToGradeResponse(o *domain.ComparisonOutcome) GradeResponse {
	return GradeResponse{
		Latex:    o.Latex,
		Correct:  o.Correct,
		Feedback: o.Feedback,
	}
}
