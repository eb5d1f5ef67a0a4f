package domain

// RecognitionStatus distinguishes a real transcription from the degraded
// development mode used when no OCR credentials are configured.
type RecognitionStatus string

const (
	RecognitionOK           RecognitionStatus = "ok"
	RecognitionUnconfigured RecognitionStatus = "unconfigured"
)

// Feedback messages returned to the caller.
const (
	FeedbackNotConfigured = "Backend connected! Configure MathPix keys to enable real math recognition."
	FeedbackIllegible     = "Could not read your answer. Try writing more clearly."
	FeedbackCorrect       = "Correct! Well done."
	FeedbackIncorrect     = "Incorrect. Check your factoring and try again."
	FeedbackErrorPrefix   = "Error processing your answer: "
)

// Submission is a single grading request. It lives only for the request.
type Submission struct {
	Image          []byte
	ExpectedAnswer string // empty means use the configured default
}

// RecognitionResult is the transcription returned by the OCR service.
// Text may be empty when nothing legible was found.
type RecognitionResult struct {
	Text   string
	Status RecognitionStatus
}

// ComparisonOutcome is the full response contract of a grading request.
// A nil Correct means the comparison could not be attempted.
type ComparisonOutcome struct {
	Latex    string
	Correct  *bool
	Feedback string
}

// NewGradedOutcome builds the outcome of a completed comparison.
func NewGradedOutcome(latex string, correct bool) *ComparisonOutcome {
	feedback := FeedbackIncorrect
	if correct {
		feedback = FeedbackCorrect
	}
	return &ComparisonOutcome{
		Latex:    latex,
		Correct:  &correct,
		Feedback: feedback,
	}
}

// NewUngradedOutcome builds an outcome where correctness is absent.
func NewUngradedOutcome(latex, feedback string) *ComparisonOutcome {
	return &ComparisonOutcome{
		Latex:    latex,
		Feedback: feedback,
	}
}

// Graded reports whether a correctness verdict was reached.
func (o *ComparisonOutcome) Graded() bool {
	return o.Correct != nil
}
