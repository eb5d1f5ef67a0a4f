package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"answer-grading-service/internal/config"
	"answer-grading-service/internal/core/domain"
	"answer-grading-service/internal/core/services"
	"answer-grading-service/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testImage = []byte("\x89PNG\r\n\x1a\nfake-image-bytes")

func setupGradingRouter(uploadMaxBytes int64) (*testutil.MockRecognizer, *testutil.MockComparator, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	recognizer := new(testutil.MockRecognizer)
	comparator := new(testutil.MockComparator)

	svc := services.NewGradingService(recognizer, comparator, config.DefaultExpectedAnswer)
	h := New(svc, uploadMaxBytes)
	r := gin.New()
	h.RegisterRoutes(r)

	return recognizer, comparator, r
}

// multipartRequest builds a submit request. A nil image omits the file part.
func multipartRequest(t *testing.T, image []byte, fields map[string]string) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	if image != nil {
		part, err := w.CreateFormFile("file", "answer.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, "/submit-answer/", body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// ============================================================================
// Health Tests
// ============================================================================

func TestHealth(t *testing.T) {
	_, _, r := setupGradingRouter(0)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

// ============================================================================
// SubmitAnswer Tests
// ============================================================================

func TestSubmitAnswer_Correct(t *testing.T) {
	recognizer, comparator, r := setupGradingRouter(0)

	recognizer.On("Recognize", mock.Anything, testImage).Return(testutil.Recognized("(x+1)^{2}"), nil)
	comparator.On("Equivalent", "(x+1)^{2}", "x**2 + 2*x + 1").Return(true, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, testImage, map[string]string{"correct_answer": "x**2 + 2*x + 1"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"latex":"(x+1)^{2}","correct":true,"feedback":"Correct! Well done."}`, w.Body.String())
	recognizer.AssertExpectations(t)
	comparator.AssertExpectations(t)
}

func TestSubmitAnswer_Incorrect(t *testing.T) {
	recognizer, comparator, r := setupGradingRouter(0)

	recognizer.On("Recognize", mock.Anything, testImage).Return(testutil.Recognized("x^2+1"), nil)
	comparator.On("Equivalent", "x^2+1", config.DefaultExpectedAnswer).Return(false, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, testImage, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "x^2+1", resp["latex"])
	assert.Equal(t, false, resp["correct"])
	assert.Equal(t, domain.FeedbackIncorrect, resp["feedback"])
}

func TestSubmitAnswer_BlankCorrectAnswerUsesDefault(t *testing.T) {
	recognizer, comparator, r := setupGradingRouter(0)

	recognizer.On("Recognize", mock.Anything, testImage).Return(testutil.Recognized("x"), nil)
	comparator.On("Equivalent", "x", config.DefaultExpectedAnswer).Return(false, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, testImage, map[string]string{"correct_answer": "   "}))

	assert.Equal(t, http.StatusOK, w.Code)
	comparator.AssertExpectations(t)
}

func TestSubmitAnswer_Unconfigured(t *testing.T) {
	recognizer, comparator, r := setupGradingRouter(0)

	recognizer.On("Recognize", mock.Anything, testImage).Return(testutil.Unconfigured(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, testImage, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "", resp["latex"])
	assert.Contains(t, resp, "correct")
	assert.Nil(t, resp["correct"])
	assert.Equal(t, domain.FeedbackNotConfigured, resp["feedback"])
	comparator.AssertNotCalled(t, "Equivalent", mock.Anything, mock.Anything)
}

func TestSubmitAnswer_Illegible(t *testing.T) {
	recognizer, comparator, r := setupGradingRouter(0)

	recognizer.On("Recognize", mock.Anything, testImage).Return(testutil.Recognized(""), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, testImage, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"latex":"","correct":null,"feedback":"Could not read your answer. Try writing more clearly."}`, w.Body.String())
	comparator.AssertNotCalled(t, "Equivalent", mock.Anything, mock.Anything)
}

func TestSubmitAnswer_ExpressionError(t *testing.T) {
	recognizer, comparator, r := setupGradingRouter(0)

	recognizer.On("Recognize", mock.Anything, testImage).Return(testutil.Recognized("(x+1)^2"), nil)
	comparator.On("Equivalent", "(x+1)^2", "))) invalid(((").
		Return(false, fmt.Errorf("%w: invalid syntax: unexpected ')' at position 0", domain.ErrExpression))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, testImage, map[string]string{"correct_answer": "))) invalid((("}))

	assert.Equal(t, http.StatusOK, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "(x+1)^2", resp["latex"])
	assert.Nil(t, resp["correct"])
	assert.Equal(t, domain.FeedbackErrorPrefix+"invalid syntax: unexpected ')' at position 0", resp["feedback"])
}

func TestSubmitAnswer_MissingFile(t *testing.T) {
	recognizer, _, r := setupGradingRouter(0)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, nil, map[string]string{"correct_answer": "x"}))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, domain.ErrImageRequired.Error(), decodeBody(t, w)["error"])
	recognizer.AssertNotCalled(t, "Recognize", mock.Anything, mock.Anything)
}

func TestSubmitAnswer_NotMultipart(t *testing.T) {
	_, _, r := setupGradingRouter(0)

	req, _ := http.NewRequest(http.MethodPost, "/submit-answer/", bytes.NewBufferString(`{"file":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestSubmitAnswer_EmptyFile(t *testing.T) {
	recognizer, comparator, r := setupGradingRouter(0)

	recognizer.On("Recognize", mock.Anything, []byte{}).Return(nil, domain.ErrEmptyImage)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, []byte{}, nil))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, domain.ErrEmptyImage.Error(), decodeBody(t, w)["error"])
	comparator.AssertNotCalled(t, "Equivalent", mock.Anything, mock.Anything)
}

func TestSubmitAnswer_EmptyFileUnconfigured(t *testing.T) {
	recognizer, _, r := setupGradingRouter(0)

	recognizer.On("Recognize", mock.Anything, []byte{}).Return(testutil.Unconfigured(), nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, []byte{}, nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"latex":"","correct":null,"feedback":"`+domain.FeedbackNotConfigured+`"}`, w.Body.String())
}

func TestSubmitAnswer_TooLarge(t *testing.T) {
	recognizer, _, r := setupGradingRouter(256)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, bytes.Repeat([]byte("a"), 4096), nil))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, domain.ErrImageTooLarge.Error(), decodeBody(t, w)["error"])
	recognizer.AssertNotCalled(t, "Recognize", mock.Anything, mock.Anything)
}

func TestSubmitAnswer_RecognitionUnavailable(t *testing.T) {
	recognizer, _, r := setupGradingRouter(0)

	recognizer.On("Recognize", mock.Anything, testImage).
		Return(nil, &domain.RecognitionUnavailableError{Cause: errors.New("connection refused")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, testImage, nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Error calling MathPix: connection refused"}`, w.Body.String())
}

func TestSubmitAnswer_RecognitionServiceError(t *testing.T) {
	recognizer, _, r := setupGradingRouter(0)

	recognizer.On("Recognize", mock.Anything, testImage).
		Return(nil, &domain.RecognitionServiceError{StatusCode: http.StatusUnauthorized, Body: `{"error":"invalid credentials"}`})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, testImage, nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeBody(t, w)
	assert.Equal(t, "MathPix API error", resp["error"])
	assert.Equal(t, `{"error":"invalid credentials"}`, resp["details"])
}

func TestSubmitAnswer_UnknownError(t *testing.T) {
	recognizer, _, r := setupGradingRouter(0)

	recognizer.On("Recognize", mock.Anything, testImage).Return(nil, errors.New("boom"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, multipartRequest(t, testImage, nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal server error", decodeBody(t, w)["error"])
}
