package mathpix

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"answer-grading-service/internal/config"
	"answer-grading-service/internal/core/domain"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*mathpixClient, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewMathPixClient(&config.MathPixConfig{
		AppID:   "test-app",
		AppKey:  "test-key",
		URL:     srv.URL + "/v3/text",
		Timeout: 2 * time.Second,
	})
	return c.(*mathpixClient), &calls
}

// ============================================================================
// Client Creation Tests
// ============================================================================

func TestNewMathPixClient_Unconfigured(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.MathPixConfig
	}{
		{"empty", config.MathPixConfig{}},
		{"placeholders", config.MathPixConfig{AppID: config.PlaceholderAppID, AppKey: config.PlaceholderAppKey}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&calls, 1)
			}))
			defer srv.Close()

			tt.cfg.URL = srv.URL
			c := NewMathPixClient(&tt.cfg)

			for _, image := range [][]byte{pngHeader, {}, nil} {
				result, err := c.Recognize(context.Background(), image)
				require.NoError(t, err)
				assert.Equal(t, domain.RecognitionUnconfigured, result.Status)
				assert.Empty(t, result.Text)
			}
			assert.Zero(t, atomic.LoadInt32(&calls))
		})
	}
}

func TestNewMathPixClient_DefaultTimeout(t *testing.T) {
	c := NewMathPixClient(&config.MathPixConfig{AppID: "a", AppKey: "k", URL: "http://localhost"})
	assert.Equal(t, defaultTimeout, c.(*mathpixClient).client.Timeout)
}

// ============================================================================
// Recognize Tests
// ============================================================================

func TestRecognize_Success(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/text", r.URL.Path)
		assert.Equal(t, "test-app", r.Header.Get("app_id"))
		assert.Equal(t, "test-key", r.Header.Get("app_key"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(pngHeader), body["src"])
		assert.Equal(t, []interface{}{"text"}, body["formats"])
		assert.Equal(t, map[string]interface{}{"include_asciimath": false}, body["data_options"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text": "  \\( (x+1)^{2} \\)\n"}`))
	})

	result, err := c.Recognize(context.Background(), pngHeader)
	require.NoError(t, err)
	assert.Equal(t, domain.RecognitionOK, result.Status)
	assert.Equal(t, `\( (x+1)^{2} \)`, result.Text)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestRecognize_EmptyImage(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"text": "x"}`))
	})

	result, err := c.Recognize(context.Background(), []byte{})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrEmptyImage)
	assert.Zero(t, atomic.LoadInt32(calls))
}

func TestRecognize_EmptyText(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"request_id": "abc"}`))
	})

	result, err := c.Recognize(context.Background(), pngHeader)
	require.NoError(t, err)
	assert.Equal(t, domain.RecognitionOK, result.Status)
	assert.Empty(t, result.Text)
}

func TestRecognize_NonSuccessStatus(t *testing.T) {
	c, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	})

	result, err := c.Recognize(context.Background(), pngHeader)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrRecognitionService)

	var svcErr *domain.RecognitionServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusUnauthorized, svcErr.StatusCode)
	assert.Equal(t, `{"error":"Invalid credentials"}`, svcErr.Body)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls), "no retry on failure")
}

func TestRecognize_UndecodableBody(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	})

	_, err := c.Recognize(context.Background(), pngHeader)
	var svcErr *domain.RecognitionServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusOK, svcErr.StatusCode)
	assert.Equal(t, `<html>gateway</html>`, svcErr.Body)
}

func TestRecognize_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewMathPixClient(&config.MathPixConfig{AppID: "a", AppKey: "k", URL: url, Timeout: time.Second})

	result, err := c.Recognize(context.Background(), pngHeader)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrRecognitionUnavailable)
	assert.NotErrorIs(t, err, domain.ErrRecognitionService)
}

func TestRecognize_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewMathPixClient(&config.MathPixConfig{AppID: "a", AppKey: "k", URL: srv.URL, Timeout: 50 * time.Millisecond})

	_, err := c.Recognize(context.Background(), pngHeader)
	assert.ErrorIs(t, err, domain.ErrRecognitionUnavailable)
}

// ============================================================================
// dataURL Tests
// ============================================================================

func TestDataURL(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}

	tests := []struct {
		name     string
		image    []byte
		wantMIME string
	}{
		{"png", pngHeader, "image/png"},
		{"jpeg", jpeg, "image/jpeg"},
		{"unknown falls back to png", []byte("hello"), "image/png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dataURL(tt.image)
			assert.True(t, strings.HasPrefix(got, "data:"+tt.wantMIME+";base64,"), got)
			encoded := strings.TrimPrefix(got, "data:"+tt.wantMIME+";base64,")
			decoded, err := base64.StdEncoding.DecodeString(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.image, decoded)
		})
	}
}
