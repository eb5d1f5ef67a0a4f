package mathpix

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	log "github.com/sirupsen/logrus"

	"answer-grading-service/internal/config"
	"answer-grading-service/internal/core/domain"
	ports "answer-grading-service/internal/core/ports/output"
)

const (
	defaultTimeout  = 15 * time.Second
	fallbackMIME    = "image/png"
	maxResponseBody = 1 << 20
)

type mathpixClient struct {
	url        string
	appID      string
	appKey     string
	client     *http.Client
	configured bool
}

// NewMathPixClient creates a new MathPix recognition adapter
func NewMathPixClient(cfg *config.MathPixConfig) ports.Recognizer {
	if !cfg.Configured() {
		return &mathpixClient{configured: false}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &mathpixClient{
		url:        cfg.URL,
		appID:      cfg.AppID,
		appKey:     cfg.AppKey,
		configured: true,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// MathPix API request/response structures
type textRequest struct {
	Src         string      `json:"src"`
	Formats     []string    `json:"formats"`
	DataOptions dataOptions `json:"data_options"`
}

type dataOptions struct {
	IncludeAsciiMath bool `json:"include_asciimath"`
}

type textResponse struct {
	Text  string `json:"text"`
	Error string `json:"error,omitempty"`
}

func (c *mathpixClient) Recognize(ctx context.Context, image []byte) (*domain.RecognitionResult, error) {
	if !c.configured {
		return &domain.RecognitionResult{Status: domain.RecognitionUnconfigured}, nil
	}
	if len(image) == 0 {
		return nil, domain.ErrEmptyImage
	}

	payload, err := json.Marshal(textRequest{
		Src:         dataURL(image),
		Formats:     []string{"text"},
		DataOptions: dataOptions{IncludeAsciiMath: false},
	})
	if err != nil {
		return nil, fmt.Errorf("encode mathpix request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, &domain.RecognitionUnavailableError{Cause: err}
	}
	req.Header.Set("app_id", c.appID)
	req.Header.Set("app_key", c.appKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		log.WithError(err).Warn("mathpix request failed")
		return nil, &domain.RecognitionUnavailableError{Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &domain.RecognitionUnavailableError{Cause: fmt.Errorf("read mathpix response: %w", err)}
	}

	log.WithFields(log.Fields{
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("mathpix responded")

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.RecognitionServiceError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out textResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, &domain.RecognitionServiceError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return &domain.RecognitionResult{
		Text:   strings.TrimSpace(out.Text),
		Status: domain.RecognitionOK,
	}, nil
}

// dataURL encodes the image as a base64 data URL. Unknown content is sent
// as PNG and left for the service to reject.
func dataURL(image []byte) string {
	mime := mimetype.Detect(image).String()
	if !strings.HasPrefix(mime, "image/") {
		mime = fallbackMIME
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}
