package ocrmistral

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/escolar/pkg/asyncx"
	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/ocr"
)

const (
	DefaultBaseURL = "https://api.mistral.ai/v1"
	DefaultTimeout = 5 * time.Minute // OCR can take a while
	DefaultModel   = "mistral-ocr-latest"
	MaxRetries     = 3
)

// HTTPClient handles all HTTP communication with the Mistral API
type HTTPClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retry      asyncx.RetryPolicy
}

func NewHTTPClient(apiKey, baseURL string, httpClient *http.Client) *HTTPClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &HTTPClient{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		retry: asyncx.RetryPolicy{
			Attempts:     MaxRetries,
			InitialDelay: time.Second,
			Retryable:    ocr.Retryable,
		},
	}
}

// Post sends payload as JSON and returns the raw response body
func (c *HTTPClient) Post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, errx.Wrap(err, "failed to marshal request payload", errx.TypeInternal)
	}

	return asyncx.RetryWithBackoff(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.doRequest(ctx, endpoint, jsonData)
	})
}

func (c *HTTPClient) doRequest(ctx context.Context, endpoint string, body []byte) ([]byte, error) {
	url := c.baseURL + endpoint

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrEngineUnavailable, err).
			WithDetail("error", "failed to create HTTP request")
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", "escolar-ocr/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrEngineUnavailable, err).
			WithDetail("url", url)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrEngineFailed, err).
			WithDetail("error", "failed to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, ParseAPIError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// ParseAPIError maps an error response onto an OCR error code
func ParseAPIError(statusCode int, body []byte) *errx.Error {
	message := strings.TrimSpace(string(body))

	var envelope apiError
	if json.Unmarshal(body, &envelope) == nil {
		switch {
		case envelope.Error.Message != "":
			message = envelope.Error.Message
		case envelope.Message != "":
			message = envelope.Message
		}
	}

	return ocr.Registry().New(ocr.ErrorForStatus(statusCode)).
		WithDetail("status_code", statusCode).
		WithDetail("api_message", message)
}
