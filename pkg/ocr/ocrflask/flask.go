// Package ocrflask talks to the row segmentation service: a small HTTP server
// that splits a class list photo into rows, reads every row and answers with
// one string per row.
package ocrflask

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/Abraxas-365/escolar/pkg/asyncx"
	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/logx"
	"github.com/Abraxas-365/escolar/pkg/ocr"
)

const (
	EngineName     = "flask"
	segmentPath    = "/segmentar"
	formField      = "imagen"
	uploadFilename = "foto.png"

	DefaultTimeout = 2 * time.Minute
)

// Metadata keys set on the recognition.
const (
	MetaExcelURL = "excel_url"
	MetaRowCount = "row_count"
)

// Response is the JSON body returned by the segmentation service.
type Response struct {
	Rows  []string `json:"filas"`
	Excel string   `json:"excel"`
	Names []string `json:"nombresDetectados"`
	// Older deployments answer in snake case.
	NamesSnake []string `json:"nombres_detectados"`
}

// DetectedLines returns the per-row text, whichever key carried it.
func (r *Response) DetectedLines() []string {
	if len(r.Names) > 0 {
		return r.Names
	}
	return r.NamesSnake
}

// Client implements ocr.TextRecognizer against the segmentation service.
type Client struct {
	serverURL  string
	httpClient *http.Client
	retry      asyncx.RetryPolicy
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithRetry(attempts int, backoff time.Duration) Option {
	return func(cl *Client) {
		cl.retry.Attempts = attempts
		cl.retry.InitialDelay = backoff
	}
}

// New builds a client for the service listening at serverURL.
func New(serverURL string, opts ...Option) (*Client, error) {
	serverURL = strings.TrimRight(strings.TrimSpace(serverURL), "/")
	if serverURL == "" {
		return nil, ocr.Registry().NewWithMessage(ocr.ErrEngineUnavailable, "Falta la URL del servidor OCR")
	}

	c := &Client{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		retry: asyncx.RetryPolicy{
			Attempts:     3,
			InitialDelay: time.Second,
			Retryable:    ocr.Retryable,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// RecognizeText uploads the image and returns one line per detected row.
func (c *Client) RecognizeText(ctx context.Context, input ocr.Input, _ ...ocr.Option) (*ocr.Recognition, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	body, contentType, err := c.buildForm(input)
	if err != nil {
		return nil, err
	}

	resp, err := asyncx.RetryWithBackoff(ctx, c.retry, func(ctx context.Context) (*Response, error) {
		return c.segment(ctx, body, contentType)
	})
	if err != nil {
		return nil, err
	}

	lines := resp.DetectedLines()
	logx.WithContext(ctx).WithFields(logx.Fields{
		"rows":  len(resp.Rows),
		"names": len(lines),
	}).Debug("ocrflask: segmentation finished")

	rec := &ocr.Recognition{
		Lines:  lines,
		Engine: EngineName,
		Metadata: map[string]string{
			MetaRowCount: strconv.Itoa(len(resp.Rows)),
		},
	}
	if resp.Excel != "" {
		rec.Metadata[MetaExcelURL] = resp.Excel
	}
	return rec, nil
}

func (c *Client) buildForm(input ocr.Input) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="`+formField+`"; filename="`+uploadFilename+`"`)
	header.Set("Content-Type", "image/png")

	part, err := w.CreatePart(header)
	if err != nil {
		return nil, "", errx.Wrap(err, "failed to build multipart form", errx.TypeInternal)
	}
	if _, err := part.Write(input.Data); err != nil {
		return nil, "", errx.Wrap(err, "failed to build multipart form", errx.TypeInternal)
	}
	if err := w.Close(); err != nil {
		return nil, "", errx.Wrap(err, "failed to build multipart form", errx.TypeInternal)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func (c *Client) segment(ctx context.Context, body []byte, contentType string) (*Response, error) {
	url := c.serverURL + segmentPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrEngineUnavailable, err).WithDetail("url", url)
	}
	req.Header.Set("Content-Type", contentType)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrEngineUnavailable, err).WithDetail("url", url)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrEngineFailed, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		logx.WithFields(logx.Fields{
			"status": httpResp.StatusCode,
			"body":   truncate(string(respBody), 300),
		}).Warn("ocrflask: server returned an error")
		return nil, ocr.Registry().New(ocr.ErrorForStatus(httpResp.StatusCode)).
			WithDetail("status_code", httpResp.StatusCode).
			WithDetail("server_error", serverError(respBody))
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrEngineFailed, err).
			WithDetail("status_code", httpResp.StatusCode).
			WithDetail("reason", "invalid json response")
	}
	return &resp, nil
}

// serverError pulls the "error" message the service sends on failures.
func serverError(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return truncate(strings.TrimSpace(string(body)), 300)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
