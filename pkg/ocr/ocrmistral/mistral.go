// Package ocrmistral reads documents with the Mistral OCR API.
package ocrmistral

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/ocr"
)

const EngineName = "mistral"

// Provider implements ocr.TextRecognizer with Mistral OCR
type Provider struct {
	client *HTTPClient
	model  string
}

type ProviderOption func(*providerOptions)

type providerOptions struct {
	httpClient *http.Client
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(o *providerOptions) { o.httpClient = c }
}

func New(cfg config.MistralConfig, opts ...ProviderOption) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, ocr.Registry().NewWithMessage(ocr.ErrEngineUnauthorized, "Falta la clave de la API de Mistral")
	}

	o := &providerOptions{}
	for _, opt := range opts {
		opt(o)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	return &Provider{
		client: NewHTTPClient(cfg.APIKey, cfg.BaseURL, o.httpClient),
		model:  model,
	}, nil
}

// SetRetry overrides the retry policy of the underlying client.
func (p *Provider) SetRetry(attempts int, backoff time.Duration) {
	p.client.retry.Attempts = attempts
	p.client.retry.InitialDelay = backoff
}

func (p *Provider) RecognizeText(ctx context.Context, input ocr.Input, opts ...ocr.Option) (*ocr.Recognition, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	options := ocr.ApplyOptions(opts...)
	model := p.model
	if options.Model != "" {
		model = options.Model
	}

	respBody, err := p.client.Post(ctx, "/ocr", buildRequest(input, model))
	if err != nil {
		return nil, err
	}

	var resp OCRResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrEngineFailed, err).
			WithDetail("error", "failed to parse OCR response")
	}

	var text strings.Builder
	for i, page := range resp.Pages {
		if i > 0 {
			text.WriteString("\n")
		}
		text.WriteString(plainText(page.Markdown))
	}

	out := text.String()
	if resp.Model != "" {
		model = resp.Model
	}
	return &ocr.Recognition{
		Text:   out,
		Engine: EngineName,
		Model:  model,
	}, nil
}

func buildRequest(input ocr.Input, model string) *OCRRequest {
	dataURL := fmt.Sprintf("data:%s;base64,%s", input.MimeType, base64.StdEncoding.EncodeToString(input.Data))

	if input.MimeType == "application/pdf" {
		return &OCRRequest{
			Model:    model,
			Document: DocumentInput{Type: "document_url", DocumentURL: dataURL},
		}
	}
	return &OCRRequest{
		Model:    model,
		Document: DocumentInput{Type: "image_url", ImageURL: dataURL},
	}
}

var (
	mdHeading   = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	mdEmphasis  = regexp.MustCompile(`\*{1,3}|_{2,3}`)
	mdImage     = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	mdTableRule = regexp.MustCompile(`(?m)^[ \t]*\|?[ \t:|-]+\|[ \t:|-]*$`)
)

// plainText strips the markdown Mistral wraps around recognized text. Table
// cells on one row become a single line separated by spaces.
func plainText(md string) string {
	md = mdImage.ReplaceAllString(md, "")
	md = mdTableRule.ReplaceAllString(md, "")
	md = mdHeading.ReplaceAllString(md, "")
	md = mdEmphasis.ReplaceAllString(md, "")

	lines := strings.Split(md, "\n")
	for i, l := range lines {
		if strings.Contains(l, "|") {
			var cells []string
			for _, c := range strings.Split(l, "|") {
				if c = strings.TrimSpace(c); c != "" {
					cells = append(cells, c)
				}
			}
			l = strings.Join(cells, " ")
		}
		lines[i] = strings.TrimSpace(l)
	}
	return strings.Join(lines, "\n")
}
