// Package ocrgemini reads documents with a Gemini multimodal model.
package ocrgemini

import (
	"context"
	"strings"

	"google.golang.org/genai"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/ocr"
)

const (
	EngineName   = "gemini"
	DefaultModel = "gemini-2.5-flash"
)

const transcribePrompt = `Transcribe all text visible in this image exactly as written.
Output one line of the document per line of output, top to bottom.
Keep labels such as "Nombre:" or "Calificación:" with their values.
Do not add commentary, headings or formatting.`

// generator is the subset of *genai.Models the provider calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Provider implements ocr.TextRecognizer with Gemini.
type Provider struct {
	models generator
	model  string
}

// New connects to the Gemini API or to Vertex AI depending on cfg.
func New(ctx context.Context, cfg config.GeminiConfig) (*Provider, error) {
	clientConfig := &genai.ClientConfig{}
	if cfg.VertexAI {
		clientConfig.Backend = genai.BackendVertexAI
		clientConfig.Project = cfg.Project
		clientConfig.Location = cfg.Location
	} else {
		if cfg.APIKey == "" {
			return nil, ocr.Registry().NewWithMessage(ocr.ErrEngineUnauthorized, "Falta la clave de la API de Gemini")
		}
		clientConfig.APIKey = cfg.APIKey
		clientConfig.Backend = genai.BackendGeminiAPI
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrEngineUnavailable, err).
			WithDetail("error", "failed to create Gemini client")
	}

	return newProvider(client.Models, cfg.Model), nil
}

func newProvider(models generator, model string) *Provider {
	if model == "" {
		model = DefaultModel
	}
	return &Provider{models: models, model: model}
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

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(input.Data, input.MimeType),
			genai.NewPartFromText(buildPrompt(options)),
		}, genai.RoleUser),
	}
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}

	resp, err := p.models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return nil, parseError(err).WithDetail("model", model)
	}

	text := strings.TrimSpace(resp.Text())
	return &ocr.Recognition{
		Text:   text,
		Engine: EngineName,
		Model:  model,
	}, nil
}

func buildPrompt(o *ocr.Options) string {
	var b strings.Builder
	b.WriteString(transcribePrompt)
	if o.DocumentType != "" {
		b.WriteString("\nThe document is a school ")
		b.WriteString(o.DocumentType)
		b.WriteString(".")
	}
	if len(o.LanguageHints) > 0 {
		b.WriteString("\nExpected languages: ")
		b.WriteString(strings.Join(o.LanguageHints, ", "))
		b.WriteString(".")
	}
	return b.String()
}

// parseError classifies SDK errors by their message, as the SDK exposes no
// stable error types for them.
func parseError(err error) *errx.Error {
	lower := strings.ToLower(err.Error())

	var code *errx.ErrorCode
	switch {
	case strings.Contains(lower, "unauthorized") ||
		strings.Contains(lower, "api key") ||
		strings.Contains(lower, "permission denied"):
		code = ocr.ErrEngineUnauthorized
	case strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "resource exhausted") ||
		strings.Contains(lower, "quota"):
		code = ocr.ErrEngineRateLimited
	case strings.Contains(lower, "deadline") ||
		strings.Contains(lower, "unavailable") ||
		strings.Contains(lower, "connection"):
		code = ocr.ErrEngineUnavailable
	default:
		code = ocr.ErrEngineFailed
	}
	return ocr.Registry().NewWithCause(code, err)
}
