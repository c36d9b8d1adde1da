// Package ocrengine builds the configured text recognizer.
package ocrengine

import (
	"context"
	"net/http"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/logx"
	"github.com/Abraxas-365/escolar/pkg/ocr"
	"github.com/Abraxas-365/escolar/pkg/ocr/ocrflask"
	"github.com/Abraxas-365/escolar/pkg/ocr/ocrgemini"
	"github.com/Abraxas-365/escolar/pkg/ocr/ocrmistral"
	"github.com/Abraxas-365/escolar/pkg/ocr/ocrtesseract"
)

// New returns the engine named by cfg.Engine wrapped with logging.
func New(ctx context.Context, cfg config.OCRConfig) (*ocr.Instrumented, error) {
	var (
		engine ocr.TextRecognizer
		err    error
	)

	httpClient := &http.Client{Timeout: cfg.Timeout}
	// MaxRetries counts retries after the first call.
	attempts := cfg.MaxRetries + 1

	switch cfg.Engine {
	case config.EngineFlask:
		engine, err = ocrflask.New(cfg.Flask.ServerURL,
			ocrflask.WithHTTPClient(httpClient),
			ocrflask.WithRetry(attempts, cfg.RetryBackoff),
		)
	case config.EngineGemini:
		engine, err = ocrgemini.New(ctx, cfg.Gemini)
	case config.EngineMistral:
		var p *ocrmistral.Provider
		p, err = ocrmistral.New(cfg.Mistral, ocrmistral.WithHTTPClient(httpClient))
		if err == nil {
			p.SetRetry(attempts, cfg.RetryBackoff)
			engine = p
		}
	case config.EngineTesseract:
		engine, err = ocrtesseract.New(cfg.Tesseract)
	default:
		return nil, errx.Validation("unknown OCR engine").WithDetail("engine", cfg.Engine)
	}
	if err != nil {
		return nil, err
	}

	logx.WithField("engine", cfg.Engine).Info("ocr engine ready")
	return ocr.NewInstrumented(engine, cfg.Engine), nil
}
