//go:build !tesseract

package ocrtesseract

import (
	"context"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/ocr"
)

type Engine struct{}

func New(config.TesseractConfig) (*Engine, error) {
	return nil, ocr.Registry().NewWithMessage(ocr.ErrEngineUnavailable,
		"Tesseract no está disponible en este binario").
		WithDetail("build_tag", "tesseract")
}

func (e *Engine) RecognizeText(context.Context, ocr.Input, ...ocr.Option) (*ocr.Recognition, error) {
	return nil, ocr.Registry().New(ocr.ErrEngineUnavailable)
}
