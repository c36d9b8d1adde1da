//go:build tesseract

package ocrtesseract

import (
	"context"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/ocr"
)

// Engine implements ocr.TextRecognizer with a fresh gosseract client per call;
// clients are not safe for concurrent use.
type Engine struct {
	languages     []string
	clientFactory func() *gosseract.Client
}

func New(cfg config.TesseractConfig) (*Engine, error) {
	langs := cfg.Languages
	if len(langs) == 0 {
		langs = []string{"spa", "eng"}
	}
	return &Engine{languages: langs, clientFactory: gosseract.NewClient}, nil
}

func (e *Engine) RecognizeText(ctx context.Context, input ocr.Input, _ ...ocr.Option) (*ocr.Recognition, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(input.Data); err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrInvalidImage, err)
	}
	if err := c.SetLanguage(e.languages...); err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrEngineUnavailable, err).
			WithDetail("languages", e.languages)
	}

	text, err := c.Text()
	if err != nil {
		return nil, ocr.Registry().NewWithCause(ocr.ErrEngineFailed, err)
	}

	lines, confidence := textLines(c)
	if len(lines) == 0 {
		lines = ocr.SplitLines(text)
	}

	return &ocr.Recognition{
		Text:       strings.TrimSpace(text),
		Lines:      lines,
		Engine:     EngineName,
		Model:      strings.Join(e.languages, "+"),
		Confidence: confidence,
	}, nil
}

// textLines reads the text-line boxes and their mean confidence in [0,1].
func textLines(c *gosseract.Client) ([]string, float32) {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil || len(boxes) == 0 {
		return nil, 0
	}

	lines := make([]string, 0, len(boxes))
	var sum float64
	for _, b := range boxes {
		if w := strings.TrimSpace(b.Word); w != "" {
			lines = append(lines, w)
			sum += b.Confidence / 100.0
		}
	}
	if len(lines) == 0 {
		return nil, 0
	}
	return lines, float32(sum / float64(len(lines)))
}
