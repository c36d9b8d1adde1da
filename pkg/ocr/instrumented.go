package ocr

import (
	"context"
	"time"

	"github.com/Abraxas-365/escolar/pkg/logx"
)

// Instrumented wraps a recognizer to stamp the engine name and duration on
// every recognition and to log the outcome.
type Instrumented struct {
	next   TextRecognizer
	engine string
}

func NewInstrumented(next TextRecognizer, engine string) *Instrumented {
	return &Instrumented{next: next, engine: engine}
}

func (i *Instrumented) RecognizeText(ctx context.Context, input Input, opts ...Option) (*Recognition, error) {
	start := time.Now()
	rec, err := i.next.RecognizeText(ctx, input, opts...)
	elapsed := time.Since(start)

	entry := logx.WithContext(ctx).WithFields(logx.Fields{
		"engine":      i.engine,
		"image_bytes": len(input.Data),
		"duration_ms": elapsed.Milliseconds(),
	})
	if err != nil {
		entry.WithError(err).Warn("ocr: recognition failed")
		return nil, err
	}

	if rec.Engine == "" {
		rec.Engine = i.engine
	}
	rec.Duration = elapsed
	entry.WithFields(logx.Fields{
		"lines":      len(rec.Lines),
		"text_runes": len([]rune(rec.Text)),
	}).Info("ocr: recognition finished")
	return rec, nil
}

// Engine returns the name of the wrapped engine.
func (i *Instrumented) Engine() string { return i.engine }
