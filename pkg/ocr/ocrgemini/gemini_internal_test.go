package ocrgemini

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/extract"
	"github.com/Abraxas-365/escolar/pkg/ocr"
)

type fakeModels struct {
	text  string
	err   error
	model string
	parts []*genai.Part
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, _ *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.parts = contents[0].Parts
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

var image = ocr.Input{Data: []byte("\x89PNG"), MimeType: "image/png"}

func TestRecognizeText(t *testing.T) {
	fake := &fakeModels{text: "Nombre: Ana Torres\n\nCédula: 0912345678\n"}
	p := newProvider(fake, "")

	rec, err := p.RecognizeText(context.Background(), image, ocr.WithDocumentType("IdCard"))
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, fake.model)
	require.Len(t, fake.parts, 2)
	assert.Equal(t, "image/png", fake.parts[0].InlineData.MIMEType)
	assert.Contains(t, fake.parts[1].Text, "school IdCard")

	assert.Equal(t, "Nombre: Ana Torres\n\nCédula: 0912345678", rec.Text)
	assert.Empty(t, rec.Lines)
	assert.False(t, rec.Source().LineMode())
	assert.Equal(t, "gemini", rec.Engine)
	assert.Equal(t, DefaultModel, rec.Model)
}

func TestRecognizeText_BlobReachesLabelRules(t *testing.T) {
	fake := &fakeModels{text: "REGISTRO DE ASISTENCIA\nNombre: Luis Gomez\nEstado: Ausente"}

	rec, err := newProvider(fake, "").RecognizeText(context.Background(), image)
	require.NoError(t, err)

	res := extract.Extract(rec.Source(), "attendance")
	require.NotNil(t, res.Student.FullName)
	assert.Equal(t, "Luis Gomez", *res.Student.FullName)
	assert.Equal(t, "Ausente", res.Additional["attendance_status"])

	generic := extract.Extract(rec.Source(), "Certificado")
	assert.Contains(t, generic.Additional, "text_preview")
	assert.NotContains(t, generic.Additional, "line_1")
}

func TestRecognizeText_ModelOverride(t *testing.T) {
	fake := &fakeModels{text: "x"}

	_, err := newProvider(fake, "gemini-2.5-pro").RecognizeText(context.Background(), image, ocr.WithModel("other"))
	require.NoError(t, err)
	assert.Equal(t, "other", fake.model)
}

func TestRecognizeText_ErrorsClassified(t *testing.T) {
	tests := map[string]*errx.ErrorCode{
		"Error 429, RESOURCE_EXHAUSTED":  ocr.ErrEngineRateLimited,
		"API key not valid":              ocr.ErrEngineUnauthorized,
		"context deadline exceeded":      ocr.ErrEngineUnavailable,
		"Error 500, INTERNAL: something": ocr.ErrEngineFailed,
	}

	for msg, want := range tests {
		_, err := newProvider(&fakeModels{err: errors.New(msg)}, "").RecognizeText(context.Background(), image)
		assert.True(t, errx.IsCode(err, want), msg)
	}
}

func TestNew_RequiresKeyOutsideVertex(t *testing.T) {
	_, err := New(context.Background(), config.GeminiConfig{Model: DefaultModel})
	assert.True(t, errx.IsCode(err, ocr.ErrEngineUnauthorized))
}
