package ocrengine_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/ocr"
	"github.com/Abraxas-365/escolar/pkg/ocr/ocrengine"
)

func TestNew(t *testing.T) {
	base := config.OCRConfig{Timeout: time.Second, MaxRetries: 1}

	t.Run("flask", func(t *testing.T) {
		cfg := base
		cfg.Engine = config.EngineFlask
		cfg.Flask.ServerURL = "http://localhost:5000"

		engine, err := ocrengine.New(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, "flask", engine.Engine())
	})

	t.Run("mistral", func(t *testing.T) {
		cfg := base
		cfg.Engine = config.EngineMistral
		cfg.Mistral.APIKey = "k"

		engine, err := ocrengine.New(context.Background(), cfg)
		require.NoError(t, err)
		assert.Equal(t, "mistral", engine.Engine())
	})

	t.Run("mistral without key", func(t *testing.T) {
		cfg := base
		cfg.Engine = config.EngineMistral

		_, err := ocrengine.New(context.Background(), cfg)
		assert.True(t, errx.IsCode(err, ocr.ErrEngineUnauthorized))
	})

	t.Run("unknown", func(t *testing.T) {
		cfg := base
		cfg.Engine = "paddle"

		_, err := ocrengine.New(context.Background(), cfg)
		require.Error(t, err)
		assert.Equal(t, errx.TypeValidation, errx.From(err).Type)
	})
}

func TestNew_MaxRetriesCountsRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	engine, err := ocrengine.New(context.Background(), config.OCRConfig{
		Engine:       config.EngineFlask,
		Timeout:      time.Second,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
		Flask:        config.FlaskConfig{ServerURL: srv.URL},
	})
	require.NoError(t, err)

	_, err = engine.RecognizeText(context.Background(), ocr.Input{Data: []byte("\x89PNG"), MimeType: "image/png"})
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}
