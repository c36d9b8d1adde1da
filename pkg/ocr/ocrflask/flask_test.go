package ocrflask_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/ocr"
	"github.com/Abraxas-365/escolar/pkg/ocr/ocrflask"
)

var image = ocr.Input{Data: []byte("\x89PNG fake"), MimeType: "image/png"}

func TestRecognizeText_UploadsAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/segmentar", r.URL.Path)

		file, header, err := r.FormFile("imagen")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "foto.png", header.Filename)
		assert.Equal(t, image.Data, data)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"filas": ["http://h/fila/1.png", "http://h/fila/2.png"],
			"excel": "http://h/excel/resultados_filas.xlsx",
			"nombresDetectados": ["Juan Perez", "Presente"]
		}`)
	}))
	defer srv.Close()

	client, err := ocrflask.New(srv.URL + "/")
	require.NoError(t, err)

	rec, err := client.RecognizeText(context.Background(), image)
	require.NoError(t, err)

	assert.Equal(t, []string{"Juan Perez", "Presente"}, rec.Lines)
	assert.Equal(t, "flask", rec.Engine)
	assert.Equal(t, "2", rec.Metadata[ocrflask.MetaRowCount])
	assert.Equal(t, "http://h/excel/resultados_filas.xlsx", rec.Metadata[ocrflask.MetaExcelURL])
}

func TestRecognizeText_SnakeCaseKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"filas": [], "nombres_detectados": ["Ana"]}`)
	}))
	defer srv.Close()

	client, err := ocrflask.New(srv.URL)
	require.NoError(t, err)

	rec, err := client.RecognizeText(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana"}, rec.Lines)
}

func TestRecognizeText_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"nombresDetectados": ["ok"]}`)
	}))
	defer srv.Close()

	client, err := ocrflask.New(srv.URL, ocrflask.WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	rec, err := client.RecognizeText(context.Background(), image)
	require.NoError(t, err)
	assert.Equal(t, []string{"ok"}, rec.Lines)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRecognizeText_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error": "No se pudo cargar la imagen"}`)
	}))
	defer srv.Close()

	client, err := ocrflask.New(srv.URL, ocrflask.WithRetry(3, time.Millisecond))
	require.NoError(t, err)

	_, err = client.RecognizeText(context.Background(), image)
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, ocr.ErrInvalidImage))
	assert.Equal(t, "No se pudo cargar la imagen", errx.From(err).Details["server_error"])
	assert.Equal(t, int32(1), calls.Load())
}

func TestRecognizeText_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client, err := ocrflask.New(url, ocrflask.WithRetry(1, 0))
	require.NoError(t, err)

	_, err = client.RecognizeText(context.Background(), image)
	require.Error(t, err)
	assert.True(t, errx.IsCode(err, ocr.ErrEngineUnavailable))
}

func TestRecognizeText_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `<html>oops</html>`)
	}))
	defer srv.Close()

	client, err := ocrflask.New(srv.URL, ocrflask.WithRetry(1, 0))
	require.NoError(t, err)

	_, err = client.RecognizeText(context.Background(), image)
	assert.True(t, errx.IsCode(err, ocr.ErrEngineFailed))
}

func TestNew_RequiresURL(t *testing.T) {
	_, err := ocrflask.New("  ")
	assert.True(t, errx.IsCode(err, ocr.ErrEngineUnavailable))
}
