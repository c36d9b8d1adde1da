package ocrscanapi_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/errx/errxfiber"
	"github.com/Abraxas-365/escolar/pkg/jobx"
	"github.com/Abraxas-365/escolar/pkg/jobx/jobxmem"
	"github.com/Abraxas-365/escolar/pkg/kernel"
	"github.com/Abraxas-365/escolar/pkg/ocr"
	"github.com/Abraxas-365/escolar/pkg/ocrscan"
	"github.com/Abraxas-365/escolar/pkg/ocrscan/ocrscanapi"
	"github.com/Abraxas-365/escolar/pkg/ocrscan/ocrscansrv"
)

var pngImage = base64.StdEncoding.EncodeToString(append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...))

type stubRecognizer struct{ rec ocr.Recognition }

func (s stubRecognizer) RecognizeText(context.Context, ocr.Input, ...ocr.Option) (*ocr.Recognition, error) {
	rec := s.rec
	return &rec, nil
}

type memRepo struct {
	mu    sync.Mutex
	scans []ocrscan.Scan
}

func (r *memRepo) Save(_ context.Context, scan ocrscan.Scan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scans = append(r.scans, scan)
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id kernel.ScanID) (*ocrscan.Scan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.scans {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, ocrscan.ErrScanNotFound(id.String())
}

func (r *memRepo) List(_ context.Context, filter ocrscan.ScanFilter, opts kernel.PaginationOptions) (kernel.Paginated[ocrscan.Scan], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var items []ocrscan.Scan
	for _, s := range r.scans {
		if filter.UserID.IsEmpty() || s.UserID == filter.UserID {
			items = append(items, s)
		}
	}
	return kernel.NewPaginated(items, opts.Page, opts.PageSize, len(items)), nil
}

type testApp struct {
	app  *fiber.App
	repo *memRepo
}

// newApp authenticates every request as the user named in X-Test-User with
// the role in X-Test-Role.
func newApp(t *testing.T, rec ocr.Recognition) testApp {
	t.Helper()
	repo := &memRepo{}
	jobs := jobx.NewClient(jobxmem.NewMemoryQueue(), jobx.WithQueues("ocr"))
	svc := ocrscansrv.NewService(stubRecognizer{rec: rec}, repo, nil, jobs, config.ScanConfig{
		DefaultDocumentType: "AcademicRecord",
		BatchConcurrency:    2,
		MaxBatchSize:        5,
		JobQueue:            "ocr",
	})

	app := fiber.New(fiber.Config{ErrorHandler: errxfiber.ErrorHandler(false)})
	authn := func(c *fiber.Ctx) error {
		user := c.Get("X-Test-User")
		if user == "" {
			return c.Next()
		}
		uid := kernel.NewUserID(user)
		role := kernel.Role(c.Get("X-Test-Role", string(kernel.RoleTeacher)))
		c.Locals("auth", &kernel.AuthContext{UserID: &uid, Role: role, Scopes: role.Scopes()})
		return c.Next()
	}
	ocrscanapi.NewHandlers(svc).RegisterRoutes(app, authn)
	return testApp{app: app, repo: repo}
}

func (a testApp) do(t *testing.T, method, path, user string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := a.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func TestProcess_Success(t *testing.T) {
	a := newApp(t, ocr.Recognition{Lines: []string{"Juan Perez", "87"}})

	resp, body := a.do(t, http.MethodPost, "/api/ocr/process", "t1", ocrscan.ProcessRequest{ImageBase64: pngImage})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out ocrscan.ProcessResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Success)
	assert.Equal(t, "Juan Perez\n87", out.ExtractedText)
	require.NotNil(t, out.Data)
	assert.Equal(t, "Juan Perez", *out.Data.Student.FullName)
	assert.NotEmpty(t, out.ScanID)
}

func TestProcess_FailureIs400WithBody(t *testing.T) {
	a := newApp(t, ocr.Recognition{Text: "   "})

	resp, body := a.do(t, http.MethodPost, "/api/ocr/process", "t1", ocrscan.ProcessRequest{ImageBase64: pngImage})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var out ocrscan.ProcessResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.False(t, out.Success)
	assert.Equal(t, "No se detectó texto en la imagen", out.Error)
	assert.Nil(t, out.Data)
}

func TestProcess_RequiresAuth(t *testing.T) {
	a := newApp(t, ocr.Recognition{Text: "x"})

	resp, _ := a.do(t, http.MethodPost, "/api/ocr/process", "", ocrscan.ProcessRequest{ImageBase64: pngImage})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBatch(t *testing.T) {
	a := newApp(t, ocr.Recognition{Text: "Nombre: Ana"})

	resp, body := a.do(t, http.MethodPost, "/api/ocr/batch", "t1", ocrscan.BatchRequest{Items: []ocrscan.ProcessRequest{
		{ImageBase64: pngImage},
		{ImageBase64: "!!"},
	}})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	var out ocrscan.BatchResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 1, out.Succeeded)
	assert.Equal(t, 1, out.Failed)

	resp, _ = a.do(t, http.MethodPost, "/api/ocr/batch", "t1", ocrscan.BatchRequest{Items: make([]ocrscan.ProcessRequest, 6)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestExtract(t *testing.T) {
	a := newApp(t, ocr.Recognition{})

	resp, body := a.do(t, http.MethodPost, "/api/ocr/extract", "t1", ocrscan.ExtractRequest{
		Text:         "Nombre: Ana Torres\nCédula: 0912345678",
		DocumentType: "IdCard",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	assert.Contains(t, string(body), `"student_id":"0912345678"`)

	resp, _ = a.do(t, http.MethodPost, "/api/ocr/extract", "t1", ocrscan.ExtractRequest{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestJobs_OwnerOnly(t *testing.T) {
	a := newApp(t, ocr.Recognition{Text: "x"})

	resp, body := a.do(t, http.MethodPost, "/api/ocr/jobs", "t1", ocrscan.ProcessRequest{ImageBase64: pngImage})
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))

	var enq ocrscan.EnqueueResponse
	require.NoError(t, json.Unmarshal(body, &enq))
	require.NotEmpty(t, enq.JobID)

	resp, body = a.do(t, http.MethodGet, "/api/ocr/jobs/"+enq.JobID, "t1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"pending"`)

	resp, _ = a.do(t, http.MethodGet, "/api/ocr/jobs/"+enq.JobID, "t2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScans_History(t *testing.T) {
	a := newApp(t, ocr.Recognition{Text: "hola"})

	_, body := a.do(t, http.MethodPost, "/api/ocr/process", "t1", ocrscan.ProcessRequest{ImageBase64: pngImage})
	var out ocrscan.ProcessResponse
	require.NoError(t, json.Unmarshal(body, &out))

	resp, body := a.do(t, http.MethodGet, "/api/ocr/scans/"+out.ScanID.String(), "t1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"user_id":"t1"`)

	resp, _ = a.do(t, http.MethodGet, "/api/ocr/scans/"+out.ScanID.String(), "t2", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = a.do(t, http.MethodGet, "/api/ocr/scans?page=1&page_size=10", "t1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page kernel.Paginated[ocrscan.Scan]
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 10, page.Page.Size)

	resp, body = a.do(t, http.MethodGet, "/api/ocr/scans", "t2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &page))
	assert.True(t, page.Empty)
}
