package ocrscaninfra_test

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/extract"
	"github.com/Abraxas-365/escolar/pkg/kernel"
	"github.com/Abraxas-365/escolar/pkg/ocrscan"
	"github.com/Abraxas-365/escolar/pkg/ocrscan/ocrscaninfra"
)

var scanColumns = []string{
	"id", "user_id", "document_type", "engine", "success", "extracted_text",
	"data", "error", "confidence", "image_path", "duration_ms", "created_at",
}

func newRepo(t *testing.T) (*ocrscaninfra.PostgresScanRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return ocrscaninfra.NewPostgresScanRepository(sqlx.NewDb(db, "postgres")), mock
}

func TestSave(t *testing.T) {
	repo, mock := newRepo(t)
	conf := 0.75
	name := "Ana"

	mock.ExpectExec("INSERT INTO ocr_scans").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Save(context.Background(), ocrscan.Scan{
		ID:         "scan-1",
		UserID:     "u1",
		Success:    true,
		Data:       &extract.Result{Student: extract.StudentFields{FullName: &name}},
		Confidence: &conf,
		CreatedAt:  time.Now(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSave_UniqueViolation(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectExec("INSERT INTO ocr_scans").
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Save(context.Background(), ocrscan.Scan{ID: "scan-1"})
	assert.True(t, errx.IsCode(err, ocrscan.CodeScanExists))
}

func TestFindByID(t *testing.T) {
	repo, mock := newRepo(t)
	created := time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(scanColumns).AddRow(
		"scan-1", "u1", "AcademicRecord", "flask", true, "Juan Perez",
		[]byte(`{"student":{"full_name":"Juan Perez"},"academic":{},"additional_fields":{"detected_lines_count":"1"},"confidence":0.25}`),
		nil, 0.25, "scans/u1/scan-1.png", int64(120), created,
	)
	mock.ExpectQuery(regexp.QuoteMeta("FROM ocr_scans WHERE id = $1")).
		WithArgs("scan-1").
		WillReturnRows(rows)

	scan, err := repo.FindByID(context.Background(), "scan-1")
	require.NoError(t, err)

	assert.Equal(t, kernel.UserID("u1"), scan.UserID)
	assert.Equal(t, "flask", scan.Engine)
	assert.Empty(t, scan.Error)
	require.NotNil(t, scan.Data)
	assert.Equal(t, "Juan Perez", *scan.Data.Student.FullName)
	assert.Equal(t, "1", scan.Data.Additional["detected_lines_count"])
	require.NotNil(t, scan.Confidence)
	assert.Equal(t, 0.25, *scan.Confidence)
	assert.Equal(t, created, scan.CreatedAt)
}

func TestFindByID_NotFound(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery("FROM ocr_scans WHERE id").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.True(t, errx.IsCode(err, ocrscan.CodeScanNotFound))
}

func TestFindByID_FailedScanHasNoData(t *testing.T) {
	repo, mock := newRepo(t)

	rows := sqlmock.NewRows(scanColumns).AddRow(
		"scan-2", "u1", "AcademicRecord", "flask", false, "",
		nil, "No se detectó texto en la imagen", nil, nil, int64(80), time.Now(),
	)
	mock.ExpectQuery("FROM ocr_scans WHERE id").WillReturnRows(rows)

	scan, err := repo.FindByID(context.Background(), "scan-2")
	require.NoError(t, err)
	assert.False(t, scan.Success)
	assert.Nil(t, scan.Data)
	assert.Nil(t, scan.Confidence)
	assert.Equal(t, "No se detectó texto en la imagen", scan.Error)
}

func TestList_FiltersByUser(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ocr_scans WHERE user_id = $1")).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM ocr_scans WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3")).
		WithArgs("u1", 2, 2).
		WillReturnRows(sqlmock.NewRows(scanColumns).AddRow(
			"scan-3", "u1", "attendance", "flask", true, "Ana", nil, nil, nil, nil, int64(10), time.Now(),
		))

	page, err := repo.List(context.Background(), ocrscan.ScanFilter{UserID: "u1"}, kernel.PaginationOptions{Page: 2, PageSize: 2})
	require.NoError(t, err)

	assert.Len(t, page.Items, 1)
	assert.Equal(t, 3, page.Page.Total)
	assert.Equal(t, 2, page.Page.Pages)
	assert.False(t, page.HasNext())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_NoFilter(t *testing.T) {
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM ocr_scans")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC LIMIT $1 OFFSET $2")).
		WithArgs(kernel.DefaultPageSize, 0).
		WillReturnRows(sqlmock.NewRows(scanColumns))

	page, err := repo.List(context.Background(), ocrscan.ScanFilter{}, kernel.PaginationOptions{})
	require.NoError(t, err)
	assert.True(t, page.Empty)
	assert.NoError(t, mock.ExpectationsWereMet())
}
