package ocrscaninfra

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/extract"
	"github.com/Abraxas-365/escolar/pkg/kernel"
	"github.com/Abraxas-365/escolar/pkg/ocrscan"
	"github.com/Abraxas-365/escolar/pkg/ptrx"
)

// PostgresScanRepository guarda el historial de escaneos en la tabla ocr_scans.
type PostgresScanRepository struct {
	db *sqlx.DB
}

func NewPostgresScanRepository(db *sqlx.DB) *PostgresScanRepository {
	return &PostgresScanRepository{db: db}
}

// Save inserta un escaneo. Los escaneos no se actualizan.
func (r *PostgresScanRepository) Save(ctx context.Context, scan ocrscan.Scan) error {
	query := `
		INSERT INTO ocr_scans (
			id, user_id, document_type, engine, success, extracted_text,
			data, error, confidence, image_path, duration_ms, created_at
		) VALUES (
			:id, :user_id, :document_type, :engine, :success, :extracted_text,
			:data, :error, :confidence, :image_path, :duration_ms, :created_at
		)`

	row, err := toPersistence(scan)
	if err != nil {
		return err
	}

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return ocrscan.ErrRegistry.New(ocrscan.CodeScanExists).WithDetail("scan_id", scan.ID.String())
		}
		return errx.Wrap(err, "failed to save scan", errx.TypeInternal).
			WithDetail("scan_id", scan.ID.String())
	}
	return nil
}

// FindByID busca un escaneo por su ID.
func (r *PostgresScanRepository) FindByID(ctx context.Context, id kernel.ScanID) (*ocrscan.Scan, error) {
	var row scanPersistence
	query := `SELECT ` + columns + ` FROM ocr_scans WHERE id = $1`
	if err := r.db.GetContext(ctx, &row, query, id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ocrscan.ErrScanNotFound(id.String())
		}
		return nil, errx.Wrap(err, "failed to find scan by ID", errx.TypeInternal)
	}
	return row.toDomain()
}

// List devuelve una página del historial, del más reciente al más antiguo.
func (r *PostgresScanRepository) List(ctx context.Context, filter ocrscan.ScanFilter, opts kernel.PaginationOptions) (kernel.Paginated[ocrscan.Scan], error) {
	opts = opts.Normalize()

	var (
		conds []string
		args  []any
	)
	if !filter.UserID.IsEmpty() {
		args = append(args, filter.UserID.String())
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.DocumentType != "" {
		args = append(args, filter.DocumentType)
		conds = append(conds, fmt.Sprintf("document_type = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM ocr_scans`+where, args...); err != nil {
		return kernel.Paginated[ocrscan.Scan]{}, errx.Wrap(err, "failed to count scans", errx.TypeInternal)
	}

	query := fmt.Sprintf(`SELECT %s FROM ocr_scans%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		columns, where, len(args)+1, len(args)+2)

	var rows []scanPersistence
	if err := r.db.SelectContext(ctx, &rows, query, append(args, opts.PageSize, opts.Offset())...); err != nil {
		return kernel.Paginated[ocrscan.Scan]{}, errx.Wrap(err, "failed to list scans", errx.TypeInternal)
	}

	items := make([]ocrscan.Scan, 0, len(rows))
	for _, row := range rows {
		scan, err := row.toDomain()
		if err != nil {
			return kernel.Paginated[ocrscan.Scan]{}, err
		}
		items = append(items, *scan)
	}
	return kernel.NewPaginated(items, opts.Page, opts.PageSize, total), nil
}

// ============================================================================
// Persistencia
// ============================================================================

const columns = `id, user_id, document_type, engine, success, extracted_text,
	data, error, confidence, image_path, duration_ms, created_at`

type scanPersistence struct {
	ID            string          `db:"id"`
	UserID        string          `db:"user_id"`
	DocumentType  string          `db:"document_type"`
	Engine        string          `db:"engine"`
	Success       bool            `db:"success"`
	ExtractedText string          `db:"extracted_text"`
	Data          []byte          `db:"data"`
	Error         sql.NullString  `db:"error"`
	Confidence    sql.NullFloat64 `db:"confidence"`
	ImagePath     sql.NullString  `db:"image_path"`
	DurationMS    int64           `db:"duration_ms"`
	CreatedAt     time.Time       `db:"created_at"`
}

func toPersistence(s ocrscan.Scan) (scanPersistence, error) {
	row := scanPersistence{
		ID:            s.ID.String(),
		UserID:        s.UserID.String(),
		DocumentType:  s.DocumentType,
		Engine:        s.Engine,
		Success:       s.Success,
		ExtractedText: s.ExtractedText,
		Error:         sql.NullString{String: s.Error, Valid: s.Error != ""},
		ImagePath:     sql.NullString{String: s.ImagePath, Valid: s.ImagePath != ""},
		DurationMS:    s.DurationMS,
		CreatedAt:     s.CreatedAt,
	}
	if s.Confidence != nil {
		row.Confidence = sql.NullFloat64{Float64: ptrx.Value(s.Confidence), Valid: true}
	}
	if s.Data != nil {
		data, err := json.Marshal(s.Data)
		if err != nil {
			return row, errx.Wrap(err, "failed to marshal scan data", errx.TypeInternal)
		}
		row.Data = data
	}
	return row, nil
}

func (p scanPersistence) toDomain() (*ocrscan.Scan, error) {
	scan := &ocrscan.Scan{
		ID:            kernel.NewScanID(p.ID),
		UserID:        kernel.NewUserID(p.UserID),
		DocumentType:  p.DocumentType,
		Engine:        p.Engine,
		Success:       p.Success,
		ExtractedText: p.ExtractedText,
		Error:         p.Error.String,
		ImagePath:     p.ImagePath.String,
		DurationMS:    p.DurationMS,
		CreatedAt:     p.CreatedAt,
	}
	if p.Confidence.Valid {
		scan.Confidence = ptrx.To(p.Confidence.Float64)
	}
	if len(p.Data) > 0 {
		var data extract.Result
		if err := json.Unmarshal(p.Data, &data); err != nil {
			return nil, errx.Wrap(err, "failed to unmarshal scan data", errx.TypeInternal).
				WithDetail("scan_id", p.ID)
		}
		scan.Data = &data
	}
	return scan, nil
}
