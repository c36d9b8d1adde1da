package ocrscansrv

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Abraxas-365/escolar/pkg/asyncx"
	"github.com/Abraxas-365/escolar/pkg/config"
	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/extract"
	"github.com/Abraxas-365/escolar/pkg/fsx"
	"github.com/Abraxas-365/escolar/pkg/jobx"
	"github.com/Abraxas-365/escolar/pkg/kernel"
	"github.com/Abraxas-365/escolar/pkg/logx"
	"github.com/Abraxas-365/escolar/pkg/ocr"
	"github.com/Abraxas-365/escolar/pkg/ocrscan"
)

const (
	msgNoText       = "No se detectó texto en la imagen"
	msgEngineFailed = "Error al procesar el documento: "
)

// JobQueue is the part of jobx.Client the service needs.
type JobQueue interface {
	jobx.JobEnqueuer
	jobx.JobStatusReader
}

// Service runs scans synchronously, in batches or through the job queue.
type Service struct {
	recognizer ocr.TextRecognizer
	engine     string
	repo       ocrscan.ScanRepository
	files      fsx.FileWriter
	jobs       JobQueue
	cfg        config.ScanConfig
	now        func() time.Time
}

// NewService wires the scan use case. files and jobs may be nil: images are
// then not stored and asynchronous scans are rejected.
func NewService(
	recognizer ocr.TextRecognizer,
	repo ocrscan.ScanRepository,
	files fsx.FileWriter,
	jobs JobQueue,
	cfg config.ScanConfig,
) *Service {
	engine := "unknown"
	if named, ok := recognizer.(interface{ Engine() string }); ok {
		engine = named.Engine()
	}
	return &Service{
		recognizer: recognizer,
		engine:     engine,
		repo:       repo,
		files:      files,
		jobs:       jobs,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Process scans one document. Failures are reported in the response, never
// as an error, and every attempt is recorded in the history.
func (s *Service) Process(ctx context.Context, userID kernel.UserID, req ocrscan.ProcessRequest) *ocrscan.ProcessResponse {
	scan, _ := s.scan(ctx, userID, req)
	s.save(ctx, scan)
	return scan.Response()
}

// ProcessBatch scans every request with bounded concurrency. Results keep
// the order of reqs.
func (s *Service) ProcessBatch(ctx context.Context, userID kernel.UserID, reqs []ocrscan.ProcessRequest) (*ocrscan.BatchResponse, error) {
	if len(reqs) == 0 {
		return nil, ocrscan.ErrInvalidRequest("empty batch")
	}
	if s.cfg.MaxBatchSize > 0 && len(reqs) > s.cfg.MaxBatchSize {
		return nil, ocrscan.ErrBatchTooLarge(len(reqs), s.cfg.MaxBatchSize)
	}

	settled := asyncx.Pool(ctx, s.cfg.BatchConcurrency, reqs,
		func(ctx context.Context, req ocrscan.ProcessRequest) (*ocrscan.ProcessResponse, error) {
			return s.Process(ctx, userID, req), nil
		})

	resp := &ocrscan.BatchResponse{Results: make([]*ocrscan.ProcessResponse, len(settled))}
	for i, r := range settled {
		res := r.Value
		if !r.OK() {
			res = &ocrscan.ProcessResponse{Error: msgEngineFailed + errx.From(r.Err).Message}
		}
		resp.Results[i] = res
		if res.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	return resp, nil
}

// Extract runs the field extractor over text the caller already has.
func (s *Service) Extract(req ocrscan.ExtractRequest) (extract.Result, error) {
	src := extract.FromText(req.Text)
	if lines := ocr.SplitLines(strings.Join(req.Lines, "\n")); len(lines) > 0 {
		src = extract.FromLines(lines)
	}
	if strings.TrimSpace(src.Text) == "" && !src.LineMode() {
		return extract.Result{}, ocrscan.ErrInvalidRequest("text or lines required")
	}
	return extract.Extract(src, s.documentType(req.DocumentType)), nil
}

// Get returns a scan visible to auth: its owner or an admin.
func (s *Service) Get(ctx context.Context, auth *kernel.AuthContext, id kernel.ScanID) (*ocrscan.Scan, error) {
	scan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsAdmin() && !scan.OwnedBy(*auth.UserID) {
		return nil, ocrscan.ErrScanNotFound(id.String())
	}
	return scan, nil
}

// List pages through the history. Non-admins only see their own scans.
func (s *Service) List(ctx context.Context, auth *kernel.AuthContext, filter ocrscan.ScanFilter, opts kernel.PaginationOptions) (kernel.Paginated[ocrscan.Scan], error) {
	if !auth.IsAdmin() {
		filter.UserID = *auth.UserID
	}
	return s.repo.List(ctx, filter, opts.Normalize())
}

// scan does the work of Process without persisting. The returned error is
// the cause of a failed scan, for callers that need to tell transient
// failures apart.
func (s *Service) scan(ctx context.Context, userID kernel.UserID, req ocrscan.ProcessRequest) (*ocrscan.Scan, error) {
	started := s.now()
	docType := s.documentType(req.DocumentType)

	scan := &ocrscan.Scan{
		ID:           kernel.NewScanID(uuid.NewString()),
		UserID:       userID,
		DocumentType: docType,
		Engine:       s.engine,
		CreatedAt:    started,
	}
	defer func() { scan.DurationMS = s.now().Sub(started).Milliseconds() }()

	entry := logx.WithFields(logx.Fields{
		"scan_id":       scan.ID,
		"user_id":       userID,
		"document_type": docType,
	})

	input, err := ocr.FromBase64(req.ImageBase64)
	if err == nil {
		err = input.Validate()
	}
	if err == nil && s.cfg.MaxImageBytes > 0 && len(input.Data) > s.cfg.MaxImageBytes {
		err = ocrscan.ErrImageTooLarge(len(input.Data), s.cfg.MaxImageBytes)
	}
	if err != nil {
		entry.WithError(err).Warn("ocrscan: rejected image")
		scan.Fail(errx.From(err).Message)
		return scan, err
	}
	input.Filename = scan.ID.String() + input.Extension()

	scan.ImagePath = s.storeImage(ctx, scan, input)

	rec, err := s.recognizer.RecognizeText(ctx, input, ocr.WithDocumentType(docType))
	if err != nil {
		entry.WithError(err).Error("ocrscan: recognition failed")
		scan.Fail(msgEngineFailed + errx.From(err).Message)
		return scan, err
	}
	if rec.Engine != "" {
		scan.Engine = rec.Engine
	}
	if rec.IsEmpty() {
		entry.Info("ocrscan: no text detected")
		scan.Fail(msgNoText)
		return scan, ocr.Registry().New(ocr.ErrNoTextDetected)
	}

	result := extract.Extract(rec.Source(), docType)
	scan.Succeed(rec.FullText(), result)

	entry.WithFields(logx.Fields{
		"engine":     scan.Engine,
		"line_mode":  rec.IsLineMode(),
		"additional": len(result.Additional),
	}).Info("ocrscan: document processed")
	return scan, nil
}

// storeImage keeps the upload next to the history row. A storage failure
// only costs the image.
func (s *Service) storeImage(ctx context.Context, scan *ocrscan.Scan, input ocr.Input) string {
	if !s.cfg.StoreImages || s.files == nil {
		return ""
	}
	p := "scans/" + scan.UserID.String() + "/" + input.Filename
	if scan.UserID.IsEmpty() {
		p = "scans/anonymous/" + input.Filename
	}
	if err := s.files.WriteFile(ctx, p, input.Data, input.MimeType); err != nil {
		logx.WithError(err).WithField("scan_id", scan.ID).Warn("ocrscan: failed to store image")
		return ""
	}
	return p
}

func (s *Service) save(ctx context.Context, scan *ocrscan.Scan) {
	if s.repo == nil {
		return
	}
	if err := s.repo.Save(ctx, *scan); err != nil {
		logx.WithError(err).WithField("scan_id", scan.ID).Error("ocrscan: failed to save scan")
	}
}

func (s *Service) documentType(requested string) string {
	if requested != "" {
		return requested
	}
	if s.cfg.DefaultDocumentType != "" {
		return s.cfg.DefaultDocumentType
	}
	return "AcademicRecord"
}

func marshalResponse(resp *ocrscan.ProcessResponse) ([]byte, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, errx.Wrap(err, "failed to marshal scan response", errx.TypeInternal)
	}
	return b, nil
}
