package ocrscansrv

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/Abraxas-365/escolar/pkg/errx"
	"github.com/Abraxas-365/escolar/pkg/jobx"
	"github.com/Abraxas-365/escolar/pkg/kernel"
	"github.com/Abraxas-365/escolar/pkg/logx"
	"github.com/Abraxas-365/escolar/pkg/ocr"
	"github.com/Abraxas-365/escolar/pkg/ocrscan"
)

// Enqueue schedules an asynchronous scan and returns the job id.
func (s *Service) Enqueue(ctx context.Context, userID kernel.UserID, req ocrscan.ProcessRequest) (string, error) {
	if s.jobs == nil {
		return "", errx.New("asynchronous scans are disabled", errx.TypeBusiness)
	}
	if strings.TrimSpace(req.ImageBase64) == "" {
		return "", ocrscan.ErrInvalidRequest("imageBase64 is required")
	}
	req.DocumentType = s.documentType(req.DocumentType)

	payload, err := json.Marshal(ocrscan.JobPayload{UserID: userID, Request: req})
	if err != nil {
		return "", errx.Wrap(err, "failed to marshal job payload", errx.TypeInternal)
	}

	id, err := s.jobs.Enqueue(ctx, jobx.Job{
		Type:    ocrscan.JobTypeProcess,
		Queue:   s.cfg.JobQueue,
		Payload: payload,
		Owner:   userID.String(),
	})
	if err != nil {
		return "", err
	}

	logx.WithFields(logx.Fields{"job_id": id, "user_id": userID}).Info("ocrscan: scan enqueued")
	return id, nil
}

// GetJob returns the status of an asynchronous scan. Jobs owned by someone
// else look missing unless auth is an admin.
func (s *Service) GetJob(ctx context.Context, auth *kernel.AuthContext, jobID string) (*ocrscan.JobView, error) {
	if s.jobs == nil {
		return nil, jobx.NotFound(jobID)
	}
	info, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if info.Type != ocrscan.JobTypeProcess || (!auth.IsAdmin() && info.Owner != auth.UserID.String()) {
		return nil, jobx.NotFound(jobID)
	}

	view := &ocrscan.JobView{
		ID:        info.ID,
		Status:    string(info.Status),
		Attempts:  info.Attempts,
		Error:     info.Error,
		CreatedAt: info.CreatedAt,
		UpdatedAt: info.UpdatedAt,
	}
	if len(info.Result) > 0 {
		var resp ocrscan.ProcessResponse
		if err := json.Unmarshal(info.Result, &resp); err != nil {
			return nil, errx.Wrap(err, "failed to decode job result", errx.TypeInternal).
				WithDetail("job_id", jobID)
		}
		view.Result = &resp
	}
	return view, nil
}

// HandleJob is the jobx handler for ocrscan.JobTypeProcess. Transient engine
// failures are returned so the worker retries them; on the last attempt, and
// for every other failure, the failed response becomes the job result.
func (s *Service) HandleJob(ctx context.Context, job *jobx.JobInfo) ([]byte, error) {
	var payload ocrscan.JobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, jobx.Permanent(ocrscan.ErrInvalidRequest("malformed job payload"))
	}

	scan, cause := s.scan(ctx, payload.UserID, payload.Request)
	if cause != nil && ocr.Retryable(cause) && job.Attempts <= job.MaxRetries {
		return nil, cause
	}

	s.save(ctx, scan)
	return marshalResponse(scan.Response())
}
