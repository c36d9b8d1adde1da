// Package ocrscan is the scanning use case: an uploaded document image goes
// through an OCR engine and the field extractor, and every attempt is kept as
// a Scan in the history.
package ocrscan

import (
	"time"

	"github.com/Abraxas-365/escolar/pkg/extract"
	"github.com/Abraxas-365/escolar/pkg/kernel"
)

// JobTypeProcess is the jobx type used for asynchronous scans.
const JobTypeProcess = "ocr.process"

// Scan is one processed document, successful or not.
type Scan struct {
	ID            kernel.ScanID   `json:"id"`
	UserID        kernel.UserID   `json:"user_id"`
	DocumentType  string          `json:"document_type"`
	Engine        string          `json:"engine"`
	Success       bool            `json:"success"`
	ExtractedText string          `json:"extracted_text,omitempty"`
	Data          *extract.Result `json:"data,omitempty"`
	Error         string          `json:"error,omitempty"`
	Confidence    *float64        `json:"confidence,omitempty"`
	ImagePath     string          `json:"image_path,omitempty"`
	DurationMS    int64           `json:"duration_ms"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Fail marks the scan as failed with a user-facing message.
func (s *Scan) Fail(message string) {
	s.Success = false
	s.Error = message
	s.Data = nil
}

// Succeed records the extractor output.
func (s *Scan) Succeed(text string, result extract.Result) {
	s.Success = true
	s.Error = ""
	s.ExtractedText = text
	s.Data = &result
	s.Confidence = result.Confidence
}

// OwnedBy reports whether userID created the scan.
func (s *Scan) OwnedBy(userID kernel.UserID) bool {
	return !userID.IsEmpty() && s.UserID == userID
}

// Response renders the scan the way the process endpoint returns it.
func (s *Scan) Response() *ProcessResponse {
	return &ProcessResponse{
		Success:       s.Success,
		ExtractedText: s.ExtractedText,
		Data:          s.Data,
		Error:         s.Error,
		ScanID:        s.ID,
	}
}

// ============================================================================
// DTOs
// ============================================================================

// ProcessRequest is the body of POST /api/ocr/process.
type ProcessRequest struct {
	ImageBase64  string `json:"imageBase64"`
	DocumentType string `json:"documentType,omitempty"`
}

// ProcessResponse is what a scan returns to the caller. A failed scan carries
// Error and no Data.
type ProcessResponse struct {
	Success       bool            `json:"success"`
	ExtractedText string          `json:"extractedText,omitempty"`
	Data          *extract.Result `json:"data,omitempty"`
	Error         string          `json:"error,omitempty"`
	ScanID        kernel.ScanID   `json:"scanId,omitempty"`
}

type BatchRequest struct {
	Items []ProcessRequest `json:"items"`
}

type BatchResponse struct {
	Results   []*ProcessResponse `json:"results"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

// ExtractRequest runs only the field extractor over text the caller already
// has. Lines take precedence over Text.
type ExtractRequest struct {
	Text         string   `json:"text,omitempty"`
	Lines        []string `json:"lines,omitempty"`
	DocumentType string   `json:"documentType,omitempty"`
}

// JobPayload is the jobx payload of an asynchronous scan.
type JobPayload struct {
	UserID  kernel.UserID  `json:"user_id"`
	Request ProcessRequest `json:"request"`
}

// JobView is the status of an asynchronous scan as shown to its owner.
type JobView struct {
	ID        string           `json:"id"`
	Status    string           `json:"status"`
	Attempts  int              `json:"attempts"`
	Error     string           `json:"error,omitempty"`
	Result    *ProcessResponse `json:"result,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type EnqueueResponse struct {
	JobID string `json:"jobId"`
}
