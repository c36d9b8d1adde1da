package ocr

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/Abraxas-365/escolar/pkg/extract"
)

// TextRecognizer is the one capability every engine provides: turn an image
// into text. Engines that segment the page return Lines; the others return a
// single Text blob.
type TextRecognizer interface {
	RecognizeText(ctx context.Context, input Input, opts ...Option) (*Recognition, error)
}

// ============================================================================
// Input
// ============================================================================

// Input is an image held in memory.
type Input struct {
	Data     []byte
	MimeType string
	Filename string
}

// FromBytes builds an Input, sniffing the MIME type when it is empty.
func FromBytes(data []byte, mimeType string) Input {
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return Input{Data: data, MimeType: mimeType}
}

// FromBase64 decodes a raw base64 payload or a data URL
// ("data:image/png;base64,...") as sent by browsers.
func FromBase64(encoded string) (Input, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return Input{}, errorRegistry.NewWithMessage(ErrInvalidImage, "La imagen está vacía")
	}

	var mimeType string
	if strings.HasPrefix(encoded, "data:") {
		header, payload, ok := strings.Cut(encoded, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return Input{}, errorRegistry.NewWithMessage(ErrInvalidImage, "Formato de imagen no válido").
				WithDetail("reason", "malformed data url")
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = payload
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Some clients strip the padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return Input{}, errorRegistry.NewWithCause(ErrInvalidImage, err)
	}
	if len(data) == 0 {
		return Input{}, errorRegistry.NewWithMessage(ErrInvalidImage, "La imagen está vacía")
	}

	return FromBytes(data, mimeType), nil
}

// Validate rejects inputs an engine cannot read.
func (in Input) Validate() error {
	if len(in.Data) == 0 {
		return errorRegistry.NewWithMessage(ErrInvalidImage, "La imagen está vacía")
	}
	if !strings.HasPrefix(in.MimeType, "image/") && in.MimeType != "application/pdf" {
		return errorRegistry.New(ErrUnsupportedFormat).WithDetail("mime_type", in.MimeType)
	}
	return nil
}

// Extension returns the file extension matching the MIME type.
func (in Input) Extension() string {
	switch in.MimeType {
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/bmp":
		return ".bmp"
	case "application/pdf":
		return ".pdf"
	default:
		return ".png"
	}
}

// ============================================================================
// Recognition
// ============================================================================

// Recognition is the raw output of an engine. Exactly one of Text or Lines is
// set: segmenting engines fill Lines, transcribing engines fill Text.
type Recognition struct {
	Text       string        `json:"text,omitempty"`
	Lines      []string      `json:"lines,omitempty"`
	Engine     string        `json:"engine"`
	Model      string        `json:"model,omitempty"`
	Confidence float32       `json:"confidence,omitempty"`
	Duration   time.Duration `json:"duration"`

	// Metadata carries engine specific extras such as artifact URLs.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// IsLineMode reports whether the engine returned discrete lines.
func (r *Recognition) IsLineMode() bool { return len(r.Lines) > 0 }

// IsEmpty reports whether no text at all was detected.
func (r *Recognition) IsEmpty() bool {
	for _, l := range r.Lines {
		if strings.TrimSpace(l) != "" {
			return false
		}
	}
	return strings.TrimSpace(r.Text) == ""
}

// FullText is the recognized text as shown to users: lines joined by newlines,
// or the blob itself.
func (r *Recognition) FullText() string {
	if r.IsLineMode() {
		return strings.Join(r.Lines, "\n")
	}
	return r.Text
}

// Source hands the recognition to the field extractor.
func (r *Recognition) Source() extract.Source {
	if r.IsLineMode() {
		return extract.FromLines(r.Lines)
	}
	return extract.FromText(r.Text)
}

// SplitLines breaks a blob into trimmed, non-empty lines.
func SplitLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
