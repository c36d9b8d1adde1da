package extract

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Abraxas-365/escolar/pkg/logx"
)

// Additional field keys. Names are stable per document type so callers can
// rely on their presence.
const (
	KeyConfidenceScore    = "confidence_score"
	KeyTextLength         = "text_length"
	KeyTextPreview        = "text_preview"
	KeyDetectedLinesCount = "detected_lines_count"
	KeyFullText           = "full_text"
	KeyAttendanceStatus   = "attendance_status"
)

// Source is the raw output of a recognition engine: either one text blob or
// an ordered list of detected lines. A non-empty Lines wins over Text.
type Source struct {
	Text  string
	Lines []string
}

func FromText(text string) Source { return Source{Text: text} }

func FromLines(lines []string) Source { return Source{Lines: lines} }

// LineMode reports whether the source carries discrete lines.
func (s Source) LineMode() bool { return len(s.Lines) > 0 }

// StudentFields holds identity fields read from a document.
type StudentFields struct {
	FullName  *string `json:"full_name,omitempty"`
	StudentID *string `json:"student_id,omitempty"`
	Grade     *string `json:"grade,omitempty"`
	Section   *string `json:"section,omitempty"`
}

// AcademicFields holds grade-sheet fields read from a document.
type AcademicFields struct {
	Subject    *string  `json:"subject,omitempty"`
	Score      *float64 `json:"score,omitempty"`
	Period     *string  `json:"period,omitempty"`
	SchoolYear *string  `json:"school_year,omitempty"`
}

// Result is the structured output of Extract.
type Result struct {
	Student    StudentFields     `json:"student"`
	Academic   AcademicFields    `json:"academic"`
	Additional map[string]string `json:"additional_fields"`

	// Confidence is only set by the academic-record ruleset.
	Confidence *float64 `json:"confidence,omitempty"`
}

// Extract reads structured fields out of recognized text using the ruleset
// selected by documentType. It never panics: a failure while reading one field
// is logged and the remaining fields are still attempted.
func Extract(src Source, documentType string) (res Result) {
	docType := ParseDocumentType(documentType)
	x := &extraction{
		docType: docType,
		result: Result{
			Additional: make(map[string]string),
		},
	}

	defer func() {
		if r := recover(); r != nil {
			logx.WithFields(logx.Fields{
				"document_type": docType,
				"panic":         r,
			}).Error("extract: extraction aborted, returning partial result")
			res = x.result
		}
	}()

	ruleset, ok := rulesets[docType]
	if !ok {
		ruleset = (*extraction).generic
	}
	ruleset(x, src)

	if src.LineMode() {
		x.result.Additional[KeyDetectedLinesCount] = strconv.Itoa(len(src.Lines))
		x.result.Additional[KeyFullText] = strings.Join(src.Lines, " ")
	}

	return x.result
}

// rulesets maps each known document type to its reader. Anything else is
// read by the generic ruleset.
var rulesets = map[DocumentType]func(*extraction, Source){
	DocumentAcademicRecord: (*extraction).academicRecord,
	DocumentIDCard:         (*extraction).identification,
	DocumentAttendance:     (*extraction).attendance,
}

type extraction struct {
	docType DocumentType
	result  Result
}

// field runs fn with panic isolation so one bad pattern cannot sink the rest.
func (x *extraction) field(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logx.WithFields(logx.Fields{
				"field":         name,
				"document_type": x.docType,
				"panic":         r,
			}).Warn("extract: field extraction failed")
		}
	}()
	fn()
}

// setString stores v into an unset field. First match wins.
func setString(dst **string, v string) bool {
	v = strings.TrimSpace(v)
	if *dst != nil || v == "" {
		return false
	}
	*dst = &v
	return true
}

func setFloat(dst **float64, v float64) bool {
	if *dst != nil {
		return false
	}
	*dst = &v
	return true
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

// rawText is the text the rulesets see for length and preview purposes.
func rawText(src Source) string {
	if src.LineMode() {
		return strings.Join(src.Lines, " ")
	}
	return src.Text
}
