package extract

import "strings"

// DocumentType selects the ruleset used to read a recognized document.
type DocumentType string

const (
	DocumentAcademicRecord DocumentType = "academicrecord"
	DocumentIDCard         DocumentType = "idcard"
	DocumentAttendance     DocumentType = "attendance"
	DocumentGeneric        DocumentType = "generic"
)

// ParseDocumentType maps a free-form tag onto a ruleset. Matching is
// case-insensitive; unknown tags fall through to DocumentGeneric.
func ParseDocumentType(tag string) DocumentType {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "academicrecord", "graderecord":
		return DocumentAcademicRecord
	case "idcard", "identification":
		return DocumentIDCard
	case "attendance":
		return DocumentAttendance
	default:
		return DocumentGeneric
	}
}

func (d DocumentType) String() string { return string(d) }
