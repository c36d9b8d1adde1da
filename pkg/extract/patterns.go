package extract

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Label synonyms per field. OCR output routinely drops diacritics, so the
// accented spellings also accept their plain forms.
const (
	labelsAcademicName = `estudiante|nombre|alumno|student`
	labelsIDCardName   = `nombre|name`
	labelsAttendName   = `estudiante|nombre|student`
	labelsStudentID    = `c[oó]digo|matr[ií]cula|c[eé]dula|dni|code|id`
	labelsIDCardID     = `c[eé]dula|dni|matr[ií]cula|id`
	labelsGrade        = `grado|grade`
	labelsSection      = `secci[oó]n|section`
	labelsSubject      = `materia|subject|asignatura`
	labelsScore        = `calificaci[oó]n|nota|score|grade`
	labelsPeriod       = `per[ií]odo|period|parcial`
	labelsSchoolYear   = `a[ñn]o[ \t]+escolar|school[ \t]+year|a[ñn]o`
	labelsStatus       = `estado|status|asistencia`
)

const (
	// labelStart anchors a label to the start of a word inside a line.
	labelStart = `(?m)(?:^|[^\p{L}\p{N}])(?i:`
	sepColon   = `)[ \t]*:[ \t]*`
	sepOpt     = `)[ \t]*:?[ \t]*`
	// sepQualified lets a qualifier sit between label and colon ("Cédula de identidad:").
	sepQualified = `)(?:[^\p{L}\p{N}\r\n:][^\r\n:]*)?:[ \t]*`
	restOfLine   = `([^\r\n]+)`
	idToken      = `([\p{L}\p{N}][\p{L}\p{N}-]*)`
	// untilNumber skips the rest of the label text ("Grade Level:", "Nota final") up to a digit.
	untilNumber = `)[^\r\n\d]*`
)

func labeled(labels, tail string) *regexp.Regexp {
	return regexp.MustCompile(labelStart + labels + tail)
}

// Blob-mode patterns: one per field, matched across the whole text.
var (
	blobAcademicName = labeled(labelsAcademicName, sepColon+restOfLine)
	blobIDCardName   = labeled(labelsIDCardName, sepColon+restOfLine)
	blobAttendName   = labeled(labelsAttendName, sepColon+restOfLine)
	blobStudentID    = labeled(labelsStudentID, sepQualified+idToken)
	blobIDCardID     = labeled(labelsIDCardID, sepQualified+idToken)
	blobGrade        = labeled(labelsGrade, untilNumber+`(\d+)((?:[.,]\d+)?)`)
	blobSection      = labeled(labelsSection, sepOpt+`([A-Z])(?:[^\p{L}\p{N}]|$)`)
	blobSubject      = labeled(labelsSubject, sepColon+restOfLine)
	blobScore        = labeled(labelsScore, `)[^\r\n\d]*?(-?)(\d+(?:[.,]\d+)?)`)
	blobPeriod       = labeled(labelsPeriod, sepColon+restOfLine)
	blobSchoolYear   = labeled(labelsSchoolYear, untilNumber+`(\d{4})(?:\D|$)`)
	blobStatus       = labeled(labelsStatus, sepColon+restOfLine)
)

// Line-mode label detectors. A line that carries a label is claimed by it and
// is not offered to the positional heuristics.
var (
	lineAcademicName = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?i:` + labelsAcademicName + `)[ \t]*:`)
	lineIDCardName   = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?i:` + labelsIDCardName + `)[ \t]*:`)
	lineStudentID    = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?i:` + labelsStudentID + `)(?:[^\p{L}\p{N}]|$)`)
	lineIDCardID     = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?i:` + labelsIDCardID + `)(?:[^\p{L}\p{N}]|$)`)
	lineGrade        = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?i:` + labelsGrade + `)(?:[^\p{L}\p{N}]|$)`)
	lineSubject      = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?i:` + labelsSubject + `)[ \t]*:`)
	lineScore        = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?i:` + labelsScore + `)(?:[^\p{L}\p{N}]|$)`)
	linePeriod       = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?i:` + labelsPeriod + `)[ \t]*:`)
	lineSchoolYear   = regexp.MustCompile(`(?:^|[^\p{L}\p{N}])(?i:` + labelsSchoolYear + `)(?:[^\p{L}\p{N}]|$)`)
)

var (
	firstInteger     = regexp.MustCompile(`(\d+)((?:[.,]\d+)?)`)
	fourDigits       = regexp.MustCompile(`(?:^|\D)(\d{4})(?:\D|$)`)
	idTokens         = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}-]*`)
	bareNumber       = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
	leadingOrdinal   = regexp.MustCompile(`^(\d{1,2})[ \t]*(?i:°|º|st|nd|rd|th|ro|do|er|to|vo|no|mo)?(?:[^\p{L}\p{N}]|$)`)
	numberTokens     = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	leadingNameLabel = regexp.MustCompile(`^(?i:` + labelsAcademicName + `)[ \t.-]+`)
	// nameLike accepts letters, spaces and the punctuation found in names.
	nameLike = regexp.MustCompile(`^[\p{L}][\p{L} .'-]*$`)
)

// knownSubjects are lower-case fragments recognized as subject names.
var knownSubjects = []string{
	"matemática", "matematica", "math",
	"español", "espanol", "lenguaje", "literatura",
	"ciencia", "science",
	"historia", "history",
	"geografía", "geografia", "geography",
	"inglés", "ingles", "english",
	"física", "fisica", "química", "quimica", "biología", "biologia",
	"educación física", "educacion fisica",
	"música", "musica",
}

func containsSubject(line string) bool {
	lower := strings.ToLower(line)
	for _, s := range knownSubjects {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// firstValue returns the first non-blank capture of group 1 in text.
func firstValue(re *regexp.Regexp, text string) string {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if v := strings.TrimSpace(m[1]); v != "" {
			return v
		}
	}
	return ""
}

// afterColon returns the trimmed text following the first colon.
func afterColon(line string) string {
	_, v, ok := strings.Cut(line, ":")
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func validScore(f float64) bool { return f >= 0 && f <= 100 }

// gradeLevel renders a school grade the way report cards print it.
func gradeLevel(n int) string { return strconv.Itoa(n) + "°" }

func parseGradeLevel(digits, fraction string) (string, bool) {
	if fraction != "" {
		return "", false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > 12 {
		return "", false
	}
	return gradeLevel(n), true
}

func hasDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// looksLikeName reports whether line is made only of letters and spaces and
// is long enough to be a person's name.
func looksLikeName(line string) bool {
	return runeLen(line) > 3 && nameLike.MatchString(line)
}

// normalizeStatus maps a free-form attendance value onto Presente/Ausente,
// keeping the raw value when it mentions neither.
func normalizeStatus(v string) string {
	if status := lineStatus(v); status != "" {
		return status
	}
	return strings.TrimSpace(v)
}
