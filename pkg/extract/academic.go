package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Abraxas-365/escolar/pkg/logx"
)

func (x *extraction) academicRecord(src Source) {
	if src.LineMode() {
		x.academicLines(src.Lines)
	} else {
		x.academicBlob(src.Text)
	}
	x.scoreConfidence(src)

	logx.WithFields(logx.Fields{
		"document_type": x.docType,
		"line_mode":     src.LineMode(),
		"confidence":    x.result.Additional[KeyConfidenceScore],
	}).Debug("extract: academic record parsed")
}

func (x *extraction) academicBlob(text string) {
	s, a := &x.result.Student, &x.result.Academic

	x.field("full_name", func() { setString(&s.FullName, firstValue(blobAcademicName, text)) })
	x.field("student_id", func() { setString(&s.StudentID, firstValue(blobStudentID, text)) })
	x.field("grade", func() {
		for _, m := range blobGrade.FindAllStringSubmatch(text, -1) {
			if g, ok := parseGradeLevel(m[1], m[2]); ok {
				setString(&s.Grade, g)
				return
			}
		}
	})
	x.field("section", func() { setString(&s.Section, firstValue(blobSection, text)) })
	x.field("subject", func() { setString(&a.Subject, firstValue(blobSubject, text)) })
	x.field("score", func() {
		for _, m := range blobScore.FindAllStringSubmatch(text, -1) {
			if m[1] == "-" {
				continue
			}
			if f, ok := parseNumber(m[2]); ok && validScore(f) {
				setFloat(&a.Score, f)
				return
			}
		}
	})
	x.field("period", func() { setString(&a.Period, firstValue(blobPeriod, text)) })
	x.field("school_year", func() { setString(&a.SchoolYear, firstValue(blobSchoolYear, text)) })
}

// academicLines reads discrete lines. Labeled lines are handled first; lines
// without a label feed the positional heuristics for subject, grade and score.
// The name falls back to the first name-looking line, then to the first line.
func (x *extraction) academicLines(lines []string) {
	s, a := &x.result.Student, &x.result.Academic
	claimed := make([]bool, len(lines))

	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		labeledLine := false
		mark := func() { labeledLine = true }

		x.field("full_name", func() {
			if lineAcademicName.MatchString(line) && !lineStudentID.MatchString(line) {
				mark()
				setString(&s.FullName, afterColon(line))
			}
		})
		x.field("student_id", func() {
			if rest, ok := afterLabel(lineStudentID, line); ok {
				mark()
				if tok := studentToken(rest); hasDigit(tok) {
					setString(&s.StudentID, tok)
				}
			}
		})
		x.field("grade", func() {
			if rest, ok := afterLabel(lineGrade, line); ok {
				mark()
				if m := firstInteger.FindStringSubmatch(rest); m != nil {
					if g, ok := parseGradeLevel(m[1], m[2]); ok {
						setString(&s.Grade, g)
					}
				}
			}
		})
		x.field("section", func() {
			if m := blobSection.FindStringSubmatch(line); m != nil {
				mark()
				setString(&s.Section, m[1])
			}
		})
		x.field("subject", func() {
			if lineSubject.MatchString(line) {
				mark()
				setString(&a.Subject, afterColon(line))
			}
		})
		x.field("score", func() {
			if rest, ok := afterLabel(lineScore, line); ok {
				mark()
				if f, ok := parseNumber(numberTokens.FindString(rest)); ok && validScore(f) {
					setFloat(&a.Score, f)
				}
			}
		})
		x.field("period", func() {
			if linePeriod.MatchString(line) {
				mark()
				setString(&a.Period, afterColon(line))
			}
		})
		x.field("school_year", func() {
			// "5to año" carries no year; leave it to the grade heuristic.
			if rest, ok := afterLabel(lineSchoolYear, line); ok {
				if m := fourDigits.FindStringSubmatch(rest); m != nil {
					mark()
					setString(&a.SchoolYear, m[1])
				}
			}
		})

		if labeledLine {
			claimed[i] = true
			continue
		}

		x.field("subject", func() {
			if a.Subject == nil && containsSubject(line) {
				setString(&a.Subject, line)
				claimed[i] = true
			}
		})
		if x.gradeFromLine(line) {
			claimed[i] = true
			continue
		}
		x.field("score", func() {
			if a.Score == nil {
				if f, ok := firstPlainScore(line); ok {
					setFloat(&a.Score, f)
					claimed[i] = true
				}
			}
		})
	}

	x.field("full_name", func() {
		if s.FullName != nil {
			return
		}
		for i, raw := range lines {
			if line := stripNameLabel(raw); !claimed[i] && looksLikeName(line) {
				setString(&s.FullName, line)
				return
			}
		}
		setString(&s.FullName, stripNameLabel(lines[0]))
	})
}

// gradeFromLine accepts "5to", "3°" or "10th B" style lines. A bare number is
// left for the score heuristic.
func (x *extraction) gradeFromLine(line string) (used bool) {
	s := &x.result.Student
	x.field("grade", func() {
		if s.Grade != nil || bareNumber.MatchString(line) {
			return
		}
		if m := leadingOrdinal.FindStringSubmatch(line); m != nil {
			if g, ok := parseGradeLevel(m[1], ""); ok {
				used = setString(&s.Grade, g)
			}
		}
	})
	return used
}

// firstPlainScore returns the first integer token in [0,100].
func firstPlainScore(line string) (float64, bool) {
	for _, tok := range numberTokens.FindAllString(line, -1) {
		if strings.ContainsAny(tok, ".,") {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		if f := float64(n); validScore(f) {
			return f, true
		}
	}
	return 0, false
}

// stripNameLabel drops a leading name label written without a colon, as in
// "Estudiante Maria Lopez".
func stripNameLabel(line string) string {
	line = strings.TrimSpace(line)
	if loc := leadingNameLabel.FindStringIndex(line); loc != nil && loc[1] < len(line) {
		return strings.TrimSpace(line[loc[1]:])
	}
	return line
}

func afterLabel(re *regexp.Regexp, line string) (string, bool) {
	loc := re.FindStringIndex(line)
	if loc == nil {
		return "", false
	}
	return line[loc[1]:], true
}

// studentToken picks the identifier following a label: the first token that
// carries a digit, otherwise the trailing token.
func studentToken(rest string) string {
	if strings.Contains(rest, ":") {
		rest = afterColon(rest)
	}
	tokens := idTokens.FindAllString(rest, -1)
	for _, tok := range tokens {
		if hasDigit(tok) {
			return tok
		}
	}
	if len(tokens) == 0 {
		return ""
	}
	return tokens[len(tokens)-1]
}
