package extract

import "strconv"

// trackedFields is the number of fields counted toward academic confidence:
// name, student id, grade, section, subject, score, period and school year.
const trackedFields = 8

// Confidence returns the share of tracked fields populated in r, in [0,1].
func Confidence(r Result) float64 {
	return float64(populated(r)) / trackedFields
}

func populated(r Result) int {
	n := 0
	for _, set := range []bool{
		r.Student.FullName != nil,
		r.Student.StudentID != nil,
		r.Student.Grade != nil,
		r.Student.Section != nil,
		r.Academic.Subject != nil,
		r.Academic.Score != nil,
		r.Academic.Period != nil,
		r.Academic.SchoolYear != nil,
	} {
		if set {
			n++
		}
	}
	return n
}

func (x *extraction) scoreConfidence(src Source) {
	c := Confidence(x.result)
	x.result.Confidence = &c
	x.result.Additional[KeyConfidenceScore] = strconv.FormatFloat(c, 'f', 2, 64)
	x.result.Additional[KeyTextLength] = strconv.Itoa(runeLen(rawText(src)))
}
