package extract

import "strings"

func (x *extraction) identification(src Source) {
	s := &x.result.Student

	if !src.LineMode() {
		x.field("full_name", func() { setString(&s.FullName, firstValue(blobIDCardName, src.Text)) })
		x.field("student_id", func() { setString(&s.StudentID, firstValue(blobIDCardID, src.Text)) })
		return
	}

	for _, raw := range src.Lines {
		line := strings.TrimSpace(raw)
		x.field("student_id", func() {
			if rest, ok := afterLabel(lineIDCardID, line); ok {
				if tok := studentToken(rest); hasDigit(tok) {
					setString(&s.StudentID, tok)
				}
			}
		})
		x.field("full_name", func() {
			if lineIDCardName.MatchString(line) && !lineIDCardID.MatchString(line) {
				setString(&s.FullName, afterColon(line))
			}
		})
	}
}
