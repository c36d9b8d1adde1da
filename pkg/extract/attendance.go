package extract

import "strings"

func (x *extraction) attendance(src Source) {
	s := &x.result.Student
	extra := x.result.Additional

	if !src.LineMode() {
		x.field("full_name", func() { setString(&s.FullName, firstValue(blobAttendName, src.Text)) })
		x.field(KeyAttendanceStatus, func() {
			if v := firstValue(blobStatus, src.Text); v != "" {
				extra[KeyAttendanceStatus] = normalizeStatus(v)
			}
		})
		return
	}

	// Attendance sheets list the student first, unlabeled.
	x.field("full_name", func() { setString(&s.FullName, src.Lines[0]) })
	x.field(KeyAttendanceStatus, func() {
		for _, line := range src.Lines {
			if status := lineStatus(line); status != "" {
				extra[KeyAttendanceStatus] = status
				return
			}
		}
	})
}

// lineStatus reports the attendance mark carried by an unlabeled line, if any.
func lineStatus(line string) string {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "presente"), strings.Contains(lower, "present"):
		return "Presente"
	case strings.Contains(lower, "ausente"), strings.Contains(lower, "absent"):
		return "Ausente"
	}
	return ""
}
