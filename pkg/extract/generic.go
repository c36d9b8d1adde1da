package extract

import (
	"strconv"
	"strings"
)

const previewRunes = 200

func (x *extraction) generic(src Source) {
	extra := x.result.Additional

	if src.LineMode() {
		for i, line := range src.Lines {
			extra["line_"+strconv.Itoa(i+1)] = strings.TrimSpace(line)
		}
		return
	}

	extra[KeyTextPreview] = preview(src.Text, previewRunes)
	extra[KeyTextLength] = strconv.Itoa(runeLen(src.Text))
}

// preview cuts s to n runes, marking the cut with an ellipsis.
func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
