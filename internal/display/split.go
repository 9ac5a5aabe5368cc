package display

import "unicode"

// SplitLines lays text out on a two-line display of the given width.
//
// Text that fits goes entirely on the top line. Longer text is broken at the
// last whitespace at or before rune index width, and that whitespace is
// dropped. Without such a whitespace the top line is hard-cut at width. The
// bottom line is never wrapped further and may be longer than width; the
// display truncates it.
func SplitLines(text string, width int) (top, bottom string) {
	if width < 0 {
		width = 0
	}
	runes := []rune(text)
	if len(runes) <= width {
		return text, ""
	}

	for i := width; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return string(runes[:i]), string(runes[i+1:])
		}
	}

	return string(runes[:width]), string(runes[width:])
}

// Truncate cuts s to at most width runes.
func Truncate(s string, width int) string {
	if width < 0 {
		width = 0
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	return string(runes[:width])
}
