package extractor

import (
	"strings"
	"unicode"
)

// IsGarbled reports whether extracted text is too damaged to use: very
// short, dense with "(cid:N)" font-encoding artifacts, or dominated by
// watermark lines of scattered single letters ("e c h k a c r l").
func IsGarbled(text string) bool {
	if len(text) < 50 {
		return true
	}

	// Each artifact is about ten characters long.
	cid := strings.Count(text, "(cid:")
	if float64(cid*10)/float64(len(text)) > 0.05 {
		return true
	}

	lines := strings.Split(text, "\n")
	watermark := 0
	for _, line := range lines {
		if isWatermarkLine(line) {
			watermark++
		}
	}
	return float64(watermark)/float64(len(lines)) > 0.10
}

func isWatermarkLine(line string) bool {
	s := strings.TrimSpace(line)
	if s == "" || len(s) >= 50 {
		return false
	}
	tokens := strings.Fields(s)
	if len(tokens) <= 3 {
		return false
	}
	single := 0
	for _, tok := range tokens {
		r := []rune(tok)
		if len(r) == 1 && unicode.IsLetter(r[0]) {
			single++
		}
	}
	return float64(single)/float64(len(tokens)) > 0.7
}
