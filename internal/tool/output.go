package tool

import "strings"

// Limits controls output truncation boundaries.
type Limits struct {
	MaxLines int
	MaxBytes int
}

// ApplyOutputLimits truncates text by line and byte limits.
func ApplyOutputLimits(text string, limits Limits) (out string, truncatedLines bool, truncatedBytes bool) {
	if limits.MaxLines > 0 {
		lines := strings.Split(text, "\n")
		if len(lines) > limits.MaxLines {
			lines = lines[:limits.MaxLines]
			text = strings.Join(lines, "\n")
			truncatedLines = true
		}
	}

	if limits.MaxBytes > 0 && len(text) > limits.MaxBytes {
		cut := limits.MaxBytes
		// Back up to a rune boundary so the result stays valid UTF-8.
		for cut > 0 && !utf8RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
		truncatedBytes = true
	}
	return text, truncatedLines, truncatedBytes
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
