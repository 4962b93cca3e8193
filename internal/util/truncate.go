package util

import (
	"fmt"
	"strings"
)

// TruncateBytes trims a string to maxBytes if needed.
func TruncateBytes(input string, maxBytes int) (string, bool) {
	if maxBytes <= 0 || len(input) <= maxBytes {
		return input, false
	}
	return input[:maxBytes], true
}

// TruncateLinesAndBytes limits lines and total byte count.
func TruncateLinesAndBytes(lines []string, maxLines int, maxBytes int) (out []string, truncated bool, byteCount int) {
	if maxLines <= 0 && maxBytes <= 0 {
		return lines, false, len(strings.Join(lines, "\n"))
	}
	for _, line := range lines {
		if maxLines > 0 && len(out) >= maxLines {
			truncated = true
			break
		}
		lineBytes := len(line)
		sep := 0
		if len(out) > 0 {
			sep = 1
		}
		if maxBytes > 0 && byteCount+sep+lineBytes > maxBytes {
			truncated = true
			break
		}
		if sep == 1 {
			byteCount++
		}
		byteCount += lineBytes
		out = append(out, line)
	}
	return out, truncated, byteCount
}

// ClampOutput limits text to maxLines and maxBytes. When content is dropped a
// single trailing marker names how much was omitted; nothing is dropped
// silently.
func ClampOutput(text string, maxLines int, maxBytes int) (string, bool) {
	if text == "" {
		return text, false
	}
	// A trailing newline terminates the last line rather than opening an
	// empty one, so it must not count toward the omitted total.
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	kept, truncated, _ := TruncateLinesAndBytes(lines, maxLines, maxBytes)
	if !truncated {
		return text, false
	}
	omitted := len(lines) - len(kept)
	marker := fmt.Sprintf("... [%d lines omitted]", omitted)
	return strings.Join(kept, "\n") + "\n" + marker, true
}

// Preview returns a short preview of text by limiting lines and bytes.
func Preview(text string, maxLines int, maxBytes int) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(text, "\n")
	trimmed, _, _ := TruncateLinesAndBytes(lines, maxLines, maxBytes)
	return strings.Join(trimmed, "\n")
}

// Tail returns at most maxBytes from the end of text, starting at a line
// boundary when one is available.
func Tail(text string, maxBytes int) string {
	if maxBytes <= 0 || len(text) <= maxBytes {
		return text
	}
	start := len(text) - maxBytes
	if text[start-1] == '\n' {
		return text[start:]
	}
	if idx := strings.IndexByte(text[start:], '\n'); idx >= 0 && start+idx+1 < len(text) {
		return text[start+idx+1:]
	}
	return text[start:]
}
