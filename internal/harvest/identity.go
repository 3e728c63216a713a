package harvest

import (
	"fmt"
	"strings"
)

// Identify computes the dedup identifier for a rendered card. Priority:
// platform result-id attribute, then accessible label, then the first
// non-empty text line. Cards exposing none of those get an opaque handle
// built from the render sequence and position; such handles deduplicate
// only within a single snapshot, not across re-renders. Never returns "".
func Identify(c Card, render int) string {
	if id := strings.TrimSpace(c.ResultID); id != "" {
		return id
	}
	if label := strings.TrimSpace(c.Label); label != "" {
		return label
	}
	if line := firstLine(c.Text); line != "" {
		return line
	}
	return fmt.Sprintf("render-%d-card-%d", render, c.Index)
}

// firstLine returns the first non-empty trimmed line of s, or "".
func firstLine(s string) string {
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			return ln
		}
	}
	return ""
}

// textLines splits card text into trimmed non-empty lines.
func textLines(s string) []string {
	var out []string
	for _, ln := range strings.Split(s, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}
