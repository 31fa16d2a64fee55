// Package markup parses the markdown-lite convention used for generated section
// content: inline **bold** spans and optional "* " / "- " bullet prefixes.
package markup

import "strings"

// BoldDelimiter toggles bold on and off.
const BoldDelimiter = "**"

// Run is a contiguous span of text sharing one formatting.
type Run struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// Parse splits text on every BoldDelimiter. Pieces alternate plain/bold starting
// with plain, so an unmatched trailing delimiter still renders the tail bold.
// Empty pieces are kept; use Compact to drop them.
func Parse(text string) []Run {
	parts := strings.Split(text, BoldDelimiter)
	runs := make([]Run, 0, len(parts))
	for i, p := range parts {
		runs = append(runs, Run{Text: p, Bold: i%2 == 1})
	}
	return runs
}

// Compact removes zero-length runs.
func Compact(runs []Run) []Run {
	out := make([]Run, 0, len(runs))
	for _, r := range runs {
		if r.Text == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}

// PlainText concatenates the text of all runs.
func PlainText(runs []Run) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

var bulletPrefixes = []string{"* ", "- "}

// Normalize turns multi-line content into bullet lines: each line is trimmed,
// blank lines are dropped, and one leading "* " or "- " marker is removed.
func Normalize(content string) []string {
	lines := strings.Split(content, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		for _, prefix := range bulletPrefixes {
			if strings.HasPrefix(line, prefix) {
				line = line[len(prefix):]
				break
			}
		}
		out = append(out, line)
	}
	return out
}
