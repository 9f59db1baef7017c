package ir

import "strings"

// Script is a submitted program and its source split into lines.
//
// Lines follows splitlines semantics: "\n", "\r\n" and "\r" all terminate a
// line and a trailing terminator does not produce an empty final element.
type Script struct {
	Source string
	Lines  []string
}

// NewScript splits source into lines.
func NewScript(source string) Script {
	return Script{Source: source, Lines: SplitLines(source)}
}

// Line returns the text of the 1-based line n, or "" when n is out of range.
func (s Script) Line(n int) string {
	if n < 1 || n > len(s.Lines) {
		return ""
	}
	return s.Lines[n-1]
}

// SplitLines splits text on "\n", "\r\n" and "\r". The result is never nil.
func SplitLines(text string) []string {
	lines := []string{}
	for len(text) > 0 {
		i := strings.IndexAny(text, "\r\n")
		if i < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:i])
		if text[i] == '\r' && i+1 < len(text) && text[i+1] == '\n' {
			i++
		}
		text = text[i+1:]
	}
	return lines
}
