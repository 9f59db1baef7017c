package ir

import (
	"bytes"
	"encoding/json"
	"fmt"

	"golang.org/x/text/unicode/norm"
)

// MarshalCanonical produces the deterministic JSON form of v.
//
// This is the only serialization used for golden files and content hashes.
// Differences from json.Marshal:
//  1. No HTML escaping (< > & are written literally)
//  2. U+2028 and U+2029 are written literally
//  3. The output is NFC normalized
//  4. No trailing newline, no indentation
//
// Plain Go maps are written with sorted keys (encoding/json behaviour);
// Snapshot and mapping payloads keep insertion order.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	out = unescapeLineSeparators(out)
	return norm.NFC.Bytes(out), nil
}

// unescapeLineSeparators turns \u2028 and \u2029 escapes back into literal
// characters. Escaped backslashes are skipped as pairs, so a literal
// backslash followed by "u2028" text is left alone.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != '\\' {
			out = append(out, c)
			continue
		}
		if i+5 < len(data) && data[i+1] == 'u' && string(data[i+2:i+5]) == "202" &&
			(data[i+5] == '8' || data[i+5] == '9') {
			if data[i+5] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, c)
		if i+1 < len(data) {
			out = append(out, data[i+1])
			i++
		}
	}
	return out
}
