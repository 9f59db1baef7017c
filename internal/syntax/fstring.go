package syntax

import (
	"strings"
)

// parseFString splits an f-string body into literal text and replacement
// fields. Literal pieces are unescaped unless raw is set.
func parseFString(body string, raw bool, line, col int) ([]FPart, error) {
	var parts []FPart
	var lit strings.Builder

	flush := func() error {
		if lit.Len() == 0 {
			return nil
		}
		s := lit.String()
		lit.Reset()
		if !raw {
			var err error
			if s, err = unescape(s); err != nil {
				return errorf(line, col, "%s", err.Error())
			}
		}
		parts = append(parts, FPart{Lit: s})
		return nil
	}

	for i := 0; i < len(body); {
		c := body[i]
		switch {
		case c == '{' && i+1 < len(body) && body[i+1] == '{':
			lit.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(body) && body[i+1] == '}':
			lit.WriteByte('}')
			i += 2
		case c == '}':
			return nil, errorf(line, col, "f-string: single '}' is not allowed")
		case c == '{':
			if err := flush(); err != nil {
				return nil, err
			}
			end := matchBrace(body, i)
			if end < 0 {
				return nil, errorf(line, col, "f-string: expecting '}'")
			}
			fields, err := parseField(body[i+1:end], raw, line, col)
			if err != nil {
				return nil, err
			}
			parts = append(parts, fields...)
			i = end + 1
		default:
			lit.WriteByte(c)
			i++
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return parts, nil
}

// matchBrace returns the index of the '}' closing the field opened at
// body[open], or -1.
func matchBrace(body string, open int) int {
	depth := 0
	for i := open + 1; i < len(body); i++ {
		switch c := body[i]; c {
		case '\'', '"':
			j := i + 1
			for j < len(body) && body[j] != c {
				j++
			}
			i = j
		case '(', '[', '{':
			depth++
		case ')', ']':
			depth--
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		}
	}
	return -1
}

// parseField parses "expr[=][!conv][:spec]".
func parseField(field string, raw bool, line, col int) ([]FPart, error) {
	exprEnd, convAt, specAt := len(field), -1, -1
	depth := 0
scan:
	for i := 0; i < len(field); i++ {
		switch c := field[i]; c {
		case '\'', '"':
			j := i + 1
			for j < len(field) && field[j] != c {
				j++
			}
			i = j
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '!':
			if depth == 0 && i+1 < len(field) && field[i+1] != '=' {
				exprEnd, convAt = i, i+1
				for k := i + 1; k < len(field); k++ {
					if field[k] == ':' {
						specAt = k + 1
						break
					}
				}
				break scan
			}
		case ':':
			if depth == 0 {
				exprEnd, specAt = i, i+1
				break scan
			}
		}
	}

	text := field[:exprEnd]
	debug := ""
	if trimmed := strings.TrimRight(text, " "); strings.HasSuffix(trimmed, "=") && !isComparisonSuffix(trimmed) {
		debug = text
		text = strings.TrimSuffix(trimmed, "=")
	}
	if strings.TrimSpace(text) == "" {
		return nil, errorf(line, col, "f-string: empty expression not allowed")
	}
	x, err := ParseExpr(text)
	if err != nil {
		return nil, errorf(line, col, "f-string: %s", errMessage(err))
	}
	part := FPart{Value: x}

	if convAt >= 0 {
		end := len(field)
		if specAt >= 0 {
			end = specAt - 1
		}
		conv := field[convAt:end]
		if conv != "r" && conv != "s" && conv != "a" {
			return nil, errorf(line, col, "f-string: invalid conversion character %q: expected 's', 'r', or 'a'", conv)
		}
		part.Conv = conv[0]
	}
	if specAt >= 0 {
		specParts, err := parseFString(field[specAt:], raw, line, col)
		if err != nil {
			return nil, err
		}
		part.Spec = &FString{Pos: Pos{Line: line, Col: col}, Parts: specParts}
	}

	if debug == "" {
		return []FPart{part}, nil
	}
	if part.Conv == 0 && part.Spec == nil {
		part.Conv = 'r'
	}
	return []FPart{{Lit: debug}, part}, nil
}

func isComparisonSuffix(s string) bool {
	for _, op := range []string{"==", "!=", "<=", ">="} {
		if strings.HasSuffix(s, op) {
			return true
		}
	}
	return false
}

func errMessage(err error) string {
	if se, ok := AsError(err); ok {
		return se.Msg
	}
	return err.Error()
}
