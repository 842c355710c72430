package markup

import (
	"html"
	"strings"
)

// tag is one tokenized markup tag.
type tag struct {
	Name        string
	Attrs       map[string]string
	Closing     bool
	SelfClosing bool
}

// attr returns the entity-decoded attribute value, or "" when absent.
func (t tag) attr(key string) string {
	return t.Attrs[key]
}

// hasAttr reports whether the attribute was present at all.
func (t tag) hasAttr(key string) bool {
	_, ok := t.Attrs[key]
	return ok
}

// scanResult classifies what scanTag found at a '<'.
type scanResult int

const (
	// scanOK means a well-formed tag was read.
	scanOK scanResult = iota
	// scanLiteral means the '<' is not a tag and is kept as text.
	scanLiteral
	// scanUnterminated means no closing '>' exists; the rest is text.
	scanUnterminated
)

// scanTag reads the tag starting at line[pos] == '<'.
// It returns the tag and the index just past its '>'.
func scanTag(line string, pos int) (tag, int, scanResult) {
	j := pos + 1
	closing := false
	if j < len(line) && line[j] == '/' {
		closing = true
		j++
	}

	nameStart := j
	for j < len(line) && isNameByte(line[j], j == nameStart) {
		j++
	}
	if j == nameStart {
		return tag{}, pos + 1, scanLiteral
	}
	name := line[nameStart:j]

	end := findTagEnd(line, j)
	switch {
	case end == tagEndInterrupted:
		return tag{}, pos + 1, scanLiteral
	case end < 0:
		return tag{}, len(line), scanUnterminated
	}

	body := strings.TrimSpace(line[j:end])
	selfClosing := false
	if strings.HasSuffix(body, "/") {
		selfClosing = true
		body = strings.TrimSpace(body[:len(body)-1])
	}

	return tag{
		Name:        name,
		Attrs:       parseAttrs(body),
		Closing:     closing,
		SelfClosing: selfClosing,
	}, end + 1, scanOK
}

// tagEndInterrupted is returned by findTagEnd when another '<' starts before
// the tag closes; the first '<' is then a stray literal.
const tagEndInterrupted = -2

// findTagEnd returns the index of the '>' closing a tag whose attributes
// start at from, skipping '>' inside quoted values. Returns -1 if none.
func findTagEnd(line string, from int) int {
	var quote byte
	for i := from; i < len(line); i++ {
		c := line[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '>':
			return i
		case c == '<':
			return tagEndInterrupted
		}
	}
	return -1
}

func isNameByte(c byte, first bool) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
		return true
	case first:
		return false
	case c >= '0' && c <= '9', c == '-', c == ':', c == '.':
		return true
	}
	return false
}

// parseAttrs parses key=value pairs. Values may be single-quoted,
// double-quoted or bare; a key without a value maps to "".
func parseAttrs(body string) map[string]string {
	attrs := make(map[string]string)
	i := 0
	for i < len(body) {
		for i < len(body) && isSpace(body[i]) {
			i++
		}
		keyStart := i
		for i < len(body) && body[i] != '=' && !isSpace(body[i]) {
			i++
		}
		key := body[keyStart:i]
		if key == "" {
			i++
			continue
		}
		for i < len(body) && isSpace(body[i]) {
			i++
		}
		if i >= len(body) || body[i] != '=' {
			attrs[key] = ""
			continue
		}
		i++
		for i < len(body) && isSpace(body[i]) {
			i++
		}
		if i >= len(body) {
			attrs[key] = ""
			break
		}
		var value string
		if q := body[i]; q == '\'' || q == '"' {
			closeIdx := strings.IndexByte(body[i+1:], q)
			if closeIdx < 0 {
				value = body[i+1:]
				i = len(body)
			} else {
				value = body[i+1 : i+1+closeIdx]
				i += closeIdx + 2
			}
		} else {
			valStart := i
			for i < len(body) && !isSpace(body[i]) {
				i++
			}
			value = body[valStart:i]
		}
		attrs[key] = decodeEntities(value)
	}
	return attrs
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// decodeEntities resolves named and numeric character references.
func decodeEntities(s string) string {
	if strings.IndexByte(s, '&') < 0 {
		return s
	}
	return html.UnescapeString(s)
}

// findClose returns the bounds of the nearest closing tag for name at or
// after from. Whitespace before the '>' is allowed. Stray '<' characters in
// between are ignored.
func findClose(line string, from int, name string) (start, end int, ok bool) {
	for pos := from; pos < len(line); {
		idx := strings.Index(line[pos:], "</")
		if idx < 0 {
			return 0, 0, false
		}
		start = pos + idx
		t, tagEnd, res := scanTag(line, start)
		if res == scanOK && t.Closing && t.Name == name {
			return start, tagEnd, true
		}
		pos = start + 2
	}
	return 0, 0, false
}

// stripMarkup removes every tag from s and decodes entities in the rest.
// Unterminated tags degrade to literal text.
func stripMarkup(s string) string {
	if strings.IndexByte(s, '<') < 0 {
		return decodeEntities(s)
	}
	var b strings.Builder
	pos := 0
	for pos < len(s) {
		i := strings.IndexByte(s[pos:], '<')
		if i < 0 {
			b.WriteString(s[pos:])
			break
		}
		b.WriteString(s[pos : pos+i])
		pos += i
		_, end, res := scanTag(s, pos)
		switch res {
		case scanOK:
			pos = end
		case scanLiteral:
			b.WriteByte('<')
			pos++
		case scanUnterminated:
			b.WriteString(s[pos:])
			pos = len(s)
		}
	}
	return decodeEntities(b.String())
}

// eachTag calls fn for every well-formed, non-closing tag in s.
func eachTag(s string, fn func(t tag)) {
	pos := 0
	for pos < len(s) {
		i := strings.IndexByte(s[pos:], '<')
		if i < 0 {
			return
		}
		pos += i
		t, end, res := scanTag(s, pos)
		switch res {
		case scanOK:
			if !t.Closing {
				fn(t)
			}
			pos = end
		case scanLiteral:
			pos++
		case scanUnterminated:
			return
		}
	}
}
