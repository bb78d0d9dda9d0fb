package vision

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseLocators parses a serialized list of image locators such as
// "['https://a/1.jpg', 'https://a/2.jpg']" or a JSON array of strings.
// Empty input, "[]" and anything that is not a flat list of string literals
// yield an empty slice.
func ParseLocators(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "[]" {
		return []string{}
	}
	p := &literalParser{src: raw}
	out, ok := p.parseList()
	if !ok {
		return []string{}
	}
	return out
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *literalParser) parseList() ([]string, bool) {
	p.skipSpace()
	if p.peek() != '[' {
		return nil, false
	}
	p.pos++
	out := []string{}
	for {
		p.skipSpace()
		if p.peek() == ']' {
			p.pos++
			break
		}
		s, ok := p.parseString()
		if !ok {
			return nil, false
		}
		out = append(out, s)
		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			p.pos++
			p.skipSpace()
			return out, p.pos == len(p.src)
		default:
			return nil, false
		}
	}
	p.skipSpace()
	return out, p.pos == len(p.src)
}

// parseString reads a single- or double-quoted literal with backslash escapes.
func (p *literalParser) parseString() (string, bool) {
	quote := p.peek()
	if quote != '\'' && quote != '"' {
		return "", false
	}
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), true
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return "", false
			}
			if !p.unescape(&b) {
				return "", false
			}
		case c == '\n':
			return "", false
		default:
			r, size := utf8.DecodeRuneInString(p.src[p.pos:])
			b.WriteRune(r)
			p.pos += size
		}
	}
	return "", false
}

func (p *literalParser) unescape(b *strings.Builder) bool {
	esc := p.src[p.pos+1]
	p.pos += 2
	switch esc {
	case '\\', '\'', '"', '/':
		b.WriteByte(esc)
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'u':
		if p.pos+4 > len(p.src) {
			return false
		}
		n, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
		if err != nil {
			return false
		}
		b.WriteRune(rune(n))
		p.pos += 4
	default:
		b.WriteByte('\\')
		b.WriteByte(esc)
	}
	return true
}
