// Package mcformat renders Minecraft formatting codes found in string
// values (item names, lore, signs) as HTML.
package mcformat

import (
	"html/template"
	"strings"
)

type style struct {
	color                                   byte
	bold, italic, underline, strike, obfusc bool
}

func (s style) classes() string {
	c := []string{"mc-text"}
	if s.color != 0 {
		c = append(c, "mc-c"+string(s.color))
	}
	for _, f := range []struct {
		on   bool
		name string
	}{
		{s.bold, "mc-bold"},
		{s.italic, "mc-italic"},
		{s.underline, "mc-underline"},
		{s.strike, "mc-strike"},
		{s.obfusc, "mc-obf"},
	} {
		if f.on {
			c = append(c, f.name)
		}
	}
	return strings.Join(c, " ")
}

// apply changes s according to a code character and reports whether the
// code was recognized.
func (s *style) apply(code rune) bool {
	switch code {
	case 'k', 'K':
		s.obfusc = true
	case 'l', 'L':
		s.bold = true
	case 'm', 'M':
		s.strike = true
	case 'n', 'N':
		s.underline = true
	case 'o', 'O':
		s.italic = true
	case 'r', 'R':
		*s = style{}
	default:
		switch {
		case code >= '0' && code <= '9', code >= 'a' && code <= 'f':
			s.color = byte(code)
		case code >= 'A' && code <= 'F':
			s.color = byte(code) + 'a' - 'A'
		default:
			return false
		}
	}
	return true
}

// Format escapes s for HTML and wraps runs of text in spans whose classes
// (mc-c0 .. mc-cf, mc-bold, mc-italic, ...) follow the § or & codes in s.
// A prefix character not followed by a known code is kept as text.
func Format(s string) template.HTML {
	var (
		b    strings.Builder
		st   style
		open bool
	)
	closeSpan := func() {
		if open {
			b.WriteString("</span>")
			open = false
		}
	}
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		if (r == '§' || r == '&') && i+1 < len(rs) && st.apply(rs[i+1]) {
			closeSpan()
			i++
			continue
		}
		if !open {
			b.WriteString(`<span class="`)
			b.WriteString(st.classes())
			b.WriteString(`">`)
			open = true
		}
		b.WriteString(template.HTMLEscapeString(string(r)))
	}
	closeSpan()
	return template.HTML(b.String())
}
