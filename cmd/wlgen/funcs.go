package main

import (
	"strings"
	"unicode"
)

func (ctx *Context) ident(v string) string {
	v, _ = strings.CutPrefix(v, ctx.Config.Prefix)
	return ctx.camel(v)
}

func (ctx *Context) camel(v string) string {
	var buf strings.Builder
	buf.Grow(len(v))
	shift := true
	for _, c := range v {
		if c == '_' {
			shift = true
			continue
		}

		if shift {
			c = unicode.ToUpper(c)
		}
		buf.WriteRune(c)
		shift = false
	}
	return buf.String()
}

func (ctx *Context) trimLines(v string) string {
	lines := strings.Split(v, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func (ctx *Context) comment(v string) string {
	v = ctx.trimLines(v)
	if len(v) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, line := range strings.Split(v, "\n") {
		sb.WriteString("// ")
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}
