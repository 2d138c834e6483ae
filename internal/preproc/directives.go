package preproc

import (
	"strings"

	"github.com/standardbeagle/bracketeer/internal/syntax"
)

// Excluder reports offsets inside comments or string literals
type Excluder interface {
	Excluded(offset int) bool
}

var directiveKeywords = map[string]syntax.DirectiveKind{
	"if":       syntax.DirectiveIf,
	"ifdef":    syntax.DirectiveIfdef,
	"ifndef":   syntax.DirectiveIfndef,
	"elif":     syntax.DirectiveElif,
	"elifdef":  syntax.DirectiveElif,
	"elifndef": syntax.DirectiveElif,
	"else":     syntax.DirectiveElse,
	"endif":    syntax.DirectiveEndif,
}

// ScanDirectives finds conditional directives line by line. It serves
// buffers whose syntax tree carries no directives, such as C# sources or
// C files the parser could not handle. A '#' inside an excluded partition
// does not start a directive; excluded may be nil.
func ScanDirectives(content []byte, excluded Excluder) []syntax.Directive {
	var out []syntax.Directive
	for lineStart := 0; lineStart < len(content); {
		lineEnd := logicalLineEnd(content, lineStart)

		i := skipBlanks(content, lineStart, lineEnd)
		if i < lineEnd && content[i] == '#' && (excluded == nil || !excluded.Excluded(i)) {
			if d, ok := parseDirective(content, i, lineEnd); ok {
				out = append(out, d)
			}
		}

		lineStart = lineEnd + 1
	}
	return out
}

// logicalLineEnd returns the offset of the newline ending the line that
// starts at from, following backslash continuations
func logicalLineEnd(content []byte, from int) int {
	for i := from; i < len(content); i++ {
		if content[i] != '\n' {
			continue
		}
		j := i - 1
		if j >= from && content[j] == '\r' {
			j--
		}
		if j >= from && content[j] == '\\' {
			continue
		}
		return i
	}
	return len(content)
}

func skipBlanks(content []byte, i, end int) int {
	for i < end && (content[i] == ' ' || content[i] == '\t') {
		i++
	}
	return i
}

func parseDirective(content []byte, hash, lineEnd int) (syntax.Directive, bool) {
	kwStart := skipBlanks(content, hash+1, lineEnd)
	kwEnd := kwStart
	for kwEnd < lineEnd && isWordByte(content[kwEnd]) {
		kwEnd++
	}
	keyword := string(content[kwStart:kwEnd])
	kind, ok := directiveKeywords[keyword]
	if !ok {
		return syntax.Directive{}, false
	}

	d := syntax.Directive{Kind: kind, Start: hash, End: kwEnd}
	if kind == syntax.DirectiveElse || kind == syntax.DirectiveEndif {
		return d, true
	}

	condEnd := conditionEnd(content, kwEnd, lineEnd)
	for condEnd > kwEnd && isBlank(content[condEnd-1]) {
		condEnd--
	}
	cond := strings.TrimSpace(string(content[kwEnd:condEnd]))
	if cond == "" {
		return d, true
	}
	d.End = condEnd

	switch keyword {
	case "elifdef":
		cond = "defined(" + cond + ")"
	case "elifndef":
		cond = "!defined(" + cond + ")"
	}
	d.Cond = cond
	return d, true
}

// conditionEnd stops before a trailing comment
func conditionEnd(content []byte, from, lineEnd int) int {
	for i := from; i+1 < lineEnd; i++ {
		if content[i] == '/' && (content[i+1] == '/' || content[i+1] == '*') {
			return i
		}
	}
	return lineEnd
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}
