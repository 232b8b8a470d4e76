package tenantdb

import (
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

// PlaceholderSchema is the schema name statements are written against.
// Sessions rewrite it to the bound tenant's schema.
const PlaceholderSchema = "tenant"

// placeholderRef matches tenant. or "tenant". not preceded by an identifier
// character, a dot or a quote, so my_tenant.x and public.tenant.x are left alone.
var placeholderRef = regexp.MustCompile(`(^|[^\w."$])("tenant"|tenant)\.`)

// Translator rewrites placeholder schema references to a concrete schema.
// The zero value leaves statements untouched.
type Translator struct {
	target string
}

// NewTranslator targets the given physical schema.
func NewTranslator(schemaName string) Translator {
	if schemaName == "" {
		return Translator{}
	}
	return Translator{target: pgx.Identifier{schemaName}.Sanitize()}
}

// Rewrite returns sql with every placeholder schema reference outside string
// literals and comments replaced. Plain, escape (E'...') and dollar-quoted
// strings are left as written, as are line and block comments.
func (t Translator) Rewrite(sql string) string {
	if t.target == "" || !strings.Contains(sql, PlaceholderSchema) {
		return sql
	}

	var b strings.Builder
	b.Grow(len(sql) + 16)

	code := 0
	for i := 0; i < len(sql); {
		if sql[i] == '"' {
			i = quotedEnd(sql, i, '"', false)
			continue
		}
		end := verbatimEnd(sql, i)
		if end == i {
			i++
			continue
		}
		b.WriteString(t.rewriteCode(sql[code:i]))
		b.WriteString(sql[i:end])
		i, code = end, end
	}
	b.WriteString(t.rewriteCode(sql[code:]))

	return b.String()
}

func (t Translator) rewriteCode(code string) string {
	if code == "" {
		return code
	}
	return placeholderRef.ReplaceAllString(code, "${1}"+t.target+".")
}

// verbatimEnd returns the index just past the literal or comment opening at i,
// or i when none opens there. Unterminated ones run to the end.
func verbatimEnd(sql string, i int) int {
	switch {
	case sql[i] == '\'':
		return quotedEnd(sql, i, '\'', escapeString(sql, i))
	case strings.HasPrefix(sql[i:], "--"):
		if n := strings.IndexByte(sql[i:], '\n'); n >= 0 {
			return i + n + 1
		}
		return len(sql)
	case strings.HasPrefix(sql[i:], "/*"):
		return blockCommentEnd(sql, i)
	case sql[i] == '$':
		return dollarQuoteEnd(sql, i)
	}
	return i
}

// quotedEnd returns the index just past the quoted run opening at start.
// Doubled quotes are escapes, and so are backslashes when backslash is set.
func quotedEnd(sql string, start int, quote byte, backslash bool) int {
	for i := start + 1; i < len(sql); i++ {
		switch sql[i] {
		case '\\':
			if backslash {
				i++
			}
		case quote:
			if i+1 < len(sql) && sql[i+1] == quote {
				i++
				continue
			}
			return i + 1
		}
	}
	return len(sql)
}

// escapeString reports whether the quote at i opens an E'...' string.
func escapeString(sql string, i int) bool {
	if i == 0 || (sql[i-1] != 'E' && sql[i-1] != 'e') {
		return false
	}
	return i < 2 || !isIdentChar(sql[i-2])
}

// blockCommentEnd handles nested /* */ comments.
func blockCommentEnd(sql string, start int) int {
	depth := 0
	for i := start; i+1 < len(sql); i++ {
		switch {
		case sql[i] == '/' && sql[i+1] == '*':
			depth++
			i++
		case sql[i] == '*' && sql[i+1] == '/':
			depth--
			i++
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(sql)
}

// dollarQuoteEnd returns the end of a $tag$...$tag$ string opening at start.
// Positional parameters such as $1 and dollars inside identifiers open nothing.
func dollarQuoteEnd(sql string, start int) int {
	if start > 0 && isIdentChar(sql[start-1]) {
		return start
	}
	i := start + 1
	for ; i < len(sql) && sql[i] != '$'; i++ {
		c := sql[i]
		if !isIdentStart(c) && (i == start+1 || !isDigit(c)) {
			return start
		}
	}
	if i >= len(sql) {
		return start
	}

	tag := sql[start : i+1]
	if n := strings.Index(sql[i+1:], tag); n >= 0 {
		return i + 1 + n + len(tag)
	}
	return len(sql)
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentChar(c byte) bool { return isIdentStart(c) || isDigit(c) || c == '$' }
