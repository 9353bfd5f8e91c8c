package database

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	ErrEmptyStatement     = errors.New("empty SQL statement")
	ErrMultipleStatements = errors.New("only a single SQL statement is allowed")
	ErrNotReadOnly        = errors.New("only read-only SELECT statements are allowed")
)

var wordPattern = regexp.MustCompile(`[A-Za-z_]+`)

// writeKeywords reject a statement wherever they appear outside string
// literals and comments. Columns named like one of them must be quoted.
var writeKeywords = map[string]bool{
	"insert": true, "update": true, "delete": true, "replace": true, "upsert": true,
	"drop": true, "alter": true, "create": true, "truncate": true, "merge": true,
	"attach": true, "detach": true, "pragma": true, "vacuum": true, "reindex": true,
	"analyze": true, "begin": true, "commit": true, "rollback": true, "savepoint": true,
	"release": true, "grant": true, "revoke": true, "call": true, "exec": true,
	"execute": true, "copy": true, "load_extension": true,
}

// ValidateReadOnly checks that stmt is one SELECT (or WITH ... SELECT)
// statement and returns it without the trailing semicolon.
func ValidateReadOnly(stmt string) (string, error) {
	stmt = strings.TrimSpace(stmt)
	for strings.HasSuffix(stmt, ";") {
		stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	}
	if stmt == "" {
		return "", ErrEmptyStatement
	}

	code := stripLiterals(stmt)
	if strings.Contains(code, ";") {
		return "", ErrMultipleStatements
	}
	words := wordPattern.FindAllString(strings.ToLower(code), -1)
	if len(words) == 0 || (words[0] != "select" && words[0] != "with") {
		return "", ErrNotReadOnly
	}
	for _, w := range words {
		if writeKeywords[w] {
			return "", fmt.Errorf("%w: found %s", ErrNotReadOnly, strings.ToUpper(w))
		}
	}
	return stmt, nil
}

// stripLiterals blanks out string literals, quoted identifiers and
// comments so keyword checks only see SQL code.
func stripLiterals(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'' || c == '"' || c == '`':
			j := i + 1
			for j < len(s) {
				if s[j] == c {
					if j+1 < len(s) && s[j+1] == c {
						j += 2
						continue
					}
					break
				}
				j++
			}
			b.WriteString(" ? ")
			i = j
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			for i < len(s) && s[i] != '\n' {
				i++
			}
			b.WriteByte(' ')
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
			} else {
				i += end + 3
			}
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// LooksLikeSQL reports whether text already is a query rather than a
// natural-language question.
func LooksLikeSQL(text string) bool {
	words := wordPattern.FindAllString(strings.ToLower(stripLiterals(text)), 2)
	if len(words) < 2 {
		return false
	}
	switch words[0] {
	case "select":
		return true
	case "with":
		// "with" also starts plain English questions
		return strings.Contains(strings.ToLower(text), " as (") || strings.Contains(strings.ToLower(text), " as(")
	}
	return false
}
