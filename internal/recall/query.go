package recall

import (
	"strings"
	"unicode"

	"github.com/iksnae/claude-memory/internal"
)

// Query is a user search string compiled to an FTS5 match expression.
//
// Grammar: whitespace-separated terms are ANDed. The bare word OR between
// two terms makes a disjunction and AND is accepted as a no-op. Text in
// double quotes is a phrase. A trailing * turns a word into a prefix match.
// Every term is emitted as a quoted FTS5 string so user punctuation never
// reaches the FTS5 parser as syntax.
type Query struct {
	Raw   string
	Match string
	Terms []string
	HasOR bool
}

// AnyOf returns the terms joined by OR.
func (q Query) AnyOf() string {
	return strings.Join(q.Terms, " OR ")
}

// CanFallback reports whether an empty result is worth retrying as AnyOf.
func (q Query) CanFallback() bool {
	return !q.HasOR && len(q.Terms) > 1
}

type token struct {
	text   string
	phrase bool
}

// CompileQuery parses raw into a Query. A query with no searchable term is
// a validation error.
func CompileQuery(raw string) (Query, error) {
	if strings.TrimSpace(raw) == "" {
		return Query{}, internal.Validation("query", "must not be empty")
	}

	q := Query{Raw: raw}
	var parts []string
	pendingOR := false

	for _, tok := range tokenize(raw) {
		if !tok.phrase {
			switch tok.text {
			case "OR":
				pendingOR = len(parts) > 0
				continue
			case "AND":
				continue
			}
		}
		term, ok := quoteTerm(tok)
		if !ok {
			continue
		}
		if pendingOR {
			parts = append(parts, "OR")
			q.HasOR = true
			pendingOR = false
		}
		parts = append(parts, term)
		q.Terms = append(q.Terms, term)
	}

	if len(q.Terms) == 0 {
		return Query{}, internal.Validation("query", "contains no searchable terms")
	}
	q.Match = strings.Join(parts, " ")
	return q, nil
}

func tokenize(raw string) []token {
	var (
		toks   []token
		cur    strings.Builder
		inQuot bool
	)
	flush := func(phrase bool) {
		if cur.Len() > 0 || phrase {
			toks = append(toks, token{text: cur.String(), phrase: phrase})
		}
		cur.Reset()
	}

	for _, r := range raw {
		switch {
		case r == '"':
			if inQuot {
				flush(true)
			} else {
				flush(false)
			}
			inQuot = !inQuot
		case unicode.IsSpace(r) && !inQuot:
			flush(false)
		default:
			cur.WriteRune(r)
		}
	}
	// an unterminated quote is read as a phrase
	flush(inQuot)
	return toks
}

// quoteTerm renders one token as an FTS5 string. Tokens with no letter or
// digit would index to nothing and are dropped.
func quoteTerm(tok token) (string, bool) {
	text := tok.text
	prefix := false
	if !tok.phrase && strings.HasSuffix(text, "*") {
		text = strings.TrimRight(text, "*")
		prefix = true
	}
	if !strings.ContainsFunc(text, func(r rune) bool { return unicode.IsLetter(r) || unicode.IsDigit(r) }) {
		return "", false
	}
	out := `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
	if prefix {
		out += "*"
	}
	return out, true
}
