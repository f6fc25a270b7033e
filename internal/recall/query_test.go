package recall

import (
	"testing"

	"github.com/iksnae/claude-memory/internal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileQuery(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantMatch string
		wantOR    bool
		wantTerms int
	}{
		{"single term", "refactor", `"refactor"`, false, 1},
		{"implicit and", "fix  login bug", `"fix" "login" "bug"`, false, 3},
		{"explicit or", "fix OR bug", `"fix" OR "bug"`, true, 2},
		{"explicit and is a no-op", "fix AND bug", `"fix" "bug"`, false, 2},
		{"lowercase or is a term", "fix or bug", `"fix" "or" "bug"`, false, 3},
		{"phrase", `"exact phrase" here`, `"exact phrase" "here"`, false, 2},
		{"prefix", "refact*", `"refact"*`, false, 1},
		{"unterminated phrase", `say "hello there`, `"say" "hello there"`, false, 2},
		{"dangling operators", "OR fix OR", `"fix"`, false, 1},
		{"fts syntax is quoted", "col:name NOT NEAR(x)", `"col:name" "NOT" "NEAR(x)"`, false, 3},
		{"punctuation-only terms dropped", "fix !!! bug", `"fix" "bug"`, false, 2},
		{"mixed", "a b OR c", `"a" "b" OR "c"`, true, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := CompileQuery(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMatch, q.Match)
			assert.Equal(t, tt.wantOR, q.HasOR)
			assert.Len(t, q.Terms, tt.wantTerms)
		})
	}
}

func TestCompileQueryRejectsEmpty(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n", "!!! ???", `""`, "OR AND"} {
		_, err := CompileQuery(raw)
		assert.True(t, internal.IsValidation(err), "CompileQuery(%q) error = %v", raw, err)
	}
}

func TestQueryFallback(t *testing.T) {
	q, err := CompileQuery("refactor login")
	require.NoError(t, err)
	assert.True(t, q.CanFallback())
	assert.Equal(t, `"refactor" OR "login"`, q.AnyOf())

	single, _ := CompileQuery("refactor")
	assert.False(t, single.CanFallback())

	or, _ := CompileQuery("a OR b")
	assert.False(t, or.CanFallback())
}
