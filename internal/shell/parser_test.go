package shell

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func argumentKinds(cmd Command) []string {
	kinds := make([]string, len(cmd.Arguments))
	for i, a := range cmd.Arguments {
		kinds[i] = a.kind()
	}
	return kinds
}

func TestParseCommandArgumentKinds(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		cmd   string
		kinds []string
	}{
		{"no arguments", "@reason .", "reason", []string{}},
		{"terminator glued to keyword", "@clear ALL.", "clear", []string{"term"}},
		{"query modifiers", `@query COUNT reach(/a, X) LIMIT 5 EXPORTCSV "out.csv" .`, "query",
			[]string{"term", "literal", "term", "term", "term", "string"}},
		{"fact then rule", "@assert p(/a) q(X) :- r(X), s(X) .", "assert", []string{"literal", "rule"}},
		{"rule without spaces", "@retract p(/a) q(X):-r(X) .", "retract", []string{"literal", "rule"}},
		{"rule with comparison", "@assert q(X) :- r(X, Y), X != Y p(/b) .", "assert", []string{"rule", "literal"}},
		{"separator is dropped", `@addsource person[2] : csv("my people.csv") .`, "addsource", []string{"term", "literal"}},
		{"iri", `@setprefix "ex" : <http://example.org/> .`, "setprefix", []string{"string", "IRI"}},
		{"predicate designator", "@retract edge[2] .", "retract", []string{"term"}},
		{"multi-line", "@assert\n  p(/a)\n  p(/b)\n.", "assert", []string{"literal", "literal"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ParseCommand(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, cmd.Name)
			if diff := cmp.Diff(tt.kinds, argumentKinds(cmd)); diff != "" {
				t.Errorf("argument kinds mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseCommandValues(t *testing.T) {
	cmd, err := ParseCommand(`@setprefix "e\"x" : <http://example.org/a.b#> .`)
	require.NoError(t, err)
	assert.Equal(t, StringArgument{Value: `e"x`}, cmd.Arguments[0])
	assert.Equal(t, IRIArgument{IRI: "http://example.org/a.b#"}, cmd.Arguments[1])

	cmd, err = ParseCommand("@query reach(/a, X) LIMIT 10 .")
	require.NoError(t, err)
	lit := cmd.Arguments[0].(LiteralArgument).Literal
	assert.Equal(t, "reach", lit.Predicate.Symbol)
	assert.Equal(t, 2, lit.Predicate.Arity)
	assert.Equal(t, TermArgument{Text: "10"}, cmd.Arguments[2])
}

func TestParseScript(t *testing.T) {
	cmds, err := ParseScript(`
% set up the graph
@assert edge(/a, /b) . # inline comment
@reason .

@query reach(X, Y) .
`)
	require.NoError(t, err)
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	assert.Equal(t, []string{"assert", "reason", "query"}, names)

	cmds, err = ParseScript("  % only a comment\n")
	require.NoError(t, err)
	assert.Empty(t, cmds)
}

func TestParseCommandErrors(t *testing.T) {
	for name, text := range map[string]string{
		"missing terminator":  "@assert p(/a)",
		"missing at":          "assert p(/a) .",
		"missing name":        "@ .",
		"unterminated string": `@load "rules.mg .`,
		"unbalanced brackets": "@assert p(/a .",
		"invalid literal":     "@assert p(/a,, /b) .",
		"invalid rule":        "@assert q(X) :- .",
		"two commands":        "@reason . @showkb .",
		"unterminated iri":    "@setprefix \"ex\" : <http://example.org/ .",
		"empty text":          "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCommand(text)
			require.Error(t, err)
			var pe *ParseError
			assert.True(t, errors.As(err, &pe), "want *ParseError, got %T: %v", err, err)
		})
	}
}

func TestParseErrorPosition(t *testing.T) {
	_, err := ParseScript("@reason .\n@assert p(/a)")
	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 2, pe.Line)
}

func TestCommandString(t *testing.T) {
	cmd, err := ParseCommand(`@export KB "kb.mg" .`)
	require.NoError(t, err)
	assert.Equal(t, `@export KB "kb.mg" .`, cmd.String())
}
