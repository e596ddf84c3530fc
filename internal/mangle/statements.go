// Package mangle binds the knowledge base and reasoner of a kbshell session to
// Google Mangle. Mangle supplies the rule grammar (parse), the statement model
// (ast) and the fixpoint evaluation (analysis + engine); this package owns the
// mutable knowledge base and the materialization state built on top of them.
package mangle

import (
	"fmt"
	"strings"

	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/parse"
)

// ParseLiteral parses a single positive literal such as `p(/a, X)`.
// A trailing period is tolerated.
func ParseLiteral(text string) (ast.Atom, error) {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return ast.Atom{}, fmt.Errorf("empty literal")
	}
	clean = strings.TrimSpace(strings.TrimSuffix(clean, "."))

	atom, err := parse.Atom(clean)
	if err != nil {
		// Attempt again with a trailing period
		atom, err = parse.Atom(clean + ".")
		if err != nil {
			return ast.Atom{}, fmt.Errorf("failed to parse literal %q: %w", text, err)
		}
	}
	return atom, nil
}

// ParseFact parses a literal and requires it to be ground.
func ParseFact(text string) (ast.Atom, error) {
	atom, err := ParseLiteral(text)
	if err != nil {
		return ast.Atom{}, err
	}
	if !IsGround(atom) {
		return ast.Atom{}, fmt.Errorf("%s is not a fact: it contains variables", atom)
	}
	return atom, nil
}

// ParseRule parses a single rule `head :- body`.
func ParseRule(text string) (ast.Clause, error) {
	clean := strings.TrimSpace(text)
	if !strings.HasSuffix(clean, ".") {
		clean += "."
	}
	unit, err := parse.Unit(strings.NewReader(clean))
	if err != nil {
		return ast.Clause{}, fmt.Errorf("failed to parse rule %q: %w", text, err)
	}
	if len(unit.Clauses) != 1 {
		return ast.Clause{}, fmt.Errorf("expected exactly one rule in %q, found %d", text, len(unit.Clauses))
	}
	clause := unit.Clauses[0]
	if len(clause.Premises) == 0 {
		return ast.Clause{}, fmt.Errorf("%q has no body; use a fact instead", text)
	}
	return clause, nil
}

// Program is the statement content of a rule file.
type Program struct {
	Facts []ast.Atom
	Rules []ast.Clause
}

// ParseProgram parses Mangle source text into facts and rules.
// Declarations are accepted by the grammar but carry no meaning for the
// knowledge base and are dropped.
func ParseProgram(source string) (Program, error) {
	unit, err := parse.Unit(strings.NewReader(source))
	if err != nil {
		return Program{}, fmt.Errorf("failed to parse program: %w", err)
	}

	var prog Program
	for _, clause := range unit.Clauses {
		if len(clause.Premises) == 0 && clause.Transform == nil {
			if !IsGround(clause.Head) {
				return Program{}, fmt.Errorf("%s is not a fact: it contains variables", clause.Head)
			}
			prog.Facts = append(prog.Facts, clause.Head)
			continue
		}
		prog.Rules = append(prog.Rules, clause)
	}
	return prog, nil
}

// IsGround reports whether every argument of the atom is a constant.
func IsGround(atom ast.Atom) bool {
	for _, arg := range atom.Args {
		if _, ok := arg.(ast.Constant); !ok {
			return false
		}
	}
	return true
}

// HasNegation reports whether the rule body contains a negated literal.
func HasNegation(rule ast.Clause) bool {
	for _, premise := range rule.Premises {
		if _, ok := premise.(ast.NegAtom); ok {
			return true
		}
	}
	return false
}

// OutputVariables returns the distinct named variables of a query literal in
// order of first occurrence. The anonymous variable `_` is not an output.
func OutputVariables(query ast.Atom) []string {
	seen := make(map[string]bool)
	var vars []string
	for _, arg := range query.Args {
		v, ok := arg.(ast.Variable)
		if !ok || v.Symbol == "_" || seen[v.Symbol] {
			continue
		}
		seen[v.Symbol] = true
		vars = append(vars, v.Symbol)
	}
	return vars
}

// PredicateString renders a predicate as `name[arity]`.
func PredicateString(sym ast.PredicateSym) string {
	return fmt.Sprintf("%s[%d]", sym.Symbol, sym.Arity)
}

// FactString renders a fact as a statement terminated by a period.
func FactString(atom ast.Atom) string {
	return atom.String() + "."
}

// RuleString renders a rule as a statement terminated by a period.
func RuleString(rule ast.Clause) string {
	return strings.TrimSuffix(strings.TrimSpace(rule.String()), ".") + "."
}

func factKey(atom ast.Atom) string {
	return atom.String()
}

func ruleKey(rule ast.Clause) string {
	return RuleString(rule)
}
