package shell

import (
	"strconv"

	"github.com/google/mangle/ast"

	"kbshell/internal/mangle"
)

// Argument is one parsed command argument. The set of implementations is
// closed: TermArgument, LiteralArgument, RuleArgument, StringArgument and
// IRIArgument.
type Argument interface {
	String() string
	kind() string
}

// TermArgument is a bare token such as `COUNT`, `5` or `edge[2]`.
type TermArgument struct {
	Text string
}

// LiteralArgument is a positive literal, ground or not.
type LiteralArgument struct {
	Literal ast.Atom
}

// RuleArgument is a rule `head :- body`.
type RuleArgument struct {
	Rule ast.Clause
}

// StringArgument is a double-quoted string with escapes resolved.
type StringArgument struct {
	Value string
}

// IRIArgument is an IRI written in angle brackets.
type IRIArgument struct {
	IRI string
}

func (a TermArgument) String() string    { return a.Text }
func (a LiteralArgument) String() string { return a.Literal.String() }
func (a RuleArgument) String() string    { return mangle.RuleString(a.Rule) }
func (a StringArgument) String() string  { return strconv.Quote(a.Value) }
func (a IRIArgument) String() string     { return "<" + a.IRI + ">" }

func (TermArgument) kind() string    { return "term" }
func (LiteralArgument) kind() string { return "literal" }
func (RuleArgument) kind() string    { return "rule" }
func (StringArgument) kind() string  { return "string" }
func (IRIArgument) kind() string     { return "IRI" }
