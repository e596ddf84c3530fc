package shell

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/mangle/ast"

	"kbshell/internal/mangle"
)

var predicatePattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.:]*)\[(\d+)\]$`)

// ValidateArgumentCount fails unless the command has exactly one of the
// given numbers of arguments.
func ValidateArgumentCount(cmd Command, counts ...int) error {
	for _, n := range counts {
		if len(cmd.Arguments) == n {
			return nil
		}
	}
	want := make([]string, len(counts))
	for i, n := range counts {
		want[i] = strconv.Itoa(n)
	}
	return executionErrorf("@%s expects %s argument(s), got %d",
		cmd.Name, strings.Join(want, " or "), len(cmd.Arguments))
}

func argumentTypeError(pos int, typ, param string) error {
	return executionErrorf("argument at position %d needs to be of type %s (%s)", pos, typ, param)
}

// argument returns the argument at the 1-based position pos.
func argument(cmd Command, pos int, param string) (Argument, error) {
	if pos < 1 || pos > len(cmd.Arguments) {
		return nil, executionErrorf("@%s is missing argument %d (%s)", cmd.Name, pos, param)
	}
	return cmd.Arguments[pos-1], nil
}

// ExtractString returns a quoted string argument.
func ExtractString(cmd Command, pos int, param string) (string, error) {
	arg, err := argument(cmd, pos, param)
	if err != nil {
		return "", err
	}
	s, ok := arg.(StringArgument)
	if !ok {
		return "", argumentTypeError(pos, "string", param)
	}
	return s.Value, nil
}

// ExtractName returns a bare term argument such as a keyword.
func ExtractName(cmd Command, pos int, param string) (string, error) {
	arg, err := argument(cmd, pos, param)
	if err != nil {
		return "", err
	}
	t, ok := arg.(TermArgument)
	if !ok {
		return "", argumentTypeError(pos, "name", param)
	}
	return t.Text, nil
}

// ExtractLiteral returns a positive literal argument.
func ExtractLiteral(cmd Command, pos int, param string) (ast.Atom, error) {
	arg, err := argument(cmd, pos, param)
	if err != nil {
		return ast.Atom{}, err
	}
	l, ok := arg.(LiteralArgument)
	if !ok {
		return ast.Atom{}, argumentTypeError(pos, "positive literal", param)
	}
	return l.Literal, nil
}

// ExtractFact returns a ground positive literal argument.
func ExtractFact(cmd Command, pos int, param string) (ast.Atom, error) {
	arg, err := argument(cmd, pos, param)
	if err != nil {
		return ast.Atom{}, err
	}
	l, ok := arg.(LiteralArgument)
	if !ok || !mangle.IsGround(l.Literal) {
		return ast.Atom{}, argumentTypeError(pos, "fact", param)
	}
	return l.Literal, nil
}

// ExtractPredicate returns a `name[arity]` predicate designator.
func ExtractPredicate(cmd Command, pos int, param string) (ast.PredicateSym, error) {
	arg, err := argument(cmd, pos, param)
	if err != nil {
		return ast.PredicateSym{}, err
	}
	sym, ok := predicateOf(arg)
	if !ok {
		return ast.PredicateSym{}, argumentTypeError(pos, "predicate[arity]", param)
	}
	return sym, nil
}

func predicateOf(arg Argument) (ast.PredicateSym, bool) {
	t, ok := arg.(TermArgument)
	if !ok {
		return ast.PredicateSym{}, false
	}
	m := predicatePattern.FindStringSubmatch(t.Text)
	if m == nil {
		return ast.PredicateSym{}, false
	}
	arity, err := strconv.Atoi(m[2])
	if err != nil {
		return ast.PredicateSym{}, false
	}
	return ast.PredicateSym{Symbol: m[1], Arity: arity}, true
}

// ExtractInteger returns a non-negative integer term.
func ExtractInteger(cmd Command, pos int, param string) (int, error) {
	text, err := ExtractName(cmd, pos, param)
	if err != nil {
		return 0, argumentTypeError(pos, "integer", param)
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0, argumentTypeError(pos, "integer", param)
	}
	return n, nil
}

// ExtractIRI returns an IRI argument. A quoted string is accepted as well.
func ExtractIRI(cmd Command, pos int, param string) (string, error) {
	arg, err := argument(cmd, pos, param)
	if err != nil {
		return "", err
	}
	switch a := arg.(type) {
	case IRIArgument:
		return a.IRI, nil
	case StringArgument:
		return a.Value, nil
	default:
		return "", argumentTypeError(pos, "IRI", param)
	}
}

// describeArguments is used in debug logging.
func describeArguments(args []Argument) string {
	kinds := make([]string, len(args))
	for i, a := range args {
		kinds[i] = a.kind()
	}
	return fmt.Sprintf("[%s]", strings.Join(kinds, " "))
}
