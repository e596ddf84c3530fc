package shell

import (
	"fmt"

	"github.com/google/mangle/ast"
)

// AssertCommand adds facts and rules to the knowledge base.
type AssertCommand struct{}

func (c *AssertCommand) Synopsis() string { return "add facts and rules to the knowledge base" }

func (c *AssertCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, "(<fact> | <rule>)+",
		"fact: a ground positive literal, e.g. edge(/a, /b)",
		"rule: a rule, e.g. reach(X, Y) :- edge(X, Y)",
		"Adding a statement that is already present has no effect.")
}

func (c *AssertCommand) Run(cmd Command, in *Interpreter) error {
	if len(cmd.Arguments) == 0 {
		return executionErrorf("@%s needs at least one fact or rule", cmd.Name)
	}
	facts, rules, err := factsAndRules(cmd, "fact or rule")
	if err != nil {
		return err
	}

	kb := in.KnowledgeBase()
	newFacts, err := kb.AddFacts(facts...)
	if err != nil {
		return wrapExecutionError(err, "failed to add facts")
	}
	newRules := kb.AddRules(rules...)

	p := in.Printer()
	p.Normal("Asserted ")
	p.Emphasis(fmt.Sprint(newFacts))
	p.Normal(" new fact(s) and ")
	p.Emphasis(fmt.Sprint(newRules))
	p.Normal(" new rule(s).\n")
	return nil
}

// factsAndRules splits the arguments into ground facts and rules. Any other
// argument fails the whole command before anything is applied.
func factsAndRules(cmd Command, param string) ([]ast.Atom, []ast.Clause, error) {
	var facts []ast.Atom
	var rules []ast.Clause
	for i, arg := range cmd.Arguments {
		switch a := arg.(type) {
		case LiteralArgument:
			fact, err := ExtractFact(cmd, i+1, param)
			if err != nil {
				return nil, nil, err
			}
			facts = append(facts, fact)
		case RuleArgument:
			rules = append(rules, a.Rule)
		default:
			return nil, nil, argumentTypeError(i+1, "fact or rule", param)
		}
	}
	return facts, rules, nil
}
