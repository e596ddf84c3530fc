package shell

import (
	"fmt"

	"github.com/google/mangle/ast"
)

// RetractCommand removes facts and rules, or every fact of a predicate.
type RetractCommand struct{}

func (c *RetractCommand) Synopsis() string {
	return "remove facts and rules, or all facts of a predicate"
}

func (c *RetractCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, "(<fact> | <rule> | <predicate>[<arity>])+",
		"fact: a ground positive literal to remove",
		"rule: a rule to remove",
		"predicate[arity]: removes every fact of the predicate, e.g. edge[2]",
		"Removing a statement that is not present has no effect.")
}

func (c *RetractCommand) Run(cmd Command, in *Interpreter) error {
	if len(cmd.Arguments) == 0 {
		return executionErrorf("@%s needs at least one fact, rule or predicate", cmd.Name)
	}

	var facts []ast.Atom
	var rules []ast.Clause
	var preds []ast.PredicateSym
	for i, arg := range cmd.Arguments {
		switch a := arg.(type) {
		case LiteralArgument:
			fact, err := ExtractFact(cmd, i+1, "fact, rule or predicate")
			if err != nil {
				return err
			}
			facts = append(facts, fact)
		case RuleArgument:
			rules = append(rules, a.Rule)
		default:
			sym, ok := predicateOf(arg)
			if !ok {
				return argumentTypeError(i+1, "fact, rule or predicate[arity]", "fact, rule or predicate")
			}
			preds = append(preds, sym)
		}
	}

	kb := in.KnowledgeBase()
	removedFacts := kb.RemoveFacts(facts...)
	for _, sym := range preds {
		removedFacts += kb.RemoveFactsByPredicate(sym)
	}
	removedRules := kb.RemoveRules(rules...)

	p := in.Printer()
	p.Normal("Retracted ")
	p.Emphasis(fmt.Sprint(removedFacts))
	p.Normal(" fact(s) and ")
	p.Emphasis(fmt.Sprint(removedRules))
	p.Normal(" rule(s).\n")
	return nil
}
