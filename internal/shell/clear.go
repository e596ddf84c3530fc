package shell

import (
	"fmt"
	"strings"
)

// Scopes accepted by @clear.
const (
	clearAll         = "ALL"
	clearInferences  = "INF"
	clearFacts       = "FACTS"
	clearRules       = "RULES"
	clearDataSources = "DATASOURCES"
	clearPrefixes    = "PREFIXES"
)

var clearScopes = []string{clearAll, clearInferences, clearFacts, clearRules, clearDataSources, clearPrefixes}

// ClearCommand resets one part of the session.
type ClearCommand struct{}

func (c *ClearCommand) Synopsis() string { return "discard all or parts of the knowledge base or inferences" }

func (c *ClearCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, strings.Join(clearScopes, "|"),
		"ALL: start over with an empty knowledge base and reasoner",
		"INF: discard inferences, keep the knowledge base",
		"FACTS, RULES, DATASOURCES, PREFIXES: empty one part of the knowledge base",
		"Clearing a part of the knowledge base does not recompute inferences; use @reason.")
}

func (c *ClearCommand) Run(cmd Command, in *Interpreter) error {
	if err := ValidateArgumentCount(cmd, 1); err != nil {
		return err
	}
	scope, err := ExtractName(cmd, 1, "scope")
	if err != nil {
		return err
	}

	kb := in.KnowledgeBase()
	p := in.Printer()
	switch strings.ToUpper(scope) {
	case clearAll:
		if err := in.Reset(); err != nil {
			return err
		}
		p.Normal("Knowledge base and inferences cleared.\n")
	case clearInferences:
		if err := in.Reasoner().ResetMaterialization(); err != nil {
			return wrapExecutionError(err, "failed to discard inferences")
		}
		p.Normal("Inferences cleared; the knowledge base is unchanged.\n")
	case clearFacts:
		p.Normal(fmt.Sprintf("Cleared %d fact(s).\n", kb.ClearFacts()))
	case clearRules:
		p.Normal(fmt.Sprintf("Cleared %d rule(s).\n", kb.ClearRules()))
	case clearDataSources:
		p.Normal(fmt.Sprintf("Cleared %d data source(s).\n", kb.ClearDataSources()))
	case clearPrefixes:
		p.Normal(fmt.Sprintf("Cleared %d prefix declaration(s).\n", kb.ClearPrefixes()))
	default:
		return executionErrorf("unknown scope %q for @%s; supported scopes are %s",
			scope, cmd.Name, strings.Join(clearScopes, ", "))
	}
	return nil
}
