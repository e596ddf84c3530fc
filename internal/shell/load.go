package shell

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/mangle/ast"

	"kbshell/internal/mangle"
)

const (
	loadRules = "RULES"
	loadOWL   = "OWL"
	loadRDF   = "RDF"

	defaultTriplePredicate = "triple"
)

// LoadCommand imports facts and rules from a file.
type LoadCommand struct{}

func (c *LoadCommand) Synopsis() string { return "load facts and rules from a rule file, RDF or OWL" }

func (c *LoadCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, `[RULES|OWL|RDF] "<file>" [<predicate>]`,
		"RULES (default): a rule file; lines starting with @setprefix, @addsource or @base are directives",
		"RDF: an N-Triples file; each triple becomes a fact of the given predicate (default: triple)",
		"OWL: an ontology, converted by the configured ontology converter",
		"Reports how many facts and rules were new.")
}

// directive is a validated rule-file directive waiting to be applied.
type directive func(kb *mangle.KnowledgeBase)

type loadResult struct {
	facts      []ast.Atom
	rules      []ast.Clause
	directives []directive
}

func (c *LoadCommand) Run(cmd Command, in *Interpreter) error {
	if len(cmd.Arguments) == 0 {
		return executionErrorf("@%s needs a file", cmd.Name)
	}
	task, pos := loadRules, 1
	if t, ok := cmd.Arguments[0].(TermArgument); ok {
		task, pos = strings.ToUpper(t.Text), 2
		if task != loadRules && task != loadOWL && task != loadRDF {
			return executionErrorf("unknown load task %q; expected %s, %s or %s", t.Text, loadRules, loadOWL, loadRDF)
		}
	}

	predicate := defaultTriplePredicate
	if task == loadRDF {
		if err := ValidateArgumentCount(cmd, pos, pos+1); err != nil {
			return err
		}
		if len(cmd.Arguments) == pos+1 {
			name, err := ExtractName(cmd, pos+1, "predicate")
			if err != nil {
				name, err = ExtractString(cmd, pos+1, "predicate")
				if err != nil {
					return argumentTypeError(pos+1, "name", "predicate")
				}
			}
			predicate = name
		}
	} else if err := ValidateArgumentCount(cmd, pos); err != nil {
		return err
	}
	path, err := ExtractString(cmd, pos, "file")
	if err != nil {
		return err
	}
	if task == loadOWL && in.OntologyConverter() == nil {
		return executionErrorf("@%s %s needs an ontology converter, but none is configured", cmd.Name, loadOWL)
	}

	r, err := in.OpenInput(path)
	if err != nil {
		return wrapExecutionError(err, "failed to open %s", path)
	}
	defer r.Close()

	var result loadResult
	switch task {
	case loadRules:
		result, err = readRuleFile(r, in)
	case loadRDF:
		result, err = readTriples(r, predicate)
	case loadOWL:
		var prog mangle.Program
		prog, err = in.OntologyConverter().ConvertOntology(r)
		result = loadResult{facts: prog.Facts, rules: prog.Rules}
	}
	if err != nil {
		return wrapExecutionError(err, "failed to load %s", path)
	}

	kb := in.KnowledgeBase()
	for _, d := range result.directives {
		d(kb)
	}
	newFacts, err := kb.AddFacts(result.facts...)
	if err != nil {
		return wrapExecutionError(err, "failed to load %s", path)
	}
	newRules := kb.AddRules(result.rules...)

	p := in.Printer()
	p.Normal("Loaded ")
	p.Emphasis(fmt.Sprint(newFacts))
	p.Normal(" new fact(s) and ")
	p.Emphasis(fmt.Sprint(newRules))
	p.Normal(" new rule(s) from ")
	p.Code(path)
	p.Normal(".\n")
	return nil
}

// readRuleFile splits a rule file into directive commands and Mangle source.
// Directive lines are blanked in the source so parse errors keep their line
// numbers.
func readRuleFile(r io.Reader, in *Interpreter) (loadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return loadResult{}, err
	}

	var source []string
	var pending []string
	var directives []directive
	flush := func() error {
		cmd, err := ParseCommand(strings.Join(pending, "\n"))
		if err != nil {
			return err
		}
		pending = nil
		d, err := ruleFileDirective(cmd, in)
		if err != nil {
			return err
		}
		directives = append(directives, d)
		return nil
	}

	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if len(pending) == 0 && !strings.HasPrefix(trimmed, "@") {
			source = append(source, line)
			continue
		}
		pending = append(pending, line)
		source = append(source, "")
		if _, err := ParseScript(strings.Join(pending, "\n")); err == nil {
			if err := flush(); err != nil {
				return loadResult{}, err
			}
		}
	}
	if len(pending) > 0 {
		if err := flush(); err != nil {
			return loadResult{}, err
		}
	}

	prog, err := mangle.ParseProgram(strings.Join(source, "\n"))
	if err != nil {
		return loadResult{}, err
	}
	return loadResult{facts: prog.Facts, rules: prog.Rules, directives: directives}, nil
}

func ruleFileDirective(cmd Command, in *Interpreter) (directive, error) {
	switch cmd.Name {
	case "setprefix":
		name, iri, err := prefixArguments(cmd)
		if err != nil {
			return nil, err
		}
		if err := mangle.NewPrefixes().Set(name, iri); err != nil {
			return nil, err
		}
		return func(kb *mangle.KnowledgeBase) { kb.SetPrefix(name, iri) }, nil
	case "base":
		if err := ValidateArgumentCount(cmd, 1); err != nil {
			return nil, err
		}
		iri, err := ExtractIRI(cmd, 1, "IRI")
		if err != nil {
			return nil, err
		}
		return func(kb *mangle.KnowledgeBase) { kb.Prefixes().SetBase(iri) }, nil
	case "addsource":
		decl, err := sourceDeclaration(cmd, in, true)
		if err != nil {
			return nil, err
		}
		return func(kb *mangle.KnowledgeBase) { kb.AddDataSource(decl) }, nil
	default:
		return nil, executionErrorf("@%s is not allowed in rule files", cmd.Name)
	}
}

func readTriples(r io.Reader, predicate string) (loadResult, error) {
	triples, err := mangle.ReadNTriples(r)
	if err != nil {
		return loadResult{}, err
	}
	facts := make([]ast.Atom, len(triples))
	for i, t := range triples {
		facts[i] = t.Atom(predicate)
	}
	return loadResult{facts: facts}, nil
}
