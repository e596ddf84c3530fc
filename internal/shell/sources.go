package shell

import (
	"fmt"
	"strings"

	"kbshell/internal/mangle"
)

// AddSourceCommand binds an external data source to a predicate.
type AddSourceCommand struct{}

func (c *AddSourceCommand) Synopsis() string { return "declare an external data source for a predicate" }

func (c *AddSourceCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, "<predicate>[<arity>] : <source declaration>",
		"predicate[arity]: the predicate the source provides facts for, e.g. person[2]",
		"source declaration: one of "+strings.Join(mangle.SourceTypes(), ", ")+", e.g.",
		`  csv("people.csv"), tsv("people.tsv"), rdf("data.nt"),`,
		`  sqlite("people.db", "SELECT id, name FROM people")`,
		"Sources are read when the knowledge base is materialized with @reason.")
}

func (c *AddSourceCommand) Run(cmd Command, in *Interpreter) error {
	decl, err := sourceDeclaration(cmd, in, true)
	if err != nil {
		return err
	}
	p := in.Printer()
	if !in.KnowledgeBase().AddDataSource(decl) {
		p.Normal("Data source already declared: ")
		p.Code(describeSource(decl) + "\n")
		return nil
	}
	p.Normal("Added data source ")
	p.Code(describeSource(decl) + "\n")
	return nil
}

// sourceDeclaration builds the declaration of `@addsource p[n] : source .`
// and checks the arity contract of the source when checkArity is set. Source
// files resolve against the session's working directory when read.
func sourceDeclaration(cmd Command, in *Interpreter, checkArity bool) (mangle.DataSourceDeclaration, error) {
	if err := ValidateArgumentCount(cmd, 2); err != nil {
		return mangle.DataSourceDeclaration{}, err
	}
	sym, err := ExtractPredicate(cmd, 1, "predicate")
	if err != nil {
		return mangle.DataSourceDeclaration{}, err
	}
	lit, err := ExtractLiteral(cmd, 2, "source declaration")
	if err != nil {
		return mangle.DataSourceDeclaration{}, err
	}
	src, err := mangle.ParseDataSource(lit, in.FileAccess())
	if err != nil {
		return mangle.DataSourceDeclaration{}, wrapExecutionError(err, "invalid data source for %s", mangle.PredicateString(sym))
	}
	if !checkArity {
		return mangle.DataSourceDeclaration{Predicate: sym, Source: src}, nil
	}
	decl, err := mangle.NewDataSourceDeclaration(sym, src)
	if err != nil {
		return mangle.DataSourceDeclaration{}, wrapExecutionError(err, "arity mismatch")
	}
	return decl, nil
}

// DelSourceCommand removes one or all data sources of a predicate.
type DelSourceCommand struct{}

func (c *DelSourceCommand) Synopsis() string { return "remove data sources of a predicate" }

func (c *DelSourceCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, "<predicate>[<arity>] [: <source declaration>]",
		"predicate[arity]: the predicate whose sources are removed",
		"source declaration: if given, only this source is removed; otherwise all sources of the predicate are")
}

func (c *DelSourceCommand) Run(cmd Command, in *Interpreter) error {
	if err := ValidateArgumentCount(cmd, 1, 2); err != nil {
		return err
	}
	kb := in.KnowledgeBase()
	p := in.Printer()

	if len(cmd.Arguments) == 1 {
		sym, err := ExtractPredicate(cmd, 1, "predicate")
		if err != nil {
			return err
		}
		n := kb.RemoveDataSources(sym)
		p.Normal("Deleted ")
		p.Emphasis(fmt.Sprint(n))
		p.Normal(" data source(s) for " + mangle.PredicateString(sym) + ".\n")
		return nil
	}

	decl, err := sourceDeclaration(cmd, in, false)
	if err != nil {
		return err
	}
	if kb.RemoveDataSource(decl) == 0 {
		p.Normal("Data source not found: ")
		p.Code(describeSource(decl) + "\n")
		return nil
	}
	p.Normal("Deleted data source ")
	p.Code(describeSource(decl) + "\n")
	return nil
}

func describeSource(decl mangle.DataSourceDeclaration) string {
	return mangle.PredicateString(decl.Predicate) + " : " + decl.Source.Declaration().String()
}
