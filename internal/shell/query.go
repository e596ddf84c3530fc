package shell

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/mangle/ast"

	"kbshell/internal/mangle"
)

const (
	keywordCount     = "COUNT"
	keywordLimit     = "LIMIT"
	keywordExportCSV = "EXPORTCSV"
)

// QueryCommand answers, counts or exports the answers of a query literal.
type QueryCommand struct{}

func (c *QueryCommand) Synopsis() string { return "print, count or export the answers of a query" }

func (c *QueryCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, `[COUNT] <query literal> [LIMIT <limit>] [EXPORTCSV "<file>"]`,
		"query literal: a positive literal, e.g. reach(/a, X)",
		"COUNT: print the number of answers instead of the answers",
		"LIMIT: print at most this many answers",
		"EXPORTCSV: write the answers to a CSV file instead of printing them",
		"COUNT cannot be combined with LIMIT or EXPORTCSV, nor LIMIT with EXPORTCSV.",
		"A query without variables prints true or false.")
}

type queryRequest struct {
	count      bool
	query      ast.Atom
	limit      int
	exportPath string
}

// parseQuery validates the whole argument list before anything runs.
func parseQuery(cmd Command) (queryRequest, error) {
	req := queryRequest{limit: -1}
	pos := 1
	if len(cmd.Arguments) > 0 {
		if t, ok := cmd.Arguments[0].(TermArgument); ok && strings.EqualFold(t.Text, keywordCount) {
			req.count = true
			pos++
		}
	}
	query, err := ExtractLiteral(cmd, pos, "query literal")
	if err != nil {
		return queryRequest{}, err
	}
	req.query = query
	pos++

	seen := make(map[string]bool)
	for pos <= len(cmd.Arguments) {
		keyword, err := ExtractName(cmd, pos, "LIMIT or EXPORTCSV")
		if err != nil {
			return queryRequest{}, err
		}
		keyword = strings.ToUpper(keyword)
		if seen[keyword] {
			return queryRequest{}, executionErrorf("%s may be given only once", keyword)
		}
		seen[keyword] = true

		switch keyword {
		case keywordLimit:
			n, err := ExtractInteger(cmd, pos+1, "limit")
			if err != nil {
				return queryRequest{}, err
			}
			req.limit = n
		case keywordExportCSV:
			path, err := ExtractString(cmd, pos+1, "file")
			if err != nil {
				return queryRequest{}, err
			}
			req.exportPath = path
		default:
			return queryRequest{}, executionErrorf("unknown query modifier %q; expected %s or %s",
				keyword, keywordLimit, keywordExportCSV)
		}
		pos += 2
	}

	switch {
	case req.count && seen[keywordLimit]:
		return queryRequest{}, executionErrorf("%s and %s cannot be combined", keywordCount, keywordLimit)
	case req.count && seen[keywordExportCSV]:
		return queryRequest{}, executionErrorf("%s and %s cannot be combined", keywordCount, keywordExportCSV)
	case seen[keywordLimit] && seen[keywordExportCSV]:
		return queryRequest{}, executionErrorf("%s and %s cannot be combined", keywordLimit, keywordExportCSV)
	}
	return req, nil
}

func (c *QueryCommand) Run(cmd Command, in *Interpreter) error {
	req, err := parseQuery(cmd)
	if err != nil {
		return err
	}
	switch {
	case req.count:
		return c.count(req, in)
	case req.exportPath != "":
		return c.export(req, in)
	default:
		return c.print(req, in)
	}
}

func (c *QueryCommand) count(req queryRequest, in *Interpreter) error {
	start := time.Now()
	result, err := in.Reasoner().CountAnswers(req.query)
	if err != nil {
		return wrapExecutionError(err, "failed to count answers of %s", req.query)
	}
	p := in.Printer()
	p.Emphasis(fmt.Sprintf("%d\n", result.Count))
	p.Normal(fmt.Sprintf("Answers counted in %d ms.", time.Since(start).Milliseconds()))
	printCorrectness(p, result.Correctness)
	return nil
}

func (c *QueryCommand) export(req queryRequest, in *Interpreter) error {
	path := in.ResolvePath(req.exportPath)
	start := time.Now()
	correctness, err := in.Reasoner().ExportAnswersToCSV(req.query, req.exportPath, true)
	if err != nil {
		return wrapExecutionError(err, "failed to export answers of %s", req.query)
	}
	p := in.Printer()
	p.Normal("Written answers to ")
	p.Code(path)
	p.Normal(fmt.Sprintf(" in %d ms.", time.Since(start).Milliseconds()))
	printCorrectness(p, correctness)
	return nil
}

func (c *QueryCommand) print(req queryRequest, in *Interpreter) error {
	start := time.Now()
	it, err := in.Reasoner().AnswerQuery(req.query, true)
	if err != nil {
		return wrapExecutionError(err, "failed to answer %s", req.query)
	}
	defer it.Close()

	p := in.Printer()
	prefixes := in.KnowledgeBase().Prefixes()
	printed := 0
	if len(mangle.OutputVariables(req.query)) == 0 {
		if it.Next() {
			printed = 1
			p.Emphasis("true\n")
		} else {
			p.Emphasis("false\n")
		}
	} else {
		for (req.limit < 0 || printed < req.limit) && it.Next() {
			p.Normal(prefixes.FormatLiteral(it.Answer()) + "\n")
			printed++
		}
	}

	p.Normal(fmt.Sprintf("%d result(s) in %d ms.", printed, time.Since(start).Milliseconds()))
	printCorrectness(p, it.Correctness())
	return nil
}
