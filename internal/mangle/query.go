package mangle

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/google/mangle/ast"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AnswerIterator streams the answers of a query. Callers must Close it on
// every path; Close is idempotent.
type AnswerIterator interface {
	Next() bool
	Answer() ast.Atom
	Correctness() Correctness
	Close() error
}

// QueryAnswerCount is the result of counting the answers of a query.
type QueryAnswerCount struct {
	Count       int64
	Correctness Correctness
}

type answerIterator struct {
	answers     []ast.Atom
	pos         int
	correctness Correctness
	release     func()
}

func (it *answerIterator) Next() bool {
	if it.release == nil || it.pos >= len(it.answers) {
		return false
	}
	it.pos++
	return true
}

func (it *answerIterator) Answer() ast.Atom {
	if it.pos == 0 || it.pos > len(it.answers) {
		return ast.Atom{}
	}
	return it.answers[it.pos-1]
}

func (it *answerIterator) Correctness() Correctness {
	return it.correctness
}

func (it *answerIterator) Close() error {
	if it.release != nil {
		it.release()
		it.release = nil
	}
	return nil
}

// matches reports whether fact is an instance of query. Repeated variables
// must bind to the same constant; `_` matches anything.
func matches(query, fact ast.Atom) bool {
	if query.Predicate != fact.Predicate || len(query.Args) != len(fact.Args) {
		return false
	}
	bound := make(map[string]string)
	for i, arg := range query.Args {
		value := fact.Args[i].String()
		if v, ok := arg.(ast.Variable); ok {
			if v.Symbol == "_" {
				continue
			}
			if prev, seen := bound[v.Symbol]; seen && prev != value {
				return false
			}
			bound[v.Symbol] = value
			continue
		}
		if arg.String() != value {
			return false
		}
	}
	return true
}

func hasBlank(atom ast.Atom) bool {
	for _, arg := range atom.Args {
		if IsBlankTerm(arg) {
			return true
		}
	}
	return false
}

func (r *Reasoner) answers(query ast.Atom, includeBlanks bool) ([]ast.Atom, error) {
	if r.closed {
		return nil, ErrReasonerClosed
	}
	candidates, err := r.factsOf(query.Predicate)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", query, err)
	}
	var out []ast.Atom
	for _, f := range candidates {
		if !matches(query, f) {
			continue
		}
		if !includeBlanks && hasBlank(f) {
			continue
		}
		out = append(out, f)
	}
	return out, nil
}

// AnswerQuery returns an iterator over the facts of the current state that
// are instances of query.
func (r *Reasoner) AnswerQuery(query ast.Atom, includeBlanks bool) (AnswerIterator, error) {
	answers, err := r.answers(query, includeBlanks)
	if err != nil {
		return nil, err
	}
	r.openIterators++
	r.log(zapcore.DebugLevel, "answering query", zap.Stringer("query", query), zap.Int("answers", len(answers)))
	return &answerIterator{
		answers:     answers,
		correctness: r.Correctness(),
		release:     func() { r.openIterators-- },
	}, nil
}

// CountAnswers counts the answers of query, blank nodes included.
func (r *Reasoner) CountAnswers(query ast.Atom) (QueryAnswerCount, error) {
	answers, err := r.answers(query, true)
	if err != nil {
		return QueryAnswerCount{}, err
	}
	return QueryAnswerCount{Count: int64(len(answers)), Correctness: r.Correctness()}, nil
}

// ExportAnswersToCSV writes one CSV row per answer of query to path, created
// through the reasoner's FileAccess.
func (r *Reasoner) ExportAnswersToCSV(query ast.Atom, path string, includeBlanks bool) (Correctness, error) {
	answers, err := r.answers(query, includeBlanks)
	if err != nil {
		return Incorrect, err
	}

	f, err := r.files.create(path)
	if err != nil {
		return Incorrect, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	for _, a := range answers {
		row := make([]string, len(a.Args))
		for i, arg := range a.Args {
			row[i] = csvValue(arg)
		}
		if err := w.Write(row); err != nil {
			return Incorrect, fmt.Errorf("write %s: %w", path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return Incorrect, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return Incorrect, fmt.Errorf("close %s: %w", path, err)
	}
	return r.Correctness(), nil
}

func csvValue(term ast.BaseTerm) string {
	if c, ok := term.(ast.Constant); ok && (c.Type == ast.StringType || c.Type == ast.NameType) {
		return c.Symbol
	}
	return term.String()
}

// DumpInferences writes every fact of the current state, ordered by
// predicate, one statement per line.
func (r *Reasoner) DumpInferences(w io.Writer) (Correctness, error) {
	if r.closed {
		return Incorrect, ErrReasonerClosed
	}
	bw := bufio.NewWriter(w)
	for _, sym := range r.predicates() {
		facts, err := r.factsOf(sym)
		if err != nil {
			return Incorrect, err
		}
		for _, f := range facts {
			if _, err := fmt.Fprintln(bw, FactString(f)); err != nil {
				return Incorrect, err
			}
		}
	}
	if err := bw.Flush(); err != nil {
		return Incorrect, err
	}
	return r.Correctness(), nil
}
