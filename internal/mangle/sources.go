package mangle

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/mangle/ast"
	_ "modernc.org/sqlite"
)

// DataSource is an external binding that produces facts for one predicate
// when the knowledge base is materialized.
type DataSource interface {
	// Declaration returns the literal the source was declared with.
	Declaration() ast.Atom
	// RequiredArity returns the arity the source produces, if fixed.
	RequiredArity() (int, bool)
	// Load reads the source and returns its facts for the given predicate.
	Load(ctx context.Context, sym ast.PredicateSym) ([]ast.Atom, error)
}

// DataSourceDeclaration binds a data source to a predicate.
type DataSourceDeclaration struct {
	Predicate ast.PredicateSym
	Source    DataSource
}

// NewDataSourceDeclaration checks the arity contract of the source before
// binding it to the predicate.
func NewDataSourceDeclaration(sym ast.PredicateSym, src DataSource) (DataSourceDeclaration, error) {
	if arity, ok := src.RequiredArity(); ok && arity != sym.Arity {
		return DataSourceDeclaration{}, fmt.Errorf("data source %s produces arity %d, but predicate %s has arity %d",
			src.Declaration(), arity, PredicateString(sym), sym.Arity)
	}
	return DataSourceDeclaration{Predicate: sym, Source: src}, nil
}

// Matches reports whether two declarations bind the same source to the same predicate.
func (d DataSourceDeclaration) Matches(other DataSourceDeclaration) bool {
	return d.Predicate == other.Predicate && d.Source.Declaration().String() == other.Source.Declaration().String()
}

// String renders the declaration as an addsource directive.
func (d DataSourceDeclaration) String() string {
	return fmt.Sprintf("@addsource %s : %s .", PredicateString(d.Predicate), d.Source.Declaration())
}

// FileAccess decides how data sources and exports reach files. Resolve maps
// a declared path to the one that is opened; Open and Create receive
// resolved paths. Nil fields fall back to the path as given and the os
// package.
type FileAccess struct {
	Resolve func(path string) string
	Open    func(path string) (io.ReadCloser, error)
	Create  func(path string) (io.WriteCloser, error)
}

func (fa FileAccess) resolve(path string) string {
	if fa.Resolve == nil {
		return path
	}
	return fa.Resolve(path)
}

func (fa FileAccess) open(path string) (io.ReadCloser, error) {
	if fa.Open == nil {
		return os.Open(fa.resolve(path))
	}
	return fa.Open(fa.resolve(path))
}

func (fa FileAccess) create(path string) (io.WriteCloser, error) {
	if fa.Create == nil {
		return os.Create(fa.resolve(path))
	}
	return fa.Create(fa.resolve(path))
}

// SourceFactory builds a data source from its declaration literal.
type SourceFactory func(decl ast.Atom, files FileAccess) (DataSource, error)

var (
	sourceFactoriesMu sync.RWMutex
	sourceFactories   = map[string]SourceFactory{
		"csv":    delimitedSourceFactory(','),
		"tsv":    delimitedSourceFactory('\t'),
		"rdf":    newRDFSource,
		"sqlite": newSQLiteSource,
	}
)

// RegisterSourceType installs or replaces a data source type.
func RegisterSourceType(name string, factory SourceFactory) {
	sourceFactoriesMu.Lock()
	defer sourceFactoriesMu.Unlock()
	sourceFactories[name] = factory
}

// SourceTypes lists the registered data source type names.
func SourceTypes() []string {
	sourceFactoriesMu.RLock()
	defer sourceFactoriesMu.RUnlock()
	names := make([]string, 0, len(sourceFactories))
	for name := range sourceFactories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ParseDataSource turns a declaration literal such as `csv("people.csv")`
// into a data source whose files are reached through files.
func ParseDataSource(decl ast.Atom, files FileAccess) (DataSource, error) {
	sourceFactoriesMu.RLock()
	factory, ok := sourceFactories[decl.Predicate.Symbol]
	sourceFactoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown data source type %q (supported: %s)",
			decl.Predicate.Symbol, strings.Join(SourceTypes(), ", "))
	}
	return factory(decl, files)
}

func stringArgs(decl ast.Atom, names ...string) ([]string, error) {
	if len(decl.Args) != len(names) {
		return nil, fmt.Errorf("%s expects %d argument(s) (%s), got %d",
			decl.Predicate.Symbol, len(names), strings.Join(names, ", "), len(decl.Args))
	}
	values := make([]string, len(names))
	for i, arg := range decl.Args {
		c, ok := arg.(ast.Constant)
		if !ok || c.Type != ast.StringType {
			return nil, fmt.Errorf("%s argument %d (%s) must be a string", decl.Predicate.Symbol, i+1, names[i])
		}
		values[i] = c.Symbol
	}
	return values, nil
}

// cellToTerm converts a text cell: names start with `/`, integers become
// numbers, everything else is a string.
func cellToTerm(cell string) ast.BaseTerm {
	if strings.HasPrefix(cell, "/") {
		if name, err := ast.Name(cell); err == nil {
			return name
		}
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return ast.Number(n)
	}
	return ast.String(cell)
}

type delimitedSource struct {
	decl  ast.Atom
	path  string
	comma rune
	files FileAccess
}

func delimitedSourceFactory(comma rune) SourceFactory {
	return func(decl ast.Atom, files FileAccess) (DataSource, error) {
		args, err := stringArgs(decl, "file")
		if err != nil {
			return nil, err
		}
		return &delimitedSource{decl: decl, path: args[0], comma: comma, files: files}, nil
	}
}

func (s *delimitedSource) Declaration() ast.Atom { return s.decl }

func (s *delimitedSource) RequiredArity() (int, bool) { return 0, false }

func (s *delimitedSource) Load(ctx context.Context, sym ast.PredicateSym) ([]ast.Atom, error) {
	f, err := s.files.open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = s.comma
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var atoms []ast.Atom
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
		if len(record) != sym.Arity {
			return nil, fmt.Errorf("%s row %d has %d field(s), predicate %s expects %d",
				s.path, row, len(record), PredicateString(sym), sym.Arity)
		}
		args := make([]ast.BaseTerm, len(record))
		for i, cell := range record {
			args[i] = cellToTerm(cell)
		}
		atoms = append(atoms, ast.Atom{Predicate: sym, Args: args})
	}
	return atoms, nil
}

type rdfSource struct {
	decl  ast.Atom
	path  string
	files FileAccess
}

func newRDFSource(decl ast.Atom, files FileAccess) (DataSource, error) {
	args, err := stringArgs(decl, "file")
	if err != nil {
		return nil, err
	}
	return &rdfSource{decl: decl, path: args[0], files: files}, nil
}

func (s *rdfSource) Declaration() ast.Atom { return s.decl }

func (s *rdfSource) RequiredArity() (int, bool) { return 3, true }

func (s *rdfSource) Load(ctx context.Context, sym ast.PredicateSym) ([]ast.Atom, error) {
	f, err := s.files.open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	triples, err := ReadNTriples(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	atoms := make([]ast.Atom, 0, len(triples))
	for _, t := range triples {
		atoms = append(atoms, t.Atom(sym.Symbol))
	}
	return atoms, ctx.Err()
}

// sqliteSource needs a real file for the driver, so only Resolve applies.
type sqliteSource struct {
	decl  ast.Atom
	path  string
	query string
}

func newSQLiteSource(decl ast.Atom, files FileAccess) (DataSource, error) {
	args, err := stringArgs(decl, "database", "query")
	if err != nil {
		return nil, err
	}
	return &sqliteSource{decl: decl, path: files.resolve(args[0]), query: args[1]}, nil
}

func (s *sqliteSource) Declaration() ast.Atom { return s.decl }

// RequiredArity is unknown until the query runs; Load checks the column count.
func (s *sqliteSource) RequiredArity() (int, bool) { return 0, false }

func (s *sqliteSource) Load(ctx context.Context, sym ast.PredicateSym) ([]ast.Atom, error) {
	if _, err := os.Stat(s.path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", s.path, err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.path, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if len(cols) != sym.Arity {
		return nil, fmt.Errorf("query on %s returns %d column(s), predicate %s expects %d",
			s.path, len(cols), PredicateString(sym), sym.Arity)
	}

	var atoms []ast.Atom
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row from %s: %w", s.path, err)
		}
		args := make([]ast.BaseTerm, len(values))
		for i, v := range values {
			args[i] = sqlValueToTerm(v)
		}
		atoms = append(atoms, ast.Atom{Predicate: sym, Args: args})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows from %s: %w", s.path, err)
	}
	return atoms, nil
}

func sqlValueToTerm(v any) ast.BaseTerm {
	switch val := v.(type) {
	case nil:
		return ast.String("")
	case int64:
		return ast.Number(val)
	case float64:
		return ast.Float64(val)
	case bool:
		if val {
			return ast.TrueConstant
		}
		return ast.FalseConstant
	case []byte:
		return cellToTerm(string(val))
	case string:
		return cellToTerm(val)
	default:
		return ast.String(fmt.Sprintf("%v", val))
	}
}
