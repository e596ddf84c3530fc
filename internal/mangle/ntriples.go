package mangle

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/mangle/ast"
	"github.com/knakk/rdf"
)

const (
	xsdInteger = "http://www.w3.org/2001/XMLSchema#integer"
	xsdDecimal = "http://www.w3.org/2001/XMLSchema#decimal"
	xsdDouble  = "http://www.w3.org/2001/XMLSchema#double"
)

// Triple is one N-Triples statement. IRIs, blank nodes (`_:b0`) and literal
// lexical values are all represented as string constants; numeric literals
// typed as xsd:integer, xsd:decimal or xsd:double become numbers.
//
// A ternary fact has no slot for a language tag, so the tag of a tagged
// literal object is kept in Language and the object holds the lexical value.
type Triple struct {
	Subject   ast.BaseTerm
	Predicate ast.BaseTerm
	Object    ast.BaseTerm
	Language  string
}

// Atom returns the triple as a ternary fact of the given predicate.
func (t Triple) Atom(predicate string) ast.Atom {
	return ast.Atom{
		Predicate: ast.PredicateSym{Symbol: predicate, Arity: 3},
		Args:      []ast.BaseTerm{t.Subject, t.Predicate, t.Object},
	}
}

// IsBlankTerm reports whether a term stands for an RDF blank node.
func IsBlankTerm(term ast.BaseTerm) bool {
	c, ok := term.(ast.Constant)
	return ok && c.Type == ast.StringType && strings.HasPrefix(c.Symbol, "_:")
}

// ReadNTriples parses an N-Triples document.
func ReadNTriples(r io.Reader) ([]Triple, error) {
	dec := rdf.NewTripleDecoder(r, rdf.NTriples)
	var triples []Triple
	for {
		tr, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			return triples, nil
		}
		if err != nil {
			return nil, fmt.Errorf("statement %d: %w", len(triples)+1, err)
		}
		t := Triple{
			Subject:   rdfTerm(tr.Subj),
			Predicate: rdfTerm(tr.Pred),
			Object:    rdfTerm(tr.Obj),
		}
		if lit, ok := tr.Obj.(rdf.Literal); ok {
			t.Language = lit.Lang()
		}
		triples = append(triples, t)
	}
}

func rdfTerm(term rdf.Term) ast.BaseTerm {
	switch v := term.(type) {
	case rdf.Blank:
		return ast.String("_:" + strings.TrimPrefix(v.String(), "_:"))
	case rdf.Literal:
		return literalTerm(v)
	default:
		return ast.String(term.String())
	}
}

func literalTerm(lit rdf.Literal) ast.BaseTerm {
	value := lit.String()
	switch lit.DataType.String() {
	case xsdInteger:
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return ast.Number(n)
		}
	case xsdDecimal, xsdDouble:
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return ast.Float64(f)
		}
	}
	return ast.String(value)
}
