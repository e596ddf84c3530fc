package mangle

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/mangle/ast"
)

// Prefixes maps abbreviations to IRIs and holds an optional base IRI.
// It is used when printing answers: string constants that start with a
// registered IRI are shown in their abbreviated `prefix:local` form.
type Prefixes struct {
	base     string
	mappings map[string]string
}

// NewPrefixes returns an empty registry.
func NewPrefixes() *Prefixes {
	return &Prefixes{mappings: make(map[string]string)}
}

// Set installs a mapping, replacing any previous mapping of the same name.
func (p *Prefixes) Set(name, iri string) error {
	name = strings.TrimSuffix(strings.TrimSpace(name), ":")
	if strings.ContainsAny(name, " \t\n:<>\"") {
		return fmt.Errorf("invalid prefix name %q", name)
	}
	if iri == "" {
		return fmt.Errorf("prefix %q needs a non-empty IRI", name)
	}
	p.mappings[name] = iri
	return nil
}

// Remove deletes a mapping and reports whether it existed.
func (p *Prefixes) Remove(name string) bool {
	name = strings.TrimSuffix(strings.TrimSpace(name), ":")
	if _, ok := p.mappings[name]; !ok {
		return false
	}
	delete(p.mappings, name)
	return true
}

// Get returns the IRI registered for name.
func (p *Prefixes) Get(name string) (string, bool) {
	iri, ok := p.mappings[strings.TrimSuffix(name, ":")]
	return iri, ok
}

// SetBase sets the base IRI. An empty string clears it.
func (p *Prefixes) SetBase(iri string) {
	p.base = iri
}

// Base returns the base IRI, or "" when none is set.
func (p *Prefixes) Base() string {
	return p.base
}

// Names returns the registered prefix names in sorted order.
func (p *Prefixes) Names() []string {
	names := make([]string, 0, len(p.mappings))
	for name := range p.mappings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered prefixes, counting the base IRI.
func (p *Prefixes) Len() int {
	n := len(p.mappings)
	if p.base != "" {
		n++
	}
	return n
}

// Clear removes every mapping and the base IRI.
func (p *Prefixes) Clear() {
	p.base = ""
	p.mappings = make(map[string]string)
}

// Abbreviate shortens an IRI with the longest matching prefix. The base IRI
// is tried last and yields `<local>`.
func (p *Prefixes) Abbreviate(iri string) string {
	best, bestIRI := "", ""
	for name, prefixIRI := range p.mappings {
		if strings.HasPrefix(iri, prefixIRI) && len(prefixIRI) > len(bestIRI) {
			best, bestIRI = name, prefixIRI
		}
	}
	if bestIRI != "" {
		return best + ":" + strings.TrimPrefix(iri, bestIRI)
	}
	if p.base != "" && strings.HasPrefix(iri, p.base) {
		return "<" + strings.TrimPrefix(iri, p.base) + ">"
	}
	return ""
}

// FormatTerm renders a term, abbreviating string constants that hold IRIs.
func (p *Prefixes) FormatTerm(term ast.BaseTerm) string {
	if c, ok := term.(ast.Constant); ok && c.Type == ast.StringType && p != nil {
		if short := p.Abbreviate(c.Symbol); short != "" {
			return short
		}
	}
	return term.String()
}

// FormatLiteral renders a literal with prefix-aware arguments.
func (p *Prefixes) FormatLiteral(atom ast.Atom) string {
	args := make([]string, len(atom.Args))
	for i, arg := range atom.Args {
		args[i] = p.FormatTerm(arg)
	}
	return fmt.Sprintf("%s(%s)", atom.Predicate.Symbol, strings.Join(args, ", "))
}
