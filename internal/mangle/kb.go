package mangle

import (
	"fmt"

	"github.com/google/mangle/ast"
	"go.uber.org/zap"
)

// ChangeKind distinguishes growing from shrinking edits of a knowledge base.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeRemoved
)

func (k ChangeKind) String() string {
	if k == ChangeRemoved {
		return "removed"
	}
	return "added"
}

// Change describes one edit of a knowledge base partition.
type Change struct {
	Kind      ChangeKind
	Partition string
	Count     int
}

// Listener is notified after every edit that changed the statements or data
// sources of a knowledge base.
type Listener interface {
	KnowledgeBaseChanged(change Change)
}

// Partition names used in Change notifications.
const (
	PartitionFacts       = "facts"
	PartitionRules       = "rules"
	PartitionDataSources = "datasources"
)

// KnowledgeBase holds the facts, rules, data source declarations and prefix
// registry of a session. Statements keep their insertion order and adding an
// identical statement twice is a no-op. A KnowledgeBase is not safe for
// concurrent use.
type KnowledgeBase struct {
	facts    []ast.Atom
	factSet  map[string]bool
	rules    []ast.Clause
	ruleSet  map[string]bool
	sources  []DataSourceDeclaration
	prefixes *Prefixes

	listeners []Listener
	logger    *zap.Logger
}

// KnowledgeBaseOption configures a KnowledgeBase.
type KnowledgeBaseOption func(*KnowledgeBase)

// WithKnowledgeBaseLogger logs every change at debug level.
func WithKnowledgeBaseLogger(logger *zap.Logger) KnowledgeBaseOption {
	return func(kb *KnowledgeBase) {
		if logger != nil {
			kb.logger = logger
		}
	}
}

// NewKnowledgeBase returns an empty knowledge base.
func NewKnowledgeBase(opts ...KnowledgeBaseOption) *KnowledgeBase {
	kb := &KnowledgeBase{
		factSet:  make(map[string]bool),
		ruleSet:  make(map[string]bool),
		prefixes: NewPrefixes(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(kb)
	}
	return kb
}

// AddListener registers l for change notifications.
func (kb *KnowledgeBase) AddListener(l Listener) {
	kb.listeners = append(kb.listeners, l)
}

// RemoveListener unregisters l.
func (kb *KnowledgeBase) RemoveListener(l Listener) {
	for i, existing := range kb.listeners {
		if existing == l {
			kb.listeners = append(kb.listeners[:i], kb.listeners[i+1:]...)
			return
		}
	}
}

func (kb *KnowledgeBase) notify(kind ChangeKind, partition string, count int) {
	if count == 0 {
		return
	}
	change := Change{Kind: kind, Partition: partition, Count: count}
	kb.logger.Debug("knowledge base changed",
		zap.Stringer("kind", kind),
		zap.String("partition", partition),
		zap.Int("count", count))
	for _, l := range kb.listeners {
		l.KnowledgeBaseChanged(change)
	}
}

// AddFacts appends ground atoms and returns how many were new. Every atom is
// validated before any is added.
func (kb *KnowledgeBase) AddFacts(facts ...ast.Atom) (int, error) {
	for _, f := range facts {
		if !IsGround(f) {
			return 0, fmt.Errorf("%s is not a fact: it contains variables", f)
		}
	}
	added := 0
	for _, f := range facts {
		key := factKey(f)
		if kb.factSet[key] {
			continue
		}
		kb.factSet[key] = true
		kb.facts = append(kb.facts, f)
		added++
	}
	kb.notify(ChangeAdded, PartitionFacts, added)
	return added, nil
}

// AddRules appends rules and returns how many were new.
func (kb *KnowledgeBase) AddRules(rules ...ast.Clause) int {
	added := 0
	for _, r := range rules {
		key := ruleKey(r)
		if kb.ruleSet[key] {
			continue
		}
		kb.ruleSet[key] = true
		kb.rules = append(kb.rules, r)
		added++
	}
	kb.notify(ChangeAdded, PartitionRules, added)
	return added
}

// RemoveFacts removes the given facts and returns how many were present.
func (kb *KnowledgeBase) RemoveFacts(facts ...ast.Atom) int {
	doomed := make(map[string]bool, len(facts))
	for _, f := range facts {
		if key := factKey(f); kb.factSet[key] {
			doomed[key] = true
		}
	}
	removed := kb.filterFacts(func(f ast.Atom) bool { return doomed[factKey(f)] })
	kb.notify(ChangeRemoved, PartitionFacts, removed)
	return removed
}

// RemoveFactsByPredicate removes every fact of the predicate regardless of
// its arguments.
func (kb *KnowledgeBase) RemoveFactsByPredicate(sym ast.PredicateSym) int {
	removed := kb.filterFacts(func(f ast.Atom) bool { return f.Predicate == sym })
	kb.notify(ChangeRemoved, PartitionFacts, removed)
	return removed
}

func (kb *KnowledgeBase) filterFacts(drop func(ast.Atom) bool) int {
	kept := kb.facts[:0]
	removed := 0
	for _, f := range kb.facts {
		if drop(f) {
			delete(kb.factSet, factKey(f))
			removed++
			continue
		}
		kept = append(kept, f)
	}
	kb.facts = kept
	return removed
}

// RemoveRules removes the given rules and returns how many were present.
func (kb *KnowledgeBase) RemoveRules(rules ...ast.Clause) int {
	doomed := make(map[string]bool, len(rules))
	for _, r := range rules {
		if key := ruleKey(r); kb.ruleSet[key] {
			doomed[key] = true
		}
	}
	kept := kb.rules[:0]
	removed := 0
	for _, r := range kb.rules {
		key := ruleKey(r)
		if doomed[key] {
			delete(kb.ruleSet, key)
			removed++
			continue
		}
		kept = append(kept, r)
	}
	kb.rules = kept
	kb.notify(ChangeRemoved, PartitionRules, removed)
	return removed
}

// AddDataSource registers a declaration unless an identical one exists.
func (kb *KnowledgeBase) AddDataSource(decl DataSourceDeclaration) bool {
	for _, existing := range kb.sources {
		if existing.Matches(decl) {
			return false
		}
	}
	kb.sources = append(kb.sources, decl)
	kb.notify(ChangeAdded, PartitionDataSources, 1)
	return true
}

// RemoveDataSource removes a matching declaration and returns how many were removed.
func (kb *KnowledgeBase) RemoveDataSource(decl DataSourceDeclaration) int {
	return kb.filterSources(func(d DataSourceDeclaration) bool { return d.Matches(decl) })
}

// RemoveDataSources removes every declaration bound to the predicate.
func (kb *KnowledgeBase) RemoveDataSources(sym ast.PredicateSym) int {
	return kb.filterSources(func(d DataSourceDeclaration) bool { return d.Predicate == sym })
}

func (kb *KnowledgeBase) filterSources(drop func(DataSourceDeclaration) bool) int {
	kept := kb.sources[:0]
	removed := 0
	for _, d := range kb.sources {
		if drop(d) {
			removed++
			continue
		}
		kept = append(kept, d)
	}
	kb.sources = kept
	kb.notify(ChangeRemoved, PartitionDataSources, removed)
	return removed
}

// SetPrefix installs a prefix, replacing any earlier mapping of that name.
func (kb *KnowledgeBase) SetPrefix(name, iri string) error {
	kb.prefixes.Remove(name)
	if err := kb.prefixes.Set(name, iri); err != nil {
		return err
	}
	kb.logger.Debug("prefix set", zap.String("name", name), zap.String("iri", iri))
	return nil
}

// Facts returns a copy of the fact partition.
func (kb *KnowledgeBase) Facts() []ast.Atom {
	return append([]ast.Atom(nil), kb.facts...)
}

// Rules returns a copy of the rule partition.
func (kb *KnowledgeBase) Rules() []ast.Clause {
	return append([]ast.Clause(nil), kb.rules...)
}

// DataSources returns a copy of the data source declarations.
func (kb *KnowledgeBase) DataSources() []DataSourceDeclaration {
	return append([]DataSourceDeclaration(nil), kb.sources...)
}

// Prefixes returns the live prefix registry.
func (kb *KnowledgeBase) Prefixes() *Prefixes {
	return kb.prefixes
}

// HasNegation reports whether any rule uses a negated body literal.
func (kb *KnowledgeBase) HasNegation() bool {
	for _, r := range kb.rules {
		if HasNegation(r) {
			return true
		}
	}
	return false
}

// ClearFacts empties the fact partition and returns how many facts it held.
func (kb *KnowledgeBase) ClearFacts() int {
	n := len(kb.facts)
	kb.facts = nil
	kb.factSet = make(map[string]bool)
	kb.notify(ChangeRemoved, PartitionFacts, n)
	return n
}

// ClearRules empties the rule partition.
func (kb *KnowledgeBase) ClearRules() int {
	n := len(kb.rules)
	kb.rules = nil
	kb.ruleSet = make(map[string]bool)
	kb.notify(ChangeRemoved, PartitionRules, n)
	return n
}

// ClearDataSources removes every data source declaration.
func (kb *KnowledgeBase) ClearDataSources() int {
	n := len(kb.sources)
	kb.sources = nil
	kb.notify(ChangeRemoved, PartitionDataSources, n)
	return n
}

// ClearPrefixes removes every prefix and the base IRI.
func (kb *KnowledgeBase) ClearPrefixes() int {
	n := kb.prefixes.Len()
	kb.prefixes.Clear()
	if n > 0 {
		kb.logger.Debug("prefixes cleared", zap.Int("count", n))
	}
	return n
}
