package mangle

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/mangle/ast"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func mustFact(t *testing.T, text string) ast.Atom {
	t.Helper()
	f, err := ParseFact(text)
	if err != nil {
		t.Fatalf("ParseFact(%q) error = %v", text, err)
	}
	return f
}

func mustRule(t *testing.T, text string) ast.Clause {
	t.Helper()
	r, err := ParseRule(text)
	if err != nil {
		t.Fatalf("ParseRule(%q) error = %v", text, err)
	}
	return r
}

type recordingListener struct {
	changes []Change
}

func (l *recordingListener) KnowledgeBaseChanged(c Change) {
	l.changes = append(l.changes, c)
}

func TestKnowledgeBaseAddFactsDeduplicates(t *testing.T) {
	kb := NewKnowledgeBase()
	added, err := kb.AddFacts(mustFact(t, "p(/a)"), mustFact(t, "p(/a)"), mustFact(t, "p(/b)"))
	if err != nil {
		t.Fatalf("AddFacts() error = %v", err)
	}
	if added != 2 {
		t.Errorf("AddFacts() added = %d, want 2", added)
	}
	added, _ = kb.AddFacts(mustFact(t, "p(/a)"))
	if added != 0 {
		t.Errorf("re-adding a fact added = %d, want 0", added)
	}
	if got := len(kb.Facts()); got != 2 {
		t.Errorf("len(Facts()) = %d, want 2", got)
	}
}

func TestKnowledgeBaseAddFactsRejectsNonGroundAtomically(t *testing.T) {
	kb := NewKnowledgeBase()
	open, err := ParseLiteral("p(X)")
	if err != nil {
		t.Fatalf("ParseLiteral() error = %v", err)
	}
	if _, err := kb.AddFacts(mustFact(t, "p(/a)"), open); err == nil {
		t.Fatal("AddFacts() with a variable should fail")
	}
	if got := len(kb.Facts()); got != 0 {
		t.Errorf("failed AddFacts() left %d facts, want 0", got)
	}
}

func TestKnowledgeBaseRemoveIsIdempotent(t *testing.T) {
	kb := NewKnowledgeBase()
	fact := mustFact(t, "p(/a)")
	rule := mustRule(t, "q(X) :- p(X)")
	kb.AddFacts(fact)
	kb.AddRules(rule)

	if n := kb.RemoveFacts(fact); n != 1 {
		t.Errorf("RemoveFacts() = %d, want 1", n)
	}
	if n := kb.RemoveFacts(fact); n != 0 {
		t.Errorf("second RemoveFacts() = %d, want 0", n)
	}
	if n := kb.RemoveRules(rule); n != 1 {
		t.Errorf("RemoveRules() = %d, want 1", n)
	}
	if n := kb.RemoveRules(rule); n != 0 {
		t.Errorf("second RemoveRules() = %d, want 0", n)
	}
}

func TestKnowledgeBaseRemoveFactsByPredicate(t *testing.T) {
	kb := NewKnowledgeBase()
	kb.AddFacts(mustFact(t, "p(/a)"), mustFact(t, "p(/b)"), mustFact(t, "q(/a)"))

	n := kb.RemoveFactsByPredicate(ast.PredicateSym{Symbol: "p", Arity: 1})
	if n != 2 {
		t.Errorf("RemoveFactsByPredicate() = %d, want 2", n)
	}
	facts := kb.Facts()
	if len(facts) != 1 || facts[0].Predicate.Symbol != "q" {
		t.Errorf("remaining facts = %v, want [q(/a)]", facts)
	}
	if n := kb.RemoveFactsByPredicate(ast.PredicateSym{Symbol: "p", Arity: 2}); n != 0 {
		t.Errorf("RemoveFactsByPredicate() for a different arity = %d, want 0", n)
	}
}

func TestKnowledgeBaseListener(t *testing.T) {
	kb := NewKnowledgeBase()
	l := &recordingListener{}
	kb.AddListener(l)

	kb.AddFacts(mustFact(t, "p(/a)"))
	kb.AddFacts(mustFact(t, "p(/a)"))
	kb.RemoveFacts(mustFact(t, "p(/a)"))
	kb.RemoveListener(l)
	kb.AddFacts(mustFact(t, "p(/b)"))

	if len(l.changes) != 2 {
		t.Fatalf("got %d notifications, want 2: %+v", len(l.changes), l.changes)
	}
	if l.changes[0].Kind != ChangeAdded || l.changes[1].Kind != ChangeRemoved {
		t.Errorf("unexpected change kinds: %+v", l.changes)
	}
}

func TestKnowledgeBaseSetPrefixOverwrites(t *testing.T) {
	kb := NewKnowledgeBase()
	if err := kb.SetPrefix("ex", "http://example.org/"); err != nil {
		t.Fatalf("SetPrefix() error = %v", err)
	}
	if err := kb.SetPrefix("ex:", "http://example.com/"); err != nil {
		t.Fatalf("SetPrefix() error = %v", err)
	}
	iri, ok := kb.Prefixes().Get("ex")
	if !ok || iri != "http://example.com/" {
		t.Errorf("Get(ex) = %q, %v; want http://example.com/", iri, ok)
	}
	if kb.Prefixes().Len() != 1 {
		t.Errorf("Len() = %d, want 1", kb.Prefixes().Len())
	}
}

func TestKnowledgeBaseClearPartitions(t *testing.T) {
	kb := NewKnowledgeBase()
	kb.AddFacts(mustFact(t, "p(/a)"))
	kb.AddRules(mustRule(t, "q(X) :- p(X)"))
	kb.SetPrefix("ex", "http://example.org/")
	src, err := ParseDataSource(mustFact(t, `csv("people.csv")`), FileAccess{})
	if err != nil {
		t.Fatalf("ParseDataSource() error = %v", err)
	}
	decl, err := NewDataSourceDeclaration(ast.PredicateSym{Symbol: "person", Arity: 2}, src)
	if err != nil {
		t.Fatalf("NewDataSourceDeclaration() error = %v", err)
	}
	kb.AddDataSource(decl)

	if n := kb.ClearFacts(); n != 1 {
		t.Errorf("ClearFacts() = %d, want 1", n)
	}
	if len(kb.Facts()) != 0 || len(kb.Rules()) != 1 || len(kb.DataSources()) != 1 || kb.Prefixes().Len() != 1 {
		t.Errorf("ClearFacts touched other partitions")
	}
	kb.ClearRules()
	kb.ClearDataSources()
	kb.ClearPrefixes()
	if len(kb.Rules()) != 0 || len(kb.DataSources()) != 0 || kb.Prefixes().Len() != 0 {
		t.Errorf("partitions not empty after clearing")
	}
}

func TestKnowledgeBaseSerializeRoundTrip(t *testing.T) {
	kb := NewKnowledgeBase()
	kb.AddFacts(mustFact(t, "p(/a)"), mustFact(t, `label(/a, "A")`))
	kb.AddRules(mustRule(t, "q(X) :- p(X), !r(X)"))
	kb.SetPrefix("ex", "http://example.org/")

	var buf bytes.Buffer
	if err := kb.Serialize(&buf); err != nil {
		t.Fatalf("Serialize() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, `@setprefix "ex" : <http://example.org/> .`) {
		t.Errorf("missing prefix directive in:\n%s", out)
	}

	var body []string
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "@") {
			body = append(body, line)
		}
	}
	prog, err := ParseProgram(strings.Join(body, "\n"))
	if err != nil {
		t.Fatalf("ParseProgram() error = %v\n%s", err, out)
	}
	if len(prog.Facts) != 2 || len(prog.Rules) != 1 {
		t.Errorf("round trip got %d facts and %d rules, want 2 and 1", len(prog.Facts), len(prog.Rules))
	}
}

func TestKnowledgeBaseLogsChanges(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	kb := NewKnowledgeBase(WithKnowledgeBaseLogger(zap.New(core)))

	kb.AddFacts(mustFact(t, "p(/a)"), mustFact(t, "p(/b)"))
	kb.AddFacts(mustFact(t, "p(/a)"))
	kb.SetPrefix("ex", "http://example.org/")
	kb.ClearFacts()
	kb.ClearPrefixes()

	changes := logs.FilterMessage("knowledge base changed").All()
	if len(changes) != 2 {
		t.Fatalf("got %d change entries, want 2", len(changes))
	}
	first := changes[0].ContextMap()
	if first["kind"] != "added" || first["partition"] != PartitionFacts || first["count"] != int64(2) {
		t.Errorf("first change = %v, want 2 facts added", first)
	}
	if got := changes[1].ContextMap()["kind"]; got != "removed" {
		t.Errorf("second change kind = %v, want removed", got)
	}
	if logs.FilterMessage("prefix set").Len() != 1 || logs.FilterMessage("prefixes cleared").Len() != 1 {
		t.Errorf("prefix entries = %v", logs.All())
	}
}
