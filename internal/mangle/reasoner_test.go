package mangle

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func graphKB(t *testing.T) *KnowledgeBase {
	t.Helper()
	kb := NewKnowledgeBase()
	if _, err := kb.AddFacts(mustFact(t, "edge(/a, /b)"), mustFact(t, "edge(/b, /c)")); err != nil {
		t.Fatalf("AddFacts() error = %v", err)
	}
	kb.AddRules(
		mustRule(t, "reach(X, Y) :- edge(X, Y)"),
		mustRule(t, "reach(X, Z) :- edge(X, Y), reach(Y, Z)"),
	)
	return kb
}

func count(t *testing.T, r *Reasoner, query string) QueryAnswerCount {
	t.Helper()
	q, err := ParseLiteral(query)
	if err != nil {
		t.Fatalf("ParseLiteral(%q) error = %v", query, err)
	}
	c, err := r.CountAnswers(q)
	if err != nil {
		t.Fatalf("CountAnswers(%q) error = %v", query, err)
	}
	return c
}

func TestReasonerMaterializesTransitiveClosure(t *testing.T) {
	r := NewReasoner(graphKB(t), DefaultConfig(), nil)
	defer r.Close()

	c, err := r.Reason()
	if err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if c != SoundAndComplete {
		t.Errorf("Reason() correctness = %v, want %v", c, SoundAndComplete)
	}

	if got := count(t, r, "reach(X, Y)"); got.Count != 3 || got.Correctness != SoundAndComplete {
		t.Errorf("reach(X, Y) = %+v, want 3 sound and complete answers", got)
	}
	if got := count(t, r, "reach(/a, X)"); got.Count != 2 {
		t.Errorf("reach(/a, X) count = %d, want 2", got.Count)
	}
	if got := count(t, r, "reach(X, X)"); got.Count != 0 {
		t.Errorf("reach(X, X) count = %d, want 0", got.Count)
	}
}

func TestReasonerEmptyKnowledgeBase(t *testing.T) {
	r := NewReasoner(NewKnowledgeBase(), DefaultConfig(), nil)
	defer r.Close()

	c, err := r.Reason()
	if err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if c != SoundAndComplete {
		t.Errorf("Reason() correctness = %v, want %v", c, SoundAndComplete)
	}
}

func TestReasonerUndefinedBodyPredicate(t *testing.T) {
	kb := NewKnowledgeBase()
	kb.AddRules(mustRule(t, "q(X) :- r(X)"))
	r := NewReasoner(kb, DefaultConfig(), nil)
	defer r.Close()

	if _, err := r.Reason(); err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if got := count(t, r, "q(X)"); got.Count != 0 {
		t.Errorf("q(X) count = %d, want 0", got.Count)
	}
}

func TestReasonerNegation(t *testing.T) {
	kb := NewKnowledgeBase()
	kb.AddFacts(mustFact(t, "node(/a)"), mustFact(t, "node(/b)"), mustFact(t, "blocked(/b)"))
	kb.AddRules(mustRule(t, "open(X) :- node(X), !blocked(X)"))
	r := NewReasoner(kb, DefaultConfig(), nil)
	defer r.Close()

	if _, err := r.Reason(); err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	q, _ := ParseLiteral("open(X)")
	it, err := r.AnswerQuery(q, true)
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	defer it.Close()
	var got []string
	for it.Next() {
		got = append(got, it.Answer().String())
	}
	if len(got) != 1 || got[0] != "open(/a)" {
		t.Errorf("open(X) answers = %v, want [open(/a)]", got)
	}
}

func TestReasonerCorrectnessAfterChanges(t *testing.T) {
	kb := graphKB(t)
	r := NewReasoner(kb, DefaultConfig(), nil)
	defer r.Close()

	if r.Correctness() != SoundButIncomplete {
		t.Errorf("before materialization correctness = %v, want %v", r.Correctness(), SoundButIncomplete)
	}
	if _, err := r.Reason(); err != nil {
		t.Fatalf("Reason() error = %v", err)
	}

	kb.AddFacts(mustFact(t, "edge(/c, /d)"))
	if r.Correctness() != SoundButIncomplete {
		t.Errorf("after addition correctness = %v, want %v", r.Correctness(), SoundButIncomplete)
	}
	// Stale cache: the new edge is not derived until the next Reason.
	if got := count(t, r, "reach(/a, X)"); got.Count != 2 {
		t.Errorf("stale reach(/a, X) count = %d, want 2", got.Count)
	}

	kb.RemoveFacts(mustFact(t, "edge(/a, /b)"))
	if r.Correctness() != Incorrect {
		t.Errorf("after removal correctness = %v, want %v", r.Correctness(), Incorrect)
	}

	if c, err := r.Reason(); err != nil || c != SoundAndComplete {
		t.Fatalf("Reason() = %v, %v; want sound and complete", c, err)
	}
	if got := count(t, r, "reach(/b, X)"); got.Count != 2 {
		t.Errorf("reach(/b, X) count = %d, want 2", got.Count)
	}
}

func TestReasonerResetMaterialization(t *testing.T) {
	r := NewReasoner(graphKB(t), DefaultConfig(), nil)
	defer r.Close()
	if _, err := r.Reason(); err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if err := r.ResetMaterialization(); err != nil {
		t.Fatalf("ResetMaterialization() error = %v", err)
	}

	if got := count(t, r, "reach(X, Y)"); got.Count != 0 || got.Correctness != SoundButIncomplete {
		t.Errorf("reach after reset = %+v, want 0 sound but incomplete", got)
	}
	if got := count(t, r, "edge(X, Y)"); got.Count != 2 {
		t.Errorf("edge after reset count = %d, want 2", got.Count)
	}
}

func TestReasonerCloseIsFinal(t *testing.T) {
	kb := graphKB(t)
	r := NewReasoner(kb, DefaultConfig(), nil)
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
	if _, err := r.Reason(); !errors.Is(err, ErrReasonerClosed) {
		t.Errorf("Reason() after Close error = %v, want ErrReasonerClosed", err)
	}
	q, _ := ParseLiteral("edge(X, Y)")
	if _, err := r.AnswerQuery(q, true); !errors.Is(err, ErrReasonerClosed) {
		t.Errorf("AnswerQuery() after Close error = %v, want ErrReasonerClosed", err)
	}
	// A closed reasoner no longer listens to its knowledge base.
	kb.AddFacts(mustFact(t, "edge(/x, /y)"))
	if len(kb.listeners) != 0 {
		t.Errorf("closed reasoner still registered as listener")
	}
}

func TestReasonerIteratorRelease(t *testing.T) {
	r := NewReasoner(graphKB(t), DefaultConfig(), nil)
	defer r.Close()
	q, _ := ParseLiteral("edge(X, Y)")

	it, err := r.AnswerQuery(q, true)
	if err != nil {
		t.Fatalf("AnswerQuery() error = %v", err)
	}
	if r.OpenIterators() != 1 {
		t.Errorf("OpenIterators() = %d, want 1", r.OpenIterators())
	}
	it.Close()
	it.Close()
	if r.OpenIterators() != 0 {
		t.Errorf("OpenIterators() after Close = %d, want 0", r.OpenIterators())
	}
	if it.Next() {
		t.Error("Next() on a closed iterator returned true")
	}
}

func TestReasonerExportAnswersToCSV(t *testing.T) {
	kb := NewKnowledgeBase()
	kb.AddFacts(mustFact(t, `label(/a, "Alice")`), mustFact(t, `label(/b, "_:b0")`))
	r := NewReasoner(kb, DefaultConfig(), nil)
	defer r.Close()
	if _, err := r.Reason(); err != nil {
		t.Fatalf("Reason() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "out.csv")
	q, _ := ParseLiteral("label(X, Y)")
	c, err := r.ExportAnswersToCSV(q, path, false)
	if err != nil {
		t.Fatalf("ExportAnswersToCSV() error = %v", err)
	}
	if c != SoundAndComplete {
		t.Errorf("correctness = %v, want %v", c, SoundAndComplete)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got := string(data); got != "/a,Alice\n" {
		t.Errorf("csv = %q, want %q", got, "/a,Alice\n")
	}

	if _, err := r.ExportAnswersToCSV(q, path, true); err != nil {
		t.Fatalf("ExportAnswersToCSV() error = %v", err)
	}
	data, _ = os.ReadFile(path)
	if lines := strings.Count(string(data), "\n"); lines != 2 {
		t.Errorf("csv with blanks has %d rows, want 2", lines)
	}
}

func TestReasonerDumpInferences(t *testing.T) {
	r := NewReasoner(graphKB(t), DefaultConfig(), nil)
	defer r.Close()
	if _, err := r.Reason(); err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	var buf bytes.Buffer
	c, err := r.DumpInferences(&buf)
	if err != nil {
		t.Fatalf("DumpInferences() error = %v", err)
	}
	if c != SoundAndComplete {
		t.Errorf("correctness = %v, want %v", c, SoundAndComplete)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 5 {
		t.Errorf("dumped %d facts, want 5 (2 edges + 3 reach):\n%s", len(lines), buf.String())
	}
}

func TestReasonerFactLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FactLimit = 3
	r := NewReasoner(graphKB(t), cfg, nil)
	defer r.Close()
	if _, err := r.Reason(); err == nil {
		t.Fatal("Reason() should fail when the materialization exceeds the fact limit")
	}
	if r.Correctness() != SoundButIncomplete {
		t.Errorf("failed Reason() left correctness %v, want %v", r.Correctness(), SoundButIncomplete)
	}
}

func TestReasonerVerbosity(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewReasoner(graphKB(t), DefaultConfig(), zap.New(core))
	defer r.Close()

	r.SetVerbosity(zapcore.ErrorLevel)
	if _, err := r.Reason(); err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if logs.Len() != 0 {
		t.Errorf("got %d log entries at error verbosity, want 0", logs.Len())
	}

	r.SetVerbosity(zapcore.InfoLevel)
	if _, err := r.Reason(); err != nil {
		t.Fatalf("Reason() error = %v", err)
	}
	if logs.FilterMessage("materialization complete").Len() != 1 {
		t.Errorf("expected one completion entry at info verbosity, got %v", logs.All())
	}
}
