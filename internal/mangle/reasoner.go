package mangle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

// ErrReasonerClosed is returned by every operation on a closed reasoner.
var ErrReasonerClosed = errors.New("reasoner is closed")

// Config holds reasoner configuration.
type Config struct {
	FactLimit         int `json:"fact_limit" yaml:"fact_limit"`
	SourceConcurrency int `json:"source_concurrency" yaml:"source_concurrency"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		FactLimit:         1000000,
		SourceConcurrency: 4,
	}
}

// Reasoner materializes the closure of one knowledge base with the Mangle
// engine and answers queries against the cached result.
//
// The cache is not recomputed when the bound knowledge base changes; the
// reasoner only downgrades the correctness it reports until Reason runs
// again. A Reasoner is not safe for concurrent use.
type Reasoner struct {
	config Config
	kb     *KnowledgeBase
	logger *zap.Logger
	level  zap.AtomicLevel

	sourceLogger *zap.Logger
	files        FileAccess

	store         factstore.FactStore
	correctness   Correctness
	lastDuration  time.Duration
	openIterators int
	closed        bool
}

// ReasonerOption configures a Reasoner.
type ReasonerOption func(*Reasoner)

// WithSourceLogger sets the logger for data source loading. It is not
// affected by SetVerbosity.
func WithSourceLogger(logger *zap.Logger) ReasonerOption {
	return func(r *Reasoner) {
		if logger != nil {
			r.sourceLogger = logger
		}
	}
}

// WithOutputFiles sets how CSV exports create their files.
func WithOutputFiles(files FileAccess) ReasonerOption {
	return func(r *Reasoner) { r.files = files }
}

// NewReasoner binds a reasoner to kb. The reasoner starts without a
// materialization; call Reason to compute one.
func NewReasoner(kb *KnowledgeBase, cfg Config, logger *zap.Logger, opts ...ReasonerOption) *Reasoner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SourceConcurrency <= 0 {
		cfg.SourceConcurrency = 1
	}
	r := &Reasoner{
		config:      cfg,
		kb:          kb,
		logger:      logger,
		level:       zap.NewAtomicLevelAt(zapcore.WarnLevel),
		correctness: SoundButIncomplete,

		sourceLogger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	kb.AddListener(r)
	return r
}

// KnowledgeBase returns the bound knowledge base.
func (r *Reasoner) KnowledgeBase() *KnowledgeBase {
	return r.kb
}

// SetVerbosity sets the minimum level of the reasoner's own log output.
func (r *Reasoner) SetVerbosity(level zapcore.Level) {
	r.level.SetLevel(level)
}

// LastDuration returns the time spent in the most recent materialization.
func (r *Reasoner) LastDuration() time.Duration {
	return r.lastDuration
}

// Correctness returns the correctness of answers computed right now.
func (r *Reasoner) Correctness() Correctness {
	if r.store == nil {
		return SoundButIncomplete
	}
	return r.correctness
}

// OpenIterators returns the number of answer iterators not yet closed.
func (r *Reasoner) OpenIterators() int {
	return r.openIterators
}

func (r *Reasoner) log(level zapcore.Level, msg string, fields ...zap.Field) {
	if !r.level.Enabled(level) {
		return
	}
	if ce := r.logger.Check(level, msg); ce != nil {
		ce.Write(fields...)
	}
}

// KnowledgeBaseChanged implements Listener.
func (r *Reasoner) KnowledgeBaseChanged(change Change) {
	if r.store == nil {
		return
	}
	before := r.correctness
	switch {
	case change.Kind == ChangeRemoved:
		r.correctness = Incorrect
	case r.kb.HasNegation():
		r.correctness = Incorrect
	default:
		r.correctness = r.correctness.Weaker(SoundButIncomplete)
	}
	if before != r.correctness {
		r.log(zapcore.DebugLevel, "knowledge base changed after materialization",
			zap.String("partition", change.Partition),
			zap.Int("count", change.Count),
			zap.Stringer("correctness", r.correctness))
	}
}

// Reason loads every data source and computes the fixpoint of the knowledge
// base. On failure the previous materialization is discarded.
func (r *Reasoner) Reason() (Correctness, error) {
	if r.closed {
		return Incorrect, ErrReasonerClosed
	}

	start := time.Now()
	defer func() { r.lastDuration = time.Since(start) }()

	r.store = nil
	r.log(zapcore.InfoLevel, "starting materialization",
		zap.Int("facts", len(r.kb.facts)),
		zap.Int("rules", len(r.kb.rules)),
		zap.Int("sources", len(r.kb.sources)))

	sourceFacts, err := r.loadSources()
	if err != nil {
		return r.Correctness(), fmt.Errorf("load data sources: %w", err)
	}

	explicit := len(r.kb.facts) + len(sourceFacts)
	if r.config.FactLimit > 0 && explicit > r.config.FactLimit {
		return r.Correctness(), fmt.Errorf("fact limit exceeded: %d explicit facts, limit %d", explicit, r.config.FactLimit)
	}

	programInfo, err := r.analyze(sourceFacts)
	if err != nil {
		return r.Correctness(), fmt.Errorf("analyze program: %w", err)
	}

	store := factstore.NewSimpleInMemoryStore()
	for _, f := range r.kb.facts {
		store.Add(f)
	}
	for _, f := range sourceFacts {
		store.Add(f)
	}

	stats, err := mengine.EvalProgramWithStats(programInfo, store)
	if err != nil {
		return r.Correctness(), fmt.Errorf("evaluate program: %w", err)
	}

	total := store.EstimateFactCount()
	if r.config.FactLimit > 0 && total > r.config.FactLimit {
		return r.Correctness(), fmt.Errorf("fact limit exceeded: materialization holds %d facts, limit %d", total, r.config.FactLimit)
	}
	r.maybeWarnFactLimit(total)

	r.store = store
	r.correctness = SoundAndComplete
	r.log(zapcore.InfoLevel, "materialization complete",
		zap.Int("facts", total),
		zap.Duration("elapsed", time.Since(start)),
		zap.Any("stats", stats))
	return r.correctness, nil
}

func (r *Reasoner) maybeWarnFactLimit(total int) {
	if r.config.FactLimit == 0 {
		return
	}
	utilization := float64(total) / float64(r.config.FactLimit)
	if utilization >= 0.85 {
		r.log(zapcore.WarnLevel, "fact store is close to the configured capacity",
			zap.Int("facts", total),
			zap.Int("limit", r.config.FactLimit),
			zap.Float64("utilization", utilization))
	}
}

// loadSources reads all declared data sources. Sources are read concurrently
// and their facts merged in declaration order.
func (r *Reasoner) loadSources() ([]ast.Atom, error) {
	decls := r.kb.sources
	if len(decls) == 0 {
		return nil, nil
	}

	results := make([][]ast.Atom, len(decls))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(r.config.SourceConcurrency)
	for i, decl := range decls {
		i, decl := i, decl
		g.Go(func() error {
			atoms, err := decl.Source.Load(ctx, decl.Predicate)
			if err != nil {
				r.sourceLogger.Warn("data source failed",
					zap.String("predicate", PredicateString(decl.Predicate)),
					zap.Stringer("source", decl.Source.Declaration()),
					zap.Error(err))
				return fmt.Errorf("%s: %w", PredicateString(decl.Predicate), err)
			}
			results[i] = atoms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []ast.Atom
	for i, atoms := range results {
		r.sourceLogger.Debug("loaded data source",
			zap.String("predicate", PredicateString(decls[i].Predicate)),
			zap.Stringer("source", decls[i].Source.Declaration()),
			zap.Int("facts", len(atoms)))
		all = append(all, atoms...)
	}
	return all, nil
}

// analyze builds a single Mangle unit from the knowledge base. Predicates
// used in rule bodies without any fact or rule defining them get a synthetic
// declaration so they evaluate to the empty relation.
func (r *Reasoner) analyze(sourceFacts []ast.Atom) (*analysis.ProgramInfo, error) {
	clauses := make([]ast.Clause, 0, len(r.kb.facts)+len(sourceFacts)+len(r.kb.rules))
	defined := make(map[ast.PredicateSym]bool)
	for _, f := range r.kb.facts {
		clauses = append(clauses, ast.Clause{Head: f})
		defined[f.Predicate] = true
	}
	for _, f := range sourceFacts {
		clauses = append(clauses, ast.Clause{Head: f})
		defined[f.Predicate] = true
	}
	for _, rule := range r.kb.rules {
		clauses = append(clauses, rule)
		defined[rule.Head.Predicate] = true
	}

	var undefined []ast.PredicateSym
	seen := make(map[ast.PredicateSym]bool)
	for _, rule := range r.kb.rules {
		for _, premise := range rule.Premises {
			var sym ast.PredicateSym
			switch p := premise.(type) {
			case ast.Atom:
				sym = p.Predicate
			case ast.NegAtom:
				sym = p.Atom.Predicate
			default:
				continue
			}
			if defined[sym] || seen[sym] || strings.HasPrefix(sym.Symbol, ":") {
				continue
			}
			seen[sym] = true
			undefined = append(undefined, sym)
		}
	}

	decls, err := syntheticDecls(undefined)
	if err != nil {
		return nil, err
	}
	unit := parse.SourceUnit{Clauses: clauses, Decls: decls}
	return analysis.AnalyzeOneUnit(unit, nil)
}

func syntheticDecls(syms []ast.PredicateSym) ([]ast.Decl, error) {
	if len(syms) == 0 {
		return nil, nil
	}
	var sb strings.Builder
	for _, sym := range syms {
		vars := make([]string, sym.Arity)
		for i := range vars {
			vars[i] = fmt.Sprintf("X%d", i)
		}
		fmt.Fprintf(&sb, "Decl %s(%s).\n", sym.Symbol, strings.Join(vars, ", "))
	}
	unit, err := parse.Unit(strings.NewReader(sb.String()))
	if err != nil {
		return nil, fmt.Errorf("declare undefined predicates: %w", err)
	}
	return unit.Decls, nil
}

// ResetMaterialization discards cached inferences. Until the next Reason,
// answers are computed from the explicit facts alone.
func (r *Reasoner) ResetMaterialization() error {
	if r.closed {
		return ErrReasonerClosed
	}
	r.store = nil
	r.log(zapcore.InfoLevel, "materialization reset")
	return nil
}

// Close releases the materialization and detaches from the knowledge base.
// Closing twice is a no-op.
func (r *Reasoner) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.store = nil
	r.kb.RemoveListener(r)
	r.log(zapcore.DebugLevel, "reasoner closed", zap.Int("open_iterators", r.openIterators))
	return nil
}

// factsOf returns every fact of the current state for sym, sorted.
func (r *Reasoner) factsOf(sym ast.PredicateSym) ([]ast.Atom, error) {
	var atoms []ast.Atom
	if r.store == nil {
		for _, f := range r.kb.facts {
			if f.Predicate == sym {
				atoms = append(atoms, f)
			}
		}
	} else {
		err := r.store.GetFacts(ast.NewQuery(sym), func(a ast.Atom) error {
			atoms = append(atoms, a)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Slice(atoms, func(i, j int) bool { return atoms[i].String() < atoms[j].String() })
	return atoms, nil
}

func (r *Reasoner) predicates() []ast.PredicateSym {
	var syms []ast.PredicateSym
	if r.store == nil {
		seen := make(map[ast.PredicateSym]bool)
		for _, f := range r.kb.facts {
			if !seen[f.Predicate] {
				seen[f.Predicate] = true
				syms = append(syms, f.Predicate)
			}
		}
	} else {
		syms = r.store.ListPredicates()
	}
	sort.Slice(syms, func(i, j int) bool {
		if syms[i].Symbol != syms[j].Symbol {
			return syms[i].Symbol < syms[j].Symbol
		}
		return syms[i].Arity < syms[j].Arity
	})
	return syms
}
