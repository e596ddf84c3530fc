// Package shell is the command interpreter of a kbshell session. It parses
// `@command` text, dispatches to registered handlers and drives one knowledge
// base together with the reasoner bound to it.
package shell

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/mangle/ast"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"kbshell/internal/logging"
	"kbshell/internal/mangle"
)

// Reasoner is the view of a reasoner the interpreter depends on.
// *mangle.Reasoner implements it.
type Reasoner interface {
	Reason() (mangle.Correctness, error)
	ResetMaterialization() error
	AnswerQuery(query ast.Atom, includeBlanks bool) (mangle.AnswerIterator, error)
	CountAnswers(query ast.Atom) (mangle.QueryAnswerCount, error)
	ExportAnswersToCSV(query ast.Atom, path string, includeBlanks bool) (mangle.Correctness, error)
	DumpInferences(w io.Writer) (mangle.Correctness, error)
	KnowledgeBase() *mangle.KnowledgeBase
	SetVerbosity(level zapcore.Level)
	LastDuration() time.Duration
	Close() error
}

// KnowledgeBaseProvider creates the knowledge base of a fresh session state.
type KnowledgeBaseProvider func() *mangle.KnowledgeBase

// ReasonerProvider creates a reasoner bound to kb.
type ReasonerProvider func(kb *mangle.KnowledgeBase) (Reasoner, error)

// OntologyConverter turns an ontology document into facts and rules for
// `@load OWL`.
type OntologyConverter interface {
	ConvertOntology(r io.Reader) (mangle.Program, error)
}

// Interpreter owns one knowledge base and the reasoner bound to it. It is
// not safe for concurrent use.
type Interpreter struct {
	id        string
	registry  *Registry
	printer   Printer
	logger    *zap.Logger
	verbosity zapcore.Level

	// Per-category loggers; nil means a child of logger.
	reasonerLogger *zap.Logger
	kbLogger       *zap.Logger
	sourceLogger   *zap.Logger

	workDir string

	kbProvider       KnowledgeBaseProvider
	reasonerProvider ReasonerProvider
	reasonerConfig   mangle.Config
	converter        OntologyConverter
	openInput        func(path string) (io.ReadCloser, error)
	openOutput       func(path string) (io.WriteCloser, error)

	reasoner Reasoner
	closed   bool
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithPrinter sets the output sink. The default writes plain text to stdout.
func WithPrinter(p Printer) Option {
	return func(in *Interpreter) { in.printer = p }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(in *Interpreter) { in.logger = logger }
}

// WithLogging takes the session logger and one logger per subsystem from
// logs.
func WithLogging(logs *logging.Logger) Option {
	return func(in *Interpreter) {
		in.logger = logs.For(logging.CategoryShell)
		in.reasonerLogger = logs.For(logging.CategoryReasoner)
		in.kbLogger = logs.For(logging.CategoryKB)
		in.sourceLogger = logs.For(logging.CategorySources)
	}
}

// WithVerbosity sets the reasoner log level applied after every full reset.
func WithVerbosity(level zapcore.Level) Option {
	return func(in *Interpreter) { in.verbosity = level }
}

// WithReasonerConfig configures the default Mangle reasoner.
func WithReasonerConfig(cfg mangle.Config) Option {
	return func(in *Interpreter) { in.reasonerConfig = cfg }
}

// WithKnowledgeBaseProvider replaces the knowledge base factory.
func WithKnowledgeBaseProvider(p KnowledgeBaseProvider) Option {
	return func(in *Interpreter) { in.kbProvider = p }
}

// WithReasonerProvider replaces the reasoner factory.
func WithReasonerProvider(p ReasonerProvider) Option {
	return func(in *Interpreter) { in.reasonerProvider = p }
}

// WithOntologyConverter enables `@load OWL`.
func WithOntologyConverter(c OntologyConverter) Option {
	return func(in *Interpreter) { in.converter = c }
}

// WithWorkDir sets the directory relative file paths are resolved against.
func WithWorkDir(dir string) Option {
	return func(in *Interpreter) { in.workDir = dir }
}

// WithFileAccess replaces how files are opened for reading and writing.
func WithFileAccess(open func(string) (io.ReadCloser, error), create func(string) (io.WriteCloser, error)) Option {
	return func(in *Interpreter) {
		in.openInput = open
		in.openOutput = create
	}
}

// New builds an interpreter with the built-in commands and performs the
// initial full reset.
func New(opts ...Option) (*Interpreter, error) {
	in := &Interpreter{
		id:             uuid.New().String(),
		registry:       NewRegistry(),
		printer:        NewPlainPrinter(os.Stdout),
		logger:         zap.NewNop(),
		verbosity:      zapcore.WarnLevel,
		reasonerConfig: mangle.DefaultConfig(),
		openInput:      func(path string) (io.ReadCloser, error) { return os.Open(path) },
		openOutput:     func(path string) (io.WriteCloser, error) { return os.Create(path) },
	}
	for _, opt := range opts {
		opt(in)
	}
	in.logger = in.logger.With(zap.String("session", in.id))
	in.reasonerLogger = in.sessionLogger(in.reasonerLogger, "reasoner")
	in.kbLogger = in.sessionLogger(in.kbLogger, "kb")
	in.sourceLogger = in.sessionLogger(in.sourceLogger, "sources")
	if in.kbProvider == nil {
		in.kbProvider = func() *mangle.KnowledgeBase {
			return mangle.NewKnowledgeBase(mangle.WithKnowledgeBaseLogger(in.kbLogger))
		}
	}
	if in.reasonerProvider == nil {
		cfg := in.reasonerConfig
		in.reasonerProvider = func(kb *mangle.KnowledgeBase) (Reasoner, error) {
			return mangle.NewReasoner(kb, cfg, in.reasonerLogger,
				mangle.WithSourceLogger(in.sourceLogger),
				mangle.WithOutputFiles(in.FileAccess())), nil
		}
	}
	registerBuiltins(in.registry)

	if err := in.Reset(); err != nil {
		return nil, err
	}
	in.logger.Debug("interpreter ready", zap.Strings("commands", in.registry.Names()))
	return in, nil
}

func (in *Interpreter) sessionLogger(l *zap.Logger, name string) *zap.Logger {
	if l == nil {
		return in.logger.Named(name)
	}
	return l.With(zap.String("session", in.id))
}

// FileAccess returns the file hooks data sources and exports go through.
// Paths resolve against the working directory.
func (in *Interpreter) FileAccess() mangle.FileAccess {
	return mangle.FileAccess{
		Resolve: in.ResolvePath,
		Open:    in.openInput,
		Create:  in.openOutput,
	}
}

// ID returns the session id.
func (in *Interpreter) ID() string { return in.id }

// Printer returns the output sink.
func (in *Interpreter) Printer() Printer { return in.printer }

// Logger returns the session logger.
func (in *Interpreter) Logger() *zap.Logger { return in.logger }

// Registry returns the command registry.
func (in *Interpreter) Registry() *Registry { return in.registry }

// Register installs or replaces the handler for name.
func (in *Interpreter) Register(name string, h Handler) {
	in.registry.Register(name, h)
}

// Reasoner returns the current reasoner.
func (in *Interpreter) Reasoner() Reasoner { return in.reasoner }

// KnowledgeBase returns the knowledge base of the current reasoner.
func (in *Interpreter) KnowledgeBase() *mangle.KnowledgeBase {
	return in.reasoner.KnowledgeBase()
}

// OntologyConverter returns the configured converter, or nil.
func (in *Interpreter) OntologyConverter() OntologyConverter { return in.converter }

// Reset replaces the knowledge base and reasoner with fresh ones and runs an
// initial materialization. The new pair is published only once it is fully
// built; on failure the current pair stays in place. The previous reasoner is
// closed after the hand-off.
func (in *Interpreter) Reset() error {
	if in.closed {
		return ErrInterpreterClosed
	}
	kb := in.kbProvider()
	r, err := in.reasonerProvider(kb)
	if err != nil {
		return wrapExecutionError(err, "failed to create reasoner")
	}
	r.SetVerbosity(in.verbosity)
	if _, err := r.Reason(); err != nil {
		r.Close()
		return wrapExecutionError(err, "initial materialization failed")
	}

	old := in.reasoner
	in.reasoner = r
	if old != nil {
		if err := old.Close(); err != nil {
			in.logger.Warn("failed to close previous reasoner", zap.Error(err))
		}
	}
	in.logger.Debug("session reset")
	return nil
}

// Close closes the reasoner. The interpreter cannot be used afterwards.
// Closing twice is a no-op.
func (in *Interpreter) Close() error {
	if in.closed {
		return nil
	}
	in.closed = true
	err := in.reasoner.Close()
	in.logger.Debug("interpreter closed")
	return err
}

// Run dispatches one command. Handler failures are reported as
// *CommandExecutionError.
func (in *Interpreter) Run(cmd Command) (err error) {
	if in.closed {
		return &CommandExecutionError{Message: fmt.Sprintf("cannot run @%s", cmd.Name), Cause: ErrInterpreterClosed}
	}
	h, ok := in.registry.Lookup(cmd.Name)
	if !ok {
		return &CommandExecutionError{Message: fmt.Sprintf("unknown command @%s", cmd.Name), Cause: ErrUnknownCommand}
	}

	defer func() {
		if r := recover(); r != nil {
			err = executionErrorf("@%s failed: %v", cmd.Name, r)
			in.logger.Error("command panicked", zap.String("command", cmd.Name), zap.Any("panic", r))
		}
	}()

	start := time.Now()
	in.logger.Debug("executing command",
		zap.String("command", cmd.Name),
		zap.String("arguments", describeArguments(cmd.Arguments)))
	if err := h.Run(cmd, in); err != nil {
		in.logger.Debug("command failed", zap.String("command", cmd.Name), zap.Error(err))
		return asExecutionError(err)
	}
	in.logger.Debug("command finished", zap.String("command", cmd.Name), zap.Duration("elapsed", time.Since(start)))
	return nil
}

// RunMany runs commands in order and stops at the first failure. Effects of
// the commands that succeeded are kept.
func (in *Interpreter) RunMany(cmds []Command) error {
	for _, cmd := range cmds {
		if err := in.Run(cmd); err != nil {
			return err
		}
	}
	return nil
}

// RunText parses text as a sequence of commands and runs them. A parse
// failure is returned as *ParseError before anything runs.
func (in *Interpreter) RunText(text string) error {
	cmds, err := ParseScript(text)
	if err != nil {
		return err
	}
	return in.RunMany(cmds)
}

// RunScript runs the commands of a script file.
func (in *Interpreter) RunScript(path string) error {
	rc, err := in.OpenInput(path)
	if err != nil {
		return wrapExecutionError(err, "failed to open script %s", path)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return wrapExecutionError(err, "failed to read script %s", path)
	}
	return in.RunText(string(data))
}

// ResolvePath resolves a relative path against the working directory.
func (in *Interpreter) ResolvePath(path string) string {
	if in.workDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(in.workDir, path)
}

// OpenInput opens a file for reading.
func (in *Interpreter) OpenInput(path string) (io.ReadCloser, error) {
	return in.openInput(in.ResolvePath(path))
}

// OpenOutput creates a file for writing.
func (in *Interpreter) OpenOutput(path string) (io.WriteCloser, error) {
	return in.openOutput(in.ResolvePath(path))
}
