// Command kbshell is an interactive shell for building a Mangle knowledge
// base and querying what it entails.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kbshell/internal/config"
	"kbshell/internal/logging"
	"kbshell/internal/shell"
)

// app carries the state shared by all subcommands.
type app struct {
	configPath string
	verbose    bool
	noColor    bool

	cfg  *config.Config
	logs *logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "kbshell",
		Short: "Interactive shell for Mangle knowledge bases",
		Long: `kbshell reads @-commands that assert facts and rules, bind external
data sources, materialize inferences and answer queries.

Run without arguments to start the interactive shell.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logs != nil {
				_ = a.logs.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runInteractive(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath(), "Configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable styled output")

	root.AddCommand(newRunCmd(a))
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
		cfg.Reasoner.Verbosity = "debug"
	}
	if cmd.Flags().Changed("no-color") {
		cfg.Shell.NoColor = a.noColor
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration %s: %w", a.configPath, err)
	}

	logs, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		Categories: cfg.Logging.Categories,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg, a.logs = cfg, logs
	logs.For(logging.CategoryBoot).Debug("configuration loaded",
		zap.String("path", a.configPath),
		zap.String("log_level", cfg.Logging.Level),
		zap.Bool("no_color", cfg.Shell.NoColor))
	return nil
}

// newInterpreter builds a session that prints to out.
func (a *app) newInterpreter(out io.Writer) (*shell.Interpreter, error) {
	var printer shell.Printer = shell.NewTerminalPrinter(out)
	if a.cfg.Shell.NoColor {
		printer = shell.NewPlainPrinter(out)
	}
	return shell.New(
		shell.WithPrinter(printer),
		shell.WithLogging(a.logs),
		shell.WithVerbosity(a.cfg.Reasoner.VerbosityLevel()),
		shell.WithReasonerConfig(a.cfg.Reasoner.MangleConfig()),
		shell.WithWorkDir(a.cfg.Shell.WorkDir),
	)
}

// runStartupScripts runs the configured startup scripts in order.
func (a *app) runStartupScripts(in *shell.Interpreter) error {
	for _, path := range a.cfg.Shell.StartupScripts {
		if err := in.RunScript(path); err != nil {
			return fmt.Errorf("startup script %s: %w", path, err)
		}
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
