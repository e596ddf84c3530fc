package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kbshell/internal/logging"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <script>...",
		Short: "Run command scripts in one session",
		Long: `Runs each script in order against a single knowledge base. Execution
stops at the first failing command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScripts(cmd, args)
		},
	}
}

func (a *app) runScripts(cmd *cobra.Command, paths []string) error {
	in, err := a.newInterpreter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer in.Close()

	if err := a.runStartupScripts(in); err != nil {
		return err
	}

	log := a.logs.For(logging.CategoryShell)
	for _, path := range paths {
		timer := a.logs.StartTimer(logging.CategoryShell, "script "+path)
		err := in.RunScript(path)
		timer.Stop()
		if err != nil {
			log.Debug("script failed", zap.String("path", path), zap.Error(err))
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}
