package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"kbshell/internal/logging"
	"kbshell/internal/shell"
)

const continuationPrompt = "... "

// newCompleter completes command names after '@'.
func newCompleter(names []string) *readline.PrefixCompleter {
	items := make([]readline.PrefixCompleterInterface, 0, len(names))
	for _, name := range names {
		items = append(items, readline.PcItem("@"+name))
	}
	return readline.NewPrefixCompleter(items...)
}

// inputComplete reports whether buffered REPL input should be run. Input
// runs once it parses or once it ends with the command terminator, so that
// parse errors are reported instead of swallowing further lines.
func inputComplete(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	if strings.HasSuffix(trimmed, ".") {
		return true
	}
	_, err := shell.ParseScript(text)
	return err == nil
}

func isExit(line string) bool {
	switch strings.TrimSpace(line) {
	case "exit", "quit", "@exit .", "@quit .":
		return true
	}
	return false
}

func (a *app) runInteractive(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	in, err := a.newInterpreter(out)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := a.runStartupScripts(in); err != nil {
		return err
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          a.cfg.Shell.Prompt,
		HistoryFile:     a.cfg.Shell.HistoryFile,
		HistoryLimit:    a.cfg.Shell.HistoryLimit,
		AutoComplete:    newCompleter(in.Registry().Names()),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		Stdout:          out,
	})
	if err != nil {
		return fmt.Errorf("failed to start line editor: %w", err)
	}
	defer rl.Close()

	log := a.logs.For(logging.CategoryShell)
	log.Info("session started", zap.String("session", in.ID()))
	in.Printer().Section("kbshell: type @help . for the list of commands, exit to quit.\n")

	var pending strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			pending.Reset()
			rl.SetPrompt(a.cfg.Shell.Prompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if pending.Len() == 0 && isExit(line) {
			return nil
		}
		pending.WriteString(line)
		pending.WriteByte('\n')
		if !inputComplete(pending.String()) {
			if strings.TrimSpace(pending.String()) == "" {
				pending.Reset()
			} else {
				rl.SetPrompt(continuationPrompt)
			}
			continue
		}

		text := pending.String()
		pending.Reset()
		rl.SetPrompt(a.cfg.Shell.Prompt)
		if err := in.RunText(text); err != nil {
			in.Printer().Error(err.Error() + "\n")
		}
	}
}
