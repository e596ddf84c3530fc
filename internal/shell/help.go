package shell

import (
	"fmt"
	"strings"
)

// HelpCommand lists commands or shows the usage of one.
type HelpCommand struct{}

func (c *HelpCommand) Synopsis() string { return "print a list of commands, or the help of one command" }

func (c *HelpCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, "[command name]",
		"command name: the command to explain, with or without the leading @")
}

func (c *HelpCommand) Run(cmd Command, in *Interpreter) error {
	if err := ValidateArgumentCount(cmd, 0, 1); err != nil {
		return err
	}
	p := in.Printer()
	if len(cmd.Arguments) == 0 {
		p.Section("Available commands:\n")
		for _, name := range in.Registry().Names() {
			h, _ := in.Registry().Lookup(name)
			p.Code(fmt.Sprintf("  @%-12s", name))
			p.Normal(h.Synopsis() + "\n")
		}
		p.Normal("\nFor more information on a command, use ")
		p.Code("@" + cmd.Name + " command_name .")
		p.Normal("\n")
		return nil
	}

	name, err := ExtractName(cmd, 1, "command name")
	if err != nil {
		return err
	}
	name = strings.TrimPrefix(name, "@")
	h, ok := in.Registry().Lookup(name)
	if !ok {
		return &CommandExecutionError{Message: fmt.Sprintf("no help for @%s", name), Cause: ErrUnknownCommand}
	}
	h.PrintHelp(name, p)
	return nil
}

// printUsage writes the usage line of a command followed by one indented
// line per detail.
func printUsage(p Printer, name, synopsis string, details ...string) {
	line := "Usage: @" + name + " "
	if synopsis != "" {
		line += synopsis + " "
	}
	p.Normal(line + ".\n")
	for _, d := range details {
		p.Normal("  " + d + "\n")
	}
}
