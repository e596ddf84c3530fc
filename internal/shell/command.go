package shell

import "strings"

// Command is a parsed `@name arg ... .` directive.
type Command struct {
	Name      string
	Arguments []Argument
}

// String renders the command back into directive syntax.
func (c Command) String() string {
	var sb strings.Builder
	sb.WriteString("@")
	sb.WriteString(c.Name)
	for _, arg := range c.Arguments {
		sb.WriteString(" ")
		sb.WriteString(arg.String())
	}
	sb.WriteString(" .")
	return sb.String()
}

// Handler implements one command.
type Handler interface {
	// Run executes the command against the interpreter's session.
	Run(cmd Command, in *Interpreter) error
	// PrintHelp writes detailed usage for the command registered as name.
	// The text starts with "Usage: @<name> " and ends with a newline.
	PrintHelp(name string, p Printer)
	// Synopsis is a one-line description shown by @help.
	Synopsis() string
}
