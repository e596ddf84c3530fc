package shell

import "bytes"

// ShowKBCommand prints the knowledge base.
type ShowKBCommand struct{}

func (c *ShowKBCommand) Synopsis() string { return "print the knowledge base" }

func (c *ShowKBCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, "",
		"Prints prefixes, data sources, facts and rules in rule file syntax.")
}

func (c *ShowKBCommand) Run(cmd Command, in *Interpreter) error {
	if err := ValidateArgumentCount(cmd, 0); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := in.KnowledgeBase().Serialize(&buf); err != nil {
		return wrapExecutionError(err, "failed to print knowledge base")
	}
	p := in.Printer()
	if buf.Len() == 0 {
		p.Normal("The knowledge base is empty.\n")
		return nil
	}
	p.Code(buf.String())
	return nil
}
