package shell

import "strings"

const (
	exportKB         = "KB"
	exportInferences = "INFERENCES"
)

// ExportCommand writes the knowledge base or the inferences to a file.
type ExportCommand struct{}

func (c *ExportCommand) Synopsis() string { return "write the knowledge base or all inferences to a file" }

func (c *ExportCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, `KB|INFERENCES "<file>"`,
		"KB: write facts, rules, data sources and prefixes as a loadable rule file",
		"INFERENCES: write every fact of the current materialization")
}

func (c *ExportCommand) Run(cmd Command, in *Interpreter) error {
	if err := ValidateArgumentCount(cmd, 2); err != nil {
		return err
	}
	what, err := ExtractName(cmd, 1, "KB or INFERENCES")
	if err != nil {
		return err
	}
	what = strings.ToUpper(what)
	if what != exportKB && what != exportInferences {
		return executionErrorf("unknown export task %q; expected %s or %s", what, exportKB, exportInferences)
	}
	path, err := ExtractString(cmd, 2, "file")
	if err != nil {
		return err
	}

	w, err := in.OpenOutput(path)
	if err != nil {
		return wrapExecutionError(err, "failed to create %s", path)
	}
	defer w.Close()

	p := in.Printer()
	if what == exportKB {
		if err := in.KnowledgeBase().Serialize(w); err != nil {
			return wrapExecutionError(err, "failed to write %s", path)
		}
		if err := w.Close(); err != nil {
			return wrapExecutionError(err, "failed to write %s", path)
		}
		p.Normal("Exported knowledge base to ")
		p.Code(path)
		p.Normal(".\n")
		return nil
	}

	correctness, err := in.Reasoner().DumpInferences(w)
	if err != nil {
		return wrapExecutionError(err, "failed to write %s", path)
	}
	if err := w.Close(); err != nil {
		return wrapExecutionError(err, "failed to write %s", path)
	}
	p.Normal("Exported inferences to ")
	p.Code(path)
	p.Normal(".")
	printCorrectness(p, correctness)
	return nil
}

