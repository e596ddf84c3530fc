package shell

import (
	"fmt"
	"time"

	"kbshell/internal/mangle"
)

// ReasonCommand materializes the knowledge base.
type ReasonCommand struct{}

func (c *ReasonCommand) Synopsis() string { return "compute all inferences of the knowledge base" }

func (c *ReasonCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, "",
		"Loads every data source and computes all facts that follow from the rules.",
		"Queries answered before the next @reason may miss or retain stale answers.")
}

func (c *ReasonCommand) Run(cmd Command, in *Interpreter) error {
	if err := ValidateArgumentCount(cmd, 0); err != nil {
		return err
	}
	p := in.Printer()
	p.Normal("Loading data sources and materializing inferences ...\n")
	start := time.Now()
	correctness, err := in.Reasoner().Reason()
	if err != nil {
		return wrapExecutionError(err, "materialization failed")
	}
	p.Normal("... finished in ")
	p.Emphasis(fmt.Sprintf("%d ms", elapsedMillis(in.Reasoner(), start)))
	p.Normal(".")
	printCorrectness(p, correctness)
	return nil
}

// elapsedMillis prefers the duration the reasoner reports and falls back to
// the wall time since start.
func elapsedMillis(r Reasoner, start time.Time) int64 {
	if d := r.LastDuration(); d > 0 {
		return d.Milliseconds()
	}
	return time.Since(start).Milliseconds()
}

func printCorrectness(p Printer, c mangle.Correctness) {
	p.Normal(" Results are ")
	if c == mangle.SoundAndComplete {
		p.Normal(c.String())
	} else {
		p.Important(c.String())
	}
	p.Normal(".\n")
}
