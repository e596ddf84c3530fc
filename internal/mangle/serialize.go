package mangle

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Serialize writes the knowledge base as a rule file that the RULES load
// task reads back: directives for the base IRI, prefixes and data sources,
// followed by facts and rules in Mangle syntax.
func (kb *KnowledgeBase) Serialize(w io.Writer) error {
	bw := bufio.NewWriter(w)

	if base := kb.prefixes.Base(); base != "" {
		fmt.Fprintf(bw, "@base <%s> .\n", base)
	}
	for _, name := range kb.prefixes.Names() {
		iri, _ := kb.prefixes.Get(name)
		fmt.Fprintf(bw, "@setprefix %s : <%s> .\n", strconv.Quote(name), iri)
	}
	for _, d := range kb.sources {
		fmt.Fprintln(bw, d.String())
	}
	if kb.prefixes.Len() > 0 || len(kb.sources) > 0 {
		fmt.Fprintln(bw)
	}

	for _, f := range kb.facts {
		fmt.Fprintln(bw, FactString(f))
	}
	if len(kb.facts) > 0 && len(kb.rules) > 0 {
		fmt.Fprintln(bw)
	}
	for _, r := range kb.rules {
		fmt.Fprintln(bw, RuleString(r))
	}
	return bw.Flush()
}
