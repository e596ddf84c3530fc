package shell

// SetPrefixCommand defines an IRI abbreviation.
type SetPrefixCommand struct{}

func (c *SetPrefixCommand) Synopsis() string { return "define or redefine an IRI prefix" }

func (c *SetPrefixCommand) PrintHelp(name string, p Printer) {
	printUsage(p, name, `"<prefix>" : <IRI>`,
		`prefix: the abbreviation, e.g. "ex"`,
		"IRI: the expansion in angle brackets, e.g. <http://example.org/>",
		"An existing definition of the prefix is replaced.")
}

func (c *SetPrefixCommand) Run(cmd Command, in *Interpreter) error {
	name, iri, err := prefixArguments(cmd)
	if err != nil {
		return err
	}
	if err := in.KnowledgeBase().SetPrefix(name, iri); err != nil {
		return wrapExecutionError(err, "failed to set prefix")
	}
	p := in.Printer()
	p.Normal("Prefix ")
	p.Code(name + ":")
	p.Normal(" now stands for ")
	p.Code("<" + iri + ">")
	p.Normal(".\n")
	return nil
}

func prefixArguments(cmd Command) (string, string, error) {
	if err := ValidateArgumentCount(cmd, 2); err != nil {
		return "", "", err
	}
	name, err := ExtractString(cmd, 1, "prefix")
	if err != nil {
		// `ex:` written without quotes is accepted as well.
		if term, termErr := ExtractName(cmd, 1, "prefix"); termErr == nil {
			name = term
		} else {
			return "", "", err
		}
	}
	iri, err := ExtractIRI(cmd, 2, "IRI")
	if err != nil {
		return "", "", err
	}
	return name, iri, nil
}
