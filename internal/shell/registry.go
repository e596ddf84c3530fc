package shell

// Registry maps command names to handlers and remembers the order in which
// names were first registered.
type Registry struct {
	names    []string
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register installs h under name. Registering an existing name replaces the
// handler and keeps its position.
func (r *Registry) Register(name string, h Handler) {
	if _, ok := r.handlers[name]; !ok {
		r.names = append(r.names, name)
	}
	r.handlers[name] = h
}

// Lookup returns the handler registered under name.
func (r *Registry) Lookup(name string) (Handler, bool) {
	h, ok := r.handlers[name]
	return h, ok
}

// Names returns the registered names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.names...)
}

func registerBuiltins(r *Registry) {
	r.Register("help", &HelpCommand{})
	r.Register("load", &LoadCommand{})
	r.Register("assert", &AssertCommand{})
	r.Register("retract", &RetractCommand{})
	r.Register("addsource", &AddSourceCommand{})
	r.Register("delsource", &DelSourceCommand{})
	r.Register("setprefix", &SetPrefixCommand{})
	r.Register("clear", &ClearCommand{})
	r.Register("reason", &ReasonCommand{})
	r.Register("query", &QueryCommand{})
	r.Register("export", &ExportCommand{})
	r.Register("showkb", &ShowKBCommand{})
}
