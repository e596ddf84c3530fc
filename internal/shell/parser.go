package shell

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"kbshell/internal/mangle"
)

// Operators that join the tokens around them into one rule or term argument.
var operators = map[string]bool{
	":-": true,
	"=":  true,
	"!=": true,
	"<":  true,
	"<=": true,
	">":  true,
	">=": true,
	"!":  true,
}

var literalPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*\(`)

// ParseCommand parses text holding exactly one command.
func ParseCommand(text string) (Command, error) {
	cmds, err := ParseScript(text)
	if err != nil {
		return Command{}, err
	}
	if len(cmds) != 1 {
		return Command{}, &ParseError{Line: 1, Column: 1,
			Message: fmt.Sprintf("expected exactly one command, found %d", len(cmds))}
	}
	return cmds[0], nil
}

// ParseScript parses a sequence of commands. `%` and `#` start comments that
// run to the end of the line.
func ParseScript(text string) ([]Command, error) {
	s := &scanner{src: text}
	var cmds []Command
	for {
		s.skipSpaceAndComments()
		if s.eof() {
			return cmds, nil
		}
		cmd, err := s.command()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
}

type token struct {
	text string
	pos  int
	iri  bool
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.src)
}

func (s *scanner) errorAt(pos int, cause error, format string, args ...any) *ParseError {
	line, col := 1, 1
	for i := 0; i < pos && i < len(s.src); i++ {
		if s.src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return &ParseError{Line: line, Column: col, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isNameChar(c byte) bool {
	return c == '_' || c == '-' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func (s *scanner) skipSpaceAndComments() {
	for !s.eof() {
		c := s.src[s.pos]
		switch {
		case isSpace(c):
			s.pos++
		case c == '%' || c == '#':
			for !s.eof() && s.src[s.pos] != '\n' {
				s.pos++
			}
		default:
			return
		}
	}
}

// atTerminator reports whether the scanner sits on the period that ends a
// command: a `.` followed by whitespace, a comment or the end of input.
func (s *scanner) atTerminator() bool {
	if s.eof() || s.src[s.pos] != '.' {
		return false
	}
	next := s.pos + 1
	return next >= len(s.src) || isSpace(s.src[next]) || s.src[next] == '%' || s.src[next] == '#'
}

func (s *scanner) command() (Command, error) {
	start := s.pos
	if s.src[s.pos] != '@' {
		return Command{}, s.errorAt(start, nil, "commands start with '@'")
	}
	s.pos++
	nameStart := s.pos
	for !s.eof() && isNameChar(s.src[s.pos]) {
		s.pos++
	}
	name := s.src[nameStart:s.pos]
	if name == "" {
		return Command{}, s.errorAt(nameStart, nil, "missing command name after '@'")
	}

	var tokens []token
	for {
		s.skipSpaceAndComments()
		if s.eof() {
			return Command{}, s.errorAt(s.pos, nil, "missing '.' at the end of @%s", name)
		}
		if s.atTerminator() {
			s.pos++
			break
		}
		tok, err := s.token()
		if err != nil {
			return Command{}, err
		}
		tokens = append(tokens, tok)
	}

	args, err := s.arguments(tokens)
	if err != nil {
		return Command{}, err
	}
	return Command{Name: name, Arguments: args}, nil
}

func (s *scanner) token() (token, error) {
	start := s.pos
	if s.src[s.pos] == '<' && s.pos+1 < len(s.src) && !isSpace(s.src[s.pos+1]) && s.src[s.pos+1] != '=' {
		end := strings.IndexByte(s.src[s.pos:], '>')
		if end < 0 || strings.ContainsAny(s.src[s.pos:s.pos+end], " \t\r\n") {
			return token{}, s.errorAt(start, nil, "unterminated IRI")
		}
		s.pos += end + 1
		return token{text: s.src[start:s.pos], pos: start, iri: true}, nil
	}

	depth := 0
	for !s.eof() {
		c := s.src[s.pos]
		if c == '"' {
			if err := s.skipString(); err != nil {
				return token{}, err
			}
			continue
		}
		if depth == 0 && (isSpace(c) || s.atTerminator()) {
			break
		}
		switch c {
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
			if depth < 0 {
				return token{}, s.errorAt(s.pos, nil, "unbalanced %q", string(c))
			}
		}
		s.pos++
	}
	if depth != 0 {
		return token{}, s.errorAt(start, nil, "unbalanced brackets")
	}
	return token{text: s.src[start:s.pos], pos: start}, nil
}

func (s *scanner) skipString() error {
	start := s.pos
	s.pos++
	for !s.eof() {
		switch s.src[s.pos] {
		case '\\':
			s.pos += 2
			continue
		case '"':
			s.pos++
			return nil
		}
		s.pos++
	}
	return s.errorAt(start, nil, "unterminated string")
}

func gluesForward(t token) bool {
	return !t.iri && (operators[t.text] || strings.HasSuffix(t.text, ",") || strings.HasSuffix(t.text, ":-"))
}

func gluesBackward(t token) bool {
	if t.iri || t.text == "!" {
		return false
	}
	return operators[t.text] || strings.HasPrefix(t.text, ",") || strings.HasPrefix(t.text, ":-")
}

// arguments groups tokens that belong to one rule or comparison and turns
// every group into an Argument. A lone `:` is a separator and is dropped.
func (s *scanner) arguments(tokens []token) ([]Argument, error) {
	var args []Argument
	for i := 0; i < len(tokens); {
		group := []token{tokens[i]}
		for i+1 < len(tokens) && (gluesForward(tokens[i]) || gluesBackward(tokens[i+1])) {
			i++
			group = append(group, tokens[i])
		}
		i++

		if len(group) == 1 && group[0].text == ":" {
			continue
		}
		arg, err := s.classify(group)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func (s *scanner) classify(group []token) (Argument, error) {
	first := group[0]
	if len(group) == 1 {
		switch {
		case first.iri:
			return IRIArgument{IRI: first.text[1 : len(first.text)-1]}, nil
		case strings.HasPrefix(first.text, `"`):
			value, err := strconv.Unquote(first.text)
			if err != nil {
				return nil, s.errorAt(first.pos, err, "invalid string %s", first.text)
			}
			return StringArgument{Value: value}, nil
		}
	}

	texts := make([]string, len(group))
	for i, t := range group {
		texts[i] = t.text
	}
	text := strings.Join(texts, " ")

	switch {
	case containsOutsideStrings(text, ":-"):
		rule, err := mangle.ParseRule(text)
		if err != nil {
			return nil, s.errorAt(first.pos, err, "invalid rule")
		}
		return RuleArgument{Rule: rule}, nil
	case len(group) == 1 && literalPattern.MatchString(text) && strings.HasSuffix(text, ")"):
		lit, err := mangle.ParseLiteral(text)
		if err != nil {
			return nil, s.errorAt(first.pos, err, "invalid literal")
		}
		return LiteralArgument{Literal: lit}, nil
	default:
		return TermArgument{Text: text}, nil
	}
}

func containsOutsideStrings(text, needle string) bool {
	inString := false
	for i := 0; i < len(text); i++ {
		switch {
		case inString && text[i] == '\\':
			i++
		case text[i] == '"':
			inString = !inString
		case !inString && strings.HasPrefix(text[i:], needle):
			return true
		}
	}
	return false
}
