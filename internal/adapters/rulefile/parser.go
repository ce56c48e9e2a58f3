// Package rulefile implements the small Remakefile parser SPEC_FULL §1
// commits this repo to: a hand-rolled tokenizer plus a recursive-descent
// rule/variable/override reader (see remake.cpp's next_token/read_word/
// read_words/load_rule/load_rules for the reference grammar). It is
// deliberately minimal and not optimized for rich diagnostics.
package rulefile

import (
	"os"
	"strings"

	"go.trai.ch/zerr"

	"go.remake.sh/remake/internal/core/domain"
)

// Normaliser is the subset of fs.Normaliser the parser needs to turn raw
// target/prerequisite words into domain.Target values.
type Normaliser interface {
	Normalise(raw string) domain.Target
}

// Parser loads a Remakefile into a domain.RuleFile.
type Parser struct {
	normaliser Normaliser
}

// New creates a Parser that normalises every word it reads through n.
func New(n Normaliser) *Parser {
	return &Parser{normaliser: n}
}

// Load reads and parses the Remakefile at path.
func (p *Parser) Load(path string) (*domain.RuleFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load rules")
	}
	s := &scanner{buf: string(raw)}
	vars := domain.VariableTable{}
	rf := &domain.RuleFile{Variables: vars}

	s.skipEOL()
	for {
		c, ok := s.byteAt(s.pos)
		if !ok {
			break
		}
		if c == '#' {
			s.skipLine()
			s.skipEOL()
			continue
		}
		if c == ' ' || c == '\t' {
			return nil, zerr.With(domain.ErrRuleFileSyntax, "reason", "unexpected indentation")
		}

		switch s.nextToken() {
		case tokWord:
			name := s.readWord()
			if name == "" {
				return nil, domain.ErrRuleFileSyntax
			}
			if s.nextToken() == tokEqual {
				s.pos++
				tokens, err := p.readWords(s, vars)
				if err != nil {
					return nil, err
				}
				vars.Set(name, tokens)
				s.skipEOL()
				continue
			}
			rule, err := p.loadRule(s, vars, name)
			if err != nil {
				return nil, err
			}
			addRule(rf, rule)
		case tokDollar:
			rule, err := p.loadRule(s, vars, "")
			if err != nil {
				return nil, err
			}
			addRule(rf, rule)
		default:
			return nil, domain.ErrRuleFileSyntax
		}
	}
	return rf, nil
}

// loadRule reads one rule starting with target word first (already
// consumed from the front, or "" if the target list starts with a
// "$(...)" reference), mirroring remake.cpp's load_rule.
func (p *Parser) loadRule(s *scanner, vars domain.VariableTable, first string) (domain.Rule, error) {
	rest, err := p.readWords(s, vars)
	if err != nil {
		return domain.Rule{}, err
	}
	var rawTargets []string
	if first != "" {
		rawTargets = append([]string{first}, rest...)
	} else {
		if len(rest) == 0 {
			return domain.Rule{}, domain.ErrRuleFileSyntax
		}
		rawTargets = rest
	}

	generic := false
	targets := make(domain.Targets, len(rawTargets))
	for i, raw := range rawTargets {
		if raw == "" {
			return domain.Rule{}, domain.ErrRuleFileSyntax
		}
		isPattern := strings.Contains(raw, "%")
		if isPattern != generic {
			if i == 0 {
				generic = true
			} else {
				return domain.Rule{}, domain.ErrRuleFileSyntax
			}
		}
		targets[i] = p.normaliser.Normalise(raw)
	}

	s.skipSpaces()
	c, ok := s.byteAt(s.pos)
	if !ok || c != ':' {
		return domain.Rule{}, domain.ErrRuleFileSyntax
	}
	s.pos++

	prereqWords, err := p.readWords(s, vars)
	if err != nil {
		return domain.Rule{}, err
	}
	rule := domain.Rule{
		Targets:       targets,
		Prerequisites: normaliseAll(p.normaliser, prereqWords),
	}

	if s.nextToken() == tokPipe {
		s.pos++
		orderOnly, err := p.readWords(s, vars)
		if err != nil {
			return domain.Rule{}, err
		}
		rule.OrderOnly = normaliseAll(p.normaliser, orderOnly)
	}

	s.skipSpaces()
	if !s.atEOL() {
		return domain.Rule{}, domain.ErrRuleFileSyntax
	}
	s.skipEOL()

	overrides, script, err := p.readOverridesAndScript(s, vars)
	if err != nil {
		return domain.Rule{}, err
	}
	rule.Overrides = overrides
	rule.Script = script
	return rule, nil
}

// readOverridesAndScript consumes the indented lines following a rule
// header (SPEC_FULL §4.5/§4.6): each is tried first as a target-specific
// variable assignment, "NAME = tokens" or "NAME += tokens" (a trailing
// '+' on the name before '=' marks an append); the first indented line
// that isn't one of those ends override-reading and starts the recipe
// script, read exactly as remake.cpp's script loop would from there.
func (p *Parser) readOverridesAndScript(s *scanner, vars domain.VariableTable) ([]domain.Override, string, error) {
	var overrides []domain.Override
	for {
		lineStart := s.pos
		c, ok := s.byteAt(s.pos)
		if !ok || (c != '\t' && c != ' ') {
			return overrides, "", nil
		}
		s.pos++
		end := s.pos
		for end < len(s.buf) && s.buf[end] != '\n' {
			end++
		}
		line := strings.TrimRight(s.buf[s.pos:end], "\r")

		ov, err, isAssign := parseOverrideLine(p, line, vars)
		if err != nil {
			return nil, "", err
		}
		if !isAssign {
			s.pos = lineStart
			return overrides, p.readScript(s), nil
		}
		overrides = append(overrides, ov)
		s.pos = end
		s.skipEOL()
	}
}

// parseOverrideLine tries to read line (one indented line's content,
// leading whitespace already stripped) as "NAME = tokens" / "NAME +=
// tokens". isAssign is false, with no error, when line doesn't match —
// it is ordinary script text instead.
func parseOverrideLine(p *Parser, line string, vars domain.VariableTable) (ov domain.Override, err error, isAssign bool) {
	sub := &scanner{buf: line}
	if sub.nextToken() != tokWord {
		return domain.Override{}, nil, false
	}
	w := sub.readWord()
	if sub.nextToken() != tokEqual {
		return domain.Override{}, nil, false
	}
	sub.pos++
	name := strings.TrimSuffix(w, "+")
	appendAssign := strings.HasSuffix(w, "+")
	values, err := p.readWords(sub, vars)
	if err != nil {
		return domain.Override{}, err, false
	}
	return domain.Override{Name: name, Values: values, Append: appendAssign}, nil, true
}

// readWords reads a plain word list, expanding "$(NAME)" references and
// "$(addprefix ...)"/"$(addsuffix ...)" calls, mirroring remake.cpp's
// read_words. Used for target lists, plain prerequisite/order-only
// lists, variable assignments, and function arguments.
func (p *Parser) readWords(s *scanner, vars domain.VariableTable) ([]string, error) {
	var res []string
	for {
		switch s.nextToken() {
		case tokWord:
			res = append(res, s.readWord())
		case tokDollar:
			expanded, err := p.readDollar(s, vars)
			if err != nil {
				return nil, err
			}
			res = append(res, expanded...)
		default:
			return res, nil
		}
	}
}

// readDollar consumes a "$(...)" reference or function call, the '$'
// not yet having been consumed.
func (p *Parser) readDollar(s *scanner, vars domain.VariableTable) ([]string, error) {
	s.pos++
	c, ok := s.byteAt(s.pos)
	if !ok || c != '(' {
		return nil, domain.ErrRuleFileSyntax
	}
	s.pos++
	name := s.readWord()
	if name == "" {
		return nil, domain.ErrRuleFileSyntax
	}
	if s.nextToken() == tokRightParen {
		s.pos++
		return append([]string{}, vars.Get(name)...), nil
	}
	return p.executeFunction(s, vars, name)
}

// executeFunction implements the two built-in functions remake.cpp
// defines: addprefix and addsuffix, each "$(fn ARG, word word...)".
func (p *Parser) executeFunction(s *scanner, vars domain.VariableTable, name string) ([]string, error) {
	s.skipSpaces()
	arg := s.readWord()
	if s.nextToken() != tokComma {
		return nil, domain.ErrRuleFileSyntax
	}
	s.pos++
	names, err := p.readWords(s, vars)
	if err != nil {
		return nil, err
	}
	if s.nextToken() != tokRightParen {
		return nil, domain.ErrRuleFileSyntax
	}
	s.pos++
	switch name {
	case "addprefix":
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = arg + n
		}
		return out, nil
	case "addsuffix":
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = n + arg
		}
		return out, nil
	default:
		return nil, domain.ErrRuleFileSyntax
	}
}

// readScript consumes the recipe lines following a rule header: every
// tab/space-indented or blank line immediately after the header,
// stopping at the first line that starts with anything else (the next
// rule, a comment, or end of file). Mirrors remake.cpp's script-reading
// loop byte for byte, including which characters actually end up in the
// script text.
func (p *Parser) readScript(s *scanner) string {
	var buf strings.Builder
	for {
		c, ok := s.byteAt(s.pos)
		if !ok {
			break
		}
		if c == '\t' || c == ' ' {
			s.pos++
			for {
				c2, ok2 := s.byteAt(s.pos)
				if !ok2 || c2 == '\n' {
					break
				}
				buf.WriteByte(c2)
				s.pos++
			}
		} else if c == '\r' || c == '\n' {
			buf.WriteByte(c)
			s.pos++
		} else {
			break
		}
	}
	return buf.String()
}

// normaliseAll normalises every raw word through n, preserving order.
func normaliseAll(n Normaliser, raw []string) domain.Targets {
	out := make(domain.Targets, len(raw))
	for i, r := range raw {
		out[i] = n.Normalise(r)
	}
	return out
}

// addRule records a parsed rule and captures the first target of the
// first non-generic rule as the default target, remake.cpp's
// first_target.
func addRule(rf *domain.RuleFile, r domain.Rule) {
	rf.Rules = append(rf.Rules, r)
	if rf.DefaultTarget.IsZero() && len(r.Targets) > 0 && !strings.Contains(r.Targets[0].String(), "%") {
		rf.DefaultTarget = r.Targets[0]
	}
}
