// Package script expands a rule's shell recipe per spec §4.6: automatic
// variables ($@ $< $^ $* $$), $(NAME) variable references with rule-local
// override precedence, and the addprefix/addsuffix built-in functions.
package script

import (
	"strings"

	"go.remake.sh/remake/internal/core/domain"
)

// Context carries everything needed to expand one rule's script.
type Context struct {
	// Rule is the fully-matched rule (targets/prerequisites already
	// %-substituted and augmented per §4.3).
	Rule domain.Rule
	// Pattern is the %-substitution value that produced Rule, for $*. Empty
	// for specific rules.
	Pattern string
	Globals domain.VariableTable
}

// Expand renders Rule.Script with every $-escape resolved.
func Expand(ctx Context) string {
	var out strings.Builder
	s := ctx.Rule.Script
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '$' {
			out.WriteByte(c)
			continue
		}
		if i+1 >= len(s) {
			out.WriteByte('$')
			break
		}
		next := s[i+1]
		switch next {
		case '$':
			out.WriteByte('$')
			i++
		case '<':
			out.WriteString(firstOrEmpty(allPrerequisites(ctx.Rule)))
			i++
		case '^':
			out.WriteString(joinTargets(allPrerequisites(ctx.Rule)))
			i++
		case '@':
			out.WriteString(firstOrEmpty(ctx.Rule.Targets))
			i++
		case '*':
			out.WriteString(ctx.Pattern)
			i++
		case '(':
			consumed := expandParenForm(s[i+2:], ctx, &out)
			i += 1 + consumed
		default:
			out.WriteByte('$')
			out.WriteByte(next)
			i++
		}
	}
	return out.String()
}

// expandParenForm expands either a $(NAME) reference or a $(fn ARGS) call,
// given the text immediately after "$(". Returns the number of input bytes
// consumed, not counting the leading "(".
func expandParenForm(rest string, ctx Context, out *strings.Builder) int {
	closeIdx := strings.IndexByte(rest, ')')
	if closeIdx < 0 {
		out.WriteString("$(")
		return len(rest)
	}
	inner := rest[:closeIdx]
	if name, args, ok := strings.Cut(inner, " "); ok && isFunctionCall(name) {
		out.WriteString(strings.Join(callFunction(name, args), " "))
	} else {
		out.WriteString(strings.Join(resolveVariable(inner, ctx.Rule.Overrides, ctx.Globals), " "))
	}
	return closeIdx + 1
}

func isFunctionCall(name string) bool {
	return name == "addprefix" || name == "addsuffix"
}

// callFunction evaluates a built-in function call. args is "prefix, list"
// (or "suffix, list"), comma-separated, with list itself whitespace
// separated per Remakefile word-list conventions.
func callFunction(name, args string) []string {
	prefix, list, ok := strings.Cut(args, ",")
	if !ok {
		return nil
	}
	prefix = strings.TrimSpace(prefix)
	items := strings.Fields(list)
	out := make([]string, len(items))
	for i, it := range items {
		if name == "addprefix" {
			out[i] = prefix + it
		} else {
			out[i] = it + prefix
		}
	}
	return out
}

// resolveVariable resolves NAME to its token list, applying rule-local
// override precedence per spec §4.6: the last non-append assignment to
// NAME (if any) is the base, and every append to NAME after it is applied
// in order; absent any non-append, the base is the global value and every
// override-append applies in order.
func resolveVariable(name string, overrides []domain.Override, globals domain.VariableTable) []string {
	var base []string
	baseSet := false
	var appends [][]string
	for _, o := range overrides {
		if o.Name != name {
			continue
		}
		if !o.Append {
			base = append([]string{}, o.Values...)
			baseSet = true
			appends = nil
			continue
		}
		appends = append(appends, o.Values)
	}
	if !baseSet {
		base = globals.Get(name)
	}
	result := make([]string, 0, len(base))
	result = append(result, base...)
	for _, a := range appends {
		result = append(result, a...)
	}
	return result
}

// allPrerequisites returns Rule.Prerequisites followed by Rule.OrderOnly:
// $< and $^ treat order-only prerequisites like ordinary ones, only
// get_status's freshness comparison excludes them.
func allPrerequisites(r domain.Rule) domain.Targets {
	if len(r.OrderOnly) == 0 {
		return r.Prerequisites
	}
	out := make(domain.Targets, 0, len(r.Prerequisites)+len(r.OrderOnly))
	out = append(out, r.Prerequisites...)
	out = append(out, r.OrderOnly...)
	return out
}

func firstOrEmpty(ts domain.Targets) string {
	if len(ts) == 0 {
		return ""
	}
	return ts[0].String()
}

func joinTargets(ts domain.Targets) string {
	return strings.Join(ts.Strings(), " ")
}
