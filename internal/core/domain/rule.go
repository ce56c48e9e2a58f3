package domain

// Rule is a single parsed Remakefile rule: a set of targets it builds, the
// prerequisites listed for them, and the recipe script to run when they are
// obsolete. Either Targets entry produced by a generic ("%") rule or a
// specific rule; the rule store is responsible for merging the two before a
// Rule is ever handed to the scheduler.
type Rule struct {
	Targets Targets
	// Prerequisites are ordinary deps: a prerequisite's own obsolescence
	// forces a rebuild of Targets.
	Prerequisites Targets
	// OrderOnly prerequisites must exist and be built first, but their own
	// freshness never forces Targets to rebuild.
	OrderOnly Targets
	// Overrides are rule-local variable assignments, resolved per §4.6.
	Overrides []Override
	Script string
	// Stem is the text the '%' in a generic rule's pattern matched against
	// this target, for $* in the recipe script. Empty for a specific rule.
	Stem string
}

// IsEmpty reports whether r names no targets, the remake equivalent of "no
// rule found".
func (r Rule) IsEmpty() bool {
	return len(r.Targets) == 0
}

// HasScript reports whether r carries a non-empty recipe.
func (r Rule) HasScript() bool {
	return r.Script != ""
}

// Override represents a target-specific variable assignment scoped to the
// rule that builds it, written as an indented `VAR = value` line right
// after the rule header. Values is an ordered
// list of whitespace-separated tokens, matching VariableTable entries.
type Override struct {
	Name string
	Values []string
	// Append marks a `VAR += value` assignment, as opposed to `VAR = value`.
	Append bool
}
