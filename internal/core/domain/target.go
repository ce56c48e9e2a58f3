package domain

// Target is a normalised path naming something the build can produce or
// observe. Equality is string equality after normalisation; two Targets
// built from the same normalised string always compare equal and share
// storage, since InternedString interns on construction.
type Target struct {
	s InternedString
}

// NewTarget wraps an already-normalised string as a Target. Callers outside
// this package should go through fs.Normaliser.Normalise instead.
func NewTarget(normalised string) Target {
	return Target{s: NewInternedString(normalised)}
}

// String returns the normalised path.
func (t Target) String() string {
	return t.s.String()
}

// IsZero reports whether t is the zero Target (never normalised).
func (t Target) IsZero() bool {
	return t == Target{}
}

// Targets is an ordered list of Target, preserving declaration order and
// duplicates the way rule prerequisite lists do.
type Targets []Target

// Strings renders a Targets list back to plain strings, in order.
func (ts Targets) Strings() []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.String()
	}
	return out
}
