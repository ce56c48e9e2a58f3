package rules

import (
	"strings"

	"go.remake.sh/remake/internal/core/domain"
)

// FindRule implements spec §4.3: look up a specific rule at t, search the
// generic list for the best pattern match, then merge the two per the
// selection rules. An empty Rule with no error means "no applicable rule";
// an empty Rule with ErrIllFormedRule means a multi-target generic match
// was augmented by a sibling specific rule that itself carries a script.
func (s *Store) FindRule(t domain.Target) (domain.Rule, error) {
	specific, hasSpecific := s.specific[t]
	if hasSpecific && specific.HasScript() {
		return *specific, nil
	}

	generic, matched := s.findGeneric(t)
	if !matched {
		if hasSpecific {
			return *specific, nil
		}
		return domain.Rule{}, nil
	}

	if len(generic.Targets) == 1 {
		if hasSpecific {
			generic.Prerequisites = append(generic.Prerequisites, specific.Prerequisites...)
			generic.OrderOnly = append(generic.OrderOnly, specific.OrderOnly...)
			generic.Overrides = append(generic.Overrides, specific.Overrides...)
		}
		return generic, nil
	}

	for _, gt := range generic.Targets {
		sib, ok := s.specific[gt]
		if !ok {
			continue
		}
		if sib.HasScript() {
			return domain.Rule{}, domain.ErrIllFormedRule
		}
		generic.Prerequisites = append(generic.Prerequisites, sib.Prerequisites...)
		generic.OrderOnly = append(generic.OrderOnly, sib.OrderOnly...)
		generic.Overrides = append(generic.Overrides, sib.Overrides...)
	}
	return generic, nil
}

// findGeneric finds the best generic-rule match for target, mirroring
// find_generic_rule: shorter pattern length wins, ties broken by
// declaration order (the first-seen rule is never displaced by an
// equally-short later one, since only a strictly shorter match replaces
// the current best).
func (s *Store) findGeneric(target domain.Target) (domain.Rule, bool) {
	str := target.String()
	tlen := len(str)
	bestLen := tlen + 1
	var best domain.Rule
	matched := false

	for _, r := range s.generic {
		for _, pat := range r.Targets {
			p := pat.String()
			plen := len(p)
			if tlen < plen {
				continue
			}
			matchLen := tlen - (plen - 1)
			if bestLen <= matchLen {
				continue
			}
			pos := strings.IndexByte(p, '%')
			if pos < 0 {
				continue
			}
			suffixLen := plen - (pos + 1)
			if p[:pos] != str[:pos] || p[pos+1:] != str[tlen-suffixLen:] {
				continue
			}
			bestLen = matchLen
			pattern := str[pos : pos+matchLen]
			best = domain.Rule{
				Script: r.Script,
				Targets: substitutePattern(pattern, r.Targets),
				Prerequisites: substitutePattern(pattern, r.Prerequisites),
				OrderOnly: substitutePattern(pattern, r.OrderOnly),
				Stem: pattern,
			}
			matched = true
			break
		}
	}
	return best, matched
}

// substitutePattern replaces the first '%' in each of src's entries with
// pat, leaving entries without a '%' untouched.
func substitutePattern(pat string, src domain.Targets) domain.Targets {
	if len(src) == 0 {
		return nil
	}
	out := make(domain.Targets, len(src))
	for i, t := range src {
		str := t.String()
		pos := strings.IndexByte(str, '%')
		if pos < 0 {
			out[i] = t
			continue
		}
		out[i] = domain.NewTarget(str[:pos] + pat + str[pos+1:])
	}
	return out
}
