// Package rules holds the rule store (registration) and matcher
// (selection) that together implement spec §4.2/§4.3: specific rules
// keyed by target, and an ordered list of generic (%-pattern) rules.
package rules

import (
	"fmt"
	"strings"

	"go.remake.sh/remake/internal/core/domain"
)

// Store holds every rule loaded from a Remakefile: specific rules keyed
// by target, and generic rules in declaration order. The default target
// itself is tracked by domain.RuleFile, not here — Store only matches
// rules once a target is already known.
type Store struct {
	specific map[domain.Target]*domain.Rule
	generic []domain.Rule
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{specific: make(map[domain.Target]*domain.Rule)}
}

// AddRule registers r, dispatching to the generic list or to one of the
// two specific-rule registration modes depending on genericity and
// whether r carries a script.
func (s *Store) AddRule(r domain.Rule) error {
	if isGeneric(r.Targets) {
		s.generic = append(s.generic, r)
		return nil
	}
	var err error
	if r.HasScript() {
		err = s.addScripted(r)
	} else {
		err = s.addTransparent(r)
	}
	return err
}

// addScripted registers a scripted specific rule: one shared rule object
// for every declared target. Fails if any declared target already has a
// specific rule of its own.
func (s *Store) addScripted(r domain.Rule) error {
	for _, t := range r.Targets {
		if _, exists := s.specific[t]; exists {
			return fmt.Errorf("%w: target %s", domain.ErrDuplicateRule, t.String())
		}
	}
	shared := r
	for _, t := range r.Targets {
		s.specific[t] = &shared
	}
	return nil
}

// addTransparent registers a transparent specific rule (empty script): a
// clone is stored per declared target, merging prerequisites/order-only/
// overrides into any pre-existing transparent rule for that target. Fails
// if the target already carries a scripted rule.
func (s *Store) addTransparent(r domain.Rule) error {
	for _, t := range r.Targets {
		if existing, ok := s.specific[t]; ok {
			if existing.HasScript() {
				return fmt.Errorf("%w: target %s", domain.ErrDuplicateRule, t.String())
			}
			existing.Prerequisites = append(existing.Prerequisites, r.Prerequisites...)
			existing.OrderOnly = append(existing.OrderOnly, r.OrderOnly...)
			existing.Overrides = append(existing.Overrides, r.Overrides...)
			continue
		}
		clone := domain.Rule{
			Targets: domain.Targets{t},
			Prerequisites: append(domain.Targets{}, r.Prerequisites...),
			OrderOnly: append(domain.Targets{}, r.OrderOnly...),
			Overrides: append([]domain.Override{}, r.Overrides...),
		}
		s.specific[t] = &clone
	}
	return nil
}

// isGeneric reports whether targets is a generic target-pattern list
// (every entry contains exactly one '%').
func isGeneric(targets domain.Targets) bool {
	if len(targets) == 0 {
		return false
	}
	return strings.Contains(targets[0].String(), "%")
}
