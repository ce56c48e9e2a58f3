package rules_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.remake.sh/remake/internal/core/domain"
	"go.remake.sh/remake/internal/engine/rules"
)

func TestStore_FindRule_SpecificScriptedRuleIsReturnedAsIs(t *testing.T) {
	s := rules.NewStore()
	require.NoError(t, s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("out")},
		Script:  "touch out",
	}))

	r, err := s.FindRule(domain.NewTarget("out"))
	require.NoError(t, err)
	require.Equal(t, "touch out", r.Script)
}

func TestStore_FindRule_UnknownTargetWithNoGenericMatchIsEmpty(t *testing.T) {
	s := rules.NewStore()
	r, err := s.FindRule(domain.NewTarget("nope"))
	require.NoError(t, err)
	require.True(t, r.IsEmpty())
}

func TestStore_FindRule_DuplicateScriptedRuleForSameTargetFails(t *testing.T) {
	s := rules.NewStore()
	require.NoError(t, s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("out")},
		Script:  "touch out",
	}))
	err := s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("out")},
		Script:  "touch out-again",
	})
	require.ErrorIs(t, err, domain.ErrDuplicateRule)
}

func TestStore_FindRule_TransparentRulesForSameTargetMerge(t *testing.T) {
	s := rules.NewStore()
	require.NoError(t, s.AddRule(domain.Rule{
		Targets:       domain.Targets{domain.NewTarget("out")},
		Prerequisites: domain.Targets{domain.NewTarget("a")},
	}))
	require.NoError(t, s.AddRule(domain.Rule{
		Targets:       domain.Targets{domain.NewTarget("out")},
		Prerequisites: domain.Targets{domain.NewTarget("b")},
	}))

	r, err := s.FindRule(domain.NewTarget("out"))
	require.NoError(t, err)
	require.Equal(t, domain.Targets{domain.NewTarget("a"), domain.NewTarget("b")}, r.Prerequisites)
}

func TestStore_FindRule_TransparentThenScriptedForSameTargetFails(t *testing.T) {
	s := rules.NewStore()
	require.NoError(t, s.AddRule(domain.Rule{
		Targets:       domain.Targets{domain.NewTarget("out")},
		Prerequisites: domain.Targets{domain.NewTarget("a")},
	}))
	err := s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("out")},
		Script:  "touch out",
	})
	require.ErrorIs(t, err, domain.ErrDuplicateRule)
}

func TestStore_FindRule_GenericRuleMatchesSuffix(t *testing.T) {
	s := rules.NewStore()
	require.NoError(t, s.AddRule(domain.Rule{
		Targets:       domain.Targets{domain.NewTarget("%.o")},
		Prerequisites: domain.Targets{domain.NewTarget("%.c")},
		Script:        "cc -c %.c",
	}))

	r, err := s.FindRule(domain.NewTarget("foo.o"))
	require.NoError(t, err)
	require.Equal(t, domain.Targets{domain.NewTarget("foo.c")}, r.Prerequisites)
}

func TestStore_FindRule_GenericMatchCarriesStemForSubstitution(t *testing.T) {
	s := rules.NewStore()
	require.NoError(t, s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("u%")},
		Script:  "echo $*",
	}))

	r, err := s.FindRule(domain.NewTarget("uesu"))
	require.NoError(t, err)
	require.Equal(t, "esu", r.Stem)
}

func TestStore_FindRule_SpecificRuleCarriesNoStem(t *testing.T) {
	s := rules.NewStore()
	require.NoError(t, s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("foo.o")},
		Script:  "cc -c foo.c",
	}))

	r, err := s.FindRule(domain.NewTarget("foo.o"))
	require.NoError(t, err)
	require.Empty(t, r.Stem)
}

func TestStore_FindRule_GenericPatternWithShorterStemWins(t *testing.T) {
	s := rules.NewStore()
	require.NoError(t, s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("%.o")},
		Script:  "generic-short",
	}))
	require.NoError(t, s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("foo%.o")},
		Script:  "generic-long",
	}))

	r, err := s.FindRule(domain.NewTarget("foobar.o"))
	require.NoError(t, err)
	require.Equal(t, "generic-long", r.Script)
}

func TestStore_FindRule_GenericMatchAugmentedBySpecificTransparentRule(t *testing.T) {
	s := rules.NewStore()
	require.NoError(t, s.AddRule(domain.Rule{
		Targets:       domain.Targets{domain.NewTarget("%.o")},
		Prerequisites: domain.Targets{domain.NewTarget("%.c")},
		Script:        "cc -c %.c",
	}))
	require.NoError(t, s.AddRule(domain.Rule{
		Targets:       domain.Targets{domain.NewTarget("foo.o")},
		Prerequisites: domain.Targets{domain.NewTarget("extra.h")},
	}))

	r, err := s.FindRule(domain.NewTarget("foo.o"))
	require.NoError(t, err)
	require.Contains(t, r.Prerequisites, domain.NewTarget("foo.c"))
	require.Contains(t, r.Prerequisites, domain.NewTarget("extra.h"))
}

func TestStore_FindRule_SpecificScriptedRuleShadowsGenericMatch(t *testing.T) {
	s := rules.NewStore()
	require.NoError(t, s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("%.o")},
		Script:  "generic",
	}))
	require.NoError(t, s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("foo.o")},
		Script:  "specific",
	}))

	r, err := s.FindRule(domain.NewTarget("foo.o"))
	require.NoError(t, err)
	require.Equal(t, "specific", r.Script)
}

func TestStore_FindRule_MultiTargetGenericAugmentedBySiblingWithScriptFails(t *testing.T) {
	s := rules.NewStore()
	require.NoError(t, s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("%.o"), domain.NewTarget("%.d")},
		Script:  "cc -MMD -c %.c",
	}))
	require.NoError(t, s.AddRule(domain.Rule{
		Targets: domain.Targets{domain.NewTarget("foo.d")},
		Script:  "touch foo.d",
	}))

	_, err := s.FindRule(domain.NewTarget("foo.o"))
	require.ErrorIs(t, err, domain.ErrIllFormedRule)
}
