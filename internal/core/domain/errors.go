package domain

import "go.trai.ch/zerr"

var (
	// ErrDuplicateRule is returned when a scripted rule claims a target that
	// already has a specific rule, or a transparent rule claims a target that
	// already has a scripted one.
	ErrDuplicateRule = zerr.New("duplicate rule for target")

	// ErrIllFormedRule is returned by the matcher when a generic rule's
	// augmentation would require a sibling specific rule that itself has a
	// script (see spec §4.3).
	ErrIllFormedRule = zerr.New("ill-formed rule")

	// ErrNoRule is returned by start() when a target has no applicable rule
	// and does not already exist.
	ErrNoRule = zerr.New("no rule to make target")

	// ErrCycleDetected is returned when the scheduler's progress guarantee
	// fires: every outstanding client is waiting on another.
	ErrCycleDetected = zerr.New("circular dependency detected")

	// ErrTargetFailed is returned (wrapped with the target name) when a
	// job's shell script exits non-zero.
	ErrTargetFailed = zerr.New("failed to build target")

	// ErrBuildFailed is the top-level sentinel returned by Bootstrap.Run
	// when any pseudo-client's request failed.
	ErrBuildFailed = zerr.New("build failed")

	// ErrUnknownJob is logged by the scheduler when a client posts a
	// request against a job id it doesn't recognise.
	ErrUnknownJob = zerr.New("unknown job id")

	// ErrNoDefaultTarget is returned when no targets were requested, -r was
	// not given, and no specific (non-generic) rule exists to serve as default.
	ErrNoDefaultTarget = zerr.New("no targets specified and no default target")

	// ErrRuleFileSyntax is returned by the Remakefile parser on any
	// lexical or grammatical error (missing ':', malformed "$(...)"
	// reference, stray indentation at top level).
	ErrRuleFileSyntax = zerr.New("failed to load rules: syntax error")
)
