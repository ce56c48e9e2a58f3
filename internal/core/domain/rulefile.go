package domain

// RuleFile is the parsed contents of a Remakefile: every rule in
// declaration order, the fully-resolved global variable table, and the
// first target of the file's first non-generic rule (remake's implicit
// default goal when no target is given on the command line).
type RuleFile struct {
	Rules []Rule
	Variables VariableTable
	DefaultTarget Target
}
