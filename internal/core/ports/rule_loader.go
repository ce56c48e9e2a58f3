package ports

import "go.remake.sh/remake/internal/core/domain"

// RuleLoader parses a Remakefile at path into its rules and global
// variable table (spec §4.2).
//
//go:generate go run go.uber.org/mock/mockgen -source=rule_loader.go -destination=mocks/mock_rule_loader.go -package=mocks
type RuleLoader interface {
	// Load reads and parses the Remakefile at path.
	Load(path string) (*domain.RuleFile, error)
}
