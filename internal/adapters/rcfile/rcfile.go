// Package rcfile loads the optional `.remakerc.yaml` file that sets
// per-project defaults for flags CI invocations would otherwise have to
// repeat every time: a plain DTO struct, read-then-unmarshal, zerr-wrapped
// errors.
package rcfile

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

// FileName is the rc file's fixed name, looked up directly under the
// build root; there is no parent-directory search.
const FileName = ".remakerc.yaml"

// Config holds the subset of CLI flags `.remakerc.yaml` may default. A
// zero field means "not set in the file"; CLI flags always take priority
// over whatever this loads.
type Config struct {
	Jobs      int    `yaml:"jobs"`
	KeepGoing bool   `yaml:"keep_going"`
	Silent    bool   `yaml:"silent"`
	Rulefile  string `yaml:"rulefile"`
}

// Load reads FileName from root. A missing file is not an error and
// yields a zero Config.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, FileName)
	//nolint:gosec // path is joined from a cleaned, trusted build root
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, zerr.Wrap(err, "failed to read "+FileName)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, zerr.Wrap(err, "failed to parse "+FileName)
	}
	return &cfg, nil
}
