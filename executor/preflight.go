package executor

import (
	"path/filepath"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// preflightPrereqs parses YAML prerequisites before the recipe runs, so
// a broken descriptions file fails with a pointed error instead of an
// opaque renderer failure. An empty document (a bare separator) is
// valid.
func (o *Orchestrator) preflightPrereqs(prereqs []string) error {
	for _, p := range prereqs {
		switch filepath.Ext(p) {
		case ".yaml", ".yml":
			data, err := o.fs.ReadFile(p)
			if err != nil {
				return errors.Wrapf(err, "failed to read prerequisite %s", p)
			}
			var doc interface{}
			if err := yaml.Unmarshal(data, &doc); err != nil {
				return errors.Wrapf(err, "prerequisite %s is not valid YAML", p)
			}
		}
	}
	return nil
}
