package flow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type graphFile struct {
	QuestionSets []Graph `yaml:"question_sets"`
}

// Load reads question graphs from a YAML file and validates each one. An
// empty path returns the built-in defaults.
func Load(path string) (GraphSet, error) {
	if path == "" {
		return Defaults(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question sets file: %w", err)
	}
	var file graphFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse question sets file: %w", err)
	}

	set := make(GraphSet, len(file.QuestionSets))
	for i := range file.QuestionSets {
		g := &file.QuestionSets[i]
		if err := g.init(); err != nil {
			return nil, err
		}
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if _, dup := set[g.QuestionSetID]; dup {
			return nil, fmt.Errorf("duplicate question set id %s", g.QuestionSetID)
		}
		set[g.QuestionSetID] = g
	}
	return set, nil
}
