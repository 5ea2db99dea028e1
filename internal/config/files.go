package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/steveyegge/taskgate/internal/gates"
	"github.com/steveyegge/taskgate/internal/types"
)

// taskTypeFile is the on-disk layout of a task-type definitions file:
//
//	task_types:
//	  - id: cleaning
//	    display_name: Home cleaning
//	    required_fields: [title, description, budget_usd]
//	    minimum_budget_usd: 20
type taskTypeFile struct {
	TaskTypes []taskTypeEntry `yaml:"task_types"`
}

// taskTypeEntry defaults is_active to true when the file omits it
type taskTypeEntry types.TaskTypeConfig

func (e *taskTypeEntry) UnmarshalYAML(node *yaml.Node) error {
	type plain types.TaskTypeConfig
	cfg := plain{IsActive: true}
	if err := node.Decode(&cfg); err != nil {
		return err
	}
	*e = taskTypeEntry(cfg)
	return nil
}

// LoadTaskTypes reads and validates task-type definitions from a YAML file
func LoadTaskTypes(path string) ([]*types.TaskTypeConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read task types: %w", err)
	}
	return ParseTaskTypes(data)
}

// ParseTaskTypes decodes a task-type definitions document
func ParseTaskTypes(data []byte) ([]*types.TaskTypeConfig, error) {
	var file taskTypeFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse task types: %w", err)
	}
	if len(file.TaskTypes) == 0 {
		return nil, fmt.Errorf("no task_types defined")
	}

	seen := make(map[string]bool, len(file.TaskTypes))
	result := make([]*types.TaskTypeConfig, 0, len(file.TaskTypes))
	for i := range file.TaskTypes {
		cfg := types.TaskTypeConfig(file.TaskTypes[i])
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("task type #%d (%s): %w", i+1, cfg.ID, err)
		}
		if seen[cfg.ID] {
			return nil, fmt.Errorf("duplicate task type %s", cfg.ID)
		}
		seen[cfg.ID] = true
		result = append(result, &cfg)
	}
	return result, nil
}

// LoadPolicy reads extra content-policy terms and returns the built-in
// policy extended with them. The file has the ContentPolicy layout:
//
//	hard_block: [counterfeit]
//	soft_flag: [late night]
func LoadPolicy(path string) (*gates.ContentPolicy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read content policy: %w", err)
	}

	var extra gates.ContentPolicy
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return nil, fmt.Errorf("failed to parse content policy: %w", err)
	}

	policy := gates.DefaultContentPolicy()
	policy.Extend(extra.HardBlock, extra.SoftFlag)
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid content policy %s: %w", path, err)
	}
	return policy, nil
}
