// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

func LoadRegistry(path string) (*TaskRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var reg TaskRegistry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &reg, nil
}

// Validate rejects duplicate task types and entries missing required fields.
func (r *TaskRegistry) Validate() error {
	seen := make(map[string]bool, len(r.Tasks))
	for i, t := range r.Tasks {
		if t.TaskType == "" || t.Worker == "" {
			return fmt.Errorf("task %d: taskType and worker are required", i)
		}
		if seen[t.TaskType] {
			return fmt.Errorf("duplicate task type %q", t.TaskType)
		}
		seen[t.TaskType] = true
		if t.Timeout != "" {
			if _, err := time.ParseDuration(t.Timeout); err != nil {
				return fmt.Errorf("task %q: bad timeout: %w", t.TaskType, err)
			}
		}
		if t.Retries < 0 {
			return fmt.Errorf("task %q: retries must not be negative", t.TaskType)
		}
	}
	return nil
}

func (r *TaskRegistry) Lookup(taskType string) (Task, bool) {
	for _, t := range r.Tasks {
		if t.TaskType == taskType {
			return t, true
		}
	}
	return Task{}, false
}
