// Package validation checks job variables against the JSON schemas shipped
// with each worker.
package validation

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	loadOnce sync.Once
	loaded   map[string]*gojsonschema.Schema
	loadErr  error
)

// ValidationError lists every schema violation of one document.
type ValidationError struct {
	TaskType string
	Errors   []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s input invalid: %s", e.TaskType, strings.Join(e.Errors, "; "))
}

func schemas() (map[string]*gojsonschema.Schema, error) {
	loadOnce.Do(func() {
		entries, err := schemaFS.ReadDir("schemas")
		if err != nil {
			loadErr = err
			return
		}
		loaded = make(map[string]*gojsonschema.Schema, len(entries))
		for _, entry := range entries {
			raw, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
			if err != nil {
				loadErr = err
				return
			}
			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
			if err != nil {
				loadErr = fmt.Errorf("compile %s: %w", entry.Name(), err)
				return
			}
			loaded[strings.TrimSuffix(entry.Name(), ".json")] = schema
		}
	})
	return loaded, loadErr
}

// HasSchema reports whether a schema is registered for taskType.
func HasSchema(taskType string) bool {
	all, err := schemas()
	if err != nil {
		return false
	}
	_, ok := all[taskType]
	return ok
}

// ValidateVariables validates the raw job variables of taskType. It returns a
// *ValidationError when the document does not conform.
func ValidateVariables(taskType, variables string) error {
	all, err := schemas()
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}
	schema, ok := all[taskType]
	if !ok {
		return fmt.Errorf("no schema registered for %s", taskType)
	}

	if strings.TrimSpace(variables) == "" {
		variables = "{}"
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(variables))
	if err != nil {
		return &ValidationError{TaskType: taskType, Errors: []string{err.Error()}}
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, len(result.Errors()))
	for i, desc := range result.Errors() {
		msgs[i] = desc.String()
	}
	return &ValidationError{TaskType: taskType, Errors: msgs}
}
