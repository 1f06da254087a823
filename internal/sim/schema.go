package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/invopop/jsonschema"
)

// ScenarioSchema describes scenario files for editors and validators.
func ScenarioSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		FieldNameTag:               "yaml",
		KeyNamer:                   strings.ToLower,
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(new(Scenario))
	schema.Title = "Rover Scenario"
	schema.Description = "World map, agents and standing orders run by roversim"
	return schema
}

// WriteScenarioSchema writes ScenarioSchema to path, replacing any previous
// file atomically.
func WriteScenarioSchema(path string) error {
	data, err := json.MarshalIndent(ScenarioSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}
	return nil
}
