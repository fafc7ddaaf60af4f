// CUE schema validation code
package config

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed fleet.cue
var embeddedSchema []byte

// ValidateWithCue validates a YAML configuration file using a CUE schema
// file. An empty cueFile selects the embedded fleet schema.
func ValidateWithCue(configFile, cueFile string) error {
	yamlBytes, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("cannot read YAML config: %w", err)
	}
	schemaBytes := embeddedSchema
	if cueFile != "" {
		if schemaBytes, err = os.ReadFile(cueFile); err != nil {
			return fmt.Errorf("cannot read CUE schema: %w", err)
		}
	}
	return validateBytes(yamlBytes, schemaBytes)
}

func validateBytes(yamlBytes, schemaBytes []byte) error {
	var configData map[string]any
	if err := yaml.Unmarshal(yamlBytes, &configData); err != nil {
		return fmt.Errorf("cannot unmarshal YAML config: %w", err)
	}

	ctx := cuecontext.New()
	schemaVal := ctx.CompileBytes(schemaBytes)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("cannot compile CUE schema: %w", err)
	}
	configVal := ctx.Encode(configData)
	if err := configVal.Err(); err != nil {
		return fmt.Errorf("cannot encode YAML config: %w", err)
	}

	final := schemaVal.Unify(configVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
