package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"geostream-sim/internal/config"
)

var (
	validateConfigPath string
	validateSchemaPath string
	validatePrint      bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a fleet configuration",
	Long:  "validate loads the configuration with environment overrides applied, checks it against the schema and optionally prints the effective result.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(validateConfigPath, validateSchemaPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if !validatePrint {
			fmt.Fprintf(out, "%s: ok\n", displayPath(validateConfigPath))
			return nil
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("encode config: %w", err)
		}
		_, err = out.Write(data)
		return err
	},
}

func displayPath(p string) string {
	if p == "" {
		return "defaults"
	}
	return p
}

func init() {
	validateCmd.Flags().StringVar(&validateConfigPath, "config", "", "Path to fleet configuration (YAML or JSON)")
	validateCmd.Flags().StringVar(&validateSchemaPath, "schema", "", "Path to CUE schema file (defaults to the built-in schema)")
	validateCmd.Flags().BoolVar(&validatePrint, "print", false, "Print the effective configuration as YAML")
}
