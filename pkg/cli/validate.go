package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/platinummonkey/propconf/pkg/expand"
	"github.com/platinummonkey/propconf/pkg/outcome"
	"github.com/platinummonkey/propconf/pkg/schema"
	"github.com/platinummonkey/propconf/pkg/validate"
	"github.com/platinummonkey/propconf/pkg/version"
)

func newValidateCommand() *Command {
	cmd := &Command{
		Name:        "validate",
		Description: "Validate a value set against a schema and print the outcome table",
		Flags:       flag.NewFlagSet("validate", flag.ExitOnError),
		Run:         runValidate,
	}

	cmd.Flags.String("schema", "", "Path to the schema YAML file")
	cmd.Flags.String("values", "", "Path to a property=value file to validate (optional)")
	cmd.Flags.String("version", "", "Product version to validate against, e.g. 1.2.0")
	cmd.Flags.String("role", "", "Role to validate for, e.g. worker")
	cmd.Flags.String("target", "env", "Projection target: env, or file:<name>")

	return cmd
}

func runValidate(args []string) error {
	flags := flag.NewFlagSet("validate", flag.ExitOnError)
	schemaPath := flags.String("schema", "", "Path to the schema YAML file")
	valuesPath := flags.String("values", "", "Path to a property=value file to validate (optional)")
	productVersion := flags.String("version", "", "Product version to validate against, e.g. 1.2.0")
	role := flags.String("role", "", "Role to validate for, e.g. worker")
	targetFlag := flags.String("target", "env", "Projection target: env, or file:<name>")

	if err := flags.Parse(args); err != nil {
		return err
	}

	if *schemaPath == "" {
		return fmt.Errorf("-schema is required")
	}
	if *productVersion == "" {
		return fmt.Errorf("-version is required")
	}

	s, err := loadSchemaFile(*schemaPath)
	if err != nil {
		return err
	}

	pv, err := version.Parse(*productVersion)
	if err != nil {
		return fmt.Errorf("invalid -version %q: %w", *productVersion, err)
	}

	target, err := parseTarget(*targetFlag)
	if err != nil {
		return err
	}

	userValues, err := loadValuesFile(*valuesPath)
	if err != nil {
		return err
	}

	result := validate.Run(s, pv, *role, target, userValues)
	fmt.Print(result.String())

	for _, e := range result.Entries() {
		if e.Outcome.Kind == outcome.Error {
			return fmt.Errorf("validation failed: one or more properties are invalid")
		}
	}
	return nil
}

func loadSchemaFile(path string) (*schema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	s, err := schema.Load(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	return s, nil
}

// loadValuesFile reads a simple NAME=value per line file. A blank path is
// valid: it means validate the schema's defaults with no user overrides.
func loadValuesFile(path string) ([]expand.UserValue, error) {
	if path == "" {
		return []expand.UserValue{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file: %w", err)
	}

	var values []expand.UserValue
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed values line (want NAME=value): %q", line)
		}
		values = append(values, expand.UserValue{
			Name:  strings.TrimSpace(parts[0]),
			Value: strings.TrimSpace(parts[1]),
		})
	}
	return values, nil
}

func parseTarget(raw string) (validate.Target, error) {
	if raw == "" || raw == "env" {
		return validate.Target{Kind: validate.TargetEnv}, nil
	}
	if strings.HasPrefix(raw, "file:") {
		file := strings.TrimPrefix(raw, "file:")
		if file == "" {
			return validate.Target{}, fmt.Errorf("-target file: requires a file name, e.g. file:app.properties")
		}
		return validate.Target{Kind: validate.TargetFile, File: file}, nil
	}
	return validate.Target{}, fmt.Errorf("invalid -target %q: expected \"env\" or \"file:<name>\"", raw)
}
