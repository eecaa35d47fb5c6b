package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/platinummonkey/propconf/pkg/render"
	"github.com/platinummonkey/propconf/pkg/validate"
	"github.com/platinummonkey/propconf/pkg/version"
)

func newRenderCommand() *Command {
	cmd := &Command{
		Name:        "render",
		Description: "Validate a value set and render the resolved config in a given format",
		Flags:       flag.NewFlagSet("render", flag.ExitOnError),
		Run:         runRender,
	}

	cmd.Flags.String("schema", "", "Path to the schema YAML file")
	cmd.Flags.String("values", "", "Path to a property=value file to validate (optional)")
	cmd.Flags.String("version", "", "Product version to validate against, e.g. 1.2.0")
	cmd.Flags.String("role", "", "Role to validate for, e.g. worker")
	cmd.Flags.String("target", "env", "Projection target: env, or file:<name>")
	cmd.Flags.String("format", "env", "Output format: env, properties, xml")
	cmd.Flags.String("out", "", "Write rendered output to this file instead of stdout")

	return cmd
}

func runRender(args []string) error {
	flags := flag.NewFlagSet("render", flag.ExitOnError)
	schemaPath := flags.String("schema", "", "Path to the schema YAML file")
	valuesPath := flags.String("values", "", "Path to a property=value file to validate (optional)")
	productVersion := flags.String("version", "", "Product version to validate against, e.g. 1.2.0")
	role := flags.String("role", "", "Role to validate for, e.g. worker")
	targetFlag := flags.String("target", "env", "Projection target: env, or file:<name>")
	format := flags.String("format", "env", "Output format: env, properties, xml")
	out := flags.String("out", "", "Write rendered output to this file instead of stdout")

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

	var rendered string
	switch *format {
	case "env":
		rendered = render.EnvScript(result)
	case "properties":
		rendered = render.Properties(result)
	case "xml":
		rendered = render.XMLDocument(result)
	default:
		return fmt.Errorf("invalid -format %q: expected env, properties, or xml", *format)
	}

	if *out == "" {
		fmt.Print(rendered)
		return nil
	}
	return os.WriteFile(*out, []byte(rendered), 0644)
}
