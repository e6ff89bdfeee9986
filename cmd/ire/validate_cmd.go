package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/schema"
)

// runValidateCmd implements `ire validate`: it compiles the canonical
// schema registry and checks one artifact file against the schema_id
// named on the command line.
func runValidateCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("validate", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		schemaID string
		file     string
	)
	cmd.StringVar(&schemaID, "schema", "", "Canonical schema $id URN (REQUIRED)")
	cmd.StringVar(&file, "file", "", "Path to the artifact JSON file (REQUIRED)")

	if err := cmd.Parse(args); err != nil {
		return exitInvalidInput
	}
	if schemaID == "" || file == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --schema and --file are required")
		return exitInvalidInput
	}

	payload, err := os.ReadFile(file)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot read %s: %v\n", file, err)
		return exitInvalidInput
	}

	registry, err := schema.NewRegistry()
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: schema registry failed to compile: %v\n", err)
		return exitFailClosedRequired
	}

	if err := registry.Validate(schemaID, payload); err != nil {
		_, _ = fmt.Fprintf(stdout, "FAILED: %v\n", err)
		if ireErr, ok := err.(*ireerrors.Error); ok {
			return exitCodeForKind(ireErr.Kind)
		}
		return exitSchemaValidationFailed
	}

	_, _ = fmt.Fprintf(stdout, "OK: %s validates against %s\n", file, schemaID)
	return exitOK
}
