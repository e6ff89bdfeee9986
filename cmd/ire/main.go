// Command ire is the verification CLI for the intake routing engine
// (§6): it validates stage artifacts against their canonical schemas
// and verifies an audit chain's hash linkage, exiting with the
// taxonomy's fixed exit codes rather than free-form error text so
// operators and CI can branch on the result.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint for testing: it never calls os.Exit itself.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		printUsage(stderr)
		return exitInvalidInput
	}

	switch args[1] {
	case "validate":
		return runValidateCmd(args[2:], stdout, stderr)
	case "verify-chain":
		return runVerifyChainCmd(args[2:], stdout, stderr)
	case "help", "--help", "-h":
		printUsage(stdout)
		return exitOK
	default:
		_, _ = fmt.Fprintf(stderr, "Unknown command: %s\n", args[1])
		printUsage(stderr)
		return exitInvalidInput
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "ire - intake routing engine verification CLI")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "USAGE:")
	fmt.Fprintln(w, "  ire <command> [flags]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "COMMANDS:")
	fmt.Fprintln(w, "  validate      Validate an artifact JSON file against its canonical schema")
	fmt.Fprintln(w, "  verify-chain  Verify an audit event chain's hash linkage")
	fmt.Fprintln(w, "  help          Show this help")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "EXIT CODES:")
	fmt.Fprintln(w, "  0  OK")
	fmt.Fprintln(w, "  10 invalid input")
	fmt.Fprintln(w, "  20 schema validation failed")
	fmt.Fprintln(w, "  30 fail-closed required")
	fmt.Fprintln(w, "  40 dependency unavailable")
	fmt.Fprintln(w, "  50 security policy violation")
	fmt.Fprintln(w, "  60 integrity/pack verification failed")
}
