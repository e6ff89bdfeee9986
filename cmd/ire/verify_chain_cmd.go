package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/aliuyar1234/intake-routing-engine/pkg/audit"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
)

// runVerifyChainCmd implements `ire verify-chain`: it recomputes every
// event_hash in a (message_id, run_id) audit chain and reports the
// index of the first break, if any (§4.2, §7 Integrity).
func runVerifyChainCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify-chain", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var (
		file       string
		jsonOutput bool
		printRoot  bool
	)
	cmd.StringVar(&file, "chain", "", "Path to a JSON array of audit events (REQUIRED)")
	cmd.BoolVar(&jsonOutput, "json", false, "Output the verify result as JSON")
	cmd.BoolVar(&printRoot, "root", false, "Also print the chain's evidence Merkle root")

	if err := cmd.Parse(args); err != nil {
		return exitInvalidInput
	}
	if file == "" {
		_, _ = fmt.Fprintln(stderr, "Error: --chain is required")
		return exitInvalidInput
	}

	data, err := os.ReadFile(file)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: cannot read %s: %v\n", file, err)
		return exitInvalidInput
	}

	var chain []model.AuditEvent
	if err := json.Unmarshal(data, &chain); err != nil {
		_, _ = fmt.Fprintf(stderr, "Error: invalid chain JSON: %v\n", err)
		return exitInvalidInput
	}

	result := audit.Verify(chain)

	if jsonOutput {
		out, _ := json.MarshalIndent(result, "", "  ")
		_, _ = fmt.Fprintln(stdout, string(out))
	} else if result.OK {
		_, _ = fmt.Fprintf(stdout, "OK: chain of %d events verified\n", len(chain))
	} else {
		_, _ = fmt.Fprintf(stdout, "FAILED: chain broken at index %d: %s\n", result.BrokenAtIndex, result.Reason)
	}

	if printRoot && result.OK {
		root := audit.EvidenceTree(chain).Root
		_, _ = fmt.Fprintf(stdout, "evidence_root: %s\n", root)
	}

	if !result.OK {
		return exitIntegrityFailed
	}
	return exitOK
}
