package main

import "github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"

// Exit codes per §6.
const (
	exitOK                      = 0
	exitInvalidInput            = 10
	exitSchemaValidationFailed  = 20
	exitFailClosedRequired      = 30
	exitDependencyUnavailable   = 40
	exitSecurityPolicyViolation = 50
	exitIntegrityFailed         = 60
)

// exitCodeForKind maps the typed error taxonomy (pkg/ireerrors) onto
// the CLI's fixed exit codes.
func exitCodeForKind(kind ireerrors.Kind) int {
	switch kind {
	case ireerrors.KindValidation:
		return exitSchemaValidationFailed
	case ireerrors.KindSafetyOverride:
		return exitSecurityPolicyViolation
	case ireerrors.KindDependencyUnavailable:
		return exitDependencyUnavailable
	case ireerrors.KindDeterminismViolation:
		return exitFailClosedRequired
	case ireerrors.KindIntegrity:
		return exitIntegrityFailed
	default:
		return exitFailClosedRequired
	}
}
