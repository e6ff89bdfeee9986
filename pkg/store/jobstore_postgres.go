package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/orchestrator"
)

// PostgresJobStore implements orchestrator.JobStore on a single
// job_runs table keyed by job_id, adapted from the teacher's
// effect_outbox (pkg/store/outbox_store.go): both give an
// idempotency-key-addressed row an INSERT ... ON CONFLICT DO NOTHING
// path for first write, with subsequent writes becoming no-ops rather
// than errors, and a status column that moves forward over the row's
// lifetime.
type PostgresJobStore struct {
	db *sql.DB
}

// NewPostgresJobStore wraps an already-open *sql.DB. Callers are
// responsible for running Migrate once at startup.
func NewPostgresJobStore(db *sql.DB) *PostgresJobStore {
	return &PostgresJobStore{db: db}
}

// Migrate creates the job_runs table if it does not already exist.
func (s *PostgresJobStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS job_runs (
			job_id        TEXT PRIMARY KEY,
			state         TEXT NOT NULL,
			output        BYTEA,
			decision_hash TEXT,
			output_sha256 TEXT
		)`)
	return err
}

// GetState returns a job's current lifecycle state. A job that has
// never been seen is reported as StatePending: the orchestrator treats
// "no row yet" and "explicitly pending" identically.
func (s *PostgresJobStore) GetState(ctx context.Context, jobID string) (orchestrator.State, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM job_runs WHERE job_id = $1`, jobID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return orchestrator.StatePending, nil
	}
	if err != nil {
		return "", ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}
	return orchestrator.State(state), nil
}

// SetState upserts the job's row with a new state, leaving any
// previously stored output untouched.
func (s *PostgresJobStore) SetState(ctx context.Context, jobID string, state orchestrator.State) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (job_id, state)
		VALUES ($1, $2)
		ON CONFLICT (job_id) DO UPDATE SET state = EXCLUDED.state`,
		jobID, string(state))
	if err != nil {
		return ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, fmt.Errorf("job state upsert: %w", err))
	}
	return nil
}

// GetStoredOutput returns a previously written job output, verifying
// the stored bytes against their recorded sha256 so a storage-layer
// corruption surfaces as an integrity error rather than a silent
// divergence at replay time.
func (s *PostgresJobStore) GetStoredOutput(ctx context.Context, jobID string) (output []byte, decisionHash string, found bool, err error) {
	var out []byte
	var hash, sha256 sql.NullString
	scanErr := s.db.QueryRowContext(ctx, `
		SELECT output, decision_hash, output_sha256 FROM job_runs
		WHERE job_id = $1 AND output IS NOT NULL`, jobID).Scan(&out, &hash, &sha256)
	if errors.Is(scanErr, sql.ErrNoRows) {
		return nil, "", false, nil
	}
	if scanErr != nil {
		return nil, "", false, ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, scanErr)
	}
	if sha256.Valid && canonicalize.HashBytes(out) != sha256.String {
		return nil, "", false, ireerrors.New(ireerrors.KindIntegrity, "", ireerrors.ReasonHashMismatch)
	}
	return out, hash.String, true, nil
}

// PutOutput records a job's output exactly once: a second write for
// the same job_id (at-least-once redelivery of an already-completed
// job) is a no-op, matching the write-once artifact contract the rest
// of the store package enforces.
func (s *PostgresJobStore) PutOutput(ctx context.Context, jobID string, output []byte, decisionHash string) error {
	outputSHA256 := canonicalize.HashBytes(output)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (job_id, state, output, decision_hash, output_sha256)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (job_id) DO UPDATE SET
			output        = CASE WHEN job_runs.output IS NULL THEN EXCLUDED.output ELSE job_runs.output END,
			decision_hash = CASE WHEN job_runs.output IS NULL THEN EXCLUDED.decision_hash ELSE job_runs.decision_hash END,
			output_sha256 = CASE WHEN job_runs.output IS NULL THEN EXCLUDED.output_sha256 ELSE job_runs.output_sha256 END`,
		jobID, string(orchestrator.StateDone), output, decisionHash, outputSHA256)
	if err != nil {
		return ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, fmt.Errorf("job output insert: %w", err))
	}
	return nil
}
