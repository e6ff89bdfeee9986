package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "modernc.org/sqlite"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/orchestrator"
)

// SQLiteArtifactStore is the embedded-database variant of
// PostgresArtifactStore, for single-node deployments and replay-harness
// integration tests where standing up Postgres is unnecessary.
type SQLiteArtifactStore struct {
	db *sql.DB
}

// NewSQLiteArtifactStore wraps an open *sql.DB (driver "sqlite") and
// runs its migration.
func NewSQLiteArtifactStore(db *sql.DB) (*SQLiteArtifactStore, error) {
	s := &SQLiteArtifactStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteArtifactStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS artifacts (
			sha256     TEXT PRIMARY KEY,
			schema_id  TEXT NOT NULL,
			uri        TEXT NOT NULL,
			message_id TEXT NOT NULL,
			stage      TEXT NOT NULL,
			bytes      BLOB NOT NULL
		)`)
	return err
}

func (s *SQLiteArtifactStore) PutIfAbsent(ctx context.Context, ref model.ArtifactRef, bytes []byte) error {
	messageID, stage := splitArtifactURI(ref.URI)
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO artifacts (sha256, schema_id, uri, message_id, stage, bytes)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ref.SHA256, ref.SchemaID, ref.URI, messageID, stage, bytes)
	if err != nil {
		return ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}
	return nil
}

func (s *SQLiteArtifactStore) Get(ctx context.Context, ref model.ArtifactRef) ([]byte, error) {
	var bytes []byte
	err := s.db.QueryRowContext(ctx, `SELECT bytes FROM artifacts WHERE sha256 = ?`, ref.SHA256).Scan(&bytes)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ireerrors.New(ireerrors.KindIntegrity, "", "artifact_not_found")
		}
		return nil, ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}
	if canonicalize.HashBytes(bytes) != ref.SHA256 {
		return nil, ireerrors.New(ireerrors.KindIntegrity, "", ireerrors.ReasonHashMismatch)
	}
	return bytes, nil
}

func (s *SQLiteArtifactStore) ListByStage(ctx context.Context, messageID string, stage string) ([]model.ArtifactRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sha256, schema_id, uri FROM artifacts
		WHERE message_id = ? AND stage = ?
		ORDER BY sha256`, messageID, stage)
	if err != nil {
		return nil, ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.ArtifactRef
	for rows.Next() {
		var ref model.ArtifactRef
		if err := rows.Scan(&ref.SHA256, &ref.SchemaID, &ref.URI); err != nil {
			return nil, err
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// SQLiteAuditStore is the embedded-database variant of PostgresAuditStore.
type SQLiteAuditStore struct {
	db *sql.DB
}

func NewSQLiteAuditStore(db *sql.DB) (*SQLiteAuditStore, error) {
	s := &SQLiteAuditStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteAuditStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			seq             INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id        TEXT NOT NULL UNIQUE,
			message_id      TEXT NOT NULL,
			run_id          TEXT NOT NULL,
			stage           TEXT NOT NULL,
			event_hash      TEXT NOT NULL,
			prev_event_hash TEXT NOT NULL,
			body            TEXT NOT NULL,
			occurred_at     DATETIME NOT NULL
		)`)
	return err
}

func (s *SQLiteAuditStore) Append(ctx context.Context, messageID, runID string, event model.AuditEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return ireerrors.Wrap(ireerrors.KindInternal, string(event.Stage), "event_marshal_failed", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO audit_events (event_id, message_id, run_id, stage, event_hash, prev_event_hash, body, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID, messageID, runID, string(event.Stage), event.EventHash, event.PrevEventHash, body, event.OccurredAt)
	if err != nil {
		return ireerrors.Wrap(ireerrors.KindDependencyUnavailable, string(event.Stage), ireerrors.ReasonTimeout, err)
	}
	return nil
}

func (s *SQLiteAuditStore) ReadChain(ctx context.Context, messageID, runID string) ([]model.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM audit_events
		WHERE message_id = ? AND run_id = ?
		ORDER BY seq ASC`, messageID, runID)
	if err != nil {
		return nil, ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.AuditEvent
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, err
		}
		var e model.AuditEvent
		if err := json.Unmarshal(body, &e); err != nil {
			return nil, ireerrors.Wrap(ireerrors.KindIntegrity, "", "event_unmarshal_failed", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SQLiteJobStore is the embedded-database variant of PostgresJobStore,
// implementing orchestrator.JobStore for single-node deployments and
// replay-harness integration tests.
type SQLiteJobStore struct {
	db *sql.DB
}

// NewSQLiteJobStore wraps an open *sql.DB (driver "sqlite") and runs
// its migration.
func NewSQLiteJobStore(db *sql.DB) (*SQLiteJobStore, error) {
	s := &SQLiteJobStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteJobStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS job_runs (
			job_id        TEXT PRIMARY KEY,
			state         TEXT NOT NULL,
			output        BLOB,
			decision_hash TEXT,
			output_sha256 TEXT
		)`)
	return err
}

func (s *SQLiteJobStore) GetState(ctx context.Context, jobID string) (orchestrator.State, error) {
	var state string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM job_runs WHERE job_id = ?`, jobID).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return orchestrator.StatePending, nil
	}
	if err != nil {
		return "", ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}
	return orchestrator.State(state), nil
}

func (s *SQLiteJobStore) SetState(ctx context.Context, jobID string, state orchestrator.State) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (job_id, state) VALUES (?, ?)
		ON CONFLICT (job_id) DO UPDATE SET state = excluded.state`,
		jobID, string(state))
	if err != nil {
		return ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}
	return nil
}

func (s *SQLiteJobStore) GetStoredOutput(ctx context.Context, jobID string) (output []byte, decisionHash string, found bool, err error) {
	var out []byte
	var hash, sha256 sql.NullString
	scanErr := s.db.QueryRowContext(ctx, `
		SELECT output, decision_hash, output_sha256 FROM job_runs
		WHERE job_id = ? AND output IS NOT NULL`, jobID).Scan(&out, &hash, &sha256)
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

func (s *SQLiteJobStore) PutOutput(ctx context.Context, jobID string, output []byte, decisionHash string) error {
	outputSHA256 := canonicalize.HashBytes(output)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_runs (job_id, state, output, decision_hash, output_sha256)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (job_id) DO UPDATE SET
			output        = CASE WHEN job_runs.output IS NULL THEN excluded.output ELSE job_runs.output END,
			decision_hash = CASE WHEN job_runs.output IS NULL THEN excluded.decision_hash ELSE job_runs.decision_hash END,
			output_sha256 = CASE WHEN job_runs.output IS NULL THEN excluded.output_sha256 ELSE job_runs.output_sha256 END`,
		jobID, string(orchestrator.StateDone), output, decisionHash, outputSHA256)
	if err != nil {
		return ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, err)
	}
	return nil
}
