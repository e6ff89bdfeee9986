// Package store provides durable SQL-backed implementations of the
// interfaces.ArtifactStore and interfaces.AuditStore ports (§6). The
// in-memory reference implementations (pkg/audit.Log) are suitable for
// tests and single-process replay; these adapters are what a deployed
// pipeline actually writes to.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/lib/pq"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/ireerrors"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
)

// PostgresArtifactStore persists schema-validated artifacts content
// addressed by sha256, write-once (§3: artifacts are never mutated).
type PostgresArtifactStore struct {
	db *sql.DB
}

// NewPostgresArtifactStore wraps an already-open *sql.DB. Callers are
// responsible for running Migrate once at startup.
func NewPostgresArtifactStore(db *sql.DB) *PostgresArtifactStore {
	return &PostgresArtifactStore{db: db}
}

// Migrate creates the artifacts table if it does not already exist.
func (s *PostgresArtifactStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS artifacts (
			sha256     TEXT PRIMARY KEY,
			schema_id  TEXT NOT NULL,
			uri        TEXT NOT NULL,
			message_id TEXT NOT NULL,
			stage      TEXT NOT NULL,
			bytes      BYTEA NOT NULL
		)`)
	return err
}

// PutIfAbsent writes bytes under their content address. A second write
// of the same sha256 is a no-op: artifacts are immutable, so the
// insert-or-ignore semantics make the operation idempotent under
// at-least-once redelivery.
func (s *PostgresArtifactStore) PutIfAbsent(ctx context.Context, ref model.ArtifactRef, bytes []byte) error {
	messageID, stage := splitArtifactURI(ref.URI)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO artifacts (sha256, schema_id, uri, message_id, stage, bytes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (sha256) DO NOTHING`,
		ref.SHA256, ref.SchemaID, ref.URI, messageID, stage, bytes)
	if err != nil {
		return ireerrors.Wrap(ireerrors.KindDependencyUnavailable, "", ireerrors.ReasonTimeout, fmt.Errorf("artifact insert: %w", err))
	}
	return nil
}

// Get fetches artifact bytes by content address and verifies the
// stored sha256 against what it actually read, so a storage-layer bit
// flip surfaces as an integrity error rather than silently corrupted data.
func (s *PostgresArtifactStore) Get(ctx context.Context, ref model.ArtifactRef) ([]byte, error) {
	var bytes []byte
	err := s.db.QueryRowContext(ctx, `SELECT bytes FROM artifacts WHERE sha256 = $1`, ref.SHA256).Scan(&bytes)
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

// ListByStage returns every artifact ref written for a (message_id, stage) pair.
func (s *PostgresArtifactStore) ListByStage(ctx context.Context, messageID string, stage string) ([]model.ArtifactRef, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sha256, schema_id, uri FROM artifacts
		WHERE message_id = $1 AND stage = $2
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

// splitArtifactURI parses URIs minted by the orchestrator in the form
// "ire://<message_id>/<stage>/<sha256>".
func splitArtifactURI(uri string) (messageID, stage string) {
	const prefix = "ire://"
	if !strings.HasPrefix(uri, prefix) {
		return "", ""
	}
	parts := strings.SplitN(strings.TrimPrefix(uri, prefix), "/", 3)
	if len(parts) < 2 {
		return "", ""
	}
	return parts[0], parts[1]
}

// PostgresAuditStore is the durable backend for the append-only audit
// chain (§4.2). Each event is stored with its full linkage fields so
// pkg/audit.Verify can be run against a chain read back from disk.
type PostgresAuditStore struct {
	db *sql.DB
}

func NewPostgresAuditStore(db *sql.DB) *PostgresAuditStore {
	return &PostgresAuditStore{db: db}
}

func (s *PostgresAuditStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS audit_events (
			event_id        TEXT PRIMARY KEY,
			message_id      TEXT NOT NULL,
			run_id          TEXT NOT NULL,
			seq             BIGSERIAL,
			stage           TEXT NOT NULL,
			event_hash      TEXT NOT NULL,
			prev_event_hash TEXT NOT NULL,
			body            JSONB NOT NULL,
			occurred_at     TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS audit_events_chain_idx ON audit_events (message_id, run_id, seq)`)
	return err
}

func (s *PostgresAuditStore) Append(ctx context.Context, messageID, runID string, event model.AuditEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return ireerrors.Wrap(ireerrors.KindInternal, string(event.Stage), "event_marshal_failed", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_events (event_id, message_id, run_id, stage, event_hash, prev_event_hash, body, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING`,
		event.EventID, messageID, runID, string(event.Stage), event.EventHash, event.PrevEventHash, body, event.OccurredAt)
	if err != nil {
		return ireerrors.Wrap(ireerrors.KindDependencyUnavailable, string(event.Stage), ireerrors.ReasonTimeout, err)
	}
	return nil
}

func (s *PostgresAuditStore) ReadChain(ctx context.Context, messageID, runID string) ([]model.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT body FROM audit_events
		WHERE message_id = $1 AND run_id = $2
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
