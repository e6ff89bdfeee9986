package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/model"
	"github.com/aliuyar1234/intake-routing-engine/pkg/registry"
)

func TestPostgresArtifactStore_PutIfAbsentIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresArtifactStore(db)
	ref := model.ArtifactRef{SchemaID: model.SchemaNormalizedMessage, URI: "ire://msg-1/NORMALIZE/abc", SHA256: "abc"}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO artifacts")).
		WithArgs("abc", model.SchemaNormalizedMessage, ref.URI, "msg-1", "NORMALIZE", []byte("payload")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.PutIfAbsent(context.Background(), ref, []byte("payload"))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresArtifactStore_GetVerifiesHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresArtifactStore(db)
	payload := []byte("payload")
	goodRef := model.ArtifactRef{SHA256: canonicalize.HashBytes(payload)}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT bytes FROM artifacts WHERE sha256 = $1")).
		WithArgs(goodRef.SHA256).
		WillReturnRows(sqlmock.NewRows([]string{"bytes"}).AddRow(payload))

	got, err := s.Get(context.Background(), goodRef)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	badRef := model.ArtifactRef{SHA256: "not-the-real-hash"}
	mock.ExpectQuery(regexp.QuoteMeta("SELECT bytes FROM artifacts WHERE sha256 = $1")).
		WithArgs(badRef.SHA256).
		WillReturnRows(sqlmock.NewRows([]string{"bytes"}).AddRow(payload))

	_, err = s.Get(context.Background(), badRef)
	assert.Error(t, err, "stored bytes not matching the requested sha256 must surface as an integrity error")
}

func TestPostgresAuditStore_AppendAndReadChain(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresAuditStore(db)
	event := model.AuditEvent{
		EventID:       "evt-1",
		MessageID:     "msg-1",
		RunID:         "run-1",
		Stage:         registry.StageIngest,
		PrevEventHash: "genesis",
		EventHash:     "hash1",
		OccurredAt:    time.Unix(0, 0).UTC(),
		ConfigRef:     model.ArtifactRef{SHA256: "cfg"},
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_events")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Append(context.Background(), "msg-1", "run-1", event))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT body FROM audit_events")).
		WithArgs("msg-1", "run-1").
		WillReturnRows(sqlmock.NewRows([]string{"body"}).AddRow(mustJSON(event)))

	chain, err := s.ReadChain(context.Background(), "msg-1", "run-1")
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, "evt-1", chain[0].EventID)
}

func mustJSON(e model.AuditEvent) []byte {
	b, err := json.Marshal(e)
	if err != nil {
		panic(err)
	}
	return b
}
