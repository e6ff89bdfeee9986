package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliuyar1234/intake-routing-engine/pkg/canonicalize"
	"github.com/aliuyar1234/intake-routing-engine/pkg/orchestrator"
)

func TestPostgresJobStore_GetStateDefaultsToPending(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT state FROM job_runs WHERE job_id = $1")).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"state"}))

	state, err := s.GetState(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, orchestrator.StatePending, state)
}

func TestPostgresJobStore_SetStateUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO job_runs")).
		WithArgs("job-1", string(orchestrator.StateRunning)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.SetState(context.Background(), "job-1", orchestrator.StateRunning)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresJobStore_GetStoredOutputVerifiesHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db)
	payload := []byte(`{"decision":"route-x"}`)
	goodSHA256 := canonicalize.HashBytes(payload)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT output, decision_hash, output_sha256 FROM job_runs")).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"output", "decision_hash", "output_sha256"}).
			AddRow(payload, "hash-1", goodSHA256))

	out, hash, found, err := s.GetStoredOutput(context.Background(), "job-1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload, out)
	assert.Equal(t, "hash-1", hash)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT output, decision_hash, output_sha256 FROM job_runs")).
		WithArgs("job-2").
		WillReturnRows(sqlmock.NewRows([]string{"output", "decision_hash", "output_sha256"}).
			AddRow(payload, "hash-1", "not-the-real-hash"))

	_, _, _, err = s.GetStoredOutput(context.Background(), "job-2")
	assert.Error(t, err, "stored output not matching its recorded sha256 must surface as an integrity error")
}

func TestPostgresJobStore_PutOutputIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewPostgresJobStore(db)
	payload := []byte(`{"decision":"route-x"}`)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO job_runs")).
		WithArgs("job-1", string(orchestrator.StateDone), payload, "hash-1", canonicalize.HashBytes(payload)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.PutOutput(context.Background(), "job-1", payload, "hash-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
