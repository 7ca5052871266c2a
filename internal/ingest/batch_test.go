package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func testFingerprint() *Fingerprint {
	return &Fingerprint{
		ContentHash: "abc123",
		ByteSize:    1024,
		ModTime:     time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestLedger_Open(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	fp := testFingerprint()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO vessel_data.import_batches").
		WithArgs(int64(7), "/data/fleet.csv", fp.ContentHash, fp.ByteSize, "2026Q3", false).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO vessel_data.data_lineage").
		WithArgs(int64(42), int64(7), "/data/fleet.csv", fp.ContentHash, fp.ByteSize, fp.ModTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	batchID, err := NewLedger(mock).Open(context.Background(), 7, "/data/fleet.csv", fp, "2026Q3", false)
	require.NoError(t, err)
	assert.Equal(t, int64(42), batchID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_OpenDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	fp := testFingerprint()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO vessel_data.import_batches").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectExec("INSERT INTO vessel_data.data_lineage").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "uq_data_lineage_dedup"})
	mock.ExpectRollback()

	_, err = NewLedger(mock).Open(context.Background(), 7, "/data/fleet.csv", fp, "", false)
	assert.ErrorIs(t, err, ErrDuplicateImport)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_FindNonFailedLineage_None(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT id, batch_id, source_id").
		WithArgs(int64(7), "abc123").
		WillReturnError(pgx.ErrNoRows)

	rec, err := NewLedger(mock).FindNonFailedLineage(context.Background(), 7, "abc123")
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_MarkFailed(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE vessel_data.import_batches").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE vessel_data.data_lineage").
		WithArgs("parse exploded", int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = NewLedger(mock).MarkFailed(context.Background(), 42, "parse exploded")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_MarkStage2_SupersedesPriorBatches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	mock.ExpectBegin()

	// Full snapshot: prior current records, reports, and batches of the same
	// source flip to historical before this batch becomes current.
	mock.ExpectExec("UPDATE vessel_data.vessel_intelligence vi").
		WithArgs(int64(7), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectExec("UPDATE vessel_data.intelligence_reports").
		WithArgs(int64(7), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))
	mock.ExpectExec("UPDATE vessel_data.import_batches").
		WithArgs(int64(7), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE vessel_data.import_batches").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE vessel_data.data_lineage").
		WithArgs(int64(120), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, NewLedger(mock).MarkStage2(ctx, tx, 42, 7, 120, false))
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_MarkStage2_IncrementalKeepsPriorBatches(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	ctx := context.Background()
	mock.ExpectBegin()

	// Delta import: no supersession, only this batch's status and lineage.
	mock.ExpectExec("UPDATE vessel_data.import_batches").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE vessel_data.data_lineage").
		WithArgs(int64(15), int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	tx, err := mock.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, NewLedger(mock).MarkStage2(ctx, tx, 42, 7, 15, true))
	require.NoError(t, tx.Commit(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedger_MarkCompleted(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE vessel_data.import_batches").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE vessel_data.data_lineage").
		WithArgs(int64(42)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	err = NewLedger(mock).MarkCompleted(context.Background(), 42)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
