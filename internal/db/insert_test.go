package db

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBulkInsertIgnore_EmptyRows(t *testing.T) {
	n, err := BulkInsertIgnore(context.Background(), nil, InsertIgnoreConfig{
		Table:        "vessel_data.confirmation_members",
		Columns:      []string{"a"},
		ConflictKeys: []string{"a"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkInsertIgnore_MissingConfig(t *testing.T) {
	rows := [][]any{{1}}

	_, err := BulkInsertIgnore(context.Background(), nil, InsertIgnoreConfig{
		Table: "t", ConflictKeys: []string{"a"},
	}, rows)
	assert.Error(t, err)

	_, err = BulkInsertIgnore(context.Background(), nil, InsertIgnoreConfig{
		Table: "t", Columns: []string{"a"},
	}, rows)
	assert.Error(t, err)
}

func TestBulkInsertIgnore_InsertsViaTempTable(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := InsertIgnoreConfig{
		Table:        "vessel_data.confirmation_members",
		Columns:      []string{"confirmation_id", "vessel_intelligence_id", "source_shortname"},
		ConflictKeys: []string{"confirmation_id", "vessel_intelligence_id"},
	}
	rows := [][]any{
		{int64(1), int64(10), "eufleet"},
		{int64(1), int64(11), "licreg"},
	}

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_insert_vessel_data_confirmation_members"}, cfg.Columns).
		WillReturnResult(2)
	mock.ExpectExec("INSERT INTO \"vessel_data\".\"confirmation_members\"").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := BulkInsertIgnore(context.Background(), mock, cfg, rows)
	require.NoError(t, err)
	// One of the two rows already existed; only the fresh insert counts.
	assert.Equal(t, int64(1), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
