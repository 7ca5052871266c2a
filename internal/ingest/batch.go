package ingest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"

	"github.com/perseis-platform/ebisu/internal/db"
)

// BatchStatus is the import batch lifecycle state.
type BatchStatus string

const (
	BatchCreated           BatchStatus = "created"
	BatchStage1RawComplete BatchStatus = "stage1_raw_complete"
	BatchStage2Extracted   BatchStatus = "stage2_extraction_complete"
	BatchCompleted         BatchStatus = "completed"
	BatchFailed            BatchStatus = "failed"
)

// ImportBatch is one attempted import of one file for one source.
type ImportBatch struct {
	ID             int64       `json:"id"`
	SourceID       int64       `json:"source_id"`
	SourceShort    string      `json:"source_shortname"`
	ImportDate     time.Time   `json:"import_date"`
	FilePath       string      `json:"file_path"`
	ContentHash    string      `json:"content_hash"`
	ByteSize       int64       `json:"byte_size"`
	RawRecordCount int64       `json:"raw_record_count"`
	SourceVersion  string      `json:"source_version,omitempty"`
	IsIncremental  bool        `json:"is_incremental"`
	IsCurrent      bool        `json:"is_current"`
	Status         BatchStatus `json:"status"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// Ledger provides access to import_batches and its one-to-one data_lineage
// companion. All state transitions are timestamped in the store.
type Ledger struct {
	pool db.Pool
}

// NewLedger creates a Ledger backed by the given connection pool.
func NewLedger(pool db.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// FindNonFailedLineage returns the lineage record for (source, content hash)
// whose processing status is not FAILED, or nil when none exists. This is
// the dedup pre-check; the partial unique index remains the authority under
// concurrency.
func (l *Ledger) FindNonFailedLineage(ctx context.Context, sourceID int64, contentHash string) (*LineageRecord, error) {
	var rec LineageRecord
	err := l.pool.QueryRow(ctx,
		`SELECT id, batch_id, source_id, file_path, content_hash, byte_size,
		        file_modified_at, records_in_file, records_imported,
		        processing_status, completed_at
		 FROM vessel_data.data_lineage
		 WHERE source_id = $1 AND content_hash = $2 AND processing_status <> 'FAILED'`,
		sourceID, contentHash,
	).Scan(&rec.ID, &rec.BatchID, &rec.SourceID, &rec.FilePath, &rec.ContentHash,
		&rec.ByteSize, &rec.FileModifiedAt, &rec.RecordsInFile, &rec.RecordsImported,
		&rec.ProcessingStatus, &rec.CompletedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "ledger: lookup lineage")
	}
	return &rec, nil
}

// Open creates the ImportBatch and its LineageRecord in one transaction.
// A unique-violation on the lineage dedup index means another invocation of
// the same file won the race; that surfaces as ErrDuplicateImport.
func (l *Ledger) Open(ctx context.Context, sourceID int64, filePath string, fp *Fingerprint, sourceVersion string, incremental bool) (int64, error) {
	var batchID int64

	err := db.WithTx(ctx, l.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO vessel_data.import_batches
			     (source_id, import_date, file_path, content_hash, byte_size,
			      source_version, is_incremental, is_current, status)
			 VALUES ($1, now(), $2, $3, $4, $5, $6, false, 'created')
			 RETURNING id`,
			sourceID, filePath, fp.ContentHash, fp.ByteSize, sourceVersion, incremental,
		).Scan(&batchID)
		if err != nil {
			return eris.Wrap(err, "ledger: create batch")
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO vessel_data.data_lineage
			     (batch_id, source_id, file_path, content_hash, byte_size,
			      file_modified_at, processing_status)
			 VALUES ($1, $2, $3, $4, $5, $6, 'PROCESSING')`,
			batchID, sourceID, filePath, fp.ContentHash, fp.ByteSize, fp.ModTime,
		)
		if err != nil {
			return eris.Wrap(err, "ledger: create lineage")
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if eris.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateImport
		}
		return 0, err
	}

	return batchID, nil
}

// MarkStage1 records raw-report completion and the staged record counts.
func (l *Ledger) MarkStage1(ctx context.Context, tx pgx.Tx, batchID, recordsInFile, rawRecords int64) error {
	if _, err := tx.Exec(ctx,
		`UPDATE vessel_data.import_batches
		 SET status = 'stage1_raw_complete', raw_record_count = $1, updated_at = now()
		 WHERE id = $2`,
		rawRecords, batchID,
	); err != nil {
		return eris.Wrapf(err, "ledger: mark stage1 for batch %d", batchID)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE vessel_data.data_lineage
		 SET records_in_file = $1 WHERE batch_id = $2`,
		recordsInFile, batchID,
	); err != nil {
		return eris.Wrapf(err, "ledger: record file count for batch %d", batchID)
	}
	return nil
}

// MarkStage2 records extraction completion, flips the batch current, and —
// for non-incremental imports — supersedes every prior current batch of the
// same source along with its reports and records, all inside the caller's
// transaction.
func (l *Ledger) MarkStage2(ctx context.Context, tx pgx.Tx, batchID, sourceID, extracted int64, incremental bool) error {
	if !incremental {
		if _, err := tx.Exec(ctx,
			`UPDATE vessel_data.vessel_intelligence vi
			 SET is_current = false, valid_to = CURRENT_DATE
			 FROM vessel_data.intelligence_reports ir
			 WHERE vi.report_id = ir.id
			   AND ir.batch_id IN (
			       SELECT id FROM vessel_data.import_batches
			       WHERE source_id = $1 AND id <> $2 AND is_current
			   )`,
			sourceID, batchID,
		); err != nil {
			return eris.Wrapf(err, "ledger: supersede records for source %d", sourceID)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE vessel_data.intelligence_reports
			 SET is_current = false
			 WHERE batch_id IN (
			     SELECT id FROM vessel_data.import_batches
			     WHERE source_id = $1 AND id <> $2 AND is_current
			 )`,
			sourceID, batchID,
		); err != nil {
			return eris.Wrapf(err, "ledger: supersede reports for source %d", sourceID)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE vessel_data.import_batches
			 SET is_current = false, updated_at = now()
			 WHERE source_id = $1 AND id <> $2 AND is_current`,
			sourceID, batchID,
		); err != nil {
			return eris.Wrapf(err, "ledger: supersede batches for source %d", sourceID)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE vessel_data.import_batches
		 SET status = 'stage2_extraction_complete', is_current = true, updated_at = now()
		 WHERE id = $1`,
		batchID,
	); err != nil {
		return eris.Wrapf(err, "ledger: mark stage2 for batch %d", batchID)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE vessel_data.data_lineage
		 SET records_imported = $1 WHERE batch_id = $2`,
		extracted, batchID,
	); err != nil {
		return eris.Wrapf(err, "ledger: record imported count for batch %d", batchID)
	}
	return nil
}

// MarkCompleted closes the batch and its lineage as successful.
func (l *Ledger) MarkCompleted(ctx context.Context, batchID int64) error {
	return db.WithTx(ctx, l.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE vessel_data.import_batches
			 SET status = 'completed', updated_at = now() WHERE id = $1`,
			batchID,
		); err != nil {
			return eris.Wrapf(err, "ledger: complete batch %d", batchID)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE vessel_data.data_lineage
			 SET processing_status = 'COMPLETED', completed_at = now()
			 WHERE batch_id = $1`,
			batchID,
		); err != nil {
			return eris.Wrapf(err, "ledger: complete lineage for batch %d", batchID)
		}
		return nil
	})
}

// MarkFailed closes the batch and its lineage as failed. The batch is never
// current after a failure.
func (l *Ledger) MarkFailed(ctx context.Context, batchID int64, errMsg string) error {
	return db.WithTx(ctx, l.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`UPDATE vessel_data.import_batches
			 SET status = 'failed', is_current = false, updated_at = now()
			 WHERE id = $1`,
			batchID,
		); err != nil {
			return eris.Wrapf(err, "ledger: fail batch %d", batchID)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE vessel_data.data_lineage
			 SET processing_status = 'FAILED', completed_at = now(), error = $1
			 WHERE batch_id = $2`,
			errMsg, batchID,
		); err != nil {
			return eris.Wrapf(err, "ledger: fail lineage for batch %d", batchID)
		}
		return nil
	})
}

// List returns batches newest first, optionally restricted to one source
// shortname.
func (l *Ledger) List(ctx context.Context, sourceShortname string) ([]ImportBatch, error) {
	query := `SELECT b.id, b.source_id, s.shortname, b.import_date, b.file_path,
	                 b.content_hash, b.byte_size, b.raw_record_count,
	                 COALESCE(b.source_version, ''), b.is_incremental, b.is_current,
	                 b.status, b.created_at, b.updated_at
	          FROM vessel_data.import_batches b
	          JOIN vessel_data.sources s ON s.id = b.source_id`
	args := []any{}
	if sourceShortname != "" {
		query += ` WHERE s.shortname = $1`
		args = append(args, sourceShortname)
	}
	query += ` ORDER BY b.created_at DESC`

	rows, err := l.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "ledger: list batches")
	}
	defer rows.Close()

	var out []ImportBatch
	for rows.Next() {
		var b ImportBatch
		if err := rows.Scan(&b.ID, &b.SourceID, &b.SourceShort, &b.ImportDate, &b.FilePath,
			&b.ContentHash, &b.ByteSize, &b.RawRecordCount, &b.SourceVersion,
			&b.IsIncremental, &b.IsCurrent, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "ledger: scan batch")
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
