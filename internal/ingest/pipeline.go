package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/perseis-platform/ebisu/internal/config"
	"github.com/perseis-platform/ebisu/internal/db"
	"github.com/perseis-platform/ebisu/internal/ingest/adapter"
	"github.com/perseis-platform/ebisu/internal/ingest/extract"
	"github.com/perseis-platform/ebisu/internal/reconcile"
	"github.com/perseis-platform/ebisu/internal/source"
)

// ImportOptions carries the per-invocation knobs of one file import.
type ImportOptions struct {
	SourceShortname string
	FilePath        string
	SourceVersion   string
	Incremental     bool
}

// ImportResult summarizes one completed import for the CLI.
type ImportResult struct {
	BatchID     int64
	ContentHash string
	Duplicate   bool

	RowsInFile  int64
	StagedRows  int64
	Reports     int64
	SkippedRows int
	Duplicates  int
	Extracted   int64
	SkippedNoID int
	FlagCounts  map[string]int
}

// Pipeline is the per-file ingestion engine: guard, stage 1 (raw reports),
// stage 2 (typed extraction), reconciliation, close.
type Pipeline struct {
	pool     db.Pool
	sources  *source.Store
	ledger   *Ledger
	adapters *adapter.Registry
	cfg      config.IngestConfig
	log      *zap.Logger
}

// NewPipeline wires the ingestion engine.
func NewPipeline(pool db.Pool, cfg config.IngestConfig) *Pipeline {
	return &Pipeline{
		pool:     pool,
		sources:  source.NewStore(pool),
		ledger:   NewLedger(pool),
		adapters: adapter.NewRegistry(),
		cfg:      cfg,
		log:      zap.L().Named("ingest"),
	}
}

// Run imports one file end to end.
//
// A byte-identical prior import is a success no-op (Duplicate set, nothing
// written). An unknown source or adapter is a ConfigError raised before any
// write. Every failure after the batch opens lands the batch in failed and
// its lineage in FAILED, and the batch is never current.
func (p *Pipeline) Run(ctx context.Context, opts ImportOptions) (*ImportResult, error) {
	src, err := p.sources.ByShortname(ctx, opts.SourceShortname)
	if err != nil {
		if eris.Is(err, source.ErrNotFound) {
			return nil, NewConfigError(eris.Errorf("unknown source %q", opts.SourceShortname))
		}
		return nil, err
	}
	a, err := p.adapters.Get(src.Adapter)
	if err != nil {
		return nil, NewConfigError(err)
	}
	if _, err := os.Stat(opts.FilePath); err != nil {
		return nil, NewConfigError(eris.Wrapf(err, "input file %s", opts.FilePath))
	}

	fp, err := ComputeFingerprint(opts.FilePath)
	if err != nil {
		return nil, err
	}

	res := &ImportResult{ContentHash: fp.ContentHash}

	prior, err := p.ledger.FindNonFailedLineage(ctx, src.ID, fp.ContentHash)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		p.log.Info("file already imported, skipping",
			zap.String("source", src.Shortname),
			zap.String("content_hash", fp.ContentHash),
			zap.Int64("prior_batch_id", prior.BatchID),
		)
		res.Duplicate = true
		res.BatchID = prior.BatchID
		return res, nil
	}

	batchID, err := p.ledger.Open(ctx, src.ID, opts.FilePath, fp, opts.SourceVersion, opts.Incremental)
	if err != nil {
		if eris.Is(err, ErrDuplicateImport) {
			res.Duplicate = true
			return res, nil
		}
		return nil, err
	}
	res.BatchID = batchID
	p.log.Info("batch opened",
		zap.Int64("batch_id", batchID),
		zap.String("source", src.Shortname),
		zap.String("file", opts.FilePath),
		zap.String("content_hash", fp.ContentHash),
	)

	if err := p.run(ctx, src, a, opts, batchID, res); err != nil {
		// The failure may be the context's own cancellation; the ledger
		// write must still land or the (source, hash) pair wedges as a
		// permanent PROCESSING duplicate.
		if ferr := p.ledger.MarkFailed(context.WithoutCancel(ctx), batchID, err.Error()); ferr != nil {
			p.log.Error("failed to mark batch failed", zap.Int64("batch_id", batchID), zap.Error(ferr))
		}
		return nil, err
	}

	if err := p.ledger.MarkCompleted(ctx, batchID); err != nil {
		return nil, err
	}
	p.log.Info("batch completed",
		zap.Int64("batch_id", batchID),
		zap.Int64("reports", res.Reports),
		zap.Int64("extracted", res.Extracted),
	)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, src *source.Source, a adapter.Adapter, opts ImportOptions, batchID int64, res *ImportResult) error {
	if err := p.stage1(ctx, src, a, opts.FilePath, batchID, res); err != nil {
		return err
	}
	if err := p.stage2(ctx, src, a, opts.Incremental, batchID, res); err != nil {
		return err
	}
	return reconcile.New(p.pool).UpdateBatch(ctx, batchID)
}

// stage1 parses the file, stages it into a private COPY table, and writes
// canonical ordered reports. Everything runs in one transaction: a failure
// rolls back the reports and the staging table alike.
func (p *Pipeline) stage1(ctx context.Context, src *source.Source, a adapter.Adapter, filePath string, batchID int64, res *ImportResult) error {
	f, err := os.Open(filePath)
	if err != nil {
		return eris.Wrapf(err, "ingest: open %s", filePath)
	}
	defer f.Close()

	rows, err := a.Parse(f)
	if err != nil {
		return NewLoadValidationError(eris.Wrapf(err, "ingest: parse %s", filePath))
	}
	res.RowsInFile = int64(len(rows))
	if len(rows) == 0 {
		return NewLoadValidationError(eris.Errorf("ingest: %s contains no data rows", filePath))
	}

	staging := NewStagingTable(a.Name(), batchID, a.Columns())
	defer func() {
		if err := staging.Drop(context.WithoutCancel(ctx), p.pool); err != nil {
			p.log.Warn("staging table cleanup failed", zap.String("table", staging.Name), zap.Error(err))
		}
	}()

	return db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		if err := staging.Create(ctx, tx); err != nil {
			return err
		}
		staged, err := staging.Load(ctx, tx, rows, p.cfg.CopyBatchSize)
		if err != nil {
			return err
		}
		res.StagedRows = staged

		stagedRows, err := staging.ReadRows(ctx, tx)
		if err != nil {
			return err
		}

		reports, stats, err := BuildReports(a, stagedRows)
		if err != nil {
			return err
		}
		res.SkippedRows = stats.SkippedRows
		res.Duplicates = stats.Duplicates

		inserted, err := InsertReports(ctx, tx, batchID, src.ID, src.Shortname, filepath.Base(filePath), reports)
		if err != nil {
			return err
		}
		res.Reports = inserted

		return p.ledger.MarkStage1(ctx, tx, batchID, res.RowsInFile, inserted)
	})
}

// stage2 extracts typed records from the batch's reports and flips the
// batch current, superseding prior current data of the source when the
// import is a full snapshot. One transaction covers extraction inserts and
// the supersession flips.
func (p *Pipeline) stage2(ctx context.Context, src *source.Source, a adapter.Adapter, incremental bool, batchID int64, res *ImportResult) error {
	reports, err := p.loadReports(ctx, batchID)
	if err != nil {
		return err
	}

	records, skipped, err := extract.NewExtractor(p.cfg.ExtractWorkers).
		ExtractBatch(ctx, reports, a, string(src.Authority))
	if err != nil {
		return err
	}
	res.SkippedNoID = skipped
	res.FlagCounts = extract.FlagDistribution(records)

	return db.WithTx(ctx, p.pool, func(tx pgx.Tx) error {
		n, err := extract.InsertRecords(ctx, tx, batchID, src.ID, src.Shortname, records)
		if err != nil {
			return err
		}
		res.Extracted = n
		return p.ledger.MarkStage2(ctx, tx, batchID, src.ID, n, incremental)
	})
}

func (p *Pipeline) loadReports(ctx context.Context, batchID int64) ([]extract.ReportRow, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, document FROM vessel_data.intelligence_reports
		 WHERE batch_id = $1 ORDER BY row_ordinal`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: load reports for batch %d", batchID)
	}
	defer rows.Close()

	var out []extract.ReportRow
	for rows.Next() {
		var (
			rep extract.ReportRow
			doc []byte
		)
		if err := rows.Scan(&rep.ID, &doc); err != nil {
			return nil, eris.Wrap(err, "ingest: scan report")
		}
		if err := json.Unmarshal(doc, &rep.Document); err != nil {
			return nil, eris.Wrapf(err, "ingest: decode report %d", rep.ID)
		}
		out = append(out, rep)
	}
	return out, rows.Err()
}
