package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/perseis-platform/ebisu/internal/db"
)

// stagingSchema is where per-batch staging relations live.
const stagingSchema = "vessel_data"

// StagingTable is one batch's private, source-shaped staging relation.
// Every column is TEXT; no coercion happens before validation. The table is
// created inside the stage-1 transaction (so a rollback leaves nothing
// behind) and dropped explicitly after the stage commits.
type StagingTable struct {
	Name    string
	columns []string
}

// NewStagingTable derives a batch-unique staging table name for an adapter
// layout. The random suffix keeps a retried batch id from colliding with a
// leftover table from a crashed run.
func NewStagingTable(adapterName string, batchID int64, columns []string) *StagingTable {
	suffix := strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	return &StagingTable{
		Name:    fmt.Sprintf("staging_%s_b%d_%s", adapterName, batchID, suffix),
		columns: columns,
	}
}

// Create creates the staging relation inside the given transaction.
func (st *StagingTable) Create(ctx context.Context, tx pgx.Tx) error {
	defs := make([]string, len(st.columns))
	for i, c := range st.columns {
		defs[i] = pgx.Identifier{c}.Sanitize() + " TEXT"
	}
	sql := fmt.Sprintf("CREATE TABLE %s (%s)",
		pgx.Identifier{stagingSchema, st.Name}.Sanitize(),
		strings.Join(defs, ", "),
	)
	if _, err := tx.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "staging: create table %s", st.Name)
	}
	return nil
}

// Load bulk-inserts raw rows via COPY, in batches of batchSize.
// Rows must align with the adapter's column shape.
func (st *StagingTable) Load(ctx context.Context, tx pgx.Tx, rows [][]string, batchSize int) (int64, error) {
	if batchSize <= 0 {
		batchSize = 5000
	}

	var total int64
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		chunk := make([][]any, 0, end-start)
		for _, row := range rows[start:end] {
			if len(row) != len(st.columns) {
				return total, eris.Errorf("staging: row has %d fields, table %s has %d columns",
					len(row), st.Name, len(st.columns))
			}
			vals := make([]any, len(row))
			for i, v := range row {
				vals[i] = v
			}
			chunk = append(chunk, vals)
		}

		n, err := db.CopyFromSchema(ctx, tx, stagingSchema, st.Name, st.columns, chunk)
		if err != nil {
			return total, eris.Wrapf(err, "staging: COPY into %s", st.Name)
		}
		total += n
	}

	return total, nil
}

// ReadRows reads every staged row back in column order.
func (st *StagingTable) ReadRows(ctx context.Context, tx pgx.Tx) ([][]string, error) {
	cols := make([]string, len(st.columns))
	for i, c := range st.columns {
		cols[i] = pgx.Identifier{c}.Sanitize()
	}
	sql := fmt.Sprintf("SELECT %s FROM %s",
		strings.Join(cols, ", "),
		pgx.Identifier{stagingSchema, st.Name}.Sanitize(),
	)

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, eris.Wrapf(err, "staging: read %s", st.Name)
	}
	defer rows.Close()

	var out [][]string
	for rows.Next() {
		vals := make([]*string, len(st.columns))
		dests := make([]any, len(st.columns))
		for i := range vals {
			dests[i] = &vals[i]
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, eris.Wrapf(err, "staging: scan %s", st.Name)
		}
		row := make([]string, len(st.columns))
		for i, v := range vals {
			if v != nil {
				row[i] = *v
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// Drop removes the staging relation. Safe to call whether or not the
// creating transaction committed.
func (st *StagingTable) Drop(ctx context.Context, pool db.Pool) error {
	sql := fmt.Sprintf("DROP TABLE IF EXISTS %s",
		pgx.Identifier{stagingSchema, st.Name}.Sanitize())
	if _, err := pool.Exec(ctx, sql); err != nil {
		return eris.Wrapf(err, "staging: drop %s", st.Name)
	}
	return nil
}
