package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// CopyFromer is the COPY surface shared by pools and transactions, so bulk
// loads can run standalone or inside a larger transaction.
type CopyFromer interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// CopyFrom bulk-inserts rows into an unqualified (or session-local) table
// using the PostgreSQL COPY protocol.
func CopyFrom(ctx context.Context, conn CopyFromer, table string, columns []string, rows [][]any) (int64, error) {
	return copyInto(ctx, conn, pgx.Identifier{table}, columns, rows)
}

// CopyFromSchema bulk-inserts rows into a schema-qualified table using the
// PostgreSQL COPY protocol.
func CopyFromSchema(ctx context.Context, conn CopyFromer, schema, table string, columns []string, rows [][]any) (int64, error) {
	return copyInto(ctx, conn, pgx.Identifier{schema, table}, columns, rows)
}

func copyInto(ctx context.Context, conn CopyFromer, ident pgx.Identifier, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := conn.CopyFrom(ctx, ident, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, eris.Wrapf(err, "db: COPY INTO %s", ident.Sanitize())
	}
	return n, nil
}
