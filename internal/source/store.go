package source

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/perseis-platform/ebisu/internal/db"
)

// Store provides read access to vessel_data.sources plus the out-of-band
// seeding write path.
type Store struct {
	pool db.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool db.Pool) *Store {
	return &Store{pool: pool}
}

// ErrNotFound is returned when a shortname has no sources row.
var ErrNotFound = eris.New("source: not found")

// ByShortname looks up a source by its unique shortname.
func (s *Store) ByShortname(ctx context.Context, shortname string) (*Source, error) {
	var src Source
	err := s.pool.QueryRow(ctx,
		`SELECT id, shortname, name, authority_level, adapter, created_at
		 FROM vessel_data.sources WHERE shortname = $1`,
		shortname,
	).Scan(&src.ID, &src.Shortname, &src.Name, &src.Authority, &src.Adapter, &src.CreatedAt)
	if err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrapf(err, "source: lookup %s", shortname)
	}
	return &src, nil
}

// List returns all sources ordered by shortname.
func (s *Store) List(ctx context.Context) ([]Source, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, shortname, name, authority_level, adapter, created_at
		 FROM vessel_data.sources ORDER BY shortname`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "source: list")
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.ID, &src.Shortname, &src.Name, &src.Authority, &src.Adapter, &src.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "source: scan row")
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

// Create inserts a new source. Existing shortnames are left untouched so
// seeding can be re-run safely; returns true if a row was inserted.
func (s *Store) Create(ctx context.Context, src Source) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO vessel_data.sources (shortname, name, authority_level, adapter)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (shortname) DO NOTHING`,
		src.Shortname, src.Name, src.Authority, src.Adapter,
	)
	if err != nil {
		return false, eris.Wrapf(err, "source: create %s", src.Shortname)
	}
	return tag.RowsAffected() > 0, nil
}
