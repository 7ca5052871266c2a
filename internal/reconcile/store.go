package reconcile

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/perseis-platform/ebisu/internal/db"
	"github.com/perseis-platform/ebisu/internal/ingest/adapter"
)

// Store reads the current intelligence snapshot and persists confirmation
// state. Group membership and status are decided in memory; the store only
// moves data.
type Store struct {
	pool db.Pool
}

// NewStore creates a Store backed by the given connection pool.
func NewStore(pool db.Pool) *Store {
	return &Store{pool: pool}
}

const recordColumns = `id, source_shortname, vessel_name, COALESCE(flag_code, ''),
       COALESCE(registration_number, ''), COALESCE(imo, ''), COALESCE(uvi, ''),
       COALESCE(call_sign, ''), COALESCE(mmsi, ''), COALESCE(license_id, '')`

func scanRecords(rows pgx.Rows) ([]Record, error) {
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r    Record
			name string
			ids  [6]string
		)
		if err := rows.Scan(&r.ID, &r.SourceShort, &name, &r.Flag,
			&ids[0], &ids[1], &ids[2], &ids[3], &ids[4], &ids[5]); err != nil {
			return nil, eris.Wrap(err, "reconcile: scan record")
		}
		r.Name = NormalizeName(name)
		r.Identifiers = make(map[string]string)
		for i, field := range adapter.IdentifierFields {
			if ids[i] != "" {
				r.Identifiers[field] = ids[i]
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CurrentRecords loads a snapshot of every current intelligence record.
func (s *Store) CurrentRecords(ctx context.Context) ([]Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+recordColumns+`
		 FROM vessel_data.vessel_intelligence
		 WHERE is_current
		 ORDER BY id`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: load current records")
	}
	return scanRecords(rows)
}

// BatchRecordIDs returns the ids of the batch's current records.
func (s *Store) BatchRecordIDs(ctx context.Context, batchID int64) (map[int64]struct{}, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id FROM vessel_data.vessel_intelligence
		 WHERE batch_id = $1 AND is_current`,
		batchID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "reconcile: load record ids for batch %d", batchID)
	}
	defer rows.Close()

	ids := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "reconcile: scan record id")
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// ConfirmationsFor maps each given record id to the confirmation group it
// currently belongs to, for ids that have one.
func (s *Store) ConfirmationsFor(ctx context.Context, recordIDs []int64) (map[int64]int64, error) {
	if len(recordIDs) == 0 {
		return map[int64]int64{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT vessel_intelligence_id, confirmation_id
		 FROM vessel_data.confirmation_members
		 WHERE vessel_intelligence_id = ANY($1)`,
		recordIDs,
	)
	if err != nil {
		return nil, eris.Wrap(err, "reconcile: load memberships")
	}
	defer rows.Close()

	out := make(map[int64]int64)
	for rows.Next() {
		var recID, confID int64
		if err := rows.Scan(&recID, &confID); err != nil {
			return nil, eris.Wrap(err, "reconcile: scan membership")
		}
		out[recID] = confID
	}
	return out, rows.Err()
}

// EnsureConfirmation returns the id of the confirmation row for key,
// creating it when absent. Concurrent creators race on the vessel_key
// unique constraint, not on a read-then-write check.
func (s *Store) EnsureConfirmation(ctx context.Context, key, status string, count int) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO vessel_data.vessel_confirmations (vessel_key, confirmation_count, status)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (vessel_key) DO UPDATE
		     SET confirmation_count = EXCLUDED.confirmation_count,
		         status = EXCLUDED.status,
		         updated_at = now()
		 RETURNING id`,
		key, count, status,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "reconcile: ensure confirmation %s", key)
	}
	return id, nil
}

// ConfirmationByKey returns the id of the confirmation row holding the
// given vessel key, if one exists.
func (s *Store) ConfirmationByKey(ctx context.Context, key string) (int64, bool, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM vessel_data.vessel_confirmations WHERE vessel_key = $1`,
		key,
	).Scan(&id)
	if eris.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, eris.Wrapf(err, "reconcile: look up confirmation %s", key)
	}
	return id, true, nil
}

// AddMembers attaches records to a confirmation group. Replays are no-ops;
// a record already in the group is never double-counted.
func (s *Store) AddMembers(ctx context.Context, confirmationID int64, members []Record) (int64, error) {
	rows := make([][]any, 0, len(members))
	for _, m := range members {
		rows = append(rows, []any{confirmationID, m.ID, m.SourceShort})
	}
	return db.BulkInsertIgnore(ctx, s.pool, db.InsertIgnoreConfig{
		Table:        "vessel_data.confirmation_members",
		Columns:      []string{"confirmation_id", "vessel_intelligence_id", "source_shortname"},
		ConflictKeys: []string{"confirmation_id", "vessel_intelligence_id"},
	}, rows)
}

// AbsorbConfirmations reparents the members of the given confirmation rows
// into target and deletes the emptied rows. Used when a new record bridges
// two previously separate groups.
func (s *Store) AbsorbConfirmations(ctx context.Context, target int64, absorbed []int64) error {
	if len(absorbed) == 0 {
		return nil
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO vessel_data.confirmation_members
			     (confirmation_id, vessel_intelligence_id, source_shortname)
			 SELECT $1, vessel_intelligence_id, source_shortname
			 FROM vessel_data.confirmation_members
			 WHERE confirmation_id = ANY($2)
			 ON CONFLICT (confirmation_id, vessel_intelligence_id) DO NOTHING`,
			target, absorbed,
		); err != nil {
			return eris.Wrap(err, "reconcile: reparent members")
		}
		if _, err := tx.Exec(ctx,
			`DELETE FROM vessel_data.vessel_confirmations WHERE id = ANY($1)`,
			absorbed,
		); err != nil {
			return eris.Wrap(err, "reconcile: drop absorbed confirmations")
		}
		return nil
	})
}

// UpdateConfirmation rewrites a group's aggregate after its membership
// changed.
func (s *Store) UpdateConfirmation(ctx context.Context, id int64, key, status string, count int) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE vessel_data.vessel_confirmations
		 SET vessel_key = $1, status = $2, confirmation_count = $3, updated_at = now()
		 WHERE id = $4`,
		key, status, count, id,
	); err != nil {
		return eris.Wrapf(err, "reconcile: update confirmation %d", id)
	}
	return nil
}

// ReplaceAll truncates the derived state and writes the given groups. The
// whole rewrite happens in one transaction; readers never observe a
// half-built index.
func (s *Store) ReplaceAll(ctx context.Context, groups []Group) error {
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`TRUNCATE vessel_data.confirmation_members, vessel_data.vessel_confirmations`,
		); err != nil {
			return eris.Wrap(err, "reconcile: truncate confirmation state")
		}

		for _, g := range groups {
			var confID int64
			if err := tx.QueryRow(ctx,
				`INSERT INTO vessel_data.vessel_confirmations (vessel_key, confirmation_count, status)
				 VALUES ($1, $2, $3) RETURNING id`,
				g.Key, g.Sources, g.Status,
			).Scan(&confID); err != nil {
				return eris.Wrapf(err, "reconcile: insert confirmation %s", g.Key)
			}

			memberRows := make([][]any, 0, len(g.Members))
			for _, m := range g.Members {
				memberRows = append(memberRows, []any{confID, m.ID, m.SourceShort})
			}
			if _, err := db.CopyFromSchema(ctx, tx, "vessel_data", "confirmation_members",
				[]string{"confirmation_id", "vessel_intelligence_id", "source_shortname"},
				memberRows,
			); err != nil {
				return eris.Wrapf(err, "reconcile: insert members for %s", g.Key)
			}
		}
		return nil
	})
}
