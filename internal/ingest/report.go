package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/perseis-platform/ebisu/internal/db"
	"github.com/perseis-platform/ebisu/internal/ingest/adapter"
)

// Report is one canonical vessel document as staged into
// intelligence_reports: the adapter's canonical attribute map plus the
// deterministic ordering key and row content hash.
type Report struct {
	Document    map[string]string
	RowOrdinal  int64
	ContentHash string
	orderKey    string
}

// BuildStats summarizes canonicalization of one batch.
type BuildStats struct {
	RowsIn      int
	SkippedRows int // rows without a vessel name
	Duplicates  int // within-batch identity duplicates dropped
}

// identitySep joins identity values into the ordering key. A control
// character keeps "AB"+"C" distinct from "A"+"BC".
const identitySep = "\x1f"

// orderKeyFor builds the deterministic ordering key from the adapter's
// identity columns. Values are uppercased with whitespace collapsed so that
// cosmetic differences between exports do not reorder the batch.
func orderKeyFor(doc map[string]string, identityCols []string) string {
	parts := make([]string, len(identityCols))
	for i, col := range identityCols {
		v := strings.ToUpper(strings.TrimSpace(doc[col]))
		parts[i] = strings.Join(strings.Fields(v), " ")
	}
	return strings.Join(parts, identitySep)
}

// BuildReports canonicalizes staged rows into ordered, hashed reports.
//
// Rows lacking a vessel name are dropped. The surviving rows are sorted by
// identity key, deduplicated on content hash (first occurrence wins), and
// numbered with 1-based ordinals, so that two loads of the same file content
// always produce identical report rows.
func BuildReports(a adapter.Adapter, rows [][]string) ([]Report, *BuildStats, error) {
	stats := &BuildStats{RowsIn: len(rows)}
	identityCols := a.IdentityColumns()

	reports := make([]Report, 0, len(rows))
	for _, row := range rows {
		doc := a.Canonical(row)
		if doc[adapter.FieldVesselName] == "" {
			stats.SkippedRows++
			continue
		}
		key := orderKeyFor(doc, identityCols)
		sum := sha256.Sum256([]byte(key))
		reports = append(reports, Report{
			Document:    doc,
			ContentHash: hex.EncodeToString(sum[:]),
			orderKey:    key,
		})
	}

	if len(reports) == 0 {
		return nil, stats, NewLoadValidationError(
			eris.Errorf("adapter %s: no rows with a vessel name survived canonicalization", a.Name()))
	}

	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].orderKey < reports[j].orderKey
	})

	deduped := reports[:0]
	seen := make(map[string]struct{}, len(reports))
	for _, r := range reports {
		if _, dup := seen[r.ContentHash]; dup {
			stats.Duplicates++
			continue
		}
		seen[r.ContentHash] = struct{}{}
		r.RowOrdinal = int64(len(deduped) + 1)
		deduped = append(deduped, r)
	}

	return deduped, stats, nil
}

// InsertReports bulk-loads reports for a batch via COPY.
func InsertReports(ctx context.Context, tx pgx.Tx, batchID, sourceID int64, sourceShortname, fileName string, reports []Report) (int64, error) {
	rows := make([][]any, 0, len(reports))
	for _, r := range reports {
		doc, err := json.Marshal(r.Document)
		if err != nil {
			return 0, eris.Wrap(err, "report: marshal document")
		}
		rows = append(rows, []any{
			sourceID, sourceShortname, batchID, doc, fileName, r.RowOrdinal, r.ContentHash,
		})
	}

	n, err := db.CopyFromSchema(ctx, tx, "vessel_data", "intelligence_reports",
		[]string{"source_id", "source_shortname", "batch_id", "document", "file_name", "row_ordinal", "content_hash"},
		rows,
	)
	if err != nil {
		return 0, eris.Wrap(err, "report: COPY intelligence_reports")
	}
	return n, nil
}
