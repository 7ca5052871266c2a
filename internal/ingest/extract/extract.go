// Package extract derives typed vessel intelligence records from canonical
// report documents. Extraction is per-report and side-effect free, so a
// batch's reports are processed in parallel.
package extract

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/perseis-platform/ebisu/internal/db"
	"github.com/perseis-platform/ebisu/internal/ingest/adapter"
)

// ReportRow is the extractor's view of one staged intelligence report.
type ReportRow struct {
	ID       int64
	Document map[string]string
}

// Record is the typed extraction of one report, shaped for
// vessel_intelligence. Nil pointers are SQL nulls.
type Record struct {
	ReportID       int64
	VesselName     string
	FlagCode       *string
	Registration   *string
	IMO            *string
	UVI            *string
	CallSign       *string
	MMSI           *string
	LicenseID      *string
	VesselType     *string
	GearType       *string
	LengthM        *float64
	TonnageGT      *float64
	EnginePowerKW  *float64
	BuildYear      *int16
	OwnerName      *string
	Payload        map[string]string
	Completeness   float64
	AuthorityLevel string
}

// canonicalFields is the full canonical attribute set; document keys outside
// it are jurisdiction-specific and land in the record's payload.
var canonicalFields = map[string]struct{}{
	adapter.FieldVesselName:    {},
	adapter.FieldFlagCode:      {},
	adapter.FieldRegistration:  {},
	adapter.FieldIMO:           {},
	adapter.FieldUVI:           {},
	adapter.FieldCallSign:      {},
	adapter.FieldMMSI:          {},
	adapter.FieldLicenseID:     {},
	adapter.FieldVesselType:    {},
	adapter.FieldGearType:      {},
	adapter.FieldLengthM:       {},
	adapter.FieldTonnageGT:     {},
	adapter.FieldEnginePowerKW: {},
	adapter.FieldBuildYear:     {},
	adapter.FieldOwnerName:     {},
	adapter.FieldHomePort:      {},
	adapter.FieldExternalMark:  {},
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// FromDocument extracts a typed record from one canonical document.
//
// It returns nil when the report cannot yield a usable record: no vessel
// name, or no external identifier at all. Malformed numeric values and IMO
// numbers failing the check digit become nulls, not errors.
func FromDocument(doc map[string]string, a adapter.Adapter, authority string) *Record {
	name := doc[adapter.FieldVesselName]
	if name == "" {
		return nil
	}

	rec := &Record{
		VesselName:     name,
		FlagCode:       optional(NormalizeFlag(doc[adapter.FieldFlagCode])),
		Registration:   optional(doc[adapter.FieldRegistration]),
		CallSign:       optional(doc[adapter.FieldCallSign]),
		MMSI:           optional(doc[adapter.FieldMMSI]),
		LicenseID:      optional(doc[adapter.FieldLicenseID]),
		VesselType:     optional(doc[adapter.FieldVesselType]),
		GearType:       optional(doc[adapter.FieldGearType]),
		OwnerName:      optional(doc[adapter.FieldOwnerName]),
		AuthorityLevel: authority,
	}

	if imo := doc[adapter.FieldIMO]; imo != "" && ValidIMO(imo) {
		rec.IMO = &imo
	}
	if v, ok := Decimal(doc[adapter.FieldLengthM]); ok {
		rec.LengthM = &v
	}
	if v, ok := Decimal(doc[adapter.FieldTonnageGT]); ok {
		rec.TonnageGT = &v
	}
	if v, ok := Decimal(doc[adapter.FieldEnginePowerKW]); ok {
		rec.EnginePowerKW = &v
	}
	if y, ok := BuildYear(doc[adapter.FieldBuildYear]); ok {
		rec.BuildYear = &y
	}

	// Primary unique vessel identifier: the document's own UVI when present,
	// otherwise the first populated candidate in the adapter's priority order.
	if uvi := doc[adapter.FieldUVI]; uvi != "" {
		rec.UVI = &uvi
	} else {
		for _, field := range a.IdentifierPriority() {
			if v := rec.identifierValue(field); v != "" {
				rec.UVI = &v
				break
			}
		}
	}

	if !rec.hasIdentifier() {
		return nil
	}

	for k, v := range doc {
		if _, canonical := canonicalFields[k]; !canonical {
			if rec.Payload == nil {
				rec.Payload = make(map[string]string)
			}
			rec.Payload[k] = v
		}
	}

	rec.Completeness = completeness(rec, doc, a.CompletenessFields())
	return rec
}

func (r *Record) identifierValue(field string) string {
	deref := func(p *string) string {
		if p == nil {
			return ""
		}
		return *p
	}
	switch field {
	case adapter.FieldRegistration:
		return deref(r.Registration)
	case adapter.FieldIMO:
		return deref(r.IMO)
	case adapter.FieldUVI:
		return deref(r.UVI)
	case adapter.FieldCallSign:
		return deref(r.CallSign)
	case adapter.FieldMMSI:
		return deref(r.MMSI)
	case adapter.FieldLicenseID:
		return deref(r.LicenseID)
	}
	return ""
}

func (r *Record) hasIdentifier() bool {
	for _, field := range adapter.IdentifierFields {
		if r.identifierValue(field) != "" {
			return true
		}
	}
	return false
}

// completeness is the populated fraction of the adapter's expected subset,
// judged after typing: a malformed length counts as missing even when the
// raw document carried text in that column.
func completeness(rec *Record, doc map[string]string, fields []string) float64 {
	if len(fields) == 0 {
		return 0
	}
	populated := 0
	for _, f := range fields {
		switch f {
		case adapter.FieldVesselName:
			if rec.VesselName != "" {
				populated++
			}
		case adapter.FieldFlagCode:
			if rec.FlagCode != nil {
				populated++
			}
		case adapter.FieldIMO:
			if rec.IMO != nil {
				populated++
			}
		case adapter.FieldLengthM:
			if rec.LengthM != nil {
				populated++
			}
		case adapter.FieldTonnageGT:
			if rec.TonnageGT != nil {
				populated++
			}
		case adapter.FieldEnginePowerKW:
			if rec.EnginePowerKW != nil {
				populated++
			}
		case adapter.FieldBuildYear:
			if rec.BuildYear != nil {
				populated++
			}
		default:
			if doc[f] != "" {
				populated++
			}
		}
	}
	return float64(populated) / float64(len(fields))
}

// Extractor runs per-report extraction for a batch with bounded parallelism.
type Extractor struct {
	workers int
}

// NewExtractor creates an Extractor; workers <= 0 means sequential.
func NewExtractor(workers int) *Extractor {
	if workers <= 0 {
		workers = 1
	}
	return &Extractor{workers: workers}
}

// ExtractBatch extracts every report in parallel. Reports that cannot yield
// a record come back as nil slots in skipped positions and are dropped; the
// returned slice preserves report order.
func (e *Extractor) ExtractBatch(ctx context.Context, reports []ReportRow, a adapter.Adapter, authority string) ([]Record, int, error) {
	results := make([]*Record, len(reports))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, rep := range reports {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if rec := FromDocument(rep.Document, a, authority); rec != nil {
				rec.ReportID = rep.ID
				results[i] = rec
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, eris.Wrap(err, "extract: batch aborted")
	}

	out := make([]Record, 0, len(results))
	skipped := 0
	for _, r := range results {
		if r == nil {
			skipped++
			continue
		}
		out = append(out, *r)
	}
	return out, skipped, nil
}

// InsertRecords bulk-loads extracted records for a batch via COPY, inside
// the caller's stage-2 transaction.
func InsertRecords(ctx context.Context, tx pgx.Tx, batchID, sourceID int64, sourceShortname string, records []Record) (int64, error) {
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		var payload []byte
		if len(r.Payload) > 0 {
			var err error
			payload, err = json.Marshal(r.Payload)
			if err != nil {
				return 0, eris.Wrap(err, "extract: marshal payload")
			}
		}
		rows = append(rows, []any{
			r.ReportID, batchID, sourceID, sourceShortname,
			r.VesselName, r.FlagCode, r.Registration, r.IMO, r.UVI,
			r.CallSign, r.MMSI, r.LicenseID, r.VesselType, r.GearType,
			r.LengthM, r.TonnageGT, r.EnginePowerKW, r.BuildYear,
			r.OwnerName, payload, r.Completeness, r.AuthorityLevel,
		})
	}

	n, err := db.CopyFromSchema(ctx, tx, "vessel_data", "vessel_intelligence",
		[]string{
			"report_id", "batch_id", "source_id", "source_shortname",
			"vessel_name", "flag_code", "registration_number", "imo", "uvi",
			"call_sign", "mmsi", "license_id", "vessel_type", "gear_type",
			"length_m", "tonnage_gt", "engine_power_kw", "build_year",
			"owner_name", "payload", "completeness", "authority_level",
		},
		rows,
	)
	if err != nil {
		return 0, eris.Wrap(err, "extract: COPY vessel_intelligence")
	}
	return n, nil
}

// FlagDistribution counts extracted records per flag for the import summary.
// Records with no flag are grouped under "???".
func FlagDistribution(records []Record) map[string]int {
	dist := make(map[string]int)
	for _, r := range records {
		flag := "???"
		if r.FlagCode != nil {
			flag = *r.FlagCode
		}
		dist[flag]++
	}
	return dist
}
