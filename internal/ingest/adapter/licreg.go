package adapter

import (
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
)

var licregCols = []string{
	"licence_number",
	"licence_holder",
	"vessel_name",
	"flag",
	"call_sign",
	"fishery",
	"area",
	"valid_from",
	"valid_to",
	"vessel_length",
	"authorised_gear",
}

const (
	licColNumber  = 0
	licColHolder  = 1
	licColName    = 2
	licColFlag    = 3
	licColCall    = 4
	licColFishery = 5
	licColArea    = 6
	licColFrom    = 7
	licColTo      = 8
	licColLength  = 9
	licColGear    = 10
)

// LicenseRegistry parses fishing licence registry exports: comma-delimited
// with a non-data banner row followed by two header rows, both of which may
// contain embedded newlines inside quoted header cells. A real CSV reader
// is required here; line splitting would tear the headers apart.
type LicenseRegistry struct{}

func (a *LicenseRegistry) Name() string      { return "licreg" }
func (a *LicenseRegistry) Columns() []string { return licregCols }

func (a *LicenseRegistry) Parse(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	// Banner row plus two header rows.
	for i := 0; i < 3; i++ {
		if _, err := cr.Read(); err == io.EOF {
			return nil, eris.New("licreg: file ends before data rows")
		} else if err != nil {
			return nil, eris.Wrapf(err, "licreg: read header row %d", i+1)
		}
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "licreg: read row")
		}
		rows = append(rows, padOrTruncate(rec, len(licregCols)))
	}

	return rows, nil
}

func (a *LicenseRegistry) Canonical(row []string) map[string]string {
	doc := make(map[string]string)

	setIfPresent(doc, FieldVesselName, field(row, licColName))
	setIfPresent(doc, FieldFlagCode, field(row, licColFlag))
	setIfPresent(doc, FieldLicenseID, field(row, licColNumber))
	setIfPresent(doc, FieldCallSign, field(row, licColCall))
	setIfPresent(doc, FieldOwnerName, field(row, licColHolder))
	setIfPresent(doc, FieldLengthM, field(row, licColLength))
	setIfPresent(doc, FieldGearType, field(row, licColGear))
	setIfPresent(doc, "fishery", field(row, licColFishery))
	setIfPresent(doc, "area", field(row, licColArea))
	setIfPresent(doc, "licence_valid_from", field(row, licColFrom))
	setIfPresent(doc, "licence_valid_to", field(row, licColTo))

	return doc
}

func (a *LicenseRegistry) IdentityColumns() []string {
	return []string{FieldLicenseID, FieldVesselName}
}

func (a *LicenseRegistry) IdentifierPriority() []string {
	return []string{FieldLicenseID, FieldCallSign}
}

func (a *LicenseRegistry) CompletenessFields() []string {
	return []string{
		FieldVesselName,
		FieldLicenseID,
		FieldFlagCode,
		FieldLengthM,
		FieldGearType,
	}
}
