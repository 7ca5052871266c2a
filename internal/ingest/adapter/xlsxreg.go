package adapter

import (
	"bytes"
	"io"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

var xlsxregCols = []string{
	"vessel_name",
	"flag",
	"registration_number",
	"imo",
	"call_sign",
	"vessel_type",
	"length_m",
	"tonnage_gt",
	"build_year",
	"owner",
	"port",
}

const (
	xregColName    = 0
	xregColFlag    = 1
	xregColReg     = 2
	xregColIMO     = 3
	xregColCall    = 4
	xregColType    = 5
	xregColLength  = 6
	xregColTonnage = 7
	xregColYear    = 8
	xregColOwner   = 9
	xregColPort    = 10
)

// XLSXRegistry parses spreadsheet-based registry submissions: first sheet,
// one header row, columns in fixed order.
type XLSXRegistry struct{}

func (a *XLSXRegistry) Name() string      { return "xlsxreg" }
func (a *XLSXRegistry) Columns() []string { return xlsxregCols }

func (a *XLSXRegistry) Parse(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "xlsxreg: read file")
	}

	wb, err := xlsx.OpenReaderAt(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "xlsxreg: open workbook")
	}
	if len(wb.Sheets) == 0 {
		return nil, eris.New("xlsxreg: workbook has no sheets")
	}

	sheet := wb.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, eris.New("xlsxreg: sheet has no rows")
	}

	var rows [][]string
	for _, xr := range sheet.Rows[1:] { // skip header row
		fields := make([]string, len(xlsxregCols))
		empty := true
		for i := range xlsxregCols {
			if i < len(xr.Cells) {
				fields[i] = xr.Cells[i].String()
				if fields[i] != "" {
					empty = false
				}
			}
		}
		if empty {
			continue
		}
		rows = append(rows, fields)
	}

	return rows, nil
}

func (a *XLSXRegistry) Canonical(row []string) map[string]string {
	doc := make(map[string]string)

	setIfPresent(doc, FieldVesselName, field(row, xregColName))
	setIfPresent(doc, FieldFlagCode, field(row, xregColFlag))
	setIfPresent(doc, FieldRegistration, field(row, xregColReg))
	setIfPresent(doc, FieldIMO, field(row, xregColIMO))
	setIfPresent(doc, FieldCallSign, field(row, xregColCall))
	setIfPresent(doc, FieldVesselType, field(row, xregColType))
	setIfPresent(doc, FieldLengthM, field(row, xregColLength))
	setIfPresent(doc, FieldTonnageGT, field(row, xregColTonnage))
	setIfPresent(doc, FieldBuildYear, field(row, xregColYear))
	setIfPresent(doc, FieldOwnerName, field(row, xregColOwner))
	setIfPresent(doc, FieldHomePort, field(row, xregColPort))

	return doc
}

func (a *XLSXRegistry) IdentityColumns() []string {
	return []string{FieldRegistration, FieldVesselName, FieldFlagCode}
}

func (a *XLSXRegistry) IdentifierPriority() []string {
	return []string{FieldRegistration, FieldIMO, FieldCallSign}
}

func (a *XLSXRegistry) CompletenessFields() []string {
	return []string{
		FieldVesselName,
		FieldRegistration,
		FieldVesselType,
		FieldLengthM,
		FieldTonnageGT,
		FieldBuildYear,
		FieldOwnerName,
	}
}
