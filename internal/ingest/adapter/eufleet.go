package adapter

import (
	"bufio"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// eufleetCols is the 40-column EU Fleet Register export layout,
// semicolon-delimited, UTF-8.
var eufleetCols = []string{
	"country_of_registration",
	"cfr",
	"uvi",
	"event",
	"event_start_date",
	"event_end_date",
	"registration_number",
	"external_marking",
	"name_of_vessel",
	"place_of_registration",
	"place_of_registration_name",
	"ircs",
	"ircs_indicator",
	"licence_indicator",
	"vms_indicator",
	"ers_indicator",
	"ais_indicator",
	"mmsi",
	"vessel_type",
	"main_fishing_gear",
	"subsidiary_fishing_gear_1",
	"subsidiary_fishing_gear_2",
	"subsidiary_fishing_gear_3",
	"subsidiary_fishing_gear_4",
	"subsidiary_fishing_gear_5",
	"loa",
	"lbp",
	"tonnage_gt",
	"other_tonnage",
	"gts",
	"power_of_main_engine",
	"power_of_auxiliary_engine",
	"hull_material",
	"date_of_entry_into_service",
	"segment",
	"country_of_import_export",
	"type_of_export",
	"public_aid",
	"year_of_construction",
	"name_of_owner",
}

// Column indices used by the canonical mapping.
const (
	euColCountry    = 0
	euColCFR        = 1
	euColUVI        = 2
	euColRegNbr     = 6
	euColExtMark    = 7
	euColName       = 8
	euColPortName   = 10
	euColIRCS       = 11
	euColMMSI       = 17
	euColVesselType = 18
	euColMainGear   = 19
	euColLOA        = 25
	euColTonnage    = 27
	euColPowerMain  = 30
	euColHull       = 32
	euColSegment    = 34
	euColYear       = 38
	euColOwner      = 39
)

// EUFleet parses EU Fleet Register exports. National exports of this layout
// are known to embed stray quote-comma sequences inside place names and to
// ship short or overlong rows, so parsing is line-based with repair rather
// than strict CSV.
type EUFleet struct{}

func (a *EUFleet) Name() string      { return "eufleet" }
func (a *EUFleet) Columns() []string { return eufleetCols }

func (a *EUFleet) Parse(r io.Reader) ([][]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, eris.Wrap(err, "eufleet: read header")
		}
		return nil, eris.New("eufleet: empty file")
	}

	header := strings.TrimPrefix(sc.Text(), "\uFEFF")
	if got := strings.Count(header, ";") + 1; got != len(eufleetCols) {
		return nil, eris.Errorf("eufleet: header has %d fields, expected %d", got, len(eufleetCols))
	}

	var rows [][]string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		line = repairQuoteComma(line)
		rows = append(rows, padOrTruncate(strings.Split(line, ";"), len(eufleetCols)))
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "eufleet: scan rows")
	}

	return rows, nil
}

func (a *EUFleet) Canonical(row []string) map[string]string {
	doc := make(map[string]string)

	setIfPresent(doc, FieldVesselName, field(row, euColName))
	setIfPresent(doc, FieldFlagCode, field(row, euColCountry))
	// CFR is the EU-wide unique fleet number and serves as the canonical
	// registration identifier; the national number is kept alongside it.
	setIfPresent(doc, FieldRegistration, field(row, euColCFR))
	setIfPresent(doc, "national_registration_number", field(row, euColRegNbr))
	setIfPresent(doc, FieldUVI, field(row, euColUVI))
	setIfPresent(doc, FieldCallSign, field(row, euColIRCS))
	setIfPresent(doc, FieldMMSI, field(row, euColMMSI))
	setIfPresent(doc, FieldExternalMark, field(row, euColExtMark))
	setIfPresent(doc, FieldVesselType, field(row, euColVesselType))
	setIfPresent(doc, FieldGearType, field(row, euColMainGear))
	setIfPresent(doc, FieldLengthM, field(row, euColLOA))
	setIfPresent(doc, FieldTonnageGT, field(row, euColTonnage))
	setIfPresent(doc, FieldEnginePowerKW, field(row, euColPowerMain))
	setIfPresent(doc, FieldBuildYear, field(row, euColYear))
	setIfPresent(doc, FieldOwnerName, field(row, euColOwner))
	setIfPresent(doc, FieldHomePort, field(row, euColPortName))
	setIfPresent(doc, "hull_material", field(row, euColHull))
	setIfPresent(doc, "fleet_segment", field(row, euColSegment))

	return doc
}

func (a *EUFleet) IdentityColumns() []string {
	return []string{FieldRegistration, FieldVesselName, FieldFlagCode}
}

func (a *EUFleet) IdentifierPriority() []string {
	return []string{FieldRegistration, FieldUVI, FieldCallSign, FieldMMSI}
}

func (a *EUFleet) CompletenessFields() []string {
	return []string{
		FieldVesselName,
		FieldRegistration,
		FieldVesselType,
		FieldLengthM,
		FieldTonnageGT,
		FieldEnginePowerKW,
		FieldBuildYear,
		FieldOwnerName,
	}
}
