package adapter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// flRecord is one row of the Florida commercial vessel registry export.
// Gear participation is encoded as per-gear Y/N flag columns.
type flRecord struct {
	VesselName   string `csv:"VESSEL_NAME"`
	RegNumber    string `csv:"FL_REG_NO"`
	USCGNumber   string `csv:"USCG_DOC_NO"`
	CallSign     string `csv:"RADIO_CALL_SIGN"`
	HomePort     string `csv:"HOME_PORT"`
	County       string `csv:"COUNTY"`
	LengthFt     string `csv:"LENGTH_FT"`
	GrossTons    string `csv:"GROSS_TONS"`
	YearBuilt    string `csv:"YEAR_BUILT"`
	EngineHP     string `csv:"ENGINE_HP"`
	OwnerName    string `csv:"OWNER_NAME"`
	VesselType   string `csv:"VESSEL_TYPE"`
	GearTrawl    string `csv:"GEAR_TRAWL"`
	GearGillnet  string `csv:"GEAR_GILLNET"`
	GearLongline string `csv:"GEAR_LONGLINE"`
	GearTrap     string `csv:"GEAR_TRAP"`
	GearDive     string `csv:"GEAR_DIVE"`
}

var flstateCols = []string{
	"vessel_name",
	"fl_reg_no",
	"uscg_doc_no",
	"radio_call_sign",
	"home_port",
	"county",
	"length_ft",
	"gross_tons",
	"year_built",
	"engine_hp",
	"owner_name",
	"vessel_type",
	"gear_trawl",
	"gear_gillnet",
	"gear_longline",
	"gear_trap",
	"gear_dive",
}

const (
	flColName      = 0
	flColReg       = 1
	flColUSCG      = 2
	flColCall      = 3
	flColPort      = 4
	flColCounty    = 5
	flColLength    = 6
	flColTons      = 7
	flColYear      = 8
	flColHP        = 9
	flColOwner     = 10
	flColType      = 11
	flColGearFirst = 12
)

// flGearCodes maps flag column offsets (from flColGearFirst) to gear codes.
var flGearCodes = []string{"TRAWL", "GILLNET", "LONGLINE", "TRAP", "DIVE"}

// FLState parses the Florida state registry: comma-delimited UTF-8 with a
// single header row and Y/N gear flag columns, decoded through csvutil
// struct tags so header order does not matter.
type FLState struct{}

func (a *FLState) Name() string      { return "flstate" }
func (a *FLState) Columns() []string { return flstateCols }

func (a *FLState) Parse(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	dec, err := csvutil.NewDecoder(cr)
	if err != nil {
		return nil, eris.Wrap(err, "flstate: read header")
	}

	var rows [][]string
	for {
		var rec flRecord
		if err := dec.Decode(&rec); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrap(err, "flstate: decode row")
		}

		rows = append(rows, []string{
			rec.VesselName,
			rec.RegNumber,
			rec.USCGNumber,
			rec.CallSign,
			rec.HomePort,
			rec.County,
			rec.LengthFt,
			rec.GrossTons,
			rec.YearBuilt,
			rec.EngineHP,
			rec.OwnerName,
			rec.VesselType,
			rec.GearTrawl,
			rec.GearGillnet,
			rec.GearLongline,
			rec.GearTrap,
			rec.GearDive,
		})
	}

	return rows, nil
}

func (a *FLState) Canonical(row []string) map[string]string {
	doc := make(map[string]string)

	setIfPresent(doc, FieldVesselName, field(row, flColName))
	doc[FieldFlagCode] = "USA"
	setIfPresent(doc, FieldRegistration, field(row, flColReg))
	setIfPresent(doc, FieldUVI, field(row, flColUSCG))
	setIfPresent(doc, FieldCallSign, field(row, flColCall))
	setIfPresent(doc, FieldHomePort, field(row, flColPort))
	setIfPresent(doc, "county", field(row, flColCounty))
	setIfPresent(doc, FieldLengthM, feetToMeters(field(row, flColLength)))
	setIfPresent(doc, FieldTonnageGT, field(row, flColTons))
	setIfPresent(doc, FieldBuildYear, field(row, flColYear))
	setIfPresent(doc, FieldEnginePowerKW, hpToKilowatts(field(row, flColHP)))
	setIfPresent(doc, FieldOwnerName, field(row, flColOwner))
	setIfPresent(doc, FieldVesselType, field(row, flColType))

	var gears []string
	for i, code := range flGearCodes {
		if strings.EqualFold(strings.TrimSpace(field(row, flColGearFirst+i)), "Y") {
			gears = append(gears, code)
		}
	}
	if len(gears) > 0 {
		doc[FieldGearType] = strings.Join(gears, ",")
	}

	return doc
}

func (a *FLState) IdentityColumns() []string {
	return []string{FieldRegistration, FieldVesselName}
}

func (a *FLState) IdentifierPriority() []string {
	return []string{FieldRegistration, FieldUVI, FieldCallSign}
}

func (a *FLState) CompletenessFields() []string {
	return []string{
		FieldVesselName,
		FieldRegistration,
		FieldVesselType,
		FieldLengthM,
		FieldOwnerName,
	}
}

// feetToMeters converts a feet measurement to meters, passing malformed
// values through untouched so they surface as data-quality nulls at
// extraction rather than silently vanishing here.
func feetToMeters(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	ft, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%.2f", ft*0.3048)
}

// hpToKilowatts converts horsepower to kilowatts with the same pass-through
// behavior for malformed values.
func hpToKilowatts(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	hp, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%.2f", hp*0.7457)
}
