package adapter

import (
	"bufio"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

var nordregCols = []string{
	"regmerke",
	"fartoynavn",
	"radiokallesignal",
	"imo",
	"mmsi",
	"lengde",
	"bruttotonnasje",
	"byggeaar",
	"motorkraft",
	"eier",
	"hjemstedshavn",
	"fartoytype",
	"redskap",
}

const (
	nordColReg     = 0
	nordColName    = 1
	nordColCall    = 2
	nordColIMO     = 3
	nordColMMSI    = 4
	nordColLength  = 5
	nordColTonnage = 6
	nordColYear    = 7
	nordColPower   = 8
	nordColOwner   = 9
	nordColPort    = 10
	nordColType    = 11
	nordColGear    = 12
)

// NordicRegistry parses a Nordic national registry export:
// semicolon-delimited, ISO-8859-1 encoded, one header row. Bytes are
// transcoded to UTF-8 on read before any splitting.
type NordicRegistry struct{}

func (a *NordicRegistry) Name() string      { return "nordreg" }
func (a *NordicRegistry) Columns() []string { return nordregCols }

func (a *NordicRegistry) Parse(r io.Reader) ([][]string, error) {
	utf8r := transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	sc := bufio.NewScanner(utf8r)
	sc.Buffer(make([]byte, 0, 1024*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, eris.Wrap(err, "nordreg: read header")
		}
		return nil, eris.New("nordreg: empty file")
	}
	if got := strings.Count(sc.Text(), ";") + 1; got != len(nordregCols) {
		return nil, eris.Errorf("nordreg: header has %d fields, expected %d", got, len(nordregCols))
	}

	var rows [][]string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, padOrTruncate(strings.Split(line, ";"), len(nordregCols)))
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "nordreg: scan rows")
	}

	return rows, nil
}

func (a *NordicRegistry) Canonical(row []string) map[string]string {
	doc := make(map[string]string)

	setIfPresent(doc, FieldVesselName, field(row, nordColName))
	doc[FieldFlagCode] = "NOR"
	setIfPresent(doc, FieldRegistration, field(row, nordColReg))
	setIfPresent(doc, FieldCallSign, field(row, nordColCall))
	setIfPresent(doc, FieldIMO, field(row, nordColIMO))
	setIfPresent(doc, FieldMMSI, field(row, nordColMMSI))
	setIfPresent(doc, FieldLengthM, field(row, nordColLength))
	setIfPresent(doc, FieldTonnageGT, field(row, nordColTonnage))
	setIfPresent(doc, FieldBuildYear, field(row, nordColYear))
	setIfPresent(doc, FieldEnginePowerKW, field(row, nordColPower))
	setIfPresent(doc, FieldOwnerName, field(row, nordColOwner))
	setIfPresent(doc, FieldHomePort, field(row, nordColPort))
	setIfPresent(doc, FieldVesselType, field(row, nordColType))
	setIfPresent(doc, FieldGearType, field(row, nordColGear))

	return doc
}

func (a *NordicRegistry) IdentityColumns() []string {
	return []string{FieldRegistration, FieldVesselName}
}

func (a *NordicRegistry) IdentifierPriority() []string {
	return []string{FieldRegistration, FieldIMO, FieldCallSign, FieldMMSI}
}

func (a *NordicRegistry) CompletenessFields() []string {
	return []string{
		FieldVesselName,
		FieldRegistration,
		FieldLengthM,
		FieldTonnageGT,
		FieldBuildYear,
		FieldEnginePowerKW,
		FieldOwnerName,
	}
}
