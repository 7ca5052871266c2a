package adapter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// euHeader builds a syntactically valid 40-field header line.
func euHeader() string {
	return strings.Join(eufleetCols, ";")
}

// euRow builds a 40-field row with the given named cells set.
func euRow(cells map[int]string) []string {
	row := make([]string, len(eufleetCols))
	for i, v := range cells {
		row[i] = v
	}
	return row
}

func TestEUFleet_Parse(t *testing.T) {
	a := &EUFleet{}

	input := euHeader() + "\n" +
		"ESP;ESP000123456;UVI001;MOD;2020-01-01;;3-VI-5-55;EX-123;NUEVO AMANECER;PT01;Caleta Del Sebo\", La Graciosa;EA1234;Y;Y;N;N;Y;224123456;MFV;OTB;;;;;;12.5;11.0;24.1;;;73.6;;Wood;1998-03-01;MFL;;;;1997;PESCADOS GARCIA SL\n"

	rows, err := a.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(eufleetCols))

	assert.Equal(t, "ESP000123456", rows[0][euColCFR])
	assert.Equal(t, "NUEVO AMANECER", rows[0][euColName])
	// Stray quote before the comma is repaired, comma kept.
	assert.Equal(t, "Caleta Del Sebo, La Graciosa", rows[0][euColPortName])
}

func TestEUFleet_ParseShortAndLongRows(t *testing.T) {
	a := &EUFleet{}

	input := euHeader() + "\n" +
		"ESP;ESP000123456;;;;;;;CORTO\n" + // 9 fields, padded
		strings.Repeat("x;", 45) + "x\n" // 46 fields, truncated

	rows, err := a.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(eufleetCols))
	assert.Len(t, rows[1], len(eufleetCols))
	assert.Equal(t, "CORTO", rows[0][euColName])
	assert.Equal(t, "", rows[0][euColOwner])
}

func TestEUFleet_ParseRejectsWrongHeader(t *testing.T) {
	a := &EUFleet{}
	_, err := a.Parse(strings.NewReader("a;b;c\nx;y;z\n"))
	assert.Error(t, err)
}

func TestEUFleet_ParseStripsBOM(t *testing.T) {
	a := &EUFleet{}
	_, err := a.Parse(strings.NewReader("\uFEFF" + euHeader() + "\n"))
	assert.NoError(t, err)
}

func TestEUFleet_Canonical(t *testing.T) {
	a := &EUFleet{}
	row := euRow(map[int]string{
		euColCountry: "ESP",
		euColCFR:     "ESP000123456",
		euColRegNbr:  "3-VI-5-55",
		euColName:    "  NUEVO   AMANECER ",
		euColIRCS:    "EA1234",
		euColLOA:     "12.5",
		euColYear:    "1997",
		euColHull:    "Wood",
	})

	doc := a.Canonical(row)

	assert.Equal(t, "NUEVO AMANECER", doc[FieldVesselName])
	assert.Equal(t, "ESP", doc[FieldFlagCode])
	assert.Equal(t, "ESP000123456", doc[FieldRegistration])
	assert.Equal(t, "3-VI-5-55", doc["national_registration_number"])
	assert.Equal(t, "EA1234", doc[FieldCallSign])
	assert.Equal(t, "12.5", doc[FieldLengthM])
	assert.Equal(t, "1997", doc[FieldBuildYear])
	assert.Equal(t, "Wood", doc["hull_material"])

	// Null-stripped: absent raw fields produce no keys.
	_, hasMMSI := doc[FieldMMSI]
	assert.False(t, hasMMSI)
	_, hasOwner := doc[FieldOwnerName]
	assert.False(t, hasOwner)
}
