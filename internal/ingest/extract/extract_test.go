package extract

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perseis-platform/ebisu/internal/ingest/adapter"
)

func TestDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12", 12, true},
		{"12.5", 12.5, true},
		{"0", 0, true},
		{"", 0, false},
		{"12.5kg", 0, false}, // no partial parse
		{"-3", 0, false},     // unsigned only
		{"3,5", 0, false},
		{"abc", 0, false},
		{"12.", 0, false},
		{" 12", 0, false},
	}
	for _, tt := range tests {
		got, ok := Decimal(tt.in)
		assert.Equal(t, tt.ok, ok, "input %q", tt.in)
		if tt.ok {
			assert.Equal(t, tt.want, got, "input %q", tt.in)
		}
	}
}

func TestBuildYear(t *testing.T) {
	y, ok := BuildYear("1987")
	require.True(t, ok)
	assert.Equal(t, int16(1987), y)

	for _, in := range []string{"", "87", "19870", "198x", "1987.0"} {
		_, ok := BuildYear(in)
		assert.False(t, ok, "input %q", in)
	}
}

func TestValidIMO(t *testing.T) {
	// 9074729: 9*7+0*6+7*5+4*4+7*3+2*2 = 63+0+35+16+21+4 = 139 → check 9.
	assert.True(t, ValidIMO("9074729"))
	assert.False(t, ValidIMO("9074728"))
	assert.False(t, ValidIMO("907472"))
	assert.False(t, ValidIMO("90747290"))
	assert.False(t, ValidIMO("90747a9"))
	assert.False(t, ValidIMO(""))
}

func TestNormalizeFlag(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ES", "ESP"},
		{"es", "ESP"},
		{"EL", "GRC"},
		{"UK", "GBR"},
		{"GER", "DEU"},
		{"NED", "NLD"},
		{"POR", "PRT"},
		{"NOR", "NOR"},
		{" nor ", "NOR"},
		{"ESP", "ESP"},
		{"", ""},
		{"X1Z", ""},
		{"Q", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeFlag(tt.in), "input %q", tt.in)
	}
}

func TestFromDocument(t *testing.T) {
	a := &adapter.EUFleet{}
	doc := map[string]string{
		adapter.FieldVesselName:    "NUEVO AMANECER",
		adapter.FieldFlagCode:      "ES",
		adapter.FieldRegistration:  "ESP000123456",
		adapter.FieldLengthM:       "12.5",
		adapter.FieldTonnageGT:     "24 GT", // malformed → null
		adapter.FieldEnginePowerKW: "73.6",
		adapter.FieldBuildYear:     "1997",
		adapter.FieldIMO:           "1234568", // bad check digit → null
		"hull_material":            "Wood",
	}

	rec := FromDocument(doc, a, "AUTHORITATIVE")
	require.NotNil(t, rec)

	assert.Equal(t, "NUEVO AMANECER", rec.VesselName)
	require.NotNil(t, rec.FlagCode)
	assert.Equal(t, "ESP", *rec.FlagCode)
	require.NotNil(t, rec.LengthM)
	assert.Equal(t, 12.5, *rec.LengthM)
	assert.Nil(t, rec.TonnageGT)
	assert.Nil(t, rec.IMO)
	require.NotNil(t, rec.BuildYear)
	assert.Equal(t, int16(1997), *rec.BuildYear)

	// First populated identifier in priority order becomes the UVI.
	require.NotNil(t, rec.UVI)
	assert.Equal(t, "ESP000123456", *rec.UVI)

	// Non-canonical keys land in the payload.
	assert.Equal(t, map[string]string{"hull_material": "Wood"}, rec.Payload)
	assert.Equal(t, "AUTHORITATIVE", rec.AuthorityLevel)
}

func TestFromDocument_Completeness(t *testing.T) {
	// EUFleet expects 8 fields; 6 of them populated and typed → 0.75.
	a := &adapter.EUFleet{}
	doc := map[string]string{
		adapter.FieldVesselName:    "BARCO",
		adapter.FieldRegistration:  "ESP000000001",
		adapter.FieldVesselType:    "MFV",
		adapter.FieldLengthM:       "10",
		adapter.FieldTonnageGT:     "bad", // typed null, not populated
		adapter.FieldEnginePowerKW: "55",
		adapter.FieldBuildYear:     "1990",
	}

	rec := FromDocument(doc, a, "SECONDARY")
	require.NotNil(t, rec)
	assert.InDelta(t, 0.75, rec.Completeness, 1e-9)
}

func TestFromDocument_Rejections(t *testing.T) {
	a := &adapter.EUFleet{}

	// No vessel name.
	assert.Nil(t, FromDocument(map[string]string{
		adapter.FieldRegistration: "ESP000000001",
	}, a, "SECONDARY"))

	// No identifier at all.
	assert.Nil(t, FromDocument(map[string]string{
		adapter.FieldVesselName: "ANONIMO",
		adapter.FieldFlagCode:   "ES",
	}, a, "SECONDARY"))
}

func TestExtractBatch(t *testing.T) {
	a := &adapter.EUFleet{}
	reports := make([]ReportRow, 50)
	for i := range reports {
		reports[i] = ReportRow{
			ID: int64(i + 1),
			Document: map[string]string{
				adapter.FieldVesselName:   fmt.Sprintf("VESSEL %02d", i),
				adapter.FieldRegistration: fmt.Sprintf("ESP%09d", i),
			},
		}
	}
	// One unusable report in the middle.
	reports[25].Document = map[string]string{adapter.FieldVesselName: "SIN PAPELES"}

	records, skipped, err := NewExtractor(8).ExtractBatch(context.Background(), reports, a, "AUTHORITATIVE")
	require.NoError(t, err)
	assert.Equal(t, 1, skipped)
	require.Len(t, records, 49)

	// Report order is preserved despite parallel extraction.
	assert.Equal(t, int64(1), records[0].ReportID)
	assert.Equal(t, int64(25), records[24].ReportID)
	assert.Equal(t, int64(27), records[25].ReportID)
}

func TestFlagDistribution(t *testing.T) {
	esp := "ESP"
	records := []Record{
		{FlagCode: &esp}, {FlagCode: &esp}, {},
	}
	assert.Equal(t, map[string]int{"ESP": 2, "???": 1}, FlagDistribution(records))
}
