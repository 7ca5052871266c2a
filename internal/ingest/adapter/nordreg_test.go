package adapter

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNordicRegistry_ParseDecodesLatin1(t *testing.T) {
	a := &NordicRegistry{}

	header := strings.Join(nordregCols, ";")
	// "SJØGUTT" with Ø as the single ISO-8859-1 byte 0xD8.
	row := append([]byte("N-123-H;SJ"), 0xD8)
	row = append(row, []byte("GUTT;LK4567;9112753;257123456;15.2;24;1985;220;HANSEN AS;TROMS\xD8;Fiskefart\xF8y;Garn")...)

	input := append([]byte(header+"\n"), row...)
	input = append(input, '\n')

	rows, err := a.Parse(bytes.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "SJØGUTT", rows[0][nordColName])
	assert.Equal(t, "TROMSØ", rows[0][nordColPort])
	assert.Equal(t, "Fiskefartøy", rows[0][nordColType])
}

func TestNordicRegistry_ParseRejectsWrongHeader(t *testing.T) {
	a := &NordicRegistry{}
	_, err := a.Parse(strings.NewReader("a;b\n"))
	assert.Error(t, err)
}

func TestNordicRegistry_Canonical(t *testing.T) {
	a := &NordicRegistry{}
	row := []string{"N-123-H", "SJØGUTT", "LK4567", "9112753", "257123456",
		"15.2", "24", "1985", "220", "HANSEN AS", "TROMSØ", "Fiskefartøy", "Garn"}

	doc := a.Canonical(row)

	assert.Equal(t, "SJØGUTT", doc[FieldVesselName])
	assert.Equal(t, "NOR", doc[FieldFlagCode])
	assert.Equal(t, "N-123-H", doc[FieldRegistration])
	assert.Equal(t, "9112753", doc[FieldIMO])
	assert.Equal(t, "1985", doc[FieldBuildYear])
}
