package reconcile

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perseis-platform/ebisu/internal/ingest/adapter"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"  nuevo   amanecer ", "NUEVO AMANECER"},
		{"Sjøgutt", "SJØGUTT"}, // Ø is a letter, not a combining mark
		{"Niño Pérez", "NINO PEREZ"},
		{"ÉTOILE", "ETOILE"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeName(tt.in), "input %q", tt.in)
	}
}

func rec(id int64, src, name, flag string, ids map[string]string) Record {
	return Record{ID: id, SourceShort: src, Name: NormalizeName(name), Flag: flag, Identifiers: ids}
}

func TestCluster_SharedIdentifierConfirms(t *testing.T) {
	records := []Record{
		rec(1, "eufleet", "Nuevo Amanecer", "ESP", map[string]string{adapter.FieldCallSign: "EA1234"}),
		rec(2, "licreg", "NUEVO AMANECER II", "PRT", map[string]string{adapter.FieldCallSign: "EA1234"}),
		rec(3, "nordreg", "Sjøgutt", "NOR", map[string]string{adapter.FieldRegistration: "N-123-H"}),
	}

	groups := Cluster(records)
	require.Len(t, groups, 2)

	var confirmed, single *Group
	for i := range groups {
		if len(groups[i].Members) == 2 {
			confirmed = &groups[i]
		} else {
			single = &groups[i]
		}
	}
	require.NotNil(t, confirmed)
	require.NotNil(t, single)

	assert.Equal(t, StatusConfirmed, confirmed.Status)
	assert.Equal(t, 2, confirmed.Sources)
	assert.Equal(t, StatusUnconfirmed, single.Status)
	assert.Equal(t, 1, single.Sources)
}

func TestCluster_NameAndFlagMatch(t *testing.T) {
	records := []Record{
		rec(1, "eufleet", "Étoile du Nord", "FRA", map[string]string{adapter.FieldRegistration: "FRA000000001"}),
		rec(2, "licreg", "ETOILE DU NORD", "FRA", map[string]string{adapter.FieldLicenseID: "LIC-9"}),
	}

	groups := Cluster(records)
	require.Len(t, groups, 1)
	assert.Equal(t, StatusConfirmed, groups[0].Status)
}

func TestCluster_NameWithoutFlagDoesNotMatch(t *testing.T) {
	records := []Record{
		rec(1, "eufleet", "GEMELA", "", map[string]string{adapter.FieldRegistration: "A"}),
		rec(2, "licreg", "GEMELA", "", map[string]string{adapter.FieldLicenseID: "B"}),
	}
	assert.Len(t, Cluster(records), 2)
}

func TestCluster_SameSourceIsNotConfirmed(t *testing.T) {
	records := []Record{
		rec(1, "eufleet", "GEMELA", "ESP", nil),
		rec(2, "eufleet", "GEMELA", "ESP", nil),
	}

	groups := Cluster(records)
	require.Len(t, groups, 1)
	assert.Equal(t, StatusUnconfirmed, groups[0].Status)
	assert.Equal(t, 1, groups[0].Sources)
}

func TestCluster_ContradictoryIdentifiersUnresolved(t *testing.T) {
	// Same name and flag, but two distinct IMO numbers: merged by the name
	// rule, flagged rather than silently trusted.
	records := []Record{
		rec(1, "eufleet", "DOBLE", "ESP", map[string]string{adapter.FieldIMO: "9074729"}),
		rec(2, "nordreg", "DOBLE", "ESP", map[string]string{adapter.FieldIMO: "9134270"}),
	}

	groups := Cluster(records)
	require.Len(t, groups, 1)
	assert.Equal(t, StatusUnresolved, groups[0].Status)
}

func TestCluster_TransitiveMerge(t *testing.T) {
	// A↔B share a call sign, B↔C share a registration: one group of three.
	records := []Record{
		rec(1, "eufleet", "A", "ESP", map[string]string{adapter.FieldCallSign: "EA1"}),
		rec(2, "licreg", "B", "PRT", map[string]string{adapter.FieldCallSign: "EA1", adapter.FieldRegistration: "R-9"}),
		rec(3, "nordreg", "C", "NOR", map[string]string{adapter.FieldRegistration: "R-9"}),
	}

	groups := Cluster(records)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].Members, 3)
	assert.Equal(t, 3, groups[0].Sources)
}

func TestCluster_DeterministicUnderShuffle(t *testing.T) {
	base := []Record{
		rec(1, "eufleet", "Nuevo Amanecer", "ESP", map[string]string{adapter.FieldCallSign: "EA1234"}),
		rec(2, "licreg", "NUEVO AMANECER", "ESP", map[string]string{adapter.FieldLicenseID: "LIC-1"}),
		rec(3, "nordreg", "Sjøgutt", "NOR", map[string]string{adapter.FieldRegistration: "N-123-H"}),
		rec(4, "flstate", "MISS BEHAVIN", "USA", map[string]string{adapter.FieldRegistration: "FL1234AB"}),
		rec(5, "xlsxreg", "MISS BEHAVIN", "USA", map[string]string{adapter.FieldMMSI: "367000123"}),
	}

	want := Cluster(base)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]Record, len(base))
		copy(shuffled, base)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Cluster(shuffled)
		require.Len(t, got, len(want))
		for j := range want {
			assert.Equal(t, want[j].Key, got[j].Key)
			assert.Equal(t, want[j].Status, got[j].Status)
			assert.Equal(t, want[j].Members, got[j].Members)
		}
	}
}
