package county

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRegistry() *Registry {
	rows := []RegistryRow{
		{State: "TX", Name: "Smith County", Code: 48423, Weight: 100},
		{State: "TX", Name: "Jones County", Code: 48253, Weight: 200},
		{State: "TX", Name: "Travis County", Code: 48453, Weight: 300},
		{State: "GA", Name: "Jones County", Code: 13169, Weight: 50},
		{State: "AK", Name: "Wade Hampton Census Area", Code: 2270, Weight: 80},
		{State: "HI", Name: "Kalawao County", Code: 15005, Weight: 1},
		{State: "HI", Name: "Maui County", Code: 15009, Weight: 160},
		{State: "NM", Name: "Doña Ana County", Code: 35013, Weight: 210},
		{State: "VA", Name: "Fairfax County", Code: 51059, Weight: 1100},
		{State: "VA", Name: "Fairfax city", Code: 51600, Weight: 24},
		{State: "VA", Name: "Falls Church city", Code: 51610, Weight: 14},
	}

	overrides := Overrides{2270: {Code: 2158, State: "AK", Name: "Kusilvak Census Area"}}

	reg, e := Build(rows, overrides)
	if e != nil {
		panic(e)
	}

	return reg
}

func TestBuild_LegacyOverride(t *testing.T) {
	reg := testRegistry()

	ent, ok := reg.Lookup(2270)
	require.True(t, ok)
	assert.Equal(t, 2158, ent.ID)
	assert.Equal(t, "Kusilvak Census Area", ent.Name)

	id, ok := reg.Canonical(2270)
	assert.True(t, ok)
	assert.Equal(t, 2158, id)

	_, ok = reg.LookupByName("AK", "Wade Hampton Census Area")
	assert.False(t, ok)

	for _, e := range reg.Entities() {
		assert.NotEqual(t, 2270, e.ID)
	}
}

func TestBuild_Errors(t *testing.T) {
	_, e := Build([]RegistryRow{
		{State: "TX", Name: "Smith County", Code: 48423},
		{State: "TX", Name: "Other County", Code: 48423},
	}, nil)
	assert.True(t, errors.Is(e, ErrConfiguration))

	_, e = Build([]RegistryRow{
		{State: "TX", Name: "Smith County", Code: 48423},
		{State: "TX", Name: "SMITH  county", Code: 48001},
	}, nil)
	assert.True(t, errors.Is(e, ErrConfiguration))

	_, e = Build([]RegistryRow{{State: "TX", Name: "Smith County", Code: 123456}}, nil)
	assert.True(t, errors.Is(e, ErrConfiguration))

	_, e = Build([]RegistryRow{{State: "TX", Name: "Smith County", Code: 48423, Weight: -1}}, nil)
	assert.True(t, errors.Is(e, ErrConfiguration))

	// the same entity under its legacy and current code is one entity
	reg, e := Build([]RegistryRow{
		{State: "AK", Name: "Kusilvak Census Area", Code: 2158, Weight: 8},
		{State: "AK", Name: "Wade Hampton Census Area", Code: 2270, Weight: 8},
	}, Overrides{2270: {Code: 2158, State: "AK", Name: "Kusilvak Census Area"}})
	require.Nil(t, e)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_LookupByName(t *testing.T) {
	reg := testRegistry()

	ent, ok := reg.LookupByName("tx", "  smith   COUNTY ")
	assert.True(t, ok)
	assert.Equal(t, 48423, ent.ID)

	ent, ok = reg.LookupByName("NM", "Dona Ana County")
	assert.True(t, ok)
	assert.Equal(t, 35013, ent.ID)

	_, ok = reg.LookupByName("TX", "Nowhere County")
	assert.False(t, ok)

	assert.Len(t, reg.ByName("Jones County"), 2)
}

func TestRegistry_Drop(t *testing.T) {
	reg := testRegistry()
	n := reg.Len()

	assert.Nil(t, reg.Drop(15005))
	assert.Equal(t, n-1, reg.Len())
	assert.Len(t, reg.Entities(), n-1)
	assert.True(t, reg.Dropped(15005))

	_, ok := reg.Lookup(15005)
	assert.False(t, ok)
	_, ok = reg.LookupByName("HI", "Kalawao County")
	assert.False(t, ok)
	_, ok = reg.Weights()[15005]
	assert.False(t, ok)

	assert.True(t, errors.Is(reg.Drop(99998), ErrConfiguration))
}

func TestRegistry_States(t *testing.T) {
	reg := testRegistry()
	assert.Equal(t, []string{"AK", "GA", "HI", "NM", "TX", "VA"}, reg.States())

	code, ok := reg.StateCode("va")
	assert.True(t, ok)
	assert.Equal(t, 51, code)
}

func TestNormalizeName(t *testing.T) {
	assert.Equal(t, "dona ana county", NormalizeName("Doña  Ana County"))
	assert.Equal(t, "la salle parish", NormalizeName(" La Salle\tParish "))
}

func TestFormatParseID(t *testing.T) {
	assert.Equal(t, "02158", FormatID(2158))

	id, e := ParseID(`"02270"`)
	assert.Nil(t, e)
	assert.Equal(t, 2270, id)

	_, e = ParseID("abc")
	assert.NotNil(t, e)

	_, e = ParseID("100000")
	assert.NotNil(t, e)
}
