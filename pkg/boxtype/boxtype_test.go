package boxtype

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStringParseRoundTrip(t *testing.T) {
	for _, typ := range All() {
		parsed, err := Parse(typ.String())
		require.NoError(t, err, typ.String())
		assert.Equal(t, typ, parsed)
	}
}

func TestParseUnknownName(t *testing.T) {
	_, err := Parse("WAVY_TEXT")
	assert.Error(t, err)

	typ, err := Parse("FLOWING_TEXT")
	require.NoError(t, err)
	assert.Equal(t, FlowingText, typ)
}

func TestStringOutOfRange(t *testing.T) {
	assert.Equal(t, "UNKNOWN", Type(999).String())
}

func TestEveryTypeHasExactlyOneFamily(t *testing.T) {
	counts := map[Family]int{}
	for _, typ := range All() {
		counts[typ.Family()]++
	}
	assert.Equal(t, 5, counts[FamilyText])
	assert.Equal(t, 3, counts[FamilyImage])
	assert.Equal(t, 2, counts[FamilyLine])
	assert.Equal(t, 2, counts[FamilyMath])
}

func TestFamilyPredicates(t *testing.T) {
	assert.True(t, FlowingText.IsText())
	assert.True(t, VerticalText.IsText())
	assert.False(t, FlowingImage.IsText())

	assert.True(t, PulloutImage.IsImage())
	assert.True(t, HorzLine.IsLine())
	assert.True(t, InlineEquation.IsMath())
	assert.False(t, Table.IsText())
}

func TestCarriesOCRResults(t *testing.T) {
	assert.True(t, FlowingText.CarriesOCRResults())
	assert.True(t, Table.CarriesOCRResults())
	assert.True(t, Equation.CarriesOCRResults())
	assert.False(t, FlowingImage.CarriesOCRResults())
	assert.False(t, VertLine.CarriesOCRResults())
}

func TestColorsAreDistinctAndValid(t *testing.T) {
	seen := map[string]Type{}
	for _, typ := range All() {
		hex := typ.ColorHex()
		require.Len(t, hex, 7, typ.String())
		if prev, dup := seen[hex]; dup {
			t.Fatalf("%s and %s share color %s", prev, typ, hex)
		}
		seen[hex] = typ
	}
}
