package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestNormalize(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		want   float64
		wantOK bool
	}{
		{"per 100g", Input{RegularPrice: 12, Unit: "100g", Quantity: 2}, 6, true},
		{"per kg", Input{RegularPrice: 100, Unit: "kg", Quantity: 1}, 10, true},
		{"per kg, two kilos", Input{RegularPrice: 150, Unit: "kg", Quantity: 2}, 7.5, true},
		{"per gram", Input{RegularPrice: 30, Unit: "g", Quantity: 500}, 6, true},
		{"unit with weight", Input{RegularPrice: 20, Unit: "unit", Quantity: 2, DefaultWeightGrams: f(250)}, 4, true},
		{"package with weight", Input{RegularPrice: 45, Unit: "package", Quantity: 1, DefaultWeightGrams: f(900)}, 5, true},
		{"unit is case-insensitive", Input{RegularPrice: 100, Unit: "KG", Quantity: 1}, 10, true},
		{"sale price wins", Input{RegularPrice: 100, SalePrice: f(80), Unit: "kg", Quantity: 1}, 8, true},
		{"zero sale price ignored", Input{RegularPrice: 100, SalePrice: f(0), Unit: "kg", Quantity: 1}, 10, true},
		{"unit without weight", Input{RegularPrice: 20, Unit: "unit", Quantity: 2}, 0, false},
		{"package with zero weight", Input{RegularPrice: 20, Unit: "package", Quantity: 2, DefaultWeightGrams: f(0)}, 0, false},
		{"missing unit", Input{RegularPrice: 20, Quantity: 1}, 0, false},
		{"zero quantity", Input{RegularPrice: 20, Unit: "kg", Quantity: 0}, 0, false},
		{"negative quantity", Input{RegularPrice: 20, Unit: "kg", Quantity: -1}, 0, false},
		{"missing price", Input{Unit: "kg", Quantity: 1}, 0, false},
		{"unknown unit", Input{RegularPrice: 20, Unit: "lb", Quantity: 1}, 0, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Normalize(tc.in)
			require.Equal(t, tc.wantOK, ok)
			if tc.wantOK {
				assert.InDelta(t, tc.want, got, 1e-9)
			}
		})
	}
}

func TestNormalize_KgAnd100gAgree(t *testing.T) {
	perKg, ok := Normalize(Input{RegularPrice: 89.9, Unit: "kg", Quantity: 1})
	require.True(t, ok)
	per100, ok := Normalize(Input{RegularPrice: 8.99, Unit: "100g", Quantity: 1})
	require.True(t, ok)
	assert.InDelta(t, perKg, per100, 0.005)

	perGram, ok := Normalize(Input{RegularPrice: 44.95, Unit: "g", Quantity: 500})
	require.True(t, ok)
	assert.InDelta(t, perKg, perGram, 0.005)
}

func TestKnownUnit(t *testing.T) {
	for _, u := range []string{"kg", "KG", "100g", "g", "Unit", "package"} {
		assert.True(t, KnownUnit(u), u)
	}
	assert.False(t, KnownUnit("dozen"))
	assert.False(t, KnownUnit(""))

	_, ok := Normalize(Input{RegularPrice: 10, Unit: "Dozen", Quantity: 1})
	assert.False(t, ok)
}

func TestPer100g(t *testing.T) {
	got := Per100g(Input{RegularPrice: 10, Unit: "100g", Quantity: 3})
	require.NotNil(t, got)
	assert.Equal(t, 3.33, *got)

	assert.Nil(t, Per100g(Input{RegularPrice: 10, Unit: "unit", Quantity: 3}))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 10.05, Round2(10.045))
	assert.Equal(t, 2.0, Round2(1.999))
	assert.Equal(t, -1.26, Round2(-1.255))
}
