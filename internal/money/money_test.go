package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddSameCurrency(t *testing.T) {
	a := New(10, USD)
	b := New(5, USD)
	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.True(t, sum.Equal(New(15, USD)))
}

func TestAddCurrencyMismatch(t *testing.T) {
	a := New(10, USD)
	b := New(5, EUR)
	_, err := a.Add(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "currency mismatch")
}

func TestSumStartsUntagged(t *testing.T) {
	total, err := Sum(nil)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	total, err = Sum([]Money{New(1, EUR), New(2, EUR)})
	require.NoError(t, err)
	assert.True(t, total.Equal(New(3, EUR)))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Money
		wantErr bool
	}{
		{name: "dollar sign", input: "$12.34", want: MustParse("$12.34")},
		{name: "bare number defaults USD", input: "12.34", want: New(12, USD).MustAdd(NewFromFloat(0.34, USD))},
		{name: "malformed", input: "not-a-number", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want))
		})
	}
}

func TestRoundAndFloor(t *testing.T) {
	v := MustParse("12.345")
	assert.Equal(t, "12.35", v.Round(2).Decimal().StringFixed(2))
	assert.Equal(t, "12.34", v.Floor(2).Decimal().StringFixed(2))
}

func TestMaxMin(t *testing.T) {
	a := New(10, USD)
	b := New(20, USD)
	assert.True(t, Max(a, b).Equal(b))
	assert.True(t, Min(a, b).Equal(a))
}

func TestDivMoneyZeroDenominator(t *testing.T) {
	ratio, err := New(10, USD).DivMoney(Zero(USD))
	require.NoError(t, err)
	assert.True(t, ratio.IsZero())
}
