package actions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCollateralAmount(t *testing.T) {
	cases := map[string]uint64{
		"10":         10_000_000,
		"1000":       1_000_000_000,
		" 2.5 ":      2_500_000,
		"100.000001": 100_000_001,
		"0.000001":   1,
		".5":         500_000,
		"5.":         5_000_000,
	}
	for raw, want := range cases {
		got, err := ParseCollateralAmount(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
}

func TestParseCollateralAmountRejects(t *testing.T) {
	for _, raw := range []string{"", "abc", "0", "-5", "+5", "1e3", ".", "1.0000001", "99999999999999999999"} {
		_, err := ParseCollateralAmount(raw)
		require.ErrorIs(t, err, ErrInvalidAmount, raw)
	}
}

func TestSplitCollateralTruncates(t *testing.T) {
	assert.EqualValues(t, 50_000_000, SplitCollateral(100_000_000))
	assert.EqualValues(t, 50_000_000, SplitCollateral(100_000_001))
	assert.EqualValues(t, 0, SplitCollateral(1))
}
