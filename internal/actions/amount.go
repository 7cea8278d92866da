package actions

import (
	"errors"
	"fmt"
	"strings"

	sdkmath "cosmossdk.io/math"
)

// QuantityScale converts a whole collateral unit into on-chain base units (USDC, 6 decimals).
const QuantityScale int64 = 1_000_000

var ErrInvalidAmount = errors.New("invalid amount")

// ParseCollateralAmount turns a user-supplied decimal into base units. Accepted forms are
// digits with an optional fractional part ("10", "2.5", ".5", "5."); signs and exponents
// are rejected. Amounts must be positive and carry at most six fractional digits.
func ParseCollateralAmount(raw string) (uint64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	if strings.ContainsAny(trimmed, "+-eE") {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if strings.HasPrefix(trimmed, ".") {
		trimmed = "0" + trimmed
	}
	if strings.HasSuffix(trimmed, ".") {
		trimmed += "0"
	}

	dec, err := sdkmath.LegacyNewDecFromStr(trimmed)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if !dec.IsPositive() {
		return 0, fmt.Errorf("%w: %q must be greater than zero", ErrInvalidAmount, raw)
	}

	scaled := dec.MulInt64(QuantityScale)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("%w: %q has more than 6 decimal places", ErrInvalidAmount, raw)
	}
	units := scaled.TruncateInt()
	if !units.IsUint64() {
		return 0, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, raw)
	}
	return units.Uint64(), nil
}

// SplitCollateral halves a scaled amount for the collateral and liquidity legs. An odd
// amount loses its last base unit.
func SplitCollateral(scaled uint64) uint64 {
	return sdkmath.NewIntFromUint64(scaled).QuoRaw(2).Uint64()
}
