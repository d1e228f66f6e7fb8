// Package numeric implements the exact fixed-point arithmetic used for every
// price and quantity that crosses a signing or wire boundary. Values are held
// as arbitrary-precision integers plus an implicit decimal-place count; binary
// floating point never touches them.
package numeric

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/monkeypipijy/ritmex-bot/internal/core"
)

// ToScaled converts a decimal string into an integer scaled by 10^decimals.
// Fractional digits beyond decimals are truncated, never rounded up. Input
// must be a sign-optional digit string with at most one decimal point;
// anything else fails with core.ErrFormat.
func ToScaled(s string, decimals int32) (*big.Int, error) {
	if decimals < 0 {
		return nil, fmt.Errorf("%w: negative decimals %d", core.ErrRange, decimals)
	}
	neg, intPart, fracPart, err := splitDecimal(s)
	if err != nil {
		return nil, err
	}
	if int32(len(fracPart)) > decimals {
		fracPart = fracPart[:decimals]
	} else {
		fracPart += strings.Repeat("0", int(decimals)-len(fracPart))
	}
	digits := strings.TrimLeft(intPart+fracPart, "0")
	if digits == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrFormat, s)
	}
	if neg {
		v.Neg(v)
	}
	return v, nil
}

// FromScaled renders a scaled integer back to its canonical decimal string:
// trailing zero fractional digits and a trailing decimal point are stripped.
// It is the exact inverse of ToScaled for any value ToScaled can produce.
func FromScaled(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	digits := new(big.Int).Abs(v).String()
	neg := v.Sign() < 0
	if decimals <= 0 {
		if neg {
			return "-" + digits
		}
		return digits
	}
	if int32(len(digits)) <= decimals {
		digits = strings.Repeat("0", int(decimals)-len(digits)+1) + digits
	}
	cut := len(digits) - int(decimals)
	out := digits[:cut] + "." + digits[cut:]
	out = strings.TrimRight(out, "0")
	out = strings.TrimSuffix(out, ".")
	if out == "" {
		out = "0"
	}
	if neg && out != "0" {
		out = "-" + out
	}
	return out
}

// QuantityWithMinimum scales a quantity like ToScaled, but never lets a
// nonzero input truncate to zero: exchanges reject zero-size orders, so the
// result is floored at one scaled unit with the input's sign preserved.
func QuantityWithMinimum(s string, decimals int32) (*big.Int, error) {
	v, err := ToScaled(s, decimals)
	if err != nil {
		return nil, err
	}
	if v.Sign() != 0 {
		return v, nil
	}
	neg, intPart, fracPart, err := splitDecimal(s)
	if err != nil {
		return nil, err
	}
	if strings.Trim(intPart+fracPart, "0") == "" {
		return v, nil
	}
	if neg {
		return big.NewInt(-1), nil
	}
	return big.NewInt(1), nil
}

// Int64 narrows a scaled integer to int64, failing with core.ErrRange instead
// of wrapping silently.
func Int64(v *big.Int) (int64, error) {
	if v == nil {
		return 0, nil
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: %s does not fit int64", core.ErrRange, v.String())
	}
	return v.Int64(), nil
}

// DecimalToScaled scales a shopspring decimal. The decimal's string form is
// exact, so this shares ToScaled's truncation semantics.
func DecimalToScaled(d decimal.Decimal, decimals int32) (*big.Int, error) {
	return ToScaled(d.String(), decimals)
}

// ScaledToDecimal is the decimal.Decimal view of a scaled integer.
func ScaledToDecimal(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).Set(v), -decimals)
}

func splitDecimal(s string) (neg bool, intPart, fracPart string, err error) {
	raw := s
	if s == "" {
		return false, "", "", fmt.Errorf("%w: empty input", core.ErrFormat)
	}
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	intPart = s
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
		if strings.IndexByte(fracPart, '.') >= 0 {
			return false, "", "", fmt.Errorf("%w: %q", core.ErrFormat, raw)
		}
	}
	if intPart == "" && fracPart == "" {
		return false, "", "", fmt.Errorf("%w: %q", core.ErrFormat, raw)
	}
	for _, part := range []string{intPart, fracPart} {
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return false, "", "", fmt.Errorf("%w: %q", core.ErrFormat, raw)
			}
		}
	}
	return neg, intPart, fracPart, nil
}
