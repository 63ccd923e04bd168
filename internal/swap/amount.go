package swap

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	expThreshold   = decimal.New(1, -5) // 0.00001
	one            = decimal.NewFromInt(1)
	groupThreshold = decimal.NewFromInt(10000)
)

// ParseAmount converts a human amount to smallest units, rounding down.
// Empty, negative or malformed input yields "0". The whole string must be
// a number: "10abc" and "1,000" yield "0", not their numeric prefix.
func ParseAmount(amount string, decimals int) string {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil || d.IsNegative() {
		return "0"
	}
	return d.Shift(int32(decimals)).Floor().String()
}

// FormatAmount renders a smallest-unit amount for display:
// exponential below 0.00001, 6 places below 1, 4 places below 10000 and
// grouped with at most 2 places above.
func FormatAmount(smallest string, decimals int) string {
	d, err := decimal.NewFromString(strings.TrimSpace(smallest))
	if err != nil {
		return "0"
	}
	value := d.Shift(-int32(decimals))

	switch {
	case value.LessThan(expThreshold):
		return toExponential(value)
	case value.LessThan(one):
		return value.StringFixed(6)
	case value.LessThan(groupThreshold):
		return value.StringFixed(4)
	default:
		return groupThousands(value.Round(2))
	}
}

// toExponential matches Number.prototype.toExponential(2): "1.23e-6".
func toExponential(v decimal.Decimal) string {
	if v.IsZero() {
		return "0.00e+0"
	}
	f, _ := v.Float64()
	s := strconv.FormatFloat(f, 'e', 2, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	exp = strings.TrimLeft(exp[1:], "0")
	if exp == "" {
		exp = "0"
	}
	return mant + "e" + sign + exp
}

func groupThousands(v decimal.Decimal) string {
	s := v.String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, hasFrac := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
