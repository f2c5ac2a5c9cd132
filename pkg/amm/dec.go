package amm

import (
	"math/big"

	"github.com/shopspring/decimal"
)

var (
	one  = decimal.NewFromInt(1)
	two  = decimal.NewFromInt(2)
	four = decimal.NewFromInt(4)
	ulp  = decimal.New(1, -Precision)
)

// ParseDec parses s and panics on malformed input. Meant for constants and tests.
func ParseDec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// quo returns a/b rounded half up to Precision digits.
func quo(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, Precision)
}

// quoTruncate returns a/b truncated to Precision digits.
func quoTruncate(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, Precision)
	return q
}

// quoRoundUp returns a/b rounded up to Precision digits; a and b non-negative.
func quoRoundUp(a, b decimal.Decimal) decimal.Decimal {
	q, r := a.QuoRem(b, Precision)
	if r.Sign() > 0 {
		q = q.Add(ulp)
	}
	return q
}

func inv(d decimal.Decimal) decimal.Decimal {
	return quo(one, d)
}

// sqrt returns the square root of d truncated to Precision digits.
func sqrt(d decimal.Decimal) decimal.Decimal {
	if d.Sign() <= 0 {
		return decimal.Zero
	}
	f, ok := new(big.Float).SetPrec(256).SetString(d.String())
	if !ok {
		return decimal.Zero
	}
	f.Sqrt(f)
	r, err := decimal.NewFromString(f.Text('f', Precision+12))
	if err != nil {
		return decimal.Zero
	}
	return r.Truncate(Precision)
}

// characteristic returns floor(log10(d)) for a positive d.
func characteristic(d decimal.Decimal) int {
	return d.NumDigits() + int(d.Exponent()) - 1
}

func pow10(n int) decimal.Decimal {
	return decimal.New(1, int32(n))
}

// numDigits returns the decimal digit count of the integer part of d, 1 for zero.
func numDigits(d decimal.Decimal) int {
	return len(d.Truncate(0).Abs().BigInt().Text(10))
}
