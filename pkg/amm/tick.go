package amm

import (
	"github.com/shopspring/decimal"
)

// DefaultTickPrecision gives four significant digits per tick.
const DefaultTickPrecision TickPrecision = 3

// TickPrecision describes a price grid where every tick has prec+1 significant
// digits, e.g. with prec 3 the ticks around 1 are 0.9999, 1.000, 1.001.
type TickPrecision int

// LowestTick is the smallest tick representable within Precision digits.
func (prec TickPrecision) LowestTick() decimal.Decimal {
	return pow10(int(prec) - Precision)
}

// HighestTick is the largest tick below MaxPoolPrice.
func (prec TickPrecision) HighestTick() decimal.Decimal {
	return prec.DownTick(MaxPoolPrice)
}

// PriceToDownTick returns the highest tick less than or equal to price.
func (prec TickPrecision) PriceToDownTick(price decimal.Decimal) decimal.Decimal {
	c := characteristic(price)
	return price.Shift(int32(int(prec) - c)).Floor().Shift(int32(c - int(prec)))
}

// PriceToUpTick returns the lowest tick greater than or equal to price.
func (prec TickPrecision) PriceToUpTick(price decimal.Decimal) decimal.Decimal {
	tick := prec.PriceToDownTick(price)
	if !tick.Equal(price) {
		return prec.UpTick(tick)
	}
	return tick
}

// UpTick returns the next tick above price. price is expected to be on the grid.
func (prec TickPrecision) UpTick(price decimal.Decimal) decimal.Decimal {
	tick := prec.PriceToDownTick(price)
	return tick.Add(pow10(characteristic(tick) - int(prec)))
}

// DownTick returns the next tick below price.
func (prec TickPrecision) DownTick(price decimal.Decimal) decimal.Decimal {
	tick := prec.PriceToDownTick(price)
	if !tick.Equal(price) {
		return tick
	}
	c := characteristic(price)
	if isPow10(price) {
		return price.Sub(pow10(c - int(prec) - 1))
	}
	return price.Sub(pow10(c - int(prec)))
}

// RoundPrice returns the tick nearest to price, preferring the lower one on a tie.
func (prec TickPrecision) RoundPrice(price decimal.Decimal) decimal.Decimal {
	down := prec.PriceToDownTick(price)
	if down.Equal(price) {
		return down
	}
	up := prec.UpTick(down)
	if price.Sub(down).LessThanOrEqual(up.Sub(price)) {
		return down
	}
	return up
}

// TickToIndex maps a tick to its position on the grid. 1 has index 0 and
// consecutive ticks have consecutive indices.
func (prec TickPrecision) TickToIndex(tick decimal.Decimal) int64 {
	c := characteristic(tick)
	base := pow10(int(prec)).IntPart()
	m := tick.Shift(int32(int(prec) - c)).IntPart()
	return int64(c)*9*base + (m - base)
}

// TickFromIndex is the inverse of TickToIndex.
func (prec TickPrecision) TickFromIndex(i int64) decimal.Decimal {
	base := pow10(int(prec)).IntPart()
	q := 9 * base
	c := i / q
	if i%q < 0 {
		c--
	}
	m := i - c*q + base
	return decimal.New(m, int32(c-int64(prec)))
}

func isPow10(d decimal.Decimal) bool {
	return d.Equal(pow10(characteristic(d)))
}
