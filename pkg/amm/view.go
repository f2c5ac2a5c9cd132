package amm

import (
	"github.com/shopspring/decimal"
)

// OrderView answers the cumulative volume questions of a call auction.
type OrderView interface {
	HighestBuyPrice() (decimal.Decimal, bool)
	LowestSellPrice() (decimal.Decimal, bool)
	// BuyAmountOver is the buy volume willing to trade at price or higher.
	BuyAmountOver(price decimal.Decimal) decimal.Decimal
	// SellAmountUnder is the sell volume willing to trade at price or lower.
	SellAmountUnder(price decimal.Decimal) decimal.Decimal
}

var (
	_ OrderView = (*OrderbookView)(nil)
	_ OrderView = CurveView{}
	_ OrderView = MultipleOrderViews(nil)
)

// OrderbookView evaluates the ladders of an Orderbook. Volumes are matchable
// amounts computed at the queried price.
type OrderbookView struct {
	ob *Orderbook
}

func (view *OrderbookView) HighestBuyPrice() (price decimal.Decimal, found bool) {
	view.ob.buys.Walk(func(tick *Tick) bool {
		if TotalMatchableAmount(tick.Orders, tick.Price).Sign() > 0 {
			price, found = tick.Price, true
			return false
		}
		return true
	})
	return
}

func (view *OrderbookView) LowestSellPrice() (price decimal.Decimal, found bool) {
	view.ob.sells.Walk(func(tick *Tick) bool {
		if TotalMatchableAmount(tick.Orders, tick.Price).Sign() > 0 {
			price, found = tick.Price, true
			return false
		}
		return true
	})
	return
}

func (view *OrderbookView) BuyAmountOver(price decimal.Decimal) (amt decimal.Decimal) {
	view.ob.buys.WalkCrossing(price, func(tick *Tick) bool {
		amt = amt.Add(TotalMatchableAmount(tick.Orders, price))
		return true
	})
	return
}

func (view *OrderbookView) SellAmountUnder(price decimal.Decimal) (amt decimal.Decimal) {
	view.ob.sells.WalkCrossing(price, func(tick *Tick) bool {
		amt = amt.Add(TotalMatchableAmount(tick.Orders, price))
		return true
	})
	return
}

// CurveView exposes a curve to the auction. Its volume at a price is the amount
// that moves the curve's own price there.
type CurveView struct {
	Curve Curve
}

func (view CurveView) HighestBuyPrice() (decimal.Decimal, bool) {
	return view.Curve.HighestBuyPrice()
}

func (view CurveView) LowestSellPrice() (decimal.Decimal, bool) {
	return view.Curve.LowestSellPrice()
}

func (view CurveView) BuyAmountOver(price decimal.Decimal) decimal.Decimal {
	return view.Curve.BuyAmountTo(price)
}

func (view CurveView) SellAmountUnder(price decimal.Decimal) decimal.Decimal {
	return view.Curve.SellAmountTo(price)
}

// MultipleOrderViews merges views by summing their volumes.
type MultipleOrderViews []OrderView

func (views MultipleOrderViews) HighestBuyPrice() (price decimal.Decimal, found bool) {
	for _, view := range views {
		p, ok := view.HighestBuyPrice()
		if ok && (!found || p.GreaterThan(price)) {
			price, found = p, true
		}
	}
	return
}

func (views MultipleOrderViews) LowestSellPrice() (price decimal.Decimal, found bool) {
	for _, view := range views {
		p, ok := view.LowestSellPrice()
		if ok && (!found || p.LessThan(price)) {
			price, found = p, true
		}
	}
	return
}

func (views MultipleOrderViews) BuyAmountOver(price decimal.Decimal) (amt decimal.Decimal) {
	for _, view := range views {
		amt = amt.Add(view.BuyAmountOver(price))
	}
	return
}

func (views MultipleOrderViews) SellAmountUnder(price decimal.Decimal) (amt decimal.Decimal) {
	for _, view := range views {
		amt = amt.Add(view.SellAmountUnder(price))
	}
	return
}
