package amm

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// PriceDirection classifies where the auction pushes the price relative to the last one.
type PriceDirection int8

const (
	PriceStaying PriceDirection = iota + 1
	PriceIncreasing
	PriceDecreasing
)

func (dir PriceDirection) String() string {
	switch dir {
	case PriceStaying:
		return "Staying"
	case PriceIncreasing:
		return "Increasing"
	case PriceDecreasing:
		return "Decreasing"
	default:
		return fmt.Sprintf("PriceDirection(%d)", int8(dir))
	}
}

// FindPriceDirection compares the volume on each side of lastPrice. The price
// increases when buys strictly above it outweigh sells at or below it, and
// decreases when sells strictly below it outweigh buys at or above it.
func FindPriceDirection(view OrderView, lastPrice decimal.Decimal, prec TickPrecision) PriceDirection {
	last := prec.RoundPrice(lastPrice)
	buyAbove := view.BuyAmountOver(prec.UpTick(last))
	if buyAbove.GreaterThan(view.SellAmountUnder(last)) {
		return PriceIncreasing
	}
	sellBelow := view.SellAmountUnder(prec.DownTick(last))
	if sellBelow.GreaterThan(view.BuyAmountOver(last)) {
		return PriceDecreasing
	}
	return PriceStaying
}

// FindMatchPrice returns the tick where cumulative demand meets cumulative
// supply. When the crossing is flat over a range of ticks, the last price is
// rounded toward the price direction and clamped into the range. Without a
// positive last price the middle of the range is used.
func FindMatchPrice(view OrderView, lastPrice decimal.Decimal, prec TickPrecision) (matchPrice decimal.Decimal, found bool) {
	highest, ok := view.HighestBuyPrice()
	if !ok {
		return
	}
	lowest, ok := view.LowestSellPrice()
	if !ok {
		return
	}
	if highest.LessThan(lowest) {
		return
	}

	lo := prec.TickToIndex(prec.PriceToDownTick(decimal.Max(lowest, prec.LowestTick())))
	hi := prec.TickToIndex(prec.PriceToUpTick(decimal.Min(highest, prec.HighestTick())))
	if lo > hi {
		return
	}
	buyAt := func(i int64) decimal.Decimal { return view.BuyAmountOver(prec.TickFromIndex(i)) }
	sellAt := func(i int64) decimal.Decimal { return view.SellAmountUnder(prec.TickFromIndex(i)) }

	n := int(hi - lo + 1)
	// lowest tick where buys above it no longer exceed sells at it
	i := lo + int64(sort.Search(n, func(k int) bool {
		idx := lo + int64(k)
		return buyAt(idx + 1).LessThanOrEqual(sellAt(idx))
	}))
	// highest tick where buys at it still cover sells below it
	j := lo + int64(sort.Search(n, func(k int) bool {
		idx := lo + int64(k)
		return buyAt(idx).LessThan(sellAt(idx - 1))
	})) - 1
	if i > hi || j < lo || i > j {
		return
	}

	low, high := prec.TickFromIndex(i), prec.TickFromIndex(j)
	if lastPrice.Sign() <= 0 {
		return prec.RoundPrice(quo(low.Add(high), two)), true
	}
	var p decimal.Decimal
	switch FindPriceDirection(view, lastPrice, prec) {
	case PriceIncreasing:
		p = prec.PriceToUpTick(lastPrice)
	case PriceDecreasing:
		p = prec.PriceToDownTick(lastPrice)
	default:
		p = prec.RoundPrice(lastPrice)
	}
	return decimal.Min(decimal.Max(p, low), high), true
}

type crossingTick struct {
	tick *Tick
	amt  decimal.Decimal
}

type crossingSide struct {
	ticks []crossingTick
	total decimal.Decimal
}

func newCrossingSide(ladder *TickLadder, price decimal.Decimal) *crossingSide {
	side := &crossingSide{}
	ladder.WalkCrossing(price, func(tick *Tick) bool {
		amt := TotalMatchableAmount(tick.Orders, price)
		if amt.Sign() > 0 {
			side.ticks = append(side.ticks, crossingTick{tick: tick, amt: amt})
			side.total = side.total.Add(amt)
		}
		return true
	})
	return side
}

// trimDust drops the partially filled tick and everything behind it when filling
// amt would leave an order of that tick with a fill worth zero quote coin.
func (side *crossingSide) trimDust(amt, price decimal.Decimal) bool {
	var cum decimal.Decimal
	for k, ct := range side.ticks {
		if cum.Add(ct.amt).LessThanOrEqual(amt) {
			cum = cum.Add(ct.amt)
			continue
		}
		partial := amt.Sub(cum)
		if partial.Sign() <= 0 || !dustFree(ct.tick, partial, price) {
			side.ticks = side.ticks[:k]
			side.total = cum
			return true
		}
		return false
	}
	return false
}

// dustFree reports whether distributing amt within tick gives every order that
// trades a fill with non-zero quote value.
func dustFree(tick *Tick, amt, price decimal.Decimal) bool {
	remaining := amt
	for _, group := range tick.Groups() {
		groupAmt := TotalMatchableAmount(group.Orders, price)
		if groupAmt.IsZero() {
			continue
		}
		if remaining.GreaterThanOrEqual(groupAmt) {
			remaining = remaining.Sub(groupAmt)
			continue
		}
		for _, a := range allot(group.Orders, remaining, price) {
			if a.amount.Sign() > 0 && price.Mul(a.amount).Floor().IsZero() {
				return false
			}
		}
		return true
	}
	return true
}

// FindMatchableAmountAtSinglePrice returns the amount both sides can trade at
// price. Ticks that could only be partially filled with dust are left out.
func (ob *Orderbook) FindMatchableAmountAtSinglePrice(price decimal.Decimal) (amt decimal.Decimal, found bool) {
	buys := newCrossingSide(ob.buys, price)
	sells := newCrossingSide(ob.sells, price)
	for {
		amt = decimal.Min(buys.total, sells.total)
		if amt.Sign() <= 0 {
			return decimal.Zero, false
		}
		if buys.trimDust(amt, price) || sells.trimDust(amt, price) {
			continue
		}
		return amt, true
	}
}

// settle fills amt of ladder from the best tick inward at price.
func settle(ladder *TickLadder, amt, price decimal.Decimal) (quoteCoinDiff decimal.Decimal, err error) {
	remaining := amt
	ladder.WalkCrossing(price, func(tick *Tick) bool {
		if remaining.Sign() <= 0 {
			return false
		}
		tickAmt := decimal.Min(remaining, TotalMatchableAmount(tick.Orders, price))
		if tickAmt.IsZero() {
			return true
		}
		var diff decimal.Decimal
		diff, err = tick.DistributeOrderAmount(tickAmt, price)
		if err != nil {
			return false
		}
		quoteCoinDiff = quoteCoinDiff.Add(diff)
		remaining = remaining.Sub(tickAmt)
		return true
	})
	return
}

// MatchAtSinglePrice settles the resting orders at price. quoteCoinDiff is the
// quote coin paid by buyers minus the quote coin received by sellers.
func (ob *Orderbook) MatchAtSinglePrice(price decimal.Decimal) (quoteCoinDiff decimal.Decimal, matched bool, err error) {
	amt, found := ob.FindMatchableAmountAtSinglePrice(price)
	if !found {
		return
	}
	paid, err := settle(ob.buys, amt, price)
	if err != nil {
		return
	}
	received, err := settle(ob.sells, amt, price)
	if err != nil {
		return
	}
	return paid.Sub(received), true, nil
}

// CurveTrade is the reserve change of the curve at Index of Orderbook.Curves.
type CurveTrade struct {
	Index      int
	Curve      Curve
	BaseDelta  decimal.Decimal
	QuoteDelta decimal.Decimal
}

// MatchResult is the outcome of one pass. Orders lists the resting orders
// whose state changed.
type MatchResult struct {
	Matched       bool
	Price         decimal.Decimal
	QuoteCoinDiff decimal.Decimal
	Orders        []*Order
	CurveTrades   []CurveTrade
}

// curveOrders turns every curve's volume at price into a synthetic order of
// batch 0, ahead of every user batch on that tick.
func (ob *Orderbook) curveOrders(price decimal.Decimal) map[*Order]int {
	orders := map[*Order]int{}
	for i, c := range ob.curves {
		if c.IsDepleted() {
			continue
		}
		var order *Order
		if amt := c.BuyAmountTo(price); amt.Sign() > 0 {
			order = NewOrder(0, 0, fmt.Sprintf("curve/%d", i), Buy, price, amt)
		} else if amt := c.SellAmountTo(price); amt.Sign() > 0 {
			order = NewOrder(0, 0, fmt.Sprintf("curve/%d", i), Sell, price, amt)
		}
		if order == nil || MatchableAmount(order, price).IsZero() {
			continue
		}
		ob.AddOrders(order)
		orders[order] = i
	}
	return orders
}

// Match runs one call auction. A book without a crossing returns an unmatched
// result and no error. Curves are not mutated; their fills are reported in
// CurveTrades for the owner to apply with ApplyTrade.
func (ob *Orderbook) Match(lastPrice decimal.Decimal) (res MatchResult, err error) {
	price, found := FindMatchPrice(ob.View(), lastPrice, ob.TickPrecision)
	if !found {
		return
	}

	opens := map[*Order]decimal.Decimal{}
	for _, order := range ob.Orders() {
		opens[order] = order.OpenAmount
	}

	synthetic := ob.curveOrders(price)
	defer ob.prune(func(order *Order) bool {
		_, ok := synthetic[order]
		return ok
	})

	res.Price = price
	res.QuoteCoinDiff, res.Matched, err = ob.MatchAtSinglePrice(price)
	if err != nil || !res.Matched {
		res.Matched = false
		return
	}

	for _, order := range ob.Orders() {
		if open, ok := opens[order]; ok && !open.Equal(order.OpenAmount) {
			res.Orders = append(res.Orders, order)
		}
	}
	for order, i := range synthetic {
		if !order.IsMatched() {
			continue
		}
		trade := CurveTrade{Index: i, Curve: ob.curves[i]}
		if order.Direction == Buy {
			trade.BaseDelta = order.ReceivedDemandCoinAmount
			trade.QuoteDelta = order.PaidOfferCoinAmount.Neg()
		} else {
			trade.BaseDelta = order.PaidOfferCoinAmount.Neg()
			trade.QuoteDelta = order.ReceivedDemandCoinAmount
		}
		res.CurveTrades = append(res.CurveTrades, trade)
	}
	sort.Slice(res.CurveTrades, func(a, b int) bool {
		return res.CurveTrades[a].Index < res.CurveTrades[b].Index
	})
	return
}
