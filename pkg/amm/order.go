package amm

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Direction is the side of an order.
type Direction int8

const (
	Buy Direction = iota + 1
	Sell
)

func (dir Direction) String() string {
	switch dir {
	case Buy:
		return "Buy"
	case Sell:
		return "Sell"
	default:
		return fmt.Sprintf("Direction(%d)", int8(dir))
	}
}

// Order is a resting limit order together with its fill bookkeeping.
type Order struct {
	ID      uint64 // registration sequence, lower is earlier
	BatchID uint64
	Orderer string

	Direction Direction
	Price     decimal.Decimal
	Amount    decimal.Decimal

	OfferCoinAmount          decimal.Decimal
	OpenAmount               decimal.Decimal
	PaidOfferCoinAmount      decimal.Decimal
	ReceivedDemandCoinAmount decimal.Decimal
}

// NewOrder returns an open order escrowing the offer coin implied by dir, price and amount.
func NewOrder(id, batchID uint64, orderer string, dir Direction, price, amount decimal.Decimal) *Order {
	return &Order{
		ID:              id,
		BatchID:         batchID,
		Orderer:         orderer,
		Direction:       dir,
		Price:           price,
		Amount:          amount,
		OfferCoinAmount: OfferCoinAmount(dir, price, amount),
		OpenAmount:      amount,
	}
}

// OfferCoinAmount is ceil(price*amount) quote coin for a buy and amount base coin for a sell.
func OfferCoinAmount(dir Direction, price, amount decimal.Decimal) decimal.Decimal {
	if dir == Buy {
		return price.Mul(amount).Ceil()
	}
	return amount
}

// IsFilled reports whether nothing is left open.
func (o *Order) IsFilled() bool {
	return o.OpenAmount.Sign() <= 0
}

// IsMatched reports whether the order has been filled at least partially.
func (o *Order) IsMatched() bool {
	return o.OpenAmount.LessThan(o.Amount)
}

// Refund is the escrow returned when the order is cancelled.
func (o *Order) Refund() decimal.Decimal {
	return o.OfferCoinAmount.Sub(o.PaidOfferCoinAmount)
}

func (o *Order) String() string {
	return fmt.Sprintf("%s(%d,batch=%d,%s,%s/%s)",
		o.Direction, o.ID, o.BatchID, o.Price, o.OpenAmount, o.Amount)
}

// MatchableAmount returns how much of order can trade at price without
// exceeding its escrow. Amounts whose quote value floors to zero are not matchable.
func MatchableAmount(order *Order, price decimal.Decimal) (amt decimal.Decimal) {
	switch order.Direction {
	case Buy:
		if price.Sign() <= 0 {
			return decimal.Zero
		}
		remaining := order.OfferCoinAmount.Sub(order.PaidOfferCoinAmount)
		amt = decimal.Min(order.OpenAmount, quoTruncate(remaining, price).Floor())
	case Sell:
		amt = order.OpenAmount
	default:
		return decimal.Zero
	}
	if amt.Sign() <= 0 || price.Mul(amt).Floor().IsZero() {
		return decimal.Zero
	}
	return amt
}

// FillOrder fills amt of order at price and returns the quote coin that moved:
// paid by a buyer or received by a seller.
func FillOrder(order *Order, amt, price decimal.Decimal) (quoteCoinDiff decimal.Decimal, err error) {
	if amt.IsNegative() {
		err = fmt.Errorf("%w: fill %s of order %d", ErrNegativeAmount, amt, order.ID)
		return
	}
	if amt.IsZero() {
		return
	}
	if matchable := MatchableAmount(order, price); amt.GreaterThan(matchable) {
		err = fmt.Errorf("%w: order %d, amount %s, matchable %s at %s",
			ErrExceedsMatchable, order.ID, amt, matchable, price)
		return
	}

	var paid, received decimal.Decimal
	switch order.Direction {
	case Buy:
		paid = amt.Mul(price).Ceil()
		received = amt
		quoteCoinDiff = paid
	case Sell:
		paid = amt
		received = amt.Mul(price).Ceil()
		quoteCoinDiff = received
	}
	order.OpenAmount = order.OpenAmount.Sub(amt)
	order.PaidOfferCoinAmount = order.PaidOfferCoinAmount.Add(paid)
	order.ReceivedDemandCoinAmount = order.ReceivedDemandCoinAmount.Add(received)
	return
}

// FulfillOrder fills the whole matchable amount of order at price.
func FulfillOrder(order *Order, price decimal.Decimal) (decimal.Decimal, error) {
	amt := MatchableAmount(order, price)
	if amt.IsZero() {
		return decimal.Zero, nil
	}
	return FillOrder(order, amt, price)
}

// FulfillOrders fulfills every order in sequence and sums the quote coin moved.
func FulfillOrders(orders []*Order, price decimal.Decimal) (quoteCoinDiff decimal.Decimal, err error) {
	for _, order := range orders {
		var diff decimal.Decimal
		diff, err = FulfillOrder(order, price)
		if err != nil {
			return
		}
		quoteCoinDiff = quoteCoinDiff.Add(diff)
	}
	return
}

func TotalAmount(orders []*Order) (amt decimal.Decimal) {
	for _, order := range orders {
		amt = amt.Add(order.Amount)
	}
	return
}

func TotalOpenAmount(orders []*Order) (amt decimal.Decimal) {
	for _, order := range orders {
		amt = amt.Add(order.OpenAmount)
	}
	return
}

func TotalMatchableAmount(orders []*Order, price decimal.Decimal) (amt decimal.Decimal) {
	for _, order := range orders {
		amt = amt.Add(MatchableAmount(order, price))
	}
	return
}

type allotment struct {
	order     *Order
	matchable decimal.Decimal
	amount    decimal.Decimal
	rem       decimal.Decimal // numerator of the fractional share left after flooring
}

// allot splits amt among orders proportionally to their original amounts.
// Each share is floored and capped at the order's matchable amount. The units
// left over are dealt one per order per round in priority order: larger
// fractional remainder, then larger order, then earlier registration.
func allot(orders []*Order, amt, price decimal.Decimal) []allotment {
	total := TotalAmount(orders)
	if total.Sign() <= 0 || amt.Sign() <= 0 {
		return nil
	}

	allots := make([]allotment, 0, len(orders))
	left := amt
	for _, order := range orders {
		matchable := MatchableAmount(order, price)
		share, rem := order.Amount.Mul(amt).QuoRem(total, 0)
		a := decimal.Min(matchable, share)
		allots = append(allots, allotment{order: order, matchable: matchable, amount: a, rem: rem})
		left = left.Sub(a)
	}

	sort.SliceStable(allots, func(i, j int) bool {
		a, b := allots[i], allots[j]
		if c := a.rem.Cmp(b.rem); c != 0 {
			return c > 0
		}
		if c := a.order.Amount.Cmp(b.order.Amount); c != 0 {
			return c > 0
		}
		return a.order.ID < b.order.ID
	})

	for left.Sign() > 0 {
		var open []int
		var minRoom decimal.Decimal
		for i := range allots {
			room := allots[i].matchable.Sub(allots[i].amount)
			if room.Sign() <= 0 {
				continue
			}
			if len(open) == 0 || room.LessThan(minRoom) {
				minRoom = room
			}
			open = append(open, i)
		}
		if len(open) == 0 {
			break
		}

		rounds, _ := left.QuoRem(decimal.NewFromInt(int64(len(open))), 0)
		rounds = decimal.Min(rounds, minRoom)
		if rounds.IsZero() {
			// less than one unit per order left
			for _, i := range open[:left.IntPart()] {
				allots[i].amount = allots[i].amount.Add(one)
			}
			break
		}
		for _, i := range open {
			allots[i].amount = allots[i].amount.Add(rounds)
		}
		left = left.Sub(rounds.Mul(decimal.NewFromInt(int64(len(open)))))
	}
	return allots
}

// DistributeOrderAmountToOrders fills amt across orders pro rata.
// The total filled is min(amt, total matchable amount of orders).
func DistributeOrderAmountToOrders(orders []*Order, amt, price decimal.Decimal) (quoteCoinDiff decimal.Decimal, err error) {
	for _, a := range allot(orders, amt, price) {
		if a.amount.IsZero() {
			continue
		}
		var diff decimal.Decimal
		diff, err = FillOrder(a.order, a.amount, price)
		if err != nil {
			return
		}
		quoteCoinDiff = quoteCoinDiff.Add(diff)
	}
	return
}
