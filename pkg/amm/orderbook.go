package amm

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Orderbook holds both ladders of a pair and the curves attached for a pass.
// It is not safe for concurrent use; a pass owns it exclusively.
type Orderbook struct {
	TickPrecision TickPrecision

	buys   *TickLadder
	sells  *TickLadder
	curves []Curve
	byID   map[uint64]*Order
}

// NewOrderbook returns an orderbook on the prec grid holding orders.
func NewOrderbook(prec TickPrecision, orders ...*Order) *Orderbook {
	ob := &Orderbook{
		TickPrecision: prec,
		buys:          NewTickLadder(Buy),
		sells:         NewTickLadder(Sell),
		byID:          map[uint64]*Order{},
	}
	ob.AddOrders(orders...)
	return ob
}

// BuildOrderbook is NewOrderbook on the default grid.
func BuildOrderbook(orders ...*Order) *Orderbook {
	return NewOrderbook(DefaultTickPrecision, orders...)
}

// AddOrders inserts orders into their side. Orders with nothing matchable at
// their own price are skipped.
func (ob *Orderbook) AddOrders(orders ...*Order) {
	for _, order := range orders {
		if MatchableAmount(order, order.Price).IsZero() {
			continue
		}
		switch order.Direction {
		case Buy:
			ob.buys.AddOrder(order)
		case Sell:
			ob.sells.AddOrder(order)
		default:
			continue
		}
		if order.ID != 0 {
			ob.byID[order.ID] = order
		}
	}
}

// AddCurves attaches curves that quote into the auction.
func (ob *Orderbook) AddCurves(curves ...Curve) {
	ob.curves = append(ob.curves, curves...)
}

func (ob *Orderbook) Curves() []Curve {
	return ob.curves
}

// Orders returns buy orders best first, then sell orders best first.
func (ob *Orderbook) Orders() []*Order {
	return append(ob.buys.Orders(), ob.sells.Orders()...)
}

func (ob *Orderbook) BuyOrdersAt(price decimal.Decimal) []*Order {
	if tick := ob.buys.Tick(price); tick != nil {
		return tick.Orders
	}
	return nil
}

func (ob *Orderbook) SellOrdersAt(price decimal.Decimal) []*Order {
	if tick := ob.sells.Tick(price); tick != nil {
		return tick.Orders
	}
	return nil
}

// HighestPrice returns the highest price among all resting orders.
func (ob *Orderbook) HighestPrice() (price decimal.Decimal, found bool) {
	if tick := ob.buys.Best(); tick != nil {
		price, found = tick.Price, true
	}
	if tick := ob.sells.Worst(); tick != nil && (!found || tick.Price.GreaterThan(price)) {
		price, found = tick.Price, true
	}
	return
}

// LowestPrice returns the lowest price among all resting orders.
func (ob *Orderbook) LowestPrice() (price decimal.Decimal, found bool) {
	if tick := ob.sells.Best(); tick != nil {
		price, found = tick.Price, true
	}
	if tick := ob.buys.Worst(); tick != nil && (!found || tick.Price.LessThan(price)) {
		price, found = tick.Price, true
	}
	return
}

// CancelOrder removes a resting order and returns the escrow to refund.
func (ob *Orderbook) CancelOrder(id uint64) (refund decimal.Decimal, err error) {
	order, ok := ob.byID[id]
	if !ok {
		err = fmt.Errorf("%w: %d", ErrOrderNotFound, id)
		return
	}
	ladder := ob.buys
	if order.Direction == Sell {
		ladder = ob.sells
	}
	ladder.RemoveOrders(func(o *Order) bool { return o == order })
	delete(ob.byID, id)
	refund = order.Refund()
	return
}

// MakeView returns a view over the ladders only.
func (ob *Orderbook) MakeView() *OrderbookView {
	return &OrderbookView{ob: ob}
}

// View returns the ladders merged with every curve that is not depleted.
func (ob *Orderbook) View() OrderView {
	views := MultipleOrderViews{ob.MakeView()}
	for _, c := range ob.curves {
		if !c.IsDepleted() {
			views = append(views, CurveView{Curve: c})
		}
	}
	return views
}

// prune drops filled orders and the orders dropped by extra from both ladders.
func (ob *Orderbook) prune(extra func(*Order) bool) {
	drop := func(order *Order) bool {
		if extra != nil && extra(order) {
			return true
		}
		if order.IsFilled() {
			delete(ob.byID, order.ID)
			return true
		}
		return false
	}
	ob.buys.RemoveOrders(drop)
	ob.sells.RemoveOrders(drop)
}
