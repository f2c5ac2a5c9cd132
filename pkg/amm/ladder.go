package amm

import (
	"sort"

	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// Tick holds the orders resting at one price, in insertion order.
type Tick struct {
	Price  decimal.Decimal
	Orders []*Order
}

// Less orders ticks by ascending price.
func (t *Tick) Less(than btree.Item) bool {
	return t.Price.LessThan(than.(*Tick).Price)
}

// OrderGroup is the orders of a tick that arrived in the same batch.
type OrderGroup struct {
	BatchID uint64
	Orders  []*Order
}

// Groups splits the tick's orders by batch, earliest batch first.
func (t *Tick) Groups() []OrderGroup {
	var groups []OrderGroup
	index := map[uint64]int{}
	for _, order := range t.Orders {
		i, ok := index[order.BatchID]
		if !ok {
			i = len(groups)
			index[order.BatchID] = i
			groups = append(groups, OrderGroup{BatchID: order.BatchID})
		}
		groups[i].Orders = append(groups[i].Orders, order)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].BatchID < groups[j].BatchID
	})
	return groups
}

// DistributeOrderAmount fills amt of the tick's orders at price. Groups are
// visited in batch order; a group that fits in what is left is fulfilled,
// the first one that does not takes the rest pro rata and ends the walk.
func (t *Tick) DistributeOrderAmount(amt, price decimal.Decimal) (quoteCoinDiff decimal.Decimal, err error) {
	remaining := amt
	for _, group := range t.Groups() {
		if remaining.Sign() <= 0 {
			break
		}
		groupAmt := TotalMatchableAmount(group.Orders, price)
		if groupAmt.IsZero() {
			continue
		}

		var diff decimal.Decimal
		if remaining.GreaterThanOrEqual(groupAmt) {
			diff, err = FulfillOrders(group.Orders, price)
			remaining = remaining.Sub(groupAmt)
		} else {
			diff, err = DistributeOrderAmountToOrders(group.Orders, remaining, price)
			remaining = decimal.Zero
		}
		if err != nil {
			return
		}
		quoteCoinDiff = quoteCoinDiff.Add(diff)
	}
	return
}

// TickLadder is one side of the book. The best tick is the highest price for
// the buy side and the lowest for the sell side.
type TickLadder struct {
	Direction Direction
	tree      *btree.BTree
}

func NewTickLadder(dir Direction) *TickLadder {
	return &TickLadder{
		Direction: dir,
		tree:      btree.New(2),
	}
}

func (l *TickLadder) Len() int {
	return l.tree.Len()
}

// AddOrder appends order to the tick at its price, creating the tick if needed.
func (l *TickLadder) AddOrder(order *Order) {
	if tick := l.Tick(order.Price); tick != nil {
		tick.Orders = append(tick.Orders, order)
		return
	}
	l.tree.ReplaceOrInsert(&Tick{Price: order.Price, Orders: []*Order{order}})
}

// Tick returns the tick at exactly price, or nil.
func (l *TickLadder) Tick(price decimal.Decimal) *Tick {
	item := l.tree.Get(&Tick{Price: price})
	if item == nil {
		return nil
	}
	return item.(*Tick)
}

// Best returns the tick with the best price, or nil for an empty ladder.
func (l *TickLadder) Best() *Tick {
	var item btree.Item
	if l.Direction == Buy {
		item = l.tree.Max()
	} else {
		item = l.tree.Min()
	}
	if item == nil {
		return nil
	}
	return item.(*Tick)
}

// Worst returns the tick with the worst price, or nil for an empty ladder.
func (l *TickLadder) Worst() *Tick {
	var item btree.Item
	if l.Direction == Buy {
		item = l.tree.Min()
	} else {
		item = l.tree.Max()
	}
	if item == nil {
		return nil
	}
	return item.(*Tick)
}

// Walk calls fn for each tick from best to worst until fn returns false.
func (l *TickLadder) Walk(fn func(*Tick) bool) {
	iter := func(item btree.Item) bool {
		return fn(item.(*Tick))
	}
	if l.Direction == Buy {
		l.tree.Descend(iter)
	} else {
		l.tree.Ascend(iter)
	}
}

// WalkCrossing walks from best to worst over ticks willing to trade at price.
func (l *TickLadder) WalkCrossing(price decimal.Decimal, fn func(*Tick) bool) {
	l.Walk(func(tick *Tick) bool {
		if l.Direction == Buy && tick.Price.LessThan(price) {
			return false
		}
		if l.Direction == Sell && tick.Price.GreaterThan(price) {
			return false
		}
		return fn(tick)
	})
}

// Orders returns the ladder's orders from best tick to worst.
func (l *TickLadder) Orders() (orders []*Order) {
	l.Walk(func(tick *Tick) bool {
		orders = append(orders, tick.Orders...)
		return true
	})
	return
}

// RemoveOrders drops every order for which drop returns true and deletes ticks
// left empty. It returns the number of orders removed.
func (l *TickLadder) RemoveOrders(drop func(*Order) bool) (n int) {
	var empty []*Tick
	l.Walk(func(tick *Tick) bool {
		kept := tick.Orders[:0]
		for _, order := range tick.Orders {
			if drop(order) {
				n++
				continue
			}
			kept = append(kept, order)
		}
		tick.Orders = kept
		if len(kept) == 0 {
			empty = append(empty, tick)
		}
		return true
	})
	for _, tick := range empty {
		l.tree.Delete(tick)
	}
	return
}
