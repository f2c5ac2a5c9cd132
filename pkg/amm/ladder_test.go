package amm_test

import (
	"testing"

	"hybrix/pkg/amm"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestTickLadder(t *testing.T) {
	buys := amm.NewTickLadder(amm.Buy)
	sells := amm.NewTickLadder(amm.Sell)
	for _, p := range []string{"1.0", "1.2", "0.9", "1.2", "1.00"} {
		buys.AddOrder(newOrder(amm.Buy, p, 10))
		sells.AddOrder(newOrder(amm.Sell, p, 10))
	}
	require.Equal(t, 3, buys.Len())
	requireDecEq(t, "1.2", buys.Best().Price)
	requireDecEq(t, "0.9", buys.Worst().Price)
	requireDecEq(t, "0.9", sells.Best().Price)
	require.Len(t, buys.Tick(dec("1")).Orders, 2)
	require.Nil(t, buys.Tick(dec("1.1")))

	var prices []string
	buys.Walk(func(tick *amm.Tick) bool {
		prices = append(prices, tick.Price.String())
		return true
	})
	require.Equal(t, []string{"1.2", "1", "0.9"}, prices)

	prices = nil
	sells.WalkCrossing(dec("1.0"), func(tick *amm.Tick) bool {
		prices = append(prices, tick.Price.String())
		return true
	})
	require.Equal(t, []string{"0.9", "1"}, prices)

	n := buys.RemoveOrders(func(o *amm.Order) bool { return o.Price.Equal(dec("1.2")) })
	require.Equal(t, 2, n)
	require.Equal(t, 2, buys.Len())
	requireDecEq(t, "1", buys.Best().Price)
}

func TestTickGroups(t *testing.T) {
	orders := []*amm.Order{
		amm.NewOrder(1, 3, "", amm.Buy, dec("1"), decimal.NewFromInt(10)),
		amm.NewOrder(2, 2, "", amm.Buy, dec("1"), decimal.NewFromInt(10)),
		amm.NewOrder(3, 3, "", amm.Buy, dec("1"), decimal.NewFromInt(10)),
	}
	tick := &amm.Tick{Price: dec("1"), Orders: orders}
	groups := tick.Groups()
	require.Len(t, groups, 2)
	require.Equal(t, uint64(2), groups[0].BatchID)
	require.Equal(t, []*amm.Order{orders[1]}, groups[0].Orders)
	require.Equal(t, []*amm.Order{orders[0], orders[2]}, groups[1].Orders)
}

func TestTickDistributeOrderAmount(t *testing.T) {
	early := amm.NewOrder(1, 1, "", amm.Sell, dec("10"), decimal.NewFromInt(30))
	a := amm.NewOrder(2, 2, "", amm.Sell, dec("10"), decimal.NewFromInt(5))
	b := amm.NewOrder(3, 2, "", amm.Sell, dec("10"), decimal.NewFromInt(15))
	late := amm.NewOrder(4, 3, "", amm.Sell, dec("10"), decimal.NewFromInt(50))
	tick := &amm.Tick{Price: dec("10"), Orders: []*amm.Order{late, b, early, a}}

	diff, err := tick.DistributeOrderAmount(dec("40"), dec("10"))
	require.Nil(t, err)
	requireDecEq(t, "400", diff)
	require.True(t, early.IsFilled())
	requireDecEq(t, "2", a.PaidOfferCoinAmount)
	requireDecEq(t, "8", b.PaidOfferCoinAmount)
	require.False(t, late.IsMatched())

	diff, err = tick.DistributeOrderAmount(dec("1000"), dec("10"))
	require.Nil(t, err)
	requireDecEq(t, "600", diff)
	for _, order := range tick.Orders {
		require.True(t, order.IsFilled())
	}
}
