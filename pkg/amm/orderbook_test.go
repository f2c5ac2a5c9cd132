package amm_test

import (
	"errors"
	"testing"

	"hybrix/pkg/amm"

	"github.com/stretchr/testify/require"
)

func TestOrderbook(t *testing.T) {
	ob := amm.BuildOrderbook()
	_, found := ob.HighestPrice()
	require.False(t, found)
	_, found = ob.LowestPrice()
	require.False(t, found)

	b1 := newOrder(amm.Buy, "1.0", 100)
	b2 := newOrder(amm.Buy, "0.9", 100)
	b3 := newOrder(amm.Buy, "1.0", 50)
	s1 := newOrder(amm.Sell, "1.1", 100)
	s2 := newOrder(amm.Sell, "1.3", 100)
	dust := newOrder(amm.Sell, "0.5", 1)
	ob.AddOrders(b2, s2, b1, s1, b3, dust)

	require.Equal(t, []*amm.Order{b1, b3, b2, s1, s2}, ob.Orders())
	require.Equal(t, []*amm.Order{b1, b3}, ob.BuyOrdersAt(dec("1")))
	require.Nil(t, ob.BuyOrdersAt(dec("1.1")))
	require.Equal(t, []*amm.Order{s2}, ob.SellOrdersAt(dec("1.3")))
	require.Nil(t, ob.SellOrdersAt(dec("0.5")))

	highest, found := ob.HighestPrice()
	require.True(t, found)
	requireDecEq(t, "1.3", highest)
	lowest, found := ob.LowestPrice()
	require.True(t, found)
	requireDecEq(t, "0.9", lowest)

	view := ob.MakeView()
	requireDecEq(t, "150", view.BuyAmountOver(dec("1.0")))
	requireDecEq(t, "250", view.BuyAmountOver(dec("0.9")))
	requireDecEq(t, "0", view.SellAmountUnder(dec("1.0")))
	requireDecEq(t, "200", view.SellAmountUnder(dec("2")))
	p, found := view.HighestBuyPrice()
	require.True(t, found)
	requireDecEq(t, "1", p)
	p, found = view.LowestSellPrice()
	require.True(t, found)
	requireDecEq(t, "1.1", p)
}

func TestCancelOrder(t *testing.T) {
	buy := newOrder(amm.Buy, "1.5", 100)
	ob := amm.BuildOrderbook(buy, newOrder(amm.Sell, "2", 10))
	_, err := amm.FillOrder(buy, dec("40"), dec("1.5"))
	require.Nil(t, err)

	refund, err := ob.CancelOrder(buy.ID)
	require.Nil(t, err)
	requireDecEq(t, "90", refund)
	require.Nil(t, ob.BuyOrdersAt(dec("1.5")))
	require.Len(t, ob.Orders(), 1)

	_, err = ob.CancelOrder(buy.ID)
	require.True(t, errors.Is(err, amm.ErrOrderNotFound))
}

func TestOrderbookViewWithCurves(t *testing.T) {
	ob := amm.BuildOrderbook(newOrder(amm.Buy, "1.1", 10000))
	ob.AddCurves(amm.NewBasicPool(newInt(1000000), newInt(1000000), newInt(1000000)))
	view := ob.View()

	p, found := view.HighestBuyPrice()
	require.True(t, found)
	requireDecEq(t, "1.1", p)
	p, found = view.LowestSellPrice()
	require.True(t, found)
	requireDecEq(t, "1", p)
	requireDecEq(t, "10337", view.SellAmountUnder(dec("1.021")))
	requireDecEq(t, "10000", view.BuyAmountOver(dec("1.021")))
}
