package amm_test

import (
	"testing"

	"hybrix/pkg/amm"

	"github.com/stretchr/testify/require"
)

func TestPriceToTick(t *testing.T) {
	for _, tc := range []struct {
		price, down, up string
	}{
		{"1.23456", "1.234", "1.235"},
		{"1.234", "1.234", "1.234"},
		{"0.0123456", "0.01234", "0.01235"},
		{"9.9999", "9.999", "10"},
		{"12345.6", "12340", "12350"},
	} {
		t.Run(tc.price, func(t *testing.T) {
			requireDecEq(t, tc.down, defTickPrec.PriceToDownTick(dec(tc.price)))
			requireDecEq(t, tc.up, defTickPrec.PriceToUpTick(dec(tc.price)))
		})
	}
}

func TestUpDownTick(t *testing.T) {
	requireDecEq(t, "1.001", defTickPrec.UpTick(dec("1")))
	requireDecEq(t, "10", defTickPrec.UpTick(dec("9.999")))
	requireDecEq(t, "0.9999", defTickPrec.DownTick(dec("1")))
	requireDecEq(t, "9.999", defTickPrec.DownTick(dec("10")))
	requireDecEq(t, "1.234", defTickPrec.DownTick(dec("1.2345")))
	requireDecEq(t, "1.234", defTickPrec.DownTick(defTickPrec.UpTick(dec("1.234"))))
}

func TestRoundPrice(t *testing.T) {
	requireDecEq(t, "1.234", defTickPrec.RoundPrice(dec("1.2344")))
	requireDecEq(t, "1.234", defTickPrec.RoundPrice(dec("1.2345")))
	requireDecEq(t, "1.235", defTickPrec.RoundPrice(dec("1.2346")))
	requireDecEq(t, "0.9999", defTickPrec.RoundPrice(dec("0.99994")))
	requireDecEq(t, "1", defTickPrec.RoundPrice(dec("0.99996")))
}

func TestTickIndex(t *testing.T) {
	require.Equal(t, int64(0), defTickPrec.TickToIndex(dec("1")))
	require.Equal(t, int64(1), defTickPrec.TickToIndex(dec("1.001")))
	require.Equal(t, int64(-1), defTickPrec.TickToIndex(dec("0.9999")))
	require.Equal(t, int64(8999), defTickPrec.TickToIndex(dec("9.999")))
	require.Equal(t, int64(9000), defTickPrec.TickToIndex(dec("10")))

	tick := dec("0.09995")
	for i := 0; i < 200; i++ {
		idx := defTickPrec.TickToIndex(tick)
		requireDecEq(t, tick.String(), defTickPrec.TickFromIndex(idx))
		require.Equal(t, idx+1, defTickPrec.TickToIndex(defTickPrec.UpTick(tick)))
		tick = defTickPrec.UpTick(tick)
	}

	for _, i := range []int64{-27001, -9000, -1, 0, 1, 8999, 9000, 123456} {
		require.Equal(t, i, defTickPrec.TickToIndex(defTickPrec.TickFromIndex(i)))
	}
}

func TestTickBounds(t *testing.T) {
	prec := amm.TickPrecision(4)
	requireDecEq(t, "0.00000000000001", prec.LowestTick())
	require.True(t, prec.HighestTick().LessThan(amm.MaxPoolPrice))
	requireDecEq(t, amm.MaxPoolPrice.String(), prec.UpTick(prec.HighestTick()))
}
