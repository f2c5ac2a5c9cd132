package amm_test

import (
	"testing"

	"hybrix/pkg/amm"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const defTickPrec = amm.TickPrecision(3)

var dec = amm.ParseDec

var lastID uint64

// newOrder registers orders in call order within batch 1.
func newOrder(dir amm.Direction, price string, amt int64) *amm.Order {
	lastID++
	return amm.NewOrder(lastID, 1, "tester", dir, dec(price), decimal.NewFromInt(amt))
}

func requireDecEq(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}
