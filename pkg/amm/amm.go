// Package amm is the matching and pricing core of a hybrid venue: a price-tick
// orderbook cleared by a uniform-price call auction, with constant-product and
// ranged liquidity curves quoting volume into the same auction.
//
// Every coin amount is a decimal.Decimal holding an integer. Prices carry at most
// Precision fractional digits. Pool reserves follow the pair convention: x is the
// quote coin, y is the base coin, so a pool price is x/y.
package amm

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Precision is the number of fractional digits kept by price arithmetic.
const Precision = 18

var (
	MinPoolPrice               = decimal.New(1, -15)
	MaxPoolPrice               = decimal.New(1, 20)
	MaxCoinAmount              = decimal.New(1, 40)
	MinRangedPoolPriceGapRatio = decimal.New(1, -3)
)

var (
	ErrInvalidConstruction = errors.New("invalid construction")
	ErrExceedsMatchable    = errors.New("fill amount exceeds matchable amount")
	ErrInsufficientReserve = errors.New("insufficient reserve")
	ErrOrderNotFound       = errors.New("order not found")
	ErrNegativeAmount      = errors.New("negative amount")

	ErrZeroReserve      = fmt.Errorf("%w: zero reserve amount", ErrInvalidConstruction)
	ErrPoolPriceTooLow  = fmt.Errorf("%w: pool price is lower than %s", ErrInvalidConstruction, MinPoolPrice)
	ErrPoolPriceTooHigh = fmt.Errorf("%w: pool price is higher than %s", ErrInvalidConstruction, MaxPoolPrice)
)
