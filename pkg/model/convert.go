package model

import (
	"errors"
	"fmt"

	"hybrix/pkg/amm"

	"github.com/shopspring/decimal"
)

var ErrUnknownPoolKind = errors.New("unknown pool kind")

// ToAmm returns the engine order of a stored order.
func (o *Order) ToAmm() *amm.Order {
	return &amm.Order{
		ID:                       o.ID,
		BatchID:                  o.BatchID,
		Orderer:                  o.Orderer,
		Direction:                amm.Direction(o.Direction),
		Price:                    o.Price,
		Amount:                   o.Amount,
		OfferCoinAmount:          o.OfferCoinAmount,
		OpenAmount:               o.OpenAmount,
		PaidOfferCoinAmount:      o.PaidOfferCoinAmount,
		ReceivedDemandCoinAmount: o.ReceivedDemandCoinAmount,
	}
}

// NewOrder builds an open stored order the way amm.NewOrder does.
func NewOrder(id, batchID uint64, orderer string, dir amm.Direction, price, amount decimal.Decimal) Order {
	ao := amm.NewOrder(id, batchID, orderer, dir, price, amount)
	o := Order{
		ID:        ao.ID,
		BatchID:   ao.BatchID,
		Orderer:   ao.Orderer,
		Direction: int8(ao.Direction),
		Price:     ao.Price,
		Amount:    ao.Amount,
	}
	o.SetFromAmm(ao)
	return o
}

// SetFromAmm copies the fill state of a matched engine order.
func (o *Order) SetFromAmm(ao *amm.Order) {
	o.OfferCoinAmount = ao.OfferCoinAmount
	o.OpenAmount = ao.OpenAmount
	o.PaidOfferCoinAmount = ao.PaidOfferCoinAmount
	o.ReceivedDemandCoinAmount = ao.ReceivedDemandCoinAmount
	switch {
	case ao.IsFilled():
		o.Status = OrderStatusFilled
	case ao.IsMatched():
		o.Status = OrderStatusPartiallyFilled
	default:
		o.Status = OrderStatusOpen
	}
}

// Curve returns the engine curve of a stored pool.
func (p *Pool) Curve() (amm.Curve, error) {
	switch p.Kind {
	case PoolKindBasic:
		return amm.NewBasicPool(p.RX, p.RY, p.PoolCoinSupply), nil
	case PoolKindRanged:
		return amm.NewRangedPool(p.RX, p.RY, p.PoolCoinSupply, p.MinPrice, p.MaxPrice), nil
	default:
		return nil, fmt.Errorf("%w: %d of pool %d", ErrUnknownPoolKind, p.Kind, p.ID)
	}
}

// SetFromCurve copies the reserves of c.
func (p *Pool) SetFromCurve(c amm.Curve) {
	p.RX, p.RY = c.Balances()
	p.PoolCoinSupply = c.PoolCoinSupply()
}
