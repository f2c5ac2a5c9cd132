package model

import (
	"github.com/shopspring/decimal"
)

// Order model, stored per pair in <symbol>_orders
type Order struct {
	ID      uint64 `json:"id" gorm:"omitempty; primaryKey;"` // registration sequence
	BatchID uint64 `json:"batchID" gorm:"omitempty; not null; default:0; index;"`
	Orderer string `json:"orderer" gorm:"omitempty; not null; default:''; type:varchar(64); index;"`

	Direction int8            `json:"direction" gorm:"omitempty; not null; default:0; type:tinyint(1);"` // 1 buy, 2 sell
	Price     decimal.Decimal `json:"price" gorm:"omitempty; not null; default:0; type:decimal(36,18);"`
	Amount    decimal.Decimal `json:"amount" gorm:"omitempty; not null; default:0; type:decimal(48,0);"`

	OfferCoinAmount          decimal.Decimal `json:"offerCoinAmount" gorm:"omitempty; not null; default:0; type:decimal(48,0);"`
	OpenAmount               decimal.Decimal `json:"openAmount" gorm:"omitempty; not null; default:0; type:decimal(48,0);"`
	PaidOfferCoinAmount      decimal.Decimal `json:"paidOfferCoinAmount" gorm:"omitempty; not null; default:0; type:decimal(48,0);"`
	ReceivedDemandCoinAmount decimal.Decimal `json:"receivedDemandCoinAmount" gorm:"omitempty; not null; default:0; type:decimal(48,0);"`
	Refund                   decimal.Decimal `json:"refund" gorm:"omitempty; not null; default:0; type:decimal(48,0);"`

	// SnapStatus is the status the order had when LoadSnapshot read it.
	SnapStatus int8 `json:"-" gorm:"-"`

	Model
}

const (
	OrderStatusOpen            int8 = 20
	OrderStatusPartiallyFilled int8 = 21
	OrderStatusCancelling      int8 = 30 // cancel requested, refunded by the next pass
	OrderStatusFilled          int8 = 40
	OrderStatusCancelled       int8 = 41 // also dust that can never trade

	OrderDirectionBuy  int8 = 1
	OrderDirectionSell int8 = 2
)

// LiveOrderStatuses are the statuses a pass loads and may change.
var LiveOrderStatuses = []int8{OrderStatusOpen, OrderStatusPartiallyFilled, OrderStatusCancelling}

// CancellableOrderStatuses are the statuses RequestCancel accepts.
var CancellableOrderStatuses = []int8{OrderStatusOpen, OrderStatusPartiallyFilled}
