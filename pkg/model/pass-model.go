package model

import (
	"github.com/shopspring/decimal"
)

// Pass model, one committed matching pass
type Pass struct {
	ID     uint64 `json:"id" gorm:"omitempty; primaryKey;"`
	PassID string `json:"passID" gorm:"omitempty; not null; default:''; type:varchar(36); uniqueindex;"`
	Symbol string `json:"symbol" gorm:"omitempty; not null; default:''; type:varchar(32); index;"`
	Round  int64  `json:"round" gorm:"omitempty; not null; default:0;"`

	BatchID       uint64          `json:"batchID" gorm:"omitempty; not null; default:0;"`
	Matched       bool            `json:"matched" gorm:"omitempty; not null; default:false;"`
	Price         decimal.Decimal `json:"price" gorm:"omitempty; not null; default:0; type:decimal(36,18);"`
	QuoteCoinDiff decimal.Decimal `json:"quoteCoinDiff" gorm:"omitempty; not null; default:0; type:decimal(48,0);"`
	Fills         int             `json:"fills" gorm:"omitempty; not null; default:0;"`
	Cancels       int             `json:"cancels" gorm:"omitempty; not null; default:0;"`
	Time          int64           `json:"time" gorm:"omitempty; not null; default:0; index;"`

	Model
}

// Fill model, stored per pair in <symbol>_fills
type Fill struct {
	ID      uint64 `json:"id" gorm:"omitempty; primaryKey;"`
	PassID  string `json:"passID" gorm:"omitempty; not null; default:''; type:varchar(36); index;"`
	OrderID uint64 `json:"orderID" gorm:"omitempty; not null; default:0; index;"` // 0 for a pool
	PoolID  uint64 `json:"poolID" gorm:"omitempty; not null; default:0; index;"`
	Orderer string `json:"orderer" gorm:"omitempty; not null; default:''; type:varchar(64);"`

	Direction int8            `json:"direction" gorm:"omitempty; not null; default:0; type:tinyint(1);"`
	Price     decimal.Decimal `json:"price" gorm:"omitempty; not null; default:0; type:decimal(36,18);"`
	Paid      decimal.Decimal `json:"paid" gorm:"omitempty; not null; default:0; type:decimal(48,0);"`
	Received  decimal.Decimal `json:"received" gorm:"omitempty; not null; default:0; type:decimal(48,0);"`
	Time      int64           `json:"time" gorm:"omitempty; not null; default:0;"`

	Model
}
