package model

import (
	"github.com/shopspring/decimal"
)

// Pool model, a liquidity curve attached to a pair
type Pool struct {
	ID     uint64 `json:"id" gorm:"omitempty; primaryKey;"`
	Symbol string `json:"symbol" gorm:"omitempty; not null; default:''; type:varchar(32); index;"`
	Kind   int8   `json:"kind" gorm:"omitempty; not null; default:1; type:tinyint(1);"` // 1 basic, 2 ranged

	RX             decimal.Decimal `json:"rx" gorm:"column:rx; omitempty; not null; default:0; type:decimal(48,0);"` // quote reserve
	RY             decimal.Decimal `json:"ry" gorm:"column:ry; omitempty; not null; default:0; type:decimal(48,0);"` // base reserve
	PoolCoinSupply decimal.Decimal `json:"poolCoinSupply" gorm:"omitempty; not null; default:0; type:decimal(48,0);"`
	MinPrice       decimal.Decimal `json:"minPrice" gorm:"omitempty; not null; default:0; type:decimal(48,18);"`
	MaxPrice       decimal.Decimal `json:"maxPrice" gorm:"omitempty; not null; default:0; type:decimal(48,18);"`

	Model
}

const (
	PoolKindBasic  int8 = 1
	PoolKindRanged int8 = 2

	PoolStatusActive   int8 = 1
	PoolStatusDisabled int8 = 2
)
