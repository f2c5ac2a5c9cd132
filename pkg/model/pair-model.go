package model

import (
	"github.com/shopspring/decimal"
)

// Pair model, one row per traded pair
type Pair struct {
	ID     uint64 `json:"id" gorm:"omitempty; primaryKey;"`
	Symbol string `json:"symbol" gorm:"omitempty; not null; default:''; type:varchar(32); uniqueindex;"` // BASE_QUOTE

	LastPrice      decimal.Decimal `json:"lastPrice" gorm:"omitempty; not null; default:0; type:decimal(36,18);"`
	CurrentBatchID uint64          `json:"currentBatchID" gorm:"omitempty; not null; default:1;"` // batch new orders join, bumped by every pass
	Rounds         int64           `json:"rounds" gorm:"omitempty; not null; default:0;"`         // committed passes

	Model
}
