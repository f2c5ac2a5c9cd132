package model

import (
	"strings"

	"gorm.io/gorm"
)

// OrderTable generates different table names based on the trading pair
func OrderTable(symbol string) func(tx *gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Table(OrderTableName(symbol))
	}
}

func OrderTableName(symbol string) string {
	return strings.ToLower(symbol + "_orders")
}

// FillTable generates different table names based on the trading pair
func FillTable(symbol string) func(tx *gorm.DB) *gorm.DB {
	return func(tx *gorm.DB) *gorm.DB {
		return tx.Table(FillTableName(symbol))
	}
}

func FillTableName(symbol string) string {
	return strings.ToLower(symbol + "_fills")
}
