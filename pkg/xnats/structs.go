package xnats

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PassMsg is one matching pass of a pair, as journaled and published.
type PassMsg struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	Round         int64           `json:"round"`
	Matched       bool            `json:"matched"`
	Price         decimal.Decimal `json:"price"`
	QuoteCoinDiff decimal.Decimal `json:"quoteCoinDiff"`
	Time          int64           `json:"time"` // unix nano

	Fills       []FillMsg       `json:"fills,omitempty"`
	CurveTrades []CurveTradeMsg `json:"curveTrades,omitempty"`
	Cancels     []CancelMsg     `json:"cancels,omitempty"`
}

// FillMsg is the state of an order after the pass.
type FillMsg struct {
	OrderID    uint64          `json:"orderID"`
	Orderer    string          `json:"orderer"`
	Direction  string          `json:"direction"`
	OpenAmount decimal.Decimal `json:"openAmount"`
	Paid       decimal.Decimal `json:"paid"`     // offer coin paid in this pass
	Received   decimal.Decimal `json:"received"` // demand coin received in this pass
}

type CurveTradeMsg struct {
	PoolID     uint64          `json:"poolID"`
	BaseDelta  decimal.Decimal `json:"baseDelta"`
	QuoteDelta decimal.Decimal `json:"quoteDelta"`
	Price      decimal.Decimal `json:"price"` // pool price after the trade
}

type CancelMsg struct {
	OrderID uint64          `json:"orderID"`
	Refund  decimal.Decimal `json:"refund"`
}

// Subject is where passes of symbol are published.
func Subject(stream, symbol string) string {
	return stream + "." + strings.ToUpper(symbol) + ".pass"
}
