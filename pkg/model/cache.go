package model

import (
	"context"
	"errors"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
)

// PriceCache keeps the last clearing price of every pair in redis.
type PriceCache struct {
	Rds *redis.Client
}

func NewPriceCache(rds *redis.Client) *PriceCache {
	return &PriceCache{Rds: rds}
}

func LastPriceKey(symbol string) string {
	return "hybrix:last_price:" + strings.ToUpper(symbol)
}

// LastPrice returns found=false when nothing is cached for symbol.
func (c *PriceCache) LastPrice(ctx context.Context, symbol string) (price decimal.Decimal, found bool, err error) {
	s, err := c.Rds.Get(ctx, LastPriceKey(symbol)).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return
	}
	price, err = decimal.NewFromString(s)
	if err != nil {
		return
	}
	return price, true, nil
}

func (c *PriceCache) SetLastPrice(ctx context.Context, symbol string, price decimal.Decimal) error {
	return c.Rds.Set(ctx, LastPriceKey(symbol), price.String(), 0).Err()
}
