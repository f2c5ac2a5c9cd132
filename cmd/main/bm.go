package main

import (
	"context"
	"math/rand"

	"hybrix/pkg/amm"
	"hybrix/pkg/config"
	"hybrix/pkg/model"
	"hybrix/pkg/xetcd"
	"hybrix/pkg/xnats"

	"github.com/shopspring/decimal"
)

// PrepareForBenchmark prepares mysql, nats and etcd for a matcher benchmark:
// tables, pairs, one basic pool per pair and -orders random orders around
// the pool price.
func PrepareForBenchmark(ctx context.Context) (err error) {
	cfg := config.Shared
	symbols, err := pairs()
	if err != nil {
		return
	}

	// 1. Prepare database

	store, err := openStore()
	if err != nil {
		return
	}
	err = store.AutoMigrate(symbols...)
	if err != nil {
		return
	}

	for _, symbol := range symbols {
		err = seedPair(ctx, store, symbol, fOrders)
		if err != nil {
			return
		}
	}

	// 2. Prepare etcd

	if cfg.Etcd.Main.Enabled && cfg.Nats.Url != "" {
		err = xetcd.InitShared([]string{cfg.Etcd.Main.Url})
		if err != nil {
			return
		}
		err = xetcd.Shared.Put(ctx, xetcd.KeyNatsService(), cfg.Nats.Url)
		if err != nil {
			return
		}
	}

	// 3. Prepare nats, Connect creates the stream

	natsURL, err := resolveNats(ctx)
	if err != nil {
		return
	}
	if natsURL != "" {
		var p *xnats.Publisher
		p, err = xnats.Connect(natsURL, cfg.Nats.Stream)
		if err != nil {
			return
		}
		p.Close()
	}

	logger.Infof("bm prepared %d pairs with %d orders each", len(symbols), fOrders)
	return
}

func seedPair(ctx context.Context, store *model.Store, symbol string, n int) (err error) {
	defer func() {
		if err != nil {
			logger.Errorf("seedPair %s failed with err:%s", symbol, err)
		} else {
			logger.Infof("seedPair %s done with %d orders", symbol, n)
		}
	}()

	pair, err := store.EnsurePair(ctx, symbol)
	if err != nil {
		return
	}
	if pair.LastPrice.IsZero() {
		pair.LastPrice = decimal.NewFromInt(1)
	}

	reserve := decimal.NewFromInt(1_000_000_000)
	pool := model.Pool{
		Symbol:         pair.Symbol,
		Kind:           model.PoolKindBasic,
		RX:             reserve.Mul(pair.LastPrice).Floor(),
		RY:             reserve,
		PoolCoinSupply: amm.InitialPoolCoinSupply(reserve.Mul(pair.LastPrice).Floor(), reserve),
	}
	pool.Status = model.PoolStatusActive
	err = store.CreatePool(ctx, &pool)
	if err != nil {
		return
	}

	lastID, err := store.MaxOrderID(ctx, symbol)
	if err != nil {
		return
	}

	prec := amm.TickPrecision(config.Shared.Matcher.TickPrecision)
	orders := make([]model.Order, 0, n)
	for i := 0; i < n; i++ {
		dir := amm.Buy
		if rand.Intn(2) == 0 {
			dir = amm.Sell
		}
		// within 5% of the last price, on the tick grid
		offset := decimal.NewFromFloat(0.95 + rand.Float64()/10)
		price := prec.RoundPrice(pair.LastPrice.Mul(offset))
		amount := decimal.NewFromInt(1 + rand.Int63n(10_000))
		orders = append(orders, model.NewOrder(lastID+uint64(i)+1, pair.CurrentBatchID,
			"bm", dir, price, amount))
	}
	return store.CreateOrders(ctx, symbol, orders)
}
