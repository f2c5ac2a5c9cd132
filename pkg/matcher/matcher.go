// Package matcher runs the periodic call auction of one pair.
//
// Every pass:
//  1. loads a snapshot (live orders, active pools, last price) from the store
//  2. refunds the orders whose cancellation was requested and closes dust
//     orders that can never trade
//  3. matches the remaining orders and the pools at one clearing price
//  4. applies the pool trades to the pool reserves
//  5. journals the pass, then commits it in one transaction
//  6. caches the clearing price and publishes the pass
//
// A failed step before the commit discards the pass; the next round starts
// over from a fresh snapshot.
package matcher

import (
	"context"
	"errors"
	"strings"
	"time"

	"hybrix/pkg/amm"
	"hybrix/pkg/model"
	"hybrix/pkg/xlog"
	"hybrix/pkg/xnats"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var logger = xlog.GetLogger()

var ErrInvalidSymbol = errors.New("invalid symbol")

type Store interface {
	LoadSnapshot(ctx context.Context, symbol string) (model.Snapshot, error)
	CommitPass(ctx context.Context, symbol string, c model.PassCommit) error
}

type Journal interface {
	Append(v interface{}) error
}

type PriceCache interface {
	LastPrice(ctx context.Context, symbol string) (decimal.Decimal, bool, error)
	SetLastPrice(ctx context.Context, symbol string, price decimal.Decimal) error
}

type Publisher interface {
	PublishPass(ctx context.Context, msg xnats.PassMsg) error
}

type Options struct {
	TickPrecision amm.TickPrecision
	Interval      time.Duration
	PassTimeout   time.Duration

	Store     Store
	Journal   Journal
	Cache     PriceCache // optional
	Publisher Publisher  // optional
}

// Worker matches one pair. It shares no state with the workers of other pairs.
type Worker struct {
	Name       string
	Symbol     string
	BaseAsset  string
	QuoteAsset string
	State      string

	Round int64

	opts Options
	now  func() time.Time
}

// New returns a Worker for symbol (BASE_QUOTE).
func New(symbol string, opts Options) (w *Worker, err error) {
	symbol = strings.ToUpper(symbol)
	ss := strings.Split(symbol, "_")
	if len(ss) != 2 || ss[0] == "" || ss[1] == "" {
		err = ErrInvalidSymbol
		return
	}
	if opts.Store == nil || opts.Journal == nil {
		err = errors.New("matcher: store and journal are required")
		return
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Second
	}
	if opts.PassTimeout <= 0 {
		opts.PassTimeout = 30 * time.Second
	}

	w = &Worker{
		Name:       "MATCHER_" + symbol,
		Symbol:     symbol,
		BaseAsset:  ss[0],
		QuoteAsset: ss[1],
		State:      "Init",

		opts: opts,
		now:  time.Now,
	}

	logger.Infof("%s created, tick precision:%d", w.Name, opts.TickPrecision)
	return
}

// Run runs a pass every interval until ctx is done. Failed passes are logged
// and retried on the next tick.
func (w *Worker) Run(ctx context.Context) error {
	logger.Infof("%s Run started", w.Name)
	defer func() {
		w.State = "Stopped"
		logger.Infof("%s Run finished after %d rounds", w.Name, w.Round)
	}()

	w.State = "Matching"
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		w.Round++
		round := w.Round
		logger.Debugf("%s round:%d started", w.Name, round)

		pctx, cancel := context.WithTimeout(ctx, w.opts.PassTimeout)
		msg, committed, err := w.RunOnce(pctx)
		cancel()
		switch {
		case err != nil:
			logger.Errorf("%s round:%d failed with err:%s", w.Name, round, err)
		case committed:
			logger.Infof("%s round:%d done, matched:%t, price:%s, fills:%d, cancels:%d",
				w.Name, round, msg.Matched, msg.Price, len(msg.Fills), len(msg.Cancels))
		default:
			logger.Debugf("%s round:%d done, nothing to match", w.Name, round)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce runs one pass. committed is false when the pass had nothing to
// write: no crossing and no cancellation.
func (w *Worker) RunOnce(ctx context.Context) (msg xnats.PassMsg, committed bool, err error) {
	snap, err := w.opts.Store.LoadSnapshot(ctx, w.Symbol)
	if err != nil {
		return
	}

	p, err := w.match(ctx, snap)
	if err != nil {
		return
	}
	msg = p.msg
	if !msg.Matched && len(msg.Cancels) == 0 {
		return
	}

	err = w.opts.Journal.Append(msg)
	if err != nil {
		return
	}
	err = w.opts.Store.CommitPass(ctx, w.Symbol, p.commit)
	if err != nil {
		return
	}
	committed = true

	if msg.Matched && w.opts.Cache != nil {
		if cerr := w.opts.Cache.SetLastPrice(ctx, w.Symbol, msg.Price); cerr != nil {
			logger.Warnf("%s SetLastPrice failed with err:%s", w.Name, cerr)
		}
	}
	if w.opts.Publisher != nil {
		// the journal app republishes what is missed here
		if perr := w.opts.Publisher.PublishPass(ctx, msg); perr != nil {
			logger.Warnf("%s PublishPass %s failed with err:%s", w.Name, msg.ID, perr)
		}
	}
	return
}

// lastPrice prefers the cache and falls back to the stored pair.
func (w *Worker) lastPrice(ctx context.Context, pair model.Pair) decimal.Decimal {
	if w.opts.Cache == nil {
		return pair.LastPrice
	}
	price, found, err := w.opts.Cache.LastPrice(ctx, w.Symbol)
	if err != nil {
		logger.Warnf("%s LastPrice from cache failed with err:%s", w.Name, err)
		return pair.LastPrice
	}
	if !found || price.Sign() <= 0 {
		return pair.LastPrice
	}
	return price
}

type pass struct {
	msg    xnats.PassMsg
	commit model.PassCommit
}

func (p *pass) cancel(o *model.Order, refund decimal.Decimal) {
	o.Refund = refund
	o.Status = model.OrderStatusCancelled
	p.commit.Orders = append(p.commit.Orders, *o)
	p.msg.Cancels = append(p.msg.Cancels, xnats.CancelMsg{OrderID: o.ID, Refund: refund})
}

func (w *Worker) match(ctx context.Context, snap model.Snapshot) (p pass, err error) {
	now := w.now()
	p.msg = xnats.PassMsg{
		ID:     uuid.NewString(),
		Symbol: w.Symbol,
		Round:  w.Round,
		Time:   now.UnixNano(),
	}

	ob := amm.NewOrderbook(w.opts.TickPrecision)

	stored := make(map[uint64]*model.Order, len(snap.Orders))
	engine := make(map[uint64]*amm.Order, len(snap.Orders))
	var cancelling, dust []*model.Order
	for i := range snap.Orders {
		o := &snap.Orders[i]
		ao := o.ToAmm()
		stored[o.ID] = o
		engine[o.ID] = ao
		switch {
		case o.Status == model.OrderStatusCancelling:
			cancelling = append(cancelling, o)
		case amm.MatchableAmount(ao, ao.Price).IsZero():
			// the book would skip it on every pass
			dust = append(dust, o)
			continue
		}
		ob.AddOrders(ao)
	}

	for _, o := range cancelling {
		var refund decimal.Decimal
		refund, err = ob.CancelOrder(o.ID)
		if errors.Is(err, amm.ErrOrderNotFound) {
			// never entered the book, nothing of it can have traded
			refund, err = engine[o.ID].Refund(), nil
		}
		if err != nil {
			return
		}
		p.cancel(o, refund)
	}
	for _, o := range dust {
		logger.Debugf("%s closes dust order %s", w.Name, engine[o.ID])
		p.cancel(o, engine[o.ID].Refund())
	}

	pools := snap.Pools
	for i := range pools {
		var c amm.Curve
		c, err = pools[i].Curve()
		if err != nil {
			return
		}
		ob.AddCurves(c)
	}

	res, err := ob.Match(w.lastPrice(ctx, snap.Pair))
	if err != nil {
		return
	}

	p.msg.Matched = res.Matched
	if res.Matched {
		p.msg.Price = res.Price
		p.msg.QuoteCoinDiff = res.QuoteCoinDiff
	}

	for _, ao := range res.Orders {
		o := stored[ao.ID]
		paid := ao.PaidOfferCoinAmount.Sub(o.PaidOfferCoinAmount)
		received := ao.ReceivedDemandCoinAmount.Sub(o.ReceivedDemandCoinAmount)
		o.SetFromAmm(ao)
		p.commit.Orders = append(p.commit.Orders, *o)
		p.commit.Fills = append(p.commit.Fills, model.Fill{
			PassID:    p.msg.ID,
			OrderID:   o.ID,
			Orderer:   o.Orderer,
			Direction: o.Direction,
			Price:     res.Price,
			Paid:      paid,
			Received:  received,
			Time:      p.msg.Time,
		})
		p.msg.Fills = append(p.msg.Fills, xnats.FillMsg{
			OrderID:    o.ID,
			Orderer:    o.Orderer,
			Direction:  ao.Direction.String(),
			OpenAmount: ao.OpenAmount,
			Paid:       paid,
			Received:   received,
		})
	}

	for _, trade := range res.CurveTrades {
		_, _, err = amm.ApplyTrade(trade.Curve, trade.BaseDelta, trade.QuoteDelta)
		if err != nil {
			return
		}
		pool := &pools[trade.Index]
		pool.SetFromCurve(trade.Curve)
		p.commit.Pools = append(p.commit.Pools, *pool)

		fill := model.Fill{
			PassID: p.msg.ID,
			PoolID: pool.ID,
			Price:  res.Price,
			Time:   p.msg.Time,
		}
		if trade.BaseDelta.Sign() > 0 {
			// the pool bought base
			fill.Direction = model.OrderDirectionBuy
			fill.Paid, fill.Received = trade.QuoteDelta.Neg(), trade.BaseDelta
		} else {
			fill.Direction = model.OrderDirectionSell
			fill.Paid, fill.Received = trade.BaseDelta.Neg(), trade.QuoteDelta
		}
		p.commit.Fills = append(p.commit.Fills, fill)
		p.msg.CurveTrades = append(p.msg.CurveTrades, xnats.CurveTradeMsg{
			PoolID:     pool.ID,
			BaseDelta:  trade.BaseDelta,
			QuoteDelta: trade.QuoteDelta,
			Price:      trade.Curve.Price(),
		})
	}

	p.commit.Pass = model.Pass{
		PassID:        p.msg.ID,
		Symbol:        w.Symbol,
		Round:         w.Round,
		BatchID:       snap.Pair.CurrentBatchID,
		Matched:       p.msg.Matched,
		Price:         p.msg.Price,
		QuoteCoinDiff: p.msg.QuoteCoinDiff,
		Fills:         len(p.msg.Fills),
		Cancels:       len(p.msg.Cancels),
		Time:          p.msg.Time,
	}
	return
}
