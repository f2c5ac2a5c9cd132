package matcher_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hybrix/pkg/amm"
	"hybrix/pkg/matcher"
	"hybrix/pkg/model"
	"hybrix/pkg/xnats"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var dec = decimal.RequireFromString

type fakeStore struct {
	mu        sync.Mutex
	snap      model.Snapshot
	commits   []model.PassCommit
	loads     int
	commitErr error
}

func (s *fakeStore) LoadSnapshot(_ context.Context, _ string) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	// hand out copies, as a database would
	snap := s.snap
	snap.Orders = append([]model.Order(nil), s.snap.Orders...)
	for i := range snap.Orders {
		snap.Orders[i].SnapStatus = snap.Orders[i].Status
	}
	snap.Pools = append([]model.Pool(nil), s.snap.Pools...)
	return snap, nil
}

func (s *fakeStore) CommitPass(_ context.Context, _ string, c model.PassCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	s.commits = append(s.commits, c)
	return nil
}

func (s *fakeStore) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loads
}

type fakeJournal struct {
	lines []interface{}
}

func (j *fakeJournal) Append(v interface{}) error {
	j.lines = append(j.lines, v)
	return nil
}

type fakeCache struct {
	price decimal.Decimal
	found bool
	err   error
	set   []decimal.Decimal
}

func (c *fakeCache) LastPrice(context.Context, string) (decimal.Decimal, bool, error) {
	return c.price, c.found, c.err
}

func (c *fakeCache) SetLastPrice(_ context.Context, _ string, price decimal.Decimal) error {
	c.set = append(c.set, price)
	return nil
}

type fakePublisher struct {
	msgs []xnats.PassMsg
	err  error
}

func (p *fakePublisher) PublishPass(_ context.Context, msg xnats.PassMsg) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

type env struct {
	store     *fakeStore
	journal   *fakeJournal
	cache     *fakeCache
	publisher *fakePublisher
	worker    *matcher.Worker
}

func newEnv(t *testing.T, orders []model.Order, pools []model.Pool) *env {
	t.Helper()
	e := &env{
		store: &fakeStore{snap: model.Snapshot{
			Pair:   model.Pair{ID: 1, Symbol: "BTC_USDT", LastPrice: dec("1"), CurrentBatchID: 4},
			Orders: orders,
			Pools:  pools,
		}},
		journal:   &fakeJournal{},
		cache:     &fakeCache{},
		publisher: &fakePublisher{},
	}
	w, err := matcher.New("btc_usdt", matcher.Options{
		TickPrecision: 3,
		Interval:      10 * time.Millisecond,
		Store:         e.store,
		Journal:       e.journal,
		Cache:         e.cache,
		Publisher:     e.publisher,
	})
	require.Nil(t, err)
	e.worker = w
	return e
}

func basicPool(id uint64, rx, ry string) model.Pool {
	p := model.Pool{ID: id, Symbol: "BTC_USDT", Kind: model.PoolKindBasic, RX: dec(rx), RY: dec(ry), PoolCoinSupply: dec("1000000")}
	p.Status = model.PoolStatusActive
	return p
}

func TestNew(t *testing.T) {
	opts := matcher.Options{Store: &fakeStore{}, Journal: &fakeJournal{}}
	for _, symbol := range []string{"", "BTC", "BTC_", "_USDT", "A_B_C"} {
		_, err := matcher.New(symbol, opts)
		require.Equal(t, matcher.ErrInvalidSymbol, err, symbol)
	}

	_, err := matcher.New("BTC_USDT", matcher.Options{})
	require.NotNil(t, err)

	w, err := matcher.New("eth_btc", opts)
	require.Nil(t, err)
	require.Equal(t, "MATCHER_ETH_BTC", w.Name)
	require.Equal(t, "ETH", w.BaseAsset)
	require.Equal(t, "BTC", w.QuoteAsset)
}

func TestRunOnceWithPool(t *testing.T) {
	buy := model.NewOrder(1, 3, "alice", amm.Buy, dec("1.1"), dec("10000"))
	e := newEnv(t, []model.Order{buy}, []model.Pool{basicPool(9, "1000000", "1000000")})

	msg, committed, err := e.worker.RunOnce(context.Background())
	require.Nil(t, err)
	require.True(t, committed)
	require.True(t, msg.Matched)
	require.True(t, dec("1.021").Equal(msg.Price), msg.Price.String())
	require.True(t, msg.QuoteCoinDiff.IsZero())

	require.Len(t, msg.Fills, 1)
	require.Equal(t, uint64(1), msg.Fills[0].OrderID)
	require.Equal(t, "Buy", msg.Fills[0].Direction)
	require.True(t, dec("10210").Equal(msg.Fills[0].Paid))
	require.True(t, dec("10000").Equal(msg.Fills[0].Received))

	require.Len(t, msg.CurveTrades, 1)
	require.Equal(t, uint64(9), msg.CurveTrades[0].PoolID)
	require.True(t, dec("-10000").Equal(msg.CurveTrades[0].BaseDelta))
	require.True(t, dec("10210").Equal(msg.CurveTrades[0].QuoteDelta))
	require.True(t, dec("1.020414141414141414").Equal(msg.CurveTrades[0].Price))

	require.Len(t, e.store.commits, 1)
	c := e.store.commits[0]
	require.Equal(t, msg.ID, c.Pass.PassID)
	require.Equal(t, uint64(4), c.Pass.BatchID)
	require.Len(t, c.Orders, 1)
	require.Equal(t, model.OrderStatusFilled, c.Orders[0].Status)
	require.True(t, c.Orders[0].Refund.IsZero())
	require.Len(t, c.Pools, 1)
	require.True(t, dec("1010210").Equal(c.Pools[0].RX))
	require.True(t, dec("990000").Equal(c.Pools[0].RY))

	require.Len(t, c.Fills, 2)
	poolFill := c.Fills[1]
	require.Equal(t, uint64(9), poolFill.PoolID)
	require.Equal(t, model.OrderDirectionSell, poolFill.Direction)
	require.True(t, dec("10000").Equal(poolFill.Paid))
	require.True(t, dec("10210").Equal(poolFill.Received))

	require.Equal(t, []interface{}{msg}, e.journal.lines)
	require.Len(t, e.cache.set, 1)
	require.True(t, dec("1.021").Equal(e.cache.set[0]))
	require.Equal(t, []xnats.PassMsg{msg}, e.publisher.msgs)
}

func TestRunOnceNothingToMatch(t *testing.T) {
	e := newEnv(t, []model.Order{
		model.NewOrder(1, 1, "alice", amm.Buy, dec("0.9"), dec("100")),
		model.NewOrder(2, 1, "bob", amm.Sell, dec("1.1"), dec("100")),
	}, nil)

	msg, committed, err := e.worker.RunOnce(context.Background())
	require.Nil(t, err)
	require.False(t, committed)
	require.False(t, msg.Matched)
	require.Empty(t, e.store.commits)
	require.Empty(t, e.journal.lines)
	require.Empty(t, e.publisher.msgs)
}

func TestRunOnceCancel(t *testing.T) {
	cancelled := model.NewOrder(1, 1, "alice", amm.Buy, dec("1.5"), dec("100"))
	cancelled.Status = model.OrderStatusCancelling
	e := newEnv(t, []model.Order{
		cancelled,
		model.NewOrder(2, 1, "bob", amm.Sell, dec("1.4"), dec("100")),
	}, nil)

	msg, committed, err := e.worker.RunOnce(context.Background())
	require.Nil(t, err)
	require.True(t, committed)
	require.False(t, msg.Matched)
	require.Equal(t, []xnats.CancelMsg{{OrderID: 1, Refund: dec("150")}}, msg.Cancels)

	c := e.store.commits[0]
	require.Len(t, c.Orders, 1)
	require.Equal(t, model.OrderStatusCancelled, c.Orders[0].Status)
	require.Equal(t, model.OrderStatusCancelling, c.Orders[0].SnapStatus)
	require.True(t, dec("150").Equal(c.Orders[0].Refund))
	require.Equal(t, 1, c.Pass.Cancels)
	require.Empty(t, e.cache.set)
}

func TestRunOnceDust(t *testing.T) {
	// 0.5 quote for one base floors to zero
	dust := model.NewOrder(1, 1, "alice", amm.Sell, dec("0.5"), dec("1"))
	e := newEnv(t, []model.Order{
		dust,
		model.NewOrder(2, 1, "bob", amm.Buy, dec("0.4"), dec("100")),
	}, nil)

	msg, committed, err := e.worker.RunOnce(context.Background())
	require.Nil(t, err)
	require.True(t, committed)
	require.False(t, msg.Matched)
	require.Equal(t, []xnats.CancelMsg{{OrderID: 1, Refund: dec("1")}}, msg.Cancels)

	c := e.store.commits[0]
	require.Len(t, c.Orders, 1)
	require.Equal(t, uint64(1), c.Orders[0].ID)
	require.Equal(t, model.OrderStatusCancelled, c.Orders[0].Status)
	require.Equal(t, model.OrderStatusOpen, c.Orders[0].SnapStatus)
	require.True(t, dec("1").Equal(c.Orders[0].Refund))
}

func TestRunOncePartialFill(t *testing.T) {
	e := newEnv(t, []model.Order{
		model.NewOrder(1, 1, "alice", amm.Buy, dec("1.0"), dec("200")),
		model.NewOrder(2, 1, "bob", amm.Sell, dec("1.0"), dec("100")),
	}, nil)

	msg, committed, err := e.worker.RunOnce(context.Background())
	require.Nil(t, err)
	require.True(t, committed)
	require.True(t, msg.Matched)

	status := map[uint64]int8{}
	for _, o := range e.store.commits[0].Orders {
		status[o.ID] = o.Status
	}
	require.Equal(t, map[uint64]int8{
		1: model.OrderStatusPartiallyFilled,
		2: model.OrderStatusFilled,
	}, status)
}

func TestRunOnceLastPrice(t *testing.T) {
	orders := func() []model.Order {
		return []model.Order{
			model.NewOrder(1, 1, "alice", amm.Buy, dec("1.2"), dec("10000")),
			model.NewOrder(2, 1, "bob", amm.Sell, dec("1.1"), dec("10000")),
		}
	}

	e := newEnv(t, orders(), nil)
	e.cache.price, e.cache.found = dec("1.15"), true
	msg, _, err := e.worker.RunOnce(context.Background())
	require.Nil(t, err)
	require.True(t, dec("1.15").Equal(msg.Price))

	// a broken cache falls back to the stored last price
	e = newEnv(t, orders(), nil)
	e.cache.err = errors.New("redis down")
	msg, _, err = e.worker.RunOnce(context.Background())
	require.Nil(t, err)
	require.True(t, dec("1.1").Equal(msg.Price))
}

func TestRunOnceCommitFailure(t *testing.T) {
	e := newEnv(t, []model.Order{
		model.NewOrder(1, 1, "alice", amm.Buy, dec("1.0"), dec("100")),
		model.NewOrder(2, 1, "bob", amm.Sell, dec("1.0"), dec("100")),
	}, nil)
	e.store.commitErr = model.ErrStaleOrder

	_, committed, err := e.worker.RunOnce(context.Background())
	require.True(t, errors.Is(err, model.ErrStaleOrder))
	require.False(t, committed)
	require.Len(t, e.journal.lines, 1)
	require.Empty(t, e.cache.set)
	require.Empty(t, e.publisher.msgs)
}

func TestRunOncePublishFailure(t *testing.T) {
	e := newEnv(t, []model.Order{
		model.NewOrder(1, 1, "alice", amm.Buy, dec("1.0"), dec("100")),
		model.NewOrder(2, 1, "bob", amm.Sell, dec("1.0"), dec("100")),
	}, nil)
	e.publisher.err = errors.New("nats down")

	_, committed, err := e.worker.RunOnce(context.Background())
	require.Nil(t, err)
	require.True(t, committed)
	require.Len(t, e.store.commits, 1)
}

func TestRun(t *testing.T) {
	e := newEnv(t, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.worker.Run(ctx) }()

	require.Eventually(t, func() bool { return e.store.Loads() >= 3 }, 5*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.Nil(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	require.Equal(t, "Stopped", e.worker.State)
}
