package model

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrPairNotFound = errors.New("pair not found")
	ErrStaleOrder   = errors.New("order changed outside the pass")
)

// Snapshot is what one pass reads: the pair, its live orders in
// registration order and its active pools.
type Snapshot struct {
	Pair   Pair
	Orders []Order
	Pools  []Pool
}

// PassCommit is everything one pass writes.
type PassCommit struct {
	Pass   Pass
	Orders []Order // changed orders with their new state
	Fills  []Fill
	Pools  []Pool // pools with their new reserves
}

type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// AutoMigrate creates the shared tables and the per-pair tables of symbols.
func (s *Store) AutoMigrate(symbols ...string) (err error) {
	defer func() {
		if err != nil {
			logger.Errorf("AutoMigrate failed with err:%s", err)
		} else {
			logger.Infof("AutoMigrate done with %d pairs", len(symbols))
		}
	}()

	err = s.DB.AutoMigrate(Pair{}, Pool{}, Pass{})
	if err != nil {
		return
	}
	for _, symbol := range symbols {
		err = s.DB.Scopes(OrderTable(symbol)).AutoMigrate(Order{})
		if err != nil {
			return
		}
		err = s.DB.Scopes(FillTable(symbol)).AutoMigrate(Fill{})
		if err != nil {
			return
		}
	}
	return
}

// EnsurePair returns the pair row of symbol, creating it when missing.
func (s *Store) EnsurePair(ctx context.Context, symbol string) (pair Pair, err error) {
	pair = Pair{Symbol: strings.ToUpper(symbol), CurrentBatchID: 1}
	err = s.DB.WithContext(ctx).Where("`symbol`=?", pair.Symbol).FirstOrCreate(&pair).Error
	return
}

func (s *Store) CreateOrders(ctx context.Context, symbol string, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	return s.DB.WithContext(ctx).Scopes(OrderTable(symbol)).CreateInBatches(orders, 500).Error
}

func (s *Store) CreatePool(ctx context.Context, pool *Pool) error {
	return s.DB.WithContext(ctx).Create(pool).Error
}

// RequestCancel marks an open or partially filled order for cancellation by
// the next pass.
func (s *Store) RequestCancel(ctx context.Context, symbol string, orderID uint64) (err error) {
	res := s.DB.WithContext(ctx).Scopes(OrderTable(symbol)).
		Where("`id`=? and `status` in ?", orderID, CancellableOrderStatuses).
		Update("status", OrderStatusCancelling)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %d is not open", ErrStaleOrder, orderID)
	}
	return
}

func (s *Store) LoadSnapshot(ctx context.Context, symbol string) (snap Snapshot, err error) {
	db := s.DB.WithContext(ctx)

	err = db.Where("`symbol`=?", strings.ToUpper(symbol)).First(&snap.Pair).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = fmt.Errorf("%w: %s", ErrPairNotFound, symbol)
	}
	if err != nil {
		return
	}

	err = db.Scopes(OrderTable(symbol)).
		Where("`status` in ?", LiveOrderStatuses).
		Order("id asc").Find(&snap.Orders).Error
	if err != nil {
		return
	}
	for i := range snap.Orders {
		snap.Orders[i].SnapStatus = snap.Orders[i].Status
	}

	err = db.Where("`symbol`=? and `status`=?", snap.Pair.Symbol, PoolStatusActive).
		Order("id asc").Find(&snap.Pools).Error
	return
}

// CommitPass writes a pass in one transaction. Orders are updated only while
// they still carry their SnapStatus; anything else, such as a cancel requested
// after the snapshot, fails the whole pass with ErrStaleOrder.
func (s *Store) CommitPass(ctx context.Context, symbol string, c PassCommit) (err error) {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		err = tx.Create(&c.Pass).Error
		if err != nil {
			return
		}

		for _, o := range c.Orders {
			res := tx.Scopes(OrderTable(symbol)).
				Where("`id`=? and `status`=?", o.ID, o.SnapStatus).
				Updates(map[string]interface{}{
					"open_amount":                 o.OpenAmount,
					"paid_offer_coin_amount":      o.PaidOfferCoinAmount,
					"received_demand_coin_amount": o.ReceivedDemandCoinAmount,
					"refund":                      o.Refund,
					"status":                      o.Status,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return fmt.Errorf("%w: %d is no longer in status %d", ErrStaleOrder, o.ID, o.SnapStatus)
			}
		}

		if len(c.Fills) > 0 {
			err = tx.Scopes(FillTable(symbol)).CreateInBatches(c.Fills, 500).Error
			if err != nil {
				return
			}
		}

		for _, p := range c.Pools {
			err = tx.Model(&Pool{}).Where("`id`=?", p.ID).Updates(map[string]interface{}{
				"rx":               p.RX,
				"ry":               p.RY,
				"pool_coin_supply": p.PoolCoinSupply,
			}).Error
			if err != nil {
				return
			}
		}

		updates := map[string]interface{}{
			"current_batch_id": gorm.Expr("`current_batch_id` + 1"),
			"rounds":           gorm.Expr("`rounds` + 1"),
		}
		if c.Pass.Matched {
			updates["last_price"] = c.Pass.Price
		}
		return tx.Model(&Pair{}).Where("`symbol`=?", strings.ToUpper(symbol)).Updates(updates).Error
	})
}

// PassCommitted reports whether the pass passID made it into the database.
func (s *Store) PassCommitted(ctx context.Context, passID string) (ok bool, err error) {
	var n int64
	err = s.DB.WithContext(ctx).Model(&Pass{}).Where("`pass_id`=?", passID).Count(&n).Error
	return n > 0, err
}

// MaxOrderID returns the highest order id of symbol, 0 when there is none.
func (s *Store) MaxOrderID(ctx context.Context, symbol string) (id uint64, err error) {
	err = s.DB.WithContext(ctx).Scopes(OrderTable(symbol)).
		Select("COALESCE(MAX(`id`), 0)").Scan(&id).Error
	return
}
