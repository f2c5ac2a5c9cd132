package amm

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	_ Curve = (*BasicPool)(nil)
	_ Curve = (*RangedPool)(nil)
)

// Curve is a liquidity curve quoting volume at a price. BasicPool and
// RangedPool are the only implementations.
type Curve interface {
	Balances() (rx, ry decimal.Decimal)
	SetBalances(rx, ry decimal.Decimal, derive bool)
	PoolCoinSupply() decimal.Decimal
	Price() decimal.Decimal
	IsDepleted() bool

	HighestBuyPrice() (decimal.Decimal, bool)
	LowestSellPrice() (decimal.Decimal, bool)
	BuyAmountOver(price decimal.Decimal) decimal.Decimal
	SellAmountUnder(price decimal.Decimal) decimal.Decimal
	BuyAmountTo(price decimal.Decimal) decimal.Decimal
	SellAmountTo(price decimal.Decimal) decimal.Decimal

	Clone() Curve

	curve()
}

// QuoteKind selects one of the four quote functions of a Curve.
type QuoteKind int8

const (
	QuoteBuyOver QuoteKind = iota + 1
	QuoteSellUnder
	QuoteBuyTo
	QuoteSellTo
)

func (kind QuoteKind) String() string {
	switch kind {
	case QuoteBuyOver:
		return "over"
	case QuoteSellUnder:
		return "under"
	case QuoteBuyTo:
		return "to_buy"
	case QuoteSellTo:
		return "to_sell"
	default:
		return fmt.Sprintf("QuoteKind(%d)", int8(kind))
	}
}

// ParseQuoteKind is the inverse of QuoteKind.String.
func ParseQuoteKind(s string) (QuoteKind, error) {
	for _, kind := range []QuoteKind{QuoteBuyOver, QuoteSellUnder, QuoteBuyTo, QuoteSellTo} {
		if kind.String() == s {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("unknown quote kind %q", s)
}

// Quote returns the amount the curve trades at price for the given kind.
func Quote(c Curve, kind QuoteKind, price decimal.Decimal) decimal.Decimal {
	switch kind {
	case QuoteBuyOver:
		return c.BuyAmountOver(price)
	case QuoteSellUnder:
		return c.SellAmountUnder(price)
	case QuoteBuyTo:
		return c.BuyAmountTo(price)
	case QuoteSellTo:
		return c.SellAmountTo(price)
	}
	return decimal.Zero
}

// ApplyTrade moves the curve's real reserves by the signed deltas and derives
// the translation again. The curve is left untouched on error.
func ApplyTrade(c Curve, baseDelta, quoteDelta decimal.Decimal) (rx, ry decimal.Decimal, err error) {
	rx, ry = c.Balances()
	rx = rx.Add(quoteDelta)
	ry = ry.Add(baseDelta)
	if rx.IsNegative() || ry.IsNegative() {
		err = fmt.Errorf("%w: reserves would become (%s, %s)", ErrInsufficientReserve, rx, ry)
		rx, ry = c.Balances()
		return
	}
	c.SetBalances(rx, ry, true)
	return
}

// InitialPoolCoinSupply returns 10^ceil((digits(x)+digits(y))/2).
func InitialPoolCoinSupply(x, y decimal.Decimal) decimal.Decimal {
	c := (numDigits(x) + numDigits(y) + 1) / 2
	return pow10(c)
}

// capAmount floors amt and caps it at MaxCoinAmount.
func capAmount(amt decimal.Decimal) decimal.Decimal {
	amt = amt.Floor()
	if amt.GreaterThan(MaxCoinAmount) {
		return MaxCoinAmount
	}
	return amt
}

// BasicPool is a constant-product pool. rx is the quote reserve, ry the base reserve.
type BasicPool struct {
	rx, ry decimal.Decimal
	ps     decimal.Decimal
}

// NewBasicPool returns a BasicPool over stored reserves without validating them.
func NewBasicPool(rx, ry, ps decimal.Decimal) *BasicPool {
	return &BasicPool{rx: rx, ry: ry, ps: ps}
}

// CreateBasicPool validates reserves and returns a pool with the initial pool coin supply.
func CreateBasicPool(rx, ry decimal.Decimal) (*BasicPool, error) {
	if rx.Sign() <= 0 || ry.Sign() <= 0 {
		return nil, ErrZeroReserve
	}
	p := quo(rx, ry)
	if p.LessThan(MinPoolPrice) {
		return nil, ErrPoolPriceTooLow
	}
	if p.GreaterThan(MaxPoolPrice) {
		return nil, ErrPoolPriceTooHigh
	}
	return NewBasicPool(rx, ry, InitialPoolCoinSupply(rx, ry)), nil
}

func (pool *BasicPool) curve() {}

func (pool *BasicPool) Balances() (rx, ry decimal.Decimal) {
	return pool.rx, pool.ry
}

func (pool *BasicPool) SetBalances(rx, ry decimal.Decimal, _ bool) {
	pool.rx = rx
	pool.ry = ry
}

func (pool *BasicPool) PoolCoinSupply() decimal.Decimal {
	return pool.ps
}

// Price returns rx/ry, or zero when either reserve is empty.
func (pool *BasicPool) Price() decimal.Decimal {
	if pool.rx.Sign() <= 0 || pool.ry.Sign() <= 0 {
		return decimal.Zero
	}
	return quo(pool.rx, pool.ry)
}

func (pool *BasicPool) IsDepleted() bool {
	return pool.ps.Sign() <= 0 || pool.rx.Sign() <= 0 || pool.ry.Sign() <= 0
}

func (pool *BasicPool) HighestBuyPrice() (decimal.Decimal, bool) {
	if pool.IsDepleted() {
		return decimal.Zero, false
	}
	return pool.Price(), true
}

func (pool *BasicPool) LowestSellPrice() (decimal.Decimal, bool) {
	return pool.HighestBuyPrice()
}

// BuyAmountOver returns (rx - P*ry)/P, the base amount the pool buys at or above price.
func (pool *BasicPool) BuyAmountOver(price decimal.Decimal) decimal.Decimal {
	if pool.IsDepleted() {
		return decimal.Zero
	}
	origPrice := price
	if price.LessThan(MinPoolPrice) {
		price = MinPoolPrice
	}
	if price.GreaterThanOrEqual(pool.Price()) {
		return decimal.Zero
	}
	dx := pool.rx.Sub(price.Mul(pool.ry))
	if dx.Sign() <= 0 {
		return decimal.Zero
	}
	if origPrice.Sign() <= 0 {
		return MaxCoinAmount
	}
	return capAmount(quoTruncate(dx, origPrice))
}

// SellAmountUnder returns ry - rx/P, the base amount the pool sells at or below price.
func (pool *BasicPool) SellAmountUnder(price decimal.Decimal) decimal.Decimal {
	if pool.IsDepleted() {
		return decimal.Zero
	}
	if price.GreaterThan(MaxPoolPrice) {
		price = MaxPoolPrice
	}
	if price.LessThanOrEqual(pool.Price()) {
		return decimal.Zero
	}
	amt := pool.ry.Sub(quoRoundUp(pool.rx, price)).Ceil()
	if amt.Sign() <= 0 {
		return decimal.Zero
	}
	return amt
}

// BuyAmountTo returns the base amount that moves the pool price down to price.
func (pool *BasicPool) BuyAmountTo(price decimal.Decimal) decimal.Decimal {
	if pool.IsDepleted() {
		return decimal.Zero
	}
	origPrice := price
	if price.LessThan(MinPoolPrice) {
		price = MinPoolPrice
	}
	if price.GreaterThanOrEqual(pool.Price()) {
		return decimal.Zero
	}
	// dx = rx - sqrt(P * rx * ry)
	dx := pool.rx.Sub(sqrt(price).Mul(sqrt(pool.rx).Mul(sqrt(pool.ry))))
	if dx.Sign() <= 0 {
		return decimal.Zero
	}
	if origPrice.Sign() <= 0 {
		return MaxCoinAmount
	}
	return capAmount(quoTruncate(dx, origPrice))
}

// SellAmountTo returns the base amount that moves the pool price up to price.
func (pool *BasicPool) SellAmountTo(price decimal.Decimal) decimal.Decimal {
	if pool.IsDepleted() {
		return decimal.Zero
	}
	if price.GreaterThan(MaxPoolPrice) {
		price = MaxPoolPrice
	}
	if price.LessThanOrEqual(pool.Price()) {
		return decimal.Zero
	}
	// dy = ry - sqrt(rx * ry / P)
	amt := pool.ry.Sub(quoRoundUp(sqrt(pool.rx).Mul(sqrt(pool.ry)), sqrt(price))).Floor()
	if amt.Sign() <= 0 {
		return decimal.Zero
	}
	return amt
}

func (pool *BasicPool) Clone() Curve {
	return NewBasicPool(pool.rx, pool.ry, pool.ps)
}

// RangedPool is a constant-product pool over reserves translated by a virtual
// amount so that it only quotes within [minPrice, maxPrice].
type RangedPool struct {
	rx, ry             decimal.Decimal
	ps                 decimal.Decimal
	minPrice, maxPrice decimal.Decimal
	transX, transY     decimal.Decimal
	xComp, yComp       decimal.Decimal
}

// NewRangedPool returns a RangedPool over stored reserves, deriving the translation.
func NewRangedPool(rx, ry, ps, minPrice, maxPrice decimal.Decimal) *RangedPool {
	pool := &RangedPool{ps: ps, minPrice: minPrice, maxPrice: maxPrice}
	pool.SetBalances(rx, ry, true)
	return pool
}

// CreateRangedPool validates the parameters and returns a pool holding only the
// part of x and y needed at initialPrice. The caller refunds the rest.
func CreateRangedPool(x, y, minPrice, maxPrice, initialPrice decimal.Decimal) (*RangedPool, error) {
	if x.Sign() <= 0 && y.Sign() <= 0 {
		return nil, fmt.Errorf("%w: either x or y must be positive", ErrInvalidConstruction)
	}
	if err := ValidateRangedPoolParams(minPrice, maxPrice, initialPrice); err != nil {
		return nil, err
	}

	var ax, ay decimal.Decimal
	switch {
	case initialPrice.Equal(minPrice):
		ax, ay = decimal.Zero, y
	case initialPrice.Equal(maxPrice):
		ax, ay = x, decimal.Zero
	default:
		sqrtP, sqrtM, sqrtL := sqrt(initialPrice), sqrt(minPrice), sqrt(maxPrice)
		// ay = x / (sqrt(P)-sqrt(M)) * (1/sqrt(P) - 1/sqrt(L))
		ax = x
		ay = quo(x, sqrtP.Sub(sqrtM)).Mul(inv(sqrtP).Sub(inv(sqrtL))).Ceil()
		if ay.GreaterThan(y) {
			// ax = y / (1/sqrt(P) - 1/sqrt(L)) * (sqrt(P)-sqrt(M))
			ax = quo(y, inv(sqrtP).Sub(inv(sqrtL))).Mul(sqrtP.Sub(sqrtM)).Ceil()
			ay = y
		}
	}
	return NewRangedPool(ax, ay, InitialPoolCoinSupply(ax, ay), minPrice, maxPrice), nil
}

// ValidateRangedPoolParams checks the band and the initial price of a ranged pool.
func ValidateRangedPoolParams(minPrice, maxPrice, initialPrice decimal.Decimal) error {
	switch {
	case initialPrice.Sign() <= 0:
		return fmt.Errorf("%w: initial price must be positive: %s", ErrInvalidConstruction, initialPrice)
	case minPrice.LessThan(MinPoolPrice):
		return fmt.Errorf("%w: min price must not be lower than %s", ErrInvalidConstruction, MinPoolPrice)
	case maxPrice.Sign() <= 0:
		return fmt.Errorf("%w: max price must be positive: %s", ErrInvalidConstruction, maxPrice)
	case maxPrice.GreaterThan(MaxPoolPrice):
		return fmt.Errorf("%w: max price must not be higher than %s", ErrInvalidConstruction, MaxPoolPrice)
	case !maxPrice.GreaterThan(minPrice):
		return fmt.Errorf("%w: max price must be higher than min price", ErrInvalidConstruction)
	case quo(maxPrice.Sub(minPrice), minPrice).LessThan(MinRangedPoolPriceGapRatio):
		return fmt.Errorf("%w: min price and max price are too close", ErrInvalidConstruction)
	case initialPrice.LessThan(minPrice):
		return fmt.Errorf("%w: initial price must not be lower than min price", ErrInvalidConstruction)
	case initialPrice.GreaterThan(maxPrice):
		return fmt.Errorf("%w: initial price must not be higher than max price", ErrInvalidConstruction)
	}
	return nil
}

// DeriveTranslation returns the virtual reserves that place a pool holding
// (rx, ry) on the constant-product curve bounded by [minPrice, maxPrice].
func DeriveTranslation(rx, ry, minPrice, maxPrice decimal.Decimal) (transX, transY decimal.Decimal) {
	sqrtM := sqrt(minPrice)
	sqrtL := sqrt(maxPrice)

	var sqrtP decimal.Decimal
	switch {
	case rx.IsZero():
		sqrtP = sqrtM
	case ry.IsZero():
		sqrtP = sqrtL
	case quo(rx, ry).IsZero():
		sqrtP = sqrtM
	case quo(ry, rx).IsZero():
		sqrtP = sqrtL
	default:
		sqrtXOverY := sqrt(quo(rx, ry))
		// alpha = sqrt(M)/sqrt(rx/ry) - sqrt(rx/ry)/sqrt(L)
		alpha := quo(sqrtM, sqrtXOverY).Sub(quo(sqrtXOverY, sqrtL))
		// sqrt(P) = (alpha + sqrt(alpha^2 + 4)) / 2 * sqrt(rx/ry)
		sqrtP = quo(alpha.Add(sqrt(alpha.Mul(alpha).Add(four))), two).Mul(sqrtXOverY).Round(Precision)
	}

	var sqrtK decimal.Decimal
	found := false
	if !sqrtP.Equal(sqrtM) {
		// sqrt(K) = rx / (sqrt(P) - sqrt(M))
		sqrtK = quo(rx, sqrtP.Sub(sqrtM))
		found = true
	}
	if !sqrtP.Equal(sqrtL) {
		// sqrt(K') = ry / (1/sqrt(P) - 1/sqrt(L))
		sqrtK2 := quo(ry, inv(sqrtP).Sub(inv(sqrtL)))
		if !found {
			sqrtK = sqrtK2
		} else {
			p := sqrtP.Mul(sqrtP)
			p1 := quo(rx.Add(sqrtK.Mul(sqrtM)), ry.Add(quo(sqrtK, sqrtL)))
			p2 := quo(rx.Add(sqrtK2.Mul(sqrtM)), ry.Add(quo(sqrtK2, sqrtL)))
			if p.Sub(p1).Abs().GreaterThan(p.Sub(p2).Abs()) {
				sqrtK = sqrtK2
			}
		}
	}
	transX = sqrtK.Mul(sqrtM).Round(Precision)
	transY = quo(sqrtK, sqrtL)
	return
}

func (pool *RangedPool) curve() {}

func (pool *RangedPool) Balances() (rx, ry decimal.Decimal) {
	return pool.rx, pool.ry
}

// SetBalances replaces the real reserves. With derive set the translation is
// recomputed from them, otherwise the cached one is kept.
func (pool *RangedPool) SetBalances(rx, ry decimal.Decimal, derive bool) {
	if derive {
		pool.transX, pool.transY = DeriveTranslation(rx, ry, pool.minPrice, pool.maxPrice)
	}
	pool.rx = rx
	pool.ry = ry
	pool.xComp = rx.Add(pool.transX)
	pool.yComp = ry.Add(pool.transY)
}

func (pool *RangedPool) PoolCoinSupply() decimal.Decimal {
	return pool.ps
}

func (pool *RangedPool) Translation() (transX, transY decimal.Decimal) {
	return pool.transX, pool.transY
}

func (pool *RangedPool) MinPrice() decimal.Decimal {
	return pool.minPrice
}

func (pool *RangedPool) MaxPrice() decimal.Decimal {
	return pool.maxPrice
}

// Price returns (rx+transX)/(ry+transY), or zero for a pool with no reserves.
func (pool *RangedPool) Price() decimal.Decimal {
	if pool.yComp.Sign() <= 0 || (pool.rx.IsZero() && pool.ry.IsZero()) {
		return decimal.Zero
	}
	return quo(pool.xComp, pool.yComp)
}

func (pool *RangedPool) IsDepleted() bool {
	return pool.ps.Sign() <= 0 || (pool.rx.IsZero() && pool.ry.IsZero())
}

func (pool *RangedPool) HighestBuyPrice() (decimal.Decimal, bool) {
	if pool.IsDepleted() {
		return decimal.Zero, false
	}
	return pool.Price(), true
}

func (pool *RangedPool) LowestSellPrice() (decimal.Decimal, bool) {
	return pool.HighestBuyPrice()
}

func (pool *RangedPool) BuyAmountOver(price decimal.Decimal) decimal.Decimal {
	if pool.IsDepleted() {
		return decimal.Zero
	}
	origPrice := price
	if price.LessThan(pool.minPrice) {
		price = pool.minPrice
	}
	if price.GreaterThanOrEqual(pool.Price()) {
		return decimal.Zero
	}
	// dx = (rx + transX) - P * (ry + transY)
	dx := pool.xComp.Sub(price.Mul(pool.yComp))
	if dx.Sign() <= 0 {
		return decimal.Zero
	}
	dx = decimal.Min(dx, pool.rx)
	if origPrice.Sign() <= 0 {
		return MaxCoinAmount
	}
	return capAmount(quoTruncate(dx, origPrice))
}

func (pool *RangedPool) SellAmountUnder(price decimal.Decimal) decimal.Decimal {
	if pool.IsDepleted() {
		return decimal.Zero
	}
	if price.GreaterThan(pool.maxPrice) {
		price = pool.maxPrice
	}
	if price.LessThanOrEqual(pool.Price()) {
		return decimal.Zero
	}
	// dy = (ry + transY) - (rx + transX) / P
	amt := pool.yComp.Sub(quoRoundUp(pool.xComp, price)).Ceil()
	amt = decimal.Min(amt, pool.ry)
	if amt.Sign() <= 0 {
		return decimal.Zero
	}
	return amt
}

func (pool *RangedPool) BuyAmountTo(price decimal.Decimal) decimal.Decimal {
	if pool.IsDepleted() {
		return decimal.Zero
	}
	origPrice := price
	if price.LessThan(pool.minPrice) {
		price = pool.minPrice
	}
	if price.GreaterThanOrEqual(pool.Price()) {
		return decimal.Zero
	}
	// dx = rx - (sqrt(P * (rx + transX) * (ry + transY)) - transX)
	k := sqrt(price).Mul(sqrt(pool.xComp).Mul(sqrt(pool.yComp)))
	dx := pool.rx.Sub(k.Sub(pool.transX))
	if dx.Sign() <= 0 {
		return decimal.Zero
	}
	dx = decimal.Min(dx, pool.rx)
	if origPrice.Sign() <= 0 {
		return MaxCoinAmount
	}
	return capAmount(quoTruncate(dx, origPrice))
}

func (pool *RangedPool) SellAmountTo(price decimal.Decimal) decimal.Decimal {
	if pool.IsDepleted() {
		return decimal.Zero
	}
	if price.GreaterThan(pool.maxPrice) {
		price = pool.maxPrice
	}
	if price.LessThanOrEqual(pool.Price()) {
		return decimal.Zero
	}
	// dy = ry - (sqrt((rx + transX) * (ry + transY) / P) - transY)
	k := quoRoundUp(sqrt(pool.xComp).Mul(sqrt(pool.yComp)), sqrt(price))
	amt := pool.ry.Sub(k.Sub(pool.transY)).Floor()
	amt = decimal.Min(amt, pool.ry)
	if amt.Sign() <= 0 {
		return decimal.Zero
	}
	return amt
}

func (pool *RangedPool) Clone() Curve {
	return &RangedPool{
		rx:       pool.rx,
		ry:       pool.ry,
		ps:       pool.ps,
		minPrice: pool.minPrice,
		maxPrice: pool.maxPrice,
		transX:   pool.transX,
		transY:   pool.transY,
		xComp:    pool.xComp,
		yComp:    pool.yComp,
	}
}
