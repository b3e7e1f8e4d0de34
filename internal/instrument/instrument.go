// Package instrument describes tradeable instruments as a pure
// calculation boundary: settlement currency, inverse flag and
// commission math. The execution core calls it with no side effects.
package instrument

import (
	"errors"
	"fmt"
	"sync"

	"github.com/meridianhq/execore/internal/fixed"
	"github.com/meridianhq/execore/internal/model"
)

var (
	ErrNoLiquiditySide  = errors.New("commission requires a liquidity side")
	ErrUnknownSecurity  = errors.New("unknown security")
	ErrInvalidFeeRate   = errors.New("invalid fee rate")
	ErrNonPositiveInput = errors.New("quantity and price must be positive")
)

// Instrument supplies the instrument facts the execution core needs.
type Instrument interface {
	Security() *model.Security
	QuoteCurrency() model.Currency
	// SettlementCurrency is the currency fills, commissions and PnL
	// settle in: the quote currency, or the base for inverse contracts.
	SettlementCurrency() model.Currency
	IsInverse() bool
	// CalculateCommission prices a fill: notional times the maker or
	// taker rate, quantized to the settlement currency. Maker rates
	// may be negative (rebate).
	CalculateCommission(qty model.Quantity, avgPrice fixed.Decimal, side model.LiquiditySide) (model.Money, error)
}

// CurrencyPair is a spot or swap instrument quoted as base/quote.
type CurrencyPair struct {
	security       *model.Security
	baseCurrency   model.Currency
	quoteCurrency  model.Currency
	pricePrecision int
	sizePrecision  int
	makerFee       fixed.Decimal // e.g. 0.001 for 0.1%; negative = rebate
	takerFee       fixed.Decimal
	isInverse      bool
}

// NewCurrencyPair builds an instrument descriptor.
func NewCurrencyPair(
	security *model.Security,
	base, quote model.Currency,
	pricePrecision, sizePrecision int,
	makerFee, takerFee fixed.Decimal,
	isInverse bool,
) (*CurrencyPair, error) {
	one := fixed.FromInt(1)
	if makerFee.GreaterThanOrEqual(one) || takerFee.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("%w: maker=%s taker=%s", ErrInvalidFeeRate, makerFee, takerFee)
	}
	return &CurrencyPair{
		security:       security,
		baseCurrency:   base,
		quoteCurrency:  quote,
		pricePrecision: pricePrecision,
		sizePrecision:  sizePrecision,
		makerFee:       makerFee,
		takerFee:       takerFee,
		isInverse:      isInverse,
	}, nil
}

func (c *CurrencyPair) Security() *model.Security     { return c.security }
func (c *CurrencyPair) BaseCurrency() model.Currency  { return c.baseCurrency }
func (c *CurrencyPair) QuoteCurrency() model.Currency { return c.quoteCurrency }
func (c *CurrencyPair) PricePrecision() int           { return c.pricePrecision }
func (c *CurrencyPair) SizePrecision() int            { return c.sizePrecision }
func (c *CurrencyPair) MakerFee() fixed.Decimal       { return c.makerFee }
func (c *CurrencyPair) TakerFee() fixed.Decimal       { return c.takerFee }
func (c *CurrencyPair) IsInverse() bool               { return c.isInverse }

func (c *CurrencyPair) SettlementCurrency() model.Currency {
	if c.isInverse {
		return c.baseCurrency
	}
	return c.quoteCurrency
}

func (c *CurrencyPair) CalculateCommission(qty model.Quantity, avgPrice fixed.Decimal, side model.LiquiditySide) (model.Money, error) {
	if side != model.LiquiditySideMaker && side != model.LiquiditySideTaker {
		return model.Money{}, fmt.Errorf("%w: %s %q", ErrNoLiquiditySide, c.security, side)
	}
	if !qty.IsPositive() || !avgPrice.IsPositive() {
		return model.Money{}, fmt.Errorf("%w: qty=%s price=%s", ErrNonPositiveInput, qty, avgPrice)
	}

	// inverse contracts carry notional in the base currency
	notional := qty.Mul(avgPrice)
	if c.isInverse {
		notional = qty.Div(avgPrice)
	}

	rate := c.takerFee
	if side == model.LiquiditySideMaker {
		rate = c.makerFee
	}
	return model.NewMoney(notional.Mul(rate), c.SettlementCurrency()), nil
}

// Provider resolves instrument descriptors by security.
type Provider interface {
	Get(security *model.Security) (Instrument, error)
}

// Registry is an in-memory Provider keyed by the security's canonical
// serializable form.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Instrument
}

func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Instrument)}
}

// Add registers or replaces an instrument.
func (r *Registry) Add(inst Instrument) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[inst.Security().SerializableString()] = inst
}

func (r *Registry) Get(security *model.Security) (Instrument, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	inst, ok := r.items[security.SerializableString()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSecurity, security.SerializableString())
	}
	return inst, nil
}

// Len reports the number of registered instruments.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
