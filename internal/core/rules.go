package core

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidIntent = errors.New("invalid order intent")
)

// Rules captures the per-market precision constraints the exchange enforces:
// how many fractional digits a price or quantity may carry on the wire.
type Rules struct {
	MarketID      int64
	Symbol        string
	PriceDecimals int32
	SizeDecimals  int32
	MinBaseQty    decimal.Decimal
}

// PriceTick returns the smallest representable price increment.
func (r Rules) PriceTick() decimal.Decimal {
	return decimal.New(1, -r.PriceDecimals)
}

// QtyStep returns the smallest representable quantity increment.
func (r Rules) QtyStep() decimal.Decimal {
	return decimal.New(1, -r.SizeDecimals)
}

// NormalizeIntent rounds the intent's price and quantity down onto the
// market's grid and rejects intents that degenerate to zero.
func NormalizeIntent(intent OrderIntent, rules Rules) (OrderIntent, error) {
	if intent.Qty.Cmp(decimal.Zero) <= 0 {
		return intent, ErrInvalidIntent
	}
	intent.Qty = RoundDown(intent.Qty, rules.QtyStep())
	if intent.Qty.Cmp(decimal.Zero) <= 0 {
		return intent, ErrInvalidIntent
	}
	if rules.MinBaseQty.Cmp(decimal.Zero) > 0 && intent.Qty.Cmp(rules.MinBaseQty) < 0 {
		return intent, ErrInvalidIntent
	}
	if intent.Type == Market {
		return intent, nil
	}
	if intent.Price.Cmp(decimal.Zero) <= 0 {
		return intent, ErrInvalidIntent
	}
	intent.Price = RoundDown(intent.Price, rules.PriceTick())
	if intent.Price.Cmp(decimal.Zero) <= 0 {
		return intent, ErrInvalidIntent
	}
	if intent.TriggerPrice.Cmp(decimal.Zero) > 0 {
		intent.TriggerPrice = RoundDown(intent.TriggerPrice, rules.PriceTick())
	}
	return intent, nil
}

func RoundDown(value, step decimal.Decimal) decimal.Decimal {
	if step.Cmp(decimal.Zero) <= 0 {
		return value
	}
	return value.Div(step).Floor().Mul(step)
}
