// Package exchange defines the capability set every exchange backend exposes
// to strategies: four continuously-updated event streams plus the three
// order-mutating operations.
package exchange

import (
	"context"

	"github.com/monkeypipijy/ritmex-bot/internal/core"
)

// Gateway is one exchange connection for one market. Event subscriptions are
// push-style and restartable: a late subscriber immediately receives the
// current cached value, then every future update.
type Gateway interface {
	Name() string

	// Start connects the push session and begins polling feeds; it returns
	// once the session is ready. Close releases everything.
	Start(ctx context.Context) error
	Close() error

	OnAccount(fn func(core.Account)) uint64
	OnOrders(fn func([]core.Order)) uint64
	OnOrderBook(fn func(core.OrderBook)) uint64
	OnTicker(fn func(core.Ticker)) uint64
	OnKlines(interval string, fn func([]core.Kline)) (uint64, error)

	CreateOrder(ctx context.Context, intent core.OrderIntent) (core.Order, error)
	CancelOrder(ctx context.Context, orderID string) error
	CancelAllOrders(ctx context.Context, filter core.CancelFilter) error

	// Precision reports the market's price/quantity step constraints,
	// fetched lazily once and cached.
	Precision(ctx context.Context) (core.Rules, error)
}
