package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

type OrderType string

type TimeInForce string

type OrderStatus string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

const (
	Limit     OrderType = "LIMIT"
	Market    OrderType = "MARKET"
	StopLimit OrderType = "STOP_LIMIT"
)

const (
	GTC      TimeInForce = "GTC"
	IOC      TimeInForce = "IOC"
	PostOnly TimeInForce = "POST_ONLY"
)

const (
	OrderNew             OrderStatus = "NEW"
	OrderPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "FILLED"
	OrderCanceled        OrderStatus = "CANCELED"
	OrderRejected        OrderStatus = "REJECTED"
	OrderExpired         OrderStatus = "EXPIRED"
)

// IsTerminal reports whether no further updates are expected for an order in
// this status. Terminal orders are removed from the live set, never retained.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderFilled, OrderCanceled, OrderRejected, OrderExpired:
		return true
	}
	return false
}

// Order is a live exchange order. IDs stay in string form because exchange
// order identifiers can exceed the float64-safe integer range.
type Order struct {
	ID         string
	ClientID   string
	Symbol     string
	Side       Side
	Type       OrderType
	TIF        TimeInForce
	Price      decimal.Decimal
	Qty        decimal.Decimal
	FilledQty  decimal.Decimal
	ReduceOnly bool
	Status     OrderStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderIntent is what a strategy asks the gateway to place.
type OrderIntent struct {
	Side         Side
	Type         OrderType
	TIF          TimeInForce
	Price        decimal.Decimal
	Qty          decimal.Decimal
	TriggerPrice decimal.Decimal
	ReduceOnly   bool
	ClientID     string
}

// CancelFilter narrows CancelAllOrders. The zero value cancels everything the
// gateway owns on its market.
type CancelFilter struct {
	Side Side
}

type BookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// OrderBook is a monotonically-consistent snapshot of one market. Bids are
// sorted descending and asks ascending by price; no level carries size <= 0.
type OrderBook struct {
	MarketID  int64
	Offset    int64
	Bids      []BookLevel
	Asks      []BookLevel
	UpdatedAt time.Time
}

// BestBid returns the highest bid, if any.
func (b *OrderBook) BestBid() (BookLevel, bool) {
	if len(b.Bids) == 0 {
		return BookLevel{}, false
	}
	return b.Bids[0], true
}

// BestAsk returns the lowest ask, if any.
func (b *OrderBook) BestAsk() (BookLevel, bool) {
	if len(b.Asks) == 0 {
		return BookLevel{}, false
	}
	return b.Asks[0], true
}

// PositionKey identifies a position within an account snapshot.
type PositionKey struct {
	MarketID int64
	Side     Side
}

type Position struct {
	MarketID   int64
	Symbol     string
	Side       Side
	Size       decimal.Decimal
	EntryPrice decimal.Decimal
	UnrealPnL  decimal.Decimal
}

// Account is the reconciled account snapshot: collateral balances plus open
// positions. A position with zero signed size is absent from the map.
type Account struct {
	Collateral decimal.Decimal
	Available  decimal.Decimal
	Positions  map[PositionKey]Position
	UpdatedAt  time.Time
}

type Ticker struct {
	Symbol    string
	LastPrice decimal.Decimal
	MarkPrice decimal.Decimal
	Time      time.Time
}

type Kline struct {
	Symbol    string
	Interval  string
	OpenTime  time.Time
	CloseTime time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}
