package lighter

import (
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/monkeypipijy/ritmex-bot/internal/core"
)

// orderState is the live-order map keyed by exchange order id. Order pushes
// carry no sequence number, so reconciliation is last-write-wins; the one
// hard invariant is that an order observed in a terminal status is deleted,
// never retained.
type orderState struct {
	mu     sync.RWMutex
	orders map[string]core.Order
}

func newOrderState() *orderState {
	return &orderState{orders: make(map[string]core.Order)}
}

// Apply upserts an order record, or removes it if the status is terminal.
func (o *orderState) Apply(order core.Order) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if order.Status.IsTerminal() {
		delete(o.orders, order.ID)
		return
	}
	o.orders[order.ID] = order
}

// Remove deletes an order optimistically (cancel path) and returns the prior
// record so a failed submission can roll the removal back.
func (o *orderState) Remove(id string) (core.Order, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	prev, ok := o.orders[id]
	if ok {
		delete(o.orders, id)
	}
	return prev, ok
}

// Restore re-adds a record removed optimistically, unless a newer update
// already replaced it.
func (o *orderState) Restore(order core.Order) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, exists := o.orders[order.ID]; !exists && !order.Status.IsTerminal() {
		o.orders[order.ID] = order
	}
}

func (o *orderState) Get(id string) (core.Order, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	order, ok := o.orders[id]
	return order, ok
}

// List returns the live orders sorted by creation time then id, oldest first.
func (o *orderState) List() []core.Order {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]core.Order, 0, len(o.orders))
	for _, order := range o.orders {
		out = append(out, order)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// parseWireOrder maps a pushed order record into the domain form.
func parseWireOrder(wire wsOrder, symbol string) (core.Order, bool) {
	price, err := decimal.NewFromString(wire.Price)
	if err != nil {
		return core.Order{}, false
	}
	initial, err := decimal.NewFromString(wire.InitialBaseAmount)
	if err != nil {
		return core.Order{}, false
	}
	remaining := initial
	if wire.RemainingBaseAmount != "" {
		if v, err := decimal.NewFromString(wire.RemainingBaseAmount); err == nil {
			remaining = v
		}
	}
	side := core.Buy
	if wire.IsAsk {
		side = core.Sell
	}
	order := core.Order{
		ID:         strconv.FormatInt(wire.OrderIndex, 10),
		ClientID:   strconv.FormatInt(wire.ClientOrderIndex, 10),
		Symbol:     symbol,
		Side:       side,
		Type:       parseWireOrderType(wire.Type),
		TIF:        parseWireTIF(wire.TimeInForce),
		Price:      price,
		Qty:        initial,
		FilledQty:  initial.Sub(remaining),
		ReduceOnly: wire.ReduceOnly,
		Status:     parseWireOrderStatus(wire.Status),
	}
	if wire.Timestamp > 0 {
		order.CreatedAt = time.UnixMilli(wire.Timestamp)
		order.UpdatedAt = order.CreatedAt
	}
	return order, true
}

func parseWireOrderStatus(status string) core.OrderStatus {
	switch status {
	case "open", "pending", "in-progress":
		return core.OrderNew
	case "partially-filled":
		return core.OrderPartiallyFilled
	case "filled":
		return core.OrderFilled
	case "canceled", "canceled-post-only", "canceled-reduce-only":
		return core.OrderCanceled
	case "expired":
		return core.OrderExpired
	case "rejected", "failed":
		return core.OrderRejected
	}
	return core.OrderStatus(status)
}

func parseWireOrderType(t string) core.OrderType {
	switch t {
	case "limit":
		return core.Limit
	case "market":
		return core.Market
	case "stop-limit", "stop_loss_limit":
		return core.StopLimit
	}
	return core.OrderType(t)
}

func parseWireTIF(tif string) core.TimeInForce {
	switch tif {
	case "good-till-time", "good-till-cancel":
		return core.GTC
	case "immediate-or-cancel":
		return core.IOC
	case "post-only":
		return core.PostOnly
	}
	return core.TimeInForce(tif)
}
