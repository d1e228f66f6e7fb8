package lighter

import (
	"testing"

	"github.com/monkeypipijy/ritmex-bot/internal/core"
)

func wireOrder(index int64, status string) wsOrder {
	return wsOrder{
		OrderIndex:          index,
		ClientOrderIndex:    index * 10,
		MarketID:            1,
		Price:               "2000.5",
		InitialBaseAmount:   "1.5",
		RemainingBaseAmount: "1.0",
		Type:                "limit",
		TimeInForce:         "good-till-time",
		Status:              status,
		Timestamp:           1700000000000,
	}
}

func TestOrderStateTerminalRemoves(t *testing.T) {
	o := newOrderState()
	live, _ := parseWireOrder(wireOrder(42, "open"), "ETH")
	o.Apply(live)
	if len(o.List()) != 1 {
		t.Fatalf("live order not tracked")
	}
	filled, _ := parseWireOrder(wireOrder(42, "filled"), "ETH")
	o.Apply(filled)
	if len(o.List()) != 0 {
		t.Fatalf("terminal order retained: %v", o.List())
	}
}

func TestOrderStateLastWriteWins(t *testing.T) {
	// No sequence key arrives with order pushes, so a late older update
	// re-creates the record. Periodic re-sync bounds how long that lasts.
	o := newOrderState()
	canceled, _ := parseWireOrder(wireOrder(7, "canceled"), "ETH")
	o.Apply(canceled)
	stale, _ := parseWireOrder(wireOrder(7, "open"), "ETH")
	o.Apply(stale)
	if len(o.List()) != 1 {
		t.Fatalf("last write did not win")
	}
}

func TestOrderStateRemoveRestore(t *testing.T) {
	o := newOrderState()
	live, _ := parseWireOrder(wireOrder(9, "open"), "ETH")
	o.Apply(live)
	prev, ok := o.Remove(live.ID)
	if !ok || prev.ID != live.ID {
		t.Fatalf("remove returned %v %v", prev, ok)
	}
	if _, ok := o.Get(live.ID); ok {
		t.Fatalf("order still present after remove")
	}
	o.Restore(prev)
	if _, ok := o.Get(live.ID); !ok {
		t.Fatalf("restore did not re-add order")
	}
}

func TestOrderStateRestoreSkipsOverwrite(t *testing.T) {
	o := newOrderState()
	live, _ := parseWireOrder(wireOrder(9, "open"), "ETH")
	o.Apply(live)
	prev, _ := o.Remove(live.ID)
	newer := prev
	newer.Status = core.OrderPartiallyFilled
	o.Apply(newer)
	o.Restore(prev)
	got, _ := o.Get(live.ID)
	if got.Status != core.OrderPartiallyFilled {
		t.Fatalf("restore clobbered a newer update: %s", got.Status)
	}
}

func TestParseWireOrder(t *testing.T) {
	order, ok := parseWireOrder(wireOrder(42, "partially-filled"), "ETH")
	if !ok {
		t.Fatalf("parse failed")
	}
	if order.ID != "42" || order.ClientID != "420" {
		t.Fatalf("ids = %s/%s", order.ID, order.ClientID)
	}
	if order.Side != core.Buy || order.Type != core.Limit || order.TIF != core.GTC {
		t.Fatalf("order = %+v", order)
	}
	if order.Status != core.OrderPartiallyFilled {
		t.Fatalf("status = %s", order.Status)
	}
	if order.FilledQty.String() != "0.5" {
		t.Fatalf("filled = %s, want 0.5", order.FilledQty)
	}
}

func TestParseWireOrderStatusTable(t *testing.T) {
	tests := []struct {
		wire string
		want core.OrderStatus
	}{
		{"open", core.OrderNew},
		{"pending", core.OrderNew},
		{"partially-filled", core.OrderPartiallyFilled},
		{"filled", core.OrderFilled},
		{"canceled", core.OrderCanceled},
		{"canceled-post-only", core.OrderCanceled},
		{"canceled-reduce-only", core.OrderCanceled},
		{"expired", core.OrderExpired},
		{"rejected", core.OrderRejected},
	}
	for _, tc := range tests {
		if got := parseWireOrderStatus(tc.wire); got != tc.want {
			t.Fatalf("%s -> %s, want %s", tc.wire, got, tc.want)
		}
	}
}
