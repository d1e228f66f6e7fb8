package lighter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/monkeypipijy/ritmex-bot/internal/config"
	"github.com/monkeypipijy/ritmex-bot/internal/core"
	"github.com/monkeypipijy/ritmex-bot/internal/nonce"
)

type sentTx struct {
	Type int
	Info []byte
	Auth string
}

type fakeREST struct {
	mu        sync.Mutex
	nextNonce int64
	sendErr   error
	sent      []sentTx
	account   core.Account
}

func (f *fakeREST) MarketRules(_ context.Context, symbol string) (core.Rules, error) {
	return core.Rules{MarketID: 1, Symbol: symbol, PriceDecimals: 2, SizeDecimals: 4}, nil
}

func (f *fakeREST) Ticker(context.Context, int64, string) (core.Ticker, error) {
	return core.Ticker{}, nil
}

func (f *fakeREST) Candlesticks(context.Context, int64, string, string, int) ([]core.Kline, error) {
	return nil, nil
}

func (f *fakeREST) Account(context.Context, int64) (core.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account, nil
}

func (f *fakeREST) NextNonce(context.Context, int64, uint8) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nextNonce, nil
}

func (f *fakeREST) SendTx(_ context.Context, txType int, txInfo []byte, auth string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, sentTx{Type: txType, Info: txInfo, Auth: auth})
	return "0xhash", nil
}

func (f *fakeREST) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func testGateway(t *testing.T) (*Gateway, *fakeREST) {
	t.Helper()
	marketID := int64(1)
	priceDecimals := int32(2)
	sizeDecimals := int32(4)
	cfg := config.Config{
		Env:    config.EnvTestnet,
		Symbol: "ETH",
		Exchange: config.ExchangeConfig{
			MarketSymbol: "ETH",
			AccountIndex: 7,
			SigningKeys: []config.SigningKeyConfig{
				{Index: 0, PrivateKey: strings.Repeat("ab", 32)},
			},
			MarketID:      &marketID,
			PriceDecimals: &priceDecimals,
			SizeDecimals:  &sizeDecimals,
		},
		Polling: config.PollingConfig{BookDepth: 10},
	}
	g, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	fake := &fakeREST{nextNonce: 5}
	g.rest = fake
	if err := g.nonces.Bootstrap(context.Background(), fake); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	return g, fake
}

func buyIntent() core.OrderIntent {
	return core.OrderIntent{
		Side:     core.Buy,
		Type:     core.Limit,
		TIF:      core.GTC,
		Price:    decimal.NewFromFloat(2000.25),
		Qty:      decimal.NewFromFloat(0.5),
		ClientID: "123",
	}
}

func TestCreateOrderSubmitsSignedTx(t *testing.T) {
	g, fake := testGateway(t)

	order, err := g.CreateOrder(context.Background(), buyIntent())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if order.Status != core.OrderNew || order.ClientID != "123" {
		t.Fatalf("order = %+v", order)
	}
	if fake.sentCount() != 1 {
		t.Fatalf("submissions = %d", fake.sentCount())
	}
	if fake.sent[0].Type != txTypeCreateOrder {
		t.Fatalf("tx type = %d", fake.sent[0].Type)
	}
	if fake.sent[0].Auth == "" {
		t.Fatalf("submission carried no auth token")
	}
	var decoded createOrderTx
	if err := json.Unmarshal(fake.sent[0].Info, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Nonce != 5 || decoded.ClientOrderIndex != 123 {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Price != 200025 || decoded.BaseAmount != 5000 {
		t.Fatalf("scaled amounts = price %d base %d", decoded.Price, decoded.BaseAmount)
	}
	if decoded.IsAsk {
		t.Fatalf("buy encoded as ask")
	}

	key := nonce.Key{AccountIndex: 7, APIKeyIndex: 0}
	if next, _ := g.nonces.Peek(key); next != 6 {
		t.Fatalf("nonce after success = %d, want 6", next)
	}
	if len(g.orders.List()) != 1 {
		t.Fatalf("optimistic order missing")
	}
}

type recordingAlerter struct {
	mu     sync.Mutex
	events []string
	fields []map[string]string
}

func (r *recordingAlerter) Important(event string, fields map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.fields = append(r.fields, fields)
}

func TestCreateOrderAuthFailureInvalidatesToken(t *testing.T) {
	g, fake := testGateway(t)
	alerts := &recordingAlerter{}
	g.alerter = alerts
	if _, err := g.auth.Token(); err != nil {
		t.Fatalf("prime token: %v", err)
	}
	fake.sendErr = wrapAPIError(apiCodeInvalidAuth, "invalid auth token")

	_, err := g.CreateOrder(context.Background(), buyIntent())
	if !errors.Is(err, core.ErrAuth) {
		t.Fatalf("err = %v", err)
	}
	g.auth.mu.Lock()
	cached := g.auth.token
	g.auth.mu.Unlock()
	if cached != "" {
		t.Fatalf("cached token survived an auth rejection")
	}
	key := nonce.Key{AccountIndex: 7, APIKeyIndex: 0}
	if next, _ := g.nonces.Peek(key); next != 5 {
		t.Fatalf("nonce after failure = %d, want 5", next)
	}
	alerts.mu.Lock()
	defer alerts.mu.Unlock()
	if len(alerts.events) != 1 || alerts.events[0] != "submit_failed" {
		t.Fatalf("alerts = %v", alerts.events)
	}
	if alerts.fields[0]["code"] != "21101" || alerts.fields[0]["source"] != "create_order" {
		t.Fatalf("alert fields = %v", alerts.fields[0])
	}
}

func TestCreateOrderFailureRollsNonceBack(t *testing.T) {
	g, fake := testGateway(t)
	fake.sendErr = wrapAPIError(429, "too many requests")

	_, err := g.CreateOrder(context.Background(), buyIntent())
	if !errors.Is(err, core.ErrRateLimited) {
		t.Fatalf("err = %v", err)
	}
	key := nonce.Key{AccountIndex: 7, APIKeyIndex: 0}
	if next, _ := g.nonces.Peek(key); next != 5 {
		t.Fatalf("nonce after failure = %d, want 5", next)
	}
	if len(g.orders.List()) != 0 {
		t.Fatalf("failed order left in live set")
	}
	if g.pacer.State() == "normal" {
		t.Fatalf("pacer ignored the rate limit")
	}
}

func TestCreateOrderEntrySuppression(t *testing.T) {
	g, fake := testGateway(t)
	g.pacer.RegisterRateLimit("test")

	_, err := g.CreateOrder(context.Background(), buyIntent())
	if !errors.Is(err, core.ErrRateLimited) {
		t.Fatalf("entry not suppressed: %v", err)
	}
	if fake.sentCount() != 0 {
		t.Fatalf("suppressed entry still submitted")
	}

	reduce := buyIntent()
	reduce.ReduceOnly = true
	if _, err := g.CreateOrder(context.Background(), reduce); err != nil {
		t.Fatalf("reduce-only blocked: %v", err)
	}
	if fake.sentCount() != 1 {
		t.Fatalf("reduce-only not submitted")
	}
}

func TestCreateOrderRejectsDegenerateIntent(t *testing.T) {
	g, fake := testGateway(t)
	intent := buyIntent()
	intent.Qty = decimal.NewFromFloat(0.00001) // below the 4-decimal grid
	if _, err := g.CreateOrder(context.Background(), intent); !errors.Is(err, core.ErrInvalidIntent) {
		t.Fatalf("err = %v", err)
	}
	if fake.sentCount() != 0 {
		t.Fatalf("degenerate intent submitted")
	}
}

func pushOrder(g *Gateway, wire wsOrder) {
	g.routeOrders(&wsInbound{
		Type:    "update/account_orders",
		Channel: "account_orders/1/7",
		Orders:  wsAccountOrders{"1": []wsOrder{wire}},
	})
}

func TestPushReplacesOptimisticPlaceholder(t *testing.T) {
	g, _ := testGateway(t)
	order, err := g.CreateOrder(context.Background(), buyIntent())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if !strings.HasPrefix(order.ID, "pending-") {
		t.Fatalf("placeholder id = %s", order.ID)
	}

	wire := wireOrder(555, "open")
	wire.ClientOrderIndex = 123
	pushOrder(g, wire)

	list := g.orders.List()
	if len(list) != 1 {
		t.Fatalf("orders = %v", list)
	}
	if list[0].ID != "555" {
		t.Fatalf("placeholder not replaced: %s", list[0].ID)
	}
	if !g.OwnsClientID("123") {
		t.Fatalf("generated client id not owned")
	}

	filled := wireOrder(555, "filled")
	filled.ClientOrderIndex = 123
	pushOrder(g, filled)
	if len(g.orders.List()) != 0 {
		t.Fatalf("terminal order retained")
	}
	if g.OwnsClientID("123") {
		t.Fatalf("terminal order still owned")
	}
}

func TestCancelOrderRollsBackOnFailure(t *testing.T) {
	g, fake := testGateway(t)
	pushOrder(g, wireOrder(42, "open"))
	if len(g.orders.List()) != 1 {
		t.Fatalf("seed order missing")
	}

	fake.sendErr = wrapAPIError(21104, "invalid nonce")
	err := g.CancelOrder(context.Background(), "42")
	if !errors.Is(err, core.ErrNonce) {
		t.Fatalf("err = %v", err)
	}
	if len(g.orders.List()) != 1 {
		t.Fatalf("optimistic removal not rolled back")
	}
	key := nonce.Key{AccountIndex: 7, APIKeyIndex: 0}
	if next, _ := g.nonces.Peek(key); next != 5 {
		t.Fatalf("nonce = %d, want 5", next)
	}
}

func TestCancelOrderSubmitsAndRemoves(t *testing.T) {
	g, fake := testGateway(t)
	pushOrder(g, wireOrder(42, "open"))

	if err := g.CancelOrder(context.Background(), "42"); err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if len(g.orders.List()) != 0 {
		t.Fatalf("order still live after cancel")
	}
	var decoded cancelOrderTx
	if err := json.Unmarshal(fake.sent[0].Info, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.OrderIndex != 42 || decoded.MarketIndex != 1 {
		t.Fatalf("decoded = %+v", decoded)
	}
}

func TestCancelOrderRejectsNonNumericID(t *testing.T) {
	g, _ := testGateway(t)
	if err := g.CancelOrder(context.Background(), "abc"); !errors.Is(err, core.ErrOrderNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestCancelAllOrders(t *testing.T) {
	g, fake := testGateway(t)
	pushOrder(g, wireOrder(1, "open"))
	pushOrder(g, wireOrder(2, "open"))

	if err := g.CancelAllOrders(context.Background(), core.CancelFilter{}); err != nil {
		t.Fatalf("CancelAllOrders: %v", err)
	}
	if len(g.orders.List()) != 0 {
		t.Fatalf("orders survived cancel-all")
	}
	if fake.sent[0].Type != txTypeCancelAllOrders {
		t.Fatalf("tx type = %d", fake.sent[0].Type)
	}
}

func TestCancelAllOrdersSideFilter(t *testing.T) {
	g, fake := testGateway(t)
	buy := wireOrder(1, "open")
	sell := wireOrder(2, "open")
	sell.IsAsk = true
	pushOrder(g, buy)
	pushOrder(g, sell)

	if err := g.CancelAllOrders(context.Background(), core.CancelFilter{Side: core.Sell}); err != nil {
		t.Fatalf("CancelAllOrders: %v", err)
	}
	list := g.orders.List()
	if len(list) != 1 || list[0].Side != core.Buy {
		t.Fatalf("remaining = %v", list)
	}
	if fake.sentCount() != 1 || fake.sent[0].Type != txTypeCancelOrder {
		t.Fatalf("submissions = %+v", fake.sent)
	}
}

func TestRouteBookPublishes(t *testing.T) {
	g, _ := testGateway(t)
	if _, err := g.Precision(context.Background()); err != nil {
		t.Fatalf("Precision: %v", err)
	}

	var (
		mu   sync.Mutex
		last core.OrderBook
		seen int
	)
	g.OnOrderBook(func(b core.OrderBook) {
		mu.Lock()
		last = b
		seen++
		mu.Unlock()
	})

	g.route(&wsInbound{
		Type:    "subscribed/order_book",
		Channel: "order_book/1",
		OrderBook: &wsOrderBook{
			Offset:    10,
			Timestamp: 1000,
			Bids:      levels("100.5", "2"),
			Asks:      levels("101.0", "3"),
		},
	})
	// Stale replay must not publish again.
	g.route(&wsInbound{
		Type:    "update/order_book",
		Channel: "order_book/1",
		OrderBook: &wsOrderBook{
			Offset:    10,
			Timestamp: 1000,
			Bids:      levels("100.5", "9"),
		},
	})

	mu.Lock()
	defer mu.Unlock()
	if seen != 1 {
		t.Fatalf("publishes = %d, want 1", seen)
	}
	if last.Offset != 10 || len(last.Bids) != 1 || !last.Bids[0].Size.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("book = %+v", last)
	}
}

func TestRouteAccountPublishes(t *testing.T) {
	g, _ := testGateway(t)
	var got core.Account
	seen := false
	g.OnAccount(func(a core.Account) {
		got = a
		seen = true
	})
	g.route(&wsInbound{
		Type:      "update/account_all",
		Channel:   "account_all/7",
		Timestamp: 1700000000000,
		Account:   &wsAccount{Collateral: "1000"},
	})
	if !seen {
		t.Fatalf("account update not published")
	}
	if !got.Collateral.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("collateral = %s", got.Collateral)
	}
}
