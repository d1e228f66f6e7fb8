package lighter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/monkeypipijy/ritmex-bot/internal/core"
)

func newTestClient(t *testing.T, handler http.Handler) *restClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return newRESTClient(restOptions{BaseURL: srv.URL, RatePerSec: 1000, Burst: 100})
}

func TestMarketRules(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/orderBooks" {
			t.Fatalf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"code":200,"order_books":[
			{"symbol":"BTC","market_id":0,"supported_price_decimals":1,"supported_size_decimals":5},
			{"symbol":"ETH","market_id":1,"supported_price_decimals":2,"supported_size_decimals":4,"min_base_amount":"0.02"}
		]}`))
	}))

	rules, err := client.MarketRules(context.Background(), "eth")
	if err != nil {
		t.Fatalf("MarketRules: %v", err)
	}
	if rules.MarketID != 1 || rules.PriceDecimals != 2 || rules.SizeDecimals != 4 {
		t.Fatalf("rules = %+v", rules)
	}
	if rules.MinBaseQty.String() != "0.02" {
		t.Fatalf("min base qty = %s", rules.MinBaseQty)
	}

	if _, err := client.MarketRules(context.Background(), "DOGE"); !errors.Is(err, core.ErrMarketNotFound) {
		t.Fatalf("unknown symbol error = %v", err)
	}
}

func TestNextNonce(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("api_key_index"); got != "2" {
			t.Fatalf("api_key_index = %s", got)
		}
		w.Write([]byte(`{"code":200,"nonce":57}`))
	}))
	n, err := client.NextNonce(context.Background(), 7, 2)
	if err != nil {
		t.Fatalf("NextNonce: %v", err)
	}
	if n != 57 {
		t.Fatalf("nonce = %d", n)
	}
}

func TestSendTx(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "token" {
			t.Fatalf("authorization = %q", got)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if r.PostForm.Get("tx_type") != "14" {
			t.Fatalf("tx_type = %s", r.PostForm.Get("tx_type"))
		}
		w.Write([]byte(`{"code":200,"tx_hash":"0xabc"}`))
	}))
	hash, err := client.SendTx(context.Background(), txTypeCreateOrder, []byte(`{}`), "token")
	if err != nil {
		t.Fatalf("SendTx: %v", err)
	}
	if hash != "0xabc" {
		t.Fatalf("hash = %s", hash)
	}
}

func TestSendTxErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"nonce code", http.StatusOK, `{"code":21104,"message":"invalid nonce"}`, core.ErrNonce},
		{"rate limit code", http.StatusTooManyRequests, `{"code":429,"message":"too many requests"}`, core.ErrRateLimited},
		{"rate limit bare", http.StatusTooManyRequests, `slow down`, core.ErrRateLimited},
		{"duplicate", http.StatusOK, `{"code":21122,"message":"duplicate client order index"}`, core.ErrDuplicateOrder},
		{"auth code", http.StatusOK, `{"code":21101,"message":"invalid auth token"}`, core.ErrAuth},
		{"auth bare", http.StatusUnauthorized, `unauthorized`, core.ErrAuth},
	}
	for _, tc := range tests {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		}))
		_, err := client.SendTx(context.Background(), txTypeCreateOrder, []byte(`{}`), "")
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestAccountSnapshotSkipsZeroPositions(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"accounts":[{
			"collateral":"1250.5",
			"available_balance":"900",
			"positions":[
				{"market_id":1,"symbol":"ETH","sign":1,"position":"2.5","avg_entry_price":"2000","unrealized_pnl":"10"},
				{"market_id":2,"symbol":"BTC","sign":1,"position":"0","avg_entry_price":"0","unrealized_pnl":"0"}
			]
		}]}`))
	}))
	acct, err := client.Account(context.Background(), 7)
	if err != nil {
		t.Fatalf("Account: %v", err)
	}
	if acct.Collateral.String() != "1250.5" || acct.Available.String() != "900" {
		t.Fatalf("balances = %s/%s", acct.Collateral, acct.Available)
	}
	if len(acct.Positions) != 1 {
		t.Fatalf("positions = %v, zero-size entry kept", acct.Positions)
	}
	pos := acct.Positions[core.PositionKey{MarketID: 1, Side: core.Buy}]
	if pos.Size.String() != "2.5" {
		t.Fatalf("position = %+v", pos)
	}
}

func TestTicker(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"code":200,"order_book_details":[{"symbol":"ETH","last_trade_price":"2001.5","mark_price":"2000.9"}]}`))
	}))
	ticker, err := client.Ticker(context.Background(), 1, "ETH")
	if err != nil {
		t.Fatalf("Ticker: %v", err)
	}
	if ticker.LastPrice.String() != "2001.5" || ticker.MarkPrice.String() != "2000.9" {
		t.Fatalf("ticker = %+v", ticker)
	}
}
