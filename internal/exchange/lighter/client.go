package lighter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/monkeypipijy/ritmex-bot/internal/core"
)

// restClient wraps the exchange's REST surface: market metadata, account
// snapshots, market data polls, the next-nonce fetch, and signed transaction
// submission. A token bucket paces every outbound call.
type restClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type restOptions struct {
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
}

func newRESTClient(opts restOptions) *restClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	perSec := opts.RatePerSec
	if perSec <= 0 {
		perSec = 8
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 4
	}
	return &restClient{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSec), burst),
	}
}

func (c *restClient) do(ctx context.Context, method, path string, params url.Values, auth string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	var (
		req *http.Request
		err error
	)
	urlStr := c.baseURL + path
	if method == http.MethodGet {
		if encoded := params.Encode(); encoded != "" {
			urlStr += "?" + encoded
		}
		req, err = http.NewRequestWithContext(ctx, method, urlStr, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, urlStr, strings.NewReader(params.Encode()))
	}
	if err != nil {
		return err
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode/100 != 2 {
		return parseAPIError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func parseAPIError(status int, body []byte) error {
	var apiErr apiResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return wrapAPIError(apiErr.Code, apiErr.Message)
	}
	if status == http.StatusTooManyRequests {
		return errors.Join(
			APIError{Code: status, Msg: strings.TrimSpace(string(body))},
			core.ErrRateLimited,
		)
	}
	if status == http.StatusUnauthorized {
		return errors.Join(
			APIError{Code: status, Msg: strings.TrimSpace(string(body))},
			core.ErrAuth,
		)
	}
	return fmt.Errorf("lighter http error %d: %s", status, strings.TrimSpace(string(body)))
}

// MarketRules fetches tradable-market metadata and resolves the configured
// symbol into precision rules. An unknown symbol is fatal to initialization.
func (c *restClient) MarketRules(ctx context.Context, symbol string) (core.Rules, error) {
	var resp orderBooksResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/orderBooks", url.Values{}, "", &resp); err != nil {
		return core.Rules{}, err
	}
	for _, meta := range resp.OrderBooks {
		if !strings.EqualFold(meta.Symbol, symbol) {
			continue
		}
		rules := core.Rules{
			MarketID:      meta.MarketID,
			Symbol:        meta.Symbol,
			PriceDecimals: meta.SupportedPriceDecimals,
			SizeDecimals:  meta.SupportedSizeDecimals,
		}
		if meta.MinBaseAmount != "" {
			if v, err := decimal.NewFromString(meta.MinBaseAmount); err == nil {
				rules.MinBaseQty = v
			}
		}
		return rules, nil
	}
	return core.Rules{}, fmt.Errorf("%w: %s", core.ErrMarketNotFound, symbol)
}

// Ticker polls the market's last-trade and mark prices.
func (c *restClient) Ticker(ctx context.Context, marketID int64, symbol string) (core.Ticker, error) {
	params := url.Values{}
	params.Set("market_id", strconv.FormatInt(marketID, 10))
	var resp orderBookDetailsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/orderBookDetails", params, "", &resp); err != nil {
		return core.Ticker{}, err
	}
	if len(resp.Details) == 0 {
		return core.Ticker{}, fmt.Errorf("%w: market %d", core.ErrMarketNotFound, marketID)
	}
	detail := resp.Details[0]
	last, err := decimal.NewFromString(detail.LastTradePrice)
	if err != nil {
		return core.Ticker{}, fmt.Errorf("%w: last trade price %q", core.ErrFormat, detail.LastTradePrice)
	}
	ticker := core.Ticker{Symbol: symbol, LastPrice: last, Time: time.Now()}
	if detail.MarkPrice != "" {
		if mark, err := decimal.NewFromString(detail.MarkPrice); err == nil {
			ticker.MarkPrice = mark
		}
	}
	return ticker, nil
}

// Candlesticks polls up to countBack klines for one resolution.
func (c *restClient) Candlesticks(ctx context.Context, marketID int64, symbol, resolution string, countBack int) ([]core.Kline, error) {
	params := url.Values{}
	params.Set("market_id", strconv.FormatInt(marketID, 10))
	params.Set("resolution", resolution)
	params.Set("count_back", strconv.Itoa(countBack))
	params.Set("end_timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	var resp candlesticksResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/candlesticks", params, "", &resp); err != nil {
		return nil, err
	}
	klines := make([]core.Kline, 0, len(resp.Candlesticks))
	for _, cs := range resp.Candlesticks {
		kline, err := parseCandlestick(cs, symbol, resolution)
		if err != nil {
			continue
		}
		klines = append(klines, kline)
	}
	return klines, nil
}

func parseCandlestick(cs candlestick, symbol, resolution string) (core.Kline, error) {
	open, err := decimal.NewFromString(cs.Open)
	if err != nil {
		return core.Kline{}, err
	}
	high, err := decimal.NewFromString(cs.High)
	if err != nil {
		return core.Kline{}, err
	}
	low, err := decimal.NewFromString(cs.Low)
	if err != nil {
		return core.Kline{}, err
	}
	closePx, err := decimal.NewFromString(cs.Close)
	if err != nil {
		return core.Kline{}, err
	}
	volume := decimal.Zero
	if cs.Volume != "" {
		if v, err := decimal.NewFromString(cs.Volume); err == nil {
			volume = v
		}
	}
	return core.Kline{
		Symbol:   symbol,
		Interval: resolution,
		OpenTime: time.UnixMilli(cs.Timestamp),
		Open:     open,
		High:     high,
		Low:      low,
		Close:    closePx,
		Volume:   volume,
	}, nil
}

// Account fetches the full account snapshot used for initial state and for
// periodic drift correction against the push feed.
func (c *restClient) Account(ctx context.Context, accountIndex int64) (core.Account, error) {
	params := url.Values{}
	params.Set("by", "index")
	params.Set("value", strconv.FormatInt(accountIndex, 10))
	var resp accountsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/account", params, "", &resp); err != nil {
		return core.Account{}, err
	}
	if len(resp.Accounts) == 0 {
		return core.Account{}, fmt.Errorf("account %d not found", accountIndex)
	}
	return parseAccountDetail(resp.Accounts[0])
}

func parseAccountDetail(detail accountDetail) (core.Account, error) {
	collateral, err := decimal.NewFromString(detail.Collateral)
	if err != nil {
		return core.Account{}, fmt.Errorf("%w: collateral %q", core.ErrFormat, detail.Collateral)
	}
	available := decimal.Zero
	if detail.AvailableBalance != "" {
		if v, err := decimal.NewFromString(detail.AvailableBalance); err == nil {
			available = v
		}
	}
	acct := core.Account{
		Collateral: collateral,
		Available:  available,
		Positions:  make(map[core.PositionKey]core.Position),
		UpdatedAt:  time.Now(),
	}
	for _, pos := range detail.Positions {
		parsed, ok := parsePosition(pos.MarketID, pos.Symbol, pos.Sign, pos.Position, pos.AvgEntryPrice, pos.UnrealizedPnL)
		if !ok {
			continue
		}
		acct.Positions[core.PositionKey{MarketID: parsed.MarketID, Side: parsed.Side}] = parsed
	}
	return acct, nil
}

// parsePosition maps a signed wire position into a Position record; zero-size
// positions report ok=false so they never enter the snapshot.
func parsePosition(marketID int64, symbol string, sign int, size, entry, pnl string) (core.Position, bool) {
	qty, err := decimal.NewFromString(size)
	if err != nil || qty.IsZero() {
		return core.Position{}, false
	}
	side := core.Buy
	if sign < 0 {
		side = core.Sell
	}
	pos := core.Position{
		MarketID: marketID,
		Symbol:   symbol,
		Side:     side,
		Size:     qty,
	}
	if sign < 0 {
		pos.Size = qty.Neg()
	}
	if v, err := decimal.NewFromString(entry); err == nil {
		pos.EntryPrice = v
	}
	if v, err := decimal.NewFromString(pnl); err == nil {
		pos.UnrealPnL = v
	}
	return pos, true
}

// NextNonce resolves the exchange's authoritative next nonce for one signing
// key; the nonce manager refuses to issue before this has been consulted.
func (c *restClient) NextNonce(ctx context.Context, accountIndex int64, apiKeyIndex uint8) (int64, error) {
	params := url.Values{}
	params.Set("account_index", strconv.FormatInt(accountIndex, 10))
	params.Set("api_key_index", strconv.Itoa(int(apiKeyIndex)))
	var resp nextNonceResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/nextNonce", params, "", &resp); err != nil {
		return 0, err
	}
	return resp.Nonce, nil
}

// SendTx submits a signed transaction.
func (c *restClient) SendTx(ctx context.Context, txType int, txInfo []byte, auth string) (string, error) {
	params := url.Values{}
	params.Set("tx_type", strconv.Itoa(txType))
	params.Set("tx_info", string(txInfo))
	var resp sendTxResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/sendTx", params, auth, &resp); err != nil {
		return "", err
	}
	if resp.Code != 0 && resp.Code != apiCodeOK {
		return "", wrapAPIError(resp.Code, resp.Message)
	}
	return resp.TxHash, nil
}
