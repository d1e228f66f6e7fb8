// Package lighter implements the exchange gateway for the lighter venue:
// one push session plus a paced REST client, reconciled into monotonic
// order-book, account, and order snapshots, with signed nonce-stamped
// transaction submission.
package lighter

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/monkeypipijy/ritmex-bot/internal/alert"
	"github.com/monkeypipijy/ritmex-bot/internal/bus"
	"github.com/monkeypipijy/ritmex-bot/internal/config"
	"github.com/monkeypipijy/ritmex-bot/internal/core"
	"github.com/monkeypipijy/ritmex-bot/internal/exchange"
	"github.com/monkeypipijy/ritmex-bot/internal/nonce"
	"github.com/monkeypipijy/ritmex-bot/internal/numeric"
	"github.com/monkeypipijy/ritmex-bot/internal/safety"
)

var _ exchange.Gateway = (*Gateway)(nil)

const klineCountBack = 100

// restBackend is the REST surface the facade depends on; *restClient is the
// shipped implementation.
type restBackend interface {
	MarketRules(ctx context.Context, symbol string) (core.Rules, error)
	Ticker(ctx context.Context, marketID int64, symbol string) (core.Ticker, error)
	Candlesticks(ctx context.Context, marketID int64, symbol, resolution string, countBack int) ([]core.Kline, error)
	Account(ctx context.Context, accountIndex int64) (core.Account, error)
	NextNonce(ctx context.Context, accountIndex int64, apiKeyIndex uint8) (int64, error)
	SendTx(ctx context.Context, txType int, txInfo []byte, auth string) (string, error)
}

// Gateway is the lighter exchange connection for one market.
type Gateway struct {
	cfg     config.Config
	rest    restBackend
	alerter alert.Alerter
	pacer   *safety.Pacer
	nonces  *nonce.Manager
	builder *txBuilder
	auth    *authCache

	rulesMu sync.Mutex
	rules   *core.Rules
	book    *bookState

	account *accountState
	orders  *orderState

	accountStream *bus.Stream[core.Account]
	ordersStream  *bus.Stream[[]core.Order]
	bookStream    *bus.Stream[core.OrderBook]
	tickerStream  *bus.Stream[core.Ticker]

	klineMu      sync.Mutex
	klineStreams map[string]*bus.Stream[[]core.Kline]
	klinePollers map[string]bool

	pendingMu sync.Mutex
	pending   map[string]string
	owned     map[string]bool

	wsDegraded atomic.Bool

	startMu   sync.Mutex
	started   bool
	runCtx    context.Context
	cancelRun context.CancelFunc
	sess      *session
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New builds a gateway from validated configuration. It loads every signing
// key eagerly so a bad key fails startup instead of the first order.
func New(cfg config.Config, alerter alert.Alerter) (*Gateway, error) {
	if len(cfg.Exchange.SigningKeys) == 0 {
		return nil, fmt.Errorf("at least one signing key required")
	}
	signers := make([]Signer, 0, len(cfg.Exchange.SigningKeys))
	keys := make([]nonce.Key, 0, len(cfg.Exchange.SigningKeys))
	for _, kc := range cfg.Exchange.SigningKeys {
		signer, err := NewKeySignerFromMaterial(kc.Index, kc.PrivateKey, kc.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("signing key %d: %w", kc.Index, err)
		}
		signers = append(signers, signer)
		keys = append(keys, nonce.Key{AccountIndex: cfg.Exchange.AccountIndex, APIKeyIndex: kc.Index})
	}
	builder, err := newTxBuilder(cfg.Exchange.AccountIndex, signers)
	if err != nil {
		return nil, err
	}
	rest := newRESTClient(restOptions{
		BaseURL:    cfg.Exchange.RestBaseURL,
		Timeout:    time.Duration(cfg.Exchange.HTTPTimeoutSec) * time.Second,
		RatePerSec: cfg.Exchange.RestRatePerSec,
		Burst:      cfg.Exchange.RestBurst,
	})
	pacer := safety.NewPacer(safety.PacerConfig{
		MinInterval:    time.Duration(cfg.Pacing.MinIntervalMs) * time.Millisecond,
		PauseDuration:  time.Duration(cfg.Pacing.PauseSec) * time.Second,
		RecoveryWindow: time.Duration(cfg.Pacing.RecoveryWindowSec) * time.Second,
	})
	pacer.SetAlerter(alerter)
	g := &Gateway{
		cfg:           cfg,
		rest:          rest,
		alerter:       alerter,
		pacer:         pacer,
		nonces:        nonce.NewManager(keys),
		builder:       builder,
		auth:          newAuthCache(signers[0], cfg.Exchange.AccountIndex),
		account:       newAccountState(),
		orders:        newOrderState(),
		accountStream: bus.NewStream[core.Account]("account"),
		ordersStream:  bus.NewStream[[]core.Order]("orders"),
		bookStream:    bus.NewStream[core.OrderBook]("order_book"),
		tickerStream:  bus.NewStream[core.Ticker]("ticker"),
		klineStreams:  make(map[string]*bus.Stream[[]core.Kline]),
		klinePollers:  make(map[string]bool),
		pending:       make(map[string]string),
		owned:         make(map[string]bool),
	}
	return g, nil
}

func (g *Gateway) Name() string { return "lighter" }

// Start resolves market rules, bootstraps the nonce counters, loads the
// initial account snapshot, connects the push session, and launches the
// polling feeds. It returns once the session is ready; a failure at any step
// leaves nothing running.
func (g *Gateway) Start(ctx context.Context) error {
	g.startMu.Lock()
	defer g.startMu.Unlock()
	if g.started {
		return fmt.Errorf("gateway already started")
	}
	rules, err := g.Precision(ctx)
	if err != nil {
		return err
	}
	if err := g.nonces.Bootstrap(ctx, g.rest); err != nil {
		return err
	}
	acct, err := g.rest.Account(ctx, g.cfg.Exchange.AccountIndex)
	if err != nil {
		return fmt.Errorf("initial account snapshot: %w", err)
	}
	g.account.Reset(acct)
	if snap, ok := g.account.Snapshot(); ok {
		g.accountStream.Publish(snap)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	sess := newSession(sessionConfig{
		URL:            g.cfg.Exchange.WSBaseURL,
		Channels:       g.channels(rules.MarketID),
		AuthToken:      g.auth.Token,
		OnMessage:      g.route,
		OnStateChange:  g.onSessionState,
		Heartbeat:      time.Duration(g.cfg.Polling.HeartbeatSec) * time.Second,
		StaleTimeout:   time.Duration(g.cfg.Polling.StaleTimeoutSec) * time.Second,
		ReconnectDelay: time.Duration(g.cfg.Polling.ReconnectDelaySec) * time.Second,
	})
	if err := sess.Run(ctx, runCtx); err != nil {
		cancel()
		return err
	}
	g.sess = sess
	g.runCtx = runCtx
	g.cancelRun = cancel
	g.started = true

	g.wg.Add(2)
	go g.tickerLoop(runCtx)
	go g.accountSyncLoop(runCtx)
	intervals := append([]string(nil), g.cfg.Polling.KlineIntervals...)
	g.klineMu.Lock()
	for interval := range g.klineStreams {
		intervals = append(intervals, interval)
	}
	g.klineMu.Unlock()
	for _, interval := range intervals {
		g.ensureKlinePoller(runCtx, interval)
	}
	return nil
}

// Close stops the session, the pollers, and all reconnect attempts.
func (g *Gateway) Close() error {
	g.closeOnce.Do(func() {
		g.startMu.Lock()
		cancel := g.cancelRun
		sess := g.sess
		g.startMu.Unlock()
		if cancel != nil {
			cancel()
		}
		if sess != nil {
			sess.Close()
		}
		g.wg.Wait()
	})
	return nil
}

func (g *Gateway) OnAccount(fn func(core.Account)) uint64 {
	return g.accountStream.Subscribe(fn)
}

func (g *Gateway) OnOrders(fn func([]core.Order)) uint64 {
	return g.ordersStream.Subscribe(fn)
}

func (g *Gateway) OnOrderBook(fn func(core.OrderBook)) uint64 {
	return g.bookStream.Subscribe(fn)
}

func (g *Gateway) OnTicker(fn func(core.Ticker)) uint64 {
	return g.tickerStream.Subscribe(fn)
}

// OnKlines subscribes to the kline feed for one resolution. The first
// subscriber of a resolution starts its poller; later subscribers share it.
func (g *Gateway) OnKlines(interval string, fn func([]core.Kline)) (uint64, error) {
	interval = strings.TrimSpace(interval)
	if interval == "" {
		return 0, fmt.Errorf("kline interval required")
	}
	id := g.klineStream(interval).Subscribe(fn)
	g.startMu.Lock()
	runCtx := g.runCtx
	running := g.started
	g.startMu.Unlock()
	if running {
		g.ensureKlinePoller(runCtx, interval)
	}
	return id, nil
}

// Precision resolves the market's rules once and caches them. Pinned
// configuration skips the metadata fetch entirely.
func (g *Gateway) Precision(ctx context.Context) (core.Rules, error) {
	g.rulesMu.Lock()
	defer g.rulesMu.Unlock()
	if g.rules != nil {
		return *g.rules, nil
	}
	ex := g.cfg.Exchange
	var rules core.Rules
	if ex.MarketID != nil && ex.PriceDecimals != nil && ex.SizeDecimals != nil {
		rules = core.Rules{
			MarketID:      *ex.MarketID,
			Symbol:        ex.MarketSymbol,
			PriceDecimals: *ex.PriceDecimals,
			SizeDecimals:  *ex.SizeDecimals,
		}
	} else {
		fetched, err := g.rest.MarketRules(ctx, ex.MarketSymbol)
		if err != nil {
			return core.Rules{}, err
		}
		rules = fetched
	}
	if ex.MinBaseQty.Sign() > 0 {
		rules.MinBaseQty = ex.MinBaseQty.Decimal
	}
	g.rules = &rules
	g.book = newBookState(rules.MarketID, g.cfg.Polling.BookDepth)
	return rules, nil
}

// CreateOrder submits a signed create-order transaction. The nonce advances
// optimistically and is reclaimed when the submission never reaches the
// exchange; a pacing pause blocks new exposure but lets reduce-only orders
// through.
// noteSubmitFailure reclaims the nonce burned by a failed submission and
// reacts to the failure kind: rate limits feed the pacer, auth rejections
// flush the cached token so the next attempt signs a fresh one.
func (g *Gateway) noteSubmitFailure(source string, iss nonce.Issued, err error) {
	g.nonces.AcknowledgeFailure(iss)
	if errors.Is(err, core.ErrRateLimited) {
		g.pacer.RegisterRateLimit(source)
	}
	if errors.Is(err, core.ErrAuth) {
		g.auth.Invalidate()
	}
	if apiErr, ok := AsAPIError(err); ok {
		g.alertImportant("submit_failed", map[string]string{
			"source": source,
			"code":   strconv.Itoa(apiErr.Code),
			"msg":    apiErr.Msg,
		})
	}
}

func (g *Gateway) CreateOrder(ctx context.Context, intent core.OrderIntent) (core.Order, error) {
	if !intent.ReduceOnly && !g.pacer.EntriesAllowed() {
		return core.Order{}, fmt.Errorf("entries suppressed in state %s: %w", g.pacer.State(), core.ErrRateLimited)
	}
	rules, err := g.Precision(ctx)
	if err != nil {
		return core.Order{}, err
	}
	intent, err = core.NormalizeIntent(intent, rules)
	if err != nil {
		return core.Order{}, err
	}
	baseBig, err := numeric.QuantityWithMinimum(intent.Qty.String(), rules.SizeDecimals)
	if err != nil {
		return core.Order{}, err
	}
	baseAmount, err := numeric.Int64(baseBig)
	if err != nil {
		return core.Order{}, err
	}
	var price int64
	if intent.Type != core.Market {
		priceBig, err := numeric.DecimalToScaled(intent.Price, rules.PriceDecimals)
		if err != nil {
			return core.Order{}, err
		}
		if price, err = numeric.Int64(priceBig); err != nil {
			return core.Order{}, err
		}
	}
	var trigger int64
	if intent.TriggerPrice.Sign() > 0 {
		triggerBig, err := numeric.DecimalToScaled(intent.TriggerPrice, rules.PriceDecimals)
		if err != nil {
			return core.Order{}, err
		}
		if trigger, err = numeric.Int64(triggerBig); err != nil {
			return core.Order{}, err
		}
	}
	clientIdx, clientID := g.clientOrderIndex(intent.ClientID)

	iss, err := g.nonces.Next()
	if err != nil {
		return core.Order{}, err
	}
	tx, err := g.builder.BuildCreateOrder(createOrderParams{
		MarketID:         rules.MarketID,
		ClientOrderIndex: clientIdx,
		BaseAmount:       baseAmount,
		Price:            price,
		IsAsk:            intent.Side == core.Sell,
		Type:             intent.Type,
		TIF:              intent.TIF,
		ReduceOnly:       intent.ReduceOnly,
		TriggerPrice:     trigger,
	}, iss)
	if err != nil {
		g.nonces.AcknowledgeFailure(iss)
		return core.Order{}, err
	}
	token, err := g.auth.Token()
	if err != nil {
		g.nonces.AcknowledgeFailure(iss)
		return core.Order{}, err
	}
	if _, err := g.rest.SendTx(ctx, tx.Type, tx.Info, token); err != nil {
		g.noteSubmitFailure("create_order", iss, err)
		return core.Order{}, fmt.Errorf("submit create order: %w", err)
	}

	now := time.Now()
	order := core.Order{
		ID:         "pending-" + clientID,
		ClientID:   clientID,
		Symbol:     g.cfg.Symbol,
		Side:       intent.Side,
		Type:       intent.Type,
		TIF:        intent.TIF,
		Price:      intent.Price,
		Qty:        intent.Qty,
		ReduceOnly: intent.ReduceOnly,
		Status:     core.OrderNew,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	g.orders.Apply(order)
	g.rememberPending(clientID, order.ID)
	g.ordersStream.Publish(g.orders.List())
	return order, nil
}

// CancelOrder removes the order from the live set before the exchange
// confirms; a failed submission restores it and reclaims the nonce.
func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	orderIndex, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: order id %q", core.ErrOrderNotFound, orderID)
	}
	rules, err := g.Precision(ctx)
	if err != nil {
		return err
	}
	prev, had := g.orders.Remove(orderID)
	restore := func() {
		if had {
			g.orders.Restore(prev)
		}
	}
	iss, err := g.nonces.Next()
	if err != nil {
		restore()
		return err
	}
	tx, err := g.builder.BuildCancelOrder(rules.MarketID, orderIndex, iss)
	if err != nil {
		g.nonces.AcknowledgeFailure(iss)
		restore()
		return err
	}
	token, err := g.auth.Token()
	if err != nil {
		g.nonces.AcknowledgeFailure(iss)
		restore()
		return err
	}
	if _, err := g.rest.SendTx(ctx, tx.Type, tx.Info, token); err != nil {
		g.noteSubmitFailure("cancel_order", iss, err)
		restore()
		return fmt.Errorf("submit cancel order: %w", err)
	}
	if had {
		g.ordersStream.Publish(g.orders.List())
	}
	return nil
}

// CancelAllOrders cancels every live order matching the filter. The empty
// filter maps onto the exchange's native cancel-all transaction; a side
// filter cancels the matching orders one by one.
func (g *Gateway) CancelAllOrders(ctx context.Context, filter core.CancelFilter) error {
	if filter.Side != "" {
		var errs []error
		for _, order := range g.orders.List() {
			if order.Side != filter.Side {
				continue
			}
			if err := g.CancelOrder(ctx, order.ID); err != nil {
				errs = append(errs, fmt.Errorf("cancel %s: %w", order.ID, err))
			}
		}
		return errors.Join(errs...)
	}
	rules, err := g.Precision(ctx)
	if err != nil {
		return err
	}
	removed := g.orders.List()
	for _, order := range removed {
		g.orders.Remove(order.ID)
	}
	restore := func() {
		for _, order := range removed {
			g.orders.Restore(order)
		}
	}
	iss, err := g.nonces.Next()
	if err != nil {
		restore()
		return err
	}
	tx, err := g.builder.BuildCancelAllOrders(rules.MarketID, iss)
	if err != nil {
		g.nonces.AcknowledgeFailure(iss)
		restore()
		return err
	}
	token, err := g.auth.Token()
	if err != nil {
		g.nonces.AcknowledgeFailure(iss)
		restore()
		return err
	}
	if _, err := g.rest.SendTx(ctx, tx.Type, tx.Info, token); err != nil {
		g.noteSubmitFailure("cancel_all", iss, err)
		restore()
		return fmt.Errorf("submit cancel all: %w", err)
	}
	if len(removed) > 0 {
		g.ordersStream.Publish(g.orders.List())
	}
	return nil
}

// OwnsClientID reports whether this gateway instance generated the client
// order id, so reconciliation can tell its own orders from foreign ones.
func (g *Gateway) OwnsClientID(clientID string) bool {
	g.pendingMu.Lock()
	defer g.pendingMu.Unlock()
	return g.owned[clientID]
}

func (g *Gateway) channels(marketID int64) []channelSpec {
	mid := strconv.FormatInt(marketID, 10)
	acct := strconv.FormatInt(g.cfg.Exchange.AccountIndex, 10)
	return []channelSpec{
		{name: "order_book/" + mid},
		{name: "account_all/" + acct, auth: true},
		{name: "account_all/" + mid + "/" + acct, auth: true},
		{name: "account_orders/" + mid + "/" + acct, auth: true},
	}
}

// route dispatches one inbound push message to its reconciler.
func (g *Gateway) route(msg *wsInbound) {
	kind, topic, ok := strings.Cut(msg.Type, "/")
	if !ok {
		return
	}
	switch topic {
	case "order_book":
		g.routeBook(kind == "subscribed", msg)
	case "account_all":
		g.routeAccount(msg)
	case "account_orders":
		g.routeOrders(msg)
	}
}

func (g *Gateway) routeBook(snapshot bool, msg *wsInbound) {
	g.rulesMu.Lock()
	book := g.book
	g.rulesMu.Unlock()
	if book == nil || msg.OrderBook == nil {
		return
	}
	offset := msg.OrderBook.Offset
	if offset == 0 {
		offset = msg.Offset
	}
	ts := msg.OrderBook.Timestamp
	if ts == 0 {
		ts = msg.Timestamp
	}
	var changed bool
	if snapshot {
		changed = book.ApplySnapshot(offset, ts, msg.OrderBook.Bids, msg.OrderBook.Asks)
	} else {
		changed = book.ApplyDelta(offset, ts, msg.OrderBook.Bids, msg.OrderBook.Asks)
	}
	if !changed {
		return
	}
	if snap, ok := book.Snapshot(); ok {
		g.bookStream.Publish(snap)
	}
}

func (g *Gateway) routeAccount(msg *wsInbound) {
	if msg.Account == nil {
		return
	}
	g.account.ApplyDelta(msg.Account, msg.Timestamp)
	if snap, ok := g.account.Snapshot(); ok {
		g.accountStream.Publish(snap)
	}
}

func (g *Gateway) routeOrders(msg *wsInbound) {
	touched := false
	for _, list := range msg.Orders {
		for _, wire := range list {
			order, ok := parseWireOrder(wire, g.cfg.Symbol)
			if !ok {
				continue
			}
			g.orders.Apply(order)
			g.clearPending(order.ClientID)
			if order.Status.IsTerminal() {
				g.forgetOwned(order.ClientID)
			}
			touched = true
		}
	}
	if touched {
		g.ordersStream.Publish(g.orders.List())
	}
}

func (g *Gateway) onSessionState(state sessionState) {
	switch state {
	case sessReconnectScheduled:
		if g.wsDegraded.CompareAndSwap(false, true) {
			g.alertImportant("ws_degraded", map[string]string{"state": string(state)})
		}
	case sessReady:
		if g.wsDegraded.CompareAndSwap(true, false) {
			g.alertImportant("ws_recovered", nil)
		}
	}
}

func (g *Gateway) alertImportant(event string, fields map[string]string) {
	if g.alerter == nil {
		return
	}
	g.alerter.Important(event, fields)
}

func (g *Gateway) tickerLoop(ctx context.Context) {
	defer g.wg.Done()
	rules, err := g.Precision(ctx)
	if err != nil {
		return
	}
	ticker := time.NewTicker(time.Duration(g.cfg.Polling.TickerIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if g.pacer.BeforeCycle() != safety.Run {
			continue
		}
		t, err := g.rest.Ticker(ctx, rules.MarketID, g.cfg.Symbol)
		hadLimit := errors.Is(err, core.ErrRateLimited)
		if hadLimit {
			g.pacer.RegisterRateLimit("ticker_poll")
		}
		if err == nil {
			g.tickerStream.Publish(t)
		}
		g.pacer.OnCycleComplete(hadLimit)
	}
}

// accountSyncLoop periodically replaces the reconciled account snapshot with
// the REST view, correcting any drift the push feed accumulated.
func (g *Gateway) accountSyncLoop(ctx context.Context) {
	defer g.wg.Done()
	ticker := time.NewTicker(time.Duration(g.cfg.Polling.AccountSyncIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		acct, err := g.rest.Account(ctx, g.cfg.Exchange.AccountIndex)
		if err != nil {
			if errors.Is(err, core.ErrRateLimited) {
				g.pacer.RegisterRateLimit("account_sync")
			}
			continue
		}
		g.account.Reset(acct)
		if snap, ok := g.account.Snapshot(); ok {
			g.accountStream.Publish(snap)
		}
	}
}

func (g *Gateway) klineStream(interval string) *bus.Stream[[]core.Kline] {
	g.klineMu.Lock()
	defer g.klineMu.Unlock()
	stream, ok := g.klineStreams[interval]
	if !ok {
		stream = bus.NewStream[[]core.Kline]("klines/" + interval)
		g.klineStreams[interval] = stream
	}
	return stream
}

// ensureKlinePoller starts the poller for one resolution at most once.
func (g *Gateway) ensureKlinePoller(ctx context.Context, interval string) {
	g.klineMu.Lock()
	if g.klinePollers[interval] {
		g.klineMu.Unlock()
		return
	}
	g.klinePollers[interval] = true
	g.klineMu.Unlock()
	g.wg.Add(1)
	go g.klineLoop(ctx, interval)
}

func (g *Gateway) klineLoop(ctx context.Context, interval string) {
	defer g.wg.Done()
	rules, err := g.Precision(ctx)
	if err != nil {
		return
	}
	stream := g.klineStream(interval)
	ticker := time.NewTicker(time.Duration(g.cfg.Polling.KlineIntervalSec) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		klines, err := g.rest.Candlesticks(ctx, rules.MarketID, g.cfg.Symbol, interval, klineCountBack)
		if err != nil {
			if errors.Is(err, core.ErrRateLimited) {
				g.pacer.RegisterRateLimit("kline_poll")
			}
			continue
		}
		if len(klines) > 0 {
			stream.Publish(klines)
		}
	}
}

// clientOrderIndex resolves the caller's client id or mints a fresh one. The
// generated index is tracked so OwnsClientID can answer for it later.
func (g *Gateway) clientOrderIndex(requested string) (int64, string) {
	if requested != "" {
		if v, err := strconv.ParseInt(requested, 10, 64); err == nil && v > 0 {
			g.rememberOwnedID(requested)
			return v, requested
		}
	}
	idx := newClientOrderIndex()
	clientID := strconv.FormatInt(idx, 10)
	g.rememberOwnedID(clientID)
	return idx, clientID
}

// newClientOrderIndex derives a positive int64 from a random uuid.
func newClientOrderIndex() int64 {
	id := uuid.New()
	v := int64(binary.BigEndian.Uint64(id[:8]) &^ (1 << 63))
	if v == 0 {
		v = 1
	}
	return v
}

func (g *Gateway) rememberOwnedID(clientID string) {
	g.pendingMu.Lock()
	g.owned[clientID] = true
	g.pendingMu.Unlock()
}

func (g *Gateway) forgetOwned(clientID string) {
	if clientID == "" {
		return
	}
	g.pendingMu.Lock()
	delete(g.owned, clientID)
	g.pendingMu.Unlock()
}

func (g *Gateway) rememberPending(clientID, placeholderID string) {
	g.pendingMu.Lock()
	g.pending[clientID] = placeholderID
	g.pendingMu.Unlock()
}

// clearPending drops the optimistic placeholder once the exchange's own
// record for the same client id arrives.
func (g *Gateway) clearPending(clientID string) {
	if clientID == "" {
		return
	}
	g.pendingMu.Lock()
	placeholder, ok := g.pending[clientID]
	if ok {
		delete(g.pending, clientID)
	}
	g.pendingMu.Unlock()
	if ok {
		g.orders.Remove(placeholder)
	}
}
