package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/monkeypipijy/ritmex-bot/internal/alert"
	"github.com/monkeypipijy/ritmex-bot/internal/config"
	"github.com/monkeypipijy/ritmex-bot/internal/core"
	"github.com/monkeypipijy/ritmex-bot/internal/exchange/lighter"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config/config.yaml", "config yaml path")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		fatal(err.Error())
	}

	alerts := buildAlertManager(cfg)
	if alerts != nil {
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := alerts.Close(closeCtx); err != nil {
				fmt.Fprintf(os.Stderr, "close alert manager failed: %v\n", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := lighter.New(cfg, alerterFor(alerts))
	if err != nil {
		fatal(err.Error())
	}
	if err := gw.Start(ctx); err != nil {
		fatal(err.Error())
	}
	defer gw.Close()

	gw.OnTicker(func(t core.Ticker) {
		log.Printf("level=INFO event=ticker symbol=%s last=%s mark=%s", t.Symbol, t.LastPrice, t.MarkPrice)
	})
	gw.OnOrderBook(func(b core.OrderBook) {
		bid, hasBid := b.BestBid()
		ask, hasAsk := b.BestAsk()
		if !hasBid || !hasAsk {
			return
		}
		log.Printf(
			"level=INFO event=book market_id=%d offset=%d best_bid=%s best_bid_size=%s best_ask=%s best_ask_size=%s",
			b.MarketID, b.Offset, bid.Price, bid.Size, ask.Price, ask.Size,
		)
	})
	gw.OnAccount(func(a core.Account) {
		log.Printf(
			"level=INFO event=account collateral=%s available=%s positions=%d",
			a.Collateral, a.Available, len(a.Positions),
		)
	})
	gw.OnOrders(func(orders []core.Order) {
		log.Printf("level=INFO event=orders live=%d", len(orders))
	})
	for _, interval := range cfg.Polling.KlineIntervals {
		interval := interval
		if _, err := gw.OnKlines(interval, func(klines []core.Kline) {
			last := klines[len(klines)-1]
			log.Printf(
				"level=INFO event=kline symbol=%s interval=%s close=%s volume=%s",
				last.Symbol, interval, last.Close, last.Volume,
			)
		}); err != nil {
			fatal(err.Error())
		}
	}

	log.Printf(
		"level=INFO event=gateway_started exchange=%s env=%s symbol=%s instance=%s",
		gw.Name(), cfg.Env, cfg.Symbol, cfg.InstanceID,
	)
	<-ctx.Done()
	log.Printf("level=INFO event=shutdown symbol=%s instance=%s", cfg.Symbol, cfg.InstanceID)
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}

func buildAlertManager(cfg config.Config) *alert.Manager {
	if !cfg.Telegram.Enabled {
		return nil
	}
	notifier := alert.NewTelegramNotifier(
		cfg.Telegram.BotToken,
		cfg.Telegram.ChatID,
		cfg.Telegram.APIBaseURL,
		time.Duration(cfg.Telegram.TimeoutSec)*time.Second,
	)
	return alert.NewManager(string(cfg.Env), cfg.Symbol, notifier)
}

// alerterFor avoids handing the gateway a typed-nil interface.
func alerterFor(m *alert.Manager) alert.Alerter {
	if m == nil {
		return nil
	}
	return m
}
