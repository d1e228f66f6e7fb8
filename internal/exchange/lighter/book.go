package lighter

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/monkeypipijy/ritmex-bot/internal/core"
)

// bookState merges order-book snapshots and deltas into a monotonically
// consistent view. Messages carry an offset and an event timestamp; anything
// older than what has already been applied is dropped as stale, which also
// makes replayed deltas idempotent.
type bookState struct {
	mu       sync.RWMutex
	marketID int64
	depth    int
	bids     map[string]decimal.Decimal
	asks     map[string]decimal.Decimal
	offset   int64
	lastTS   int64
	seeded   bool
}

func newBookState(marketID int64, depth int) *bookState {
	if depth <= 0 {
		depth = 50
	}
	return &bookState{
		marketID: marketID,
		depth:    depth,
		bids:     make(map[string]decimal.Decimal),
		asks:     make(map[string]decimal.Decimal),
	}
}

// ApplySnapshot replaces the book wholesale, subject to the ordering guard.
func (b *bookState) ApplySnapshot(offset, ts int64, bids, asks []wsBookLevel) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.seeded && !b.acceptLocked(offset, ts) {
		return false
	}
	b.bids = make(map[string]decimal.Decimal, len(bids))
	b.asks = make(map[string]decimal.Decimal, len(asks))
	mergeLevels(b.bids, bids)
	mergeLevels(b.asks, asks)
	b.finishLocked(offset, ts)
	return true
}

// ApplyDelta merges a partial update level-by-level: zero (or non-positive)
// size removes the price level, anything else replaces it.
func (b *bookState) ApplyDelta(offset, ts int64, bids, asks []wsBookLevel) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.seeded || !b.acceptLocked(offset, ts) {
		return false
	}
	mergeLevels(b.bids, bids)
	mergeLevels(b.asks, asks)
	b.finishLocked(offset, ts)
	return true
}

// acceptLocked is the stale/duplicate guard: a message is applied only when
// its offset advances, or matches with a strictly newer event timestamp.
func (b *bookState) acceptLocked(offset, ts int64) bool {
	if offset > b.offset {
		return true
	}
	return offset == b.offset && ts > b.lastTS
}

func (b *bookState) finishLocked(offset, ts int64) {
	b.offset = offset
	b.lastTS = ts
	b.seeded = true
	b.truncateLocked()
}

// truncateLocked re-sorts both sides and evicts levels beyond the configured
// depth so the book cannot grow without bound.
func (b *bookState) truncateLocked() {
	for _, side := range []struct {
		levels map[string]decimal.Decimal
		desc   bool
	}{{b.bids, true}, {b.asks, false}} {
		if len(side.levels) <= b.depth {
			continue
		}
		prices := sortedPrices(side.levels, side.desc)
		for _, price := range prices[b.depth:] {
			delete(side.levels, price.String())
		}
	}
}

// Snapshot builds the externally-visible book: bids descending, asks
// ascending, truncated to depth.
func (b *bookState) Snapshot() (core.OrderBook, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.seeded {
		return core.OrderBook{}, false
	}
	book := core.OrderBook{
		MarketID:  b.marketID,
		Offset:    b.offset,
		Bids:      buildSide(b.bids, true, b.depth),
		Asks:      buildSide(b.asks, false, b.depth),
		UpdatedAt: time.UnixMilli(b.lastTS),
	}
	return book, true
}

func mergeLevels(side map[string]decimal.Decimal, levels []wsBookLevel) {
	for _, level := range levels {
		price, err := decimal.NewFromString(level.Price)
		if err != nil {
			continue
		}
		size, err := decimal.NewFromString(level.Size)
		if err != nil {
			continue
		}
		key := price.String()
		if size.Cmp(decimal.Zero) <= 0 {
			delete(side, key)
			continue
		}
		side[key] = size
	}
}

func sortedPrices(side map[string]decimal.Decimal, desc bool) []decimal.Decimal {
	prices := make([]decimal.Decimal, 0, len(side))
	for key := range side {
		price, err := decimal.NewFromString(key)
		if err != nil {
			continue
		}
		prices = append(prices, price)
	}
	sort.Slice(prices, func(i, j int) bool {
		if desc {
			return prices[i].Cmp(prices[j]) > 0
		}
		return prices[i].Cmp(prices[j]) < 0
	})
	return prices
}

func buildSide(side map[string]decimal.Decimal, desc bool, depth int) []core.BookLevel {
	prices := sortedPrices(side, desc)
	if len(prices) > depth {
		prices = prices[:depth]
	}
	levels := make([]core.BookLevel, 0, len(prices))
	for _, price := range prices {
		levels = append(levels, core.BookLevel{Price: price, Size: side[price.String()]})
	}
	return levels
}
