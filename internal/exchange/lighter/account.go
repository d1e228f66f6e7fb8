package lighter

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/monkeypipijy/ritmex-bot/internal/core"
)

// accountState reconciles partial account pushes against the authoritative
// snapshot fetched over REST. Positions live in a map keyed (market, side); a
// zero signed size removes the entry instead of storing it.
type accountState struct {
	mu     sync.RWMutex
	acct   core.Account
	seeded bool
}

func newAccountState() *accountState {
	return &accountState{
		acct: core.Account{
			Positions: make(map[core.PositionKey]core.Position),
		},
	}
}

// Reset replaces the whole snapshot, correcting any drift the partial push
// stream accumulated.
func (a *accountState) Reset(acct core.Account) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if acct.Positions == nil {
		acct.Positions = make(map[core.PositionKey]core.Position)
	}
	a.acct = acct
	a.seeded = true
}

// ApplyDelta merges a partial account push: only the balances and positions
// present in the message change.
func (a *accountState) ApplyDelta(msg *wsAccount, ts int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if msg.Collateral != "" {
		if v, err := decimal.NewFromString(msg.Collateral); err == nil {
			a.acct.Collateral = v
		}
	}
	if msg.AvailableBalance != "" {
		if v, err := decimal.NewFromString(msg.AvailableBalance); err == nil {
			a.acct.Available = v
		}
	}
	for _, wire := range msg.Positions {
		a.applyPositionLocked(wire)
	}
	if ts > 0 {
		a.acct.UpdatedAt = time.UnixMilli(ts)
	} else {
		a.acct.UpdatedAt = time.Now()
	}
	a.seeded = true
}

func (a *accountState) applyPositionLocked(wire wsPosition) {
	size, err := decimal.NewFromString(wire.Position)
	if err != nil {
		return
	}
	// A zero update removes whichever side was held for the market.
	if size.IsZero() {
		delete(a.acct.Positions, core.PositionKey{MarketID: wire.MarketID, Side: core.Buy})
		delete(a.acct.Positions, core.PositionKey{MarketID: wire.MarketID, Side: core.Sell})
		return
	}
	pos, ok := parsePosition(wire.MarketID, wire.Symbol, wire.Sign, wire.Position, wire.AvgEntryPrice, wire.UnrealizedPnL)
	if !ok {
		return
	}
	key := core.PositionKey{MarketID: pos.MarketID, Side: pos.Side}
	other := core.PositionKey{MarketID: pos.MarketID, Side: opposite(pos.Side)}
	delete(a.acct.Positions, other)
	a.acct.Positions[key] = pos
}

// Snapshot deep-copies the reconciled account so readers never observe a
// half-applied update.
func (a *accountState) Snapshot() (core.Account, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.seeded {
		return core.Account{}, false
	}
	out := a.acct
	out.Positions = make(map[core.PositionKey]core.Position, len(a.acct.Positions))
	for k, v := range a.acct.Positions {
		out.Positions[k] = v
	}
	return out, true
}

func opposite(side core.Side) core.Side {
	if side == core.Buy {
		return core.Sell
	}
	return core.Buy
}
