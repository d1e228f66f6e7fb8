package lighter

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/monkeypipijy/ritmex-bot/internal/core"
)

func TestAccountDeltaBeforeResetStillSeeds(t *testing.T) {
	a := newAccountState()
	if _, ok := a.Snapshot(); ok {
		t.Fatalf("fresh state produced a snapshot")
	}
	a.ApplyDelta(&wsAccount{Collateral: "1000"}, 1)
	snap, ok := a.Snapshot()
	if !ok {
		t.Fatalf("no snapshot after delta")
	}
	if !snap.Collateral.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("collateral = %s", snap.Collateral)
	}
}

func TestAccountPartialDeltaPreservesRest(t *testing.T) {
	a := newAccountState()
	a.Reset(core.Account{
		Collateral: decimal.NewFromInt(500),
		Available:  decimal.NewFromInt(200),
	})
	a.ApplyDelta(&wsAccount{AvailableBalance: "150"}, 2)
	snap, _ := a.Snapshot()
	if !snap.Collateral.Equal(decimal.NewFromInt(500)) {
		t.Fatalf("collateral changed: %s", snap.Collateral)
	}
	if !snap.Available.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("available = %s, want 150", snap.Available)
	}
}

func TestAccountZeroSizeRemovesPosition(t *testing.T) {
	a := newAccountState()
	a.ApplyDelta(&wsAccount{Positions: map[string]wsPosition{
		"1": {MarketID: 1, Symbol: "ETH", Sign: 1, Position: "2.5", AvgEntryPrice: "2000"},
	}}, 1)
	snap, _ := a.Snapshot()
	if len(snap.Positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(snap.Positions))
	}

	a.ApplyDelta(&wsAccount{Positions: map[string]wsPosition{
		"1": {MarketID: 1, Symbol: "ETH", Sign: 1, Position: "0"},
	}}, 2)
	snap, _ = a.Snapshot()
	if len(snap.Positions) != 0 {
		t.Fatalf("zero-size position retained: %v", snap.Positions)
	}
}

func TestAccountZeroCrossingReplacesSide(t *testing.T) {
	a := newAccountState()
	a.ApplyDelta(&wsAccount{Positions: map[string]wsPosition{
		"1": {MarketID: 1, Symbol: "ETH", Sign: 1, Position: "1.0"},
	}}, 1)
	a.ApplyDelta(&wsAccount{Positions: map[string]wsPosition{
		"1": {MarketID: 1, Symbol: "ETH", Sign: -1, Position: "0.4"},
	}}, 2)
	snap, _ := a.Snapshot()
	if len(snap.Positions) != 1 {
		t.Fatalf("positions = %v, want one short", snap.Positions)
	}
	pos, ok := snap.Positions[core.PositionKey{MarketID: 1, Side: core.Sell}]
	if !ok {
		t.Fatalf("short side missing after crossing: %v", snap.Positions)
	}
	if !pos.Size.Equal(decimal.NewFromFloat(-0.4)) {
		t.Fatalf("size = %s, want -0.4", pos.Size)
	}
	if _, long := snap.Positions[core.PositionKey{MarketID: 1, Side: core.Buy}]; long {
		t.Fatalf("long side survived the crossing")
	}
}

func TestAccountResetCorrectsDrift(t *testing.T) {
	a := newAccountState()
	a.ApplyDelta(&wsAccount{Positions: map[string]wsPosition{
		"1": {MarketID: 1, Symbol: "ETH", Sign: 1, Position: "3"},
		"2": {MarketID: 2, Symbol: "BTC", Sign: 1, Position: "1"},
	}}, 1)
	a.Reset(core.Account{
		Collateral: decimal.NewFromInt(100),
		Positions: map[core.PositionKey]core.Position{
			{MarketID: 2, Side: core.Buy}: {MarketID: 2, Symbol: "BTC", Side: core.Buy, Size: decimal.NewFromInt(1)},
		},
	})
	snap, _ := a.Snapshot()
	if len(snap.Positions) != 1 {
		t.Fatalf("reset kept drifted positions: %v", snap.Positions)
	}
}

func TestAccountSnapshotIsACopy(t *testing.T) {
	a := newAccountState()
	a.ApplyDelta(&wsAccount{Positions: map[string]wsPosition{
		"1": {MarketID: 1, Symbol: "ETH", Sign: 1, Position: "1"},
	}}, 1)
	snap, _ := a.Snapshot()
	delete(snap.Positions, core.PositionKey{MarketID: 1, Side: core.Buy})
	again, _ := a.Snapshot()
	if len(again.Positions) != 1 {
		t.Fatalf("mutating a snapshot reached internal state")
	}
}
