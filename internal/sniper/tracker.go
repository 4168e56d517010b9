package sniper

import (
	"sync"
	"time"
)

// PositionStatus is a read-only snapshot of one monitored position, served
// by the control API.
type PositionStatus struct {
	Mint         string          `json:"mint"`
	Pool         string          `json:"pool"`
	Amm          AmmKind         `json:"amm"`
	State        ControllerState `json:"state"`
	EntryPrice   float64         `json:"entry_price"`
	CurrentPrice float64         `json:"current_price"`
	PnLPercent   float64         `json:"pnl_percent"`
	OpenedAt     time.Time       `json:"opened_at"`
	Strategy     StrategyName    `json:"exit_strategy,omitempty"`
	ExitReason   string          `json:"exit_reason,omitempty"`
}

// Tracker keeps per-position status for observability. Positions run on
// their own goroutines, so the tracker locks; everything else about a
// position is single-threaded.
type Tracker struct {
	mu        sync.RWMutex
	positions map[string]*PositionStatus
}

func NewTracker() *Tracker {
	return &Tracker{positions: make(map[string]*PositionStatus)}
}

func (t *Tracker) Open(pool *PoolInfo, entryPrice float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions[pool.TokenMint.String()] = &PositionStatus{
		Mint:         pool.TokenMint.String(),
		Pool:         pool.Address.String(),
		Amm:          pool.Kind,
		State:        StateMonitoring,
		EntryPrice:   entryPrice,
		CurrentPrice: entryPrice,
		OpenedAt:     time.Now(),
	}
}

func (t *Tracker) UpdatePrice(mint string, price float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos, ok := t.positions[mint]
	if !ok {
		return
	}
	pos.CurrentPrice = price
	if pos.EntryPrice > 0 {
		pos.PnLPercent = (price - pos.EntryPrice) / pos.EntryPrice * 100
	}
}

func (t *Tracker) Close(mint string, decision *ExitDecision) {
	t.mu.Lock()
	defer t.mu.Unlock()
	pos, ok := t.positions[mint]
	if !ok {
		return
	}
	pos.State = StateClosed
	if decision != nil {
		pos.CurrentPrice = decision.PriceAtExit
		pos.Strategy = decision.Strategy
		pos.ExitReason = decision.Reason
		if pos.EntryPrice > 0 {
			pos.PnLPercent = (decision.PriceAtExit - pos.EntryPrice) / pos.EntryPrice * 100
		}
	}
}

// Snapshot returns copies of all tracked positions.
func (t *Tracker) Snapshot() []PositionStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]PositionStatus, 0, len(t.positions))
	for _, pos := range t.positions {
		out = append(out, *pos)
	}
	return out
}
