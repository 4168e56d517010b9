package sniper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamza-farooq/solsniper/internal/amm"
	"github.com/hamza-farooq/solsniper/internal/config"
)

// fakeMarket plays the prober, price, liquidity and reserve roles.
type fakeMarket struct {
	mu sync.Mutex

	pool         *PoolInfo
	probeMisses  int // probes returning (nil, nil) before the pool appears
	probes       int
	prices       []float64
	priceCalls   int
	liquidityUSD float64
	liquidityErr error
	solReserve   float64
	tokenReserve float64
}

func (m *fakeMarket) ProbePool(_ context.Context, _ solana.PublicKey) (*PoolInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes++
	if m.probes <= m.probeMisses {
		return nil, nil
	}
	return m.pool, nil
}

func (m *fakeMarket) LivePrice(_ context.Context, _ solana.PublicKey) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.priceCalls
	m.priceCalls++
	if i >= len(m.prices) {
		i = len(m.prices) - 1
	}
	return m.prices[i], nil
}

func (m *fakeMarket) LiquidityUSD(_ context.Context, _ solana.PublicKey) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.liquidityErr != nil {
		return 0, m.liquidityErr
	}
	return m.liquidityUSD, nil
}

func (m *fakeMarket) PoolReserves(_ context.Context, _ *PoolInfo) (float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.solReserve <= 0 {
		return 0, 0, errors.New("reserves unavailable")
	}
	return m.solReserve, m.tokenReserve, nil
}

type fakeExecutor struct {
	mu sync.Mutex

	buyReceipt *TradeReceipt
	buyErr     error
	sellErr    error

	buys      int
	sells     int
	lastSpend float64
}

func (e *fakeExecutor) Buy(_ context.Context, _ solana.PublicKey, solAmount float64) (*TradeReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.buys++
	e.lastSpend = solAmount
	if e.buyErr != nil {
		return nil, e.buyErr
	}
	return e.buyReceipt, nil
}

func (e *fakeExecutor) Sell(_ context.Context, _ solana.PublicKey, tokenAmount float64) (*TradeReceipt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sells++
	if e.sellErr != nil {
		return nil, e.sellErr
	}
	return &TradeReceipt{Signature: "sellsig", SolReceived: tokenAmount * 0.0001}, nil
}

type fakeDeny struct {
	blocked map[string]string
}

func (d *fakeDeny) CheckAddress(_ context.Context, addr solana.PublicKey) (Denial, error) {
	if reason, ok := d.blocked[addr.String()]; ok {
		return Denial{Blocked: true, Reason: reason}, nil
	}
	return Denial{}, nil
}

type fakeQuotes struct {
	buy  amm.Impact
	sell amm.Impact
	err  error
}

func (q *fakeQuotes) BuyImpact(_ context.Context, _ solana.PublicKey, _ float64) (amm.Impact, error) {
	return q.buy, q.err
}

func (q *fakeQuotes) SellImpact(_ context.Context, _ solana.PublicKey, _ float64) (amm.Impact, error) {
	return q.sell, q.err
}

type captureSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *captureSink) Emit(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	s.mu.Unlock()
}

func (s *captureSink) types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, ev := range s.events {
		out[i] = ev.Type
	}
	return out
}

type memRecorder struct {
	mu      sync.Mutex
	records []TradeRecord
}

func (r *memRecorder) RecordTrade(_ context.Context, rec TradeRecord) error {
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		PollInterval:      time.Millisecond,
		PoolMaxWait:       200 * time.Millisecond,
		TickInterval:      time.Millisecond,
		TrailingEnabled:   true,
		TrailingLowPct:    12,
		TrailingHighPct:   15,
		TakeProfitEnabled: true,
		TakeProfitPct:     7,
		DrainEnabled:      true,
		DrainWindowMin:    5 * time.Second,
		DrainWindowMax:    30 * time.Second,
		DrainTriggerPct:   15,
		SignalsEnabled:    true,
		MaxBuyImpactPct:   10,
		MaxSellImpactPct:  15,
		Bands: []config.LiquidityBand{
			{MinUSD: 1000, MaxSpendSOL: 0.1},
			{MinUSD: 5000, MaxSpendSOL: 0.5},
		},
		RetryBackoff: time.Millisecond,
	}
}

func TestWaitAndSnipe_HappyPath(t *testing.T) {
	pool := testPool()
	market := &fakeMarket{
		pool:         pool,
		probeMisses:  2,
		prices:       []float64{0.0001, 0.0002}, // doubles, take profit fires
		liquidityUSD: 6000,
	}
	exec := &fakeExecutor{buyReceipt: &TradeReceipt{
		Signature: "buysig", Price: 0.0001, TokensOut: 5000,
	}}
	sink := &captureSink{}
	recorder := &memRecorder{}
	tracker := NewTracker()

	orch, err := NewOrchestrator(testConfig(t), nil, Collaborators{
		Prober:    market,
		Price:     market,
		Liquidity: market,
		Executor:  exec,
		Quotes:    &fakeQuotes{buy: amm.Percent(2), sell: amm.Percent(3)},
		Sink:      sink,
		History:   recorder,
		Tracker:   tracker,
	})
	require.NoError(t, err)

	decision, err := orch.WaitAndSnipe(context.Background(), pool.TokenMint, 2)
	require.NoError(t, err)
	require.NotNil(t, decision)
	assert.Equal(t, StrategyTakeProfit, decision.Strategy)

	// Desired 2 SOL was clamped to the 6000-liquidity band cap.
	assert.Equal(t, 0.5, exec.lastSpend)
	assert.Equal(t, 1, exec.buys)
	assert.Equal(t, 1, exec.sells)

	types := sink.types()
	assert.Contains(t, types, "pool-found")
	assert.Contains(t, types, "buy-success")
	assert.Contains(t, types, "exit-take_profit")

	require.Len(t, recorder.records, 2)
	assert.Equal(t, "buy", recorder.records[0].Side)
	assert.Equal(t, "sell", recorder.records[1].Side)
	assert.Equal(t, StrategyTakeProfit, recorder.records[1].Strategy)
	assert.Greater(t, recorder.records[1].PnLPercent, 0.0)

	snap := tracker.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, StateClosed, snap[0].State)
}

func TestWaitAndSnipe_PoolTimeout(t *testing.T) {
	market := &fakeMarket{probeMisses: 1 << 30, prices: []float64{1}}
	exec := &fakeExecutor{}

	orch, err := NewOrchestrator(testConfig(t), nil, Collaborators{
		Prober: market, Price: market, Liquidity: market, Executor: exec,
	})
	require.NoError(t, err)

	_, err = orch.WaitAndSnipe(context.Background(), solana.NewWallet().PublicKey(), 1)
	assert.ErrorIs(t, err, ErrPoolTimeout)
	assert.Zero(t, exec.buys)
}

func TestWaitAndSnipe_DeniedCreator(t *testing.T) {
	pool := testPool()
	pool.Creator = solana.NewWallet().PublicKey()
	market := &fakeMarket{pool: pool, prices: []float64{1}, liquidityUSD: 6000}
	exec := &fakeExecutor{}

	orch, err := NewOrchestrator(testConfig(t), nil, Collaborators{
		Prober: market, Price: market, Liquidity: market, Executor: exec,
		Deny: &fakeDeny{blocked: map[string]string{pool.Creator.String(): "serial rugger"}},
	})
	require.NoError(t, err)

	_, err = orch.WaitAndSnipe(context.Background(), pool.TokenMint, 1)

	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.Equal(t, "denylist", policyErr.Rule)
	assert.Zero(t, exec.buys, "no funds may move after a policy rejection")
}

func TestWaitAndSnipe_LiquidityBelowBands(t *testing.T) {
	pool := testPool()
	market := &fakeMarket{pool: pool, prices: []float64{1}, liquidityUSD: 500}
	exec := &fakeExecutor{}

	orch, err := NewOrchestrator(testConfig(t), nil, Collaborators{
		Prober: market, Price: market, Liquidity: market, Executor: exec,
	})
	require.NoError(t, err)

	_, err = orch.WaitAndSnipe(context.Background(), pool.TokenMint, 1)

	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.Equal(t, "liquidity", policyErr.Rule)
	assert.Zero(t, exec.buys)
}

func TestWaitAndSnipe_BuyImpactOverCap(t *testing.T) {
	pool := testPool()
	market := &fakeMarket{pool: pool, prices: []float64{1}, liquidityUSD: 6000}
	exec := &fakeExecutor{}

	orch, err := NewOrchestrator(testConfig(t), nil, Collaborators{
		Prober: market, Price: market, Liquidity: market, Executor: exec,
		Quotes: &fakeQuotes{buy: amm.Percent(25)},
	})
	require.NoError(t, err)

	_, err = orch.WaitAndSnipe(context.Background(), pool.TokenMint, 1)

	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.Equal(t, "impact", policyErr.Rule)
	assert.Zero(t, exec.buys)
}

func TestWaitAndSnipe_ReserveFallbackImpact(t *testing.T) {
	// No quote source; reserves of 100 SOL / 1M tokens make a 0.5 SOL buy
	// pass, and the tiny pool variant rejects it.
	pool := testPool()
	okMarket := &fakeMarket{
		pool: pool, prices: []float64{0.0001, 0.0002}, liquidityUSD: 6000,
		solReserve: 100, tokenReserve: 1_000_000,
	}
	exec := &fakeExecutor{buyReceipt: &TradeReceipt{Signature: "s", Price: 0.0001, TokensOut: 100}}

	orch, err := NewOrchestrator(testConfig(t), nil, Collaborators{
		Prober: okMarket, Price: okMarket, Liquidity: okMarket, Executor: exec,
		Reserves: okMarket,
	})
	require.NoError(t, err)

	_, err = orch.WaitAndSnipe(context.Background(), pool.TokenMint, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 1, exec.buys)

	tinyMarket := &fakeMarket{
		pool: pool, prices: []float64{1}, liquidityUSD: 6000,
		solReserve: 2, tokenReserve: 10_000,
	}
	exec2 := &fakeExecutor{}
	orch2, err := NewOrchestrator(testConfig(t), nil, Collaborators{
		Prober: tinyMarket, Price: tinyMarket, Liquidity: tinyMarket, Executor: exec2,
		Reserves: tinyMarket,
	})
	require.NoError(t, err)

	_, err = orch2.WaitAndSnipe(context.Background(), pool.TokenMint, 0.5)
	var policyErr *PolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.Equal(t, "impact", policyErr.Rule)
	assert.Zero(t, exec2.buys)
}

func TestWaitAndSnipe_BuyFailure(t *testing.T) {
	pool := testPool()
	market := &fakeMarket{pool: pool, prices: []float64{1}, liquidityUSD: 6000}
	exec := &fakeExecutor{buyErr: errors.New("blockhash expired")}

	orch, err := NewOrchestrator(testConfig(t), nil, Collaborators{
		Prober: market, Price: market, Liquidity: market, Executor: exec,
	})
	require.NoError(t, err)

	_, err = orch.WaitAndSnipe(context.Background(), pool.TokenMint, 0.1)

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, "buy", execErr.Op)
	assert.Zero(t, exec.sells, "monitoring never starts after a failed buy")
}

func TestWaitAndSnipe_SellImpactAbortsSellNotDecision(t *testing.T) {
	pool := testPool()
	market := &fakeMarket{pool: pool, prices: []float64{0.0001, 0.0002}, liquidityUSD: 6000}
	exec := &fakeExecutor{buyReceipt: &TradeReceipt{Signature: "s", Price: 0.0001, TokensOut: 100}}
	sink := &captureSink{}

	orch, err := NewOrchestrator(testConfig(t), nil, Collaborators{
		Prober: market, Price: market, Liquidity: market, Executor: exec,
		Quotes: &fakeQuotes{buy: amm.Percent(1), sell: amm.Percent(40)},
		Sink:   sink,
	})
	require.NoError(t, err)

	decision, err := orch.WaitAndSnipe(context.Background(), pool.TokenMint, 0.1)
	require.NoError(t, err)
	require.NotNil(t, decision, "the decision stands even when the sell is aborted")
	assert.Zero(t, exec.sells)
	assert.Contains(t, sink.types(), "sell-aborted")
}

func TestWaitAndSnipe_EntryPriceFallback(t *testing.T) {
	// Receipt has no realized price; the orchestrator falls back to the
	// live price source for the entry.
	pool := testPool()
	market := &fakeMarket{pool: pool, prices: []float64{0.0001, 0.0002}, liquidityUSD: 6000}
	exec := &fakeExecutor{buyReceipt: &TradeReceipt{Signature: "s", TokensOut: 100}}

	orch, err := NewOrchestrator(testConfig(t), nil, Collaborators{
		Prober: market, Price: market, Liquidity: market, Executor: exec,
	})
	require.NoError(t, err)

	decision, err := orch.WaitAndSnipe(context.Background(), pool.TokenMint, 0.1)
	require.NoError(t, err)
	assert.Equal(t, StrategyTakeProfit, decision.Strategy)
}
