package sniper

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/hamza-farooq/solsniper/internal/amm"
	"github.com/hamza-farooq/solsniper/internal/config"
)

// QuoteSource answers "what would this trade cost me" via an external
// aggregator. Preferred over the constant-product fallback; the two are
// never averaged.
type QuoteSource interface {
	BuyImpact(ctx context.Context, mint solana.PublicKey, solIn float64) (amm.Impact, error)
	SellImpact(ctx context.Context, mint solana.PublicKey, tokenAmount float64) (amm.Impact, error)
}

// ReserveSource exposes raw pool reserves for the AMM-formula fallback.
type ReserveSource interface {
	PoolReserves(ctx context.Context, pool *PoolInfo) (solReserve, tokenReserve float64, err error)
}

// TradeRecord is one persisted side of a snipe, handed to the history store.
type TradeRecord struct {
	Timestamp   time.Time
	Mint        string
	Pool        string
	Amm         AmmKind
	Side        string // "buy" or "sell"
	Signature   string
	SolAmount   float64
	TokenAmount float64
	Price       float64
	PnLPercent  float64
	Strategy    StrategyName
	Reason      string
}

// TradeRecorder persists trade history. Best effort; failures are logged,
// never propagated.
type TradeRecorder interface {
	RecordTrade(ctx context.Context, rec TradeRecord) error
}

// Collaborators bundles everything the orchestrator talks to. Prober,
// Price, Liquidity and Executor are required; the rest degrade gracefully
// when nil.
type Collaborators struct {
	Prober    PoolProber
	Price     PriceSource
	Liquidity LiquiditySource
	Executor  TradeExecutor

	Deny     DenyChecker
	Quotes   QuoteSource
	Reserves ReserveSource
	Sink     EventSink
	Signals  *SignalWatcher
	History  TradeRecorder
	Tracker  *Tracker
}

// Orchestrator runs the whole snipe flow for one position at a time: wait
// for the pool, safety checks, size the position, buy, then hand off to an
// exit controller until one strategy fires.
type Orchestrator struct {
	cfg    *config.Config
	logger *logrus.Logger
	co     Collaborators
}

func NewOrchestrator(cfg *config.Config, logger *logrus.Logger, co Collaborators) (*Orchestrator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if co.Prober == nil || co.Price == nil || co.Liquidity == nil || co.Executor == nil {
		return nil, fmt.Errorf("prober, price, liquidity and executor collaborators are required")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Orchestrator{cfg: cfg, logger: logger, co: co}, nil
}

// WaitAndSnipe is the core entry point: it blocks until the position is
// closed and returns the single exit decision, or fails with a timeout,
// policy or execution error before any monitoring starts.
func (o *Orchestrator) WaitAndSnipe(ctx context.Context, mint solana.PublicKey, desiredSOL float64) (*ExitDecision, error) {
	if desiredSOL <= 0 {
		return nil, fmt.Errorf("desired amount must be > 0")
	}

	pool, err := WaitForPool(ctx, o.logger, mint, o.co.Prober, o.cfg.PoolMaxWait, o.cfg.PollInterval)
	if err != nil {
		return nil, err
	}
	o.emit(Event{Type: "pool-found", Level: "info", Title: "pool detected",
		Body: fmt.Sprintf("%s pool %s for mint %s", pool.Kind, pool.Address, pool.TokenMint)})

	if err := o.checkDenied(ctx, pool); err != nil {
		return nil, err
	}

	liq, err := o.liquidityWithRetry(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("liquidity lookup failed: %w", err)
	}

	spendCap, ok := o.cfg.MaxSpendFor(liq)
	if !ok {
		return nil, &PolicyError{
			Rule:   "liquidity",
			Reason: fmt.Sprintf("liquidity $%.0f below all configured bands", liq),
		}
	}
	spend := math.Min(desiredSOL, spendCap)

	if err := o.checkBuyImpact(ctx, pool, spend); err != nil {
		return nil, err
	}

	receipt, err := o.co.Executor.Buy(ctx, mint, spend)
	if err != nil {
		return nil, &ExecutionError{Op: "buy", Err: err}
	}

	entry, err := o.entryPrice(ctx, mint, receipt)
	if err != nil {
		return nil, fmt.Errorf("entry price unavailable after buy: %w", err)
	}

	o.emit(Event{Type: "buy-success", Level: "info", Title: "position opened",
		Body: fmt.Sprintf("spent %.4f SOL on %s at %.10f", spend, mint, entry),
		Link: explorerLink(receipt.Signature)})
	o.record(ctx, TradeRecord{
		Timestamp: time.Now(), Mint: mint.String(), Pool: pool.Address.String(),
		Amm: pool.Kind, Side: "buy", Signature: receipt.Signature,
		SolAmount: spend, TokenAmount: receipt.TokensOut, Price: entry,
	})
	if o.co.Tracker != nil {
		o.co.Tracker.Open(pool, entry)
	}

	decision := o.monitor(ctx, pool, entry)
	if decision == nil {
		// Only cancellation gets here; the position is still open.
		if o.co.Tracker != nil {
			o.co.Tracker.Close(mint.String(), nil)
		}
		return nil, ctx.Err()
	}

	o.emit(Event{Type: "exit-" + string(decision.Strategy), Level: "warn",
		Title: fmt.Sprintf("exit: %s", decision.Strategy), Body: decision.Reason})
	if o.co.Tracker != nil {
		o.co.Tracker.Close(mint.String(), decision)
	}

	o.closePosition(ctx, pool, entry, receipt, decision)
	return decision, nil
}

// monitor builds the four strategies, arms the controller and runs the tick
// loop. Returns nil only when ctx was cancelled.
func (o *Orchestrator) monitor(ctx context.Context, pool *PoolInfo, entry float64) *ExitDecision {
	signals := o.co.Signals
	if signals == nil {
		signals = NewSignalWatcher(o.cfg.SignalsEnabled)
	} else {
		// A reused watcher must not carry signals from a previous position.
		signals.Reset()
	}

	drain := NewDrainWatcher(o.cfg.DrainEnabled, o.cfg.DrainWindowMax, o.cfg.DrainTriggerPct)
	mintStr := pool.TokenMint.String()
	lastLiq := 0.0

	onTick := func(price float64) {
		if o.co.Tracker != nil {
			o.co.Tracker.UpdatePrice(mintStr, price)
		}
		liq, err := o.co.Liquidity.LiquidityUSD(ctx, pool.TokenMint)
		if err != nil {
			o.logger.WithError(err).Debug("liquidity fetch failed, no drain sample this tick")
			return
		}
		if lastLiq > 0 {
			drain.PushPoolDelta((liq - lastLiq) / lastLiq * 100)
		}
		lastLiq = liq
	}

	ctrl := NewExitController(ControllerOptions{
		Logger:       o.logger,
		PriceSource:  o.co.Price,
		Trailing:     NewTrailingStop(o.cfg.TrailingEnabled, o.cfg.TrailingLowPct),
		TakeProfit:   NewTakeProfit(o.cfg.TakeProfitEnabled, o.cfg.TakeProfitPct),
		Drain:        drain,
		Signals:      signals,
		TickInterval: o.cfg.TickInterval,
		MaxHold:      o.cfg.MaxHold,
		OnTick:       onTick,
	})
	ctrl.Arm(entry)

	decision, err := ctrl.Run(ctx, pool.TokenMint)
	if err != nil {
		o.logger.WithError(err).Warn("monitoring stopped without a decision")
		return nil
	}
	return decision
}

// closePosition sells the bag after a decision. Failures here are reported
// through events and logs but never mask the decision itself: the lifecycle
// contract is one decision per position, and it already exists.
func (o *Orchestrator) closePosition(ctx context.Context, pool *PoolInfo, entry float64, buy *TradeReceipt, decision *ExitDecision) {
	if buy.TokensOut <= 0 {
		o.logger.Warn("buy receipt reported no token amount, skipping sell")
		return
	}

	if o.co.Quotes != nil {
		impact, err := o.co.Quotes.SellImpact(ctx, pool.TokenMint, buy.TokensOut)
		if err != nil {
			o.logger.WithError(err).Warn("sell impact quote unavailable")
		} else if impact.Exceeds(o.cfg.MaxSellImpactPct) {
			o.emit(Event{Type: "sell-aborted", Level: "error", Title: "sell aborted",
				Body: fmt.Sprintf("sell impact %s over %.1f%% cap", impact, o.cfg.MaxSellImpactPct)})
			return
		}
	}

	receipt, err := o.co.Executor.Sell(ctx, pool.TokenMint, buy.TokensOut)
	if err != nil {
		o.emit(Event{Type: "sell-failed", Level: "error", Title: "sell failed", Body: err.Error()})
		o.logger.WithError(err).Error("sell execution failed")
		return
	}

	pnl := 0.0
	if entry > 0 {
		pnl = (decision.PriceAtExit - entry) / entry * 100
	}
	o.record(ctx, TradeRecord{
		Timestamp: time.Now(), Mint: pool.TokenMint.String(), Pool: pool.Address.String(),
		Amm: pool.Kind, Side: "sell", Signature: receipt.Signature,
		SolAmount: receipt.SolReceived, TokenAmount: buy.TokensOut,
		Price: decision.PriceAtExit, PnLPercent: pnl,
		Strategy: decision.Strategy, Reason: decision.Reason,
	})
	o.logger.WithFields(logrus.Fields{
		"mint": pool.TokenMint.String(),
		"pnl":  fmt.Sprintf("%.2f%%", pnl),
		"sig":  receipt.Signature,
	}).Info("position closed")
}

func (o *Orchestrator) checkDenied(ctx context.Context, pool *PoolInfo) error {
	if o.co.Deny == nil {
		return nil
	}
	origin := pool.Creator
	if origin.IsZero() {
		origin = pool.Address
	}
	denial, err := o.co.Deny.CheckAddress(ctx, origin)
	if err != nil {
		// A broken deny list must not stall the snipe; it only narrows it.
		o.logger.WithError(err).Warn("deny-list check failed, proceeding")
		return nil
	}
	if denial.Blocked {
		return &PolicyError{Rule: "denylist",
			Reason: fmt.Sprintf("origin %s denied: %s", origin, denial.Reason)}
	}
	return nil
}

// checkBuyImpact prefers the aggregator quote and falls back to the
// constant-product formula when no quote is available. If neither source
// knows, the buy proceeds on the strength of the liquidity band check alone.
func (o *Orchestrator) checkBuyImpact(ctx context.Context, pool *PoolInfo, solIn float64) error {
	impact := amm.Unknown()

	if o.co.Quotes != nil {
		quoted, err := o.co.Quotes.BuyImpact(ctx, pool.TokenMint, solIn)
		if err != nil {
			o.logger.WithError(err).Debug("quote impact unavailable, falling back to reserves")
		} else {
			impact = quoted
		}
	}

	if !impact.Known() && o.co.Reserves != nil {
		solReserve, tokenReserve, err := o.co.Reserves.PoolReserves(ctx, pool)
		if err != nil {
			o.logger.WithError(err).Debug("reserve lookup failed")
		} else {
			impact = amm.Estimate(solReserve, tokenReserve, solIn)
		}
	}

	if !impact.Known() {
		o.logger.Warn("price impact unknown from both quote and reserves, proceeding on band check")
		return nil
	}
	if impact.Exceeds(o.cfg.MaxBuyImpactPct) {
		return &PolicyError{Rule: "impact",
			Reason: fmt.Sprintf("buy impact %s over %.1f%% cap", impact, o.cfg.MaxBuyImpactPct)}
	}
	return nil
}

func (o *Orchestrator) entryPrice(ctx context.Context, mint solana.PublicKey, receipt *TradeReceipt) (float64, error) {
	if receipt.Price > 0 {
		return receipt.Price, nil
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		p, err := o.co.Price.LivePrice(ctx, mint)
		if err == nil && p > 0 {
			return p, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(o.cfg.RetryBackoff):
		}
	}
	return 0, lastErr
}

func (o *Orchestrator) liquidityWithRetry(ctx context.Context, mint solana.PublicKey) (float64, error) {
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		liq, err := o.co.Liquidity.LiquidityUSD(ctx, mint)
		if err == nil {
			return liq, nil
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(o.cfg.RetryBackoff):
		}
	}
	return 0, lastErr
}

func (o *Orchestrator) emit(ev Event) {
	if o.co.Sink != nil {
		o.co.Sink.Emit(ev)
	}
}

func (o *Orchestrator) record(ctx context.Context, rec TradeRecord) {
	if o.co.History == nil {
		return
	}
	if err := o.co.History.RecordTrade(ctx, rec); err != nil {
		o.logger.WithError(err).Warn("trade history insert failed")
	}
}

func explorerLink(signature string) string {
	if signature == "" {
		return ""
	}
	return "https://solscan.io/tx/" + signature
}
