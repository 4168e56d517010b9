package sniper

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
)

// AmmKind identifies the venue a pool was created on.
type AmmKind string

const (
	AmmRaydium  AmmKind = "raydium"
	AmmPump     AmmKind = "pump"
	AmmCpmm     AmmKind = "cpmm"
	AmmPumpswap AmmKind = "pumpswap"
)

// PoolInfo describes a detected trading pool. It is produced once by the
// pool waiter and never mutated afterwards.
type PoolInfo struct {
	Kind      AmmKind
	Address   solana.PublicKey
	TokenMint solana.PublicKey
	// Creator is the address that originated the pool, if the prober was
	// able to resolve it. Zero value means unknown.
	Creator solana.PublicKey
}

// PriceSample is a single observation from the live price source.
type PriceSample struct {
	Timestamp time.Time
	Value     float64
}

// DrainSample records a signed pool liquidity change in percent.
// Negative means liquidity was removed.
type DrainSample struct {
	Timestamp    time.Time
	DeltaPercent float64
}

// SignalSource tells where a spam signal was observed.
type SignalSource string

const (
	SignalSourceSocial  SignalSource = "social"
	SignalSourceOnchain SignalSource = "onchain-origin"
)

// Severity grades a spam signal.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// SpamSignal is an externally produced warning about a token. The core only
// evaluates signals; producing them is someone else's job.
type SpamSignal struct {
	Source   SignalSource `json:"source"`
	Severity Severity     `json:"severity"`
	Reason   string       `json:"reason"`
}

// ExitDecision is the terminal output of a monitored position. Exactly one
// is produced per position.
type ExitDecision struct {
	Strategy    StrategyName
	Reason      string
	PriceAtExit float64
	DecidedAt   time.Time
}

// StrategyName identifies which exit evaluator fired.
type StrategyName string

const (
	StrategyTrailingStop StrategyName = "trailing_stop"
	StrategyTakeProfit   StrategyName = "take_profit"
	StrategyDrain        StrategyName = "drain"
	StrategySignal       StrategyName = "signal"
	StrategyMaxHold      StrategyName = "max_hold"
)

// TradeReceipt is what the executor reports back after a buy or sell.
type TradeReceipt struct {
	Signature   string
	Price       float64 // realized price in SOL per token, 0 if unknown
	TokensOut   float64 // tokens received on a buy
	SolReceived float64 // SOL received on a sell
}

// Denial is the result of a deny-list lookup.
type Denial struct {
	Blocked bool
	Reason  string
}

// Event is an observability record emitted by the orchestrator. Delivery is
// best effort; the core never depends on it.
type Event struct {
	Type  string `json:"type"`
	Level string `json:"level"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
	Link  string `json:"link,omitempty"`
}

// Collaborator capabilities. All of these are implemented outside the core
// and injected; network timeouts are their problem.

// PoolProber performs a single nonblocking pool lookup. A (nil, nil) return
// means "no pool yet".
type PoolProber interface {
	ProbePool(ctx context.Context, mint solana.PublicKey) (*PoolInfo, error)
}

// PriceSource reports the current token price in SOL.
type PriceSource interface {
	LivePrice(ctx context.Context, mint solana.PublicKey) (float64, error)
}

// LiquiditySource reports the pool's current liquidity valuation in USD.
type LiquiditySource interface {
	LiquidityUSD(ctx context.Context, mint solana.PublicKey) (float64, error)
}

// TradeExecutor performs the actual swaps. It may race multiple execution
// backends internally; the core only cares about success and the receipt.
type TradeExecutor interface {
	Buy(ctx context.Context, mint solana.PublicKey, solAmount float64) (*TradeReceipt, error)
	Sell(ctx context.Context, mint solana.PublicKey, tokenAmount float64) (*TradeReceipt, error)
}

// DenyChecker looks an address up on the deny list.
type DenyChecker interface {
	CheckAddress(ctx context.Context, addr solana.PublicKey) (Denial, error)
}

// EventSink receives observability events.
type EventSink interface {
	Emit(ev Event)
}
