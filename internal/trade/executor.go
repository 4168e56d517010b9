// Package trade executes buys and sells through the Jupiter aggregator and
// answers price-impact quotes for the policy gates.
package trade

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"

	"github.com/hamza-farooq/solsniper/internal/amm"
	"github.com/hamza-farooq/solsniper/internal/constants"
	"github.com/hamza-farooq/solsniper/internal/jupiter"
	"github.com/hamza-farooq/solsniper/internal/rpc"
	"github.com/hamza-farooq/solsniper/internal/sniper"
	"github.com/hamza-farooq/solsniper/internal/wallet"
)

type ExecutorConfig struct {
	SlippageBps         uint16
	PriorityFeeLamports uint64
	ConfirmTimeout      time.Duration
	Logger              *logrus.Logger
}

// Executor implements sniper.TradeExecutor and sniper.QuoteSource.
type Executor struct {
	jup    *jupiter.Client
	wallet *wallet.Wallet
	rpc    *rpc.Client
	cfg    ExecutorConfig
	logger *logrus.Logger

	mu       sync.Mutex
	decimals map[string]uint8
}

func NewExecutor(jup *jupiter.Client, w *wallet.Wallet, rpcClient *rpc.Client, cfg ExecutorConfig) *Executor {
	if cfg.ConfirmTimeout <= 0 {
		cfg.ConfirmTimeout = 60 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Executor{
		jup:      jup,
		wallet:   w,
		rpc:      rpcClient,
		cfg:      cfg,
		logger:   cfg.Logger,
		decimals: make(map[string]uint8),
	}
}

// Buy swaps solAmount SOL into the token and reports the realized price in
// SOL per token.
func (e *Executor) Buy(ctx context.Context, mint solana.PublicKey, solAmount float64) (*sniper.TradeReceipt, error) {
	if solAmount <= 0 {
		return nil, fmt.Errorf("buy amount must be > 0")
	}

	lamports := uint64(math.Round(solAmount * constants.LamportsPerSOL))
	quote, err := e.quote(ctx, constants.WSOLMint, mint.String(), lamports)
	if err != nil {
		return nil, fmt.Errorf("buy quote failed: %w", err)
	}

	sig, err := e.swap(ctx, quote)
	if err != nil {
		return nil, err
	}

	outRaw, err := strconv.ParseUint(quote.OutAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad quote outAmount %q: %w", quote.OutAmount, err)
	}

	receipt := &sniper.TradeReceipt{Signature: sig}
	if dec, err := e.tokenDecimals(ctx, mint); err != nil {
		// Without decimals token amounts stay unknown; the caller falls
		// back to the live price feed for the entry price.
		e.logger.WithError(err).Warn("token decimals unavailable")
	} else {
		tokens := float64(outRaw) / math.Pow10(int(dec))
		receipt.TokensOut = tokens
		if tokens > 0 {
			receipt.Price = solAmount / tokens
		}
	}

	e.logger.WithFields(logrus.Fields{
		"mint": mint.String(),
		"sol":  solAmount,
		"sig":  sig,
	}).Info("buy executed")
	return receipt, nil
}

// Sell swaps tokenAmount of the token back into SOL.
func (e *Executor) Sell(ctx context.Context, mint solana.PublicKey, tokenAmount float64) (*sniper.TradeReceipt, error) {
	if tokenAmount <= 0 {
		return nil, fmt.Errorf("sell amount must be > 0")
	}

	dec, err := e.tokenDecimals(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("sell needs token decimals: %w", err)
	}
	raw := uint64(math.Round(tokenAmount * math.Pow10(int(dec))))

	quote, err := e.quote(ctx, mint.String(), constants.WSOLMint, raw)
	if err != nil {
		return nil, fmt.Errorf("sell quote failed: %w", err)
	}

	sig, err := e.swap(ctx, quote)
	if err != nil {
		return nil, err
	}

	receipt := &sniper.TradeReceipt{Signature: sig}
	if outRaw, err := strconv.ParseUint(quote.OutAmount, 10, 64); err == nil {
		receipt.SolReceived = float64(outRaw) / constants.LamportsPerSOL
	}

	e.logger.WithFields(logrus.Fields{
		"mint":   mint.String(),
		"tokens": tokenAmount,
		"sig":    sig,
	}).Info("sell executed")
	return receipt, nil
}

// BuyImpact quotes the impact of buying with solIn SOL. Quote failures
// surface as errors; the orchestrator decides whether to fall back.
func (e *Executor) BuyImpact(ctx context.Context, mint solana.PublicKey, solIn float64) (amm.Impact, error) {
	lamports := uint64(math.Round(solIn * constants.LamportsPerSOL))
	quote, err := e.quote(ctx, constants.WSOLMint, mint.String(), lamports)
	if err != nil {
		return amm.Unknown(), err
	}
	pct, err := quote.PriceImpactPercent()
	if err != nil {
		return amm.Unknown(), err
	}
	return amm.Percent(pct), nil
}

// SellImpact quotes the impact of selling tokenAmount of the token.
func (e *Executor) SellImpact(ctx context.Context, mint solana.PublicKey, tokenAmount float64) (amm.Impact, error) {
	dec, err := e.tokenDecimals(ctx, mint)
	if err != nil {
		return amm.Unknown(), err
	}
	raw := uint64(math.Round(tokenAmount * math.Pow10(int(dec))))
	quote, err := e.quote(ctx, mint.String(), constants.WSOLMint, raw)
	if err != nil {
		return amm.Unknown(), err
	}
	pct, err := quote.PriceImpactPercent()
	if err != nil {
		return amm.Unknown(), err
	}
	return amm.Percent(pct), nil
}

func (e *Executor) quote(ctx context.Context, inMint, outMint string, amount uint64) (*jupiter.QuoteResponse, error) {
	slippage := e.cfg.SlippageBps
	return e.jup.Quote(ctx, jupiter.QuoteRequest{
		InputMint:   inMint,
		OutputMint:  outMint,
		Amount:      strconv.FormatUint(amount, 10),
		SlippageBps: &slippage,
		SwapMode:    "ExactIn",
	})
}

func (e *Executor) swap(ctx context.Context, quote *jupiter.QuoteResponse) (string, error) {
	swapResp, err := e.jup.Swap(ctx, jupiter.SwapRequest{
		UserPublicKey:             e.wallet.Address(),
		QuoteResponse:             quote,
		WrapAndUnwrapSol:          true,
		DynamicComputeUnitLimit:   true,
		PrioritizationFeeLamports: e.cfg.PriorityFeeLamports,
	})
	if err != nil {
		return "", fmt.Errorf("swap build failed: %w", err)
	}

	sig, err := e.wallet.SignAndSendBase64(ctx, swapResp.SwapTransaction, e.cfg.ConfirmTimeout)
	if err != nil {
		return sig, fmt.Errorf("swap submit failed: %w", err)
	}
	return sig, nil
}

// tokenDecimals fetches and caches a mint's decimal places.
func (e *Executor) tokenDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	key := mint.String()

	e.mu.Lock()
	if dec, ok := e.decimals[key]; ok {
		e.mu.Unlock()
		return dec, nil
	}
	e.mu.Unlock()

	supply, err := e.rpc.GetTokenSupply(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("getTokenSupply failed: %w", err)
	}

	e.mu.Lock()
	e.decimals[key] = supply.Decimals
	e.mu.Unlock()
	return supply.Decimals, nil
}
