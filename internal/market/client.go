// Package market implements the pool probe, live price and liquidity
// capabilities on top of a DexScreener-compatible pairs API, with the
// originating address resolved through Solana RPC.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/hamza-farooq/solsniper/internal/constants"
	"github.com/hamza-farooq/solsniper/internal/rpc"
	"github.com/hamza-farooq/solsniper/internal/sniper"
)

// dexKinds maps the pairs API's dexId values onto the AMM kinds the bot
// trades. Pairs on venues outside this set are ignored.
var dexKinds = map[string]sniper.AmmKind{
	"raydium":      sniper.AmmRaydium,
	"raydium-cpmm": sniper.AmmCpmm,
	"cpmm":         sniper.AmmCpmm,
	"pumpfun":      sniper.AmmPump,
	"pumpswap":     sniper.AmmPumpswap,
}

type ClientConfig struct {
	BaseURL   string
	RPCClient *rpc.Client // optional, enables creator lookup
	Timeout   time.Duration
	// RequestsPerSecond caps outbound calls to the pairs API; probe loops
	// run at sub-second cadence and public endpoints rate limit hard.
	RequestsPerSecond float64
	Logger            *logrus.Logger
}

// Client talks to the pairs API. It implements sniper.PoolProber,
// sniper.PriceSource, sniper.LiquiditySource and sniper.ReserveSource.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	rpc     *rpc.Client
	logger  *logrus.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 4
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 2),
		rpc:     cfg.RPCClient,
		logger:  cfg.Logger,
	}
}

// ProbePool performs one nonblocking pool lookup. (nil, nil) means no
// tradeable pool yet.
func (c *Client) ProbePool(ctx context.Context, mint solana.PublicKey) (*sniper.PoolInfo, error) {
	pair, err := c.bestPair(ctx, mint)
	if err != nil {
		return nil, err
	}
	if pair == nil {
		return nil, nil
	}

	addr, err := solana.PublicKeyFromBase58(pair.PairAddress)
	if err != nil {
		return nil, fmt.Errorf("bad pair address %q: %w", pair.PairAddress, err)
	}

	info := &sniper.PoolInfo{
		Kind:      dexKinds[pair.DexID],
		Address:   addr,
		TokenMint: mint,
	}

	// Creator resolution is best effort; the deny check falls back to the
	// pool address when it stays unknown.
	if creator, err := c.CreatorOf(ctx, addr); err != nil {
		c.logger.WithError(err).Debug("pool creator lookup failed")
	} else {
		info.Creator = creator
	}
	return info, nil
}

// LivePrice reports the token price in SOL from the most liquid pair.
func (c *Client) LivePrice(ctx context.Context, mint solana.PublicKey) (float64, error) {
	pair, err := c.bestPair(ctx, mint)
	if err != nil {
		return 0, err
	}
	if pair == nil {
		return 0, fmt.Errorf("no pair for mint %s", mint)
	}
	p, err := strconv.ParseFloat(strings.TrimSpace(pair.PriceNative), 64)
	if err != nil {
		return 0, fmt.Errorf("bad priceNative %q: %w", pair.PriceNative, err)
	}
	return p, nil
}

// LiquidityUSD reports the most liquid pair's valuation.
func (c *Client) LiquidityUSD(ctx context.Context, mint solana.PublicKey) (float64, error) {
	pair, err := c.bestPair(ctx, mint)
	if err != nil {
		return 0, err
	}
	if pair == nil {
		return 0, fmt.Errorf("no pair for mint %s", mint)
	}
	return pair.Liquidity.USD, nil
}

// PoolReserves returns the SOL-side and token-side reserves for the
// constant-product impact fallback.
func (c *Client) PoolReserves(ctx context.Context, pool *sniper.PoolInfo) (float64, float64, error) {
	pair, err := c.bestPair(ctx, pool.TokenMint)
	if err != nil {
		return 0, 0, err
	}
	if pair == nil {
		return 0, 0, fmt.Errorf("no pair for mint %s", pool.TokenMint)
	}
	if pair.Liquidity.Quote <= 0 || pair.Liquidity.Base <= 0 {
		return 0, 0, fmt.Errorf("reserves unavailable for pair %s", pair.PairAddress)
	}
	return pair.Liquidity.Quote, pair.Liquidity.Base, nil
}

// CreatorOf resolves the address that originated a pool: the fee payer of
// the pool account's oldest transaction.
func (c *Client) CreatorOf(ctx context.Context, pool solana.PublicKey) (solana.PublicKey, error) {
	if c.rpc == nil {
		return solana.PublicKey{}, fmt.Errorf("no RPC client configured")
	}

	sigs, err := c.rpc.GetSignaturesForAddress(ctx, pool.String(), map[string]interface{}{
		"limit": 1000,
	})
	if err != nil {
		return solana.PublicKey{}, err
	}
	if len(sigs.Result) == 0 {
		return solana.PublicKey{}, fmt.Errorf("no signatures for pool %s", pool)
	}

	// Results are newest first; the last one is the pool's creation.
	oldest := sigs.Result[len(sigs.Result)-1]
	tx, err := c.rpc.GetTransaction(ctx, oldest.Signature)
	if err != nil {
		return solana.PublicKey{}, err
	}
	if tx.Result == nil || tx.Result.Transaction == nil || len(tx.Result.Transaction.Message.AccountKeys) == 0 {
		return solana.PublicKey{}, fmt.Errorf("creation tx %s has no account keys", oldest.Signature)
	}

	// The fee payer leads the account keys. Skip AMM program accounts in
	// case the node returns a reordered parsed transaction.
	for _, key := range tx.Result.Transaction.Message.AccountKeys {
		if constants.IsAMMProgram(key.Pubkey) {
			continue
		}
		return solana.PublicKeyFromBase58(key.Pubkey)
	}
	return solana.PublicKey{}, fmt.Errorf("creation tx %s has only program keys", oldest.Signature)
}

// bestPair fetches all pairs for a mint and picks the most liquid one on a
// supported venue. nil means no supported pair exists yet.
func (c *Client) bestPair(ctx context.Context, mint solana.PublicKey) (*Pair, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := fmt.Sprintf("%s/token-pairs/v1/solana/%s", c.baseURL, mint.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pairs api http %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var pairs []Pair
	if err := json.Unmarshal(body, &pairs); err != nil {
		return nil, fmt.Errorf("failed to decode pairs response: %w", err)
	}

	var best *Pair
	for i := range pairs {
		p := &pairs[i]
		if _, ok := dexKinds[p.DexID]; !ok {
			continue
		}
		if best == nil || p.Liquidity.USD > best.Liquidity.USD {
			best = p
		}
	}
	return best, nil
}
