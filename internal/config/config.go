package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// LiquidityBand maps a minimum pool liquidity in USD to the maximum SOL the
// bot may spend on a single position. Bands are kept sorted ascending by
// MinUSD; the more liquidity, the larger the allowed position.
type LiquidityBand struct {
	MinUSD      float64
	MaxSpendSOL float64
}

// Config is an immutable snapshot of every tunable the bot uses. It is
// constructed once and passed by injection into every strategy and
// controller constructor; nothing reads environment variables after Load.
type Config struct {
	// RPC / external services
	RPCUrl         string
	JupiterBaseURL string
	JupiterAPIKey  string
	MarketBaseURL  string

	// Wallet
	WalletPrivateKey string

	// Pool detection
	PollInterval time.Duration // spacing between pool probes
	PoolMaxWait  time.Duration // give up waiting for a pool after this

	// Position monitoring
	TickInterval time.Duration // exit-strategy evaluation cadence
	MaxHold      time.Duration // 0 = monitor until a strategy fires

	// Trailing stop: only the low bound of the range sets the stop distance,
	// the high bound is kept for operator tooling.
	TrailingEnabled bool
	TrailingLowPct  float64
	TrailingHighPct float64

	// Take profit
	TakeProfitEnabled bool
	TakeProfitPct     float64

	// Drain pattern
	DrainEnabled    bool
	DrainWindowMin  time.Duration
	DrainWindowMax  time.Duration
	DrainTriggerPct float64

	// Spam signal watcher
	SignalsEnabled bool

	// Trade policy
	MaxBuyImpactPct     float64
	MaxSellImpactPct    float64
	SlippageBps         uint16
	PriorityFeeLamports uint64
	Bands               []LiquidityBand

	// Storage / messaging
	RedisAddr          string
	ClickHouseAddr     string
	ClickHouseDatabase string
	ClickHouseUsername string
	ClickHousePassword string

	// Control API
	APIAddr string
	APIKey  string
	DevMode bool

	// Signal classifier
	OpenRouterAPIKey string
	ClassifierModel  string

	// HTTP client behavior
	HTTPTimeout  time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Load builds a Config from environment variables with defaults suitable for
// mainnet operation.
func Load() (*Config, error) {
	bands, err := parseBands(getEnv("LIQUIDITY_BANDS", "1000:0.1,5000:0.5,20000:1.5,100000:5"))
	if err != nil {
		return nil, fmt.Errorf("invalid LIQUIDITY_BANDS: %w", err)
	}

	trailLow, trailHigh, err := parseRange(getEnv("TRAILING_RANGE_PCT", "12:15"))
	if err != nil {
		return nil, fmt.Errorf("invalid TRAILING_RANGE_PCT: %w", err)
	}

	cfg := &Config{
		RPCUrl:         getEnv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		JupiterBaseURL: getEnv("JUPITER_BASE_URL", "https://api.jup.ag/swap/v1"),
		JupiterAPIKey:  getEnv("JUPITER_API_KEY", ""),
		MarketBaseURL:  getEnv("MARKET_BASE_URL", "https://api.dexscreener.com"),

		WalletPrivateKey: getEnv("WALLET_PRIVATE_KEY", ""),

		PollInterval: getDurationEnv("POOL_POLL_INTERVAL", 600*time.Millisecond),
		PoolMaxWait:  getDurationEnv("POOL_MAX_WAIT", time.Hour),

		TickInterval: getDurationEnv("TICK_INTERVAL", 400*time.Millisecond),
		MaxHold:      getDurationEnv("MAX_HOLD", 0),

		TrailingEnabled: getBoolEnv("TRAILING_ENABLED", true),
		TrailingLowPct:  trailLow,
		TrailingHighPct: trailHigh,

		TakeProfitEnabled: getBoolEnv("TAKE_PROFIT_ENABLED", true),
		TakeProfitPct:     getFloatEnv("TAKE_PROFIT_PCT", 7),

		DrainEnabled:    getBoolEnv("DRAIN_ENABLED", true),
		DrainWindowMin:  getDurationEnv("DRAIN_WINDOW_MIN", 5*time.Second),
		DrainWindowMax:  getDurationEnv("DRAIN_WINDOW_MAX", 30*time.Second),
		DrainTriggerPct: getFloatEnv("DRAIN_TRIGGER_PCT", 15),

		SignalsEnabled: getBoolEnv("SIGNALS_ENABLED", true),

		MaxBuyImpactPct:     getFloatEnv("MAX_BUY_IMPACT_PCT", 10),
		MaxSellImpactPct:    getFloatEnv("MAX_SELL_IMPACT_PCT", 15),
		SlippageBps:         uint16(getIntEnv("SLIPPAGE_BPS", 100)),
		PriorityFeeLamports: uint64(getIntEnv("PRIORITY_FEE_LAMPORTS", 0)),
		Bands:               bands,

		RedisAddr:          getEnv("REDIS_ADDR", ""),
		ClickHouseAddr:     getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "solsniper"),
		ClickHouseUsername: getEnv("CLICKHOUSE_USERNAME", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),

		APIAddr: getEnv("API_ADDR", ":8090"),
		APIKey:  getEnv("API_KEY", ""),
		DevMode: getBoolEnv("DEV_MODE", false),

		OpenRouterAPIKey: getEnv("OPENROUTER_API_KEY", ""),
		ClassifierModel:  getEnv("CLASSIFIER_MODEL", "openai/gpt-4.1-mini"),

		HTTPTimeout:  getDurationEnv("HTTP_TIMEOUT", 12*time.Second),
		MaxRetries:   getIntEnv("MAX_RETRIES", 3),
		RetryBackoff: getDurationEnv("RETRY_BACKOFF", time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("POOL_POLL_INTERVAL must be positive")
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("TICK_INTERVAL must be positive")
	}
	if c.TrailingLowPct <= 0 || c.TrailingLowPct > c.TrailingHighPct {
		return fmt.Errorf("trailing range must satisfy 0 < low <= high")
	}
	if c.DrainWindowMin <= 0 || c.DrainWindowMin > c.DrainWindowMax {
		return fmt.Errorf("drain window must satisfy 0 < min <= max")
	}
	if c.SlippageBps >= 10000 {
		return fmt.Errorf("SLIPPAGE_BPS must be below 10000")
	}
	return nil
}

// MaxSpendFor returns the buy cap for the given pool liquidity. The second
// return is false when liquidity falls below every configured band, which
// rejects the buy entirely.
func (c *Config) MaxSpendFor(liquidityUSD float64) (float64, bool) {
	spendCap := 0.0
	found := false
	for _, b := range c.Bands {
		if liquidityUSD >= b.MinUSD {
			spendCap = b.MaxSpendSOL
			found = true
		}
	}
	return spendCap, found
}

// parseBands parses "minUSD:maxSOL,minUSD:maxSOL,..." and sorts ascending.
func parseBands(s string) ([]LiquidityBand, error) {
	parts := strings.Split(s, ",")
	bands := make([]LiquidityBand, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		kv := strings.SplitN(p, ":", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("band %q: want minUSD:maxSOL", p)
		}
		minUSD, err := strconv.ParseFloat(strings.TrimSpace(kv[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("band %q: bad liquidity: %w", p, err)
		}
		maxSOL, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("band %q: bad spend cap: %w", p, err)
		}
		bands = append(bands, LiquidityBand{MinUSD: minUSD, MaxSpendSOL: maxSOL})
	}
	if len(bands) == 0 {
		return nil, fmt.Errorf("no bands configured")
	}
	sort.Slice(bands, func(i, j int) bool { return bands[i].MinUSD < bands[j].MinUSD })
	for i := 1; i < len(bands); i++ {
		if bands[i].MaxSpendSOL < bands[i-1].MaxSpendSOL {
			return nil, fmt.Errorf("buy caps must be ascending with liquidity")
		}
	}
	return bands, nil
}

// parseRange parses "low:high" percent pairs.
func parseRange(s string) (float64, float64, error) {
	kv := strings.SplitN(s, ":", 2)
	if len(kv) != 2 {
		return 0, 0, fmt.Errorf("want low:high, got %q", s)
	}
	low, err := strconv.ParseFloat(strings.TrimSpace(kv[0]), 64)
	if err != nil {
		return 0, 0, err
	}
	high, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
	if err != nil {
		return 0, 0, err
	}
	return low, high, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getIntEnv(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getFloatEnv(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getBoolEnv(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getDurationEnv(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
