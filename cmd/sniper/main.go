package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hamza-farooq/solsniper/internal/ai"
	"github.com/hamza-farooq/solsniper/internal/alerts"
	"github.com/hamza-farooq/solsniper/internal/config"
	"github.com/hamza-farooq/solsniper/internal/denylist"
	"github.com/hamza-farooq/solsniper/internal/history"
	"github.com/hamza-farooq/solsniper/internal/jupiter"
	"github.com/hamza-farooq/solsniper/internal/market"
	"github.com/hamza-farooq/solsniper/internal/rpc"
	"github.com/hamza-farooq/solsniper/internal/server"
	"github.com/hamza-farooq/solsniper/internal/sniper"
	"github.com/hamza-farooq/solsniper/internal/trade"
	"github.com/hamza-farooq/solsniper/internal/wallet"
)

// env bootstrap function
func loadEnv(logger *logrus.Logger) {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		logger.Warnf("no .env file found at %s, using system environment variables", envPath)
	} else {
		logger.Infof("loaded .env from %s", envPath)
	}
}

// main snipes a single mint: wait for its pool, buy, monitor, exit. The
// control API runs alongside so signals and deny-list edits land while
// the position is live.
func main() {
	mintFlag := flag.String("mint", "", "token mint to snipe (required)")
	amountFlag := flag.Float64("amount", 0, "desired buy size in SOL (required)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	logger.SetLevel(logrus.InfoLevel)
	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logrus.DebugLevel)
	}

	// load .env BEFORE anything reads os.Getenv
	loadEnv(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}

	mint, err := solana.PublicKeyFromBase58(*mintFlag)
	if err != nil {
		logger.WithError(err).Fatal("-mint must be a valid solana address")
	}
	if *amountFlag <= 0 {
		logger.Fatal("-amount must be a positive SOL amount")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down")
		cancel()
	}()

	rpcClient := rpc.NewClient(rpc.ClientConfig{
		BaseURL:      cfg.RPCUrl,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		Logger:       logger,
	})

	w, err := wallet.NewWallet(wallet.WalletConfig{
		RPCURL:       cfg.RPCUrl,
		PrivateKey:   cfg.WalletPrivateKey,
		Timeout:      cfg.HTTPTimeout,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to load wallet")
	}
	logger.WithField("address", w.Address()).Info("wallet loaded")

	jup := jupiter.NewClient(cfg.JupiterBaseURL, cfg.JupiterAPIKey, cfg.HTTPTimeout)

	mkt := market.NewClient(market.ClientConfig{
		BaseURL:   cfg.MarketBaseURL,
		RPCClient: rpcClient,
		Timeout:   cfg.HTTPTimeout,
		Logger:    logger,
	})

	exec := trade.NewExecutor(jup, w, rpcClient, trade.ExecutorConfig{
		SlippageBps:         cfg.SlippageBps,
		PriorityFeeLamports: cfg.PriorityFeeLamports,
		Logger:              logger,
	})

	// Optional infrastructure: redis for deny list and alert pub/sub,
	// clickhouse for trade history. Missing config just disables the piece.
	var (
		deny    *denylist.Store
		hist    *history.Store
		rclient *redis.Client
	)
	sinks := alerts.MultiSink{alerts.NewLogSink(logger)}

	if cfg.RedisAddr != "" {
		rclient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rclient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("redis unreachable, deny list and alert publishing disabled")
		} else {
			deny, err = denylist.NewStore(rclient)
			if err != nil {
				logger.WithError(err).Fatal("failed to create deny list store")
			}
			sinks = append(sinks, alerts.NewRedisSink(rclient, logger))
		}
	}

	if cfg.ClickHouseAddr != "" {
		hist, err = history.NewStore(ctx, history.Config{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
			Logger:   logger,
		})
		if err != nil {
			logger.WithError(err).Warn("clickhouse unreachable, trade history disabled")
			hist = nil
		} else {
			if err := hist.EnsureSchema(ctx); err != nil {
				logger.WithError(err).Fatal("failed to ensure trade history schema")
			}
			defer hist.Close()
		}
	}

	signals := sniper.NewSignalWatcher(cfg.SignalsEnabled)
	tracker := sniper.NewTracker()

	var classifier *ai.Classifier
	if cfg.OpenRouterAPIKey != "" {
		classifier, err = ai.NewClassifier(ai.ClassifierConfig{
			OpenRouterAPIKey: cfg.OpenRouterAPIKey,
			Model:            cfg.ClassifierModel,
			Logger:           logger,
		})
		if err != nil {
			logger.WithError(err).Warn("failed to initialize classifier")
		}
	}

	startControlAPI(ctx, cfg, logger, signals, tracker, deny, hist, jup, classifier)

	co := sniper.Collaborators{
		Prober:    mkt,
		Price:     mkt,
		Liquidity: mkt,
		Executor:  exec,
		Quotes:    exec,
		Reserves:  mkt,
		Sink:      sinks,
		Signals:   signals,
		Tracker:   tracker,
	}
	if deny != nil {
		co.Deny = deny
	}
	if hist != nil {
		co.History = hist
	}

	orch, err := sniper.NewOrchestrator(cfg, logger, co)
	if err != nil {
		logger.WithError(err).Fatal("failed to create orchestrator")
	}

	logger.WithFields(logrus.Fields{
		"mint":   mint.String(),
		"amount": *amountFlag,
	}).Info("snipe starting")

	decision, err := orch.WaitAndSnipe(ctx, mint, *amountFlag)
	if err != nil {
		logger.WithError(err).Fatal("snipe failed")
	}

	fmt.Printf("exit: strategy=%s price=%.10f reason=%q\n",
		decision.Strategy, decision.PriceAtExit, decision.Reason)
}

// startControlAPI runs the HTTP server in the background. Failures are
// logged, not fatal: the snipe itself does not depend on the API.
func startControlAPI(ctx context.Context, cfg *config.Config, logger *logrus.Logger,
	signals *sniper.SignalWatcher, tracker *sniper.Tracker,
	deny *denylist.Store, hist *history.Store, jup *jupiter.Client,
	classifier *ai.Classifier) {

	h := &server.Handlers{
		Signals:    signals,
		Tracker:    tracker,
		Deny:       deny,
		History:    hist,
		Jupiter:    jup,
		Classifier: classifier,
		DevMode:    cfg.DevMode,
		Logger:     logger,
	}

	srv, err := server.NewServer(server.ServerDeps{
		Handlers: h,
		Config: server.ServerConfig{
			Addr:    cfg.APIAddr,
			DevMode: cfg.DevMode,
			APIKey:  cfg.APIKey,
		},
	})
	if err != nil {
		logger.WithError(err).Warn("control api unavailable")
		return
	}

	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()
	go func() {
		logger.WithField("addr", cfg.APIAddr).Info("control api starting")
		if err := srv.Start(); err != nil && err.Error() != "http: Server closed" {
			logger.WithError(err).Warn("control api stopped")
		}
	}()
}
